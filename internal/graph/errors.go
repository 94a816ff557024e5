package graph

import "errors"

var (
	// ErrManifestNotFound means the project root has no package.json.
	ErrManifestNotFound = errors.New("manifest not found")
	// ErrLockfileNotFound means the project root has no package-lock.json.
	ErrLockfileNotFound = errors.New("lockfile not found")
	// ErrGraphInconsistency means a dependency declared in the manifest is absent from the lockfile.
	ErrGraphInconsistency = errors.New("manifest and lockfile disagree")
	// ErrModuleNotFound means a lockfile "requires" entry resolves to no installed copy.
	ErrModuleNotFound = errors.New("module not found in lockfile")
	// ErrPathResolution means no node_modules directory up to the filesystem root contains the package.
	ErrPathResolution = errors.New("cannot resolve install path")
)
