// Package project reads the manifest (package.json) and lockfile (package-lock.json)
// of a Node.js project.
package project

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

const (
	// ManifestFile is the name of the npm manifest.
	ManifestFile = "package.json"
	// LockFile is the name of the npm lockfile.
	LockFile = "package-lock.json"
)

// PackageJSON represents a standard package.json file containing project metadata and dependencies.
type PackageJSON struct {
	// Name is the name of the project.
	Name string `json:"name"`
	// Version is the version of the project.
	Version string `json:"version"`
	// Dependencies are the packages required for production.
	Dependencies map[string]string `json:"dependencies"`
	// DevDependencies are the packages required for development and testing.
	DevDependencies map[string]string `json:"devDependencies"`
}

// PackageLock represents a package-lock.json file, supporting multiple lockfile versions.
type PackageLock struct {
	// Name is the name of the project.
	Name string `json:"name"`
	// Version is the version of the project.
	Version string `json:"version"`
	// LockfileVersion is the version of the lockfile format (1, 2, or 3).
	LockfileVersion int `json:"lockfileVersion"`
	// Packages contains dependency information for lockfile v2 and v3.
	Packages map[string]LockPackage `json:"packages"`
	// Dependencies contains the nested dependency tree of lockfile v1 and v2.
	Dependencies map[string]*LockEntry `json:"dependencies"`
}

// LockPackage represents a single entry of the flat "packages" map of a modern lockfile.
type LockPackage struct {
	Version              string            `json:"version"`
	Resolved             string            `json:"resolved"`
	Integrity            string            `json:"integrity"`
	Link                 bool              `json:"link"`
	Optional             bool              `json:"optional"`
	Dependencies         map[string]string `json:"dependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
}

// LockEntry is a node of the nested lockfile dependency tree.
type LockEntry struct {
	// Version is the resolved version of the package.
	Version string `json:"version"`
	// Resolved is the URL or location from which the package was retrieved.
	Resolved string `json:"resolved,omitempty"`
	// Integrity is the subresource integrity string.
	Integrity string `json:"integrity,omitempty"`
	// Optional marks packages npm may skip, e.g. when the platform does not match.
	Optional bool `json:"optional,omitempty"`
	// Requires maps the names this package depends on to their version ranges.
	Requires map[string]string `json:"requires,omitempty"`
	// Dependencies holds copies installed below this package, shadowing hoisted ones.
	Dependencies map[string]*LockEntry `json:"dependencies,omitempty"`
}

// Dependency represents a declared dependency and its version range.
type Dependency struct {
	// Name is the name of the package.
	Name string
	// Version is the version range from the manifest.
	Version string
}

// ReadManifest reads and parses dir/package.json. A missing file yields an
// error satisfying os.IsNotExist.
func ReadManifest(fsys afero.Fs, dir string) (*PackageJSON, error) {
	data, err := afero.ReadFile(fsys, filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ManifestFile, err)
	}
	return &pkg, nil
}

// DeclaredDependencies returns the union of runtime and development
// dependencies sorted by name. A runtime range wins over a dev range.
func (p *PackageJSON) DeclaredDependencies() []Dependency {
	merged := make(map[string]string, len(p.Dependencies)+len(p.DevDependencies))
	for name, ver := range p.DevDependencies {
		merged[name] = ver
	}
	for name, ver := range p.Dependencies {
		merged[name] = ver
	}

	deps := make([]Dependency, 0, len(merged))
	for name, ver := range merged {
		deps = append(deps, Dependency{Name: name, Version: ver})
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })
	return deps
}

// ReadLockfile reads and parses dir/package-lock.json. A missing file yields
// an error satisfying os.IsNotExist.
func ReadLockfile(fsys afero.Fs, dir string) (*PackageLock, error) {
	data, err := afero.ReadFile(fsys, filepath.Join(dir, LockFile))
	if err != nil {
		return nil, err
	}

	var lock PackageLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("parse %s: %w", LockFile, err)
	}
	return &lock, nil
}

// Tree returns the nested dependency tree. Lockfile v1 and v2 carry it directly;
// for v3 it is rebuilt from the flat "packages" map.
func (l *PackageLock) Tree() map[string]*LockEntry {
	if len(l.Dependencies) > 0 || len(l.Packages) == 0 {
		if l.Dependencies == nil {
			return map[string]*LockEntry{}
		}
		return l.Dependencies
	}
	return treeFromPackages(l.Packages)
}

const nodeModules = "node_modules/"

// splitInstallKey turns "node_modules/a/node_modules/@s/b" into ["a", "@s/b"].
// Keys outside node_modules (root, workspaces) return nil.
func splitInstallKey(key string) []string {
	if !strings.HasPrefix(key, nodeModules) {
		return nil
	}
	return strings.Split(strings.TrimPrefix(key, nodeModules), "/"+nodeModules)
}

func treeFromPackages(pkgs map[string]LockPackage) map[string]*LockEntry {
	type keyed struct {
		key   string
		chain []string
	}

	installed := make(map[string]bool)
	var keys []keyed
	for key, pkg := range pkgs {
		chain := splitInstallKey(key)
		if chain == nil || pkg.Link {
			continue
		}
		installed[chain[len(chain)-1]] = true
		keys = append(keys, keyed{key: key, chain: chain})
	}
	// Parents before children, then lexical for stable output.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i].chain) != len(keys[j].chain) {
			return len(keys[i].chain) < len(keys[j].chain)
		}
		return keys[i].key < keys[j].key
	})

	root := make(map[string]*LockEntry)
	for _, k := range keys {
		pkg := pkgs[k.key]
		entry := &LockEntry{
			Version:   pkg.Version,
			Resolved:  pkg.Resolved,
			Integrity: pkg.Integrity,
			Optional:  pkg.Optional,
			Requires:  requiresOf(pkg, installed),
		}

		level := root
		ok := true
		for _, name := range k.chain[:len(k.chain)-1] {
			parent, found := level[name]
			if !found {
				ok = false
				break
			}
			if parent.Dependencies == nil {
				parent.Dependencies = make(map[string]*LockEntry)
			}
			level = parent.Dependencies
		}
		if ok {
			level[k.chain[len(k.chain)-1]] = entry
		}
	}
	return root
}

// requiresOf lists hard dependencies plus optional and peer dependencies that
// were actually installed somewhere in the tree.
func requiresOf(pkg LockPackage, installed map[string]bool) map[string]string {
	req := make(map[string]string)
	for name, rng := range pkg.Dependencies {
		req[name] = rng
	}
	for _, soft := range []map[string]string{pkg.OptionalDependencies, pkg.PeerDependencies} {
		for name, rng := range soft {
			if _, dup := req[name]; !dup && installed[name] {
				req[name] = rng
			}
		}
	}
	if len(req) == 0 {
		return nil
	}
	return req
}
