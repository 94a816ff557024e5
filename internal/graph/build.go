package graph

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/kluth/npm-code-auditter/internal/project"
)

// Build reads rootDir/package.json and rootDir/package-lock.json and returns the
// root node of the dependency graph. Install paths are not set; see ResolvePaths.
func Build(fsys afero.Fs, rootDir string) (*Node, error) {
	manifest, err := project.ReadManifest(fsys, rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, filepath.Join(rootDir, project.ManifestFile))
		}
		return nil, err
	}

	lock, err := project.ReadLockfile(fsys, rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrLockfileNotFound, filepath.Join(rootDir, project.LockFile))
		}
		return nil, err
	}

	return FromManifests(manifest, lock)
}

// FromManifests builds the graph from already parsed manifest and lockfile.
func FromManifests(manifest *project.PackageJSON, lock *project.PackageLock) (*Node, error) {
	root := &Node{Name: manifest.Name, Version: manifest.Version}
	tree := lock.Tree()

	hoisted := make(scope, len(tree))
	for name, entry := range tree {
		hoisted[name] = &Node{Name: name, Version: entry.Version, Optional: entry.Optional}
	}

	b := &builder{stack: scopeStack{hoisted}}
	for _, name := range sortedKeys(tree) {
		entry := tree[name]
		if hasDependencies(entry) {
			if err := b.process(entry, hoisted[name]); err != nil {
				return nil, err
			}
		}
	}

	for _, dep := range manifest.DeclaredDependencies() {
		node, ok := hoisted[dep.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s@%s is declared in %s but missing from %s",
				ErrGraphInconsistency, dep.Name, dep.Version, project.ManifestFile, project.LockFile)
		}
		root.Children = append(root.Children, node)
	}
	return root, nil
}

type builder struct {
	stack scopeStack
}

// process links node to the packages its lockfile entry requires, then descends
// into the copies installed below it. The entry's own nested installs form a new
// scope for the duration of the call.
func (b *builder) process(entry *project.LockEntry, node *Node) error {
	local := make(scope, len(entry.Dependencies))
	for name, nested := range entry.Dependencies {
		local[name] = &Node{Name: name, Version: nested.Version, Optional: nested.Optional}
	}

	b.stack.push(local)
	defer b.stack.pop()

	for _, name := range sortedKeys(entry.Requires) {
		child, ok := b.stack.lookup(name)
		if !ok {
			return fmt.Errorf("%w: %s requires %s", ErrModuleNotFound, node.Key(), name)
		}
		node.Children = append(node.Children, child)
	}

	for _, name := range sortedKeys(entry.Dependencies) {
		nested := entry.Dependencies[name]
		if hasDependencies(nested) {
			if err := b.process(nested, local[name]); err != nil {
				return err
			}
		}
	}
	return nil
}

func hasDependencies(e *project.LockEntry) bool {
	return len(e.Dependencies) > 0 || len(e.Requires) > 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
