package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/kluth/npm-code-auditter/internal/logging"
	"github.com/kluth/npm-code-auditter/internal/project"
)

// ResolvePaths returns a copy of the graph rooted at root in which every node
// carries the directory it is installed in. rootPath is the project directory.
//
// A child is looked up in <parent>/node_modules/<name> first; failing that, the
// parent directories are walked upwards and the probe is retried in every
// directory holding a package.json, the way Node resolves modules. Nodes that
// land on the same directory become the same *Node. A node is registered before
// its children are resolved, so dependency cycles close on the existing node.
//
// An optional package that is not installed is dropped from its parent's
// children. Any other unresolvable package is ErrPathResolution.
func ResolvePaths(fsys afero.Fs, root *Node, rootPath string, log *slog.Logger) (*Node, error) {
	if log == nil {
		log = logging.Discard()
	}
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", rootPath, err)
	}

	r := &pathResolver{fsys: fsys, memo: make(map[string]*Node), log: log}
	resolved := &Node{Name: root.Name, Version: root.Version, Optional: root.Optional, InstallPath: abs, Findings: root.Findings}
	r.memo[abs] = resolved
	if err := r.resolveChildren(root, resolved); err != nil {
		return nil, err
	}
	return resolved, nil
}

type pathResolver struct {
	fsys afero.Fs
	memo map[string]*Node
	log  *slog.Logger
}

func (r *pathResolver) resolveChildren(src, dst *Node) error {
	for _, child := range src.Children {
		dir, err := r.locate(dst.InstallPath, child.Name)
		if err != nil {
			if child.Optional && errors.Is(err, ErrPathResolution) {
				r.log.Debug("optional dependency not installed", "parent", dst.Key(), "package", child.Key())
				continue
			}
			return fmt.Errorf("%s -> %s: %w", dst.Key(), child.Key(), err)
		}

		if existing, ok := r.memo[dir]; ok {
			dst.Children = append(dst.Children, existing)
			continue
		}

		n := &Node{Name: child.Name, Version: child.Version, Optional: child.Optional, InstallPath: dir}
		r.memo[dir] = n
		dst.Children = append(dst.Children, n)
		if err := r.resolveChildren(child, n); err != nil {
			return err
		}
	}
	return nil
}

// locate finds the install directory of name as seen from the package in dir.
func (r *pathResolver) locate(from, name string) (string, error) {
	if candidate := filepath.Join(from, "node_modules", name); r.isDir(candidate) {
		return candidate, nil
	}

	dir := from
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: %s from %s", ErrPathResolution, name, from)
		}
		dir = parent

		if !r.exists(filepath.Join(dir, project.ManifestFile)) {
			continue
		}
		if candidate := filepath.Join(dir, "node_modules", name); r.isDir(candidate) {
			return candidate, nil
		}
	}
}

func (r *pathResolver) isDir(p string) bool {
	ok, err := afero.IsDir(r.fsys, p)
	return err == nil && ok
}

func (r *pathResolver) exists(p string) bool {
	ok, err := afero.Exists(r.fsys, p)
	return err == nil && ok
}
