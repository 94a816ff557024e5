// Package graph reconstructs the installed package topology of a Node.js project
// from its manifest and lockfile, and maps every package to its install directory.
package graph

import (
	"github.com/kluth/npm-code-auditter/internal/analyzer"
)

// Node is a package in the dependency graph. Parents that depend on the same
// installed copy share one *Node, so the graph is a DAG (or, for cyclic
// lockfiles, a cyclic graph) even though it is reached through a tree walk.
type Node struct {
	Name    string
	Version string
	// Optional is set for packages the lockfile marks optional. They may be
	// missing from node_modules.
	Optional bool
	// InstallPath is the directory holding the package's package.json.
	// Empty until ResolvePaths has run.
	InstallPath string
	// Findings is nil until the package has been scanned.
	Findings []analyzer.Finding
	// Children are unique by name and version.
	Children []*Node
}

// Key identifies the node by name and version, e.g. "lodash@4.17.21".
func (n *Node) Key() string {
	return n.Name + "@" + n.Version
}

// Scanned reports whether findings have been attached.
func (n *Node) Scanned() bool {
	return n.Findings != nil
}

// Child returns the direct dependency with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Distinct returns every node reachable from root exactly once (by identity),
// root first, in depth-first pre-order. Cycles are tolerated.
func Distinct(root *Node) []*Node {
	seen := make(map[*Node]bool)
	var out []*Node
	var visit func(n *Node)
	visit = func(n *Node) {
		if seen[n] {
			return
		}
		seen[n] = true
		out = append(out, n)
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(root)
	return out
}
