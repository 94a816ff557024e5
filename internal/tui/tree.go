package tui

import (
	"github.com/kluth/npm-code-auditter/internal/graph"
)

// row is one visible line of the dependency tree.
type row struct {
	node  *graph.Node
	depth int
	// prefix holds the box-drawing connectors drawn before the node.
	prefix string
	// id is the chain of keys from the root, unique per visible position.
	id string
	// dedup marks a node already listed higher up; it is not expanded again.
	dedup     bool
	collapsed bool
}

// flattenTree lists the rows of the tree rooted at root in display order.
// A node reached a second time (shared dependency or cycle) is shown once more
// with dedup set and without its subtree.
func flattenTree(root *graph.Node, collapsed map[string]bool) []row {
	if root == nil {
		return nil
	}
	seen := map[*graph.Node]bool{root: true}
	rows := []row{{node: root, id: root.Key(), collapsed: collapsed[root.Key()]}}
	if collapsed[root.Key()] {
		return rows
	}

	var walk func(n *graph.Node, id, indent string, depth int)
	walk = func(n *graph.Node, id, indent string, depth int) {
		for i, c := range n.Children {
			last := i == len(n.Children)-1
			connector, next := "├── ", "│   "
			if last {
				connector, next = "└── ", "    "
			}
			childID := id + "/" + c.Key()
			r := row{node: c, depth: depth, prefix: indent + connector, id: childID}
			if seen[c] {
				r.dedup = true
				rows = append(rows, r)
				continue
			}
			seen[c] = true
			r.collapsed = collapsed[childID]
			rows = append(rows, r)
			if !r.collapsed {
				walk(c, childID, indent+next, depth+1)
			}
		}
	}
	walk(root, root.Key(), "", 1)
	return rows
}
