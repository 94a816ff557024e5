package analyzer

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// Tree is a parsed JavaScript file. Close it when done.
type Tree struct {
	tree   *sitter.Tree
	root   *sitter.Node
	source []byte
	idx    *index
}

// Parse parses JavaScript source with location tracking. It only fails when ctx
// is done; syntax errors are reported by Tree.HasError.
func Parse(ctx context.Context, source []byte) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// A sitter.Parser is not safe for concurrent use, so each call gets its own.
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	return &Tree{tree: tree, root: tree.RootNode(), source: source}, nil
}

// HasError reports whether the source contained syntax errors.
func (t *Tree) HasError() bool {
	return t.root.HasError()
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
	}
}

func (t *Tree) text(n *sitter.Node) string {
	return n.Content(t.source)
}

// index returns the node index, building it on first use.
func (t *Tree) index() *index {
	if t.idx == nil {
		t.idx = buildIndex(t)
	}
	return t.idx
}
