package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kluth/npm-code-auditter/internal/aggregate"
	"github.com/kluth/npm-code-auditter/internal/analyzer"
	"github.com/kluth/npm-code-auditter/internal/graph"
	"github.com/kluth/npm-code-auditter/internal/reporter"
)

// sampleGraph: root -> a, b; a -> c; b -> c; c -> a.
func sampleGraph() *graph.Node {
	root := &graph.Node{Name: "demo", Version: "1.0.0"}
	a := &graph.Node{Name: "a", Version: "1.0.0", InstallPath: "/p/node_modules/a",
		Findings: []analyzer.Finding{{
			Category: analyzer.CategoryEvalCall,
			Severity: analyzer.CategoryEvalCall.Severity(),
			File:     "index.js",
			Location: analyzer.SourceSpan{LineStart: 3, LineEnd: 3, ColStart: 1, ColEnd: 9},
			Snippet:  "eval(x)",
		}}}
	b := &graph.Node{Name: "b", Version: "2.0.0", InstallPath: "/p/node_modules/b", Findings: []analyzer.Finding{}}
	c := &graph.Node{Name: "c", Version: "3.0.0", InstallPath: "/p/node_modules/c", Findings: []analyzer.Finding{}}
	root.Children = []*graph.Node{a, b}
	a.Children = []*graph.Node{c}
	b.Children = []*graph.Node{c}
	c.Children = []*graph.Node{a}
	return root
}

func sampleReport() reporter.Report {
	root := sampleGraph()
	return reporter.Report{
		RunID:   "run-1",
		Project: "demo",
		Version: "1.0.0",
		Path:    "/p",
		Root:    root,
		Entries: aggregate.Summarize(root),
	}
}

type rowView struct {
	Key    string
	Prefix string
	Dedup  bool
}

func viewRows(rows []row) []rowView {
	out := make([]rowView, len(rows))
	for i, r := range rows {
		out[i] = rowView{r.node.Key(), r.prefix, r.dedup}
	}
	return out
}

func TestFlattenTree(t *testing.T) {
	rows := flattenTree(sampleGraph(), map[string]bool{})

	assert.Equal(t, []rowView{
		{"demo@1.0.0", "", false},
		{"a@1.0.0", "├── ", false},
		{"c@3.0.0", "│   └── ", false},
		{"a@1.0.0", "│       └── ", true},
		{"b@2.0.0", "└── ", false},
		{"c@3.0.0", "    └── ", true},
	}, viewRows(rows))
	assert.Equal(t, 0, rows[0].depth)
	assert.Equal(t, 3, rows[3].depth)
}

func TestFlattenTreeCollapsed(t *testing.T) {
	rows := flattenTree(sampleGraph(), map[string]bool{"demo@1.0.0/a@1.0.0": true})

	assert.Equal(t, []rowView{
		{"demo@1.0.0", "", false},
		{"a@1.0.0", "├── ", false},
		{"b@2.0.0", "└── ", false},
		{"c@3.0.0", "    └── ", false},
		{"a@1.0.0", "        └── ", true},
	}, viewRows(rows))
	assert.True(t, rows[1].collapsed)

	rows = flattenTree(sampleGraph(), map[string]bool{"demo@1.0.0": true})
	assert.Len(t, rows, 1)
	assert.Nil(t, flattenTree(nil, nil))
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func loadedModel(t *testing.T, fsys afero.Fs) Model {
	t.Helper()
	m := NewModel(func(context.Context) (reporter.Report, error) { return sampleReport(), nil }, fsys)
	msg := loadReport(m.load)()
	m, _ = send(t, m, msg)
	return m
}

func TestModelLoading(t *testing.T) {
	m := NewModel(nil, afero.NewMemMapFs())
	assert.True(t, m.loading)
	assert.Contains(t, m.View(), "Scanning dependencies")

	// Keys other than quit are ignored while loading.
	m, cmd := send(t, m, keyMsg("j"))
	assert.Nil(t, cmd)
	assert.Equal(t, 0, m.cursor)

	msg := loadReport(nil)()
	m, _ = send(t, m, msg)
	assert.False(t, m.loading)
	assert.Contains(t, m.View(), "Error: nothing to load")
}

func TestModelLoadError(t *testing.T) {
	m := NewModel(func(context.Context) (reporter.Report, error) { return reporter.Report{}, errors.New("boom") }, afero.NewMemMapFs())
	m, _ = send(t, m, loadReport(m.load)())
	assert.Contains(t, m.View(), "Error: boom")
}

func TestModelNavigation(t *testing.T) {
	m := loadedModel(t, afero.NewMemMapFs())
	require.Len(t, m.rows, 6)

	view := m.View()
	assert.Contains(t, view, "demo@1.0.0")
	assert.Contains(t, view, "(deduped)")
	assert.Contains(t, view, "3 packages")

	m, _ = send(t, m, keyMsg("down"))
	assert.Equal(t, 1, m.cursor)
	detail := m.renderDetail()
	assert.Contains(t, detail, "a@1.0.0")
	assert.Contains(t, detail, "EvalCall")
	assert.Contains(t, detail, "index.js:3:1")
	assert.Contains(t, detail, "1 own, 1 with dependencies")

	m, _ = send(t, m, keyMsg("enter"))
	assert.Len(t, m.rows, 5)
	assert.True(t, m.rows[1].collapsed)
	m, _ = send(t, m, keyMsg("enter"))
	assert.Len(t, m.rows, 6)

	m, _ = send(t, m, keyMsg("G"))
	assert.Equal(t, 5, m.cursor)
	m, _ = send(t, m, keyMsg("j"))
	assert.Equal(t, 5, m.cursor)

	// Deduped rows do not toggle.
	m, _ = send(t, m, keyMsg("enter"))
	assert.Len(t, m.rows, 6)

	m, _ = send(t, m, keyMsg("g"))
	assert.Equal(t, 0, m.cursor)

	m, _ = send(t, m, keyMsg("tab"))
	assert.Equal(t, PaneDetail, m.activePane)
	m, _ = send(t, m, keyMsg("j"))
	assert.Equal(t, 0, m.cursor)

	m, cmd := send(t, m, keyMsg("q"))
	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
	assert.Empty(t, m.View())
}

func TestModelWindowResize(t *testing.T) {
	m := loadedModel(t, afero.NewMemMapFs())
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 60, Height: 8})
	assert.Equal(t, 2, m.treeHeight())

	m, _ = send(t, m, keyMsg("G"))
	assert.Equal(t, 4, m.offset)
	m, _ = send(t, m, keyMsg("g"))
	assert.Equal(t, 0, m.offset)
}

func TestModelSaveReport(t *testing.T) {
	fsys := afero.NewMemMapFs()
	m := loadedModel(t, fsys)

	m, cmd := send(t, m, keyMsg("s"))
	require.NotNil(t, cmd)
	assert.Equal(t, "Saving...", m.status)

	m, _ = send(t, m, cmd())
	assert.Equal(t, "Report saved to "+DefaultSavePath, m.status)

	data, err := afero.ReadFile(fsys, DefaultSavePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": "run-1"`)
}

func TestModelSaveReportError(t *testing.T) {
	m := loadedModel(t, afero.NewReadOnlyFs(afero.NewMemMapFs()))
	m, cmd := send(t, m, keyMsg("s"))
	m, _ = send(t, m, cmd())
	require.Error(t, m.err)
	assert.Contains(t, m.View(), "error:")
}
