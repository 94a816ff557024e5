// Package tui is an interactive browser for a scanned dependency graph.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"

	"github.com/kluth/npm-code-auditter/internal/aggregate"
	"github.com/kluth/npm-code-auditter/internal/graph"
	"github.com/kluth/npm-code-auditter/internal/reporter"
)

// Pane identifies which part of the screen is focused.
type Pane int

const (
	PaneTree Pane = iota
	PaneDetail
)

// Loader produces the report to browse, typically by running an audit.
type Loader func(ctx context.Context) (reporter.Report, error)

// DefaultSavePath is where "s" writes the JSON report.
const DefaultSavePath = "codeauditter-report.json"

// Model is the top-level Bubble Tea model.
type Model struct {
	load     Loader
	fs       afero.Fs
	savePath string

	width    int
	height   int
	quitting bool
	err      error
	loading  bool
	status   string

	report     *reporter.Report
	transitive map[*graph.Node]int
	collapsed  map[string]bool
	rows       []row
	cursor     int
	offset     int
	activePane Pane

	spinner    spinner.Model
	detailView viewport.Model
}

// Messages
type auditCompleteMsg struct{ report reporter.Report }
type auditErrorMsg struct{ err error }
type reportSavedMsg struct{ path string }
type reportSaveErrorMsg struct{ err error }

// NewModel returns a model that runs load on start and shows a spinner until
// the report arrives. Reports are saved to fsys.
func NewModel(load Loader, fsys afero.Fs) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	return Model{
		load:       load,
		fs:         fsys,
		savePath:   DefaultSavePath,
		width:      100,
		height:     30,
		loading:    true,
		collapsed:  map[string]bool{},
		spinner:    sp,
		detailView: viewport.New(50, 20),
	}
}

// Init starts the spinner and the audit.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadReport(m.load))
}

// setReport installs a finished report and resets the view onto it.
func (m *Model) setReport(report reporter.Report) {
	m.report = &report
	m.loading = false
	m.transitive = make(map[*graph.Node]int)
	for _, n := range graph.Distinct(report.Root) {
		m.transitive[n] = aggregate.TransitiveCount(n)
	}
	m.cursor, m.offset = 0, 0
	m.refreshRows()
}

func (m *Model) refreshRows() {
	if m.report == nil {
		return
	}
	m.rows = flattenTree(m.report.Root, m.collapsed)
	m.cursor = clamp(m.cursor, 0, len(m.rows)-1)
	m.scrollToCursor()
	m.detailView.SetContent(m.renderDetail())
	m.detailView.GotoTop()
}

// treeHeight is the number of tree rows that fit on screen.
func (m Model) treeHeight() int {
	return max(m.height-6, 1)
}

func (m *Model) scrollToCursor() {
	h := m.treeHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}

func (m Model) selected() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

// helpers

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
