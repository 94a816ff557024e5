package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.detailView.Width = m.detailWidth() - 4
		m.detailView.Height = max(m.height-6, 1)
		m.scrollToCursor()
		return m, nil

	case tea.KeyMsg:
		// Global quit
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case auditCompleteMsg:
		m.setReport(msg.report)
		return m, nil

	case auditErrorMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case reportSavedMsg:
		m.status = "Report saved to " + msg.path
		return m, nil

	case reportSaveErrorMsg:
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.loading || m.report == nil {
		return m, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "tab", "shift+tab":
		m.activePane = (m.activePane + 1) % 2
		return m, nil
	case "s":
		m.status = "Saving..."
		return m, saveReport(m.fs, *m.report, m.savePath)
	}

	if m.activePane == PaneDetail {
		var cmd tea.Cmd
		m.detailView, cmd = m.detailView.Update(msg)
		return m, cmd
	}
	return m.updateTree(key)
}

func (m Model) updateTree(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "up", "k":
		m.cursor = clamp(m.cursor-1, 0, len(m.rows)-1)
	case "down", "j":
		m.cursor = clamp(m.cursor+1, 0, len(m.rows)-1)
	case "pgup":
		m.cursor = clamp(m.cursor-m.treeHeight(), 0, len(m.rows)-1)
	case "pgdown":
		m.cursor = clamp(m.cursor+m.treeHeight(), 0, len(m.rows)-1)
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = len(m.rows) - 1
	case "enter", " ", "space":
		if r, ok := m.selected(); ok && !r.dedup && len(r.node.Children) > 0 {
			m.collapsed[r.id] = !m.collapsed[r.id]
		}
	default:
		return m, nil
	}
	m.refreshRows()
	return m, nil
}
