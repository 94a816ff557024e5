package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"

	"github.com/kluth/npm-code-auditter/internal/reporter"
)

func loadReport(load Loader) tea.Cmd {
	return func() tea.Msg {
		if load == nil {
			return auditErrorMsg{err: fmt.Errorf("nothing to load")}
		}
		report, err := load(context.Background())
		if err != nil {
			return auditErrorMsg{err: err}
		}
		return auditCompleteMsg{report: report}
	}
}

func saveReport(fsys afero.Fs, report reporter.Report, path string) tea.Cmd {
	return func() tea.Msg {
		f, err := fsys.Create(path)
		if err != nil {
			return reportSaveErrorMsg{err: err}
		}
		if err := reporter.New(f, reporter.FormatJSON, true).Render(report); err != nil {
			f.Close()
			return reportSaveErrorMsg{err: err}
		}
		if err := f.Close(); err != nil {
			return reportSaveErrorMsg{err: err}
		}
		return reportSavedMsg{path: path}
	}
}
