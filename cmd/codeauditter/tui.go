package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kluth/npm-code-auditter/internal/reporter"
	"github.com/kluth/npm-code-auditter/internal/tui"
)

func newTreeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tree [project-dir]",
		Short: "Browse the scanned dependency tree interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfiguration(cmd, opts); err != nil {
				return err
			}
			// Logs would corrupt the full-screen view.
			opts.quiet, opts.verbose, opts.logLevel = true, false, ""
			runner, err := opts.newRunner()
			if err != nil {
				return err
			}
			dir := projectDir(args)
			load := func(ctx context.Context) (reporter.Report, error) {
				return runner.Run(ctx, dir)
			}
			return runTUI(cmd.Context(), load)
		},
	}
}

// runTUI launches the full-screen Bubble Tea application.
func runTUI(ctx context.Context, load tui.Loader) error {
	m := tui.NewModel(load, afero.NewOsFs())
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
