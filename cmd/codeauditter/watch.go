package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kluth/npm-code-auditter/internal/audit"
	"github.com/kluth/npm-code-auditter/internal/watch"
)

func newWatchCmd(opts *options) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch [project-dir]",
		Short: "Rescan whenever package.json, package-lock.json or node_modules change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfiguration(cmd, opts); err != nil {
				return err
			}
			runner, err := opts.newRunner()
			if err != nil {
				return err
			}
			dir := projectDir(args)

			w, err := watch.New(dir, debounce, opts.logger())
			if err != nil {
				return err
			}
			defer w.Close()

			rescan(cmd.Context(), opts, runner, dir)
			opts.progressf("Watching %s for changes (Ctrl+C to stop)\n", dir)
			return w.Run(cmd.Context(), func(ctx context.Context) {
				rescan(ctx, opts, runner, dir)
			})
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period after the last change before rescanning")
	return cmd
}

// rescan runs one audit and reports it. Errors are printed, not returned, so
// a half-finished install does not stop the watch.
func rescan(ctx context.Context, opts *options, runner *audit.Runner, dir string) {
	opts.progressf("[%s] Scanning %s...\n", time.Now().Format(time.TimeOnly), dir)
	report, err := runner.Run(ctx, dir)
	if err != nil {
		if ctx.Err() == nil {
			fmt.Fprintf(opts.stderr, "scan failed: %v\n", err)
		}
		return
	}
	if err := opts.render(report); err != nil {
		fmt.Fprintf(opts.stderr, "rendering report: %v\n", err)
		return
	}
	if opts.failOn != "" {
		if err := checkFailOn(report, opts.failOn); err != nil {
			fmt.Fprintln(opts.stderr, err)
		}
	}
	if err := checkPolicy(opts, report); err != nil {
		fmt.Fprintln(opts.stderr, err)
	}
}
