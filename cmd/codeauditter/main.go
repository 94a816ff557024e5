package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kluth/npm-code-auditter/internal/analyzer"
	"github.com/kluth/npm-code-auditter/internal/audit"
	"github.com/kluth/npm-code-auditter/internal/logging"
	"github.com/kluth/npm-code-auditter/internal/policy"
	"github.com/kluth/npm-code-auditter/internal/reporter"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// options holds the resolved settings of one invocation.
type options struct {
	format      string
	jsonOutput  bool
	minSeverity string
	failOn      string
	outputFile  string
	concurrency int
	maxFileSize int64
	verbose     bool
	quiet       bool
	logLevel    string
	listRules   bool

	policy *policy.Policy

	stdout io.Writer
	stderr io.Writer
}

func main() {
	reporter.ToolVersion = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code. Errors are
// reported on stderr since the root command silences cobra's own printing.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintln(stderr, exitErr.Message)
		return exitErr.Code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "codeauditter [project-dir]",
		Short: "Statically audit the installed code of an npm project's dependencies",
		Long: fmt.Sprintf(`codeauditter reads package.json and package-lock.json, maps every
dependency to its directory under node_modules and scans the JavaScript it
ships for risky patterns: network and filesystem modules, child processes,
eval and Function, dynamic or obfuscated require, and environment access.

Nothing is executed and nothing is fetched from the network.

Build Info: Commit %s, Date %s

Examples:
  codeauditter .
  codeauditter scan ./app --format json --output report.json
  codeauditter scan --severity high --fail-on high
  codeauditter tree ./app
  codeauditter watch ./app`, commit, date),
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, opts, args)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.format, "format", "f", reporter.FormatTerminal, "output format (terminal, json, markdown, sarif, pdf)")
	flags.BoolVar(&opts.jsonOutput, "json", false, "output results as JSON (alias for --format json)")
	flags.StringVarP(&opts.minSeverity, "severity", "s", "", "minimum severity to report (low, medium, high, critical)")
	flags.StringVar(&opts.failOn, "fail-on", "", "exit with code 2 if any finding meets/exceeds severity (low, medium, high, critical)")
	flags.StringVarP(&opts.outputFile, "output", "o", "", "write report to file instead of stdout")
	flags.IntVarP(&opts.concurrency, "concurrency", "c", 8, "max number of packages scanned in parallel")
	flags.Int64Var(&opts.maxFileSize, "max-file-size", 0, "skip source files larger than this many bytes (0 = 4 MiB, negative = unlimited)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output (show all individual findings)")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress progress messages to stderr")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&opts.listRules, "list-rules", false, "list all detection rules and exit")

	rootCmd.AddCommand(
		newScanCmd(opts),
		newTreeCmd(opts),
		newWatchCmd(opts),
		newMcpCmd(opts),
	)
	return rootCmd
}

func newScanCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [project-dir]",
		Short: "Scan a project and print the report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, opts, args)
		},
	}
	cmd.Flags().BoolVar(&opts.listRules, "list-rules", false, "list all detection rules and exit")
	return cmd
}

// ExitError signals a non-standard exit code (e.g., 2 for --fail-on).
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

func (o *options) progressf(format string, a ...any) {
	if !o.quiet {
		fmt.Fprintf(o.stderr, format, a...)
	}
}

func (o *options) logger() *slog.Logger {
	return logging.New(o.stderr, logging.LevelFromFlags(o.logLevel, o.verbose, o.quiet))
}

func (o *options) newRunner() (*audit.Runner, error) {
	sev, err := o.resolveMinSeverity()
	if err != nil {
		return nil, err
	}
	return audit.NewRunner(afero.NewOsFs(), audit.Config{
		Concurrency: o.concurrency,
		MaxFileSize: o.maxFileSize,
		MinSeverity: sev,
		Logger:      o.logger(),
	})
}

func (o *options) resolveMinSeverity() (analyzer.Severity, error) {
	if o.minSeverity == "" {
		return analyzer.SeverityLow, nil
	}
	return analyzer.ParseSeverity(o.minSeverity)
}

func projectDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func runScan(cmd *cobra.Command, opts *options, args []string) error {
	if err := loadConfiguration(cmd, opts); err != nil {
		return err
	}
	if opts.listRules {
		audit.PrintRuleList(opts.stdout)
		return nil
	}

	runner, err := opts.newRunner()
	if err != nil {
		return err
	}

	dir := projectDir(args)
	opts.progressf("Scanning %s...\n", dir)
	report, err := runner.Run(cmd.Context(), dir)
	if err != nil {
		return err
	}

	if err := opts.render(report); err != nil {
		return err
	}

	if opts.failOn != "" {
		if err := checkFailOn(report, opts.failOn); err != nil {
			return err
		}
	}
	return checkPolicy(opts, report)
}

func (o *options) render(report reporter.Report) error {
	out, cleanup, err := o.resolveOutput()
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}
	return reporter.New(out, o.format, o.verbose).Render(report)
}

func (o *options) resolveOutput() (io.Writer, func(), error) {
	if o.outputFile == "" {
		return o.stdout, nil, nil
	}
	f, err := os.Create(o.outputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func checkFailOn(report reporter.Report, threshold string) error {
	sev, err := analyzer.ParseSeverity(threshold)
	if err != nil {
		return err
	}
	for _, f := range report.Findings() {
		if f.Severity >= sev {
			return &ExitError{
				Code:    2,
				Message: fmt.Sprintf("findings at or above %q severity detected", threshold),
			}
		}
	}
	return nil
}

func checkPolicy(opts *options, report reporter.Report) error {
	if opts.policy == nil || opts.policy.Empty() {
		return nil
	}
	violations := policy.Evaluate(&report, opts.policy)
	if len(violations) == 0 {
		return nil
	}
	fmt.Fprintln(opts.stderr, "\nPolicy Violations Detected:")
	for _, v := range violations {
		fmt.Fprintf(opts.stderr, " - %s\n", v)
	}
	return &ExitError{Code: 3, Message: "Policy check failed"}
}
