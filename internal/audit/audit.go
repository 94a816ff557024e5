// Package audit wires graph resolution, scanning and reporting into one run.
package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/kluth/npm-code-auditter/internal/analyzer"
	"github.com/kluth/npm-code-auditter/internal/graph"
	"github.com/kluth/npm-code-auditter/internal/logging"
	"github.com/kluth/npm-code-auditter/internal/reporter"
	"github.com/kluth/npm-code-auditter/internal/scanner"
)

// Config holds the audit configuration.
type Config struct {
	Concurrency int
	MaxFileSize int64
	MinSeverity analyzer.Severity
	Logger      *slog.Logger
}

// Runner handles audit execution.
type Runner struct {
	cfg     Config
	fs      afero.Fs
	scanner *scanner.Scanner
	log     *slog.Logger
}

// NewRunner creates a new Runner reading projects from fsys.
func NewRunner(fsys afero.Fs, cfg Config) (*Runner, error) {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	s, err := scanner.New(fsys, scanner.Options{
		Concurrency: cfg.Concurrency,
		MaxFileSize: cfg.MaxFileSize,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, fs: fsys, scanner: s, log: cfg.Logger}, nil
}

// Run audits the project in projectDir: builds its dependency graph from the
// manifest and lockfile, maps every package to its install directory, scans
// each package once and summarizes the result. Any error aborts the run.
func (r *Runner) Run(ctx context.Context, projectDir string) (reporter.Report, error) {
	start := time.Now()
	dir, err := filepath.Abs(projectDir)
	if err != nil {
		return reporter.Report{}, fmt.Errorf("resolving project path: %w", err)
	}

	root, err := graph.Build(r.fs, dir)
	if err != nil {
		return reporter.Report{}, err
	}
	r.log.Debug("dependency graph built", "project", root.Key(), "direct", len(root.Children))

	resolved, err := graph.ResolvePaths(r.fs, root, dir, r.log)
	if err != nil {
		return reporter.Report{}, err
	}

	if err := r.scanner.ScanGraph(ctx, resolved); err != nil {
		return reporter.Report{}, err
	}

	if r.cfg.MinSeverity > analyzer.SeverityLow {
		for _, n := range graph.Distinct(resolved) {
			if n.Scanned() {
				n.Findings = analyzer.FilterByMinSeverity(n.Findings, r.cfg.MinSeverity)
			}
		}
	}

	report := reporter.NewReport(resolved, dir)
	r.log.Info("audit complete",
		"project", resolved.Key(),
		"packages", len(report.Entries),
		"findings", report.TotalFindings(),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return report, nil
}

// PrintRuleList prints every finding category with its severity.
func PrintRuleList(w io.Writer) {
	infos := analyzer.Categories()
	catW, sevW := len("CATEGORY"), len("SEVERITY")
	for _, info := range infos {
		if len(info.Category) > catW {
			catW = len(info.Category)
		}
		if len(info.Severity.String()) > sevW {
			sevW = len(info.Severity.String())
		}
	}
	fmt.Fprintf(w, "%-*s  %-*s  %s\n", catW, "CATEGORY", sevW, "SEVERITY", "DESCRIPTION")
	fmt.Fprintf(w, "%-*s  %-*s  %s\n", catW, strings.Repeat("-", catW), sevW, strings.Repeat("-", sevW), strings.Repeat("-", 40))
	for _, info := range infos {
		fmt.Fprintf(w, "%-*s  %-*s  %s\n", catW, info.Category, sevW, info.Severity, info.Description)
	}
	fmt.Fprintf(w, "\nTotal: %d rules\n", len(infos))
}
