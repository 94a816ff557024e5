// Package scanner runs the detector over the source files of every package in
// a resolved dependency graph.
package scanner

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/kluth/npm-code-auditter/internal/analyzer"
	"github.com/kluth/npm-code-auditter/internal/graph"
	"github.com/kluth/npm-code-auditter/internal/logging"
)

const (
	DefaultConcurrency = 8
	DefaultMaxFileSize = 4 << 20
	DefaultCacheSize   = 4096
)

// sourceExtensions are the file suffixes treated as JavaScript.
var sourceExtensions = []string{".js", ".cjs", ".mjs"}

// Options configures a Scanner. Zero values select the defaults; a negative
// MaxFileSize disables the size limit.
type Options struct {
	Concurrency int
	MaxFileSize int64
	CacheSize   int
	Tables      *analyzer.Tables
	Logger      *slog.Logger
}

// Scanner attaches findings to graph nodes.
type Scanner struct {
	fs       afero.Fs
	detector *analyzer.Detector
	cache    *lru.Cache[[sha256.Size]byte, []analyzer.Finding]
	opts     Options
	log      *slog.Logger
}

// New creates a Scanner reading from fsys.
func New(fsys afero.Fs, opts Options) (*Scanner, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.MaxFileSize == 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	tables := analyzer.DefaultTables()
	if opts.Tables != nil {
		tables = *opts.Tables
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	cache, err := lru.New[[sha256.Size]byte, []analyzer.Finding](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating detection cache: %w", err)
	}

	return &Scanner{
		fs:       fsys,
		detector: analyzer.NewDetector(tables),
		cache:    cache,
		opts:     opts,
		log:      log,
	}, nil
}

// SourceFiles lists the package's own JavaScript files under dir in lexical
// walk order. Nested node_modules directories belong to other packages and are
// not entered.
func (s *Scanner) SourceFiles(dir string) ([]string, error) {
	var files []string
	err := afero.Walk(s.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && info.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() || !isSource(path) {
			return nil
		}
		if s.opts.MaxFileSize > 0 && info.Size() > s.opts.MaxFileSize {
			s.log.Debug("skipping large file", "path", path, "size", info.Size(), "limit", s.opts.MaxFileSize)
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing sources in %s: %w", dir, err)
	}
	return files, nil
}

func isSource(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range sourceExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ScanFile runs the detector over one file. file is the id recorded on findings.
func (s *Scanner) ScanFile(ctx context.Context, path, file string) ([]analyzer.Finding, error) {
	src, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	key := sha256.Sum256(src)
	if cached, ok := s.cache.Get(key); ok {
		return restamp(cached, file), nil
	}

	findings, err := s.detector.ScanSource(ctx, src, file)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	s.cache.Add(key, findings)
	return findings, nil
}

// restamp copies cached findings and sets their file id.
func restamp(findings []analyzer.Finding, file string) []analyzer.Finding {
	out := make([]analyzer.Finding, len(findings))
	for i, f := range findings {
		f.File = file
		out[i] = f
	}
	return out
}

// ScanPackage returns the findings of every source file in the node's install
// directory, concatenated in file order. File ids are slash-separated paths
// relative to the install directory.
func (s *Scanner) ScanPackage(ctx context.Context, node *graph.Node) ([]analyzer.Finding, error) {
	if node.InstallPath == "" {
		return nil, fmt.Errorf("%s: %w: install path not resolved", node.Key(), graph.ErrPathResolution)
	}

	files, err := s.SourceFiles(node.InstallPath)
	if err != nil {
		return nil, err
	}

	findings := []analyzer.Finding{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(node.InstallPath, path)
		if err != nil {
			rel = path
		}
		ff, err := s.ScanFile(ctx, path, filepath.ToSlash(rel))
		if err != nil {
			return nil, err
		}
		findings = append(findings, ff...)
	}

	s.log.Debug("scanned package", "package", node.Key(), "files", len(files), "findings", len(findings))
	return findings, nil
}

// ScanGraph scans every distinct dependency reachable from root exactly once
// and stores the result on the node. The root is the project under audit and
// is not scanned. Findings are attached only when every package succeeded.
func (s *Scanner) ScanGraph(ctx context.Context, root *graph.Node) error {
	nodes := graph.Distinct(root)
	if len(nodes) > 0 && nodes[0] == root {
		nodes = nodes[1:]
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	results := make([][]analyzer.Finding, len(nodes))
	for i, n := range nodes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			findings, err := s.ScanPackage(gctx, n)
			if err != nil {
				return fmt.Errorf("scanning %s: %w", n.Key(), err)
			}
			results[i] = findings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, n := range nodes {
		n.Findings = results[i]
	}
	s.log.Info("scan complete", "packages", len(nodes))
	return nil
}
