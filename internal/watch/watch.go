// Package watch re-runs an action when a project's dependency inputs change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kluth/npm-code-auditter/internal/logging"
	"github.com/kluth/npm-code-auditter/internal/project"
)

// DefaultDebounce is the quiet period after the last event before a rerun.
const DefaultDebounce = 500 * time.Millisecond

const nodeModules = "node_modules"

// Watcher observes package.json, package-lock.json and the node_modules
// directory of one project.
type Watcher struct {
	dir      string
	debounce time.Duration
	fsw      *fsnotify.Watcher
	log      *slog.Logger
}

// New starts watching dir. Watches are registered before New returns, so no
// change made afterwards is missed. The caller must Close the watcher.
func New(dir string, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logging.Discard()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving watch path: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch init failed: %w", err)
	}
	if err := fsw.Add(abs); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", abs, err)
	}
	w := &Watcher{dir: abs, debounce: debounce, fsw: fsw, log: log}
	w.addNodeModules()
	return w, nil
}

// Close releases the underlying watches.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// addNodeModules watches node_modules if it exists. Package directories
// appearing or disappearing there are enough to detect an install.
func (w *Watcher) addNodeModules() {
	nm := filepath.Join(w.dir, nodeModules)
	if err := w.fsw.Add(nm); err != nil {
		w.log.Debug("node_modules not watched", "path", nm, "error", err)
	}
}

// relevant reports whether ev touches a dependency input.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	parent := filepath.Dir(ev.Name)
	if parent == filepath.Join(w.dir, nodeModules) {
		return true
	}
	if parent != w.dir {
		return false
	}
	switch filepath.Base(ev.Name) {
	case project.ManifestFile, project.LockFile, nodeModules:
		return true
	}
	return false
}

// Run calls onChange once per burst of relevant events until ctx is done.
// onChange runs on the calling goroutine, so runs never overlap.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context)) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			if filepath.Base(ev.Name) == nodeModules && ev.Has(fsnotify.Create) {
				w.addNodeModules()
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		case <-timer.C:
			onChange(ctx)
		}
	}
}
