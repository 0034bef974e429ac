// SPDX-License-Identifier: MPL-2.0

// Package watch triggers rebuilds when source files change.
//
// A Watcher monitors a directory tree and reports changed files matching
// the build's include patterns after a quiet period. Events inside the
// debounce window are coalesced into one callback, and callbacks never
// overlap: changes arriving during a rebuild are delivered once it ends.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 300 * time.Millisecond

// ErrInvalidPattern is the sentinel error wrapped by InvalidPatternError.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// defaultIgnores are never watched: VCS metadata, installed packages and
// editor or OS scratch files.
var defaultIgnores = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/*.swp",
	"**/*~",
	"**/.DS_Store",
}

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// BaseDir is the watched root; the working directory when empty.
		BaseDir string
		// Patterns select the files that trigger a rebuild, relative to
		// BaseDir. An empty list matches every non-ignored file.
		Patterns []string
		// Ignore lists patterns that never trigger, typically the build's
		// exclude list and output directory. Merged with the defaults.
		Ignore []string
		// Debounce is the quiet period before OnChange fires. Non-positive
		// values use the default.
		Debounce time.Duration
		// OnChange receives the sorted, deduplicated changed paths relative
		// to BaseDir. Errors are logged and watching continues.
		OnChange func(ctx context.Context, changed []string) error
		// Logger receives watcher diagnostics; nil discards them.
		Logger *log.Logger
	}

	// InvalidPatternError reports a malformed glob.
	InvalidPatternError struct {
		Label   string
		Pattern string
		Err     error
	}

	// Watcher monitors a tree and fires debounced callbacks. Run must be
	// called exactly once.
	Watcher struct {
		cfg     Config
		fsw     *fsnotify.Watcher
		ignores []string
		baseDir string
		logger  *log.Logger
		started atomic.Bool
	}
)

// Error implements the error interface.
func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid %s pattern %q: %v", e.Label, e.Pattern, e.Err)
}

// Unwrap returns ErrInvalidPattern and the doublestar error.
func (e *InvalidPatternError) Unwrap() []error { return []error{ErrInvalidPattern, e.Err} }

// Validate checks every pattern. All invalid patterns are reported.
func (c Config) Validate() error {
	var errs []error
	errs = append(errs, validatePatterns(c.Patterns, "watch")...)
	errs = append(errs, validatePatterns(c.Ignore, "ignore")...)
	return errors.Join(errs...)
}

// New creates a Watcher and registers every non-ignored directory under
// BaseDir.
func New(cfg Config) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseDir := cfg.BaseDir
	if baseDir == "" {
		baseDir = "."
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve base directory: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:     cfg,
		fsw:     fsw,
		ignores: append(DefaultIgnores(), cfg.Ignore...),
		baseDir: absBase,
		logger:  logger,
	}
	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("close after init failure", "error", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is cancelled. It returns nil on
// cancellation and an error when the underlying watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	debounce := w.cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	b := newBatcher(debounce, func(changed []string) {
		if ctx.Err() != nil || w.cfg.OnChange == nil {
			return
		}
		if err := w.cfg.OnChange(ctx, changed); err != nil {
			w.logger.Error("rebuild failed", "error", err)
		}
	})

	defer func() {
		b.stop()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close fsnotify", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed unexpectedly")
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}
			if rel, ok := w.relevant(evt.Name); ok {
				w.logger.Debug("change", "path", rel, "op", evt.Op.String())
				b.add(rel)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// relevant returns the path relative to BaseDir when it should trigger.
func (w *Watcher) relevant(name string) (string, bool) {
	rel, err := filepath.Rel(w.baseDir, name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if matchAny(w.ignores, rel) {
		return "", false
	}
	if len(w.cfg.Patterns) > 0 && !matchAny(w.cfg.Patterns, rel) {
		return "", false
	}
	return rel, true
}

func (w *Watcher) addDirectories() error {
	err := filepath.WalkDir(w.baseDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "error", walkErr)
			return nil //nolint:nilerr // unreadable directories are skipped
		}
		if !d.IsDir() {
			return nil
		}
		if w.dirIgnored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk directory tree: %w", err)
	}
	return nil
}

// maybeAddDir extends the watch to directories created after startup.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || w.dirIgnored(path) {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("add new directory", "path", path, "error", err)
	}
}

func (w *Watcher) dirIgnored(path string) bool {
	rel, err := filepath.Rel(w.baseDir, path)
	if err != nil {
		return true
	}
	rel = filepath.ToSlash(rel)
	return rel != "." && (matchAny(w.ignores, rel) || matchAny(w.ignores, rel+"/"))
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return append([]string{}, defaultIgnores...)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func validatePatterns(patterns []string, label string) []error {
	var errs []error
	for _, pat := range patterns {
		if pat == "" {
			errs = append(errs, &InvalidPatternError{Label: label, Pattern: pat, Err: doublestar.ErrBadPattern})
			continue
		}
		if !doublestar.ValidatePattern(pat) {
			errs = append(errs, &InvalidPatternError{Label: label, Pattern: pat, Err: doublestar.ErrBadPattern})
		}
	}
	return errs
}
