// SPDX-License-Identifier: MPL-2.0

// Package writebatch groups file writes into awaitable rounds executed
// through a shared throttle.Throttler.
package writebatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/varibuild/varibuild/internal/throttle"
)

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// ErrWriteFailed is the sentinel error wrapped by WriteError.
var ErrWriteFailed = errors.New("write failed")

type (
	// Batch collects writes submitted between two Finish calls. Write may be
	// called from several goroutines.
	Batch struct {
		fs        afero.Fs
		throttler *throttle.Throttler

		mu      sync.Mutex
		queued  int
		written int
		errs    []error
		pending []*throttle.Pending
		// dirs holds every directory already ensured; it survives rounds.
		dirs map[string]struct{}
	}

	// RoundStats summarizes one finished round.
	RoundStats struct {
		Queued  int
		Written int
	}

	// WriteError reports a single failed write.
	WriteError struct {
		Path string
		Err  error
	}

	// WriteErrors aggregates the failures of one round.
	WriteErrors struct {
		Errs []error
	}
)

// New returns a Batch writing to fs through t.
func New(fs afero.Fs, t *throttle.Throttler) *Batch {
	return &Batch{
		fs:        fs,
		throttler: t,
		dirs:      make(map[string]struct{}),
	}
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

// Unwrap returns ErrWriteFailed and the underlying error.
func (e *WriteError) Unwrap() []error { return []error{ErrWriteFailed, e.Err} }

// Error implements the error interface.
func (e *WriteErrors) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d writes failed:\n  %s", len(e.Errs), strings.Join(msgs, "\n  "))
}

// Unwrap returns the individual write errors.
func (e *WriteErrors) Unwrap() []error { return e.Errs }

// Write queues content to be written to name. The parent directory is
// created before Write returns, once per distinct directory. Failures are
// reported by Finish.
func (b *Batch) Write(name string, content []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.queued++
	if err := b.ensureDirLocked(filepath.Dir(name)); err != nil {
		b.errs = append(b.errs, &WriteError{Path: name, Err: err})
		return
	}

	// Run never blocks, so submitting under the lock keeps pending in
	// submission order.
	b.pending = append(b.pending, b.throttler.Run(func() error {
		err := afero.WriteFile(b.fs, name, content, filePerm)

		b.mu.Lock()
		defer b.mu.Unlock()
		if err != nil {
			b.errs = append(b.errs, &WriteError{Path: name, Err: err})
			return err
		}
		b.written++
		return nil
	}))
}

func (b *Batch) ensureDirLocked(dir string) error {
	if _, ok := b.dirs[dir]; ok {
		return nil
	}
	if err := b.fs.MkdirAll(dir, dirPerm); err != nil {
		return err
	}
	b.dirs[dir] = struct{}{}
	return nil
}

// Finish waits for every write queued before the call, then resets the
// counters so the batch can be reused. It returns the single write error,
// a *WriteErrors when several writes failed, or ctx.Err() when ctx ends
// first. A round with nothing queued finishes immediately.
func (b *Batch) Finish(ctx context.Context) (RoundStats, error) {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	for i, p := range pending {
		select {
		case <-p.Done():
		case <-ctx.Done():
			b.mu.Lock()
			b.pending = append(pending[i:], b.pending...)
			b.mu.Unlock()
			return RoundStats{}, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	stats := RoundStats{Queued: b.queued, Written: b.written}
	errs := b.errs
	b.queued, b.written, b.errs = 0, 0, nil

	switch len(errs) {
	case 0:
		return stats, nil
	case 1:
		return stats, errs[0]
	default:
		return stats, &WriteErrors{Errs: errs}
	}
}
