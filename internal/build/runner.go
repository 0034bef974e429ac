// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/varibuild/varibuild/internal/throttle"
	"github.com/varibuild/varibuild/internal/writebatch"
	"github.com/varibuild/varibuild/pkg/multiplex"
	"github.com/varibuild/varibuild/pkg/resolve"
	"github.com/varibuild/varibuild/pkg/types"
)

// ErrTaskFailed is the sentinel error wrapped by TaskFailedError.
var ErrTaskFailed = errors.New("build task failed")

type (
	// Runner executes build tasks. One Runner, and so one throttle, is
	// shared by every task of a build invocation.
	Runner struct {
		fs        afero.Fs
		throttler *throttle.Throttler
		factory   CompilerFactory
		contexts  map[types.PlatformName]*resolve.Context
		logger    *slog.Logger
	}

	// RunnerOptions configures NewRunner.
	RunnerOptions struct {
		// Fs receives the output writes.
		Fs afero.Fs
		// Throttler bounds concurrent writes across all tasks.
		Throttler *throttle.Throttler
		// Factory creates the compiler of each task.
		Factory CompilerFactory
		// Contexts maps each platform to its resolution context. The
		// platform-agnostic task uses the entry for "".
		Contexts map[types.PlatformName]*resolve.Context
		Logger   *slog.Logger
	}

	// TaskResult summarizes one finished task. Emitted and Checked count
	// the processed files of each set, failed ones included.
	TaskResult struct {
		Platform types.PlatformName
		Emitted  int
		Checked  int
		Failed   int
		Writes   writebatch.RoundStats
		Duration time.Duration
	}

	// TaskFailedError is returned when files of a task failed to compile.
	TaskFailedError struct {
		Platform types.PlatformName
		// Failures holds one error per failed file.
		Failures []error
		// Total is the number of files the task processed.
		Total int
	}
)

// NewRunner creates a Runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	t := opts.Throttler
	if t == nil {
		t = throttle.New(throttle.DefaultMaxActive)
	}
	return &Runner{
		fs:        opts.Fs,
		throttler: t,
		factory:   opts.Factory,
		contexts:  opts.Contexts,
		logger:    logger,
	}
}

// Error implements the error interface.
func (e *TaskFailedError) Error() string {
	name := string(e.Platform)
	if name == "" {
		name = "default"
	}
	return fmt.Sprintf("platform %s: %d of %d file(s) failed", name, len(e.Failures), e.Total)
}

// Unwrap returns ErrTaskFailed followed by the per-file errors.
func (e *TaskFailedError) Unwrap() []error {
	return append([]error{ErrTaskFailed}, e.Failures...)
}

// RunTask compiles every file of task, emit set first, then waits for the
// task's writes. A failing file never stops the others; failures are
// reported together once the whole task has been processed.
func (r *Runner) RunTask(ctx context.Context, task *multiplex.BuildTask) (TaskResult, error) {
	start := time.Now()
	result := TaskResult{Platform: task.Platform}
	logger := r.logger.With("platform", string(task.Platform))

	batch := writebatch.New(r.fs, r.throttler)
	compiler, err := r.factory(task, r.contexts[task.Platform], batch)
	if err != nil {
		return result, fmt.Errorf("create compiler: %w", err)
	}

	var failures []error
	run := func(file string, op func(context.Context, string) error) bool {
		if ctx.Err() != nil {
			return false
		}
		if err := op(ctx, file); err != nil {
			if ctx.Err() != nil {
				return false
			}
			logger.Warn("file failed", "file", file, "error", err)
			failures = append(failures, err)
			result.Failed++
		}
		return true
	}

	for file := range task.FilesToEmit.All() {
		if !run(file, compiler.Emit) {
			break
		}
		result.Emitted++
	}
	for file := range task.FilesToCheck.All() {
		if !run(file, compiler.Check) {
			break
		}
		result.Checked++
	}

	stats, writeErr := batch.Finish(ctx)
	result.Writes = stats
	result.Duration = time.Since(start)
	logger.Debug("task finished",
		"emitted", result.Emitted,
		"checked", result.Checked,
		"failed", result.Failed,
		"written", stats.Written,
		"duration", result.Duration)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	var taskErr error
	if len(failures) > 0 {
		taskErr = &TaskFailedError{
			Platform: task.Platform,
			Failures: failures,
			Total:    task.FilesToEmit.Len() + task.FilesToCheck.Len(),
		}
	}
	return result, errors.Join(taskErr, writeErr)
}

// RunAll runs the tasks concurrently and waits for all of them. The
// returned results are in task order; the error joins every task's error.
func (r *Runner) RunAll(ctx context.Context, tasks []*multiplex.BuildTask) ([]TaskResult, error) {
	results := make([]TaskResult, len(tasks))
	errs := make([]error, len(tasks))

	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() error {
			results[i], errs[i] = r.RunTask(ctx, task)
			// Returning the error would only keep the first one, and a
			// group context would cancel the sibling platforms. Each
			// slot keeps its own error and they are joined below.
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}

// Throttler returns the shared write throttle.
func (r *Runner) Throttler() *throttle.Throttler { return r.throttler }
