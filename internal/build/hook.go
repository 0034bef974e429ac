// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ErrHookFailed is the sentinel error wrapped by HookError.
var ErrHookFailed = errors.New("build hook failed")

type (
	// Hook is a shell snippet run around a project build by the embedded
	// POSIX shell, so hooks behave the same on every OS.
	Hook struct {
		// Name identifies the hook in errors, e.g. "pre_build".
		Name string
		// Script is the shell source.
		Script string
		// Dir is the working directory.
		Dir string
		// Env is the complete environment in KEY=value form.
		Env    []string
		Stdout io.Writer
		Stderr io.Writer
	}

	// HookError reports a hook that failed to parse or exited non-zero.
	HookError struct {
		Name string
		// ExitCode is the exit status; zero when the hook did not run.
		ExitCode int
		Err      error
	}
)

// Error implements the error interface.
func (e *HookError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hook %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("hook %s: exit status %d", e.Name, e.ExitCode)
}

// Unwrap returns ErrHookFailed and the cause.
func (e *HookError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrHookFailed}
	}
	return []error{ErrHookFailed, e.Err}
}

// Run executes the hook. An empty script is a no-op.
func (h Hook) Run(ctx context.Context) error {
	if strings.TrimSpace(h.Script) == "" {
		return nil
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(h.Script), h.Name)
	if err != nil {
		return &HookError{Name: h.Name, Err: fmt.Errorf("parse: %w", err)}
	}

	stdout, stderr := h.Stdout, h.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	runner, err := interp.New(
		interp.Dir(h.Dir),
		interp.Env(expand.ListEnviron(h.Env...)),
		interp.StdIO(nil, stdout, stderr),
	)
	if err != nil {
		return &HookError{Name: h.Name, Err: fmt.Errorf("create interpreter: %w", err)}
	}

	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return &HookError{Name: h.Name, ExitCode: int(status)}
		}
		return &HookError{Name: h.Name, Err: err}
	}
	return nil
}
