// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/varibuild/varibuild/internal/writebatch"
	"github.com/varibuild/varibuild/pkg/multiplex"
	"github.com/varibuild/varibuild/pkg/resolve"
)

var (
	// ErrCompileFailed is the sentinel error wrapped by FileError.
	ErrCompileFailed = errors.New("compile failed")
	// ErrUnresolvedImport is the sentinel error wrapped by UnresolvedImportError.
	ErrUnresolvedImport = errors.New("unresolved import")
)

type (
	// Compiler checks and emits single files for one build task.
	// Implementations report per-file failures as errors; the caller
	// counts them and keeps going.
	Compiler interface {
		// Check type-checks file without producing output.
		Check(ctx context.Context, file string) error
		// Emit checks file and writes its output.
		Emit(ctx context.Context, file string) error
	}

	// CompilerFactory creates the Compiler of one task. Output must be
	// written through out.
	CompilerFactory func(task *multiplex.BuildTask, rc *resolve.Context, out *writebatch.Batch) (Compiler, error)

	// Diagnostic is one problem found in a file. Line is 1-based, Column
	// 0-based; both are zero when unknown.
	Diagnostic struct {
		Line   int
		Column int
		Text   string
		Err    error
	}

	// FileError reports the diagnostics of one file.
	FileError struct {
		File        string
		Diagnostics []Diagnostic
	}

	// UnresolvedImportError reports an import the resolver could not map.
	UnresolvedImportError struct {
		Specifier string
		Reason    resolve.FailureReason
	}
)

// Error implements the error interface.
func (e *FileError) Error() string {
	var sb strings.Builder
	for i, d := range e.Diagnostics {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(e.File)
		if d.Line > 0 {
			fmt.Fprintf(&sb, ":%d:%d", d.Line, d.Column)
		}
		sb.WriteString(": ")
		sb.WriteString(d.Text)
	}
	if len(e.Diagnostics) == 0 {
		sb.WriteString(e.File + ": compile failed")
	}
	return sb.String()
}

// Unwrap returns ErrCompileFailed followed by the diagnostic causes.
func (e *FileError) Unwrap() []error {
	errs := []error{ErrCompileFailed}
	for _, d := range e.Diagnostics {
		if d.Err != nil {
			errs = append(errs, d.Err)
		}
	}
	return errs
}

// Error implements the error interface.
func (e *UnresolvedImportError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %s", e.Specifier, e.Reason)
}

// Unwrap returns ErrUnresolvedImport for errors.Is() compatibility.
func (e *UnresolvedImportError) Unwrap() error { return ErrUnresolvedImport }
