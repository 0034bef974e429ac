// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/varibuild/varibuild/internal/issue"
	"github.com/varibuild/varibuild/internal/testutil"
	"github.com/varibuild/varibuild/pkg/types"
)

// runCLI executes the command tree with args and captures both streams.
func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var out, errOut bytes.Buffer
	app, err := NewApp(Dependencies{Stdout: &out, Stderr: &errOut})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err = root.ExecuteContext(t.Context())
	return out.String(), errOut.String(), err
}

// exitCode returns the code carried by err, or -1.
func exitCode(t *testing.T, err error) types.ExitCode {
	t.Helper()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T: %v", err, err)
	}
	return exitErr.Code
}

// variantTree is a single-project workspace with an ios variant.
var variantTree = testutil.Tree{
	"varibuild.cue":        "platforms: [\"ios\", \"android\"]\n",
	"src/App.ts":           "import { Button } from './Button';\nexport const App = Button;\n",
	"src/Button.ts":        "export const Button: string = 'base';\n",
	"src/Button.ios.ts":    "export const Button: string = 'ios';\n",
	"src/__tests__/App.ts": "import x from './nowhere';\n",
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2026-06-15T10:00:00Z"

		want := "v1.2.3 (commit: abc1234, built: 2026-06-15T10:00:00Z)"
		if got := getVersionString(); got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

func TestFormatErrorForDisplay(t *testing.T) {
	t.Parallel()

	ae := issue.NewErrorContext().
		WithOperation("build project").
		WithResource("core").
		WithSuggestion("Re-run with --verbose").
		Wrap(errors.New("2 of 5 file(s) failed")).
		BuildError()

	tests := []struct {
		name    string
		err     error
		verbose bool
		want    []string
		notWant []string
	}{
		{name: "plain error", err: errors.New("boom"), want: []string{"boom"}},
		{
			name:    "actionable",
			err:     ae,
			want:    []string{"failed to build project: core", "Re-run with --verbose"},
			notWant: []string{"Error chain"},
		},
		{name: "actionable verbose", err: ae, verbose: true, want: []string{"Error chain"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := formatErrorForDisplay(tt.err, tt.verbose)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output missing %q:\n%s", w, got)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("output unexpectedly contains %q:\n%s", w, got)
				}
			}
		})
	}
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	app, err := NewApp(Dependencies{})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	var names []string
	for _, c := range NewRootCommand(app).Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"build", "config", "plan", "resolve"} {
		if !slices.Contains(names, want) {
			t.Errorf("missing subcommand %q in %v", want, names)
		}
	}
}

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want types.ExitCode
	}{
		{name: "plain", err: errors.New("x"), want: types.ExitBuildFailed},
		{name: "config invalid", err: issue.NewErrorContext().WithOperation("load").WithIssue(issue.ConfigInvalidId).BuildError(), want: types.ExitUsage},
		{name: "cycle", err: issue.NewErrorContext().WithOperation("order").WithIssue(issue.DependencyCycleId).BuildError(), want: types.ExitUsage},
		{name: "build failed", err: issue.NewErrorContext().WithOperation("build").WithIssue(issue.BuildFailedId).BuildError(), want: types.ExitBuildFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor() = %d, want %d", got, tt.want)
			}
		})
	}
}
