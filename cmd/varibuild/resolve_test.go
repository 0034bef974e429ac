// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/varibuild/varibuild/internal/testutil"
	"github.com/varibuild/varibuild/pkg/types"
)

func TestResolveCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		platform string
		want     string
		notWant  string
	}{
		{platform: "ios", want: filepath.Join("src", "Button.ios.ts")},
		{platform: "android", want: filepath.Join("src", "Button.ts"), notWant: "Button.ios.ts"},
	}

	for _, tt := range tests {
		t.Run(tt.platform, func(t *testing.T) {
			t.Parallel()

			dir := testutil.MustWriteOSTree(t, variantTree)
			stdout, stderr, err := runCLI(t, "resolve", "./Button", "--dir", dir, "--from", "src/App.ts", "-p", tt.platform)
			if err != nil {
				t.Fatalf("resolve error = %v\nstderr: %s", err, stderr)
			}
			if !strings.Contains(stdout, tt.want) {
				t.Errorf("stdout missing %q:\n%s", tt.want, stdout)
			}
			if tt.notWant != "" && strings.Contains(stdout, tt.notWant) {
				t.Errorf("stdout unexpectedly contains %q:\n%s", tt.notWant, stdout)
			}
		})
	}
}

func TestResolveCommand_Trace(t *testing.T) {
	t.Parallel()

	dir := testutil.MustWriteOSTree(t, variantTree)
	stdout, _, err := runCLI(t, "resolve", "./Button", "--dir", dir, "--from", "src/App.ts", "-p", "android", "--trace")
	if err != nil {
		t.Fatalf("resolve error = %v", err)
	}
	// android probes its own suffix before falling back to the base file.
	probeAndroid := strings.Index(stdout, "Button.android.")
	found := strings.Index(stdout, "✓ "+filepath.Join(dir, "src", "Button.ts"))
	if probeAndroid < 0 || found < 0 || probeAndroid > found {
		t.Errorf("unexpected trace:\n%s", stdout)
	}
}

func TestResolveCommand_Unresolved(t *testing.T) {
	t.Parallel()

	dir := testutil.MustWriteOSTree(t, variantTree)
	_, stderr, err := runCLI(t, "resolve", "./Nope", "--dir", dir, "--from", "src/App.ts")
	if got := exitCode(t, err); got != types.ExitBuildFailed {
		t.Errorf("exit code = %d, want %d", got, types.ExitBuildFailed)
	}
	if !strings.Contains(stderr, "no matching file") {
		t.Errorf("stderr = %s", stderr)
	}
}

func TestResolveCommand_RequiresFrom(t *testing.T) {
	t.Parallel()

	if _, _, err := runCLI(t, "resolve", "./Button"); err == nil {
		t.Error("resolve without --from should fail")
	}
}
