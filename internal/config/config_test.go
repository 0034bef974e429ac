// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/varibuild/varibuild/internal/issue"
	"github.com/varibuild/varibuild/pkg/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func load(t *testing.T, opts LoadOptions) (*Config, error) {
	t.Helper()
	return NewProvider().Load(t.Context(), opts)
}

func TestLoad_DefaultsWithoutConfigFile(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, LoadOptions{BaseDir: types.FilesystemPath(t.TempDir())})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := DefaultConfig()
	if cfg.OutDir != want.OutDir {
		t.Errorf("OutDir = %q, want %q", cfg.OutDir, want.OutDir)
	}
	if !slices.Equal(cfg.Platforms, want.Platforms) {
		t.Errorf("Platforms = %v, want %v", cfg.Platforms, want.Platforms)
	}
	if !slices.Equal(cfg.Extensions, want.Extensions) {
		t.Errorf("Extensions = %v, want %v", cfg.Extensions, want.Extensions)
	}
	if !slices.Equal(cfg.Include, want.Include) {
		t.Errorf("Include = %v, want %v", cfg.Include, want.Include)
	}
	if cfg.MaxConcurrentWrites != want.MaxConcurrentWrites {
		t.Errorf("MaxConcurrentWrites = %d, want %d", cfg.MaxConcurrentWrites, want.MaxConcurrentWrites)
	}
	if cfg.Cache.MaxEntries != want.Cache.MaxEntries {
		t.Errorf("Cache.MaxEntries = %d, want %d", cfg.Cache.MaxEntries, want.Cache.MaxEntries)
	}
	if cfg.Watch.Debounce != want.Watch.Debounce {
		t.Errorf("Watch.Debounce = %s, want %s", cfg.Watch.Debounce, want.Watch.Debounce)
	}
	if cfg.Source != "" {
		t.Errorf("Source = %q, want empty", cfg.Source)
	}
}

func TestLoad_CUEFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	writeFile(t, path, `
out_dir: "dist"
platforms: ["ios", "windows"]
max_concurrent_writes: 4
cache: max_entries: 100
platform: windows: {
	suffixes: [".win32", ".native"]
	remap: {
		"react-native":    "react-native-windows"
		"lodash.debounce": "lodash-es"
	}
}
hooks: pre_build: "echo start"
projects: [
	{name: "core", root: "packages/core"},
	{name: "app", root: "packages/app", depends_on: ["core"]},
]
watch: debounce: "1s"
`)

	cfg, err := load(t, LoadOptions{BaseDir: types.FilesystemPath(dir)})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Source != path {
		t.Errorf("Source = %q, want %q", cfg.Source, path)
	}
	if cfg.OutDir != "dist" {
		t.Errorf("OutDir = %q, want dist", cfg.OutDir)
	}
	if want := []types.PlatformName{"ios", "windows"}; !slices.Equal(cfg.Platforms, want) {
		t.Errorf("Platforms = %v, want %v", cfg.Platforms, want)
	}
	if cfg.MaxConcurrentWrites != 4 {
		t.Errorf("MaxConcurrentWrites = %d, want 4", cfg.MaxConcurrentWrites)
	}
	if cfg.Cache.MaxEntries != 100 {
		t.Errorf("Cache.MaxEntries = %d, want 100", cfg.Cache.MaxEntries)
	}
	if got := cfg.Platform["windows"].Remap["lodash.debounce"]; got != "lodash-es" {
		t.Errorf("remap[lodash.debounce] = %q, want lodash-es", got)
	}
	if cfg.Hooks.PreBuild != "echo start" {
		t.Errorf("Hooks.PreBuild = %q", cfg.Hooks.PreBuild)
	}
	if len(cfg.Projects) != 2 || !slices.Equal(cfg.Projects[1].DependsOn, []string{"core"}) {
		t.Errorf("Projects = %+v", cfg.Projects)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("Watch.Debounce = %s, want 1s", cfg.Watch.Debounce)
	}
	// Fields absent from the file keep their defaults.
	if !slices.Equal(cfg.Include, DefaultConfig().Include) {
		t.Errorf("Include = %v, want default", cfg.Include)
	}

	profile := cfg.Profile("windows")
	if want := []types.PlatformSuffix{".win32", ".native"}; !slices.Equal(profile.Suffixes, want) {
		t.Errorf("Profile(windows).Suffixes = %v, want %v", profile.Suffixes, want)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		content    string
		explicit   string
		wantIssue  issue.Id
		wantSubstr string
	}{
		{
			name:       "explicit path not found",
			explicit:   "missing.cue",
			wantIssue:  issue.ConfigLoadFailedId,
			wantSubstr: "config file not found",
		},
		{
			name:      "invalid syntax",
			content:   `this is not valid CUE syntax {{{{`,
			wantIssue: issue.ConfigLoadFailedId,
		},
		{
			name:       "schema violation",
			content:    `max_concurrent_writes: 0`,
			wantIssue:  issue.ConfigLoadFailedId,
			wantSubstr: "max_concurrent_writes",
		},
		{
			name:       "unknown field",
			content:    `container_engine: "docker"`,
			wantIssue:  issue.ConfigLoadFailedId,
			wantSubstr: "container_engine",
		},
		{
			name:       "unknown project dependency",
			content:    `projects: [{name: "app", root: "app", depends_on: ["core"]}]`,
			wantIssue:  issue.ConfigInvalidId,
			wantSubstr: `unknown project "core"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			opts := LoadOptions{BaseDir: types.FilesystemPath(dir)}
			if tt.explicit != "" {
				opts.ConfigFilePath = types.FilesystemPath(filepath.Join(dir, tt.explicit))
			} else {
				writeFile(t, filepath.Join(dir, ConfigFileName), tt.content)
			}

			_, err := load(t, opts)
			if err == nil {
				t.Fatal("expected error")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error should be *issue.ActionableError, got %T", err)
			}
			if ae.Issue != tt.wantIssue {
				t.Errorf("Issue = %d, want %d", ae.Issue, tt.wantIssue)
			}
			if !ae.HasSuggestions() {
				t.Error("expected suggestions")
			}
			if tt.wantSubstr != "" && !strings.Contains(err.Error(), tt.wantSubstr) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantSubstr)
			}
		})
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := NewProvider().Load(ctx, LoadOptions{BaseDir: types.FilesystemPath(t.TempDir())})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestLoad_InvalidOptions(t *testing.T) {
	t.Parallel()

	_, err := load(t, LoadOptions{BaseDir: "  "})
	if !errors.Is(err, ErrInvalidLoadOptions) {
		t.Errorf("Load() error = %v, want ErrInvalidLoadOptions", err)
	}
}

// The environment tests mutate process state and cannot run in parallel.

func TestLoad_EnvironmentPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ConfigFileName), `out_dir: "from-cue"
check_only: false
`)
	writeFile(t, filepath.Join(dir, EnvFileName), `VARIBUILD_OUT_DIR=from-dotenv
VARIBUILD_CHECK_ONLY=true
VARIBUILD_PLATFORMS=ios,windows
VARIBUILD_CACHE_MAX_ENTRIES=42
`)
	t.Setenv("VARIBUILD_OUT_DIR", "from-process")

	cfg, err := load(t, LoadOptions{BaseDir: types.FilesystemPath(dir)})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.OutDir != "from-process" {
		t.Errorf("OutDir = %q, want from-process", cfg.OutDir)
	}
	if !cfg.CheckOnly {
		t.Error("CheckOnly should be set from .env")
	}
	if want := []types.PlatformName{"ios", "windows"}; !slices.Equal(cfg.Platforms, want) {
		t.Errorf("Platforms = %v, want %v", cfg.Platforms, want)
	}
	if cfg.Cache.MaxEntries != 42 {
		t.Errorf("Cache.MaxEntries = %d, want 42", cfg.Cache.MaxEntries)
	}
}

func TestLoad_EnvironmentValidated(t *testing.T) {
	t.Setenv("VARIBUILD_MAX_CONCURRENT_WRITES", "0")

	_, err := load(t, LoadOptions{BaseDir: types.FilesystemPath(t.TempDir())})
	if !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("Load() error = %v, want ErrInvalidLimit", err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue != issue.ConfigInvalidId {
		t.Errorf("expected ConfigInvalid actionable error, got %v", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.OutDir = "build"
	cfg.Platforms = []types.PlatformName{"windows", "macos"}
	cfg.Platform = map[string]PlatformConfig{
		"windows": {Remap: map[string]string{"react-native": "rnw"}},
	}
	cfg.Hooks = HooksConfig{PostBuild: "echo \"done\""}
	cfg.Projects = []ProjectConfig{
		{Name: "core", Root: "core"},
		{Name: "app", Root: "app", DependsOn: []string{"core"}},
	}
	cfg.Watch.Debounce = 1500 * time.Millisecond

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ConfigFileName), GenerateCUE(cfg))

	got, err := load(t, LoadOptions{BaseDir: types.FilesystemPath(dir)})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.OutDir != cfg.OutDir || !slices.Equal(got.Platforms, cfg.Platforms) {
		t.Errorf("got out_dir=%q platforms=%v", got.OutDir, got.Platforms)
	}
	if got.Platform["windows"].Remap["react-native"] != "rnw" {
		t.Errorf("remap lost: %+v", got.Platform)
	}
	if got.Hooks.PostBuild != cfg.Hooks.PostBuild {
		t.Errorf("PostBuild = %q, want %q", got.Hooks.PostBuild, cfg.Hooks.PostBuild)
	}
	if len(got.Projects) != 2 || got.Projects[1].DependsOn[0] != "core" {
		t.Errorf("Projects = %+v", got.Projects)
	}
	if got.Watch.Debounce != cfg.Watch.Debounce {
		t.Errorf("Debounce = %s, want %s", got.Watch.Debounce, cfg.Watch.Debounce)
	}
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", ConfigFileName)
	if err := WriteDefault(path, false); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if err := WriteDefault(path, false); !errors.Is(err, ErrConfigExists) {
		t.Errorf("second WriteDefault() error = %v, want ErrConfigExists", err)
	}
	if err := WriteDefault(path, true); err != nil {
		t.Errorf("forced WriteDefault() error = %v", err)
	}

	cfg, err := load(t, LoadOptions{ConfigFilePath: types.FilesystemPath(path), BaseDir: types.FilesystemPath(filepath.Dir(path))})
	if err != nil {
		t.Fatalf("loading the default file failed: %v", err)
	}
	if cfg.OutDir != DefaultConfig().OutDir {
		t.Errorf("OutDir = %q", cfg.OutDir)
	}
}

func TestEnvName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"out_dir":            "VARIBUILD_OUT_DIR",
		"cache.max_entries":  "VARIBUILD_CACHE_MAX_ENTRIES",
		"cache::max_entries": "VARIBUILD_CACHE_MAX_ENTRIES",
	}
	for key, want := range tests {
		if got := EnvName(key); got != want {
			t.Errorf("EnvName(%q) = %q, want %q", key, got, want)
		}
	}
}
