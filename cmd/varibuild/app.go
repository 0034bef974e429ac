// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"

	"github.com/varibuild/varibuild/internal/build"
	"github.com/varibuild/varibuild/internal/config"
	"github.com/varibuild/varibuild/internal/issue"
	"github.com/varibuild/varibuild/pkg/types"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every Cobra handler receives an App and goes
	// through it for configuration, logging and output.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// rootFlagValues holds the persistent flags shared by every subcommand.
	rootFlagValues struct {
		verbose    bool
		configPath string
		dir        string
		envFile    string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}, nil
}

// loadOptions converts the root flags to config load options.
func (f *rootFlagValues) loadOptions() config.LoadOptions {
	return config.LoadOptions{
		ConfigFilePath: types.FilesystemPath(f.configPath),
		BaseDir:        types.FilesystemPath(f.dir),
		EnvFilePath:    types.FilesystemPath(f.envFile),
	}
}

// consoleLogger returns the charmbracelet logger used for CLI diagnostics.
func (a *App) consoleLogger(verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix: config.AppName,
		Level:  level,
	})
}

// logger returns a slog.Logger backed by the console logger.
func (a *App) logger(verbose bool) *slog.Logger {
	return slog.New(a.consoleLogger(verbose))
}

// loadConfig loads the configuration selected by the root flags.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues) (*config.Config, error) {
	return a.Config.Load(ctx, flags.loadOptions())
}

// newBuilder loads the configuration and creates a Builder for it.
func (a *App) newBuilder(ctx context.Context, flags *rootFlagValues, platforms []string, checkOnly bool) (*build.Builder, *config.Config, error) {
	cfg, err := a.loadConfig(ctx, flags)
	if err != nil {
		return nil, nil, err
	}
	b, err := build.New(build.Options{
		Config:    cfg,
		BaseDir:   flags.loadOptions().Dir(),
		Platforms: platformNames(platforms),
		CheckOnly: checkOnly,
		Logger:    a.logger(flags.verbose),
		Stdout:    a.stdout,
		Stderr:    a.stderr,
	})
	if err != nil {
		return nil, nil, err
	}
	return b, cfg, nil
}

// fail renders err with its suggestions and returns the ExitError for the
// handler to return. Verbose mode adds the issue catalog entry.
func (a *App) fail(err error, code types.ExitCode, verbose bool) error {
	fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))

	var ae *issue.ActionableError
	if verbose && errors.As(err, &ae) && ae.Issue != 0 {
		if entry := issue.Get(ae.Issue); entry != nil {
			rendered, renderErr := entry.Render("dark")
			if renderErr != nil {
				slog.Warn("failed to render issue catalog entry", "issue", ae.Issue, "error", renderErr)
			} else {
				fmt.Fprint(a.stderr, rendered)
			}
		}
	}
	return &ExitError{Code: code}
}

// exitCodeFor maps a failure to the process exit code.
func exitCodeFor(err error) types.ExitCode {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		switch ae.Issue {
		case issue.ConfigLoadFailedId, issue.ConfigInvalidId, issue.UnknownPlatformId, issue.DependencyCycleId:
			return types.ExitUsage
		}
	}
	if errors.Is(err, config.ErrInvalidConfig) || errors.Is(err, config.ErrInvalidLoadOptions) {
		return types.ExitUsage
	}
	return types.ExitBuildFailed
}

func platformNames(names []string) []types.PlatformName {
	if len(names) == 0 {
		return nil
	}
	out := make([]types.PlatformName, len(names))
	for i, n := range names {
		out[i] = types.PlatformName(n)
	}
	return out
}
