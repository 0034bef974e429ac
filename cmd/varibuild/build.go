// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/varibuild/varibuild/internal/build"
	"github.com/varibuild/varibuild/internal/config"
	"github.com/varibuild/varibuild/internal/watch"
)

// buildFlagValues holds the flags of `varibuild build`.
type buildFlagValues struct {
	platforms []string
	checkOnly bool
	watch     bool
}

func newBuildCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &buildFlagValues{}
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build every project for every platform",
		Long: `Build every project for every platform.

Each platform gets one task. A file with platform variants is emitted by the
platform that prefers it most and type-checked by every other platform. Files
are written under out_dir, mirroring their path below the project root.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd.Context(), app, rootFlags, flags)
		},
	}
	buildCmd.Flags().StringSliceVarP(&flags.platforms, "platform", "p", nil, "platforms to build (repeatable; default from config)")
	buildCmd.Flags().BoolVar(&flags.checkOnly, "check-only", false, "type-check without writing output")
	buildCmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "rebuild when sources change")
	return buildCmd
}

func runBuild(ctx context.Context, app *App, rootFlags *rootFlagValues, flags *buildFlagValues) error {
	b, cfg, err := app.newBuilder(ctx, rootFlags, flags.platforms, flags.checkOnly)
	if err != nil {
		return app.fail(err, exitCodeFor(err), rootFlags.verbose)
	}

	report, buildErr := b.Build(ctx)
	renderReport(app.stdout, report, b.CheckOnly())
	if !flags.watch {
		if buildErr != nil {
			return app.fail(buildErr, exitCodeFor(buildErr), rootFlags.verbose)
		}
		return nil
	}
	if buildErr != nil {
		fmt.Fprintln(app.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(buildErr, rootFlags.verbose))
	}
	return runWatch(ctx, app, rootFlags, b, cfg)
}

// runWatch rebuilds on every batch of relevant changes until ctx ends.
func runWatch(ctx context.Context, app *App, rootFlags *rootFlagValues, b *build.Builder, cfg *config.Config) error {
	patterns, ignore, err := watchPatterns(b, cfg)
	if err != nil {
		return app.fail(err, exitCodeFor(err), rootFlags.verbose)
	}

	logger := app.consoleLogger(rootFlags.verbose)
	w, err := watch.New(watch.Config{
		BaseDir:  b.BaseDir(),
		Patterns: patterns,
		Ignore:   ignore,
		Debounce: cfg.Watch.Debounce,
		Logger:   logger,
		OnChange: func(ctx context.Context, changed []string) error {
			logger.Info("rebuilding", "changed", len(changed))
			report, err := b.Rebuild(ctx)
			renderReport(app.stdout, report, b.CheckOnly())
			if report != nil {
				logger.Debug("rebuilt", "projects", report.ProjectNames())
			}
			if err != nil {
				fmt.Fprintln(app.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, rootFlags.verbose))
			}
			return nil
		},
	})
	if err != nil {
		return app.fail(err, exitCodeFor(err), rootFlags.verbose)
	}

	fmt.Fprintln(app.stdout, SubtitleStyle.Render("Watching for changes. Press Ctrl+C to stop."))
	if err := w.Run(ctx); err != nil {
		return app.fail(err, exitCodeFor(err), rootFlags.verbose)
	}
	return nil
}

// watchPatterns prefixes the project-relative include and exclude patterns
// of every project with the project's path below the base directory. Output
// directories are always ignored.
func watchPatterns(b *build.Builder, cfg *config.Config) (patterns, ignore []string, err error) {
	waves, err := b.Projects()
	if err != nil {
		return nil, nil, err
	}
	for _, wave := range waves {
		for _, p := range wave {
			rel, err := filepath.Rel(b.BaseDir(), p.Root)
			if err != nil || strings.HasPrefix(rel, "..") {
				return nil, nil, fmt.Errorf("project %s: root %s is outside %s", p.Name, p.Root, b.BaseDir())
			}
			rel = filepath.ToSlash(rel)
			for _, pattern := range cfg.Include {
				patterns = append(patterns, path.Join(rel, pattern))
			}
			for _, pattern := range cfg.Exclude {
				ignore = append(ignore, path.Join(rel, pattern))
			}
			if out, err := filepath.Rel(b.BaseDir(), p.OutDir); err == nil {
				ignore = append(ignore, path.Join(filepath.ToSlash(out), "**"))
			}
		}
	}
	return patterns, ignore, nil
}

// renderReport prints one line per project and platform, then a summary.
func renderReport(w io.Writer, report *build.Report, checkOnly bool) {
	if report == nil {
		return
	}
	for _, p := range report.Projects {
		fmt.Fprintf(w, "%s %s\n", TitleStyle.Render(p.Project.Name),
			SubtitleStyle.Render(fmt.Sprintf("(%d files, %s)", p.Files, p.Duration.Round(time.Millisecond))))
		for _, t := range p.Tasks {
			status := SuccessStyle.Render("ok")
			if t.Failed > 0 {
				status = ErrorStyle.Render(fmt.Sprintf("%d failed", t.Failed))
			}
			fmt.Fprintf(w, "  %s emitted %d, checked %d, wrote %d  %s\n",
				platformColumnStyle.Render(platformLabel(string(t.Platform))), t.Emitted, t.Checked, t.Writes.Written, status)
		}
	}

	emitted, checked, failed, written := report.Summary()
	verb := "Built"
	if checkOnly {
		verb = "Checked"
	}
	line := fmt.Sprintf("%s %d project(s): %d emitted, %d checked, %d written in %s",
		verb, len(report.Projects), emitted, checked, written, report.Duration.Round(time.Millisecond))
	if failed > 0 {
		fmt.Fprintln(w, ErrorStyle.Render("✗ ")+line+ErrorStyle.Render(fmt.Sprintf(", %d failed", failed)))
		return
	}
	fmt.Fprintln(w, SuccessStyle.Render("✓ ")+line)
}

func platformLabel(name string) string {
	if name == "" {
		return "default"
	}
	return name
}
