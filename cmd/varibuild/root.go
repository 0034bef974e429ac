// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/varibuild/varibuild/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "varibuild",
		Short: "Build TypeScript sources once per target platform",
		Long: TitleStyle.Render("varibuild") + SubtitleStyle.Render(" - platform-variant TypeScript builds") + `

varibuild compiles a source tree for several platforms at once. Files named
with a platform suffix (Button.ios.tsx, Button.native.tsx) are picked for the
platforms that prefer them, and imports resolve to the same variants.

` + SubtitleStyle.Render("Examples:") + `
  varibuild build                       Build every configured platform
  varibuild build -p ios --check-only   Type-check the ios variant only
  varibuild build --watch               Rebuild on source changes
  varibuild plan --format json          Show which task owns each file
  varibuild resolve ./Button --from src/App.tsx -p android --trace
  varibuild config init                 Create a varibuild.cue`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging and detailed errors")
	pf.StringVar(&flags.configPath, "config", "", "config file (default is <dir>/varibuild.cue)")
	pf.StringVarP(&flags.dir, "dir", "C", "", "project directory (default is the working directory)")
	pf.StringVar(&flags.envFile, "env-file", "", "dotenv file with VARIBUILD_* overrides (default is <dir>/.env)")

	rootCmd.AddCommand(
		newBuildCommand(app, flags),
		newPlanCommand(app, flags),
		newResolveCommand(app, flags),
		newConfigCommand(app, flags),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
