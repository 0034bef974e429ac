// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/varibuild/varibuild/internal/build"
	"github.com/varibuild/varibuild/pkg/types"
)

// resolveFlagValues holds the flags of `varibuild resolve`.
type resolveFlagValues struct {
	from     string
	platform string
	trace    bool
}

func newResolveCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &resolveFlagValues{}
	resolveCmd := &cobra.Command{
		Use:   "resolve <specifier>",
		Short: "Resolve one import for a platform",
		Long: `Resolve one import specifier the way a build of the given platform would.

With --trace every probed path is printed, in probe order.`,
		Example: `  varibuild resolve ./Button --from src/App.tsx --platform ios
  varibuild resolve react-native --from src/App.tsx -p windows --trace`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), app, rootFlags, flags, args[0])
		},
	}
	resolveCmd.Flags().StringVar(&flags.from, "from", "", "file containing the import (required)")
	resolveCmd.Flags().StringVarP(&flags.platform, "platform", "p", "", "platform to resolve for (default is the first configured)")
	resolveCmd.Flags().BoolVarP(&flags.trace, "trace", "t", false, "print every probed path")
	_ = resolveCmd.MarkFlagRequired("from")
	return resolveCmd
}

func runResolve(ctx context.Context, app *App, rootFlags *rootFlagValues, flags *resolveFlagValues, specifier string) error {
	var platforms []string
	if flags.platform != "" {
		platforms = []string{flags.platform}
	}
	b, _, err := app.newBuilder(ctx, rootFlags, platforms, false)
	if err != nil {
		return app.fail(err, exitCodeFor(err), rootFlags.verbose)
	}

	from := flags.from
	if !filepath.IsAbs(from) {
		from = filepath.Join(b.BaseDir(), from)
	}
	root, err := projectRootFor(b, from)
	if err != nil {
		return app.fail(err, exitCodeFor(err), rootFlags.verbose)
	}

	var name types.PlatformName
	if ps := b.Platforms(); len(ps) > 0 {
		name = ps[0].Name
	}
	rc, ok := b.Context(name, root)
	if !ok {
		return app.fail(fmt.Errorf("platform %s is not configured", platformLabel(string(name))), types.ExitUsage, rootFlags.verbose)
	}
	if flags.trace {
		rc.Trace = func(path string, found bool) {
			mark := SubtitleStyle.Render("  ")
			if found {
				mark = SuccessStyle.Render("✓ ")
			}
			fmt.Fprintln(app.stdout, mark+path)
		}
	}

	res := b.Resolver().Resolve(rc, specifier, from)
	if !res.OK() {
		err := fmt.Errorf("cannot resolve %q from %s for %s: %s", specifier, flags.from, platformLabel(string(name)), res.Reason)
		return app.fail(err, types.ExitBuildFailed, rootFlags.verbose)
	}

	detail := string(res.Extension)
	if res.IsExternal {
		detail += ", external"
	}
	fmt.Fprintf(app.stdout, "%s %s %s\n", PlatformStyle.Render(platformLabel(string(name))), res.Path, SubtitleStyle.Render("("+detail+")"))
	return nil
}

// projectRootFor returns the root of the deepest project containing file,
// or the base directory when no project does.
func projectRootFor(b *build.Builder, file string) (string, error) {
	waves, err := b.Projects()
	if err != nil {
		return "", err
	}
	best := b.BaseDir()
	for _, wave := range waves {
		for _, p := range wave {
			rel, err := filepath.Rel(p.Root, file)
			if err != nil || strings.HasPrefix(rel, "..") {
				continue
			}
			if len(p.Root) > len(best) {
				best = p.Root
			}
		}
	}
	return best, nil
}
