// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/varibuild/varibuild/internal/build"
	"github.com/varibuild/varibuild/pkg/types"
)

// Output formats of plan and config show.
const (
	formatText = "text"
	formatJSON = "json"
	formatTOML = "toml"
)

// errUnsupportedFormat is returned for an unknown --format value.
var errUnsupportedFormat = errors.New("unsupported output format")

type (
	// planFlagValues holds the flags of `varibuild plan`.
	planFlagValues struct {
		platforms []string
		checkOnly bool
		format    string
	}

	planOutput struct {
		Projects []projectPlanOutput `json:"projects" toml:"projects"`
	}

	projectPlanOutput struct {
		Name  string           `json:"name" toml:"name"`
		Root  string           `json:"root" toml:"root"`
		Files int              `json:"files" toml:"files"`
		Tasks []taskPlanOutput `json:"tasks" toml:"tasks"`
	}

	taskPlanOutput struct {
		Platform string   `json:"platform" toml:"platform"`
		Emit     []string `json:"emit" toml:"emit"`
		Check    []string `json:"check" toml:"check"`
	}
)

func newPlanCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &planFlagValues{}
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Show which platform task emits or checks each file",
		Long: `Show which platform task emits or checks each file, without compiling.

Paths are relative to the project root.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd.Context(), app, rootFlags, flags)
		},
	}
	planCmd.Flags().StringSliceVarP(&flags.platforms, "platform", "p", nil, "platforms to plan (repeatable; default from config)")
	planCmd.Flags().BoolVar(&flags.checkOnly, "check-only", false, "plan a type-check-only build")
	planCmd.Flags().StringVarP(&flags.format, "format", "f", formatText, "output format: text, json or toml")
	return planCmd
}

func runPlan(ctx context.Context, app *App, rootFlags *rootFlagValues, flags *planFlagValues) error {
	if err := validateFormat(flags.format); err != nil {
		return app.fail(err, types.ExitUsage, rootFlags.verbose)
	}
	b, _, err := app.newBuilder(ctx, rootFlags, flags.platforms, flags.checkOnly)
	if err != nil {
		return app.fail(err, exitCodeFor(err), rootFlags.verbose)
	}
	plans, err := b.Plan(ctx)
	if err != nil {
		return app.fail(err, exitCodeFor(err), rootFlags.verbose)
	}

	out := newPlanOutput(plans)
	switch flags.format {
	case formatJSON:
		enc := json.NewEncoder(app.stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(out)
	case formatTOML:
		err = toml.NewEncoder(app.stdout).Encode(out)
	default:
		renderPlan(app.stdout, out)
	}
	if err != nil {
		return app.fail(fmt.Errorf("write plan: %w", err), types.ExitBuildFailed, rootFlags.verbose)
	}
	return nil
}

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatTOML:
		return nil
	default:
		return fmt.Errorf("%w %q (want text, json or toml)", errUnsupportedFormat, format)
	}
}

func newPlanOutput(plans []build.ProjectPlan) planOutput {
	out := planOutput{Projects: make([]projectPlanOutput, 0, len(plans))}
	for _, plan := range plans {
		p := projectPlanOutput{
			Name:  plan.Project.Name,
			Root:  plan.Project.Root,
			Files: len(plan.Files),
			Tasks: make([]taskPlanOutput, 0, len(plan.Tasks)),
		}
		for _, task := range plan.Tasks {
			p.Tasks = append(p.Tasks, taskPlanOutput{
				Platform: platformLabel(string(task.Platform)),
				Emit:     relPaths(plan.Project.Root, task.FilesToEmit.Paths()),
				Check:    relPaths(plan.Project.Root, task.FilesToCheck.Paths()),
			})
		}
		out.Projects = append(out.Projects, p)
	}
	return out
}

func relPaths(root string, files []string) []string {
	rel := make([]string, len(files))
	for i, f := range files {
		r, err := filepath.Rel(root, f)
		if err != nil {
			r = f
		}
		rel[i] = filepath.ToSlash(r)
	}
	return rel
}

func renderPlan(w io.Writer, out planOutput) {
	for i, p := range out.Projects {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s %s\n", TitleStyle.Render(p.Name), SubtitleStyle.Render(fmt.Sprintf("%s (%d files)", p.Root, p.Files)))
		for _, t := range p.Tasks {
			fmt.Fprintf(w, "  %s emit %d, check %d\n", platformColumnStyle.Render(t.Platform), len(t.Emit), len(t.Check))
			for _, f := range t.Emit {
				fmt.Fprintf(w, "    %s %s\n", SuccessStyle.Render("emit "), f)
			}
			for _, f := range t.Check {
				fmt.Fprintf(w, "    %s %s\n", SubtitleStyle.Render("check"), f)
			}
		}
	}
}
