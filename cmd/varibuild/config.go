// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/varibuild/varibuild/internal/config"
	"github.com/varibuild/varibuild/pkg/types"
)

// newConfigCommand creates the `varibuild config` command tree.
// Subcommands that read configuration use the App's Provider.
func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage varibuild configuration",
		Long: `Manage varibuild configuration.

Configuration is read from varibuild.cue in the project directory, then
overridden by VARIBUILD_* variables from .env and the environment.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var showFormat string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.Context(), app, rootFlags, showFormat)
		},
	}
	showCmd.Flags().StringVarP(&showFormat, "format", "f", formatText, "output format: text, json or toml")
	cfgCmd.AddCommand(showCmd)

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default varibuild.cue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(app, rootFlags, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	var schema bool
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if schema {
				fmt.Fprint(app.stdout, config.Schema())
				return nil
			}
			cfg, err := app.loadConfig(cmd.Context(), rootFlags)
			if err != nil {
				return app.fail(err, exitCodeFor(err), rootFlags.verbose)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	}
	dumpCmd.Flags().BoolVar(&schema, "schema", false, "output the CUE schema instead")
	cfgCmd.AddCommand(dumpCmd)

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, rootFlags *rootFlagValues, format string) error {
	if err := validateFormat(format); err != nil {
		return app.fail(err, types.ExitUsage, rootFlags.verbose)
	}
	cfg, err := app.loadConfig(ctx, rootFlags)
	if err != nil {
		return app.fail(err, exitCodeFor(err), rootFlags.verbose)
	}

	switch format {
	case formatJSON:
		enc := json.NewEncoder(app.stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(cfg)
	case formatTOML:
		err = toml.NewEncoder(app.stdout).Encode(cfg)
	default:
		renderConfig(app.stdout, cfg)
	}
	if err != nil {
		return app.fail(fmt.Errorf("write config: %w", err), types.ExitBuildFailed, rootFlags.verbose)
	}
	return nil
}

func renderConfig(w io.Writer, cfg *config.Config) {
	key := PlatformStyle.Render
	value := SuccessStyle.Render

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if cfg.Source != "" {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), cfg.Source)
	} else {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", key("out_dir"), value(string(cfg.OutDir)))
	fmt.Fprintf(w, "%s: %s\n", key("check_only"), value(fmt.Sprint(cfg.CheckOnly)))
	fmt.Fprintf(w, "%s: %s\n", key("include"), value(strings.Join(cfg.Include, ", ")))
	fmt.Fprintf(w, "%s: %s\n", key("exclude"), value(strings.Join(cfg.Exclude, ", ")))
	fmt.Fprintf(w, "%s: %s\n", key("platforms"), value(joinNames(cfg.Platforms)))
	fmt.Fprintf(w, "%s: %s\n", key("extensions"), value(joinNames(cfg.Extensions)))
	fmt.Fprintf(w, "%s: %s\n", key("max_concurrent_writes"), value(fmt.Sprint(cfg.MaxConcurrentWrites)))
	fmt.Fprintf(w, "%s: %s\n", key("cache.max_entries"), value(fmt.Sprint(cfg.Cache.MaxEntries)))
	fmt.Fprintf(w, "%s: %s\n", key("watch.debounce"), value(cfg.Watch.Debounce.String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", key("profiles"))
	for _, name := range cfg.Platforms {
		p := cfg.Profile(name)
		fmt.Fprintf(w, "  %s suffixes %s\n", platformColumnStyle.Render(string(name)), value(joinNames(p.Suffixes)))
		for _, from := range slices.Sorted(maps.Keys(p.Remap)) {
			fmt.Fprintf(w, "  %s remap %s -> %s\n", platformColumnStyle.Render(""), from, value(p.Remap[from]))
		}
	}

	if len(cfg.Projects) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s:\n", key("projects"))
		for _, p := range cfg.Projects {
			line := fmt.Sprintf("  - %s (%s)", value(p.Name), p.Root)
			if len(p.DependsOn) > 0 {
				line += SubtitleStyle.Render(" depends on " + strings.Join(p.DependsOn, ", "))
			}
			fmt.Fprintln(w, line)
		}
	}
}

func initConfig(app *App, rootFlags *rootFlagValues, force bool) error {
	opts := rootFlags.loadOptions()
	path := string(opts.ConfigFilePath)
	if path == "" {
		path = filepath.Join(opts.Dir(), config.ConfigFileName)
	}

	if err := config.WriteDefault(path, force); err != nil {
		code := types.ExitBuildFailed
		if errors.Is(err, config.ErrConfigExists) {
			code = types.ExitUsage
			err = fmt.Errorf("%w (use --force to overwrite)", err)
		}
		return app.fail(err, code, rootFlags.verbose)
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func joinNames[S ~string](items []S) string {
	if len(items) == 0 {
		return "(none)"
	}
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = string(item)
	}
	return strings.Join(names, ", ")
}
