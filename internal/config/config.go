// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/varibuild/varibuild/internal/issue"
	"github.com/varibuild/varibuild/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "varibuild"
	// ConfigFileName is the project config file name.
	ConfigFileName = "varibuild.cue"
	// EnvFileName is the dotenv file read from the project directory.
	EnvFileName = ".env"
	// EnvPrefix prefixes environment overrides, e.g. VARIBUILD_OUT_DIR.
	EnvPrefix = "VARIBUILD"

	schemaRoot = "#Config"
	// keyDelim separates nested viper keys. Remap keys are package names,
	// which may contain dots.
	keyDelim = "::"
)

// ErrConfigExists is returned by WriteDefault when the file already exists.
var ErrConfigExists = errors.New("config file already exists")

//go:embed config_schema.cue
var configSchema []byte

// EnvName returns the environment variable overriding a config key, given
// in either dotted (cache.max_entries) or viper (cache::max_entries) form.
func EnvName(key string) string {
	key = strings.ReplaceAll(key, keyDelim, "_")
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// loadWithOptions runs the load pipeline: defaults, the CUE file, the
// dotenv file, process environment, then validation.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelim))
	setDefaults(v, DefaultConfig())

	cfgPath := opts.configFile()
	if opts.ConfigFilePath != "" && !fileExists(cfgPath) {
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(cfgPath).
			WithSuggestion("Verify the --config path is correct").
			WithSuggestion("Run 'varibuild config init' to create a default file").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(fmt.Errorf("config file not found: %s", cfgPath)).
			BuildError()
	}

	source := ""
	if fileExists(cfgPath) {
		if err := loadCUEIntoViper(v, cfgPath); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(cfgPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the values match the schema printed by 'varibuild config dump --schema'").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
		source = cfgPath
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelim, "_"))
	v.AutomaticEnv()

	if err := applyDotEnv(v, opts.envFile()); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load environment file").
			WithResource(opts.envFile()).
			WithSuggestion("Use KEY=value lines, e.g. VARIBUILD_OUT_DIR=dist").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Source = source

	if err := cfg.Validate(); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(source).
			WithSuggestion("Fix the fields listed above").
			WithSuggestion("Check VARIBUILD_* variables in the environment and in .env").
			WithIssue(issue.ConfigInvalidId).
			Wrap(err).
			BuildError()
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("out_dir", d.OutDir.String())
	v.SetDefault("check_only", d.CheckOnly)
	v.SetDefault("include", d.Include)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("platforms", d.Platforms)
	v.SetDefault("extensions", d.Extensions)
	v.SetDefault("max_concurrent_writes", d.MaxConcurrentWrites)
	v.SetDefault("cache::max_entries", d.Cache.MaxEntries)
	v.SetDefault("hooks::pre_build", d.Hooks.PreBuild)
	v.SetDefault("hooks::post_build", d.Hooks.PostBuild)
	v.SetDefault("watch::debounce", d.Watch.Debounce)
}

// loadCUEIntoViper validates the file against #Config and merges it into v.
// Fields left out of the file keep their defaults.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	settings, err := cueutil.DecodeMap(configSchema, data, schemaRoot,
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(settings); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// applyDotEnv sets every known key that has a value in the dotenv file and
// no value in the process environment. A missing file is not an error.
func applyDotEnv(v *viper.Viper, path string) error {
	if !fileExists(path) {
		return nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return err
	}
	for _, key := range v.AllKeys() {
		name := EnvName(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if val, ok := values[name]; ok {
			v.Set(key, val)
		}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteDefault writes the default configuration to path. An existing file
// is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force && fileExists(path) {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE renders cfg in the varibuild.cue format.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// varibuild configuration\n\n")
	fmt.Fprintf(&sb, "out_dir: %q\n", cfg.OutDir)
	fmt.Fprintf(&sb, "check_only: %v\n", cfg.CheckOnly)
	fmt.Fprintf(&sb, "include: %s\n", cueList(cfg.Include))
	fmt.Fprintf(&sb, "exclude: %s\n", cueList(cfg.Exclude))
	fmt.Fprintf(&sb, "platforms: %s\n", cueList(cfg.Platforms))
	fmt.Fprintf(&sb, "extensions: %s\n", cueList(cfg.Extensions))
	fmt.Fprintf(&sb, "max_concurrent_writes: %d\n", cfg.MaxConcurrentWrites)

	sb.WriteString("\ncache: {\n")
	fmt.Fprintf(&sb, "\tmax_entries: %d\n", cfg.Cache.MaxEntries)
	sb.WriteString("}\n")

	if len(cfg.Platform) > 0 {
		sb.WriteString("\nplatform: {\n")
		for _, name := range slices.Sorted(maps.Keys(cfg.Platform)) {
			pc := cfg.Platform[name]
			fmt.Fprintf(&sb, "\t%q: {\n", name)
			if len(pc.Suffixes) > 0 {
				fmt.Fprintf(&sb, "\t\tsuffixes: %s\n", cueList(pc.Suffixes))
			}
			if len(pc.Remap) > 0 {
				sb.WriteString("\t\tremap: {\n")
				for _, from := range slices.Sorted(maps.Keys(pc.Remap)) {
					fmt.Fprintf(&sb, "\t\t\t%q: %q\n", from, pc.Remap[from])
				}
				sb.WriteString("\t\t}\n")
			}
			sb.WriteString("\t}\n")
		}
		sb.WriteString("}\n")
	}

	if cfg.Hooks.PreBuild != "" || cfg.Hooks.PostBuild != "" {
		sb.WriteString("\nhooks: {\n")
		if cfg.Hooks.PreBuild != "" {
			fmt.Fprintf(&sb, "\tpre_build: %q\n", cfg.Hooks.PreBuild)
		}
		if cfg.Hooks.PostBuild != "" {
			fmt.Fprintf(&sb, "\tpost_build: %q\n", cfg.Hooks.PostBuild)
		}
		sb.WriteString("}\n")
	}

	if len(cfg.Projects) > 0 {
		sb.WriteString("\nprojects: [\n")
		for _, p := range cfg.Projects {
			fmt.Fprintf(&sb, "\t{name: %q, root: %q", p.Name, p.Root)
			if len(p.DependsOn) > 0 {
				fmt.Fprintf(&sb, ", depends_on: %s", cueList(p.DependsOn))
			}
			sb.WriteString("},\n")
		}
		sb.WriteString("]\n")
	}

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tdebounce: %q\n", cfg.Watch.Debounce.String())
	sb.WriteString("}\n")

	return sb.String()
}

// Schema returns the embedded CUE schema.
func Schema() string {
	return string(configSchema)
}

func cueList[S ~string](items []S) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
