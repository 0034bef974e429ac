// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/varibuild/varibuild/pkg/platform"
	"github.com/varibuild/varibuild/pkg/types"
)

// DefaultProjectName names the implicit project of a config without
// a projects list.
const DefaultProjectName = "default"

var (
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidProject is the sentinel error wrapped by InvalidProjectError.
	ErrInvalidProject = errors.New("invalid project")
	// ErrInvalidPlatformProfile is the sentinel error wrapped by InvalidPlatformProfileError.
	ErrInvalidPlatformProfile = errors.New("invalid platform profile")
	// ErrInvalidLimit is returned for non-positive size or concurrency limits.
	ErrInvalidLimit = errors.New("invalid limit")
)

type (
	// Config holds the build configuration.
	Config struct {
		// OutDir is the output directory, relative to each project root.
		OutDir types.FilesystemPath `json:"out_dir" toml:"out_dir" mapstructure:"out_dir"`
		// CheckOnly type-checks without writing output.
		CheckOnly bool `json:"check_only" toml:"check_only" mapstructure:"check_only"`
		// Include selects sources with doublestar patterns relative to the
		// project root.
		Include []string `json:"include" toml:"include" mapstructure:"include"`
		// Exclude removes matches of Include.
		Exclude []string `json:"exclude" toml:"exclude" mapstructure:"exclude"`
		// Platforms lists the build targets in task order.
		Platforms []types.PlatformName `json:"platforms" toml:"platforms" mapstructure:"platforms"`
		// Extensions is the extension precedence list, highest first.
		Extensions []types.Extension `json:"extensions" toml:"extensions" mapstructure:"extensions"`
		// MaxConcurrentWrites caps output writes across all platform tasks.
		MaxConcurrentWrites int `json:"max_concurrent_writes" toml:"max_concurrent_writes" mapstructure:"max_concurrent_writes"`
		// Cache sizes the resolution cache.
		Cache CacheConfig `json:"cache" toml:"cache" mapstructure:"cache"`
		// Platform overrides the built-in profile of a platform.
		Platform map[string]PlatformConfig `json:"platform,omitempty" toml:"platform,omitempty" mapstructure:"platform"`
		// Hooks run around each project build.
		Hooks HooksConfig `json:"hooks" toml:"hooks" mapstructure:"hooks"`
		// Projects declares a multi-project build.
		Projects []ProjectConfig `json:"projects,omitempty" toml:"projects,omitempty" mapstructure:"projects"`
		// Watch configures build --watch.
		Watch WatchConfig `json:"watch" toml:"watch" mapstructure:"watch"`

		// Source is the file the configuration was read from, empty when
		// only defaults and environment applied.
		Source string `json:"-" toml:"-" mapstructure:"-"`
	}

	// CacheConfig sizes the resolution cache.
	CacheConfig struct {
		MaxEntries int `json:"max_entries" toml:"max_entries" mapstructure:"max_entries"`
	}

	// PlatformConfig overrides a platform profile. Empty suffixes keep the
	// built-in list; remap entries are merged over the built-in ones.
	PlatformConfig struct {
		Suffixes []types.PlatformSuffix `json:"suffixes,omitempty" toml:"suffixes,omitempty" mapstructure:"suffixes"`
		Remap    map[string]string      `json:"remap,omitempty" toml:"remap,omitempty" mapstructure:"remap"`
	}

	// HooksConfig holds shell snippets run around each project build.
	HooksConfig struct {
		PreBuild  string `json:"pre_build,omitempty" toml:"pre_build,omitempty" mapstructure:"pre_build"`
		PostBuild string `json:"post_build,omitempty" toml:"post_build,omitempty" mapstructure:"post_build"`
	}

	// ProjectConfig declares one project of a multi-project build.
	ProjectConfig struct {
		Name      string               `json:"name" toml:"name" mapstructure:"name"`
		Root      types.FilesystemPath `json:"root" toml:"root" mapstructure:"root"`
		DependsOn []string             `json:"depends_on,omitempty" toml:"depends_on,omitempty" mapstructure:"depends_on"`
	}

	// WatchConfig configures build --watch.
	WatchConfig struct {
		Debounce time.Duration `json:"debounce" toml:"debounce" mapstructure:"debounce"`
	}

	// InvalidConfigError collects field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// InvalidProjectError reports a problem with one projects entry.
	InvalidProjectError struct {
		Index  int
		Name   string
		Reason string
	}

	// InvalidPlatformProfileError reports a problem with a platform override.
	InvalidPlatformProfileError struct {
		Platform    string
		FieldErrors []error
	}

	// LimitError reports a non-positive limit.
	LimitError struct {
		Field string
		Value int
	}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		OutDir:              "lib",
		Include:             []string{"src/**/*.{ts,tsx,js,jsx,json}"},
		Exclude:             []string{"**/__tests__/**", "**/node_modules/**"},
		Platforms:           []types.PlatformName{platform.IOS, platform.Android},
		Extensions:          types.DefaultExtensions(),
		MaxConcurrentWrites: 16,
		Cache:               CacheConfig{MaxEntries: 8192},
		Watch:               WatchConfig{Debounce: 300 * time.Millisecond},
	}
}

// Profile returns the effective profile of name: the built-in preset (or
// the generic profile for unknown names) with this config's override
// applied.
func (c *Config) Profile(name types.PlatformName) platform.Preset {
	p := platform.ForName(name)
	o, ok := c.Platform[string(name)]
	if !ok {
		return p
	}
	if len(o.Suffixes) > 0 {
		p.Suffixes = slices.Clone(o.Suffixes)
	}
	if len(o.Remap) > 0 {
		if p.Remap == nil {
			p.Remap = make(map[string]string, len(o.Remap))
		}
		maps.Copy(p.Remap, o.Remap)
	}
	return p
}

// ProjectList returns the configured projects, or a single implicit project
// rooted at "." when none are declared.
func (c *Config) ProjectList() []ProjectConfig {
	if len(c.Projects) == 0 {
		return []ProjectConfig{{Name: DefaultProjectName, Root: "."}}
	}
	return slices.Clone(c.Projects)
}

// Validate checks constraints the CUE schema cannot express and the values
// environment overrides may have introduced.
func (c *Config) Validate() error {
	var errs []error
	if err := c.OutDir.Validate(); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[types.PlatformName]bool, len(c.Platforms))
	for _, p := range c.Platforms {
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[p] {
			errs = append(errs, fmt.Errorf("platform %q listed twice", p))
		}
		seen[p] = true
	}

	for _, e := range c.Extensions {
		if err := e.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.MaxConcurrentWrites <= 0 {
		errs = append(errs, &LimitError{Field: "max_concurrent_writes", Value: c.MaxConcurrentWrites})
	}
	if c.Cache.MaxEntries <= 0 {
		errs = append(errs, &LimitError{Field: "cache.max_entries", Value: c.Cache.MaxEntries})
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must not be negative, got %s", c.Watch.Debounce))
	}

	for _, name := range slices.Sorted(maps.Keys(c.Platform)) {
		if err := validatePlatformConfig(name, c.Platform[name]); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, validateProjects(c.Projects)...)

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

func validatePlatformConfig(name string, pc PlatformConfig) error {
	var errs []error
	if err := types.PlatformName(name).Validate(); err != nil {
		errs = append(errs, err)
	}
	for _, s := range pc.Suffixes {
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
		} else if s.IsBase() {
			errs = append(errs, errors.New("the base suffix is implied and must not be listed"))
		}
	}
	for from, to := range pc.Remap {
		if from == "" || to == "" {
			errs = append(errs, fmt.Errorf("remap %q -> %q: package names must be non-empty", from, to))
		}
	}
	if len(errs) > 0 {
		return &InvalidPlatformProfileError{Platform: name, FieldErrors: errs}
	}
	return nil
}

// validateProjects checks name uniqueness and that every depends_on entry
// names a declared project. Cycles are detected when the build is ordered.
func validateProjects(projects []ProjectConfig) []error {
	var errs []error
	names := make(map[string]int, len(projects))
	for i, p := range projects {
		if p.Name == "" {
			errs = append(errs, &InvalidProjectError{Index: i, Reason: "name is required"})
			continue
		}
		if first, dup := names[p.Name]; dup {
			errs = append(errs, &InvalidProjectError{Index: i, Name: p.Name,
				Reason: fmt.Sprintf("duplicate name (first declared at projects[%d])", first)})
			continue
		}
		names[p.Name] = i
		if err := p.Root.Validate(); err != nil {
			errs = append(errs, &InvalidProjectError{Index: i, Name: p.Name, Reason: err.Error()})
		}
	}
	for i, p := range projects {
		for _, dep := range p.DependsOn {
			if _, ok := names[dep]; !ok {
				errs = append(errs, &InvalidProjectError{Index: i, Name: p.Name,
					Reason: fmt.Sprintf("depends on unknown project %q", dep)})
			}
		}
	}
	return errs
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig followed by the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Error implements the error interface.
func (e *InvalidProjectError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("projects[%d]: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("projects[%d] (%s): %s", e.Index, e.Name, e.Reason)
}

// Unwrap returns ErrInvalidProject for errors.Is() compatibility.
func (e *InvalidProjectError) Unwrap() error { return ErrInvalidProject }

// Error implements the error interface.
func (e *InvalidPlatformProfileError) Error() string {
	return fmt.Sprintf("platform.%s: %v", e.Platform, errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidPlatformProfile followed by the field errors.
func (e *InvalidPlatformProfileError) Unwrap() []error {
	return append([]error{ErrInvalidPlatformProfile}, e.FieldErrors...)
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	return fmt.Sprintf("%s must be positive, got %d", e.Field, e.Value)
}

// Unwrap returns ErrInvalidLimit for errors.Is() compatibility.
func (e *LimitError) Unwrap() error { return ErrInvalidLimit }
