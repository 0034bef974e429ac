// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/varibuild/varibuild/internal/config"
	"github.com/varibuild/varibuild/internal/dag"
	"github.com/varibuild/varibuild/internal/issue"
	"github.com/varibuild/varibuild/internal/throttle"
	"github.com/varibuild/varibuild/internal/writebatch"
	"github.com/varibuild/varibuild/pkg/multiplex"
	"github.com/varibuild/varibuild/pkg/platform"
	"github.com/varibuild/varibuild/pkg/resolve"
	"github.com/varibuild/varibuild/pkg/types"
)

// ErrNoSources is returned when a project's include patterns match nothing.
var ErrNoSources = errors.New("no source files matched")

type (
	// Options configures a Builder.
	Options struct {
		// Config is the loaded configuration. Required.
		Config *config.Config
		// BaseDir is the directory project roots are relative to.
		BaseDir string
		// Fs defaults to the OS filesystem.
		Fs afero.Fs
		// Platforms overrides Config.Platforms when non-empty.
		Platforms []types.PlatformName
		// CheckOnly is combined with Config.CheckOnly.
		CheckOnly bool
		// Factory overrides the esbuild compiler for every project.
		Factory func(p Project, resolver *resolve.Resolver) CompilerFactory
		Logger  *slog.Logger
		// Stdout and Stderr receive hook output.
		Stdout io.Writer
		Stderr io.Writer
	}

	// Project is one resolved entry of the configuration's project list.
	Project struct {
		Name string
		// Root and OutDir are absolute.
		Root      string
		OutDir    string
		DependsOn []string
	}

	// ProjectPlan is the task partition of one project.
	ProjectPlan struct {
		Project Project
		Files   []string
		Tasks   []*multiplex.BuildTask
	}

	// ProjectReport summarizes the build of one project.
	ProjectReport struct {
		Project  Project
		Files    int
		Tasks    []TaskResult
		Duration time.Duration
	}

	// Report summarizes a build invocation.
	Report struct {
		Projects []ProjectReport
		Duration time.Duration
	}

	// Builder builds the projects of one configuration. The resolution
	// cache and the write throttle live as long as the Builder, so repeated
	// builds in watch mode share them.
	Builder struct {
		cfg       *config.Config
		baseDir   string
		fs        afero.Fs
		platforms []multiplex.Platform
		contexts  map[types.PlatformName]resolve.PlatformContext
		checkOnly bool
		resolver  *resolve.Resolver
		cache     *resolve.Cache
		throttler *throttle.Throttler
		factory   func(Project, *resolve.Resolver) CompilerFactory
		logger    *slog.Logger
		stdout    io.Writer
		stderr    io.Writer
	}
)

// New creates a Builder. It fails on invalid platform names.
func New(opts Options) (*Builder, error) {
	if opts.Config == nil {
		return nil, errors.New("build: missing configuration")
	}
	cfg := opts.Config

	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = "."
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("build: resolve base directory: %w", err)
	}

	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := &Builder{
		cfg:       cfg,
		baseDir:   absBase,
		fs:        fs,
		contexts:  make(map[types.PlatformName]resolve.PlatformContext),
		checkOnly: cfg.CheckOnly || opts.CheckOnly,
		cache:     resolve.NewCache(cfg.Cache.MaxEntries),
		throttler: throttle.New(cfg.MaxConcurrentWrites),
		factory:   opts.Factory,
		logger:    logger,
		stdout:    opts.Stdout,
		stderr:    opts.Stderr,
	}
	b.resolver = resolve.New(resolve.NewFileSystem(fs), resolve.WithLogger(logger))

	names := opts.Platforms
	if len(names) == 0 {
		names = cfg.Platforms
	}
	if err := b.setPlatforms(names); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Builder) setPlatforms(names []types.PlatformName) error {
	if len(names) == 0 {
		pc, err := resolve.NewPlatformContext("", nil, b.cfg.Extensions, nil)
		if err != nil {
			return err
		}
		b.contexts[""] = pc
		return nil
	}

	seen := make(map[types.PlatformName]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		profile := b.cfg.Profile(name)
		if _, builtin := platform.Lookup(name); !builtin {
			if _, configured := b.cfg.Platform[string(name)]; !configured {
				b.logger.Warn("unknown platform, using generic suffixes",
					"platform", string(name), "suffixes", profile.Suffixes)
			}
		}
		pc, err := resolve.NewPlatformContext(name, profile.Suffixes, b.cfg.Extensions, profile.Remap)
		if err != nil {
			return issue.NewErrorContext().
				WithOperation("configure platform").
				WithResource(string(name)).
				WithSuggestion("Platform names are lower-case, e.g. ios or windows").
				WithSuggestion("Built-in platforms: " + presetNames()).
				WithIssue(issue.UnknownPlatformId).
				Wrap(err).
				BuildError()
		}
		b.contexts[name] = pc
		b.platforms = append(b.platforms, multiplex.Platform{Name: name, Suffixes: profile.Suffixes})
	}
	return nil
}

// BaseDir returns the absolute directory project roots are relative to.
func (b *Builder) BaseDir() string { return b.baseDir }

// Platforms returns the build targets in task order.
func (b *Builder) Platforms() []multiplex.Platform { return b.platforms }

// CheckOnly reports whether the build skips output.
func (b *Builder) CheckOnly() bool { return b.checkOnly }

// Resolver returns the resolver shared by all tasks.
func (b *Builder) Resolver() *resolve.Resolver { return b.resolver }

// Cache returns the resolution cache shared by all builds.
func (b *Builder) Cache() *resolve.Cache { return b.cache }

// Context returns a resolution context of platform bound to the cache
// table of root.
func (b *Builder) Context(name types.PlatformName, root string) (*resolve.Context, bool) {
	pc, ok := b.contexts[name]
	if !ok {
		return nil, false
	}
	return &resolve.Context{Platform: pc, Cache: b.cache.Root(root)}, true
}

// Projects returns the configured projects grouped into dependency waves.
func (b *Builder) Projects() ([][]Project, error) {
	list := b.cfg.ProjectList()
	byName := make(map[string]Project, len(list))
	g := dag.New()
	for _, pc := range list {
		root := string(pc.Root)
		if !filepath.IsAbs(root) {
			root = filepath.Join(b.baseDir, root)
		}
		byName[pc.Name] = Project{
			Name:      pc.Name,
			Root:      root,
			OutDir:    filepath.Join(root, string(b.cfg.OutDir)),
			DependsOn: pc.DependsOn,
		}
		g.AddNode(pc.Name)
		for _, dep := range pc.DependsOn {
			g.AddEdge(dep, pc.Name)
		}
	}

	levels, err := g.Levels()
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("order projects").
			WithSuggestion("Remove one of the depends_on edges between the listed projects").
			WithIssue(issue.DependencyCycleId).
			Wrap(err).
			BuildError()
	}

	waves := make([][]Project, len(levels))
	for i, level := range levels {
		for _, name := range level {
			waves[i] = append(waves[i], byName[name])
		}
	}
	return waves, nil
}

// Plan partitions the sources of every project into platform tasks
// without compiling anything. Plans are in build order.
func (b *Builder) Plan(ctx context.Context) ([]ProjectPlan, error) {
	waves, err := b.Projects()
	if err != nil {
		return nil, err
	}
	var plans []ProjectPlan
	for _, wave := range waves {
		for _, p := range wave {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			plan, err := b.planProject(p)
			if err != nil {
				return nil, err
			}
			plans = append(plans, plan)
		}
	}
	return plans, nil
}

func (b *Builder) planProject(p Project) (ProjectPlan, error) {
	exclude := append([]string{}, b.cfg.Exclude...)
	if rel, err := filepath.Rel(p.Root, p.OutDir); err == nil && !strings.HasPrefix(rel, "..") {
		exclude = append(exclude, filepath.ToSlash(rel)+"/**")
	}

	files, err := CollectFiles(b.fs, p.Root, b.cfg.Include, exclude)
	if err != nil {
		return ProjectPlan{}, issue.NewErrorContext().
			WithOperation("collect sources").
			WithResource(p.Root).
			WithSuggestion("Check the include and exclude patterns").
			WithIssue(issue.NoSourcesId).
			Wrap(err).
			BuildError()
	}
	if len(files) == 0 {
		return ProjectPlan{}, issue.NewErrorContext().
			WithOperation("collect sources").
			WithResource(p.Root).
			WithSuggestion(fmt.Sprintf("No file matched %v", b.cfg.Include)).
			WithIssue(issue.NoSourcesId).
			Wrap(fmt.Errorf("project %s: %w", p.Name, ErrNoSources)).
			BuildError()
	}

	b.warnReservedNames(p, files)
	sorted := multiplex.SortForMultiplex(files, b.platforms)
	return ProjectPlan{
		Project: p,
		Files:   files,
		Tasks:   multiplex.Multiplex(sorted, b.platforms, b.checkOnly),
	}, nil
}

// warnReservedNames logs sources whose output could not be created on a
// Windows checkout, when windows is a target.
func (b *Builder) warnReservedNames(p Project, files []string) {
	if !slices.ContainsFunc(b.platforms, func(pl multiplex.Platform) bool { return pl.Name == platform.Windows }) {
		return
	}
	for _, f := range files {
		if platform.IsWindowsReservedName(f) {
			b.logger.Warn("file name is reserved on windows", "project", p.Name, "file", f)
		}
	}
}

// Build builds every project in dependency order. Projects of one wave
// build concurrently; a failing wave stops the build before its
// dependents start.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	start := time.Now()
	waves, err := b.Projects()
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, wave := range waves {
		reports := make([]ProjectReport, len(wave))
		errs := make([]error, len(wave))
		// Errors are kept per slot instead of returned: a failing project
		// must not cancel its siblings in the wave, and every project's
		// report and error is needed once the wave is over.
		var g errgroup.Group
		for i, p := range wave {
			g.Go(func() error {
				reports[i], errs[i] = b.buildProject(ctx, p)
				return nil
			})
		}
		_ = g.Wait()

		report.Projects = append(report.Projects, reports...)
		if err := errors.Join(errs...); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}
	}
	report.Duration = time.Since(start)
	return report, nil
}

// Rebuild clears the resolution cache and builds again. Files may have
// been added or removed since the last build.
func (b *Builder) Rebuild(ctx context.Context) (*Report, error) {
	b.cache.ClearAll()
	return b.Build(ctx)
}

func (b *Builder) buildProject(ctx context.Context, p Project) (ProjectReport, error) {
	start := time.Now()
	report := ProjectReport{Project: p}
	logger := b.logger.With("project", p.Name)

	if err := b.hook(p, "pre_build", b.cfg.Hooks.PreBuild).Run(ctx); err != nil {
		return report, hookFailed(p, err)
	}

	plan, err := b.planProject(p)
	if err != nil {
		return report, err
	}
	report.Files = len(plan.Files)

	contexts := make(map[types.PlatformName]*resolve.Context, len(b.contexts))
	for name := range b.contexts {
		contexts[name], _ = b.Context(name, p.Root)
	}

	factory := NewESBuildFactory(ESBuildOptions{
		Fs:       b.fs,
		Resolver: b.resolver,
		Root:     p.Root,
		OutDir:   p.OutDir,
		Logger:   logger,
	})
	if b.factory != nil {
		factory = b.factory(p, b.resolver)
	}

	runner := NewRunner(RunnerOptions{
		Fs:        b.fs,
		Throttler: b.throttler,
		Factory:   factory,
		Contexts:  contexts,
		Logger:    logger,
	})
	logger.Info("building", "files", len(plan.Files), "tasks", len(plan.Tasks))
	report.Tasks, err = runner.RunAll(ctx, plan.Tasks)
	report.Duration = time.Since(start)
	if err != nil {
		return report, buildFailed(p, err)
	}

	if err := b.hook(p, "post_build", b.cfg.Hooks.PostBuild).Run(ctx); err != nil {
		return report, hookFailed(p, err)
	}
	cache := b.cache.Root(p.Root).Stats()
	writes := b.throttler.Stats()
	logger.Info("built", "duration", report.Duration)
	logger.Debug("build stats",
		"cache_entries", cache.Entries,
		"cache_hits", cache.Hits,
		"cache_misses", cache.Misses,
		"write_peak", writes.Peak,
		"writes_completed", writes.Completed)
	return report, nil
}

func presetNames() string {
	names := platform.Names()
	s := make([]string, len(names))
	for i, n := range names {
		s[i] = string(n)
	}
	return strings.Join(s, ", ")
}

func (b *Builder) hook(p Project, name, script string) Hook {
	platforms := make([]string, len(b.platforms))
	for i, pl := range b.platforms {
		platforms[i] = string(pl.Name)
	}
	env := append(os.Environ(),
		"VARIBUILD_PROJECT="+p.Name,
		"VARIBUILD_PROJECT_ROOT="+p.Root,
		"VARIBUILD_OUT_DIR="+p.OutDir,
		"VARIBUILD_PLATFORMS="+strings.Join(platforms, ","),
	)
	return Hook{
		Name:   p.Name + "/" + name,
		Script: script,
		Dir:    p.Root,
		Env:    env,
		Stdout: b.stdout,
		Stderr: b.stderr,
	}
}

func hookFailed(p Project, err error) error {
	return issue.NewErrorContext().
		WithOperation("run build hook").
		WithResource(p.Name).
		WithSuggestion("Run the hook script in a shell from " + p.Root + " to reproduce").
		WithIssue(issue.HookFailedId).
		Wrap(err).
		BuildError()
}

func buildFailed(p Project, err error) error {
	ec := issue.NewErrorContext().
		WithOperation("build project").
		WithResource(p.Name).
		Wrap(err)
	switch {
	case errors.Is(err, writebatch.ErrWriteFailed):
		ec.WithIssue(issue.WriteFailedId).
			WithSuggestion("Check that the output directory is writable: " + p.OutDir)
	case errors.Is(err, ErrUnresolvedImport):
		ec.WithIssue(issue.ResolutionFailedId).
			WithSuggestion("Trace one import with 'varibuild resolve <specifier> --from <file> --trace'")
	default:
		ec.WithIssue(issue.BuildFailedId).
			WithSuggestion("Re-run with --verbose to see each failing file")
	}
	return ec.BuildError()
}

// Summary totals the task results of r.
func (r *Report) Summary() (emitted, checked, failed, written int) {
	for _, p := range r.Projects {
		for _, t := range p.Tasks {
			emitted += t.Emitted
			checked += t.Checked
			failed += t.Failed
			written += t.Writes.Written
		}
	}
	return emitted, checked, failed, written
}

// ProjectNames lists the projects of r in build order.
func (r *Report) ProjectNames() []string {
	names := make([]string, len(r.Projects))
	for i, p := range r.Projects {
		names[i] = p.Project.Name
	}
	return names
}
