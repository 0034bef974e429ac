// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"log/slog"
	"path/filepath"

	"github.com/varibuild/varibuild/pkg/types"
)

const (
	// indexModule is the module name tried inside directories.
	indexModule = "index"
	// maxPackageDepth bounds nested embedded-package resolution.
	maxPackageDepth = 8
)

type (
	// Resolver locates the file an import refers to. A Resolver holds no
	// per-build state and is safe for concurrent use; memoization lives in
	// the Cache of each Context.
	Resolver struct {
		fs       FileSystem
		fallback Fallback
		logger   *slog.Logger
	}

	// Option configures a Resolver.
	Option func(*Resolver)

	// search is the state of one pass of one resolution.
	search struct {
		r          *Resolver
		rc         *Context
		extensions []types.Extension
		// declaration is true when the pass searches declaration-capable
		// extensions.
		declaration bool
		depth       int
	}
)

// WithFallback sets the final fallback strategy.
func WithFallback(f Fallback) Option {
	return func(r *Resolver) {
		if f != nil {
			r.fallback = f
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Resolver probing fsys.
func New(fsys FileSystem, opts ...Option) *Resolver {
	r := &Resolver{
		fs:       fsys,
		fallback: NoFallback{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps specifier, imported from containingFile, to a file. A
// failure is a normal outcome reported through ResolvedFile.OK.
func (r *Resolver) Resolve(rc *Context, specifier, containingFile string) ResolvedFile {
	key := resolutionKey{
		profile:        rc.Platform.fingerprint,
		specifier:      specifier,
		containingFile: containingFile,
	}
	if f, ok := rc.Cache.lookup(key); ok {
		return f
	}

	res := r.resolveUncached(rc, specifier, containingFile)
	rc.Cache.store(key, res)
	if !res.OK() {
		r.logger.Debug("import unresolved",
			"specifier", specifier,
			"from", containingFile,
			"platform", rc.Platform.platform,
			"reason", res.Reason.String())
	}
	return res
}

func (r *Resolver) resolveUncached(rc *Context, specifier, containingFile string) ResolvedFile {
	spec, err := ParseSpecifier(specifier)
	if err != nil {
		return unresolved(ReasonInvalidSpecifier)
	}

	reason := ReasonNotFound
	for _, p := range rc.Platform.passes() {
		s := &search{r: r, rc: rc, extensions: p.extensions, declaration: p.class == types.ClassDeclaration}
		var (
			res ResolvedFile
			ok  bool
		)
		if spec.Kind == KindRelative {
			res, ok = s.resolveRelativeSpec(spec, containingFile)
		} else {
			res, ok, reason = s.resolvePackageRef(spec, filepath.Dir(containingFile))
		}
		if ok {
			return res
		}
	}

	if res := r.fallback.ResolveFallback(rc, spec, containingFile); res.OK() {
		return res
	}
	return unresolved(reason)
}

func (s *search) resolveRelativeSpec(spec Specifier, containingFile string) (ResolvedFile, bool) {
	p := filepath.FromSlash(spec.Path)
	if !filepath.IsAbs(p) {
		p = filepath.Join(filepath.Dir(containingFile), p)
	}
	return s.resolveRelative(p)
}

// resolveRelative resolves an absolute module path: file search first, then
// directory handling (embedded package or index).
func (s *search) resolveRelative(modulePath string) (ResolvedFile, bool) {
	res, ok, final := s.resolveFile(modulePath)
	if ok || final {
		return res, ok
	}

	if !s.dirExists(modulePath) {
		return ResolvedFile{}, false
	}
	if s.fileExists(filepath.Join(modulePath, ManifestFileName)) {
		return s.resolvePackageDir(modulePath, "")
	}
	res, ok, _ = s.resolveFile(filepath.Join(modulePath, indexModule))
	return res, ok
}

// resolveFile runs the file-level search for modulePath. final reports that
// the path carried an allowed extension, which ends the search whether or
// not the file exists.
func (s *search) resolveFile(modulePath string) (res ResolvedFile, ok, final bool) {
	stem, ext, hasExt := types.SplitExtension(modulePath)
	if hasExt && s.allows(ext) {
		if s.fileExists(modulePath) {
			return resolvedFile(modulePath, ext), true, true
		}
		return ResolvedFile{}, false, true
	}

	if res, ok := s.probeVariants(modulePath); ok {
		return res, true, false
	}

	if hasExt && ext.IsScript() {
		if res, ok := s.probeVariants(stem); ok {
			return res, true, false
		}
	}
	return ResolvedFile{}, false, false
}

// probeVariants tries every suffix (platform suffixes, then base) and,
// within each suffix, every extension of the pass.
func (s *search) probeVariants(modulePath string) (ResolvedFile, bool) {
	for _, suffix := range s.rc.Platform.SearchSuffixes() {
		for _, ext := range s.extensions {
			candidate := modulePath + string(suffix) + string(ext)
			if s.fileExists(candidate) {
				return resolvedFile(candidate, ext), true
			}
		}
	}
	return ResolvedFile{}, false
}

func (s *search) allows(ext types.Extension) bool {
	for _, e := range s.extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// restrictedToDeclarations returns a copy of s searching only
// declaration-capable extensions, or false when none are allowed.
func (s *search) restrictedToDeclarations() (*search, bool) {
	p, ok := s.rc.Platform.declarationPass()
	if !ok {
		return nil, false
	}
	return &search{r: s.r, rc: s.rc, extensions: p.extensions, declaration: true}, true
}

func (s *search) fileExists(path string) bool {
	found := s.r.fs.FileExists(path)
	if s.rc.Trace != nil {
		s.rc.Trace(path, found)
	}
	return found
}

func (s *search) dirExists(path string) bool {
	found := s.r.fs.DirectoryExists(path)
	if s.rc.Trace != nil {
		s.rc.Trace(path+string(filepath.Separator), found)
	}
	return found
}
