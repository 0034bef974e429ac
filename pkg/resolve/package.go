// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"errors"
	"path/filepath"
)

// resolvePackageRef resolves a package reference found in a file under
// containingDir. The platform remap is applied before anything else; when
// the package itself cannot satisfy the import the matching @types package
// is tried.
func (s *search) resolvePackageRef(spec Specifier, containingDir string) (ResolvedFile, bool, FailureReason) {
	if target, ok := s.rc.Platform.Remap(spec.PackageName()); ok {
		remapped, err := spec.withPackageName(target)
		if err != nil {
			s.r.logger.Warn("ignoring invalid package remap", "package", spec.PackageName(), "target", target, "error", err)
		} else {
			spec = remapped
		}
	}

	res, ok, installed := s.resolvePackageOnce(spec, containingDir)
	if ok {
		return res, true, ReasonNone
	}
	if !spec.IsTypesPackage() {
		var typesInstalled bool
		res, ok, typesInstalled = s.resolvePackageOnce(spec.TypesPackage(), containingDir)
		if ok {
			return res, true, ReasonNone
		}
		installed = installed || typesInstalled
	}
	if !installed {
		return ResolvedFile{}, false, ReasonPackageNotFound
	}
	return ResolvedFile{}, false, ReasonNotFound
}

// resolvePackageOnce locates the package directory and resolves within it.
// installed reports whether the package directory was found at all.
func (s *search) resolvePackageOnce(spec Specifier, containingDir string) (res ResolvedFile, ok, installed bool) {
	pkgDir, found := s.findPackageDir(spec, containingDir)
	if !found {
		return ResolvedFile{}, false, false
	}

	if res, ok := s.resolvePackageDir(pkgDir, spec.Subpath); ok {
		return res, true, true
	}
	if spec.Subpath == "" || !s.declaration {
		return ResolvedFile{}, false, true
	}

	// Hand-written type files need not mirror the source layout: try the
	// subpath next to the types entry, then the package entry itself.
	decl, ok := s.restrictedToDeclarations()
	if !ok {
		return ResolvedFile{}, false, true
	}
	if m, err := s.manifest(pkgDir); err == nil && m.TypesEntry() != "" {
		typesDir := filepath.Dir(filepath.Join(pkgDir, filepath.FromSlash(m.TypesEntry())))
		if res, ok, _ := decl.resolveFile(filepath.Join(typesDir, filepath.FromSlash(spec.Subpath))); ok {
			return res, true, true
		}
	}
	res, ok = decl.resolvePackageDir(pkgDir, "")
	return res, ok, true
}

// findPackageDir walks from dir up to the filesystem root looking for
// node_modules/<scope>/<name>.
func (s *search) findPackageDir(spec Specifier, dir string) (string, bool) {
	rel := filepath.FromSlash(spec.PackageName())
	for {
		if filepath.Base(dir) != DependencyDirName {
			candidate := filepath.Join(dir, DependencyDirName, rel)
			if s.dirExists(candidate) {
				return candidate, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// resolvePackageDir resolves inside a package directory. With a subpath the
// subpath is searched like a relative reference; without one the manifest
// entry points are used.
func (s *search) resolvePackageDir(pkgDir, subpath string) (ResolvedFile, bool) {
	if s.depth >= maxPackageDepth {
		return ResolvedFile{}, false
	}
	s.depth++
	defer func() { s.depth-- }()

	if subpath != "" {
		return s.resolveRelative(filepath.Join(pkgDir, filepath.FromSlash(subpath)))
	}

	m, err := s.manifest(pkgDir)
	switch {
	case errors.Is(err, ErrManifestNotFound):
		m = &Manifest{}
	case err != nil:
		s.r.logger.Debug("unreadable package manifest", "dir", pkgDir, "error", err)
		return ResolvedFile{}, false
	}

	if s.declaration {
		if res, ok := s.resolveEntry(pkgDir, m.TypesEntry()); ok {
			return res, true
		}
	}
	if res, ok := s.resolveEntry(pkgDir, m.Main); ok {
		return res, true
	}
	res, ok, _ := s.resolveFile(filepath.Join(pkgDir, indexModule))
	return res, ok
}

// resolveEntry resolves a manifest entry point. Entries pointing back at the
// package directory itself are ignored.
func (s *search) resolveEntry(pkgDir, entry string) (ResolvedFile, bool) {
	if entry == "" {
		return ResolvedFile{}, false
	}
	p := filepath.Join(pkgDir, filepath.FromSlash(entry))
	if p == filepath.Clean(pkgDir) {
		return ResolvedFile{}, false
	}
	return s.resolveRelative(p)
}

func (s *search) manifest(dir string) (*Manifest, error) {
	return s.rc.Cache.manifest(s.r.fs, dir)
}
