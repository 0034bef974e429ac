// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// KindRelative is a specifier starting with "./", "../" or an absolute path.
	KindRelative SpecifierKind = iota + 1
	// KindPackage is a reference to an installed package.
	KindPackage
)

// typesScope is the conventional scope of type-only packages.
const typesScope = "@types"

// ErrInvalidSpecifier is the sentinel error wrapped by InvalidSpecifierError.
var ErrInvalidSpecifier = errors.New("invalid module specifier")

type (
	// SpecifierKind distinguishes relative references from package references.
	SpecifierKind int

	// Specifier is a parsed import string.
	Specifier struct {
		// Raw is the import string as written.
		Raw string
		// Kind selects which of the fields below are meaningful.
		Kind SpecifierKind

		// Path is the relative or absolute path of a KindRelative specifier.
		Path string

		// Scope is the "@scope" part of a scoped package, or empty.
		Scope string
		// Name is the package name without its scope.
		Name string
		// Subpath is the slash-separated path after the package name, or empty.
		Subpath string
	}

	// InvalidSpecifierError is returned for specifiers that cannot name a module.
	InvalidSpecifierError struct {
		Raw    string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidSpecifierError) Error() string {
	return fmt.Sprintf("invalid module specifier %q: %s", e.Raw, e.Reason)
}

// Unwrap returns ErrInvalidSpecifier for errors.Is() compatibility.
func (e *InvalidSpecifierError) Unwrap() error { return ErrInvalidSpecifier }

// ParseSpecifier parses raw into a relative or package reference.
func ParseSpecifier(raw string) (Specifier, error) {
	if strings.TrimSpace(raw) == "" {
		return Specifier{}, &InvalidSpecifierError{Raw: raw, Reason: "empty"}
	}
	if isRelative(raw) {
		return Specifier{Raw: raw, Kind: KindRelative, Path: raw}, nil
	}

	spec := Specifier{Raw: raw, Kind: KindPackage}
	rest := raw
	if strings.HasPrefix(rest, "@") {
		scope, after, ok := strings.Cut(rest, "/")
		if !ok || len(scope) < 2 {
			return Specifier{}, &InvalidSpecifierError{Raw: raw, Reason: "scoped package without a name"}
		}
		spec.Scope = scope
		rest = after
	}
	name, subpath, _ := strings.Cut(rest, "/")
	if name == "" || name == "." || name == ".." {
		return Specifier{}, &InvalidSpecifierError{Raw: raw, Reason: "missing package name"}
	}
	spec.Name = name
	spec.Subpath = strings.TrimSuffix(subpath, "/")
	return spec, nil
}

// PackageName returns "@scope/name" or "name".
func (s Specifier) PackageName() string {
	if s.Scope == "" {
		return s.Name
	}
	return s.Scope + "/" + s.Name
}

// String returns the specifier in import-string form.
func (s Specifier) String() string {
	if s.Kind == KindRelative {
		return s.Path
	}
	if s.Subpath == "" {
		return s.PackageName()
	}
	return s.PackageName() + "/" + s.Subpath
}

// IsTypesPackage reports whether s already refers to an @types package.
func (s Specifier) IsTypesPackage() bool {
	return s.Kind == KindPackage && s.Scope == typesScope
}

// TypesPackage returns the type-only companion of a package reference:
// "react" becomes "@types/react" and "@babel/core" becomes
// "@types/babel__core". The subpath is preserved.
func (s Specifier) TypesPackage() Specifier {
	name := s.Name
	if s.Scope != "" {
		name = strings.TrimPrefix(s.Scope, "@") + "__" + s.Name
	}
	t := Specifier{Kind: KindPackage, Scope: typesScope, Name: name, Subpath: s.Subpath}
	t.Raw = t.String()
	return t
}

// withPackageName replaces the package identity of s with the parsed
// package name, keeping the subpath.
func (s Specifier) withPackageName(pkg string) (Specifier, error) {
	parsed, err := ParseSpecifier(pkg)
	if err != nil {
		return s, err
	}
	if parsed.Kind != KindPackage || parsed.Subpath != "" {
		return s, &InvalidSpecifierError{Raw: pkg, Reason: "remap target must be a bare package name"}
	}
	out := Specifier{Kind: KindPackage, Scope: parsed.Scope, Name: parsed.Name, Subpath: s.Subpath}
	out.Raw = out.String()
	return out, nil
}

func isRelative(raw string) bool {
	switch {
	case raw == "." || raw == "..":
		return true
	case strings.HasPrefix(raw, "./"), strings.HasPrefix(raw, "../"), strings.HasPrefix(raw, "/"):
		return true
	default:
		return filepath.IsAbs(raw)
	}
}
