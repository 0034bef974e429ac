// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/varibuild/varibuild/pkg/types"
)

// ErrInvalidPlatformContext is the sentinel error wrapped by InvalidPlatformContextError.
var ErrInvalidPlatformContext = errors.New("invalid platform context")

type (
	// PlatformContext is the immutable search profile of one build task.
	PlatformContext struct {
		platform   types.PlatformName
		suffixes   []types.PlatformSuffix
		extensions []types.Extension
		remap      map[string]string
		// fingerprint identifies the search profile in cache keys.
		fingerprint string
	}

	// InvalidPlatformContextError collects field-level validation errors.
	InvalidPlatformContextError struct {
		FieldErrors []error
	}

	// Context binds a PlatformContext to a cache table for resolution calls.
	Context struct {
		Platform PlatformContext
		// Cache memoizes results; nil disables memoization. Contexts with
		// different profiles may share one table.
		Cache *RootCache
		// Trace, when set, receives every probed file or directory path.
		Trace func(path string, found bool)
	}

	// pass is one extension class searched by a resolution.
	pass struct {
		class      types.ExtensionClass
		extensions []types.Extension
	}
)

// NewPlatformContext validates and copies its inputs. suffixes lists the
// platform suffixes highest precedence first; the base suffix is implied
// and must not be listed. An empty extension list selects
// types.DefaultExtensions.
func NewPlatformContext(
	platform types.PlatformName,
	suffixes []types.PlatformSuffix,
	extensions []types.Extension,
	remap map[string]string,
) (PlatformContext, error) {
	var errs []error
	if platform != "" {
		if err := platform.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, s := range suffixes {
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
		} else if s.IsBase() {
			errs = append(errs, fmt.Errorf("suffix list of %q must not contain the base suffix", platform))
		}
	}
	if len(extensions) == 0 {
		extensions = types.DefaultExtensions()
	}
	for _, e := range extensions {
		if err := e.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return PlatformContext{}, &InvalidPlatformContextError{FieldErrors: errs}
	}

	return PlatformContext{
		platform:    platform,
		suffixes:    slices.Clone(suffixes),
		extensions:  slices.Clone(extensions),
		remap:       maps.Clone(remap),
		fingerprint: fingerprint(platform, suffixes, extensions, remap),
	}, nil
}

// fingerprint renders every field that can change a resolution result, so
// contexts sharing a name but not a profile never share cache entries.
func fingerprint(
	platform types.PlatformName,
	suffixes []types.PlatformSuffix,
	extensions []types.Extension,
	remap map[string]string,
) string {
	var sb strings.Builder
	sb.WriteString(string(platform))
	sb.WriteByte(0)
	for _, s := range suffixes {
		sb.WriteString(string(s))
		sb.WriteByte(',')
	}
	sb.WriteByte(0)
	for _, e := range extensions {
		sb.WriteString(string(e))
		sb.WriteByte(',')
	}
	sb.WriteByte(0)
	for _, from := range slices.Sorted(maps.Keys(remap)) {
		sb.WriteString(from)
		sb.WriteByte('=')
		sb.WriteString(remap[from])
		sb.WriteByte(',')
	}
	return sb.String()
}

// Error implements the error interface.
func (e *InvalidPlatformContextError) Error() string {
	return fmt.Sprintf("invalid platform context: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidPlatformContext followed by the field errors.
func (e *InvalidPlatformContextError) Unwrap() []error {
	return append([]error{ErrInvalidPlatformContext}, e.FieldErrors...)
}

// Platform returns the platform name; empty for a platform-agnostic build.
func (pc PlatformContext) Platform() types.PlatformName { return pc.platform }

// Suffixes returns a copy of the platform suffixes, highest precedence first.
func (pc PlatformContext) Suffixes() []types.PlatformSuffix { return slices.Clone(pc.suffixes) }

// SearchSuffixes returns the platform suffixes followed by the base suffix.
func (pc PlatformContext) SearchSuffixes() []types.PlatformSuffix {
	return append(slices.Clone(pc.suffixes), "")
}

// AllowedExtensions returns a copy of the extension precedence list.
func (pc PlatformContext) AllowedExtensions() []types.Extension { return slices.Clone(pc.extensions) }

// Remap returns the replacement for package name pkg.
func (pc PlatformContext) Remap(pkg string) (string, bool) {
	r, ok := pc.remap[pkg]
	return r, ok
}

// passes partitions the allowed extensions by class, keeping their
// precedence order within each class. Passes run declaration, script, data.
func (pc PlatformContext) passes() []pass {
	var out []pass
	for _, class := range []types.ExtensionClass{types.ClassDeclaration, types.ClassScript, types.ClassData} {
		var exts []types.Extension
		for _, e := range pc.extensions {
			if e.Class() == class {
				exts = append(exts, e)
			}
		}
		if len(exts) > 0 {
			out = append(out, pass{class: class, extensions: exts})
		}
	}
	return out
}

// declarationPass returns the declaration-capable pass, if any extension of
// that class is allowed.
func (pc PlatformContext) declarationPass() (pass, bool) {
	for _, p := range pc.passes() {
		if p.class == types.ClassDeclaration {
			return p, true
		}
	}
	return pass{}, false
}
