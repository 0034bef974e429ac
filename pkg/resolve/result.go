// SPDX-License-Identifier: MPL-2.0

package resolve

import "github.com/varibuild/varibuild/pkg/types"

// Reasons a specifier was left unresolved.
const (
	ReasonNone FailureReason = iota
	ReasonInvalidSpecifier
	ReasonNotFound
	ReasonPackageNotFound
)

type (
	// FailureReason explains an unresolved result.
	FailureReason int

	// ResolvedFile is the outcome of a resolution. The zero value is the
	// failure sentinel; use OK to tell them apart.
	ResolvedFile struct {
		// Path is the absolute path of the file that satisfied the import.
		Path string
		// Extension is the recognized extension of Path.
		Extension types.Extension
		// IsExternal is true when Path lies under a dependency directory.
		IsExternal bool
		// Reason is set on failures.
		Reason FailureReason
	}
)

// OK reports whether the import was resolved to a file.
func (f ResolvedFile) OK() bool { return f.Path != "" }

// String returns the path, or "<unresolved>".
func (f ResolvedFile) String() string {
	if !f.OK() {
		return "<unresolved: " + f.Reason.String() + ">"
	}
	return f.Path
}

// String returns a short description of the reason.
func (r FailureReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonInvalidSpecifier:
		return "invalid specifier"
	case ReasonNotFound:
		return "no matching file"
	case ReasonPackageNotFound:
		return "package not installed"
	default:
		return "unknown"
	}
}

func unresolved(reason FailureReason) ResolvedFile {
	return ResolvedFile{Reason: reason}
}

func resolvedFile(path string, ext types.Extension) ResolvedFile {
	return ResolvedFile{Path: path, Extension: ext, IsExternal: IsExternalPath(path)}
}
