// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

// Recognized source extensions, in default precedence order.
const (
	ExtDeclaration Extension = ".d.ts"
	ExtSource      Extension = ".ts"
	ExtSourceJSX   Extension = ".tsx"
	ExtScript      Extension = ".js"
	ExtScriptJSX   Extension = ".jsx"
	ExtData        Extension = ".json"
)

// Extension classes. A resolution pass searches one class at a time.
const (
	ClassUnknown ExtensionClass = iota
	ClassDeclaration
	ClassScript
	ClassData
)

// ErrInvalidExtension is the sentinel error wrapped by InvalidExtensionError.
var ErrInvalidExtension = errors.New("invalid extension")

// knownExtensions is ordered longest-first so ".d.ts" is matched before ".ts".
var knownExtensions = []Extension{ExtDeclaration, ExtSourceJSX, ExtScriptJSX, ExtData, ExtSource, ExtScript}

type (
	// Extension is a recognized file extension including the leading dot.
	Extension string

	// ExtensionClass groups extensions that are searched together.
	ExtensionClass int

	// InvalidExtensionError is returned for extensions outside the recognized set.
	InvalidExtensionError struct {
		Value Extension
	}
)

// DefaultExtensions returns the full precedence list:
// type-declaration > source > source-with-JSX > plain-script > script-with-JSX > data.
func DefaultExtensions() []Extension {
	return []Extension{ExtDeclaration, ExtSource, ExtSourceJSX, ExtScript, ExtScriptJSX, ExtData}
}

// String returns the extension including its dot.
func (e Extension) String() string { return string(e) }

// Validate returns an error unless e is one of the recognized extensions.
func (e Extension) Validate() error {
	if e.Class() == ClassUnknown {
		return &InvalidExtensionError{Value: e}
	}
	return nil
}

// Class returns the extension class of e.
func (e Extension) Class() ExtensionClass {
	switch e {
	case ExtDeclaration, ExtSource, ExtSourceJSX:
		return ClassDeclaration
	case ExtScript, ExtScriptJSX:
		return ClassScript
	case ExtData:
		return ClassData
	default:
		return ClassUnknown
	}
}

// IsDeclarationCapable reports whether files with this extension may carry
// type information.
func (e Extension) IsDeclarationCapable() bool { return e.Class() == ClassDeclaration }

// IsScript reports whether e is a plain-script extension.
func (e Extension) IsScript() bool { return e.Class() == ClassScript }

// Error implements the error interface.
func (e *InvalidExtensionError) Error() string {
	return fmt.Sprintf("invalid extension %q: not a recognized source extension", e.Value)
}

// Unwrap returns ErrInvalidExtension for errors.Is() compatibility.
func (e *InvalidExtensionError) Unwrap() error { return ErrInvalidExtension }

// String returns a short name for the class.
func (c ExtensionClass) String() string {
	switch c {
	case ClassDeclaration:
		return "declaration"
	case ClassScript:
		return "script"
	case ClassData:
		return "data"
	default:
		return "unknown"
	}
}

// SplitExtension splits a recognized extension off name. It reports false
// when name does not end in a recognized extension.
func SplitExtension(name string) (stem string, ext Extension, ok bool) {
	for _, e := range knownExtensions {
		if s, found := strings.CutSuffix(name, string(e)); found && s != "" && !strings.HasSuffix(s, "/") {
			return s, e, true
		}
	}
	return name, "", false
}
