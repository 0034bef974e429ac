// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidPlatformName is the sentinel error wrapped by InvalidPlatformNameError.
	ErrInvalidPlatformName = errors.New("invalid platform name")
	// ErrInvalidPlatformSuffix is the sentinel error wrapped by InvalidPlatformSuffixError.
	ErrInvalidPlatformSuffix = errors.New("invalid platform suffix")

	platformNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
)

type (
	// PlatformName identifies a build target, e.g. "ios" or "windows".
	// Names are lowercase, start with a letter and contain only
	// letters, digits, '-' and '_'.
	PlatformName string

	// InvalidPlatformNameError is returned when a PlatformName does not match
	// the naming rules.
	InvalidPlatformNameError struct {
		Value PlatformName
	}

	// PlatformSuffix is a file name fragment such as ".ios" that marks a
	// platform-specific variant. The zero value is the base (unsuffixed)
	// variant.
	PlatformSuffix string

	// InvalidPlatformSuffixError is returned when a PlatformSuffix is not
	// a single dot-prefixed path-free fragment.
	InvalidPlatformSuffixError struct {
		Value PlatformSuffix
	}
)

// String returns the platform name.
func (n PlatformName) String() string { return string(n) }

// Validate returns an error if the name does not match the naming rules.
func (n PlatformName) Validate() error {
	if !platformNamePattern.MatchString(string(n)) {
		return &InvalidPlatformNameError{Value: n}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidPlatformNameError) Error() string {
	return fmt.Sprintf("invalid platform name %q: must match %s", e.Value, platformNamePattern)
}

// Unwrap returns ErrInvalidPlatformName for errors.Is() compatibility.
func (e *InvalidPlatformNameError) Unwrap() error { return ErrInvalidPlatformName }

// String returns the suffix.
func (s PlatformSuffix) String() string { return string(s) }

// IsBase reports whether s is the unsuffixed base variant.
func (s PlatformSuffix) IsBase() bool { return s == "" }

// Validate returns an error unless s is empty or a dot followed by at
// least one character that is neither a dot nor a path separator.
func (s PlatformSuffix) Validate() error {
	if s == "" {
		return nil
	}
	str := string(s)
	if len(str) < 2 || str[0] != '.' || strings.ContainsAny(str[1:], `./\`) {
		return &InvalidPlatformSuffixError{Value: s}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidPlatformSuffixError) Error() string {
	return fmt.Sprintf("invalid platform suffix %q: must look like \".ios\"", e.Value)
}

// Unwrap returns ErrInvalidPlatformSuffix for errors.Is() compatibility.
func (e *InvalidPlatformSuffixError) Unwrap() error { return ErrInvalidPlatformSuffix }
