// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path/filepath"
	"slices"
)

// ManifestFileName is the package manifest file name.
const ManifestFileName = "package.json"

var (
	// ErrManifestNotFound is returned when a package directory has no manifest.
	ErrManifestNotFound = errors.New("package manifest not found")
	// ErrInvalidManifest is the sentinel error wrapped by ManifestParseError.
	ErrInvalidManifest = errors.New("invalid package manifest")
)

type (
	// Manifest is the subset of a package manifest the resolver uses.
	Manifest struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Main    string `json:"main"`
		Types   string `json:"types"`
		Typings string `json:"typings"`

		// Dependencies lists the declared dependency names in sorted order.
		Dependencies []string `json:"-"`
	}

	// ManifestParseError is returned when a manifest exists but cannot be decoded.
	ManifestParseError struct {
		Path string
		Err  error
	}

	rawManifest struct {
		Manifest
		Deps map[string]string `json:"dependencies"`
	}
)

// Error implements the error interface.
func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

// Unwrap returns ErrInvalidManifest and the decode error.
func (e *ManifestParseError) Unwrap() []error { return []error{ErrInvalidManifest, e.Err} }

// TypesEntry returns the declared type entry point, preferring "types" over
// "typings".
func (m *Manifest) TypesEntry() string {
	if m.Types != "" {
		return m.Types
	}
	return m.Typings
}

// ReadManifest reads and decodes the manifest of the package rooted at dir.
func ReadManifest(fsys FileSystem, dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFileName)
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ManifestParseError{Path: path, Err: err}
	}
	m := raw.Manifest
	m.Dependencies = slices.Sorted(maps.Keys(raw.Deps))
	return &m, nil
}
