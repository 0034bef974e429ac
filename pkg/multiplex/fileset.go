// SPDX-License-Identifier: MPL-2.0

package multiplex

import (
	"iter"
	"slices"
)

// FileSet is an insertion-ordered set of file paths. The zero value is an
// empty set ready for use.
type FileSet struct {
	paths []string
	seen  map[string]struct{}
}

// NewFileSet returns a set holding paths in order, duplicates dropped.
func NewFileSet(paths ...string) *FileSet {
	s := &FileSet{}
	for _, p := range paths {
		s.Add(p)
	}
	return s
}

// Add appends path unless it is already present and reports whether it was
// added.
func (s *FileSet) Add(path string) bool {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[path]; ok {
		return false
	}
	s.seen[path] = struct{}{}
	s.paths = append(s.paths, path)
	return true
}

// Contains reports whether path is in the set.
func (s *FileSet) Contains(path string) bool {
	_, ok := s.seen[path]
	return ok
}

// Len returns the number of paths.
func (s *FileSet) Len() int { return len(s.paths) }

// Paths returns a copy of the paths in insertion order.
func (s *FileSet) Paths() []string { return slices.Clone(s.paths) }

// All iterates over the paths in insertion order.
func (s *FileSet) All() iter.Seq[string] { return slices.Values(s.paths) }
