// SPDX-License-Identifier: MPL-2.0

package multiplex

import (
	"cmp"
	"slices"
	"strings"

	"github.com/varibuild/varibuild/pkg/types"
)

// Variant statuses. A variant starts found and moves to built or checked
// when a task takes it.
const (
	StatusFound Status = iota
	StatusBuilt
	StatusChecked
)

// Group markers keep files that produce a different output than a source
// of the same stem in their own group: declarations emit nothing and data
// files are copied under their own name. Markers start with a NUL byte,
// which no path contains, so a marked key never equals a real stem.
const (
	declarationGroupMarker = "\x00d.ts"
	dataGroupMarker        = "\x00json"
)

type (
	// Status is the lifecycle state of a Variant within one multiplex run.
	Status int

	// Variant is one file of a group together with its state.
	Variant struct {
		File   string
		Suffix types.PlatformSuffix
		Status Status
	}

	// FileClassification holds the variants of one group, keyed by platform
	// suffix. The base file is stored under the empty suffix. Files whose
	// key is already taken are kept as extras; no platform can claim them.
	FileClassification struct {
		Key      string
		variants map[types.PlatformSuffix]*Variant
		order    []*Variant
	}

	// Grouper derives group keys from file names for a fixed suffix set.
	Grouper struct {
		// suffixes is sorted longest first so ".windows" wins over ".win".
		suffixes []types.PlatformSuffix
	}
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusBuilt:
		return "built"
	case StatusChecked:
		return "checked"
	default:
		return "unknown"
	}
}

// NewGrouper returns a Grouper recognizing the union of the suffixes of
// platforms. Suffixes of other platforms are treated as part of the base
// name.
func NewGrouper(platforms []Platform) *Grouper {
	var suffixes []types.PlatformSuffix
	for _, p := range platforms {
		for _, s := range p.Suffixes {
			if !s.IsBase() && !slices.Contains(suffixes, s) {
				suffixes = append(suffixes, s)
			}
		}
	}
	slices.SortStableFunc(suffixes, func(a, b types.PlatformSuffix) int {
		return cmp.Compare(len(b), len(a))
	})
	return &Grouper{suffixes: suffixes}
}

// Split returns the group key of file and the platform suffix it carries.
// Files of one group share an output identity once their platform suffix
// is removed. Files without a recognized extension form a group of
// their own.
func (g *Grouper) Split(file string) (key string, suffix types.PlatformSuffix) {
	stem, ext, ok := types.SplitExtension(file)
	if !ok {
		return file, ""
	}
	key = stem
	for _, s := range g.suffixes {
		if base, found := strings.CutSuffix(stem, string(s)); found && base != "" && !strings.HasSuffix(base, "/") {
			key, suffix = base, s
			break
		}
	}
	switch ext {
	case types.ExtDeclaration:
		key += declarationGroupMarker
	case types.ExtData:
		key += dataGroupMarker
	}
	return key, suffix
}

// Key returns the group key of file.
func (g *Grouper) Key(file string) string {
	key, _ := g.Split(file)
	return key
}

// newClassification returns an empty classification for group key.
func newClassification(key string) *FileClassification {
	return &FileClassification{Key: key, variants: make(map[types.PlatformSuffix]*Variant)}
}

// add records file under suffix. It reports false for a file already in
// the group.
func (c *FileClassification) add(file string, suffix types.PlatformSuffix) bool {
	for _, v := range c.order {
		if v.File == file {
			return false
		}
	}
	v := &Variant{File: file, Suffix: suffix}
	c.order = append(c.order, v)
	if _, taken := c.variants[suffix]; !taken {
		c.variants[suffix] = v
	}
	return true
}

// Lookup returns the variant stored under suffix.
func (c *FileClassification) Lookup(suffix types.PlatformSuffix) (*Variant, bool) {
	v, ok := c.variants[suffix]
	return v, ok
}

// Select walks searchSuffixes in order and returns the first variant present.
func (c *FileClassification) Select(searchSuffixes []types.PlatformSuffix) (*Variant, bool) {
	for _, s := range searchSuffixes {
		if v, ok := c.variants[s]; ok {
			return v, true
		}
	}
	return nil, false
}

// Unclaimed returns the variants still in StatusFound, in input order.
func (c *FileClassification) Unclaimed() []*Variant {
	var out []*Variant
	for _, v := range c.order {
		if v.Status == StatusFound {
			out = append(out, v)
		}
	}
	return out
}

// Len returns the number of files in the group.
func (c *FileClassification) Len() int { return len(c.order) }
