// SPDX-License-Identifier: MPL-2.0

package build

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/varibuild/varibuild/pkg/types"
)

// ErrInvalidGlob is returned for malformed include or exclude patterns.
var ErrInvalidGlob = errors.New("invalid glob pattern")

// skippedDirs are never descended into.
var skippedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// CollectFiles walks root and returns the absolute paths of files with a
// recognized extension whose root-relative path matches an include pattern
// and no exclude pattern. Paths are sorted.
func CollectFiles(fs afero.Fs, root string, include, exclude []string) ([]string, error) {
	for _, pat := range slices.Concat(include, exclude) {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidGlob, pat)
		}
	}

	var files []string
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && skippedDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if _, _, ok := types.SplitExtension(info.Name()); !ok {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if matchAny(include, rel) && !matchAny(exclude, rel) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect sources under %s: %w", root, err)
	}
	slices.Sort(files)
	return files, nil
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}
