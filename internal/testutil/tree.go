// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/spf13/afero"
)

// Tree maps slash-separated paths to file contents. A path ending in "/"
// denotes an empty directory.
type Tree map[string]string

// MustMemFs returns an in-memory filesystem populated with tree. Paths are
// rooted at "/".
func MustMemFs(t testing.TB, tree Tree) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	MustWriteTree(t, fs, "/", tree)
	return fs
}

// MustWriteTree writes tree below root on fs. Paths are written in sorted
// order so directory creation is deterministic.
func MustWriteTree(t testing.TB, fs afero.Fs, root string, tree Tree) {
	t.Helper()
	paths := make([]string, 0, len(tree))
	for p := range tree {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if p[len(p)-1] == '/' {
			if err := fs.MkdirAll(full, 0o755); err != nil {
				t.Fatalf("failed to create directory %s: %v", full, err)
			}
			continue
		}
		if err := fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("failed to create directory %s: %v", filepath.Dir(full), err)
		}
		if err := afero.WriteFile(fs, full, []byte(tree[p]), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", full, err)
		}
	}
}

// MustReadFile reads path from fs and fails the test on error.
func MustReadFile(t testing.TB, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// MustWriteOSTree writes tree below a fresh temporary directory on the host
// filesystem and returns that directory.
func MustWriteOSTree(t testing.TB, tree Tree) string {
	t.Helper()
	dir := t.TempDir()
	MustWriteTree(t, afero.NewOsFs(), dir, tree)
	return dir
}
