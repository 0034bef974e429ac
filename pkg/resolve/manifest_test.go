// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"errors"
	"slices"
	"testing"

	"github.com/varibuild/varibuild/internal/testutil"
)

func TestReadManifest(t *testing.T) {
	t.Parallel()

	fsys := NewFileSystem(testutil.MustMemFs(t, testutil.Tree{
		"pkg/ok/package.json": `{
			"name": "ok",
			"version": "1.2.3",
			"main": "lib/index.js",
			"typings": "lib/index.d.ts",
			"dependencies": {"zeta": "^1.0.0", "alpha": "2.x"}
		}`,
		"pkg/both/package.json":   `{"types": "a.d.ts", "typings": "b.d.ts"}`,
		"pkg/broken/package.json": `{"name": `,
		"pkg/none/index.js":       "",
	}))

	t.Run("decodes used fields", func(t *testing.T) {
		t.Parallel()
		m, err := ReadManifest(fsys, "/pkg/ok")
		if err != nil {
			t.Fatalf("ReadManifest() error = %v", err)
		}
		if m.Name != "ok" || m.Version != "1.2.3" || m.Main != "lib/index.js" {
			t.Errorf("ReadManifest() = %+v", m)
		}
		if m.TypesEntry() != "lib/index.d.ts" {
			t.Errorf("TypesEntry() = %q, want lib/index.d.ts", m.TypesEntry())
		}
		if !slices.Equal(m.Dependencies, []string{"alpha", "zeta"}) {
			t.Errorf("Dependencies = %v, want sorted names", m.Dependencies)
		}
	})

	t.Run("types preferred over typings", func(t *testing.T) {
		t.Parallel()
		m, err := ReadManifest(fsys, "/pkg/both")
		if err != nil {
			t.Fatalf("ReadManifest() error = %v", err)
		}
		if m.TypesEntry() != "a.d.ts" {
			t.Errorf("TypesEntry() = %q, want a.d.ts", m.TypesEntry())
		}
	})

	t.Run("missing manifest", func(t *testing.T) {
		t.Parallel()
		if _, err := ReadManifest(fsys, "/pkg/none"); !errors.Is(err, ErrManifestNotFound) {
			t.Errorf("ReadManifest() error = %v, want ErrManifestNotFound", err)
		}
	})

	t.Run("unparsable manifest", func(t *testing.T) {
		t.Parallel()
		_, err := ReadManifest(fsys, "/pkg/broken")
		if !errors.Is(err, ErrInvalidManifest) {
			t.Fatalf("ReadManifest() error = %v, want ErrInvalidManifest", err)
		}
		var parseErr *ManifestParseError
		if !errors.As(err, &parseErr) || parseErr.Path != "/pkg/broken/package.json" {
			t.Errorf("ReadManifest() error = %#v, want *ManifestParseError for the manifest path", err)
		}
	})
}

func TestIsExternalPath(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"/proj/node_modules/react/index.js":       true,
		"/proj/src/node_modules/local/index.ts":   true,
		"/proj/src/App.ts":                        false,
		"/proj/src/my_node_modules_notes/file.ts": false,
	}
	for path, want := range tests {
		if got := IsExternalPath(path); got != want {
			t.Errorf("IsExternalPath(%q) = %v, want %v", path, got, want)
		}
	}
}
