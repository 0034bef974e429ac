// SPDX-License-Identifier: MPL-2.0

package build

import (
	"errors"
	"slices"
	"testing"

	"github.com/varibuild/varibuild/internal/testutil"
)

func TestCollectFiles(t *testing.T) {
	t.Parallel()

	fs := testutil.MustMemFs(t, testutil.Tree{
		"proj/src/App.ts":                  "",
		"proj/src/App.ios.ts":              "",
		"proj/src/data.json":               "{}",
		"proj/src/README.md":               "",
		"proj/src/__tests__/App.test.ts":   "",
		"proj/src/node_modules/x/index.js": "",
		"proj/lib/App.js":                  "",
	})

	got, err := CollectFiles(fs, "/proj",
		[]string{"src/**/*.{ts,tsx,js,json}"},
		[]string{"**/__tests__/**", "lib/**"})
	if err != nil {
		t.Fatalf("CollectFiles() error = %v", err)
	}
	want := []string{"/proj/src/App.ios.ts", "/proj/src/App.ts", "/proj/src/data.json"}
	if !slices.Equal(got, want) {
		t.Errorf("CollectFiles() = %v, want %v", got, want)
	}
}

func TestCollectFiles_InvalidPattern(t *testing.T) {
	t.Parallel()

	fs := testutil.MustMemFs(t, testutil.Tree{"proj/src/App.ts": ""})
	_, err := CollectFiles(fs, "/proj", []string{"src/**/*.{ts"}, nil)
	if !errors.Is(err, ErrInvalidGlob) {
		t.Errorf("CollectFiles() error = %v, want ErrInvalidGlob", err)
	}
}
