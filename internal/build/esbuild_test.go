// SPDX-License-Identifier: MPL-2.0

package build

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/varibuild/varibuild/internal/testutil"
	"github.com/varibuild/varibuild/internal/throttle"
	"github.com/varibuild/varibuild/internal/writebatch"
	"github.com/varibuild/varibuild/pkg/multiplex"
	"github.com/varibuild/varibuild/pkg/resolve"
	"github.com/varibuild/varibuild/pkg/types"
)

var compilerTree = testutil.Tree{
	"proj/src/App.ts":        "import { Widget } from './Widget';\nexport const app = `app:${Widget}`;\n",
	"proj/src/Widget.ts":     "export const Widget: string = 'base';\n",
	"proj/src/Widget.ios.ts": "export const Widget: string = 'ios';\n",
	"proj/src/strings.json":  "{\"title\":\"hi\"}\n",
	"proj/src/types.d.ts":    "export interface Props { a: string }\n",
	"proj/src/Broken.ts":     "import x from './Missing';\nexport default x;\n",
	"proj/src/Syntax.ts":     "export const = ;\n",
	"proj/src/notes.txt":     "",
}

type compilerFixture struct {
	fs       afero.Fs
	batch    *writebatch.Batch
	compiler *ESBuildCompiler
}

func newCompilerFixture(t *testing.T) *compilerFixture {
	t.Helper()

	fs := testutil.MustMemFs(t, compilerTree)
	pc, err := resolve.NewPlatformContext("ios", []types.PlatformSuffix{".ios", ".native"}, nil, nil)
	if err != nil {
		t.Fatalf("NewPlatformContext() error = %v", err)
	}
	batch := writebatch.New(fs, throttle.New(2))
	factory := NewESBuildFactory(ESBuildOptions{
		Fs:       fs,
		Resolver: resolve.New(resolve.NewFileSystem(fs)),
		Root:     "/proj",
		OutDir:   "/proj/lib",
	})
	c, err := factory(&multiplex.BuildTask{Platform: "ios"}, &resolve.Context{Platform: pc}, batch)
	if err != nil {
		t.Fatalf("factory() error = %v", err)
	}
	return &compilerFixture{fs: fs, batch: batch, compiler: c.(*ESBuildCompiler)}
}

func TestESBuildCompiler_Emit(t *testing.T) {
	t.Parallel()

	f := newCompilerFixture(t)
	ctx := t.Context()
	for _, file := range []string{"/proj/src/App.ts", "/proj/src/Widget.ios.ts", "/proj/src/strings.json", "/proj/src/types.d.ts"} {
		if err := f.compiler.Emit(ctx, file); err != nil {
			t.Fatalf("Emit(%s) error = %v", file, err)
		}
	}
	stats, err := f.batch.Finish(ctx)
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if stats.Written != 3 {
		t.Errorf("Written = %d, want 3 (declarations are not emitted)", stats.Written)
	}

	app := testutil.MustReadFile(t, f.fs, "/proj/lib/src/App.js")
	if !strings.Contains(app, "export const app") || !strings.Contains(app, "./Widget") {
		t.Errorf("App.js = %q", app)
	}
	widget := testutil.MustReadFile(t, f.fs, "/proj/lib/src/Widget.ios.js")
	if strings.Contains(widget, ": string") || !strings.Contains(widget, "ios") {
		t.Errorf("Widget.ios.js still typed or wrong: %q", widget)
	}
	if got := testutil.MustReadFile(t, f.fs, "/proj/lib/src/strings.json"); got != compilerTree["proj/src/strings.json"] {
		t.Errorf("strings.json = %q, want verbatim copy", got)
	}
	if ok, _ := afero.Exists(f.fs, "/proj/lib/src/types.js"); ok {
		t.Error("declaration file must not produce output")
	}
}

func TestESBuildCompiler_Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		file       string
		wantErr    bool
		unresolved bool
	}{
		{name: "clean source", file: "/proj/src/App.ts"},
		{name: "declaration", file: "/proj/src/types.d.ts"},
		{name: "missing import", file: "/proj/src/Broken.ts", wantErr: true, unresolved: true},
		{name: "syntax error", file: "/proj/src/Syntax.ts", wantErr: true},
		{name: "missing file", file: "/proj/src/Gone.ts", wantErr: true},
		{name: "unknown extension", file: "/proj/src/notes.txt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newCompilerFixture(t)
			err := f.compiler.Check(t.Context(), tt.file)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Check() error = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrCompileFailed) {
				t.Fatalf("Check() error = %v, want ErrCompileFailed", err)
			}
			var fe *FileError
			if !errors.As(err, &fe) || fe.File != tt.file || len(fe.Diagnostics) == 0 {
				t.Fatalf("expected *FileError for %s, got %v", tt.file, err)
			}
			if got := errors.Is(err, ErrUnresolvedImport); got != tt.unresolved {
				t.Errorf("errors.Is(err, ErrUnresolvedImport) = %v, want %v", got, tt.unresolved)
			}
			if tt.unresolved && fe.Diagnostics[0].Line != 1 {
				t.Errorf("diagnostic line = %d, want 1", fe.Diagnostics[0].Line)
			}
		})
	}
}

func TestESBuildCompiler_CheckWritesNothing(t *testing.T) {
	t.Parallel()

	f := newCompilerFixture(t)
	if err := f.compiler.Check(t.Context(), "/proj/src/App.ts"); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	stats, err := f.batch.Finish(t.Context())
	if err != nil || stats.Queued != 0 {
		t.Errorf("Finish() = %+v, %v; want no writes", stats, err)
	}
}

func TestOutputPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		file    string
		want    string
		wantErr bool
	}{
		{file: "/proj/src/App.ts", want: "/proj/lib/src/App.js"},
		{file: "/proj/src/ui/Button.ios.tsx", want: "/proj/lib/src/ui/Button.ios.js"},
		{file: "/proj/src/legacy.jsx", want: "/proj/lib/src/legacy.js"},
		{file: "/proj/src/strings.json", want: "/proj/lib/src/strings.json"},
		{file: "/proj/src/notes.txt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			t.Parallel()

			got, err := OutputPath("/proj", "/proj/lib", filepath.FromSlash(tt.file))
			if tt.wantErr {
				if !errors.Is(err, types.ErrInvalidExtension) {
					t.Errorf("OutputPath() error = %v, want ErrInvalidExtension", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("OutputPath() error = %v", err)
			}
			if got != filepath.FromSlash(tt.want) {
				t.Errorf("OutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}
