// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"

	"github.com/varibuild/varibuild/internal/writebatch"
	"github.com/varibuild/varibuild/pkg/multiplex"
	"github.com/varibuild/varibuild/pkg/resolve"
	"github.com/varibuild/varibuild/pkg/types"
)

type (
	// ESBuildCompiler checks imports against the platform resolver and
	// emits JavaScript with esbuild. Declaration files are checked but
	// never emitted; JSON files are copied.
	ESBuildCompiler struct {
		fs       afero.Fs
		resolver *resolve.Resolver
		rc       *resolve.Context
		out      *writebatch.Batch
		root     string
		outDir   string
		logger   *slog.Logger
	}

	// ESBuildOptions configures NewESBuildFactory.
	ESBuildOptions struct {
		// Fs is read for sources.
		Fs afero.Fs
		// Resolver resolves imports found in sources.
		Resolver *resolve.Resolver
		// Root is the project root; output paths mirror sources relative to it.
		Root string
		// OutDir is the absolute output directory.
		OutDir string
		Logger *slog.Logger
	}
)

// NewESBuildFactory returns a CompilerFactory producing ESBuildCompilers.
func NewESBuildFactory(opts ESBuildOptions) CompilerFactory {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(task *multiplex.BuildTask, rc *resolve.Context, out *writebatch.Batch) (Compiler, error) {
		if rc == nil {
			return nil, fmt.Errorf("task %q: missing resolution context", task.Platform)
		}
		return &ESBuildCompiler{
			fs:       opts.Fs,
			resolver: opts.Resolver,
			rc:       rc,
			out:      out,
			root:     opts.Root,
			outDir:   opts.OutDir,
			logger:   logger.With("platform", string(task.Platform)),
		}, nil
	}
}

// Check parses file and resolves each of its imports.
func (c *ESBuildCompiler) Check(ctx context.Context, file string) error {
	_, _, err := c.compile(ctx, file, false)
	return err
}

// Emit checks file and writes its output to the mirrored path under the
// output directory.
func (c *ESBuildCompiler) Emit(ctx context.Context, file string) error {
	out, ok, err := c.compile(ctx, file, true)
	if err != nil || !ok {
		return err
	}
	target, err := c.OutputPath(file)
	if err != nil {
		return err
	}
	c.out.Write(target, out)
	return nil
}

// OutputPath maps a source file to its output file: the path relative to
// the project root, under the output directory, with a ".js" extension
// (".json" files keep theirs). Platform suffixes are preserved.
func (c *ESBuildCompiler) OutputPath(file string) (string, error) {
	return OutputPath(c.root, c.outDir, file)
}

// OutputPath maps file under root to its output file under outDir.
func OutputPath(root, outDir, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", fmt.Errorf("output path of %s: %w", file, err)
	}
	stem, ext, ok := types.SplitExtension(rel)
	if !ok {
		return "", fmt.Errorf("output path of %s: %w", file, &types.InvalidExtensionError{Value: types.Extension(filepath.Ext(file))})
	}
	if ext == types.ExtData {
		return filepath.Join(outDir, stem+string(types.ExtData)), nil
	}
	return filepath.Join(outDir, stem+string(types.ExtScript)), nil
}

// compile checks file. When emit is set it also returns the output and
// whether the file produces any.
func (c *ESBuildCompiler) compile(ctx context.Context, file string, emit bool) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	src, err := afero.ReadFile(c.fs, file)
	if err != nil {
		return nil, false, &FileError{File: file, Diagnostics: []Diagnostic{{Text: "cannot read source", Err: err}}}
	}
	_, ext, ok := types.SplitExtension(file)
	if !ok {
		return nil, false, &FileError{File: file, Diagnostics: []Diagnostic{{Text: "unrecognized extension"}}}
	}

	result := api.Transform(string(src), api.TransformOptions{
		Loader:     loaderFor(ext),
		Sourcefile: file,
		Format:     api.FormatESModule,
		Target:     api.ESNext,
	})
	diags := messagesToDiagnostics(result.Errors)

	if ext != types.ExtData {
		for _, imp := range ScanImports(src) {
			res := c.resolver.Resolve(c.rc, imp.Specifier, file)
			if res.OK() {
				continue
			}
			uerr := &UnresolvedImportError{Specifier: imp.Specifier, Reason: res.Reason}
			diags = append(diags, Diagnostic{Line: imp.Line, Text: uerr.Error(), Err: uerr})
		}
	}
	if len(diags) > 0 {
		return nil, false, &FileError{File: file, Diagnostics: diags}
	}

	if !emit || ext == types.ExtDeclaration {
		return nil, false, nil
	}
	c.logger.Debug("emit", "file", file)
	if ext == types.ExtData {
		return src, true, nil
	}
	return result.Code, true, nil
}

func loaderFor(ext types.Extension) api.Loader {
	switch ext {
	case types.ExtDeclaration, types.ExtSource:
		return api.LoaderTS
	case types.ExtSourceJSX:
		return api.LoaderTSX
	case types.ExtScriptJSX:
		return api.LoaderJSX
	case types.ExtData:
		return api.LoaderJSON
	default:
		return api.LoaderJS
	}
}

func messagesToDiagnostics(msgs []api.Message) []Diagnostic {
	diags := make([]Diagnostic, 0, len(msgs))
	for _, m := range msgs {
		d := Diagnostic{Text: m.Text}
		if m.Location != nil {
			d.Line = m.Location.Line
			d.Column = m.Location.Column
		}
		diags = append(diags, d)
	}
	return diags
}
