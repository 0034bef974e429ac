// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

// DependencyDirName is the directory that holds installed packages.
const DependencyDirName = "node_modules"

type (
	// FileSystem is the read-only probe the resolver runs against. The
	// resolver never reads file contents other than package manifests and
	// never writes.
	FileSystem interface {
		FileExists(path string) bool
		DirectoryExists(path string) bool
		ReadFile(path string) ([]byte, error)
	}

	aferoProbe struct {
		fs afero.Fs
	}
)

// NewFileSystem adapts an afero filesystem to the resolver probe.
func NewFileSystem(fs afero.Fs) FileSystem {
	return &aferoProbe{fs: fs}
}

func (p *aferoProbe) FileExists(path string) bool {
	info, err := p.fs.Stat(path)
	return err == nil && !info.IsDir()
}

func (p *aferoProbe) DirectoryExists(path string) bool {
	ok, err := afero.DirExists(p.fs, path)
	return err == nil && ok
}

func (p *aferoProbe) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(p.fs, path)
}

// IsExternalPath reports whether path lies under a dependency-installation
// directory.
func IsExternalPath(path string) bool {
	return slices.Contains(strings.Split(filepath.ToSlash(path), "/"), DependencyDirName)
}
