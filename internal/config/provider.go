// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/varibuild/varibuild/pkg/types"
)

// ErrInvalidLoadOptions is the sentinel error wrapped by InvalidLoadOptionsError.
var ErrInvalidLoadOptions = errors.New("invalid load options")

type (
	// LoadOptions defines explicit configuration loading inputs.
	LoadOptions struct {
		// ConfigFilePath forces loading from a specific file when set.
		ConfigFilePath types.FilesystemPath
		// BaseDir is the project directory searched for varibuild.cue and
		// .env; the working directory when empty.
		BaseDir types.FilesystemPath
		// EnvFilePath overrides the dotenv file location.
		EnvFilePath types.FilesystemPath
	}

	// InvalidLoadOptionsError collects field-level validation errors.
	InvalidLoadOptionsError struct {
		FieldErrors []error
	}

	// Provider loads configuration from explicit options.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	fileProvider struct{}
)

// NewProvider creates a configuration provider reading from disk.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	return loadWithOptions(ctx, opts)
}

// Validate rejects whitespace-only paths. Empty paths mean "use the default".
func (o LoadOptions) Validate() error {
	var errs []error
	for _, p := range []types.FilesystemPath{o.ConfigFilePath, o.BaseDir, o.EnvFilePath} {
		if p == "" {
			continue
		}
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &InvalidLoadOptionsError{FieldErrors: errs}
	}
	return nil
}

// Dir returns the project directory.
func (o LoadOptions) Dir() string {
	if o.BaseDir == "" {
		return "."
	}
	return string(o.BaseDir)
}

func (o LoadOptions) configFile() string {
	if o.ConfigFilePath != "" {
		return string(o.ConfigFilePath)
	}
	return filepath.Join(o.Dir(), ConfigFileName)
}

func (o LoadOptions) envFile() string {
	if o.EnvFilePath != "" {
		return string(o.EnvFilePath)
	}
	return filepath.Join(o.Dir(), EnvFileName)
}

// Error implements the error interface.
func (e *InvalidLoadOptionsError) Error() string {
	return fmt.Sprintf("invalid load options: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidLoadOptions followed by the field errors.
func (e *InvalidLoadOptionsError) Unwrap() []error {
	return append([]error{ErrInvalidLoadOptions}, e.FieldErrors...)
}
