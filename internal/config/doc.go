// SPDX-License-Identifier: MPL-2.0

// Package config loads the build configuration using Viper with CUE as the
// file format.
//
// Values are layered, lowest precedence first: built-in defaults,
// varibuild.cue in the project directory (validated against the embedded
// config_schema.cue), the project's .env file, then VARIBUILD_* variables
// in the process environment. The merged result is validated once more
// for constraints the schema cannot express, such as project references.
package config
