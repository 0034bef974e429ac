// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for varibuild.
//
// The command tree is built by NewRootCommand from an App, which carries the
// configuration provider and the output streams. Subcommands load the
// configuration, construct a build.Builder and delegate to it; rendering of
// reports and errors stays in this package.
package cmd
