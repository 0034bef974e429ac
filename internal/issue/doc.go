// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing errors with remediation hints and a
// catalog of Markdown guides rendered for the terminal.
package issue
