// SPDX-License-Identifier: MPL-2.0

// Package resolve maps import specifiers to files on disk for a codebase
// that ships platform variants of the same logical module.
//
// A module "Widget" may exist as Widget.ts, Widget.ios.ts and
// Widget.native.ts. For a given [PlatformContext] the [Resolver] probes
// platform suffixes before the unsuffixed base file and, within each suffix
// level, extensions in precedence order:
//
//	suffix ".ios"    -> .d.ts .ts .tsx
//	suffix ".native" -> .d.ts .ts .tsx
//	suffix ""        -> .d.ts .ts .tsx
//
// Precedence is always (suffix rank, extension rank). A search runs in up
// to three passes, one per extension class (declaration-capable, script,
// data), so a generic Widget.ts is found by the first pass before a
// Widget.ios.js is ever considered.
//
// Package specifiers walk up the directory tree looking for a
// node_modules/<name> directory, then honor the package manifest's
// "types"/"typings" and "main" entry points before falling back to index
// files and finally to the matching @types package.
//
// Results are memoized in a [Cache] that is partitioned by project root.
// The cache is an explicit object: callers create one per build invocation
// and pass it to each [Context].
package resolve
