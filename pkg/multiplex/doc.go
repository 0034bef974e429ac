// SPDX-License-Identifier: MPL-2.0

// Package multiplex partitions a flat source file list into per-platform
// build tasks.
//
// Files sharing a base name (platform suffix and extension stripped) form a
// group. For each group every target platform claims the first variant found
// along its suffix precedence list, ending with the unsuffixed base file. A
// claimed file is emitted by the first platform that claims it and
// type-checked by every later one; variants no platform claims are
// type-checked by the first task so nothing in the input escapes checking.
//
// Declaration files (.d.ts) never produce output and are grouped separately
// from the sources they describe.
package multiplex
