// SPDX-License-Identifier: MPL-2.0

// Package build runs multiplexed platform builds.
//
// A Builder collects the sources of each configured project, partitions
// them into per-platform tasks with the multiplex package and runs the
// tasks concurrently through a Runner. Each task compiles its files one at
// a time; a file's failure is recorded and the task moves on, so every
// assigned file is processed before the task reports. Output is written
// through a writebatch.Batch per task, all of them sharing one throttle
// so the aggregate number of in-flight writes stays bounded.
//
// The Compiler interface is the boundary to the per-file checker and
// emitter. ESBuildCompiler is the built-in implementation: it checks
// syntax, resolves every import for the task's platform and transforms
// sources to JavaScript with esbuild.
package build
