// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation.
// They cover the hot paths of a build:
//   - configuration loading (CUE schema validation and viper layering)
//   - import scanning and platform-variant resolution, cold and cached
//   - multiplexing large source lists into platform tasks
//   - throttled output writes and an end-to-end in-memory build
//
// To generate a profile, run:
//
//	go test ./internal/benchmark -run '^$' -bench . -cpuprofile default.pgo
package benchmark
