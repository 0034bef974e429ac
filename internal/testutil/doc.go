// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers for tests that build source trees, on
// an in-memory afero filesystem (MustMemFs) or on disk (MustWriteOSTree),
// and fail the test on any setup error.
package testutil
