// SPDX-License-Identifier: MPL-2.0

// Package platform provides the built-in build target presets.
//
// A preset names a platform, its suffix precedence list (most specific
// first, without the trailing base suffix) and the packages the platform
// ships a fork of. Project configuration may override any of these.
package platform
