// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"maps"
	"slices"

	"github.com/varibuild/varibuild/pkg/types"
)

// Well-known platform names.
const (
	IOS      types.PlatformName = "ios"
	Android  types.PlatformName = "android"
	MacOS    types.PlatformName = "macos"
	Windows  types.PlatformName = "windows"
	VisionOS types.PlatformName = "visionos"
)

// NativeSuffix is shared by every mobile and desktop preset.
const NativeSuffix types.PlatformSuffix = ".native"

// Preset is the default build profile of a platform.
type Preset struct {
	Name types.PlatformName
	// Suffixes lists platform suffixes, highest precedence first.
	// The base suffix is implied and never listed.
	Suffixes []types.PlatformSuffix
	// Remap substitutes one package name for another when resolving
	// imports for this platform.
	Remap map[string]string
}

var presets = map[types.PlatformName]Preset{
	IOS: {
		Name:     IOS,
		Suffixes: []types.PlatformSuffix{".ios", NativeSuffix},
	},
	Android: {
		Name:     Android,
		Suffixes: []types.PlatformSuffix{".android", NativeSuffix},
	},
	MacOS: {
		Name:     MacOS,
		Suffixes: []types.PlatformSuffix{".macos", NativeSuffix},
		Remap:    map[string]string{"react-native": "react-native-macos"},
	},
	Windows: {
		Name:     Windows,
		Suffixes: []types.PlatformSuffix{".windows", ".win", NativeSuffix},
		Remap:    map[string]string{"react-native": "react-native-windows"},
	},
	VisionOS: {
		Name:     VisionOS,
		Suffixes: []types.PlatformSuffix{".visionos", ".ios", NativeSuffix},
		Remap:    map[string]string{"react-native": "@callstack/react-native-visionos"},
	},
}

// Lookup returns a copy of the preset for name.
func Lookup(name types.PlatformName) (Preset, bool) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, false
	}
	return p.clone(), true
}

// Names returns the preset names in sorted order.
func Names() []types.PlatformName {
	return slices.Sorted(maps.Keys(presets))
}

// ForName returns the preset for name, or a generic profile with the
// suffix "."+name followed by ".native" for unknown platforms.
func ForName(name types.PlatformName) Preset {
	if p, ok := Lookup(name); ok {
		return p
	}
	return Preset{
		Name:     name,
		Suffixes: []types.PlatformSuffix{types.PlatformSuffix("." + string(name)), NativeSuffix},
	}
}

func (p Preset) clone() Preset {
	p.Suffixes = slices.Clone(p.Suffixes)
	p.Remap = maps.Clone(p.Remap)
	return p
}
