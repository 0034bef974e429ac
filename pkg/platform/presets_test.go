// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"slices"
	"testing"

	"github.com/varibuild/varibuild/pkg/types"
)

func TestLookup_ReturnsCopy(t *testing.T) {
	t.Parallel()

	p, ok := Lookup(Windows)
	if !ok {
		t.Fatal("windows preset should exist")
	}
	p.Suffixes[0] = ".mutated"
	p.Remap["react-native"] = "mutated"

	again, _ := Lookup(Windows)
	if again.Suffixes[0] != ".windows" {
		t.Errorf("preset suffixes were mutated through a lookup copy: %v", again.Suffixes)
	}
	if again.Remap["react-native"] != "react-native-windows" {
		t.Errorf("preset remap was mutated through a lookup copy: %v", again.Remap)
	}
}

func TestForName_Unknown(t *testing.T) {
	t.Parallel()

	p := ForName("tvos")
	want := []types.PlatformSuffix{".tvos", NativeSuffix}
	if !slices.Equal(p.Suffixes, want) {
		t.Errorf("ForName(tvos).Suffixes = %v, want %v", p.Suffixes, want)
	}
	if len(p.Remap) != 0 {
		t.Errorf("unknown platforms should not remap packages, got %v", p.Remap)
	}
}

func TestPresets_SuffixesValid(t *testing.T) {
	t.Parallel()

	names := Names()
	if !slices.IsSorted(names) {
		t.Errorf("Names() should be sorted, got %v", names)
	}
	for _, name := range names {
		p, _ := Lookup(name)
		if err := name.Validate(); err != nil {
			t.Errorf("preset name %q invalid: %v", name, err)
		}
		for _, s := range p.Suffixes {
			if err := s.Validate(); err != nil || s.IsBase() {
				t.Errorf("preset %q has invalid suffix %q: %v", name, s, err)
			}
		}
	}
}
