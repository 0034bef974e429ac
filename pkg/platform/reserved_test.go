// SPDX-License-Identifier: MPL-2.0

package platform

import "testing"

func TestIsWindowsReservedName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"src/CON.ts", true},
		{"src/nul.js", true},
		{"src/Com1.windows.tsx", true},
		{"src/lpt9.d.ts", true},
		{"src/console.ts", false},
		{"src/COM10.ts", false},
		{"src/aux/index.ts", false},
		{"src/Button.ios.tsx", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			if got := IsWindowsReservedName(tt.path); got != tt.want {
				t.Errorf("IsWindowsReservedName(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
