// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"

	"cuelang.org/go/cue"
)

const testSchema = `
#Target: {
	name:      string & =~"^[a-z]+$"
	suffixes: [...string]
	weight?:   int & >=0
}
`

const settingsSchema = `
#Settings: {
	name?:     string
	suffixes?: [...string]
}
`

func TestUnify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		opts    []Option
		wantErr string
	}{
		{
			name: "valid",
			data: `name: "ios", suffixes: [".ios", ".native"], weight: 2`,
		},
		{
			name:    "constraint violation reports the field",
			data:    `name: "iOS", suffixes: []`,
			opts:    []Option{WithFilename("targets.cue")},
			wantErr: "targets.cue: name",
		},
		{
			name:    "unknown field rejected by closed definition",
			data:    `name: "ios", suffixes: [], colour: "red"`,
			wantErr: "colour",
		},
		{
			name:    "syntax error",
			data:    `name: `,
			wantErr: "<input>",
		},
		{
			name:    "size limit",
			data:    `name: "ios", suffixes: []`,
			opts:    []Option{WithMaxFileSize(4)},
			wantErr: "exceeds maximum",
		},
		{
			name:    "missing required field when concrete",
			data:    `suffixes: []`,
			wantErr: "name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			unified, err := Unify([]byte(testSchema), []byte(tt.data), "#Target", tt.opts...)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Unify() error = %v, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unify() error = %v", err)
			}
			name, _ := unified.LookupPath(cue.ParsePath("name")).String()
			weight, _ := unified.LookupPath(cue.ParsePath("weight")).Int64()
			if name != "ios" || weight != 2 {
				t.Errorf("Unify() name = %q, weight = %d", name, weight)
			}
		})
	}
}

func TestDecodeMap(t *testing.T) {
	t.Parallel()

	m, err := DecodeMap([]byte(settingsSchema), []byte(`suffixes: [".win"]`), "#Settings", WithConcrete(false))
	if err != nil {
		t.Fatalf("DecodeMap() error = %v", err)
	}
	if _, ok := m["name"]; ok {
		t.Errorf("DecodeMap() = %v, unset optional fields should be omitted", m)
	}
	suffixes, ok := m["suffixes"].([]any)
	if !ok || len(suffixes) != 1 || suffixes[0] != ".win" {
		t.Errorf("DecodeMap()[suffixes] = %#v", m["suffixes"])
	}

	if _, err := DecodeMap([]byte(testSchema), []byte(`x: 1`), "#Missing"); err == nil {
		t.Error("DecodeMap() with an unknown definition should fail")
	}
}
