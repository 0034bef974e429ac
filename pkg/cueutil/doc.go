// SPDX-License-Identifier: MPL-2.0

// Package cueutil compiles user CUE files against an embedded schema.
//
// Every loader follows the same steps: compile the schema, compile the user
// data and unify it with a schema definition, then validate and decode. Unify
// returns the validated CUE value; DecodeMap decodes it into a generic map
// suitable for merging into viper.
//
//	//go:embed config_schema.cue
//	var schema []byte
//
//	settings, err := cueutil.DecodeMap(schema, data, "#Config",
//	    cueutil.WithFilename("varibuild.cue"),
//	    cueutil.WithConcrete(false),
//	)
package cueutil
