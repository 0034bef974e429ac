// SPDX-License-Identifier: MPL-2.0

package build

import (
	"bytes"
	"regexp"
)

// Import is a module specifier found in a source file.
type Import struct {
	Specifier string
	// Line is 1-based.
	Line int
}

var (
	// importPatterns match static imports, re-exports, side-effect
	// imports, dynamic import() and require() with string literals.
	importPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\s*(?:import|export)\s[^'"]*?\sfrom\s*['"]([^'"]+)['"]`),
		regexp.MustCompile(`^\s*import\s*['"]([^'"]+)['"]`),
		regexp.MustCompile(`\bimport\s*\(\s*['"]([^'"]+)['"]\s*\)`),
		regexp.MustCompile(`\brequire\s*\(\s*['"]([^'"]+)['"]\s*\)`),
	}
	// multiFrom matches the closing line of a multi-line import list.
	multiFrom = regexp.MustCompile(`^\s*}\s*from\s*['"]([^'"]+)['"]`)
)

// ScanImports returns the specifiers imported by src in order of
// appearance, each specifier once. Comment lines are skipped.
func ScanImports(src []byte) []Import {
	var (
		imports   []Import
		seen      = make(map[string]bool)
		inComment bool
	)
	add := func(spec string, line int) {
		if !seen[spec] {
			seen[spec] = true
			imports = append(imports, Import{Specifier: spec, Line: line})
		}
	}

	for i, line := range bytes.Split(src, []byte("\n")) {
		trimmed := bytes.TrimSpace(line)
		if inComment {
			if _, after, ok := bytes.Cut(trimmed, []byte("*/")); ok {
				inComment = false
				trimmed = bytes.TrimSpace(after)
				line = trimmed
			} else {
				continue
			}
		}
		if bytes.HasPrefix(trimmed, []byte("//")) {
			continue
		}
		if bytes.HasPrefix(trimmed, []byte("/*")) && !bytes.Contains(trimmed, []byte("*/")) {
			inComment = true
			continue
		}

		if m := multiFrom.FindSubmatch(line); m != nil {
			add(string(m[1]), i+1)
			continue
		}
		for _, re := range importPatterns {
			for _, m := range re.FindAllSubmatch(line, -1) {
				add(string(m[1]), i+1)
			}
		}
	}
	return imports
}
