// SPDX-License-Identifier: MPL-2.0

package resolve

type (
	// Fallback is the final strategy consulted after the built-in search
	// found nothing. Implementations may delegate to another resolver; they
	// must return the zero ResolvedFile when they cannot help.
	Fallback interface {
		ResolveFallback(rc *Context, spec Specifier, containingFile string) ResolvedFile
	}

	// FallbackFunc adapts a function to the Fallback interface.
	FallbackFunc func(rc *Context, spec Specifier, containingFile string) ResolvedFile

	// NoFallback leaves unresolved specifiers unresolved.
	NoFallback struct{}

	// ChainFallback consults each fallback in order and returns the first hit.
	ChainFallback []Fallback
)

// ResolveFallback calls f.
func (f FallbackFunc) ResolveFallback(rc *Context, spec Specifier, containingFile string) ResolvedFile {
	return f(rc, spec, containingFile)
}

// ResolveFallback always fails.
func (NoFallback) ResolveFallback(*Context, Specifier, string) ResolvedFile {
	return ResolvedFile{}
}

// ResolveFallback returns the first successful result of the chain.
func (c ChainFallback) ResolveFallback(rc *Context, spec Specifier, containingFile string) ResolvedFile {
	for _, f := range c {
		if f == nil {
			continue
		}
		if res := f.ResolveFallback(rc, spec, containingFile); res.OK() {
			return res
		}
	}
	return ResolvedFile{}
}
