// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"slices"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
)

// Catalog entries.
const (
	ConfigLoadFailedId Id = iota + 1
	ConfigInvalidId
	NoSourcesId
	ResolutionFailedId
	BuildFailedId
	WriteFailedId
	DependencyCycleId
	HookFailedId
	UnknownPlatformId
)

type (
	// Id identifies a catalog entry.
	Id int

	// MarkdownMsg is the Markdown body of an entry.
	MarkdownMsg string

	// HttpLink is a documentation URL.
	HttpLink string

	// Issue is a catalog entry describing a class of failures and how to
	// address them.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

// Id returns the entry id.
func (i *Issue) Id() Id {
	return i.id
}

// MarkdownMsg returns the Markdown body.
func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// DocLinks returns a copy of the documentation links.
func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// ExtLinks returns a copy of the external links.
func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the entry for a terminal using a glamour style
// ("dark", "light", "notty" or a style file path).
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md += "\n\n## See also\n"
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			md += "\n- <" + string(link) + ">"
		}
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load the build configuration!

varibuild reads ` + "`varibuild.cue`" + ` from the project directory, then
` + "`.env`" + ` and ` + "`VARIBUILD_*`" + ` environment variables.

## Things you can try:
- Check the file for CUE syntax errors
- Print the effective configuration:
~~~
$ varibuild config show
~~~
- Start over from the defaults:
~~~
$ varibuild config init --force
~~~`,
	}

	configInvalidIssue = &Issue{
		id: ConfigInvalidId,
		mdMsg: `
# The configuration is invalid!

The file parsed but some values break the rules the build relies on.

## Common causes:
- A platform name with upper-case letters or spaces
- A platform suffix without its leading dot, e.g. ` + "`ios`" + ` instead of ` + "`.ios`" + `
- Two projects with the same name, or a ` + "`depends_on`" + ` entry naming an unknown project`,
	}

	noSourcesIssue = &Issue{
		id: NoSourcesId,
		mdMsg: `
# No source files matched!

The ` + "`include`" + ` patterns did not select any file below the project root.

## Things you can try:
- Patterns are relative to the project root and use ` + "`**`" + ` for any depth:
~~~cue
include: ["src/**/*.{ts,tsx,js,jsx,json}"]
~~~
- Make sure ` + "`exclude`" + ` does not shadow the whole tree`,
	}

	resolutionFailedIssue = &Issue{
		id: ResolutionFailedId,
		mdMsg: `
# Some imports could not be resolved!

For every import the resolver tries the platform suffixes first
(e.g. ` + "`Widget.ios.ts`" + `, then ` + "`Widget.native.ts`" + `), then the base file, then
package entry points and ` + "`@types`" + ` packages.

## Things you can try:
- Trace the search for one import:
~~~
$ varibuild resolve ./Widget --from src/App.ts --platform ios --trace
~~~
- Install the missing package, or add a platform remap for it`,
	}

	buildFailedIssue = &Issue{
		id: BuildFailedId,
		mdMsg: `
# The build failed!

At least one file failed to compile or type-check. Every file of every
platform was still processed; the failures are listed above.

## Things you can try:
- Re-run with ` + "`--verbose`" + ` to see each failing file
- Run a check-only build to skip writing output:
~~~
$ varibuild build --check-only
~~~`,
	}

	writeFailedIssue = &Issue{
		id: WriteFailedId,
		mdMsg: `
# Failed to write build output!

## Things you can try:
- Check that ` + "`out_dir`" + ` is writable
- Free some disk space
- Lower ` + "`max_concurrent_writes`" + ` if the filesystem rejects parallel writes`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Project dependency cycle detected!

Projects are built in ` + "`depends_on`" + ` order, which is impossible when
projects depend on each other in a loop.

## Things you can try:
- Remove one of the edges listed in the error
- Move the shared code into a project both can depend on`,
	}

	hookFailedIssue = &Issue{
		id: HookFailedId,
		mdMsg: `
# A build hook failed!

Hooks run in the project root with the embedded POSIX shell, so they behave
the same on every operating system.

## Things you can try:
- Run the hook body in a shell to reproduce the failure
- Keep hooks to POSIX shell syntax; bash-only features are rejected`,
	}

	unknownPlatformIssue = &Issue{
		id: UnknownPlatformId,
		mdMsg: `
# Unknown platform!

Platforms without a built-in profile use the suffixes ` + "`.<name>`" + ` and
` + "`.native`" + `. Declare the suffixes explicitly to change that:

~~~cue
platform: tvos: suffixes: [".tvos", ".ios", ".native"]
~~~`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id(): configLoadFailedIssue,
		configInvalidIssue.Id():    configInvalidIssue,
		noSourcesIssue.Id():        noSourcesIssue,
		resolutionFailedIssue.Id(): resolutionFailedIssue,
		buildFailedIssue.Id():      buildFailedIssue,
		writeFailedIssue.Id():      writeFailedIssue,
		dependencyCycleIssue.Id():  dependencyCycleIssue,
		hookFailedIssue.Id():       hookFailedIssue,
		unknownPlatformIssue.Id():  unknownPlatformIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	all := maps.Clone(issues)
	out := make([]*Issue, 0, len(all))
	for _, i := range all {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id - b.id) })
	return out
}

// Get returns the entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
