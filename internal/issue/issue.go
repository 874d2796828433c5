// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	RootInvalidId
	PortUnavailableId
	ServerNotReadyId
	WorkspaceBootstrapFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // docs describing the failing component
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Markdown returns the message with a "See also" section appended when the
// issue carries links.
func (i *Issue) Markdown() string {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
		for _, link := range i.extLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return md.String()
}

func (i *Issue) Render(stylePath string) (string, error) {
	return render(i.Markdown(), stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The webchat configuration file could not be read or did not match the schema.

## Things you can try:
- Show where the configuration is read from:
~~~
$ webchat config path
~~~

- Recreate a default configuration:
~~~
$ webchat config init --force
~~~

- Check that ` + "`webchat.port`" + ` is between 0 and 65535 and that
  ` + "`connection_mode`" + ` is either "local" or "remote".`,
	}

	rootInvalidIssue = &Issue{
		id: RootInvalidId,
		mdMsg: `
# Chat UI bundle not found!

The configured root is not an existing directory, so there is nothing to serve.

## Things you can try:
- Point the server at the directory holding ` + "`index.html`" + `:
~~~
$ webchat serve --root /path/to/webchat
~~~

- Or set it permanently:
~~~
$ webchat config set webchat.root /path/to/webchat
~~~`,
	}

	portUnavailableIssue = &Issue{
		id: PortUnavailableId,
		mdMsg: `
# Port unavailable!

The preferred port on 127.0.0.1 is already in use or not permitted.
The server never falls back to another port on its own.

## Things you can try:
- Let the operating system pick a free port:
~~~
$ webchat serve --port 0
~~~

- Stop whatever else is listening on that port, then retry.
- Ports below 1024 usually need elevated privileges; choose a higher one.`,
	}

	serverNotReadyIssue = &Issue{
		id: ServerNotReadyId,
		mdMsg: `
# Webchat server did not become ready!

The server was not accepting connections before the timeout expired.

## Things you can try:
- Retry with a longer timeout:
~~~
$ webchat check --timeout 10s
~~~

- Run with ` + "`--verbose`" + ` to see lifecycle and request logs.`,
	}

	workspaceBootstrapFailedIssue = &Issue{
		id: WorkspaceBootstrapFailedId,
		mdMsg: `
# Failed to prepare the agent workspace!

The workspace directory or its AGENTS.md file could not be created.

## Things you can try:
- Check that the parent directory exists and is writable.
- Choose another location:
~~~
$ webchat workspace init ~/clawd
~~~`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():         configLoadFailedIssue,
		rootInvalidIssue.Id():              rootInvalidIssue,
		portUnavailableIssue.Id():          portUnavailableIssue,
		serverNotReadyIssue.Id():           serverNotReadyIssue,
		workspaceBootstrapFailedIssue.Id(): workspaceBootstrapFailedIssue,
	}
)

// Values returns every known issue ordered by id.
func Values() []*Issue {
	values := maps.Values(issues)
	slices.SortFunc(values, func(a, b *Issue) int {
		return int(a.id) - int(b.id)
	})
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}
