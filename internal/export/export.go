// Package export writes an outline as Markdown or HTML documentation.
package export

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/unkn0wn-root/httpoutline/internal/errdef"
	"github.com/unkn0wn-root/httpoutline/internal/outline"
)

type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", errdef.New(errdef.CodeConfig, "invalid export format %q (expected markdown|html)", s)
	}
}

// Render produces the document in format.
func Render(o *outline.Outline, format Format) (string, error) {
	switch format {
	case FormatMarkdown:
		return Markdown(o), nil
	case FormatHTML:
		return HTML(o)
	default:
		return "", errdef.New(errdef.CodeConfig, "unsupported export format %q", format)
	}
}

// Markdown renders the outline as a nested bullet list. Every request links
// to its first line as file#L<line>.
func Markdown(o *outline.Outline) string {
	name := filepath.Base(o.Path())
	if o.Path() == "" {
		name = "outline"
	}
	groups, requests := o.Counts()

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escape(name))
	fmt.Fprintf(&b, "%d groups, %d requests\n", groups, requests)
	if o.Empty() {
		return b.String()
	}
	b.WriteString("\n")
	for _, n := range o.Roots() {
		writeNode(&b, n, name, 0)
	}
	return b.String()
}

func writeNode(b *strings.Builder, n *outline.Node, file string, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.IsGroup() {
		fmt.Fprintf(b, "%s- **%s** (L%d)\n", indent, escape(n.Label), n.Range.Start.Line)
		for _, c := range n.Children {
			writeNode(b, c, file, depth+1)
		}
		return
	}
	fmt.Fprintf(b, "%s- [%s](%s#L%d)", indent, escape(n.Label), file, n.Range.Start.Line)
	if n.URL != "" {
		fmt.Fprintf(b, " `%s`", strings.ReplaceAll(strings.TrimSpace(n.Method+" "+n.URL), "`", "'"))
	}
	b.WriteString("\n")
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	`*`, `\*`,
	`_`, `\_`,
	`[`, `\[`,
	`]`, `\]`,
	`<`, `\<`,
	`#`, `\#`,
)

func escape(s string) string {
	return mdEscaper.Replace(s)
}

// HTML converts the Markdown rendering with goldmark.
func HTML(o *outline.Outline) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(o)), &buf); err != nil {
		return "", errdef.Wrap(errdef.CodeParse, err, "render html")
	}
	return buf.String(), nil
}
