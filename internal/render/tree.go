// Package render draws an outline as a terminal tree.
package render

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/unkn0wn-root/httpoutline/internal/outline"
	"github.com/unkn0wn-root/httpoutline/internal/theme"
)

// Tree renders o with the default theme. Unstyled output is plain text and
// stable across runs, which the watch command relies on for diffs.
func Tree(o *outline.Outline, styled bool) string {
	return TreeWith(o, theme.DefaultTheme(), styled)
}

func TreeWith(o *outline.Outline, th theme.Theme, styled bool) string {
	root := rootLabel(o)
	st := styles{th: th, on: styled}

	t := tree.Root(st.render(th.TreeRoot, root)).
		Enumerator(tree.RoundedEnumerator)
	if styled {
		t = t.EnumeratorStyle(th.TreeEnumerator)
	}
	if o.Empty() {
		return t.String() + "\n"
	}

	for _, n := range o.Roots() {
		if !n.IsGroup() {
			t.Child(st.request(n))
			continue
		}
		sub := tree.Root(st.render(th.TreeGroup, n.Label)).
			Enumerator(tree.RoundedEnumerator)
		if styled {
			sub = sub.EnumeratorStyle(th.TreeEnumerator)
		}
		for _, c := range n.Children {
			sub.Child(st.request(c))
		}
		t.Child(sub)
	}
	return t.String() + "\n"
}

func rootLabel(o *outline.Outline) string {
	name := filepath.Base(o.Path())
	if o.Path() == "" {
		name = "outline"
	}
	groups, requests := o.Counts()
	return fmt.Sprintf("%s (%d groups, %d requests)", name, groups, requests)
}

type styles struct {
	th theme.Theme
	on bool
}

func (s styles) render(style lipgloss.Style, text string) string {
	if !s.on {
		return text
	}
	return style.Render(text)
}

func (s styles) request(n *outline.Node) string {
	text := fmt.Sprintf("%s  L%d", n.Label, n.Range.Start.Line)
	if !s.on {
		return text
	}
	style := s.th.TreeRequest
	if n.Method != "" {
		style = style.Foreground(s.th.MethodColor(n.Method))
	}
	return style.Render(n.Label) + s.th.Gutter.Render(fmt.Sprintf("  L%d", n.Range.Start.Line))
}
