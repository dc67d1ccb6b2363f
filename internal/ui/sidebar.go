package ui

import (
	"strings"

	"github.com/unkn0wn-root/httpoutline/internal/outline"
	"github.com/unkn0wn-root/httpoutline/internal/ui/navigator"
)

// navigatorNodes mirrors the outline forest. Groups start expanded.
func navigatorNodes(o *outline.Outline) []*navigator.Node[*outline.Node] {
	roots := o.Roots()
	out := make([]*navigator.Node[*outline.Node], 0, len(roots))
	for _, n := range roots {
		out = append(out, navigatorNode(n))
	}
	return out
}

func navigatorNode(n *outline.Node) *navigator.Node[*outline.Node] {
	nn := &navigator.Node[*outline.Node]{
		ID:    n.ID,
		Title: n.Label,
		Desc:  strings.TrimSpace(n.Method + " " + n.URL),
		Line:  n.Range.Start.Line,
		Data:  n,
	}
	if n.IsGroup() {
		nn.Kind = navigator.KindGroup
		nn.Expanded = true
		for _, c := range n.Children {
			nn.Children = append(nn.Children, navigatorNode(c))
		}
		return nn
	}
	nn.Kind = navigator.KindRequest
	return nn
}
