package navigator

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/unkn0wn-root/httpoutline/internal/theme"
)

const (
	iconCaretOpen   = "▾"
	iconCaretClosed = "▸"
)

// ListView renders the navigator list with an optional height constraint.
func ListView[T any](m *Model[T], th theme.Theme, width int, height int, focus bool) string {
	if m == nil {
		return ""
	}
	if width < 1 {
		width = 1
	}

	m.SetViewportHeight(height)
	rows := m.VisibleRows()
	out := make([]string, 0, len(rows))
	for i, row := range rows {
		selected := (m.offset + i) == m.sel
		out = append(out, renderRow(row, selected, th, width, focus))
	}
	return strings.Join(out, "\n")
}

func renderRow[T any](row Flat[T], selected bool, th theme.Theme, width int, focus bool) string {
	n := row.Node
	if n == nil {
		return ""
	}

	pad := strings.Repeat("  ", row.Level)
	parts := []string{pad, rowIcon(n)}

	titleStyle := th.NavigatorTitle
	descStyle := th.NavigatorSubtitle
	if n.Kind == KindGroup {
		titleStyle = th.NavigatorGroup
	}
	if selected {
		titleStyle = th.NavigatorTitleSelected
		descStyle = th.NavigatorSubtitleSelected
	}
	if !focus {
		titleStyle = titleStyle.Faint(true)
		descStyle = descStyle.Faint(true)
	}

	title := n.Title
	if n.Kind == KindGroup && len(n.Children) > 0 {
		title = fmt.Sprintf("%s (%d)", title, len(n.Children))
	}
	parts = append(parts, " ", titleStyle.Render(title))
	if n.Kind == KindRequest && n.Method != "" {
		parts = append(parts, " ", renderMethodBadge(n.Method, th))
	}
	if n.Line > 0 {
		parts = append(parts, " ", descStyle.Render(fmt.Sprintf("L%d", n.Line)))
	}

	line := strings.Join(parts, "")
	truncated := ansi.Truncate(line, width, "")
	if len(truncated) < len(line) {
		indicator := th.NavigatorSubtitle.Render(" +")
		avail := width - lipgloss.Width(indicator)
		if avail < 0 {
			avail = 0
		}
		truncated = ansi.Truncate(truncated, avail, "") + indicator
	}
	return lipgloss.NewStyle().Width(width).Render(truncated)
}

func rowIcon[T any](n *Node[T]) string {
	if n == nil || n.Kind != KindGroup || len(n.Children) == 0 {
		return " "
	}
	if n.Expanded {
		return iconCaretOpen
	}
	return iconCaretClosed
}

func renderMethodBadge(method string, th theme.Theme) string {
	label := strings.ToUpper(strings.TrimSpace(method))
	style := th.NavigatorBadge.Foreground(th.MethodColor(label)).Bold(true)
	return style.Render(label)
}
