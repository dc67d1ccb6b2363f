package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/unkn0wn-root/httpoutline/internal/ui/navigator"
)

const (
	minSidebarWidth = 24
	paneChrome      = 2
	statusHeight    = 1
)

func (m *Model) sidebarWidth() int {
	w := int(float64(m.width) * m.sidebarRatio)
	if w < minSidebarWidth {
		w = minSidebarWidth
	}
	if w > m.width-minSidebarWidth {
		w = m.width - minSidebarWidth
	}
	if w < paneChrome+1 {
		w = paneChrome + 1
	}
	return w
}

func (m *Model) bodyHeight() int {
	h := m.height - statusHeight - paneChrome
	if h < 1 {
		h = 1
	}
	return h
}

// layout sizes the source viewport to the space right of the sidebar.
// One row of each pane holds its title.
func (m *Model) layout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	w := m.width - m.sidebarWidth() - paneChrome
	if w < 1 {
		w = 1
	}
	h := m.bodyHeight() - 1
	if h < 1 {
		h = 1
	}
	m.source.Width = w
	m.source.Height = h
	m.filter.Width = m.sidebarWidth() - paneChrome - 2
	m.renderSource()
}

func (m *Model) renderSource() {
	m.source.SetContent(renderSource(m.lines, m.mark, m.source.Width, m.styled, m.th))
}

func (m *Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), m.sourceView())
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusView())
}

func (m *Model) sidebarView() string {
	inner := m.sidebarWidth() - paneChrome
	height := m.bodyHeight()

	header := m.th.PaneTitle.Render("Outline")
	listHeight := height - 1
	if m.filtering || m.filter.Value() != "" {
		header = m.filter.View()
		listHeight--
	}
	if listHeight < 1 {
		listHeight = 1
	}

	list := navigator.ListView(m.nav, m.th, inner, listHeight, !m.filtering)
	if list == "" {
		list = m.th.NavigatorSubtitle.Render("no requests")
	}
	content := lipgloss.JoinVertical(lipgloss.Left, ansi.Truncate(header, inner, ""), list)

	style := m.th.SidebarBorder
	if !m.filtering {
		style = style.BorderForeground(m.th.PaneBorderFocus)
	}
	return style.Width(inner).Height(height).Render(content)
}

func (m *Model) sourceView() string {
	inner := m.width - m.sidebarWidth() - paneChrome
	if inner < 1 {
		inner = 1
	}
	title := m.th.PaneTitleFile.Render(filepath.Base(m.path))
	if m.path == "" {
		title = m.th.PaneTitle.Render("Source")
	}
	content := lipgloss.JoinVertical(lipgloss.Left, ansi.Truncate(title, inner, ""), m.source.View())
	return m.th.SourceBorder.Width(inner).Height(m.bodyHeight()).Render(content)
}

func (m *Model) statusView() string {
	o := m.sess.Outline()
	groups, requests := o.Counts()

	left := fmt.Sprintf("%s %s",
		m.th.StatusBarKey.Render(fmt.Sprintf("%d", groups)), m.th.StatusBarValue.Render("groups"))
	left += fmt.Sprintf("  %s %s",
		m.th.StatusBarKey.Render(fmt.Sprintf("%d", requests)), m.th.StatusBarValue.Render("requests"))

	right := m.statusText()
	line := left
	if right != "" {
		line += "  " + right
	}
	return m.th.StatusBar.Width(m.width).Render(ansi.Truncate(line, m.width-2, ""))
}

func (m *Model) statusText() string {
	text := strings.TrimSpace(m.status.text)
	if text == "" {
		hints := make([]string, 0, len(m.keys.help()))
		for _, b := range m.keys.help() {
			h := b.Help()
			hints = append(hints, h.Key+" "+h.Desc)
		}
		return m.th.NavigatorSubtitle.Render(strings.Join(hints, " · "))
	}
	switch m.status.level {
	case statusError:
		return m.th.Error.Render(text)
	case statusWarn:
		return m.th.StatusBarKey.Render(text)
	default:
		return m.th.Success.Render(text)
	}
}
