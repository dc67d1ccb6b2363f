package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	SidebarBorder             lipgloss.Style
	SourceBorder              lipgloss.Style
	PaneBorderFocus           lipgloss.Color
	PaneTitle                 lipgloss.Style
	PaneTitleFile             lipgloss.Style
	NavigatorTitle            lipgloss.Style
	NavigatorTitleSelected    lipgloss.Style
	NavigatorSubtitle         lipgloss.Style
	NavigatorSubtitleSelected lipgloss.Style
	NavigatorGroup            lipgloss.Style
	NavigatorBadge            lipgloss.Style
	Gutter                    lipgloss.Style
	GutterActive              lipgloss.Style
	SourceMark                lipgloss.Style
	StatusBar                 lipgloss.Style
	StatusBarKey              lipgloss.Style
	StatusBarValue            lipgloss.Style
	Error                     lipgloss.Style
	Success                   lipgloss.Style
	TreeRoot                  lipgloss.Style
	TreeEnumerator            lipgloss.Style
	TreeGroup                 lipgloss.Style
	TreeRequest               lipgloss.Style
	MethodColors              MethodColors
}

type MethodColors struct {
	GET     lipgloss.Color
	POST    lipgloss.Color
	PUT     lipgloss.Color
	PATCH   lipgloss.Color
	DELETE  lipgloss.Color
	HEAD    lipgloss.Color
	OPTIONS lipgloss.Color
	Default lipgloss.Color
}

func DefaultTheme() Theme {
	accent := lipgloss.Color("#7D56F4")
	base := lipgloss.NewStyle().Foreground(lipgloss.Color("#dcd7ff"))

	return Theme{
		SidebarBorder: base.BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#A78BFA")),
		SourceBorder:    base.BorderStyle(lipgloss.RoundedBorder()).BorderForeground(accent),
		PaneBorderFocus: lipgloss.Color("#15AABF"),
		PaneTitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6A1BB")).
			Bold(true),
		PaneTitleFile: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true),
		NavigatorTitle: lipgloss.NewStyle().Foreground(lipgloss.Color("#E6E1FF")),
		NavigatorTitleSelected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#0F111A")).
			Background(lipgloss.Color("#FFD46A")).
			Bold(true),
		NavigatorSubtitle: lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6A86")),
		NavigatorSubtitleSelected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#0F111A")).
			Background(lipgloss.Color("#FFD46A")),
		NavigatorGroup: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B9A5FF")).
			Bold(true),
		NavigatorBadge: lipgloss.NewStyle().Padding(0, 1).Bold(true),
		Gutter:         lipgloss.NewStyle().Foreground(lipgloss.Color("#5E5A72")),
		GutterActive: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD46A")).
			Bold(true),
		SourceMark:     lipgloss.NewStyle().Background(lipgloss.Color("#2C1E3A")),
		StatusBar:      lipgloss.NewStyle().Foreground(lipgloss.Color("#A6A1BB")).Padding(0, 1),
		StatusBarKey:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8B39")).Bold(true),
		StatusBarValue: lipgloss.NewStyle().Foreground(lipgloss.Color("#EAEAEA")),
		Error:          lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6E6E")),
		Success:        lipgloss.NewStyle().Foreground(lipgloss.Color("#6EF17E")),
		TreeRoot: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true),
		TreeEnumerator: lipgloss.NewStyle().Foreground(lipgloss.Color("#5E5A72")).PaddingRight(1),
		TreeGroup: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B9A5FF")).
			Bold(true),
		TreeRequest: lipgloss.NewStyle().Foreground(lipgloss.Color("#E6E1FF")),
		MethodColors: MethodColors{
			GET:     lipgloss.Color("#34d399"),
			POST:    lipgloss.Color("#60a5fa"),
			PUT:     lipgloss.Color("#f59e0b"),
			PATCH:   lipgloss.Color("#14b8a6"),
			DELETE:  lipgloss.Color("#f87171"),
			HEAD:    lipgloss.Color("#a1a1aa"),
			OPTIONS: lipgloss.Color("#c084fc"),
			Default: lipgloss.Color("#9ca3af"),
		},
	}
}

// MethodColor returns the badge color for an HTTP method.
func (t Theme) MethodColor(method string) lipgloss.Color {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case "GET":
		return t.MethodColors.GET
	case "POST":
		return t.MethodColors.POST
	case "PUT":
		return t.MethodColors.PUT
	case "PATCH":
		return t.MethodColors.PATCH
	case "DELETE":
		return t.MethodColors.DELETE
	case "HEAD":
		return t.MethodColors.HEAD
	case "OPTIONS":
		return t.MethodColors.OPTIONS
	default:
		return t.MethodColors.Default
	}
}
