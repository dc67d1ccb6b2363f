package ui

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/quick"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/unkn0wn-root/httpoutline/internal/restfile"
	"github.com/unkn0wn-root/httpoutline/internal/theme"
)

const (
	sourceLexer     = "http"
	sourceFormatter = "terminal256"
	sourceStyle     = "monokai"
	markGlyph       = "▌"
	ellipsis        = "…"
)

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.ReplaceAll(l, "\t", "    ")
	}
	return lines
}

// highlightLines returns one rendered string per source line. It falls
// back to plain text when chroma fails or reshapes the line count.
func highlightLines(text string, styled bool) []string {
	plain := splitLines(text)
	if !styled || len(plain) == 0 {
		return plain
	}
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, strings.Join(plain, "\n"), sourceLexer, sourceFormatter, sourceStyle); err != nil {
		return plain
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != len(plain) {
		return plain
	}
	return lines
}

// renderSource lays out the gutter and body of each line. Lines inside
// mark get the active gutter and a bar.
func renderSource(lines []string, mark restfile.Range, width int, styled bool, th theme.Theme) string {
	if len(lines) == 0 {
		return th.NavigatorSubtitle.Render("(empty file)")
	}
	gutterWidth := runewidth.StringWidth(strconv.Itoa(len(lines)))
	avail := width - gutterWidth - 2
	if avail < 1 {
		avail = 1
	}

	out := make([]string, 0, len(lines))
	for i, line := range lines {
		num := i + 1
		marked := mark.Start.Line > 0 && num >= mark.Start.Line && num <= mark.End.Line

		gutter := fmt.Sprintf("%*d", gutterWidth, num)
		bar := " "
		if marked {
			gutter = th.GutterActive.Render(gutter)
			bar = th.GutterActive.Render(markGlyph)
		} else {
			gutter = th.Gutter.Render(gutter)
		}

		var body string
		if styled {
			body = ansi.Truncate(line, avail, ellipsis)
		} else {
			body = runewidth.Truncate(line, avail, ellipsis)
		}
		out = append(out, gutter+bar+" "+body)
	}
	return strings.Join(out, "\n")
}
