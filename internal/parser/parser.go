package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/unkn0wn-root/httpoutline/internal/parser/httpbuilder"
	"github.com/unkn0wn-root/httpoutline/internal/restfile"
)

const markerPrefix = "###"

// Parse splits text into ### delimited blocks and classifies each one.
// Lines are split on \n only; a trailing \r stays in the raw line and is
// removed wherever a line is trimmed.
func Parse(text string) []restfile.Element {
	lines := strings.Split(text, "\n")
	b := newBlockBuilder(lines)

	for i, line := range lines {
		lineNumber := i + 1
		if isMarker(line) {
			b.closeBlock(lineNumber - 1)
			b.openBlock(lineNumber, line[len(markerPrefix):])
			continue
		}
		b.appendLine(line)
	}
	b.closeBlock(len(lines))

	if len(b.elements) == 0 {
		if el, ok := fallbackRequest(lines); ok {
			return []restfile.Element{el}
		}
	}
	return b.elements
}

func ParseBytes(data []byte) []restfile.Element {
	return Parse(string(data))
}

func isMarker(line string) bool {
	return strings.HasPrefix(line, markerPrefix)
}

type block struct {
	startLine int
	lines     []string
}

type blockBuilder struct {
	lines    []string
	current  *block
	elements []restfile.Element
}

func newBlockBuilder(lines []string) *blockBuilder {
	return &blockBuilder{lines: lines}
}

func (b *blockBuilder) openBlock(lineNumber int, rest string) {
	blk := &block{startLine: lineNumber}
	if trimmed := strings.TrimSpace(rest); trimmed != "" {
		blk.lines = append(blk.lines, trimmed)
	}
	b.current = blk
}

// appendLine drops text that appears before the first marker.
func (b *blockBuilder) appendLine(line string) {
	if b.current == nil {
		return
	}
	b.current.lines = append(b.current.lines, line)
}

func (b *blockBuilder) closeBlock(endLine int) {
	blk := b.current
	b.current = nil
	if blk == nil {
		return
	}
	body := strings.Join(blk.lines, "\n")
	if strings.TrimSpace(body) == "" {
		return
	}
	el := classify(body, firstContentLine(blk.lines))
	el.Range = b.span(blk.startLine, endLine)
	b.elements = append(b.elements, el)
}

func (b *blockBuilder) span(startLine, endLine int) restfile.Range {
	if endLine < startLine {
		endLine = startLine
	}
	return restfile.Range{
		Start: restfile.Position{Line: startLine},
		End:   restfile.Position{Line: endLine, Column: lineWidth(b.lines, endLine)},
	}
}

func classify(body, first string) restfile.Element {
	method, url, hasMethod := httpbuilder.FindMethodLine(body)
	comment, isComment := commentText(first)

	if isComment && !hasMethod {
		name := comment
		if name == "" {
			name = restfile.UnnamedGroup
		}
		return restfile.Element{Kind: restfile.KindGroup, Name: name}
	}

	req := &restfile.Request{
		Content: strings.TrimSpace(body),
		Method:  method,
		URL:     url,
	}
	if isComment {
		req.CommentName = comment
	}
	return restfile.Element{
		Kind:    restfile.KindRequest,
		Name:    requestName(first, method, url),
		Request: req,
	}
}

// fallbackRequest treats the whole file as a single request when no block
// produced an element. Marker lines never count as content.
func fallbackRequest(lines []string) (restfile.Element, bool) {
	start := -1
	content := make([]string, 0, len(lines))
	for i, line := range lines {
		if isMarker(line) {
			continue
		}
		if start < 0 {
			if strings.TrimSpace(line) == "" {
				continue
			}
			start = i
		}
		content = append(content, line)
	}
	if start < 0 {
		return restfile.Element{}, false
	}

	body := strings.Join(content, "\n")
	method, url, _ := httpbuilder.FindMethodLine(body)
	first := strings.TrimSpace(lines[start])
	last := len(lines)
	return restfile.Element{
		Kind: restfile.KindRequest,
		Name: requestName(first, method, url),
		Range: restfile.Range{
			Start: restfile.Position{Line: start + 1},
			End:   restfile.Position{Line: last, Column: lineWidth(lines, last)},
		},
		Request: &restfile.Request{
			Content: strings.TrimSpace(body),
			Method:  method,
			URL:     url,
		},
	}, true
}

func requestName(first, method, url string) string {
	switch {
	case first != "":
		return first
	case method != "":
		return strings.TrimSpace(method + " " + url)
	default:
		return restfile.UnnamedRequest
	}
}

func firstContentLine(lines []string) string {
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func commentText(trimmed string) (string, bool) {
	if !strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	return strings.TrimSpace(trimmed[1:]), true
}

func lineWidth(lines []string, lineNumber int) int {
	if lineNumber < 1 || lineNumber > len(lines) {
		return 0
	}
	return utf8.RuneCountInString(strings.TrimRight(lines[lineNumber-1], "\r"))
}
