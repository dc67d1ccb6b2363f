package navigator

import (
	"strings"
	"unicode"

	"github.com/unkn0wn-root/httpoutline/internal/ui/scroll"
)

// Kind identifies the type of a node in the navigator tree.
type Kind int

const (
	KindGroup Kind = iota
	KindRequest
)

// Node represents a tree item.
type Node[T any] struct {
	ID       string
	Title    string
	Desc     string
	Kind     Kind
	Method   string
	Line     int
	Expanded bool
	Children []*Node[T]
	Data     T
}

// Flat is a visible row with indentation level.
type Flat[T any] struct {
	Node  *Node[T]
	Level int
}

// Model manages tree state and filtering.
type Model[T any] struct {
	nodes      []*Node[T]
	flat       []Flat[T]
	sel        int
	offset     int
	viewHeight int
	filter     string
}

// New builds a navigator model.
func New[T any](nodes []*Node[T]) *Model[T] {
	m := &Model[T]{nodes: nodes}
	m.refresh()
	return m
}

// SetNodes replaces the tree. Expansion state carries over by node id and
// the selection stays on the same id when it still exists.
func (m *Model[T]) SetNodes(nodes []*Node[T]) {
	prevSel := ""
	if n := m.Selected(); n != nil {
		prevSel = n.ID
	}
	collapsed := make(map[string]bool)
	for _, n := range m.nodes {
		walk(n, func(n *Node[T]) {
			if len(n.Children) > 0 && !n.Expanded {
				collapsed[n.ID] = true
			}
		})
	}
	for _, n := range nodes {
		walk(n, func(n *Node[T]) {
			if collapsed[n.ID] {
				n.Expanded = false
			}
		})
	}

	m.nodes = nodes
	m.refresh()
	if prevSel != "" {
		m.SelectByID(prevSel)
	}
}

// SetViewportHeight constrains the number of visible rows (0 = no limit).
func (m *Model[T]) SetViewportHeight(height int) {
	if height < 0 {
		height = 0
	}
	m.viewHeight = height
	m.ensureVisible()
}

// SetFilter updates text filter and refreshes visible rows.
func (m *Model[T]) SetFilter(s string) {
	if m.filter == s {
		return
	}
	m.filter = s
	m.refresh()
}

func (m *Model[T]) Filter() string {
	return m.filter
}

// Move selection by delta, clamping to visible rows.
func (m *Model[T]) Move(delta int) {
	if len(m.flat) == 0 {
		m.sel = -1
		m.offset = 0
		return
	}
	m.sel += delta
	m.ensureVisible()
}

// SelectFirst selects the first visible row.
func (m *Model[T]) SelectFirst() {
	if len(m.flat) == 0 {
		m.sel = -1
		m.offset = 0
		return
	}
	m.sel = 0
	m.ensureVisible()
}

// SelectLast selects the last visible row.
func (m *Model[T]) SelectLast() {
	if len(m.flat) == 0 {
		m.sel = -1
		m.offset = 0
		return
	}
	m.sel = len(m.flat) - 1
	m.ensureVisible()
}

// Selected returns the active node.
func (m *Model[T]) Selected() *Node[T] {
	if m.sel < 0 || m.sel >= len(m.flat) {
		return nil
	}
	return m.flat[m.sel].Node
}

// SelectByID selects the first visible node with the given id.
func (m *Model[T]) SelectByID(id string) bool {
	if id == "" || len(m.flat) == 0 {
		return false
	}
	for i, row := range m.flat {
		if row.Node != nil && row.Node.ID == id {
			m.sel = i
			m.ensureVisible()
			return true
		}
	}
	return false
}

// ToggleExpanded toggles expansion on the selected node.
func (m *Model[T]) ToggleExpanded() {
	n := m.Selected()
	if n == nil || len(n.Children) == 0 {
		return
	}
	n.Expanded = !n.Expanded
	m.refresh()
}

// ExpandAll opens every branch.
func (m *Model[T]) ExpandAll() {
	for _, n := range m.nodes {
		walk(n, func(n *Node[T]) {
			if len(n.Children) > 0 {
				n.Expanded = true
			}
		})
	}
	m.refresh()
}

// CollapseAll closes every branch.
func (m *Model[T]) CollapseAll() {
	for _, n := range m.nodes {
		walk(n, func(n *Node[T]) { n.Expanded = false })
	}
	m.refresh()
}

// Rows returns the visible flattened rows.
func (m *Model[T]) Rows() []Flat[T] {
	return m.flat
}

// VisibleRows returns rows within the viewport window.
func (m *Model[T]) VisibleRows() []Flat[T] {
	if len(m.flat) == 0 {
		return nil
	}
	if m.viewHeight <= 0 {
		return m.flat
	}
	if m.offset < 0 {
		m.offset = 0
	}

	end := m.offset + m.viewHeight
	if end > len(m.flat) {
		end = len(m.flat)
	}
	return m.flat[m.offset:end]
}

// Find finds a node by id.
func (m *Model[T]) Find(id string) *Node[T] {
	if id == "" {
		return nil
	}
	var found *Node[T]
	for _, n := range m.nodes {
		walk(n, func(n *Node[T]) {
			if found == nil && n.ID == id {
				found = n
			}
		})
		if found != nil {
			break
		}
	}
	return found
}

func (m *Model[T]) refresh() {
	m.flat = flatten(m.nodes, 0, m.filter)
	if len(m.flat) == 0 {
		m.sel = -1
		m.offset = 0
		return
	}
	m.ensureVisible()
}

func (m *Model[T]) ensureVisible() {
	if len(m.flat) == 0 {
		m.sel = -1
		m.offset = 0
		return
	}
	if m.sel < 0 {
		m.sel = 0
	}
	if m.sel >= len(m.flat) {
		m.sel = len(m.flat) - 1
	}
	if m.viewHeight <= 0 {
		m.offset = 0
		return
	}
	m.offset = scroll.Align(m.sel, m.offset, m.viewHeight, len(m.flat))
}

func flatten[T any](nodes []*Node[T], level int, filter string) []Flat[T] {
	var rows []Flat[T]
	for _, n := range nodes {
		if childRows, ok := visible(n, level, filter); ok {
			rows = append(rows, childRows...)
		}
	}
	return rows
}

// visible keeps a group when it or any child matches. An active filter
// forces groups open so matching children show.
func visible[T any](n *Node[T], level int, filter string) ([]Flat[T], bool) {
	if n == nil {
		return nil, false
	}
	matches := nodeMatches(n, filter)
	var childRows []Flat[T]
	childMatch := false
	expanded := n.Expanded || strings.TrimSpace(filter) != ""
	for _, c := range n.Children {
		rows, ok := visible(c, level+1, filter)
		if ok {
			childMatch = true
			if expanded {
				childRows = append(childRows, rows...)
			}
		}
	}

	if !matches && !childMatch {
		return nil, false
	}
	return append([]Flat[T]{{Node: n, Level: level}}, childRows...), true
}

func nodeMatches[T any](n *Node[T], filter string) bool {
	queryTokens := wordsFromText(strings.ToLower(strings.TrimSpace(filter)))
	if len(queryTokens) == 0 {
		return true
	}
	fields := strings.Join([]string{n.Title, n.Desc, n.Method}, " ")
	candidates := wordsFromText(strings.ToLower(fields))
	for _, q := range queryTokens {
		if !tokenInCandidates(q, candidates) {
			return false
		}
	}
	return true
}

func walk[T any](n *Node[T], fn func(*Node[T])) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		walk(c, fn)
	}
}

func tokenInCandidates(token string, candidates []string) bool {
	for _, c := range candidates {
		if strings.HasPrefix(c, token) {
			return true
		}
	}
	return false
}

func wordsFromText(text string) []string {
	if text == "" {
		return nil
	}
	var tokens []string
	var buf []rune
	allowed := func(r rune) bool {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.Is(unicode.Mn, r):
			return true
		case r == '.', r == '-', r == '_', r == '#', r == ':':
			return true
		default:
			return false
		}
	}
	flush := func() {
		if len(buf) == 0 {
			return
		}
		tokens = append(tokens, string(buf))
		buf = buf[:0]
	}
	for _, r := range text {
		if allowed(r) {
			buf = append(buf, unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return tokens
}
