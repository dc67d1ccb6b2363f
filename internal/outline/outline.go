package outline

import (
	"fmt"
	"strings"

	"github.com/unkn0wn-root/httpoutline/internal/restfile"
)

type MethodPosition string

const (
	MethodPrefix MethodPosition = "prefix"
	MethodSuffix MethodPosition = "suffix"
)

// Display controls how request labels are rendered.
type Display struct {
	ShowMethod     bool           `json:"showMethod"     yaml:"show_method"`
	MethodPosition MethodPosition `json:"methodPosition" yaml:"method_position"`
}

func DefaultDisplay() Display {
	return Display{ShowMethod: true, MethodPosition: MethodSuffix}
}

// Prefix reports whether the method badge goes before the name.
// Anything other than "prefix" renders as a suffix.
func (d Display) Prefix() bool {
	return strings.EqualFold(strings.TrimSpace(string(d.MethodPosition)), string(MethodPrefix))
}

type Node struct {
	ID       string               `json:"id"                yaml:"id"`
	Label    string               `json:"label"             yaml:"label"`
	Name     string               `json:"name"              yaml:"name"`
	Kind     restfile.ElementKind `json:"kind"              yaml:"kind"`
	Range    restfile.Range       `json:"range"             yaml:"range"`
	Method   string               `json:"method,omitempty"  yaml:"method,omitempty"`
	URL      string               `json:"url,omitempty"     yaml:"url,omitempty"`
	Content  string               `json:"content,omitempty" yaml:"content,omitempty"`
	Children []*Node              `json:"children,omitempty" yaml:"children,omitempty"`
}

func (n *Node) IsGroup() bool {
	return n != nil && n.Kind == restfile.KindGroup
}

// Outline is an immutable forest built from one parse. Callers swap whole
// outlines rather than mutating one.
type Outline struct {
	path  string
	roots []*Node
	flat  []*Node
	byID  map[string]*Node
}

// Empty returns an outline with no nodes for path.
func Empty(path string) *Outline {
	return &Outline{path: path, byID: map[string]*Node{}}
}

// Build folds elements into a two-level forest. A group starts a new
// current group; requests attach to it until the next group appears.
func Build(path string, elements []restfile.Element, d Display) *Outline {
	o := Empty(path)
	var group *Node
	for _, el := range elements {
		n := newNode(el, d)
		o.flat = append(o.flat, n)
		o.byID[n.ID] = n
		switch {
		case el.IsGroup():
			group = n
			o.roots = append(o.roots, n)
		case group != nil:
			group.Children = append(group.Children, n)
		default:
			o.roots = append(o.roots, n)
		}
	}
	return o
}

func newNode(el restfile.Element, d Display) *Node {
	n := &Node{
		ID:    nodeID(el),
		Label: Label(el, d),
		Name:  Label(el, Display{}),
		Kind:  el.Kind,
		Range: el.Range,
	}
	if el.Request != nil {
		n.Method = el.Request.Method
		n.URL = el.Request.URL
		n.Content = el.Request.Content
	}
	return n
}

func nodeID(el restfile.Element) string {
	return fmt.Sprintf("%s:%d", el.Kind, el.Range.Start.Line)
}

// Label renders the display string of an element.
func Label(el restfile.Element, d Display) string {
	if el.IsGroup() {
		if name := strings.TrimSpace(el.Name); name != "" {
			return name
		}
		return restfile.UnnamedGroup
	}

	base := baseName(el)
	if base == "" {
		base = restfile.UnnamedRequest
	}
	if !d.ShowMethod || !el.HasMethod() {
		return base
	}

	badge := "[" + strings.ToUpper(el.Request.Method) + "]"
	var label string
	if d.Prefix() {
		label = strings.TrimSpace(badge + " " + base)
	} else {
		label = strings.TrimSpace(base + " " + badge)
	}
	if label == "" {
		return restfile.UnnamedRequest
	}
	return label
}

func baseName(el restfile.Element) string {
	req := el.Request
	if req == nil {
		return strings.TrimSpace(el.Name)
	}
	if name := strings.TrimSpace(req.CommentName); name != "" {
		return name
	}
	if req.Method != "" && req.URL != "" && strings.HasPrefix(el.Name, req.Method) {
		rest := strings.TrimSpace(el.Name[len(req.Method):])
		if strings.HasPrefix(rest, req.URL) {
			return req.URL
		}
	}
	return strings.TrimSpace(el.Name)
}

func (o *Outline) Path() string {
	if o == nil {
		return ""
	}
	return o.path
}

func (o *Outline) Roots() []*Node {
	if o == nil {
		return nil
	}
	return o.roots
}

// Nodes returns every node in document order.
func (o *Outline) Nodes() []*Node {
	if o == nil {
		return nil
	}
	return o.flat
}

func (o *Outline) Find(id string) (*Node, bool) {
	if o == nil {
		return nil, false
	}
	n, ok := o.byID[id]
	return n, ok
}

func (o *Outline) Counts() (groups, requests int) {
	for _, n := range o.Nodes() {
		if n.IsGroup() {
			groups++
		} else {
			requests++
		}
	}
	return groups, requests
}

func (o *Outline) Empty() bool {
	return len(o.Nodes()) == 0
}

// NodeAt returns the tightest node whose range contains pos.
func (o *Outline) NodeAt(pos restfile.Position) (*Node, bool) {
	var best *Node
	for _, n := range o.Nodes() {
		if !n.Range.Contains(pos) {
			continue
		}
		if best == nil || n.Range.Within(best.Range) {
			best = n
		}
	}
	return best, best != nil
}

// Document is the serialisable form of an outline.
type Document struct {
	Path     string  `json:"path"     yaml:"path"`
	Groups   int     `json:"groups"   yaml:"groups"`
	Requests int     `json:"requests" yaml:"requests"`
	Nodes    []*Node `json:"nodes"    yaml:"nodes"`
}

func (o *Outline) Document() Document {
	groups, requests := o.Counts()
	roots := o.Roots()
	if roots == nil {
		roots = []*Node{}
	}
	return Document{
		Path:     o.Path(),
		Groups:   groups,
		Requests: requests,
		Nodes:    roots,
	}
}
