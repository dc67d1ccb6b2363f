package restfile

import "fmt"

const (
	UnnamedRequest = "Unnamed Request"
	UnnamedGroup   = "Unnamed Group"
)

type ElementKind int

const (
	KindGroup ElementKind = iota
	KindRequest
)

func (k ElementKind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindRequest:
		return "request"
	default:
		return "unknown"
	}
}

func (k ElementKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ElementKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "group":
		*k = KindGroup
	case "request":
		*k = KindRequest
	default:
		return fmt.Errorf("unknown element kind %q", text)
	}
	return nil
}

// Position is a source location. Line is 1-based, Column counts characters
// from the start of the line.
type Position struct {
	Line   int `json:"line"   yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

func (p Position) Before(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// Range is inclusive at both ends.
type Range struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end"   yaml:"end"`
}

func (r Range) Contains(p Position) bool {
	return !p.Before(r.Start) && !r.End.Before(p)
}

// Within reports whether r lies entirely inside outer.
func (r Range) Within(outer Range) bool {
	return outer.Contains(r.Start) && outer.Contains(r.End)
}

func (r Range) Lines() LineRange {
	return LineRange{Start: r.Start.Line, End: r.End.Line}
}

type LineRange struct {
	Start int
	End   int
}

// Element is one parsed block. Request is set iff Kind is KindRequest.
type Element struct {
	Kind    ElementKind
	Name    string
	Range   Range
	Request *Request
}

type Request struct {
	CommentName string
	Content     string
	Method      string
	URL         string
}

func (e Element) IsGroup() bool {
	return e.Kind == KindGroup
}

func (e Element) HasMethod() bool {
	return e.Request != nil && e.Request.Method != ""
}
