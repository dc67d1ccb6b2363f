// Package outfmt prints outline documents and search results as text,
// JSON or YAML, with optional jq filtering of the structured forms.
package outfmt

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/httpoutline/internal/errdef"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts text, json or yaml. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", errdef.New(errdef.CodeConfig, "invalid format %q (expected text|json|yaml)", s)
	}
}

type Printer struct {
	w      io.Writer
	format Format
	query  string
}

// NewPrinter returns a printer for format. query is a jq program applied
// before encoding; it is ignored for text output.
func NewPrinter(w io.Writer, format Format, query string) *Printer {
	return &Printer{w: w, format: format, query: strings.TrimSpace(query)}
}

func (p *Printer) Format() Format {
	return p.format
}

// Print writes data. text is what FormatText prints.
func (p *Printer) Print(data any, text string) error {
	switch p.format {
	case FormatText, "":
		_, err := io.WriteString(p.w, text)
		return err
	case FormatJSON:
		return p.printJSON(data)
	case FormatYAML:
		return p.printYAML(data)
	default:
		return fmt.Errorf("unsupported format: %s", p.format)
	}
}

func (p *Printer) printJSON(data any) error {
	enc := json.NewEncoder(p.w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if p.query == "" {
		return enc.Encode(data)
	}
	return p.filter(data, enc.Encode)
}

func (p *Printer) printYAML(data any) error {
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	defer enc.Close()
	if p.query == "" {
		return enc.Encode(data)
	}
	return p.filter(data, enc.Encode)
}

func (p *Printer) filter(data any, emit func(any) error) error {
	code, err := compile(p.query)
	if err != nil {
		return err
	}
	// gojq only walks plain maps, slices and scalars.
	plain, err := normalize(data)
	if err != nil {
		return err
	}
	iter := code.Run(plain)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := v.(error); isErr {
			return fmt.Errorf("query error: %w", err)
		}
		if err := emit(v); err != nil {
			return err
		}
	}
}

func compile(query string) (*gojq.Code, error) {
	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeConfig, err, "invalid --jq")
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeConfig, err, "invalid --jq")
	}
	return code, nil
}

func normalize(data any) (any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode for query: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode for query: %w", err)
	}
	return out, nil
}
