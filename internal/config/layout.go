package config

import (
	"strings"
	"time"

	"github.com/unkn0wn-root/httpoutline/internal/outline"
)

type DisplaySettings struct {
	// ShowMethod is a pointer so an absent key keeps the default of true.
	ShowMethod     *bool                  `json:"show_method,omitempty"     toml:"show_method,omitempty"     yaml:"show_method,omitempty"`
	MethodPosition outline.MethodPosition `json:"method_position,omitempty" toml:"method_position,omitempty" yaml:"method_position,omitempty"`
}

type RefreshSettings struct {
	DebounceMS int `json:"debounce_ms" toml:"debounce_ms" yaml:"debounce_ms"`
}

type LayoutSettings struct {
	SidebarWidth float64 `json:"sidebar_width" toml:"sidebar_width" yaml:"sidebar_width"`
}

type IndexSettings struct {
	Include []string `json:"include,omitempty" toml:"include,omitempty" yaml:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty" toml:"exclude,omitempty" yaml:"exclude,omitempty"`
}

const (
	RefreshDebounceDefault = 300
	RefreshDebounceMin     = 50
	RefreshDebounceMax     = 5000

	LayoutSidebarWidthDefault = 0.3
	LayoutSidebarWidthMin     = 0.15
	LayoutSidebarWidthMax     = 0.6
)

func DefaultDisplaySettings() DisplaySettings {
	show := true
	return DisplaySettings{ShowMethod: &show, MethodPosition: outline.MethodSuffix}
}

func DefaultRefreshSettings() RefreshSettings {
	return RefreshSettings{DebounceMS: RefreshDebounceDefault}
}

func DefaultLayoutSettings() LayoutSettings {
	return LayoutSettings{SidebarWidth: LayoutSidebarWidthDefault}
}

func DefaultIndexSettings() IndexSettings {
	return IndexSettings{
		Include: []string{"**/*.http"},
		Exclude: []string{"**/node_modules/**", "**/vendor/**"},
	}
}

func NormaliseDisplaySettings(in DisplaySettings) DisplaySettings {
	out := DefaultDisplaySettings()
	if in.ShowMethod != nil {
		show := *in.ShowMethod
		out.ShowMethod = &show
	}
	out.MethodPosition = normaliseMethodPosition(in.MethodPosition, out.MethodPosition)
	return out
}

func NormaliseRefreshSettings(in RefreshSettings) RefreshSettings {
	return RefreshSettings{DebounceMS: clamp(
		in.DebounceMS,
		RefreshDebounceMin,
		RefreshDebounceMax,
		RefreshDebounceDefault,
	)}
}

func NormaliseLayoutSettings(in LayoutSettings) LayoutSettings {
	return LayoutSettings{SidebarWidth: clamp(
		in.SidebarWidth,
		LayoutSidebarWidthMin,
		LayoutSidebarWidthMax,
		LayoutSidebarWidthDefault,
	)}
}

func NormaliseIndexSettings(in IndexSettings) IndexSettings {
	def := DefaultIndexSettings()
	out := IndexSettings{Include: trimPatterns(in.Include), Exclude: trimPatterns(in.Exclude)}
	if len(out.Include) == 0 {
		out.Include = def.Include
	}
	if in.Exclude == nil {
		out.Exclude = def.Exclude
	}
	return out
}

// OutlineDisplay converts display settings into the outline builder's form.
func (d DisplaySettings) OutlineDisplay() outline.Display {
	n := NormaliseDisplaySettings(d)
	return outline.Display{ShowMethod: *n.ShowMethod, MethodPosition: n.MethodPosition}
}

func (r RefreshSettings) Debounce() time.Duration {
	return time.Duration(NormaliseRefreshSettings(r).DebounceMS) * time.Millisecond
}

func normaliseMethodPosition(in, def outline.MethodPosition) outline.MethodPosition {
	switch strings.ToLower(strings.TrimSpace(string(in))) {
	case string(outline.MethodPrefix):
		return outline.MethodPrefix
	case string(outline.MethodSuffix):
		return outline.MethodSuffix
	default:
		return def
	}
}

func trimPatterns(in []string) []string {
	var out []string
	for _, p := range in {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func clamp[T ~float64 | ~int](value, min, max, fallback T) T {
	if value == 0 {
		return fallback
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
