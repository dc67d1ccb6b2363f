package config

import (
	"testing"
	"time"

	"github.com/unkn0wn-root/httpoutline/internal/outline"
)

func TestNormaliseLayoutSettingsDefaultsAndBounds(t *testing.T) {
	if got := NormaliseLayoutSettings(LayoutSettings{}).SidebarWidth; got != LayoutSidebarWidthDefault {
		t.Fatalf("expected sidebar width default %v, got %v", LayoutSidebarWidthDefault, got)
	}
	if got := NormaliseLayoutSettings(LayoutSettings{SidebarWidth: 0.01}).SidebarWidth; got != LayoutSidebarWidthMin {
		t.Fatalf("expected sidebar width min %v, got %v", LayoutSidebarWidthMin, got)
	}
	if got := NormaliseLayoutSettings(LayoutSettings{SidebarWidth: 0.4}).SidebarWidth; got != 0.4 {
		t.Fatalf("expected sidebar width to be kept, got %v", got)
	}
}

func TestNormaliseRefreshSettings(t *testing.T) {
	cases := []struct {
		in   int
		want time.Duration
	}{
		{0, 300 * time.Millisecond},
		{10, RefreshDebounceMin * time.Millisecond},
		{750, 750 * time.Millisecond},
		{60000, RefreshDebounceMax * time.Millisecond},
	}
	for _, tc := range cases {
		if got := (RefreshSettings{DebounceMS: tc.in}).Debounce(); got != tc.want {
			t.Fatalf("debounce %d: expected %s, got %s", tc.in, tc.want, got)
		}
	}
}

func TestNormaliseDisplaySettings(t *testing.T) {
	d := DisplaySettings{MethodPosition: " Sideways "}.OutlineDisplay()
	if !d.ShowMethod || d.MethodPosition != outline.MethodSuffix {
		t.Fatalf("expected defaults for unknown position, got %+v", d)
	}

	show := false
	in := DisplaySettings{ShowMethod: &show, MethodPosition: "prefix"}
	out := NormaliseDisplaySettings(in)
	if out.ShowMethod == in.ShowMethod {
		t.Fatalf("expected normalised settings to own their pointer")
	}
	if *out.ShowMethod || out.MethodPosition != outline.MethodPrefix {
		t.Fatalf("unexpected normalised display %+v", out)
	}
}

func TestNormaliseIndexSettings(t *testing.T) {
	idx := NormaliseIndexSettings(IndexSettings{})
	if len(idx.Include) != 1 || idx.Include[0] != "**/*.http" {
		t.Fatalf("expected default include, got %v", idx.Include)
	}
	if len(idx.Exclude) == 0 {
		t.Fatalf("expected default excludes")
	}

	idx = NormaliseIndexSettings(IndexSettings{Include: []string{" api/**/*.http ", ""}, Exclude: []string{}})
	if len(idx.Include) != 1 || idx.Include[0] != "api/**/*.http" {
		t.Fatalf("unexpected include %v", idx.Include)
	}
	if len(idx.Exclude) != 0 {
		t.Fatalf("expected explicit empty exclude list to stay empty, got %v", idx.Exclude)
	}
}
