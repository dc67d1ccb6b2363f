package theme

import "testing"

func TestMethodColor(t *testing.T) {
	th := DefaultTheme()
	cases := map[string]string{
		"GET":     string(th.MethodColors.GET),
		" post ":  string(th.MethodColors.POST),
		"delete":  string(th.MethodColors.DELETE),
		"OPTIONS": string(th.MethodColors.OPTIONS),
		"QUERY":   string(th.MethodColors.Default),
		"":        string(th.MethodColors.Default),
	}
	for method, want := range cases {
		if got := string(th.MethodColor(method)); got != want {
			t.Fatalf("MethodColor(%q) = %s, want %s", method, got, want)
		}
	}
}
