package render

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"github.com/unkn0wn-root/httpoutline/internal/outline"
	"github.com/unkn0wn-root/httpoutline/internal/parser"
)

const usersFile = "###\n# Users\n###\n# List users\nGET /users\n###\nPOST /users\n###\n# Health\n###\nGET /health\n"

func build(text string) *outline.Outline {
	return outline.Build("/tmp/api.http", parser.Parse(text), outline.DefaultDisplay())
}

func TestTreePlain(t *testing.T) {
	out := Tree(build(usersFile), false)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	if strings.TrimRight(lines[0], " ") != "api.http (2 groups, 3 requests)" {
		t.Fatalf("unexpected root line %q", lines[0])
	}
	wantOrder := []string{"Users", "List users [GET]  L3", "/users [POST]  L6", "Health", "/health [GET]  L10"}
	idx := 0
	for _, line := range lines[1:] {
		if idx < len(wantOrder) && strings.Contains(line, wantOrder[idx]) {
			idx++
		}
	}
	if idx != len(wantOrder) {
		t.Fatalf("expected %v in order, got\n%s", wantOrder, out)
	}
	if out != ansi.Strip(out) {
		t.Fatalf("plain output must not carry escape codes")
	}
}

func TestTreeNestsRequestsUnderGroups(t *testing.T) {
	var groupLine, requestLine string
	for _, line := range strings.Split(Tree(build(usersFile), false), "\n") {
		switch {
		case groupLine == "" && strings.HasSuffix(strings.TrimRight(line, " "), "Users"):
			groupLine = line
		case requestLine == "" && strings.Contains(line, "List users"):
			requestLine = line
		}
	}
	if groupLine == "" || requestLine == "" {
		t.Fatalf("missing rows: group %q request %q", groupLine, requestLine)
	}
	if strings.Index(requestLine, "List users") <= strings.Index(groupLine, "Users") {
		t.Fatalf("expected request indented below group:\n%s\n%s", groupLine, requestLine)
	}
}

func TestTreeStyledStripsToPlainLabels(t *testing.T) {
	out := ansi.Strip(Tree(build(usersFile), true))
	for _, want := range []string{"api.http", "Users", "List users [GET]", "L3", "/health [GET]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in\n%s", want, out)
		}
	}
}

func TestTreeEmpty(t *testing.T) {
	out := Tree(outline.Empty("/tmp/notes.http"), false)
	if strings.TrimSpace(out) != "notes.http (0 groups, 0 requests)" {
		t.Fatalf("unexpected empty tree %q", out)
	}
}

func TestTreeIsDeterministic(t *testing.T) {
	a := Tree(build(usersFile), false)
	b := Tree(build(usersFile), false)
	if a != b {
		t.Fatalf("expected identical renders")
	}
}
