package export

import (
	"strings"
	"testing"

	"github.com/unkn0wn-root/httpoutline/internal/errdef"
	"github.com/unkn0wn-root/httpoutline/internal/outline"
	"github.com/unkn0wn-root/httpoutline/internal/parser"
)

const usersFile = "###\n# Users\n###\n# List users\nGET /users\n###\nPOST /users\n"

func build(path, text string) *outline.Outline {
	return outline.Build(path, parser.Parse(text), outline.DefaultDisplay())
}

func TestMarkdown(t *testing.T) {
	got := Markdown(build("/work/api.http", usersFile))
	want := "# api.http\n\n" +
		"1 groups, 2 requests\n\n" +
		"- **Users** (L1)\n" +
		"  - [List users \\[GET\\]](api.http#L3) `GET /users`\n" +
		"  - [/users \\[POST\\]](api.http#L6) `POST /users`\n"
	if got != want {
		t.Fatalf("unexpected markdown\n--- got\n%s\n--- want\n%s", got, want)
	}
}

func TestMarkdownEmpty(t *testing.T) {
	got := Markdown(outline.Empty("/work/empty.http"))
	if got != "# empty.http\n\n0 groups, 0 requests\n" {
		t.Fatalf("unexpected markdown %q", got)
	}
}

func TestMarkdownEscapesLabels(t *testing.T) {
	got := Markdown(build("a.http", "###\n# *starred* _name_\nGET /x\n"))
	if !strings.Contains(got, `[\*starred\* \_name\_ \[GET\]]`) {
		t.Fatalf("expected escaped label in\n%s", got)
	}
}

func TestHTML(t *testing.T) {
	got, err := HTML(build("/work/api.http", usersFile))
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	for _, want := range []string{
		"<h1>api.http</h1>",
		"<strong>Users</strong>",
		`<a href="api.http#L3">List users [GET]</a>`,
		"<code>POST /users</code>",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in\n%s", want, got)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("MD"); err != nil || f != FormatMarkdown {
		t.Fatalf("expected markdown, got %q %v", f, err)
	}
	if f, err := ParseFormat("html"); err != nil || f != FormatHTML {
		t.Fatalf("expected html, got %q %v", f, err)
	}
	if _, err := ParseFormat("pdf"); !errdef.Is(err, errdef.CodeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestRenderDispatches(t *testing.T) {
	o := build("api.http", usersFile)
	md, err := Render(o, FormatMarkdown)
	if err != nil || md != Markdown(o) {
		t.Fatalf("unexpected markdown render: %v", err)
	}
	html, err := Render(o, FormatHTML)
	if err != nil || !strings.HasPrefix(html, "<h1>") {
		t.Fatalf("unexpected html render %q: %v", html, err)
	}
}
