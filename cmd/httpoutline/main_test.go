package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const usersFile = "###\n# Users\n###\n# List users\nGET /users\n###\nPOST /users\n"

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(""), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func workspace(t *testing.T) (dir, cfgDir string) {
	t.Helper()
	dir = t.TempDir()
	cfgDir = t.TempDir()
	t.Setenv("HTTPOUTLINE_CONFIG_DIR", cfgDir)
	t.Setenv("HTTPOUTLINE_OTEL_ENDPOINT", "")
	writeFile(t, filepath.Join(dir, "api.http"), usersFile)
	return dir, cfgDir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestTreeText(t *testing.T) {
	dir, _ := workspace(t)
	res := runCLI(t, "tree", filepath.Join(dir, "api.http"))
	if res.code != 0 {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}
	for _, want := range []string{"api.http (1 groups, 2 requests)", "Users", "List users [GET]  L3", "/users [POST]  L6"} {
		if !strings.Contains(res.stdout, want) {
			t.Fatalf("expected %q in:\n%s", want, res.stdout)
		}
	}
	if strings.Contains(res.stdout, "\x1b[") {
		t.Fatalf("expected plain output when stdout is not a terminal")
	}
}

func TestTreeJSONWithQuery(t *testing.T) {
	dir, _ := workspace(t)
	res := runCLI(t, "tree", filepath.Join(dir, "api.http"), "--format", "json", "--jq", "[.nodes[0].children[].label]")
	if res.code != 0 {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}
	var labels []string
	if err := json.Unmarshal([]byte(res.stdout), &labels); err != nil {
		t.Fatalf("decode %q: %v", res.stdout, err)
	}
	if strings.Join(labels, "|") != "List users [GET]|/users [POST]" {
		t.Fatalf("unexpected labels %q", labels)
	}
}

func TestDisplayFlags(t *testing.T) {
	dir, _ := workspace(t)
	path := filepath.Join(dir, "api.http")

	res := runCLI(t, "tree", path, "--method-position", "prefix")
	if !strings.Contains(res.stdout, "[GET] List users") {
		t.Fatalf("expected prefix labels:\n%s", res.stdout)
	}
	res = runCLI(t, "tree", path, "--show-method=false")
	if strings.Contains(res.stdout, "[GET]") {
		t.Fatalf("expected methods hidden:\n%s", res.stdout)
	}
	res = runCLI(t, "tree", path, "--method-position", "middle")
	if res.code != 1 || !strings.Contains(res.stderr, "invalid --method-position") {
		t.Fatalf("expected config error, got %d %q", res.code, res.stderr)
	}
}

func TestSettingsFileApplies(t *testing.T) {
	dir, cfgDir := workspace(t)
	writeFile(t, filepath.Join(cfgDir, "settings.toml"), "[display]\nmethod_position = \"prefix\"\n")
	res := runCLI(t, "tree", filepath.Join(dir, "api.http"))
	if !strings.Contains(res.stdout, "[POST] /users") {
		t.Fatalf("expected settings to select prefix labels:\n%s", res.stdout)
	}
}

func TestTreeMissingFile(t *testing.T) {
	dir, _ := workspace(t)
	path := filepath.Join(dir, "missing.http")
	res := runCLI(t, "tree", path)
	if res.code != 1 {
		t.Fatalf("expected exit 1, got %d", res.code)
	}
	if !strings.HasPrefix(res.stderr, "error: read "+path) {
		t.Fatalf("unexpected stderr %q", res.stderr)
	}
}

func TestNode(t *testing.T) {
	dir, _ := workspace(t)
	path := filepath.Join(dir, "api.http")

	res := runCLI(t, "node", path, "--line", "5")
	if strings.TrimSpace(res.stdout) != "List users [GET]  L3-L5" {
		t.Fatalf("unexpected node output %q", res.stdout)
	}
	res = runCLI(t, "node", path, "--line", "2")
	if strings.TrimSpace(res.stdout) != "Users  L1-L2" {
		t.Fatalf("unexpected group output %q", res.stdout)
	}
	res = runCLI(t, "node", path, "--line", "40", "--format", "json", "--jq", ".found")
	if strings.TrimSpace(res.stdout) != "false" {
		t.Fatalf("unexpected miss output %q", res.stdout)
	}
	res = runCLI(t, "node", path, "--line", "0")
	if res.code != 1 || !strings.Contains(res.stderr, "--line must be at least 1") {
		t.Fatalf("expected line validation, got %d %q", res.code, res.stderr)
	}
}

func TestExportMarkdown(t *testing.T) {
	dir, _ := workspace(t)
	out := filepath.Join(dir, "outline.md")
	res := runCLI(t, "export", filepath.Join(dir, "api.http"), "--out", out)
	if res.code != 0 {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "# api.http\n") || !strings.Contains(string(data), "`GET /users`") {
		t.Fatalf("unexpected markdown:\n%s", data)
	}

	res = runCLI(t, "export", filepath.Join(dir, "api.http"), "--format", "html")
	if !strings.Contains(res.stdout, "<ul>") {
		t.Fatalf("expected html list:\n%s", res.stdout)
	}
}

func TestIndexAndSearch(t *testing.T) {
	dir, _ := workspace(t)
	writeFile(t, filepath.Join(dir, "billing", "invoices.http"), "###\n# Invoices\nGET /invoices\n")
	writeFile(t, filepath.Join(dir, "node_modules", "skip.http"), "GET /users/skip\n")

	res := runCLI(t, "index", dir)
	if res.code != 0 {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}
	if strings.TrimSpace(res.stdout) != "indexed 2 files (0 unchanged, 0 removed)" {
		t.Fatalf("unexpected summary %q", res.stdout)
	}

	res = runCLI(t, "index", dir)
	if strings.TrimSpace(res.stdout) != "indexed 0 files (2 unchanged, 0 removed)" {
		t.Fatalf("unexpected second summary %q", res.stdout)
	}

	res = runCLI(t, "search", "users", "--format", "json", "--jq", "[.[].label]")
	if res.code != 0 {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}
	var labels []string
	if err := json.Unmarshal([]byte(res.stdout), &labels); err != nil {
		t.Fatalf("decode %q: %v", res.stdout, err)
	}
	if strings.Join(labels, "|") != "Users|List users [GET]|/users [POST]" {
		t.Fatalf("unexpected hits %q", labels)
	}

	if err := os.Remove(filepath.Join(dir, "billing", "invoices.http")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	res = runCLI(t, "index", dir)
	if strings.TrimSpace(res.stdout) != "indexed 0 files (1 unchanged, 1 removed)" {
		t.Fatalf("unexpected summary after delete %q", res.stdout)
	}
	res = runCLI(t, "search", "invoices")
	if strings.TrimSpace(res.stdout) != "no matches" {
		t.Fatalf("expected no matches, got %q", res.stdout)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	_, cfgDir := workspace(t)

	res := runCLI(t, "config", "init")
	if res.code != 0 {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}
	if _, err := os.Stat(filepath.Join(cfgDir, "settings.toml")); err != nil {
		t.Fatalf("expected settings.toml: %v", err)
	}

	res = runCLI(t, "config", "init")
	if res.code != 1 || !strings.Contains(res.stderr, "already exists") {
		t.Fatalf("expected refusal to overwrite, got %d %q", res.code, res.stderr)
	}

	res = runCLI(t, "config", "show", "--debounce", "750ms")
	if !strings.Contains(res.stdout, "debounce_ms = 750") {
		t.Fatalf("expected flag override in settings:\n%s", res.stdout)
	}
}

func TestOutlineDiff(t *testing.T) {
	if got := outlineDiff("a\nb\n", "a\nb\n"); got != "" {
		t.Fatalf("expected no diff, got %q", got)
	}
	got := outlineDiff("a\nb\n", "a\nc\n")
	if !strings.Contains(got, "-b") || !strings.Contains(got, "+c") {
		t.Fatalf("unexpected diff %q", got)
	}
}

func TestTuiNeedsTerminal(t *testing.T) {
	dir, _ := workspace(t)
	res := runCLI(t, "tui", filepath.Join(dir, "api.http"))
	if res.code != 1 || !strings.Contains(res.stderr, "interactive terminal") {
		t.Fatalf("expected terminal error, got %d %q", res.code, res.stderr)
	}
}
