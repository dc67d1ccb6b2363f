package lsp

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/unkn0wn-root/httpoutline/internal/outline"
	"github.com/unkn0wn-root/httpoutline/internal/restfile"
)

func uriToPath(uri protocol.DocumentURI) string {
	raw := string(uri)
	if !strings.HasPrefix(raw, "file://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return filepath.FromSlash(strings.TrimPrefix(raw, "file://"))
	}
	p := u.Path
	if runtime.GOOS == "windows" {
		p = strings.TrimPrefix(p, "/")
	}
	return filepath.FromSlash(p)
}

func pathToURI(path string) protocol.DocumentURI {
	p := filepath.ToSlash(filepath.Clean(path))
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return protocol.DocumentURI(u.String())
}

// toPosition maps a 0-based LSP position onto a 1-based source line.
// Characters are treated as runes.
func toPosition(p protocol.Position) restfile.Position {
	return restfile.Position{Line: int(p.Line) + 1, Column: int(p.Character)}
}

func fromPosition(p restfile.Position) protocol.Position {
	line := p.Line - 1
	if line < 0 {
		line = 0
	}
	return protocol.Position{Line: uint32(line), Character: uint32(p.Column)}
}

func fromRange(r restfile.Range) protocol.Range {
	return protocol.Range{Start: fromPosition(r.Start), End: fromPosition(r.End)}
}

func symbolKind(n *outline.Node) protocol.SymbolKind {
	if n.IsGroup() {
		return protocol.SymbolKindNamespace
	}
	return protocol.SymbolKindMethod
}

func documentSymbols(nodes []*outline.Node) []protocol.DocumentSymbol {
	out := make([]protocol.DocumentSymbol, 0, len(nodes))
	for _, n := range nodes {
		rng := fromRange(n.Range)
		sym := protocol.DocumentSymbol{
			Name:           n.Label,
			Kind:           symbolKind(n),
			Range:          rng,
			SelectionRange: protocol.Range{Start: rng.Start, End: rng.Start},
		}
		if n.URL != "" {
			sym.Detail = strings.TrimSpace(n.Method + " " + n.URL)
		}
		if len(n.Children) > 0 {
			sym.Children = documentSymbols(n.Children)
		}
		out = append(out, sym)
	}
	return out
}
