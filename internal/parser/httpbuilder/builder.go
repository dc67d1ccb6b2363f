package httpbuilder

import (
	"regexp"
	"strings"
)

// methodHeaderRe is anchored per line; (?m) lets one search cover a whole block.
var methodHeaderRe = regexp.MustCompile(
	`(?im)^(GET|POST|PUT|DELETE|PATCH|HEAD|OPTIONS)\s+(.+)$`,
)

var methodLineRe = regexp.MustCompile(
	`^(?i)(GET|POST|PUT|DELETE|PATCH|HEAD|OPTIONS)\s+\S`,
)

// IsMethodLine reports whether a single line is a METHOD URL header.
func IsMethodLine(line string) bool {
	return methodLineRe.MatchString(strings.TrimRight(line, "\r"))
}

// ParseMethodLine splits one header line into an upper-cased method and its target.
func ParseMethodLine(line string) (method string, url string, ok bool) {
	m := methodHeaderRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return normalise(m[1], m[2])
}

// FindMethodLine returns the first METHOD URL header anywhere in block.
// A header whose target trims to nothing does not count.
func FindMethodLine(block string) (method string, url string, ok bool) {
	for _, m := range methodHeaderRe.FindAllStringSubmatch(block, -1) {
		if method, url, ok = normalise(m[1], m[2]); ok {
			return method, url, true
		}
	}
	return "", "", false
}

// HasMethodLine is FindMethodLine without the captures.
func HasMethodLine(block string) bool {
	_, _, ok := FindMethodLine(block)
	return ok
}

func normalise(method, url string) (string, string, bool) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", "", false
	}
	return strings.ToUpper(method), url, true
}
