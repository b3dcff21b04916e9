package feed

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText cleans one message for display: decompose and strip
// combining marks, drop surrounding quotes left by double-encoded payloads,
// and turn literal \n sequences into real newlines.
func NormalizeText(s string) string {
	if s == "" {
		return s
	}

	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	out := b.String()
	out = strings.TrimPrefix(out, `"`)
	out = strings.TrimSuffix(out, `"`)
	out = strings.ReplaceAll(out, `\n`, "\n")
	return out
}
