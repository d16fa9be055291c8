package story

import (
	"strings"

	"github.com/gorilla/css/scanner"
	"github.com/rohmanhakim/webstory-importer/pkg/urlutil"
)

// rewriteCSSURLs resolves every url(...) in css against base. Fragment-only
// and data: references are kept. Input the scanner cannot tokenize is
// returned unchanged.
func rewriteCSSURLs(css string, base string) string {
	if css == "" || !strings.Contains(strings.ToLower(css), "url(") {
		return css
	}

	var b strings.Builder
	b.Grow(len(css))
	s := scanner.New(css)
	for {
		tok := s.Next()
		switch tok.Type {
		case scanner.TokenEOF:
			return b.String()
		case scanner.TokenError:
			return css
		case scanner.TokenURI:
			b.WriteString(rewriteURIToken(tok.Value, base))
		default:
			b.WriteString(tok.Value)
		}
	}
}

func rewriteURIToken(token string, base string) string {
	if len(token) < 5 || !strings.EqualFold(token[:4], "url(") || !strings.HasSuffix(token, ")") {
		return token
	}
	inner := strings.TrimSpace(token[4 : len(token)-1])
	quote := ""
	if len(inner) >= 2 && (inner[0] == '"' || inner[0] == '\'') && inner[len(inner)-1] == inner[0] {
		quote = inner[:1]
		inner = inner[1 : len(inner)-1]
	}
	inner = strings.TrimSpace(inner)

	lower := strings.ToLower(inner)
	if inner == "" || strings.HasPrefix(inner, "#") || strings.HasPrefix(lower, "data:") {
		return token
	}
	return "url(" + quote + urlutil.Normalize(base, inner) + quote + ")"
}
