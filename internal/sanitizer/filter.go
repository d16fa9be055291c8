package sanitizer

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// elements removed together with everything inside them
var droppedContainers = map[string]bool{
	"script":   true,
	"iframe":   true,
	"object":   true,
	"applet":   true,
	"frameset": true,
}

// void elements removed on their own
var droppedVoids = map[string]bool{
	"embed": true,
	"frame": true,
	"base":  true,
}

// script types that carry data for AMP components rather than code
var dataScriptTypes = map[string]bool{
	"application/json":    true,
	"application/ld+json": true,
}

var urlAttrs = map[string]bool{
	"href":       true,
	"src":        true,
	"srcset":     true,
	"action":     true,
	"formaction": true,
	"poster":     true,
	"background": true,
	"cite":       true,
	"xlink:href": true,
}

// filterTokens performs one pass of the denylist filter.
func filterTokens(fragment string) (string, Report) {
	report := newReport()

	var out strings.Builder
	out.Grow(len(fragment))

	z := html.NewTokenizer(strings.NewReader(fragment))

	dropping := ""
	depth := 0
	inDataScript := false

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				out.Write(z.Raw())
			}
			break
		}

		// TagName lowercases the tokenizer buffer in place, copy first
		raw := append([]byte(nil), z.Raw()...)

		if dropping != "" {
			switch tt {
			case html.StartTagToken:
				if tagName(z) == dropping {
					depth++
				}
			case html.EndTagToken:
				if tagName(z) == dropping {
					depth--
					if depth == 0 {
						dropping = ""
					}
				}
			}
			continue
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			name := tok.Data

			if droppedVoids[name] {
				report.removedElements[name]++
				continue
			}
			if droppedContainers[name] {
				if !isDataScript(tok) {
					report.removedElements[name]++
					dropping = name
					depth = 1
					continue
				}
				inDataScript = tt == html.StartTagToken
			}

			kept, stripped := filterAttrs(tok.Attr)
			if stripped == 0 {
				out.Write(raw)
				continue
			}
			report.strippedAttrs += stripped
			tok.Attr = kept
			out.WriteString(tok.String())

		case html.EndTagToken:
			name := tagName(z)
			if name == "script" && inDataScript {
				inDataScript = false
				out.Write(raw)
				continue
			}
			if droppedContainers[name] || droppedVoids[name] {
				// stray closing tag without a kept opener
				report.removedElements[name]++
				continue
			}
			out.Write(raw)

		default:
			out.Write(raw)
		}
	}

	return out.String(), report
}

func tagName(z *html.Tokenizer) string {
	name, _ := z.TagName()
	return string(name)
}

func isDataScript(tok html.Token) bool {
	if tok.Data != "script" {
		return false
	}
	for _, a := range tok.Attr {
		if a.Key == "type" {
			return dataScriptTypes[strings.ToLower(strings.TrimSpace(a.Val))]
		}
	}
	return false
}

func filterAttrs(attrs []html.Attribute) ([]html.Attribute, int) {
	stripped := 0
	kept := make([]html.Attribute, 0, len(attrs))
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		if isEventHandler(key) {
			stripped++
			continue
		}
		if urlAttrs[key] && isScriptURL(a.Val) {
			stripped++
			continue
		}
		kept = append(kept, a)
	}
	return kept, stripped
}

// isEventHandler matches onclick, onerror and friends. AMP's own "on"
// action attribute and the boolean "open" are not handlers.
func isEventHandler(key string) bool {
	return strings.HasPrefix(key, "on") && key != "on" && key != "open"
}

// isScriptURL reports whether a URL attribute value would execute script.
// Browsers ignore leading control characters and spaces and any tab or
// newline inside the scheme, so those are removed before comparing.
func isScriptURL(val string) bool {
	var b strings.Builder
	for _, r := range val {
		if r <= ' ' {
			continue
		}
		b.WriteRune(r)
		if b.Len() > len("javascript:") {
			break
		}
	}
	scheme := strings.ToLower(b.String())
	return strings.HasPrefix(scheme, "javascript:") || strings.HasPrefix(scheme, "vbscript:")
}
