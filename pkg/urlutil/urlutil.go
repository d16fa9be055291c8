package urlutil

import (
	"net/url"
	"strings"
	"unicode"
)

// Resolve joins candidate against base following RFC 3986 reference
// resolution. Absolute candidates come back unchanged, an empty candidate
// yields an empty result, and candidates that cannot be parsed (or a base
// that cannot be parsed) are returned as-is.
func Resolve(base, candidate string) string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return ""
	}
	ref, err := url.Parse(candidate)
	if err != nil {
		return candidate
	}
	if ref.IsAbs() {
		return candidate
	}
	baseURL, err := url.Parse(base)
	if err != nil || base == "" {
		return candidate
	}
	return baseURL.ResolveReference(ref).String()
}

// EncodeIfWhitespace percent-encodes u when it contains a whitespace
// character and is not a data: URL. Existing %XX escapes and URL punctuation
// are preserved; every other byte outside the unreserved set is escaped.
func EncodeIfWhitespace(u string) string {
	if !strings.ContainsFunc(u, unicode.IsSpace) {
		return u
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(u)), "data:") {
		return u
	}

	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(u) + 16)
	for i := 0; i < len(u); i++ {
		c := u[i]
		if isKeptByte(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

// Normalize is the form applied to every URL attribute read from a fetched
// document: resolved against base, then whitespace-encoded.
func Normalize(base, candidate string) string {
	return EncodeIfWhitespace(Resolve(base, candidate))
}

// Canonicalize applies a deterministic normalization to a URL so that
// equivalent spellings of one asset location map to the same key.
//
// The normalization follows these rules:
//   - Scheme and host are lowercased
//   - Fragments are removed
//   - Default ports are omitted (e.g., :80 for http, :443 for https)
//
// Path and query are left alone: CDNs commonly serve different bytes for
// different query strings, and trailing slashes are significant for files.
func Canonicalize(sourceUrl url.URL) url.URL {
	canonical := sourceUrl

	canonical.Scheme = lowerASCII(canonical.Scheme)
	canonical.Host = lowerASCII(canonical.Host)

	if host, port := canonical.Hostname(), canonical.Port(); port != "" {
		if (canonical.Scheme == "http" && port == "80") ||
			(canonical.Scheme == "https" && port == "443") {
			canonical.Host = host
		}
	}

	canonical.Fragment = ""
	canonical.RawFragment = ""

	return canonical
}

// CanonicalKey parses raw and returns its canonical string form. Unparseable
// input is returned unchanged so it still works as a map key.
func CanonicalKey(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	canonical := Canonicalize(*parsed)
	return canonical.String()
}

// isKeptByte reports whether c survives EncodeIfWhitespace unescaped.
func isKeptByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-._~/#%[]=:;$&()+,!?*@'", c) >= 0
}

// lowerASCII converts ASCII characters to lowercase without allocating.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
