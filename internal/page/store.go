package page

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrNotFound is returned by Store implementations for unknown page ids.
var ErrNotFound = errors.New("page not found")

// Store persists story pages in a page tree.
type Store interface {
	// CreateChildPage assigns ID, timestamps and a slug unique among the
	// parent's children, then stores p.
	CreateChildPage(ctx context.Context, parentID int64, p *StoryPage) (PageRef, error)
	Get(ctx context.Context, id int64) (*StoryPage, bool, error)
	Update(ctx context.Context, p *StoryPage) error
}

// Slugify lowercases title, folds accents and joins words with hyphens.
func Slugify(title string) string {
	// chained transformers carry state, so one per call
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == '_' || r == '-' || unicode.IsSpace(r):
			pendingHyphen = true
		}
	}
	slug := b.String()
	if r := []rune(slug); len(r) > 255 {
		slug = strings.TrimRight(string(r[:255]), "-")
	}
	if slug == "" {
		return "story"
	}
	return slug
}
