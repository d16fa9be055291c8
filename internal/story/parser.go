/*
Responsibilities

- Recognize a web story: exactly one amp-story root and a canonical link
- Read the root's publisher, logo and poster attributes
- Reduce text fields to plain text
- Collect author CSS
- Enumerate amp-story-page elements as ordered fragments

The parser does not fetch, sanitize or rewrite page markup. Page HTML is
the element's outer markup as re-serialized by the HTML parser.
*/
package story

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
	"github.com/rohmanhakim/webstory-importer/pkg/urlutil"
)

// textPolicy strips every tag; safe for concurrent use once built.
var textPolicy = bluemonday.StrictPolicy()

type Parser struct {
	metadataSink metadata.MetadataSink
}

func NewParser(metadataSink metadata.MetadataSink) *Parser {
	return &Parser{
		metadataSink: metadataSink,
	}
}

// Parse extracts a StoryDocument from htmlBytes. sourceURL is the address
// the document was fetched from and is the base for URL normalization.
func (p *Parser) Parse(htmlBytes []byte, sourceURL string, param ParseParam) (StoryDocument, failure.ClassifiedError) {
	doc, err := parse(htmlBytes, sourceURL, param)
	if err != nil {
		p.metadataSink.RecordError(
			time.Now(),
			"story",
			"Parser.Parse",
			mapInvalidStoryErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, sourceURL),
			},
		)
		return StoryDocument{}, err
	}
	return doc, nil
}

func parse(htmlBytes []byte, sourceURL string, param ParseParam) (StoryDocument, *InvalidStoryError) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBytes))
	if err != nil {
		return StoryDocument{}, &InvalidStoryError{
			Message: err.Error(),
			Cause:   ErrCauseUnparseable,
		}
	}

	roots := doc.Find("amp-story")
	switch roots.Length() {
	case 0:
		return StoryDocument{}, &InvalidStoryError{Cause: ErrCauseNoStoryRoot}
	case 1:
	default:
		return StoryDocument{}, &InvalidStoryError{
			Message: fmt.Sprintf("found %d", roots.Length()),
			Cause:   ErrCauseMultipleStoryRoots,
		}
	}
	root := roots.First()

	canonical, canonicalErr := canonicalHref(doc)
	if canonicalErr != nil {
		return StoryDocument{}, canonicalErr
	}

	normalize := func(raw string) string {
		if param.NormalizeURLs {
			return urlutil.Normalize(sourceURL, raw)
		}
		return strings.TrimSpace(raw)
	}

	result := StoryDocument{
		title:              storyTitle(doc, root),
		publisher:          plainText(root.AttrOr("publisher", "")),
		publisherLogoSrc:   normalize(root.AttrOr("publisher-logo-src", "")),
		posterPortraitSrc:  normalize(root.AttrOr("poster-portrait-src", "")),
		posterSquareSrc:    normalize(root.AttrOr("poster-square-src", "")),
		posterLandscapeSrc: normalize(root.AttrOr("poster-landscape-src", "")),
		canonicalURL:       normalize(canonical),
	}

	css := customCSS(doc)
	if param.NormalizeURLs {
		css = rewriteCSSURLs(css, sourceURL)
	}
	result.customCSS = css

	if !param.IncludePages {
		return result, nil
	}

	pages, pageErr := storyPages(root)
	if pageErr != nil {
		return StoryDocument{}, pageErr
	}
	result.pages = pages
	return result, nil
}

// canonicalHref returns the href of the document's single canonical link.
func canonicalHref(doc *goquery.Document) (string, *InvalidStoryError) {
	links := doc.Find(`link[rel~="canonical"]`)
	switch links.Length() {
	case 0:
		return "", &InvalidStoryError{Cause: ErrCauseNoCanonicalLink}
	case 1:
	default:
		return "", &InvalidStoryError{
			Message: fmt.Sprintf("found %d", links.Length()),
			Cause:   ErrCauseMultipleCanonicalLinks,
		}
	}
	href := strings.TrimSpace(links.AttrOr("href", ""))
	if href == "" {
		return "", &InvalidStoryError{Cause: ErrCauseNoCanonicalLink}
	}
	return href, nil
}

// storyTitle prefers the amp-story title attribute over the document title.
func storyTitle(doc *goquery.Document, root *goquery.Selection) string {
	if title := plainText(root.AttrOr("title", "")); title != "" {
		return title
	}
	return plainText(doc.Find("head title").First().Text())
}

func plainText(s string) string {
	if s == "" {
		return ""
	}
	text := html.UnescapeString(textPolicy.Sanitize(s))
	return strings.Join(strings.Fields(text), " ")
}

// customCSS returns the amp-custom stylesheet, or when there is none, the
// concatenation of every style block that is not AMP boilerplate.
func customCSS(doc *goquery.Document) string {
	if custom := doc.Find("style[amp-custom]").First(); custom.Length() > 0 {
		return strings.TrimSpace(custom.Text())
	}

	var blocks []string
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("amp-boilerplate"); ok {
			return
		}
		if _, ok := s.Attr("amp-runtime"); ok {
			return
		}
		if s.ParentsFiltered("noscript").Length() > 0 {
			return
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	return strings.Join(blocks, "\n")
}

func storyPages(root *goquery.Selection) ([]StoryPageFragment, *InvalidStoryError) {
	var pages []StoryPageFragment
	seen := make(map[string]struct{})
	var pageErr *InvalidStoryError

	root.Find("amp-story-page").EachWithBreak(func(i int, s *goquery.Selection) bool {
		id := strings.TrimSpace(s.AttrOr("id", ""))
		if id == "" {
			pageErr = &InvalidStoryError{
				Message: fmt.Sprintf("page %d", i),
				Cause:   ErrCauseMissingPageID,
			}
			return false
		}
		if _, dup := seen[id]; dup {
			pageErr = &InvalidStoryError{
				Message: id,
				Cause:   ErrCauseDuplicatePageID,
			}
			return false
		}
		seen[id] = struct{}{}

		outer, err := goquery.OuterHtml(s)
		if err != nil {
			pageErr = &InvalidStoryError{
				Message: err.Error(),
				Cause:   ErrCauseUnparseable,
			}
			return false
		}
		pages = append(pages, StoryPageFragment{ID: id, HTML: outer})
		return true
	})

	if pageErr != nil {
		return nil, pageErr
	}
	return pages, nil
}
