package mdconvert

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/webstory-importer/internal/markup"
	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/internal/page"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
	"github.com/rohmanhakim/webstory-importer/pkg/htmlutil"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

/*
Design Principles
- Text content over visual fidelity
- No inferred structure
- Story order preserved

Conversion Rules
- The story title becomes the document heading
- Each story page becomes a section headed by its page ID, separated by rules
- amp-img becomes an image; amp-video becomes a link to its first source
- AMP layout containers are flattened to blocks
- Scripts, styles and analytics chrome are dropped
- Symbolic asset references are expanded before conversion

Inline styles and raw HTML are avoided.
*/

// ConvertRule turns a stored story page into Markdown.
// Implementations must be deterministic.
type ConvertRule interface {
	ConvertStory(ctx context.Context, p *page.StoryPage) (ConversionResult, failure.ClassifiedError)
}

// Compile-time interface check
var _ ConvertRule = (*StoryConversionRule)(nil)

type StoryConversionRule struct {
	metadataSink metadata.MetadataSink
	expander     markup.EntityExpander
}

func NewRule(metadataSink metadata.MetadataSink, expander markup.EntityExpander) *StoryConversionRule {
	return &StoryConversionRule{
		metadataSink: metadataSink,
		expander:     expander,
	}
}

// chromeSelector matches elements without readable content.
const chromeSelector = "script, style, noscript, template, amp-analytics, amp-pixel, amp-story-auto-ads, amp-story-bookend"

// blockElements are AMP containers flattened to div.
var blockElements = map[string]bool{
	"amp-story-page":         true,
	"amp-story-grid-layer":   true,
	"amp-story-cta-layer":    true,
	"amp-story-page-outlink": true,
}

func (s *StoryConversionRule) ConvertStory(ctx context.Context, p *page.StoryPage) (ConversionResult, failure.ClassifiedError) {
	var out bytes.Buffer
	var linkRefs []LinkRef

	if p.Title != "" {
		out.WriteString("# " + p.Title + "\n")
	}

	for idx, fragment := range p.Fragments() {
		expanded := fragment.HTML.Expand(ctx, s.expander)
		markdown, refs, err := convert(fragment.ID, expanded)
		if err != nil {
			s.metadataSink.RecordError(
				time.Now(),
				"mdconvert",
				"StoryConversionRule.ConvertStory",
				mapConversionErrorToMetadataCause(err),
				err.Error(),
				[]metadata.Attribute{
					metadata.NewAttr(metadata.AttrFragmentID, fragment.ID),
					metadata.NewAttr(metadata.AttrURL, p.OriginalURL),
				},
			)
			return ConversionResult{}, err
		}

		if idx > 0 {
			out.WriteString("\n---\n")
		}
		if out.Len() > 0 {
			out.WriteString("\n")
		}
		out.WriteString("## " + fragment.ID + "\n")
		if len(markdown) > 0 {
			out.WriteString("\n")
			out.Write(markdown)
			out.WriteString("\n")
		}
		linkRefs = append(linkRefs, refs...)
	}

	return NewConversionResult(out.Bytes(), linkRefs), nil
}

// convert is a stateless pure function that transforms one page fragment
// into Markdown using the html-to-markdown/v2 library.
func convert(pageID string, fragment string) ([]byte, []LinkRef, *ConversionError) {
	doc, container, err := htmlutil.ParseFragment(fragment)
	if err != nil {
		return nil, nil, &ConversionError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseUnparseablePage,
			PageID:    pageID,
		}
	}

	simplify(doc)
	linkRefs := extractLinkRefs(doc, pageID)

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	markdown, err := conv.ConvertNode(container)
	if err != nil {
		return nil, nil, &ConversionError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseConversionFailure,
			PageID:    pageID,
		}
	}
	return bytes.TrimSpace(markdown), linkRefs, nil
}

// simplify rewrites AMP markup into the plain HTML the converter knows.
func simplify(doc *goquery.Document) {
	doc.Find(chromeSelector).Remove()

	doc.Find("amp-img, amp-anim").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		n.Data = "img"
		n.DataAtom = atom.Img
		// an img has no children; fallback placeholders would leak as text
		for c := n.FirstChild; c != nil; c = n.FirstChild {
			n.RemoveChild(c)
		}
	})

	doc.Find("amp-video").Each(func(_ int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if src == "" {
			src = s.Find("source[src]").First().AttrOr("src", "")
		}
		if src == "" {
			s.Remove()
			return
		}
		label := strings.TrimSpace(s.AttrOr("title", ""))
		if label == "" {
			label = "Video"
		}
		link := &html.Node{
			Type:     html.ElementNode,
			Data:     "a",
			DataAtom: atom.A,
			Attr: []html.Attribute{
				{Key: "href", Val: src},
				{Key: "data-kind", Val: string(KindMedia)},
			},
		}
		link.AppendChild(&html.Node{Type: html.TextNode, Data: label})
		s.ReplaceWithNodes(link)
	})

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		if blockElements[n.Data] {
			n.Data = "div"
			n.DataAtom = atom.Div
		}
	})
}

// extractLinkRefs collects references in document order.
func extractLinkRefs(doc *goquery.Document, pageID string) []LinkRef {
	var linkRefs []LinkRef
	doc.Find("a[href], img[src]").Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "a":
			href, _ := s.Attr("href")
			kind := KindNavigation
			if s.AttrOr("data-kind", "") == string(KindMedia) {
				kind = KindMedia
			} else if strings.HasPrefix(href, "#") {
				kind = KindAnchor
			}
			linkRefs = append(linkRefs, NewLinkRef(href, kind, pageID))
		case "img":
			src, _ := s.Attr("src")
			linkRefs = append(linkRefs, NewLinkRef(src, KindImage, pageID))
		}
	})
	return linkRefs
}
