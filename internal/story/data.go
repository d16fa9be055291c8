package story

import "github.com/rohmanhakim/webstory-importer/pkg/urlutil"

// StoryPageFragment is one amp-story-page: its id attribute and its full
// outer markup.
type StoryPageFragment struct {
	ID   string
	HTML string
}

// StoryDocument is the transient result of parsing a web story. Page order
// is display order.
type StoryDocument struct {
	title              string
	publisher          string
	publisherLogoSrc   string
	posterPortraitSrc  string
	posterSquareSrc    string
	posterLandscapeSrc string
	customCSS          string
	canonicalURL       string
	pages              []StoryPageFragment
}

func (d StoryDocument) Title() string {
	return d.title
}

func (d StoryDocument) Publisher() string {
	return d.publisher
}

func (d StoryDocument) PublisherLogoSrc() string {
	return d.publisherLogoSrc
}

func (d StoryDocument) PosterPortraitSrc() string {
	return d.posterPortraitSrc
}

func (d StoryDocument) PosterSquareSrc() string {
	return d.posterSquareSrc
}

func (d StoryDocument) PosterLandscapeSrc() string {
	return d.posterLandscapeSrc
}

func (d StoryDocument) CustomCSS() string {
	return d.customCSS
}

func (d StoryDocument) CanonicalURL() string {
	return d.canonicalURL
}

// Pages returns a copy of the page fragments in document order.
func (d StoryDocument) Pages() []StoryPageFragment {
	pages := make([]StoryPageFragment, len(d.pages))
	copy(pages, d.pages)
	return pages
}

// Normalized returns a copy with every URL field resolved against base and
// whitespace-encoded. Used by callers that parsed with NormalizeURLs off.
func (d StoryDocument) Normalized(base string) StoryDocument {
	n := d
	n.publisherLogoSrc = urlutil.Normalize(base, d.publisherLogoSrc)
	n.posterPortraitSrc = urlutil.Normalize(base, d.posterPortraitSrc)
	n.posterSquareSrc = urlutil.Normalize(base, d.posterSquareSrc)
	n.posterLandscapeSrc = urlutil.Normalize(base, d.posterLandscapeSrc)
	n.canonicalURL = urlutil.Normalize(base, d.canonicalURL)
	n.pages = d.Pages()
	return n
}

// ParseParam controls the two parse modes. The import path wants
// everything normalized; the external story cache only needs the
// root attributes and normalizes them itself.
type ParseParam struct {
	NormalizeURLs bool
	IncludePages  bool
}

func DefaultParseParam() ParseParam {
	return ParseParam{
		NormalizeURLs: true,
		IncludePages:  true,
	}
}
