package render

import "html/template"

// StoryCard is what the link and embed snippets need to point at a story,
// local or external.
type StoryCard struct {
	URL              string
	Title            string
	Publisher        string
	PublisherLogoURL string
	PosterURL        string
}

type storyView struct {
	Title              string
	CanonicalURL       string
	Publisher          string
	PublisherLogoSrc   string
	PosterPortraitSrc  string
	PosterSquareSrc    string
	PosterLandscapeSrc string
	CustomCSS          template.CSS
	Pages              []template.HTML
}
