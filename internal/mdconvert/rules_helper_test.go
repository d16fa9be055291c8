package mdconvert_test

import (
	"context"
	"strings"

	"github.com/rohmanhakim/webstory-importer/internal/markup"
	"github.com/rohmanhakim/webstory-importer/internal/page"
)

// expanderStub swaps symbolic image references for a fixed URL per id.
type expanderStub struct {
	urls  map[string]string
	calls int
}

func (e *expanderStub) Expand(ctx context.Context, source string) string {
	e.calls++
	out := source
	for id, url := range e.urls {
		out = strings.ReplaceAll(out, markup.ImageIDAttr+`="`+id+`"`, `src="`+url+`"`)
	}
	return out
}

func storyFixture() *page.StoryPage {
	return &page.StoryPage{
		ID:          3,
		Title:       "Wagtail spotting",
		Slug:        "wagtail-spotting",
		OriginalURL: "https://example.com/stories/wagtail-spotting/",
		Blocks: []page.Block{
			page.NewPageBlock("cover", `<amp-story-page id="cover">`+
				`<amp-story-grid-layer template="fill"><amp-img data-wagtail-image-id="7" alt="Wagtails" width="720" height="1280" layout="responsive"></amp-img></amp-story-grid-layer>`+
				`<amp-story-grid-layer template="vertical"><h1>Wagtail spotting</h1></amp-story-grid-layer>`+
				`</amp-story-page>`),
			page.NewRawBlock("quote", []byte(`{"text":"not a page"}`)),
			page.NewPageBlock("page-1", `<amp-story-page id="page-1">`+
				`<amp-story-grid-layer template="vertical"><p>Today we went out <a href="https://example.com/wagtails">wagtail</a> spotting</p>`+
				`<script>alert("boo")</script><amp-analytics type="gtag"></amp-analytics>`+
				`<amp-video title="Flight" width="720" height="1280" poster="/poster.jpg" layout="responsive"><source src="https://media.example.com/flight.mp4" type="video/mp4"></amp-video>`+
				`</amp-story-grid-layer></amp-story-page>`),
		},
	}
}
