package rewriter

import (
	"github.com/rohmanhakim/webstory-importer/internal/assets"
	"golang.org/x/net/html"
)

type RewriteParam struct {
	BaseURL    string
	StoryTitle string
}

// target is one URL attribute found in a page, in document order.
type target struct {
	blockIndex int
	node       *html.Node
	url        string
	video      *assets.VideoRequest // nil for images
}

type resolution struct {
	asset assets.Asset
	ok    bool
}
