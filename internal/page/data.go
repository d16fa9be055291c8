package page

import (
	"time"
)

// AssetRef points at a locally stored image, or failing that, the image's
// original remote URL.
type AssetRef struct {
	AssetID     int64  `json:"asset_id,omitempty"`
	OriginalURL string `json:"original_url,omitempty"`
}

func (r AssetRef) HasAsset() bool {
	return r.AssetID != 0
}

func (r AssetRef) IsZero() bool {
	return r.AssetID == 0 && r.OriginalURL == ""
}

// StoryPage is the persisted form of an imported web story.
type StoryPage struct {
	ID              int64     `json:"id"`
	ParentID        int64     `json:"parent_id"`
	PageType        string    `json:"page_type"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Publisher       string    `json:"publisher"`
	PublisherLogo   AssetRef  `json:"publisher_logo"`
	PosterPortrait  AssetRef  `json:"poster_portrait"`
	PosterSquare    AssetRef  `json:"poster_square"`
	PosterLandscape AssetRef  `json:"poster_landscape"`
	CustomCSS       string    `json:"custom_css"`
	OriginalURL     string    `json:"original_url"`
	Blocks          []Block   `json:"pages"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PageRef identifies a stored page.
type PageRef struct {
	ID       int64
	ParentID int64
	Slug     string
}

// Fragments returns the page blocks in order, skipping other block kinds.
func (p *StoryPage) Fragments() []PageValue {
	var out []PageValue
	for _, b := range p.Blocks {
		if v, ok := b.Page(); ok {
			out = append(out, v)
		}
	}
	return out
}

// Ref returns the identity of p.
func (p *StoryPage) Ref() PageRef {
	return PageRef{ID: p.ID, ParentID: p.ParentID, Slug: p.Slug}
}
