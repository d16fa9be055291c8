package external

import "time"

// ExternalStory is the cached projection of a story hosted elsewhere. URLs
// are absolute.
type ExternalStory struct {
	URLHash            string    `json:"url_hash"`
	URL                string    `json:"url"`
	Title              string    `json:"title"`
	Publisher          string    `json:"publisher"`
	PublisherLogoSrc   string    `json:"publisher_logo_src"`
	PosterPortraitSrc  string    `json:"poster_portrait_src"`
	PosterSquareSrc    string    `json:"poster_square_src"`
	PosterLandscapeSrc string    `json:"poster_landscape_src"`
	LastFetchedAt      time.Time `json:"last_fetched_at"`
}

type CacheParam struct {
	userAgent string
	maxBytes  int64
}

func NewCacheParam(userAgent string, maxBytes int64) CacheParam {
	return CacheParam{
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

func (c CacheParam) UserAgent() string {
	return c.userAgent
}

func (c CacheParam) MaxBytes() int64 {
	return c.maxBytes
}
