/*
Responsibilities

- Memoize story metadata for external story URLs
- Fetch and parse a story at most once per URL

Cache Policies
- Entries are keyed by the SHA-1 hex digest of the URL
- Present entries are never refetched; there is no expiry
- Concurrent misses for one URL within a process share one fetch
- Across processes the last writer wins; writes replace whole entries
*/
package external

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/fetcher"
	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/internal/story"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
	"github.com/rohmanhakim/webstory-importer/pkg/hashutil"
	"golang.org/x/sync/singleflight"
)

// Repository stores cache entries. Put must replace an entry atomically.
type Repository interface {
	Get(ctx context.Context, urlHash string) (ExternalStory, bool, error)
	Put(ctx context.Context, entry ExternalStory) error
}

type Cache struct {
	metadataSink metadata.MetadataSink
	repository   Repository
	fetcher      fetcher.Fetcher
	parser       *story.Parser
	cacheParam   CacheParam
	group        singleflight.Group
	now          func() time.Time
}

func NewCache(
	metadataSink metadata.MetadataSink,
	repository Repository,
	f fetcher.Fetcher,
	parser *story.Parser,
	cacheParam CacheParam,
) *Cache {
	return &Cache{
		metadataSink: metadataSink,
		repository:   repository,
		fetcher:      f,
		parser:       parser,
		cacheParam:   cacheParam,
		now:          time.Now,
	}
}

// URLHash is the cache key for rawURL.
func URLHash(rawURL string) string {
	return hashutil.HashString(rawURL)
}

func (c *Cache) GetOrFetch(ctx context.Context, rawURL string) (ExternalStory, failure.ClassifiedError) {
	key := URLHash(rawURL)

	entry, found, err := c.lookup(ctx, key, rawURL)
	if err != nil {
		return ExternalStory{}, err
	}
	if found {
		return entry, nil
	}

	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		// another caller may have filled the entry while we waited
		entry, found, err := c.lookup(ctx, key, rawURL)
		if err != nil {
			return fetchOutcome{err: err}, nil
		}
		if found {
			return fetchOutcome{entry: entry}, nil
		}
		entry, err = c.populate(ctx, key, rawURL)
		return fetchOutcome{entry: entry, err: err}, nil
	})
	outcome := v.(fetchOutcome)
	return outcome.entry, outcome.err
}

type fetchOutcome struct {
	entry ExternalStory
	err   failure.ClassifiedError
}

func (c *Cache) lookup(ctx context.Context, key string, rawURL string) (ExternalStory, bool, failure.ClassifiedError) {
	entry, found, err := c.repository.Get(ctx, key)
	if err != nil {
		cacheErr := &CacheError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCauseRepositoryRead,
		}
		c.recordError("Cache.GetOrFetch", cacheErr, rawURL)
		return ExternalStory{}, false, cacheErr
	}
	return entry, found, nil
}

func (c *Cache) populate(ctx context.Context, key string, rawURL string) (ExternalStory, failure.ClassifiedError) {
	fetchUrl, parseErr := url.Parse(rawURL)
	if parseErr != nil {
		return ExternalStory{}, &fetcher.FetchError{
			Message: fmt.Sprintf("cannot parse url %q", rawURL),
			Cause:   fetcher.ErrCauseInvalidURL,
			URL:     rawURL,
		}
	}

	result, err := c.fetcher.Fetch(ctx, fetcher.NewFetchParam(
		*fetchUrl,
		c.cacheParam.UserAgent(),
		fetcher.ContentHTML,
		c.cacheParam.MaxBytes(),
	))
	if err != nil {
		return ExternalStory{}, err
	}

	doc, err := c.parser.Parse(result.Body(), rawURL, story.ParseParam{})
	if err != nil {
		return ExternalStory{}, err
	}
	doc = doc.Normalized(rawURL)

	entry := ExternalStory{
		URLHash:            key,
		URL:                rawURL,
		Title:              doc.Title(),
		Publisher:          doc.Publisher(),
		PublisherLogoSrc:   doc.PublisherLogoSrc(),
		PosterPortraitSrc:  doc.PosterPortraitSrc(),
		PosterSquareSrc:    doc.PosterSquareSrc(),
		PosterLandscapeSrc: doc.PosterLandscapeSrc(),
		LastFetchedAt:      c.now().UTC(),
	}
	if putErr := c.repository.Put(ctx, entry); putErr != nil {
		cacheErr := &CacheError{
			Message:   putErr.Error(),
			Retryable: true,
			Cause:     ErrCauseRepositoryWrite,
		}
		c.recordError("Cache.GetOrFetch", cacheErr, rawURL)
		return ExternalStory{}, cacheErr
	}

	c.metadataSink.RecordArtifact(
		metadata.ArtifactExternalStory,
		key,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, rawURL),
		},
	)
	return entry, nil
}

func (c *Cache) recordError(action string, err *CacheError, rawURL string) {
	c.metadataSink.RecordError(
		time.Now(),
		"external",
		action,
		mapCacheErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, rawURL),
		},
	)
}
