package rewriter_test

import (
	"context"
	"sync"
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/assets"
	"github.com/rohmanhakim/webstory-importer/internal/fetcher"
	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
)

// resolverStub hands out asset IDs per URL. URLs listed in unreachable fail
// with a fetch error; URLs in broken fail with a storage error.
type resolverStub struct {
	mu          sync.Mutex
	nextID      int64
	ids         map[string]int64
	unreachable map[string]bool
	broken      map[string]bool
	images      []assets.ImageRequest
	videos      []assets.VideoRequest
}

func newResolverStub() *resolverStub {
	return &resolverStub{
		nextID:      100,
		ids:         make(map[string]int64),
		unreachable: make(map[string]bool),
		broken:      make(map[string]bool),
	}
}

func (s *resolverStub) ResolveImage(ctx context.Context, req assets.ImageRequest) (assets.Asset, failure.ClassifiedError) {
	s.mu.Lock()
	s.images = append(s.images, req)
	s.mu.Unlock()
	return s.resolve(req.URL, assets.KindImage)
}

func (s *resolverStub) ResolveVideo(ctx context.Context, req assets.VideoRequest) (assets.Asset, failure.ClassifiedError) {
	s.mu.Lock()
	s.videos = append(s.videos, req)
	s.mu.Unlock()
	return s.resolve(req.URL, assets.KindMedia)
}

func (s *resolverStub) resolve(url string, kind assets.Kind) (assets.Asset, failure.ClassifiedError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unreachable[url] {
		return assets.Asset{}, &fetcher.FetchError{Message: "404", Cause: fetcher.ErrCauseRequestClientError, URL: url, HTTPStatus: 404}
	}
	if s.broken[url] {
		return assets.Asset{}, &assets.AssetsError{Message: "disk full", Cause: assets.ErrCauseBlobFailure}
	}
	id, ok := s.ids[url]
	if !ok {
		s.nextID++
		id = s.nextID
		s.ids[url] = id
	}
	return assets.Asset{ID: id, Kind: kind}, nil
}

func (s *resolverStub) imageCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

type metadataSinkMock struct {
	mu     sync.Mutex
	errors int
}

func (m *metadataSinkMock) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	m.mu.Lock()
	m.errors++
	m.mu.Unlock()
}

func (m *metadataSinkMock) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
) {
}

func (m *metadataSinkMock) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
}
