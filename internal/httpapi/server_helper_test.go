package httpapi_test

import (
	"context"

	"github.com/rohmanhakim/webstory-importer/internal/external"
	"github.com/rohmanhakim/webstory-importer/internal/fetcher"
	"github.com/rohmanhakim/webstory-importer/internal/importer"
	"github.com/rohmanhakim/webstory-importer/internal/mdconvert"
	"github.com/rohmanhakim/webstory-importer/internal/page"
	"github.com/rohmanhakim/webstory-importer/internal/story"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
)

type importerStub struct {
	requests []importer.ImportRequest
	err      error
}

func (s *importerStub) Import(ctx context.Context, req importer.ImportRequest) (importer.ImportResult, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return importer.ImportResult{}, s.err
	}
	return importer.ImportResult{
		Page: page.PageRef{ID: 10, ParentID: req.ParentID, Slug: "wagtail-spotting"},
	}, nil
}

type pagesStub struct {
	pages map[int64]*page.StoryPage
	err   error
}

func (s *pagesStub) Get(ctx context.Context, id int64) (*page.StoryPage, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	p, ok := s.pages[id]
	return p, ok, nil
}

type rendererStub struct{}

func (rendererStub) RenderStory(ctx context.Context, p *page.StoryPage) (string, failure.ClassifiedError) {
	return "<!doctype html><title>" + p.Title + "</title>", nil
}

type converterStub struct{}

func (converterStub) ConvertStory(ctx context.Context, p *page.StoryPage) (mdconvert.ConversionResult, failure.ClassifiedError) {
	return mdconvert.NewConversionResult([]byte("# "+p.Title+"\n"), nil), nil
}

type externalStub struct {
	entries map[string]external.ExternalStory
}

func (s *externalStub) GetOrFetch(ctx context.Context, rawURL string) (external.ExternalStory, failure.ClassifiedError) {
	if entry, ok := s.entries[rawURL]; ok {
		return entry, nil
	}
	if rawURL == "https://example.com/not-a-story/" {
		return external.ExternalStory{}, &story.InvalidStoryError{Message: "no amp-story", Cause: story.ErrCauseNoStoryRoot}
	}
	return external.ExternalStory{}, &fetcher.FetchError{Message: "404", Cause: fetcher.ErrCauseRequestClientError, URL: rawURL, HTTPStatus: 404}
}
