package importer

import (
	"github.com/rohmanhakim/webstory-importer/internal/assets"
	"github.com/rohmanhakim/webstory-importer/internal/page"
)

// ImportState is the one-shot latch of the save pipeline. A caller that
// saves the same page again passes back the state it received, so remote
// assets are imported once per page.
type ImportState struct {
	ImagesImported bool
	VideosImported bool
}

type ImportRequest struct {
	SourceURL string
	ParentID  int64
}

type ImportResult struct {
	Page  page.PageRef
	State ImportState
}

const (
	OutcomeImported     = "imported"
	OutcomeFetchFailed  = "fetch_failed"
	OutcomeInvalidStory = "invalid_story"
	OutcomeInvalidPage  = "invalid_page"
	OutcomeFailed       = "failed"
)

type ImportParam struct {
	userAgent        string
	maxDocumentSize  int64
	pageType         string
	fetchConcurrency int
	resolveParam     assets.ResolveParam
}

func NewImportParam(
	userAgent string,
	maxDocumentSize int64,
	pageType string,
	fetchConcurrency int,
	resolveParam assets.ResolveParam,
) ImportParam {
	return ImportParam{
		userAgent:        userAgent,
		maxDocumentSize:  maxDocumentSize,
		pageType:         pageType,
		fetchConcurrency: fetchConcurrency,
		resolveParam:     resolveParam,
	}
}

func (p ImportParam) UserAgent() string {
	return p.userAgent
}

func (p ImportParam) MaxDocumentSize() int64 {
	return p.maxDocumentSize
}

func (p ImportParam) PageType() string {
	return p.pageType
}

func (p ImportParam) FetchConcurrency() int {
	return p.fetchConcurrency
}

func (p ImportParam) ResolveParam() assets.ResolveParam {
	return p.resolveParam
}
