package fetcher

import (
	"net/url"
)

// ContentKind says what a caller expects to get back, which decides the
// Accept header and which response media types are acceptable.
type ContentKind int

const (
	ContentAny ContentKind = iota
	ContentHTML
	ContentImage
	ContentMedia
)

type FetchParam struct {
	fetchUrl  url.URL
	userAgent string
	kind      ContentKind
	maxBytes  int64
}

// NewFetchParam describes one GET. A maxBytes of zero or less means the
// body size is not limited.
func NewFetchParam(fetchUrl url.URL, userAgent string, kind ContentKind, maxBytes int64) FetchParam {
	return FetchParam{
		fetchUrl:  fetchUrl,
		userAgent: userAgent,
		kind:      kind,
		maxBytes:  maxBytes,
	}
}

func (p FetchParam) URL() url.URL {
	return p.fetchUrl
}

type FetchResult struct {
	url  url.URL
	body []byte
	meta ResponseMeta
}

func (f *FetchResult) URL() url.URL {
	return f.url
}

func (f *FetchResult) Body() []byte {
	return f.body
}

func (f *FetchResult) Code() int {
	return f.meta.statusCode
}

func (f *FetchResult) SizeByte() uint64 {
	return f.meta.transferredSizeByte
}

func (f *FetchResult) ContentType() string {
	return f.meta.contentType
}

func (f *FetchResult) Headers() map[string]string {
	return f.meta.responseHeaders
}

type ResponseMeta struct {
	statusCode          int
	transferredSizeByte uint64
	contentType         string
	responseHeaders     map[string]string
}

// NewFetchResultForTest creates a FetchResult for tests in other packages.
func NewFetchResultForTest(
	u url.URL,
	body []byte,
	statusCode int,
	contentType string,
) FetchResult {
	return FetchResult{
		url:  u,
		body: body,
		meta: ResponseMeta{
			statusCode:          statusCode,
			transferredSizeByte: uint64(len(body)),
			contentType:         contentType,
			responseHeaders:     map[string]string{"Content-Type": contentType},
		},
	}
}
