/*
Responsibilities

- Perform HTTP GET requests for story documents and their assets
- Apply headers, size limits and per-host politeness
- Retry transient failures with backoff
- Classify every failure as a FetchError

The fetcher never parses content; it only returns bytes and metadata.
*/
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
	"github.com/rohmanhakim/webstory-importer/pkg/limiter"
	"github.com/rohmanhakim/webstory-importer/pkg/retry"
)

type Fetcher interface {
	// Fetch returns the response, or an error that is always a *FetchError.
	Fetch(ctx context.Context, fetchParam FetchParam) (FetchResult, failure.ClassifiedError)
}

var _ Fetcher = (*HttpFetcher)(nil)

type HttpFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	retryParam   retry.RetryParam
	rateLimiter  limiter.RateLimiter
}

// NewHttpFetcher wires a fetcher. rateLimiter may be nil to disable
// per-host spacing.
func NewHttpFetcher(
	metadataSink metadata.MetadataSink,
	httpClient *http.Client,
	retryParam retry.RetryParam,
	rateLimiter limiter.RateLimiter,
) *HttpFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HttpFetcher{
		metadataSink: metadataSink,
		httpClient:   httpClient,
		retryParam:   retryParam,
		rateLimiter:  rateLimiter,
	}
}

func (h *HttpFetcher) Fetch(ctx context.Context, fetchParam FetchParam) (FetchResult, failure.ClassifiedError) {
	callerMethod := "HttpFetcher.Fetch"
	startTime := time.Now()
	fetchUrl := fetchParam.fetchUrl

	if fetchUrl.Scheme != "http" && fetchUrl.Scheme != "https" {
		err := &FetchError{
			Message:   fmt.Sprintf("unsupported scheme %q", fetchUrl.Scheme),
			Retryable: false,
			Cause:     ErrCauseInvalidURL,
			URL:       fetchUrl.String(),
		}
		h.recordFetchError(callerMethod, err)
		return FetchResult{}, err
	}

	task := func() (FetchResult, failure.ClassifiedError) {
		return h.performFetch(ctx, fetchParam)
	}
	outcome := retry.Retry(ctx, h.retryParam, task)

	var statusCode int
	var contentType string
	if outcome.IsSuccess() {
		result := outcome.Value()
		statusCode = result.Code()
		contentType = result.ContentType()
	}
	retryCount := outcome.Attempts() - 1
	if retryCount < 0 {
		retryCount = 0
	}

	h.metadataSink.RecordFetch(
		fetchUrl.String(),
		statusCode,
		time.Since(startTime),
		contentType,
		retryCount,
	)

	if outcome.IsFailure() {
		fetchErr := asFetchError(outcome.Err(), fetchUrl)
		h.recordFetchError(callerMethod, fetchErr)
		return FetchResult{}, fetchErr
	}

	return outcome.Value(), nil
}

// asFetchError unwraps retry exhaustion down to the last attempt's error so
// callers only ever see *FetchError.
func asFetchError(err failure.ClassifiedError, fetchUrl url.URL) *FetchError {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr
	}
	return &FetchError{
		Message:   err.Error(),
		Retryable: false,
		Cause:     ErrCauseNetworkFailure,
		URL:       fetchUrl.String(),
	}
}

func (h *HttpFetcher) recordFetchError(callerMethod string, err *FetchError) {
	h.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		callerMethod,
		mapFetchErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, err.URL),
			metadata.NewAttr(metadata.AttrHTTPStatus, fmt.Sprintf("%d", err.HTTPStatus)),
		},
	)
}

func (h *HttpFetcher) performFetch(ctx context.Context, fetchParam FetchParam) (FetchResult, failure.ClassifiedError) {
	fetchUrl := fetchParam.fetchUrl
	host := fetchUrl.Hostname()

	if h.rateLimiter != nil {
		if err := h.rateLimiter.Wait(ctx, host); err != nil {
			return FetchResult{}, &FetchError{
				Message:   fmt.Sprintf("waiting for host slot: %v", err),
				Retryable: false,
				Cause:     ErrCauseTimeout,
				URL:       fetchUrl.String(),
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchUrl.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseInvalidURL,
			URL:       fetchUrl.String(),
		}
	}
	for key, value := range requestHeaders(fetchParam.userAgent, fetchParam.kind) {
		req.Header.Set(key, value)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return FetchResult{}, transportError(err, fetchUrl)
	}
	defer resp.Body.Close()

	if statusErr := classifyStatus(resp.StatusCode, fetchUrl); statusErr != nil {
		if statusErr.Retryable && h.rateLimiter != nil {
			h.rateLimiter.Backoff(host)
		}
		return FetchResult{}, statusErr
	}

	contentType := resp.Header.Get("Content-Type")
	if !acceptsContentType(fetchParam.kind, contentType) {
		return FetchResult{}, &FetchError{
			Message:    fmt.Sprintf("content type %q", contentType),
			Retryable:  false,
			Cause:      ErrCauseContentTypeInvalid,
			URL:        fetchUrl.String(),
			HTTPStatus: resp.StatusCode,
		}
	}

	var reader io.Reader = resp.Body
	if fetchParam.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, fetchParam.maxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:    fmt.Sprintf("failed to read response body: %v", err),
			Retryable:  true,
			Cause:      ErrCauseReadResponseBodyError,
			URL:        fetchUrl.String(),
			HTTPStatus: resp.StatusCode,
		}
	}
	if fetchParam.maxBytes > 0 && int64(len(body)) > fetchParam.maxBytes {
		return FetchResult{}, &FetchError{
			Message:    fmt.Sprintf("body exceeds %d bytes", fetchParam.maxBytes),
			Retryable:  false,
			Cause:      ErrCauseContentTooLarge,
			URL:        fetchUrl.String(),
			HTTPStatus: resp.StatusCode,
		}
	}

	if h.rateLimiter != nil {
		h.rateLimiter.ResetBackoff(host)
	}

	responseHeaders := make(map[string]string)
	for key, values := range resp.Header {
		if len(values) > 0 {
			responseHeaders[key] = values[0]
		}
	}

	return FetchResult{
		url:  fetchUrl,
		body: body,
		meta: ResponseMeta{
			statusCode:          resp.StatusCode,
			transferredSizeByte: uint64(len(body)),
			contentType:         contentType,
			responseHeaders:     responseHeaders,
		},
	}, nil
}

func transportError(err error, fetchUrl url.URL) *FetchError {
	cause := ErrCauseNetworkFailure
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		cause = ErrCauseTimeout
	}
	// a cancelled caller will not benefit from another attempt
	retryable := !errors.Is(err, context.Canceled)
	return &FetchError{
		Message:   fmt.Sprintf("request failed: %v", err),
		Retryable: retryable,
		Cause:     cause,
		URL:       fetchUrl.String(),
	}
}

func classifyStatus(status int, fetchUrl url.URL) *FetchError {
	newErr := func(msg string, retryable bool, cause FetchErrorCause) *FetchError {
		return &FetchError{
			Message:    msg,
			Retryable:  retryable,
			Cause:      cause,
			URL:        fetchUrl.String(),
			HTTPStatus: status,
		}
	}

	switch {
	case status >= 500:
		return newErr(fmt.Sprintf("server error: %d", status), true, ErrCauseRequest5xx)
	case status == http.StatusTooManyRequests:
		return newErr("rate limited (429)", true, ErrCauseRequestTooMany)
	case status == http.StatusForbidden || status == http.StatusUnauthorized:
		return newErr(fmt.Sprintf("access denied (%d)", status), false, ErrCauseRequestPageForbidden)
	case status >= 400:
		return newErr(fmt.Sprintf("client error: %d", status), false, ErrCauseRequestClientError)
	case status >= 300:
		// http.Client follows redirects; landing here means it gave up
		return newErr(fmt.Sprintf("redirect error: %d", status), false, ErrCauseRedirectLimitExceeded)
	}
	return nil
}

// acceptsContentType is lenient for missing headers: plenty of static hosts
// serve stories and images without a Content-Type. Documents are never
// rejected here; whether the body is a story is the parser's call.
func acceptsContentType(kind ContentKind, contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "" || strings.HasPrefix(ct, "application/octet-stream") {
		return true
	}
	switch kind {
	case ContentImage:
		return strings.HasPrefix(ct, "image/")
	case ContentMedia:
		return strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "audio/") ||
			strings.HasPrefix(ct, "application/mp4") || strings.Contains(ct, "mpegurl")
	default:
		return true
	}
}

func requestHeaders(userAgent string, kind ContentKind) map[string]string {
	accept := "*/*"
	switch kind {
	case ContentHTML:
		accept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	case ContentImage:
		accept = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"
	case ContentMedia:
		accept = "video/*,audio/*;q=0.9,*/*;q=0.8"
	}
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          accept,
		"Accept-Language": "en-US,en;q=0.5",
	}
}
