package fetcher_test

import (
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/pkg/retry"
	"github.com/rohmanhakim/webstory-importer/pkg/timeutil"
)

type fetchEvent struct {
	fetchUrl    string
	httpStatus  int
	contentType string
	retryCount  int
}

type errorEvent struct {
	packageName string
	action      string
	cause       metadata.ErrorCause
	details     string
}

type metadataSinkMock struct {
	fetchEvents []fetchEvent
	errorEvents []errorEvent
}

func (m *metadataSinkMock) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
) {
	m.fetchEvents = append(m.fetchEvents, fetchEvent{
		fetchUrl:    fetchUrl,
		httpStatus:  httpStatus,
		contentType: contentType,
		retryCount:  retryCount,
	})
}

func (m *metadataSinkMock) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	m.errorEvents = append(m.errorEvents, errorEvent{
		packageName: packageName,
		action:      action,
		cause:       cause,
		details:     details,
	})
}

func (m *metadataSinkMock) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
}

func testRetryParam(maxAttempts int) retry.RetryParam {
	return retry.NewRetryParam(
		time.Millisecond,
		time.Millisecond,
		42,
		maxAttempts,
		timeutil.NewBackoffParam(time.Millisecond, 2.0, 10*time.Millisecond),
	)
}
