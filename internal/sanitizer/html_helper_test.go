package sanitizer_test

import (
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/metadata"
)

// metadataSinkMock records artifacts so tests can assert on removal reports
type metadataSinkMock struct {
	artifacts []recordedArtifact
	errors    int
}

type recordedArtifact struct {
	kind  metadata.ArtifactKind
	path  string
	attrs []metadata.Attribute
}

func (m *metadataSinkMock) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	m.errors++
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
	m.artifacts = append(m.artifacts, recordedArtifact{kind: kind, path: path, attrs: attrs})
}

func attrValue(attrs []metadata.Attribute, key metadata.AttributeKey) string {
	for _, a := range attrs {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}
