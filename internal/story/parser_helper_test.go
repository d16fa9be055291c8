package story_test

import (
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/metadata"
)

type metadataSinkMock struct {
	errors []recordedError
}

type recordedError struct {
	packageName string
	action      string
	cause       metadata.ErrorCause
	attrs       []metadata.Attribute
}

func (m *metadataSinkMock) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	m.errors = append(m.errors, recordedError{
		packageName: packageName,
		action:      action,
		cause:       cause,
		attrs:       attrs,
	})
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

const goodStoryURL = "https://example.com/good-story.html"

const goodStory = `<!doctype html>
<html amp lang="en">
<head>
	<meta charset="utf-8">
	<title>Wagtail spotting</title>
	<link rel="canonical" href="https://example.com/good-story.html">
	<script async src="https://cdn.ampproject.org/v0.js"></script>
	<style amp-boilerplate>body{-webkit-animation:none}</style>
	<style amp-custom>#cover {background-color: #eee;}</style>
</head>
<body>
	<amp-story standalone title="Wagtail spotting" publisher="Torchbox"
		publisher-logo-src="https://example.com/torchbox.png"
		poster-portrait-src="/wagtails.jpg">
		<amp-story-page id="cover">
			<amp-story-grid-layer template="fill">
				<amp-img src="/wagtails.jpg" width="720" height="1280" layout="responsive"></amp-img>
			</amp-story-grid-layer>
		</amp-story-page>
		<amp-story-page id="page-1">
			<amp-story-grid-layer template="vertical">
				<p>Today we went out wagtail spotting</p>
				<script>alert("boo!")</script>
			</amp-story-grid-layer>
		</amp-story-page>
	</amp-story>
</body>
</html>`

// storyWith wraps body markup in a minimal story document head.
func storyWith(head, body string) []byte {
	return []byte(`<!doctype html><html amp><head>` + head + `</head><body>` + body + `</body></html>`)
}

const canonicalLink = `<link rel="canonical" href="https://example.com/good-story.html">`
