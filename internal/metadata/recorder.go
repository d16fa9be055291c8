package metadata

import (
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/metrics"
	"github.com/rs/zerolog"
)

/*
MetadataSink is the write-only observation port of the pipeline.

Allowed payloads are primitive values: timestamps, URLs as strings, hashes,
status codes, durations and identifiers. Nothing recorded here may be read
back to influence an import.
*/
type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)
	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		contentType string,
		retryCount int,
	)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

// ImportFinalizer receives exactly one summary per import, after it ended.
type ImportFinalizer interface {
	RecordImportStats(stats ImportStats)
}

/*
Recorder writes structured events to a zerolog logger and mirrors them into
the Prometheus collectors of the metrics package.
*/
type Recorder struct {
	logger zerolog.Logger
}

func NewRecorder(logger zerolog.Logger) *Recorder {
	return &Recorder{
		logger: logger,
	}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
	metrics.IncError(packageName, cause.String())

	event := r.logger.Warn().
		Time("observed_at", observedAt).
		Str("package", packageName).
		Str("action", action).
		Str("cause", cause.String())
	for _, a := range attrs {
		event = event.Str(string(a.Key), a.Value)
	}
	event.Msg(details)
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
) {
	metrics.ObserveFetch(httpStatus, duration)

	r.logger.Debug().
		Str("url", fetchUrl).
		Int("status", httpStatus).
		Dur("duration", duration).
		Str("content_type", contentType).
		Int("retry_count", retryCount).
		Msg("fetch")
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	metrics.IncArtifact(string(kind))

	event := r.logger.Info().
		Str("kind", string(kind)).
		Str("path", path)
	for _, a := range attrs {
		event = event.Str(string(a.Key), a.Value)
	}
	event.Msg("artifact")
}

func (r *Recorder) RecordImportStats(stats ImportStats) {
	metrics.IncImport(stats.Outcome)

	r.logger.Info().
		Str("source_url", stats.SourceURL).
		Int64("page_id", stats.PageID).
		Int("fragments", stats.Fragments).
		Int("images_imported", stats.ImagesImported).
		Int("videos_imported", stats.VideosImported).
		Str("outcome", stats.Outcome).
		Dur("duration", stats.Duration).
		Msg("import finished")
}

// NoopSink implements MetadataSink and ImportFinalizer and discards
// everything. Tests and library callers inject it when observation is not
// wanted.
type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
) {
}

func (n *NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

func (n *NoopSink) RecordImportStats(stats ImportStats) {}
