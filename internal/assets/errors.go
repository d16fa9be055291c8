package assets

import (
	"fmt"

	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
)

type AssetsErrorCause string

const (
	ErrCauseHashError      AssetsErrorCause = "failed to hash content"
	ErrCauseCatalogFailure AssetsErrorCause = "asset catalog failure"
	ErrCauseBlobFailure    AssetsErrorCause = "asset blob storage failure"
	ErrCauseUnknownPreset  AssetsErrorCause = "unknown rendition preset"
)

// AssetsError is a local storage failure. Unlike a FetchError it is never
// degraded into "leave the element alone".
type AssetsError struct {
	Message   string
	Retryable bool
	Cause     AssetsErrorCause
}

func (e *AssetsError) Error() string {
	return fmt.Sprintf("assets error: %s: %s", e.Cause, e.Message)
}

func (e *AssetsError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapAssetsErrorToMetadataCause maps assets-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapAssetsErrorToMetadataCause(err *AssetsError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseCatalogFailure, ErrCauseBlobFailure:
		return metadata.CauseStorageFailure
	case ErrCauseHashError, ErrCauseUnknownPreset:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
