package external

import (
	"fmt"

	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
)

type CacheErrorCause string

const (
	ErrCauseRepositoryRead  CacheErrorCause = "failed to read cache entry"
	ErrCauseRepositoryWrite CacheErrorCause = "failed to write cache entry"
)

type CacheError struct {
	Message   string
	Retryable bool
	Cause     CacheErrorCause
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("external story cache error: %s: %s", e.Cause, e.Message)
}

func (e *CacheError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapCacheErrorToMetadataCause maps cache-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapCacheErrorToMetadataCause(err *CacheError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseRepositoryRead, ErrCauseRepositoryWrite:
		return metadata.CauseStorageFailure
	default:
		return metadata.CauseUnknown
	}
}
