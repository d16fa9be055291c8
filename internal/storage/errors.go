package storage

import (
	"fmt"

	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
)

type StorageErrorCause string

const (
	ErrCauseInvalidKey   StorageErrorCause = "invalid key"
	ErrCauseDiskFull     StorageErrorCause = "disk is full"
	ErrCauseWriteFailure StorageErrorCause = "write failed"
	ErrCauseReadFailure  StorageErrorCause = "read failed"
	ErrCauseNotFound     StorageErrorCause = "not found"
)

type StorageError struct {
	Message   string
	Retryable bool
	Cause     StorageErrorCause
	Path      string
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %s", e.Cause, e.Message)
}

func (e *StorageError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapStorageErrorToMetadataCause maps storage-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapStorageErrorToMetadataCause(err *StorageError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseDiskFull, ErrCauseWriteFailure, ErrCauseReadFailure, ErrCauseNotFound:
		return metadata.CauseStorageFailure
	case ErrCauseInvalidKey:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
