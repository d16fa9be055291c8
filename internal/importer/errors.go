package importer

import (
	"fmt"

	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
)

type ImportErrorCause string

const (
	ErrCausePageStoreFailure ImportErrorCause = "page store failure"
)

type ImportError struct {
	Message   string
	Retryable bool
	Cause     ImportErrorCause
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import error: %s: %s", e.Cause, e.Message)
}

func (e *ImportError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapImportErrorToMetadataCause maps importer-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapImportErrorToMetadataCause(err *ImportError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCausePageStoreFailure:
		return metadata.CauseStorageFailure
	default:
		return metadata.CauseUnknown
	}
}
