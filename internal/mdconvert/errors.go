package mdconvert

import (
	"fmt"

	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
)

type ConversionErrorCause string

const (
	ErrCauseConversionFailure ConversionErrorCause = "conversion failed"
	ErrCauseUnparseablePage   ConversionErrorCause = "page markup could not be parsed"
)

type ConversionError struct {
	Message   string
	Retryable bool
	Cause     ConversionErrorCause
	PageID    string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion error: %s: page %q: %s", e.Cause, e.PageID, e.Message)
}

func (e *ConversionError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func mapConversionErrorToMetadataCause(err *ConversionError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseConversionFailure, ErrCauseUnparseablePage:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
