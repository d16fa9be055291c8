package rewriter

import (
	"fmt"

	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
)

type RewriteErrorCause string

const (
	ErrCauseRenderFailure RewriteErrorCause = "failed to render rewritten page"
)

type RewriteError struct {
	Message   string
	Retryable bool
	Cause     RewriteErrorCause
}

func (e *RewriteError) Error() string {
	return fmt.Sprintf("rewrite error: %s: %s", e.Cause, e.Message)
}

func (e *RewriteError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapRewriteErrorToMetadataCause maps rewriter-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapRewriteErrorToMetadataCause(err *RewriteError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseRenderFailure:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
