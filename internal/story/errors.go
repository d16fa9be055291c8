package story

import (
	"fmt"

	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
)

type InvalidStoryErrorCause string

const (
	ErrCauseUnparseable            InvalidStoryErrorCause = "unparseable document"
	ErrCauseNoStoryRoot            InvalidStoryErrorCause = "no amp-story element"
	ErrCauseMultipleStoryRoots     InvalidStoryErrorCause = "more than one amp-story element"
	ErrCauseNoCanonicalLink        InvalidStoryErrorCause = "no canonical link"
	ErrCauseMultipleCanonicalLinks InvalidStoryErrorCause = "more than one canonical link"
	ErrCauseMissingPageID          InvalidStoryErrorCause = "amp-story-page without id"
	ErrCauseDuplicatePageID        InvalidStoryErrorCause = "duplicate amp-story-page id"
)

// InvalidStoryError means the document is not a recognizable web story.
type InvalidStoryError struct {
	Message   string
	Retryable bool
	Cause     InvalidStoryErrorCause
}

func (e *InvalidStoryError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("invalid story: %s", e.Cause)
	}
	return fmt.Sprintf("invalid story: %s: %s", e.Cause, e.Message)
}

func (e *InvalidStoryError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *InvalidStoryError) UserMessage() string {
	return "URL is not a valid web story."
}

// mapInvalidStoryErrorToMetadataCause maps parser-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapInvalidStoryErrorToMetadataCause(err *InvalidStoryError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseUnparseable, ErrCauseNoStoryRoot, ErrCauseMultipleStoryRoots,
		ErrCauseNoCanonicalLink, ErrCauseMultipleCanonicalLinks, ErrCauseMissingPageID,
		ErrCauseDuplicatePageID:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
