package render

import (
	"fmt"

	"github.com/rohmanhakim/webstory-importer/pkg/failure"
)

type RenderErrorCause string

const (
	ErrCauseTemplateFailure RenderErrorCause = "template execution failed"
)

type RenderError struct {
	Message string
	Cause   RenderErrorCause
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render error: %s: %s", e.Cause, e.Message)
}

func (e *RenderError) Severity() failure.Severity {
	return failure.SeverityFatal
}
