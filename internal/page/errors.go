package page

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rohmanhakim/webstory-importer/pkg/failure"
)

const (
	FieldPublisherLogo = "publisher_logo"
	FieldPosterImage   = "poster_image"
)

// ValidationError maps field names to user-facing messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.joined("; ", true))
}

func (e *ValidationError) Severity() failure.Severity {
	return failure.SeverityFatal
}

func (e *ValidationError) UserMessage() string {
	return e.joined(" ", false)
}

func (e *ValidationError) joined(sep string, withField bool) string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		if withField {
			parts = append(parts, field+": "+e.Fields[field])
		} else {
			parts = append(parts, e.Fields[field])
		}
	}
	return strings.Join(parts, sep)
}

type RegistryErrorCause string

const (
	ErrCauseDuplicateType RegistryErrorCause = "page type already registered"
	ErrCauseUnknownType   RegistryErrorCause = "unknown page type"
	ErrCauseEmptyTypeName RegistryErrorCause = "empty page type name"
)

type RegistryError struct {
	Message string
	Cause   RegistryErrorCause
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("page registry error: %s: %s", e.Cause, e.Message)
}

func (e *RegistryError) Severity() failure.Severity {
	return failure.SeverityFatal
}
