package sanitizer

// Sanitizer cleans one stored page fragment. Implementations must be
// idempotent and must leave markup outside removed constructs untouched.
type Sanitizer interface {
	Enabled() bool
	Clean(fragment string) string
	CleanFragment(fragmentID string, fragment string) string
}

var _ Sanitizer = (*HtmlSanitizer)(nil)
