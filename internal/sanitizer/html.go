/*
Responsibilities
- Drop executable and frame-embedding elements together with their contents
- Strip event handler attributes and script-scheme URLs
- Leave every other byte of the fragment exactly as it arrived

AMP story pages lean on custom elements and attributes that a generic
allowlist sanitizer would mangle, so this stage works as a denylist over the
token stream instead of rebuilding the DOM.
*/
package sanitizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rohmanhakim/webstory-importer/internal/metadata"
)

type HtmlSanitizer struct {
	enabled      bool
	metadataSink metadata.MetadataSink
}

func NewHTMLSanitizer(metadataSink metadata.MetadataSink, enabled bool) *HtmlSanitizer {
	return &HtmlSanitizer{
		enabled:      enabled,
		metadataSink: metadataSink,
	}
}

func (h *HtmlSanitizer) Enabled() bool {
	return h.enabled
}

// Clean returns the sanitized fragment, or the fragment itself when cleaning
// is disabled.
func (h *HtmlSanitizer) Clean(fragment string) string {
	if !h.enabled {
		return fragment
	}
	cleaned, _ := Clean(fragment)
	return cleaned
}

// CleanFragment is Clean plus a metadata record of what was removed from the
// fragment identified by fragmentID.
func (h *HtmlSanitizer) CleanFragment(fragmentID string, fragment string) string {
	if !h.enabled {
		return fragment
	}
	cleaned, report := Clean(fragment)
	if report.Changed() {
		h.metadataSink.RecordArtifact(
			metadata.ArtifactSanitizedFragment,
			fragmentID,
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrFragmentID, fragmentID),
				metadata.NewAttr(metadata.AttrElement, describeRemovals(report)),
				metadata.NewAttr(metadata.AttrField, fmt.Sprintf("stripped_attrs=%d", report.StrippedAttrs())),
			},
		)
	}
	return cleaned
}

// Clean runs the token filter until its output stops changing, so
// Clean(Clean(x)) == Clean(x). Removing a construct can splice the
// surrounding text into a new tag, which the next pass catches. Every
// changing pass drops a token or an unsafe attribute that later passes
// never reintroduce, so the loop ends.
func Clean(fragment string) (string, Report) {
	report := newReport()
	current := fragment
	for {
		next, passReport := filterTokens(current)
		report.merge(passReport)
		if !passReport.Changed() {
			return next, report
		}
		current = next
	}
}

func describeRemovals(report Report) string {
	removed := report.RemovedElements()
	tags := make([]string, 0, len(removed))
	for tag := range removed {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		parts = append(parts, fmt.Sprintf("%s=%d", tag, removed[tag]))
	}
	return strings.Join(parts, ",")
}
