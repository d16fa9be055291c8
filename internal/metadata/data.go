package metadata

import (
	"time"
)

/*
ErrorCause is a closed, canonical classification used exclusively for
observability (logging, metrics, reporting).

Rules:
  - ErrorCause MUST NOT influence control flow.
  - Pipeline packages MAY map their local errors to ErrorCause,
    but MUST NOT invent new meanings.
  - If a failure does not clearly match a defined cause, CauseUnknown MUST be used.

Canonical table:

  - CauseUnknown: unexpected or unclassified failures.
  - CauseNetworkFailure: transport errors, timeouts, 5xx and 429 responses.
  - CausePolicyDisallow: access denied by the remote (401, 403).
  - CauseContentInvalid: content fetched but unusable (not a story, wrong
    media type, oversized, undecodable).
  - CauseStorageFailure: persisting assets, pages or cache entries failed.
  - CauseInvariantViolation: an internal consistency check failed.
*/
type ErrorCause int

const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CausePolicyDisallow
	CauseContentInvalid
	CauseStorageFailure
	CauseInvariantViolation
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CausePolicyDisallow:
		return "policy_disallow"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

type ArtifactKind string

const (
	ArtifactImage             ArtifactKind = "image"
	ArtifactMedia             ArtifactKind = "media"
	ArtifactStoryPage         ArtifactKind = "story_page"
	ArtifactExternalStory     ArtifactKind = "external_story"
	ArtifactSanitizedFragment ArtifactKind = "sanitized_fragment"
	ArtifactBlob              ArtifactKind = "blob"
)

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrURL        AttributeKey = "url"
	AttrHost       AttributeKey = "host"
	AttrField      AttributeKey = "field"
	AttrHTTPStatus AttributeKey = "http_status"
	AttrAssetURL   AttributeKey = "asset_url"
	AttrAssetID    AttributeKey = "asset_id"
	AttrHash       AttributeKey = "hash"
	AttrPageID     AttributeKey = "page_id"
	AttrFragmentID AttributeKey = "fragment_id"
	AttrElement    AttributeKey = "element"
	AttrWritePath  AttributeKey = "write_path"
	AttrDeduped    AttributeKey = "deduped"
)

// ImportStats is the terminal summary of one story import.
type ImportStats struct {
	SourceURL      string
	PageID         int64
	Fragments      int
	ImagesImported int
	VideosImported int
	Outcome        string
	Duration       time.Duration
}
