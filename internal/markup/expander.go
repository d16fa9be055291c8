/*
Responsibilities

- Replace symbolic asset references in stored markup with servable URLs
- Fail soft: a reference to a missing asset expands to nothing

Expansion is pure with respect to the stored source. Nothing is cached
across calls.
*/
package markup

import (
	"context"
	"html"
	"regexp"
	"strconv"
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/assets"
	"github.com/rohmanhakim/webstory-importer/internal/metadata"
)

const (
	ImageIDAttr = "data-wagtail-image-id"
	MediaIDAttr = "data-wagtail-media-id"
)

var symbolicRefRe = regexp.MustCompile(`\bdata-wagtail-(image|media)-id=["'](\d+)["']`)

// EntityExpander is what AMPText needs to render itself.
type EntityExpander interface {
	Expand(ctx context.Context, source string) string
}

var _ EntityExpander = (*Expander)(nil)

type Expander struct {
	store        assets.Store
	metadataSink metadata.MetadataSink
}

func NewExpander(store assets.Store, metadataSink metadata.MetadataSink) *Expander {
	return &Expander{
		store:        store,
		metadataSink: metadataSink,
	}
}

// Expand turns data-wagtail-image-id="N" into src="<original rendition>"
// and data-wagtail-media-id="N" into src="<file url>".
func (e *Expander) Expand(ctx context.Context, source string) string {
	if source == "" {
		return ""
	}
	memo := make(map[string]string)
	return symbolicRefRe.ReplaceAllStringFunc(source, func(match string) string {
		if replacement, ok := memo[match]; ok {
			return replacement
		}
		groups := symbolicRefRe.FindStringSubmatch(match)
		kind := assets.KindImage
		if groups[1] == "media" {
			kind = assets.KindMedia
		}
		replacement := e.srcAttr(ctx, kind, groups[2])
		memo[match] = replacement
		return replacement
	})
}

func (e *Expander) srcAttr(ctx context.Context, kind assets.Kind, rawID string) string {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return ""
	}
	asset, found, lookupErr := e.store.Get(ctx, kind, id)
	if lookupErr != nil {
		e.recordLookupFailure(rawID, lookupErr)
		return ""
	}
	if !found {
		return ""
	}
	url, renditionErr := e.store.RenditionURL(ctx, asset, assets.PresetOriginal)
	if renditionErr != nil {
		e.recordLookupFailure(rawID, renditionErr)
		return ""
	}
	if url == "" {
		return ""
	}
	return `src="` + html.EscapeString(url) + `"`
}

func (e *Expander) recordLookupFailure(rawID string, err error) {
	e.metadataSink.RecordError(
		time.Now(),
		"markup",
		"Expander.Expand",
		metadata.CauseStorageFailure,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrAssetID, rawID),
		},
	)
}

// ImageRef is the symbolic attribute for a stored image.
func ImageRef(id int64) string {
	return ImageIDAttr + `="` + strconv.FormatInt(id, 10) + `"`
}

// MediaRef is the symbolic attribute for a stored media file.
func MediaRef(id int64) string {
	return MediaIDAttr + `="` + strconv.FormatInt(id, 10) + `"`
}

// CountRefs counts the symbolic image and media references in source.
func CountRefs(source string) (images int, media int) {
	for _, m := range symbolicRefRe.FindAllStringSubmatch(source, -1) {
		if m[1] == "image" {
			images++
		} else {
			media++
		}
	}
	return images, media
}
