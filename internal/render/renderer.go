/*
Responsibilities

- Render a stored story page as a standalone AMP story document
- Render poster-link and amp-story-player snippets pointing at a story

Page markup is expanded on every render; the stored source is never
changed. Images that point at a local asset use its original rendition and
fall back to the remote URL when the asset is gone.
*/
package render

import (
	"bytes"
	"context"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/assets"
	"github.com/rohmanhakim/webstory-importer/internal/external"
	"github.com/rohmanhakim/webstory-importer/internal/markup"
	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/internal/page"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
)

type Renderer struct {
	metadataSink metadata.MetadataSink
	expander     markup.EntityExpander
	assetStore   assets.Store
	siteBaseURL  string
}

// NewRenderer serves page URLs under siteBaseURL; an empty base gives
// host-relative URLs.
func NewRenderer(
	metadataSink metadata.MetadataSink,
	expander markup.EntityExpander,
	assetStore assets.Store,
	siteBaseURL string,
) *Renderer {
	return &Renderer{
		metadataSink: metadataSink,
		expander:     expander,
		assetStore:   assetStore,
		siteBaseURL:  strings.TrimSuffix(siteBaseURL, "/"),
	}
}

// PageURL is where p is served: /<slug>/ under the site base.
func (r *Renderer) PageURL(p *page.StoryPage) string {
	return r.siteBaseURL + "/" + p.Slug + "/"
}

func (r *Renderer) RenderStory(ctx context.Context, p *page.StoryPage) (string, failure.ClassifiedError) {
	fragments := p.Fragments()
	pages := make([]template.HTML, 0, len(fragments))
	for _, fragment := range fragments {
		pages = append(pages, template.HTML(fragment.HTML.Expand(ctx, r.expander)))
	}

	view := storyView{
		Title:              p.Title,
		CanonicalURL:       r.PageURL(p),
		Publisher:          p.Publisher,
		PublisherLogoSrc:   r.imageURL(ctx, p.PublisherLogo),
		PosterPortraitSrc:  r.imageURL(ctx, p.PosterPortrait),
		PosterSquareSrc:    r.imageURL(ctx, p.PosterSquare),
		PosterLandscapeSrc: r.imageURL(ctx, p.PosterLandscape),
		CustomCSS:          template.CSS(p.CustomCSS),
		Pages:              pages,
	}
	return execute(storyTmpl, view)
}

// PageCard describes a local story page for RenderLink and RenderEmbed.
func (r *Renderer) PageCard(ctx context.Context, p *page.StoryPage) StoryCard {
	return StoryCard{
		URL:              r.PageURL(p),
		Title:            p.Title,
		Publisher:        p.Publisher,
		PublisherLogoURL: r.imageURL(ctx, p.PublisherLogo),
		PosterURL:        r.imageURL(ctx, p.PosterPortrait),
	}
}

// ExternalCard describes a cached external story. Its URLs are used as
// fetched; nothing is imported.
func ExternalCard(e external.ExternalStory) StoryCard {
	return StoryCard{
		URL:              e.URL,
		Title:            e.Title,
		Publisher:        e.Publisher,
		PublisherLogoURL: e.PublisherLogoSrc,
		PosterURL:        e.PosterPortraitSrc,
	}
}

func RenderLink(card StoryCard) (string, failure.ClassifiedError) {
	return execute(linkTmpl, card)
}

func RenderEmbed(card StoryCard) (string, failure.ClassifiedError) {
	return execute(embedTmpl, card)
}

func execute(tmpl *template.Template, data any) (string, failure.ClassifiedError) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", &RenderError{Message: err.Error(), Cause: ErrCauseTemplateFailure}
	}
	return buf.String(), nil
}

func (r *Renderer) imageURL(ctx context.Context, ref page.AssetRef) string {
	if !ref.HasAsset() || r.assetStore == nil {
		return ref.OriginalURL
	}
	asset, found, err := r.assetStore.Get(ctx, assets.KindImage, ref.AssetID)
	if err != nil {
		r.metadataSink.RecordError(
			time.Now(),
			"render",
			"Renderer.imageURL",
			metadata.CauseStorageFailure,
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrAssetID, strconv.FormatInt(ref.AssetID, 10)),
			},
		)
		return ref.OriginalURL
	}
	if !found {
		return ref.OriginalURL
	}
	rendition, err := r.assetStore.RenditionURL(ctx, asset, assets.PresetOriginal)
	if err != nil || rendition == "" {
		return ref.OriginalURL
	}
	return rendition
}
