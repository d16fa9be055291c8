package importer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/assets"
	"github.com/rohmanhakim/webstory-importer/internal/fetcher"
	"github.com/rohmanhakim/webstory-importer/internal/markup"
	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/internal/page"
	"github.com/rohmanhakim/webstory-importer/internal/rewriter"
	"github.com/rohmanhakim/webstory-importer/internal/sanitizer"
	"github.com/rohmanhakim/webstory-importer/internal/story"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
	"github.com/rohmanhakim/webstory-importer/pkg/urlutil"
)

/*
 Importer is the sole control-plane authority of an import.

 Pipeline stages detect and classify failure; only the importer decides
 whether a failure aborts the import or degrades one element.

 - Fetch failure of the story document aborts, nothing is stored
 - An invalid story aborts, nothing is stored
 - Fetch failure of one asset leaves that element pointing at its
   original URL
 - Storage failure of an asset aborts the save
 - Validation failure aborts the save

 Metadata emission is observational only and MUST NOT influence
 control flow.

 Importer Responsibilities:
 - Fetch and parse the story document
 - Build the page entity
 - Run the save pipeline: sanitize, import images, import videos,
   validate, persist
 - Emit one ImportStats summary per import
*/
type Importer struct {
	metadataSink    metadata.MetadataSink
	importFinalizer metadata.ImportFinalizer
	fetcher         fetcher.Fetcher
	parser          *story.Parser
	htmlSanitizer   sanitizer.Sanitizer
	assetStore      assets.Store
	pageStore       page.Store
	registry        *page.Registry
	importParam     ImportParam
}

// NewImporter fails when the configured page type is not registered.
func NewImporter(
	metadataSink metadata.MetadataSink,
	importFinalizer metadata.ImportFinalizer,
	f fetcher.Fetcher,
	htmlSanitizer sanitizer.Sanitizer,
	assetStore assets.Store,
	pageStore page.Store,
	registry *page.Registry,
	importParam ImportParam,
) (*Importer, error) {
	if _, err := registry.Lookup(importParam.PageType()); err != nil {
		return nil, err
	}
	return &Importer{
		metadataSink:    metadataSink,
		importFinalizer: importFinalizer,
		fetcher:         f,
		parser:          story.NewParser(metadataSink),
		htmlSanitizer:   htmlSanitizer,
		assetStore:      assetStore,
		pageStore:       pageStore,
		registry:        registry,
		importParam:     importParam,
	}, nil
}

// Import fetches the story at req.SourceURL and saves it as a child of
// req.ParentID. The returned error carries a user message for fetch,
// parse and validation failures (see failure.UserMessage).
func (i *Importer) Import(ctx context.Context, req ImportRequest) (ImportResult, error) {
	importStartTime := time.Now()
	stats := metadata.ImportStats{
		SourceURL: req.SourceURL,
		Outcome:   OutcomeFailed,
	}

	// the summary is emitted on every path
	defer func() {
		stats.Duration = time.Since(importStartTime)
		i.importFinalizer.RecordImportStats(stats)
	}()

	// 1. Fetch the story document
	sourceURL, err := i.fetchURL(req.SourceURL)
	if err != nil {
		stats.Outcome = OutcomeFetchFailed
		return ImportResult{}, err
	}
	fetchResult, err := i.fetcher.Fetch(ctx, fetcher.NewFetchParam(
		*sourceURL,
		i.importParam.UserAgent(),
		fetcher.ContentHTML,
		i.importParam.MaxDocumentSize(),
	))
	if err != nil {
		stats.Outcome = OutcomeFetchFailed
		return ImportResult{}, err
	}

	// 2. Parse
	source := sourceURL.String()
	doc, err := i.parser.Parse(fetchResult.Body(), source, story.DefaultParseParam())
	if err != nil {
		stats.Outcome = OutcomeInvalidStory
		return ImportResult{}, err
	}

	// 3. Build and save the page
	storyPage := i.buildPage(doc, source)
	ref, state, saveErr := i.Save(ctx, req.ParentID, storyPage, ImportState{})
	if saveErr != nil {
		var validationErr *page.ValidationError
		if errors.As(saveErr, &validationErr) {
			stats.Outcome = OutcomeInvalidPage
		}
		return ImportResult{}, saveErr
	}

	stats.PageID = ref.ID
	stats.Fragments = len(storyPage.Fragments())
	stats.ImagesImported, stats.VideosImported = countImported(storyPage)
	stats.Outcome = OutcomeImported
	return ImportResult{Page: ref, State: state}, nil
}

// Save runs the save pipeline over p and persists it: a new page is created
// under parentID, an existing one (p.ID != 0) is updated. Asset imports
// already marked in state are skipped; the returned state has them marked.
func (i *Importer) Save(ctx context.Context, parentID int64, p *page.StoryPage, state ImportState) (page.PageRef, ImportState, error) {
	if p.PageType == "" {
		p.PageType = i.importParam.PageType()
	}
	if _, err := i.registry.Lookup(p.PageType); err != nil {
		return page.PageRef{}, state, err
	}

	// 1. Sanitize page fragments
	i.sanitizeBlocks(p)

	// one resolver per save, so its memo never outlives the import
	resolver := assets.NewLocalResolver(i.metadataSink, i.fetcher, i.assetStore, i.importParam.ResolveParam())
	rw := rewriter.NewRewriter(i.metadataSink, resolver, i.importParam.FetchConcurrency())
	rewriteParam := rewriter.RewriteParam{
		BaseURL:    p.OriginalURL,
		StoryTitle: p.Title,
	}

	// 2. Import images
	if !state.ImagesImported {
		if err := i.importPosterImages(ctx, resolver, p); err != nil {
			return page.PageRef{}, state, err
		}
		blocks, _, err := rw.RewriteImages(ctx, p.Blocks, rewriteParam)
		if err != nil {
			return page.PageRef{}, state, err
		}
		p.Blocks = blocks
		state.ImagesImported = true
	}

	// 3. Import videos
	if !state.VideosImported {
		blocks, _, err := rw.RewriteVideos(ctx, p.Blocks, rewriteParam)
		if err != nil {
			return page.PageRef{}, state, err
		}
		p.Blocks = blocks
		state.VideosImported = true
	}

	// 4. Validate
	if err := p.Validate(); err != nil {
		i.recordValidationError(p, err)
		return page.PageRef{}, state, err
	}

	// 5. Persist
	ref, err := i.persist(ctx, parentID, p)
	if err != nil {
		return page.PageRef{}, state, err
	}
	i.metadataSink.RecordArtifact(
		metadata.ArtifactStoryPage,
		ref.Slug,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrPageID, strconv.FormatInt(ref.ID, 10)),
			metadata.NewAttr(metadata.AttrURL, p.OriginalURL),
		},
	)
	return ref, state, nil
}

func (i *Importer) fetchURL(raw string) (*url.URL, failure.ClassifiedError) {
	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err != nil || trimmed == "" || !parsed.IsAbs() {
		return nil, &fetcher.FetchError{
			Message:   fmt.Sprintf("cannot parse source url %q", raw),
			Retryable: false,
			Cause:     fetcher.ErrCauseInvalidURL,
			URL:       raw,
		}
	}
	return parsed, nil
}

func (i *Importer) buildPage(doc story.StoryDocument, sourceURL string) *page.StoryPage {
	fragments := doc.Pages()
	values := make([]page.PageValue, 0, len(fragments))
	for _, fragment := range fragments {
		values = append(values, page.PageValue{
			ID:   fragment.ID,
			HTML: markup.NewAMPText(fragment.HTML),
		})
	}

	return &page.StoryPage{
		PageType:        i.importParam.PageType(),
		Title:           doc.Title(),
		Slug:            page.Slugify(doc.Title()),
		Publisher:       doc.Publisher(),
		PublisherLogo:   page.AssetRef{OriginalURL: doc.PublisherLogoSrc()},
		PosterPortrait:  page.AssetRef{OriginalURL: doc.PosterPortraitSrc()},
		PosterSquare:    page.AssetRef{OriginalURL: doc.PosterSquareSrc()},
		PosterLandscape: page.AssetRef{OriginalURL: doc.PosterLandscapeSrc()},
		CustomCSS:       doc.CustomCSS(),
		OriginalURL:     sourceURL,
		Blocks:          page.PageBlocks(values),
	}
}

func (i *Importer) sanitizeBlocks(p *page.StoryPage) {
	if !i.htmlSanitizer.Enabled() {
		return
	}
	for idx, block := range p.Blocks {
		value, ok := block.Page()
		if !ok {
			continue
		}
		source := value.HTML.Source()
		cleaned := i.htmlSanitizer.CleanFragment(value.ID, source)
		if cleaned != source {
			p.Blocks[idx] = block.WithPageHTML(cleaned)
		}
	}
}

// importPosterImages imports the publisher logo and the posters. The
// original URL is kept as the fallback when the fetch fails.
func (i *Importer) importPosterImages(ctx context.Context, resolver assets.Resolver, p *page.StoryPage) failure.ClassifiedError {
	refs := []*page.AssetRef{
		&p.PublisherLogo,
		&p.PosterPortrait,
		&p.PosterSquare,
		&p.PosterLandscape,
	}
	for _, ref := range refs {
		if ref.HasAsset() || ref.OriginalURL == "" {
			continue
		}
		asset, err := resolver.ResolveImage(ctx, assets.ImageRequest{
			URL:        urlutil.Normalize(p.OriginalURL, ref.OriginalURL),
			StoryTitle: p.Title,
		})
		if err != nil {
			var fetchErr *fetcher.FetchError
			if errors.As(err, &fetchErr) {
				continue
			}
			return err
		}
		ref.AssetID = asset.ID
	}
	return nil
}

func (i *Importer) persist(ctx context.Context, parentID int64, p *page.StoryPage) (page.PageRef, error) {
	if p.ID == 0 {
		ref, err := i.pageStore.CreateChildPage(ctx, parentID, p)
		if err != nil {
			return page.PageRef{}, i.pageStoreError("Importer.CreateChildPage", p, err)
		}
		return ref, nil
	}
	if err := i.pageStore.Update(ctx, p); err != nil {
		return page.PageRef{}, i.pageStoreError("Importer.Update", p, err)
	}
	return p.Ref(), nil
}

func (i *Importer) pageStoreError(action string, p *page.StoryPage, cause error) *ImportError {
	importErr := &ImportError{
		Message:   cause.Error(),
		Retryable: false,
		Cause:     ErrCausePageStoreFailure,
	}
	i.metadataSink.RecordError(
		time.Now(),
		"importer",
		action,
		mapImportErrorToMetadataCause(importErr),
		importErr.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, p.OriginalURL),
		},
	)
	return importErr
}

func (i *Importer) recordValidationError(p *page.StoryPage, err error) {
	var validationErr *page.ValidationError
	if !errors.As(err, &validationErr) {
		return
	}
	attrs := []metadata.Attribute{metadata.NewAttr(metadata.AttrURL, p.OriginalURL)}
	for field := range validationErr.Fields {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrField, field))
	}
	i.metadataSink.RecordError(
		time.Now(),
		"importer",
		"Importer.Save",
		metadata.CauseContentInvalid,
		validationErr.Error(),
		attrs,
	)
}

// countImported counts stored asset references: the symbolic references in
// page markup plus the logo and posters that point at a local asset.
func countImported(p *page.StoryPage) (images int, videos int) {
	for _, value := range p.Fragments() {
		pageImages, pageVideos := markup.CountRefs(value.HTML.Source())
		images += pageImages
		videos += pageVideos
	}
	for _, ref := range []page.AssetRef{p.PublisherLogo, p.PosterPortrait, p.PosterSquare, p.PosterLandscape} {
		if ref.HasAsset() {
			images++
		}
	}
	return images, videos
}
