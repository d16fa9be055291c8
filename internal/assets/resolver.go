package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/fetcher"
	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
	"github.com/rohmanhakim/webstory-importer/pkg/fileutil"
	"github.com/rohmanhakim/webstory-importer/pkg/hashutil"
	"github.com/rohmanhakim/webstory-importer/pkg/urlutil"
	"golang.org/x/sync/singleflight"
)

/*
Responsibilities
- Fetch remote images and media referenced by a story
- Deduplicate via content hashing
- Create new assets with derived titles and dimensions
- Attach a best-effort poster thumbnail to media

Asset Policies
- One asset per (kind, content hash)
- A URL is fetched at most once per resolver
- Fetch failures are returned as *fetcher.FetchError so callers can degrade
*/
type Resolver interface {
	ResolveImage(ctx context.Context, req ImageRequest) (Asset, failure.ClassifiedError)
	ResolveVideo(ctx context.Context, req VideoRequest) (Asset, failure.ClassifiedError)
}

var _ Resolver = (*LocalResolver)(nil)

// LocalResolver is scoped to one import run; its memo is never shared
// between runs.
type LocalResolver struct {
	metadataSink metadata.MetadataSink
	fetcher      fetcher.Fetcher
	store        Store
	resolveParam ResolveParam

	group singleflight.Group
	mu    sync.Mutex
	memo  map[string]memoEntry // key: kind + canonical URL
}

type memoEntry struct {
	asset Asset
	err   failure.ClassifiedError
}

func NewLocalResolver(
	metadataSink metadata.MetadataSink,
	f fetcher.Fetcher,
	store Store,
	resolveParam ResolveParam,
) *LocalResolver {
	return &LocalResolver{
		metadataSink: metadataSink,
		fetcher:      f,
		store:        store,
		resolveParam: resolveParam,
		memo:         make(map[string]memoEntry),
	}
}

func (r *LocalResolver) ResolveImage(ctx context.Context, req ImageRequest) (Asset, failure.ClassifiedError) {
	return r.memoized(KindImage, req.URL, func() (Asset, failure.ClassifiedError) {
		return r.resolveImage(ctx, req)
	})
}

func (r *LocalResolver) ResolveVideo(ctx context.Context, req VideoRequest) (Asset, failure.ClassifiedError) {
	return r.memoized(KindMedia, req.URL, func() (Asset, failure.ClassifiedError) {
		return r.resolveVideo(ctx, req)
	})
}

// memoized runs resolve once per kind and canonical URL. Concurrent callers
// for the same key share one in-flight resolution.
func (r *LocalResolver) memoized(kind Kind, rawURL string, resolve func() (Asset, failure.ClassifiedError)) (Asset, failure.ClassifiedError) {
	key := string(kind) + " " + urlutil.CanonicalKey(rawURL)

	r.mu.Lock()
	entry, ok := r.memo[key]
	r.mu.Unlock()
	if ok {
		return entry.asset, entry.err
	}

	v, _, _ := r.group.Do(key, func() (interface{}, error) {
		r.mu.Lock()
		cached, ok := r.memo[key]
		r.mu.Unlock()
		if ok {
			return cached, nil
		}

		asset, err := resolve()
		entry := memoEntry{asset: asset, err: err}
		r.mu.Lock()
		r.memo[key] = entry
		r.mu.Unlock()
		return entry, nil
	})
	entry = v.(memoEntry)
	return entry.asset, entry.err
}

func (r *LocalResolver) resolveImage(ctx context.Context, req ImageRequest) (Asset, failure.ClassifiedError) {
	result, hash, err := r.fetchAndHash(ctx, req.URL, fetcher.ContentImage)
	if err != nil {
		return Asset{}, err
	}

	existing, found, err := r.store.FindByHash(ctx, KindImage, hash)
	if err != nil {
		return Asset{}, err
	}
	if found {
		r.recordDedup(existing, req.URL)
		return existing, nil
	}

	body := result.Body()
	width, height := imageDimensions(body)
	return r.store.Create(ctx, CreateParam{
		Kind:        KindImage,
		Hash:        hash,
		Title:       deriveTitle(req.Title, req.URL, req.StoryTitle),
		Width:       width,
		Height:      height,
		ContentType: result.ContentType(),
		SourceURL:   req.URL,
		Data:        body,
	})
}

func (r *LocalResolver) resolveVideo(ctx context.Context, req VideoRequest) (Asset, failure.ClassifiedError) {
	result, hash, err := r.fetchAndHash(ctx, req.URL, fetcher.ContentMedia)
	if err != nil {
		return Asset{}, err
	}

	existing, found, err := r.store.FindByHash(ctx, KindMedia, hash)
	if err != nil {
		return Asset{}, err
	}
	if found {
		r.recordDedup(existing, req.URL)
		return existing, nil
	}

	var thumbnailID int64
	if req.PosterURL != "" {
		poster, posterErr := r.ResolveImage(ctx, ImageRequest{
			URL:        req.PosterURL,
			StoryTitle: req.StoryTitle,
		})
		if posterErr == nil {
			thumbnailID = poster.ID
		} else {
			r.metadataSink.RecordError(
				time.Now(),
				"assets",
				"LocalResolver.ResolveVideo",
				metadata.CauseNetworkFailure,
				fmt.Sprintf("poster skipped: %v", posterErr),
				[]metadata.Attribute{
					metadata.NewAttr(metadata.AttrAssetURL, req.PosterURL),
				},
			)
		}
	}

	return r.store.Create(ctx, CreateParam{
		Kind:        KindMedia,
		Hash:        hash,
		Title:       deriveTitle(req.Title, req.URL, req.StoryTitle),
		Width:       req.Width,
		Height:      req.Height,
		ThumbnailID: thumbnailID,
		ContentType: result.ContentType(),
		SourceURL:   req.URL,
		Data:        result.Body(),
	})
}

func (r *LocalResolver) fetchAndHash(ctx context.Context, rawURL string, kind fetcher.ContentKind) (fetcher.FetchResult, string, failure.ClassifiedError) {
	fetchUrl, parseErr := url.Parse(rawURL)
	if parseErr != nil || rawURL == "" {
		return fetcher.FetchResult{}, "", &fetcher.FetchError{
			Message:   fmt.Sprintf("cannot parse asset url %q", rawURL),
			Retryable: false,
			Cause:     fetcher.ErrCauseInvalidURL,
			URL:       rawURL,
		}
	}

	result, err := r.fetcher.Fetch(ctx, fetcher.NewFetchParam(
		*fetchUrl,
		r.resolveParam.UserAgent(),
		kind,
		r.resolveParam.MaxAssetSize(),
	))
	if err != nil {
		return fetcher.FetchResult{}, "", err
	}

	hash, hashErr := hashutil.HashBytes(result.Body(), r.resolveParam.HashAlgo())
	if hashErr != nil {
		assetsErr := &AssetsError{
			Message:   hashErr.Error(),
			Retryable: false,
			Cause:     ErrCauseHashError,
		}
		r.metadataSink.RecordError(
			time.Now(),
			"assets",
			"LocalResolver.fetchAndHash",
			mapAssetsErrorToMetadataCause(assetsErr),
			assetsErr.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrAssetURL, rawURL),
			},
		)
		return fetcher.FetchResult{}, "", assetsErr
	}
	return result, hash, nil
}

func (r *LocalResolver) recordDedup(existing Asset, rawURL string) {
	r.metadataSink.RecordArtifact(
		artifactKind(existing.Kind),
		existing.StorageKey,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrAssetID, strconv.FormatInt(existing.ID, 10)),
			metadata.NewAttr(metadata.AttrHash, existing.Hash),
			metadata.NewAttr(metadata.AttrAssetURL, rawURL),
			metadata.NewAttr(metadata.AttrDeduped, "true"),
		},
	)
}

// deriveTitle uses the explicit title, then the URL's file name without
// extension, then a label naming the story.
func deriveTitle(explicit string, rawURL string, storyTitle string) string {
	if title := strings.TrimSpace(explicit); title != "" {
		return title
	}
	if name := strings.TrimSpace(fileutil.BaseNameWithoutExt(urlPathOf(rawURL))); name != "" {
		return name
	}
	return "asset from story: " + storyTitle
}

// imageDimensions returns zero values for formats without a registered
// decoder (webp, avif, svg).
func imageDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
