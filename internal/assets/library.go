package assets

import (
	"context"
	"mime"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/internal/storage"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
	"github.com/rohmanhakim/webstory-importer/pkg/fileutil"
)

// Store is the asset collaborator used by the resolver at import time and
// by the expander at render time.
type Store interface {
	FindByHash(ctx context.Context, kind Kind, hash string) (Asset, bool, failure.ClassifiedError)
	Create(ctx context.Context, param CreateParam) (Asset, failure.ClassifiedError)
	Get(ctx context.Context, kind Kind, id int64) (Asset, bool, failure.ClassifiedError)
	RenditionURL(ctx context.Context, asset Asset, preset Preset) (string, failure.ClassifiedError)
}

// Catalog persists asset metadata rows.
type Catalog interface {
	FindByHash(ctx context.Context, kind Kind, hash string) (Asset, bool, error)
	// Insert assigns an ID and CreatedAt. When a row with the same kind and
	// hash already exists it is returned with created=false.
	Insert(ctx context.Context, asset Asset) (stored Asset, created bool, err error)
	Get(ctx context.Context, kind Kind, id int64) (Asset, bool, error)
}

var _ Store = (*Library)(nil)

// Library composes a metadata Catalog with a blob storage.Sink.
type Library struct {
	metadataSink metadata.MetadataSink
	catalog      Catalog
	blobs        storage.Sink
}

func NewLibrary(metadataSink metadata.MetadataSink, catalog Catalog, blobs storage.Sink) *Library {
	return &Library{
		metadataSink: metadataSink,
		catalog:      catalog,
		blobs:        blobs,
	}
}

func (l *Library) FindByHash(ctx context.Context, kind Kind, hash string) (Asset, bool, failure.ClassifiedError) {
	asset, found, err := l.catalog.FindByHash(ctx, kind, hash)
	if err != nil {
		assetsErr := catalogError(err)
		l.recordError("Library.FindByHash", assetsErr, metadata.NewAttr(metadata.AttrHash, hash))
		return Asset{}, false, assetsErr
	}
	return asset, found, nil
}

func (l *Library) Get(ctx context.Context, kind Kind, id int64) (Asset, bool, failure.ClassifiedError) {
	asset, found, err := l.catalog.Get(ctx, kind, id)
	if err != nil {
		assetsErr := catalogError(err)
		l.recordError("Library.Get", assetsErr, metadata.NewAttr(metadata.AttrAssetID, strconv.FormatInt(id, 10)))
		return Asset{}, false, assetsErr
	}
	return asset, found, nil
}

// Create writes the bytes first and the row second, so a row never points
// at missing bytes. Losing an insert race leaves an unreferenced blob and
// returns the winner's row.
func (l *Library) Create(ctx context.Context, param CreateParam) (Asset, failure.ClassifiedError) {
	key := buildAssetKey(param.Kind, param.SourceURL, param.Hash, param.ContentType)
	if _, err := l.blobs.Put(ctx, key, param.Data, param.ContentType); err != nil {
		assetsErr := &AssetsError{
			Message:   err.Error(),
			Retryable: err.Severity() == failure.SeverityRecoverable,
			Cause:     ErrCauseBlobFailure,
		}
		l.recordError("Library.Create", assetsErr, metadata.NewAttr(metadata.AttrWritePath, key))
		return Asset{}, assetsErr
	}

	stored, created, err := l.catalog.Insert(ctx, Asset{
		Kind:        param.Kind,
		Hash:        param.Hash,
		Title:       param.Title,
		Width:       param.Width,
		Height:      param.Height,
		ThumbnailID: param.ThumbnailID,
		StorageKey:  key,
		ContentType: param.ContentType,
		SourceURL:   param.SourceURL,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		assetsErr := catalogError(err)
		l.recordError("Library.Create", assetsErr, metadata.NewAttr(metadata.AttrHash, param.Hash))
		return Asset{}, assetsErr
	}

	l.metadataSink.RecordArtifact(
		artifactKind(param.Kind),
		key,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrAssetID, strconv.FormatInt(stored.ID, 10)),
			metadata.NewAttr(metadata.AttrHash, stored.Hash),
			metadata.NewAttr(metadata.AttrAssetURL, param.SourceURL),
			metadata.NewAttr(metadata.AttrDeduped, strconv.FormatBool(!created)),
		},
	)
	return stored, nil
}

// RenditionURL resolves a servable URL. Images serve their stored bytes for
// both presets; media serve the file for original and their poster image
// for thumbnail. An empty string means there is nothing to serve.
func (l *Library) RenditionURL(ctx context.Context, asset Asset, preset Preset) (string, failure.ClassifiedError) {
	switch preset {
	case PresetOriginal:
		return l.blobs.URL(asset.StorageKey), nil
	case PresetThumbnail:
		if asset.Kind == KindImage {
			return l.blobs.URL(asset.StorageKey), nil
		}
		if !asset.HasThumbnail() {
			return "", nil
		}
		thumb, found, err := l.Get(ctx, KindImage, asset.ThumbnailID)
		if err != nil {
			return "", err
		}
		if !found {
			return "", nil
		}
		return l.blobs.URL(thumb.StorageKey), nil
	default:
		return "", &AssetsError{
			Message: string(preset),
			Cause:   ErrCauseUnknownPreset,
		}
	}
}

func (l *Library) recordError(action string, err *AssetsError, attrs ...metadata.Attribute) {
	l.metadataSink.RecordError(
		time.Now(),
		"assets",
		action,
		mapAssetsErrorToMetadataCause(err),
		err.Error(),
		attrs,
	)
}

func catalogError(err error) *AssetsError {
	return &AssetsError{
		Message:   err.Error(),
		Retryable: false,
		Cause:     ErrCauseCatalogFailure,
	}
}

func artifactKind(kind Kind) metadata.ArtifactKind {
	if kind == KindMedia {
		return metadata.ArtifactMedia
	}
	return metadata.ArtifactImage
}

// buildAssetKey builds the blob key for an asset using the format:
// <images|media>/<original-name>-<short-hash>.<ext>
// Example: images/wagtails-a3f7b2c.jpg
func buildAssetKey(kind Kind, sourceURL string, contentHash string, contentType string) string {
	dir := "images"
	if kind == KindMedia {
		dir = "media"
	}

	urlPath := urlPathOf(sourceURL)
	safeName := sanitizeFilename(fileutil.BaseNameWithoutExt(urlPath))
	if safeName == "" {
		safeName = "asset"
	}

	extension := strings.ToLower(fileutil.GetFileExtension(path.Base(urlPath)))
	if !isSafeExtension(extension) {
		extension = extensionForContentType(contentType)
	}

	// first 7 chars of the hash, like git
	shortHash := contentHash
	if len(contentHash) > 7 {
		shortHash = contentHash[:7]
	}

	filename := safeName + "-" + shortHash
	if extension != "" {
		filename = filename + "." + extension
	}
	return dir + "/" + filename
}

var preferredExtensions = map[string]string{
	"image/jpeg":    "jpg",
	"image/png":     "png",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/avif":    "avif",
	"image/svg+xml": "svg",
	"video/mp4":     "mp4",
	"video/webm":    "webm",
	"video/ogg":     "ogv",
	"audio/mpeg":    "mp3",
}

func extensionForContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	if ext, ok := preferredExtensions[mediaType]; ok {
		return ext
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return strings.TrimPrefix(exts[0], ".")
}

func urlPathOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Path
}

func isSafeExtension(ext string) bool {
	if ext == "" || len(ext) > 8 {
		return false
	}
	for i := 0; i < len(ext); i++ {
		c := ext[i]
		if !('a' <= c && c <= 'z') && !('0' <= c && c <= '9') {
			return false
		}
	}
	return true
}

// sanitizeFilename replaces characters that are unsafe in a storage key
// and limits the length.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	result := strings.Trim(b.String(), ".")
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}
