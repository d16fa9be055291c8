package assets

import (
	"time"

	"github.com/rohmanhakim/webstory-importer/pkg/hashutil"
)

type Kind string

const (
	KindImage Kind = "image"
	KindMedia Kind = "media"
)

// Asset is a stored image or media file. At most one asset exists per
// (Kind, Hash).
type Asset struct {
	ID          int64
	Kind        Kind
	Hash        string
	Title       string
	Width       int
	Height      int
	ThumbnailID int64 // media only, 0 when absent
	StorageKey  string
	ContentType string
	SourceURL   string
	CreatedAt   time.Time
}

func (a Asset) HasThumbnail() bool {
	return a.ThumbnailID != 0
}

// CreateParam carries everything needed to store a new asset.
type CreateParam struct {
	Kind        Kind
	Hash        string
	Title       string
	Width       int
	Height      int
	ThumbnailID int64
	ContentType string
	SourceURL   string
	Data        []byte
}

type ImageRequest struct {
	URL        string
	Title      string
	StoryTitle string
}

type VideoRequest struct {
	URL        string
	Title      string
	StoryTitle string
	Width      int
	Height     int
	PosterURL  string
}

type Preset string

const (
	PresetOriginal  Preset = "original"
	PresetThumbnail Preset = "thumbnail"
)

type ResolveParam struct {
	userAgent    string
	maxAssetSize int64
	hashAlgo     hashutil.HashAlgo
}

func NewResolveParam(userAgent string, maxAssetSize int64, hashAlgo hashutil.HashAlgo) ResolveParam {
	return ResolveParam{
		userAgent:    userAgent,
		maxAssetSize: maxAssetSize,
		hashAlgo:     hashAlgo,
	}
}

func (r ResolveParam) UserAgent() string {
	return r.userAgent
}

func (r ResolveParam) MaxAssetSize() int64 {
	return r.maxAssetSize
}

func (r ResolveParam) HashAlgo() hashutil.HashAlgo {
	return r.hashAlgo
}
