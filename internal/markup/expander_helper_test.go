package markup_test

import (
	"context"
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/assets"
	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
)

// assetStoreStub serves a fixed set of assets and counts lookups.
type assetStoreStub struct {
	assets  map[int64]assets.Asset
	getErr  failure.ClassifiedError
	getCall int
}

func newAssetStoreStub(list ...assets.Asset) *assetStoreStub {
	stub := &assetStoreStub{assets: make(map[int64]assets.Asset)}
	for _, a := range list {
		stub.assets[a.ID] = a
	}
	return stub
}

func (s *assetStoreStub) FindByHash(ctx context.Context, kind assets.Kind, hash string) (assets.Asset, bool, failure.ClassifiedError) {
	return assets.Asset{}, false, nil
}

func (s *assetStoreStub) Create(ctx context.Context, param assets.CreateParam) (assets.Asset, failure.ClassifiedError) {
	return assets.Asset{}, nil
}

func (s *assetStoreStub) Get(ctx context.Context, kind assets.Kind, id int64) (assets.Asset, bool, failure.ClassifiedError) {
	s.getCall++
	if s.getErr != nil {
		return assets.Asset{}, false, s.getErr
	}
	a, ok := s.assets[id]
	if !ok || a.Kind != kind {
		return assets.Asset{}, false, nil
	}
	return a, true, nil
}

func (s *assetStoreStub) RenditionURL(ctx context.Context, asset assets.Asset, preset assets.Preset) (string, failure.ClassifiedError) {
	return "https://media.example.com/" + asset.StorageKey, nil
}

type metadataSinkMock struct {
	errors int
}

func (m *metadataSinkMock) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	m.errors++
}

func (m *metadataSinkMock) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
) {
}

func (m *metadataSinkMock) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
}
