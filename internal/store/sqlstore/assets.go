package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rohmanhakim/webstory-importer/internal/assets"
)

var _ assets.Catalog = (*AssetCatalog)(nil)

// AssetCatalog keeps asset rows. The (kind, hash) unique key is what makes
// concurrent imports of the same bytes converge on one row.
type AssetCatalog struct {
	db *DB
}

func NewAssetCatalog(db *DB) *AssetCatalog {
	return &AssetCatalog{db: db}
}

const assetColumns = "id, kind, hash, title, width, height, thumbnail_id, storage_key, content_type, source_url, created_at"

func (c *AssetCatalog) FindByHash(ctx context.Context, kind assets.Kind, hash string) (assets.Asset, bool, error) {
	query := c.db.rebind("SELECT " + assetColumns + " FROM assets WHERE kind = ? AND hash = ?")
	return c.queryOne(ctx, query, string(kind), hash)
}

func (c *AssetCatalog) Get(ctx context.Context, kind assets.Kind, id int64) (assets.Asset, bool, error) {
	query := c.db.rebind("SELECT " + assetColumns + " FROM assets WHERE kind = ? AND id = ?")
	return c.queryOne(ctx, query, string(kind), id)
}

func (c *AssetCatalog) Insert(ctx context.Context, asset assets.Asset) (assets.Asset, bool, error) {
	query := c.db.rebind(`INSERT INTO assets (
		kind, hash, title, width, height, thumbnail_id, storage_key, content_type, source_url, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (kind, hash) DO NOTHING
	RETURNING id`)

	var id int64
	err := c.db.db.QueryRowContext(ctx, query,
		string(asset.Kind), asset.Hash, asset.Title, asset.Width, asset.Height, asset.ThumbnailID,
		asset.StorageKey, asset.ContentType, asset.SourceURL, formatTime(asset.CreatedAt),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		existing, found, findErr := c.FindByHash(ctx, asset.Kind, asset.Hash)
		if findErr != nil {
			return assets.Asset{}, false, findErr
		}
		if !found {
			return assets.Asset{}, false, fmt.Errorf("asset %s/%s conflicted but is missing", asset.Kind, asset.Hash)
		}
		return existing, false, nil
	}
	if err != nil {
		return assets.Asset{}, false, fmt.Errorf("insert asset: %w", err)
	}
	asset.ID = id
	return asset, true, nil
}

func (c *AssetCatalog) queryOne(ctx context.Context, query string, args ...any) (assets.Asset, bool, error) {
	var (
		a         assets.Asset
		kind      string
		createdAt string
	)
	err := c.db.db.QueryRowContext(ctx, query, args...).Scan(
		&a.ID, &kind, &a.Hash, &a.Title, &a.Width, &a.Height, &a.ThumbnailID,
		&a.StorageKey, &a.ContentType, &a.SourceURL, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return assets.Asset{}, false, nil
	}
	if err != nil {
		return assets.Asset{}, false, fmt.Errorf("query asset: %w", err)
	}
	a.Kind = assets.Kind(kind)
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return assets.Asset{}, false, fmt.Errorf("asset %d created_at: %w", a.ID, err)
	}
	return a, true, nil
}
