package memory

import (
	"context"
	"sync"

	"github.com/rohmanhakim/webstory-importer/internal/assets"
)

var _ assets.Catalog = (*AssetCatalog)(nil)

// AssetCatalog is an in-memory assets.Catalog. It lives only for the
// duration of the process.
type AssetCatalog struct {
	mu     sync.RWMutex
	byID   map[int64]assets.Asset
	byHash map[string]int64 // key: kind + hash
	nextID int64
}

func NewAssetCatalog() *AssetCatalog {
	return &AssetCatalog{
		byID:   make(map[int64]assets.Asset),
		byHash: make(map[string]int64),
	}
}

func hashKey(kind assets.Kind, hash string) string {
	return string(kind) + ":" + hash
}

func (c *AssetCatalog) FindByHash(ctx context.Context, kind assets.Kind, hash string) (assets.Asset, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.byHash[hashKey(kind, hash)]
	if !ok {
		return assets.Asset{}, false, nil
	}
	return c.byID[id], true, nil
}

func (c *AssetCatalog) Insert(ctx context.Context, asset assets.Asset) (assets.Asset, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := hashKey(asset.Kind, asset.Hash)
	if id, ok := c.byHash[key]; ok {
		return c.byID[id], false, nil
	}
	c.nextID++
	asset.ID = c.nextID
	c.byID[asset.ID] = asset
	c.byHash[key] = asset.ID
	return asset, true, nil
}

func (c *AssetCatalog) Get(ctx context.Context, kind assets.Kind, id int64) (assets.Asset, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	asset, ok := c.byID[id]
	if !ok || asset.Kind != kind {
		return assets.Asset{}, false, nil
	}
	return asset, true, nil
}

// Size returns the number of stored assets.
func (c *AssetCatalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.byID)
}
