package memory

import (
	"context"
	"sync"

	"github.com/rohmanhakim/webstory-importer/internal/external"
)

var _ external.Repository = (*ExternalStoryRepository)(nil)

type ExternalStoryRepository struct {
	mu   sync.RWMutex
	data map[string]external.ExternalStory
}

func NewExternalStoryRepository() *ExternalStoryRepository {
	return &ExternalStoryRepository{
		data: make(map[string]external.ExternalStory),
	}
}

func (r *ExternalStoryRepository) Get(ctx context.Context, urlHash string) (external.ExternalStory, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.data[urlHash]
	return entry, ok, nil
}

// Put overwrites any existing entry for the same hash.
func (r *ExternalStoryRepository) Put(ctx context.Context, entry external.ExternalStory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[entry.URLHash] = entry
	return nil
}

func (r *ExternalStoryRepository) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.data)
}
