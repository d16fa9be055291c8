package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/page"
)

var _ page.Store = (*PageStore)(nil)

type PageStore struct {
	mu     sync.RWMutex
	pages  map[int64]page.StoryPage
	nextID int64
}

func NewPageStore() *PageStore {
	return &PageStore{
		pages: make(map[int64]page.StoryPage),
	}
}

func (s *PageStore) CreateChildPage(ctx context.Context, parentID int64, p *page.StoryPage) (page.PageRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := p.Slug
	if base == "" {
		base = page.Slugify(p.Title)
	}
	slug := base
	for n := 2; s.slugTaken(parentID, slug); n++ {
		slug = fmt.Sprintf("%s-%d", base, n)
	}

	now := time.Now().UTC()
	s.nextID++
	p.ID = s.nextID
	p.ParentID = parentID
	p.Slug = slug
	p.CreatedAt = now
	p.UpdatedAt = now
	s.pages[p.ID] = clonePage(p)
	return p.Ref(), nil
}

func (s *PageStore) slugTaken(parentID int64, slug string) bool {
	for _, existing := range s.pages {
		if existing.ParentID == parentID && existing.Slug == slug {
			return true
		}
	}
	return false
}

func (s *PageStore) Get(ctx context.Context, id int64) (*page.StoryPage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.pages[id]
	if !ok {
		return nil, false, nil
	}
	copied := clonePage(&stored)
	return &copied, true, nil
}

func (s *PageStore) Update(ctx context.Context, p *page.StoryPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pages[p.ID]; !ok {
		return fmt.Errorf("update page %d: %w", p.ID, page.ErrNotFound)
	}
	p.UpdatedAt = time.Now().UTC()
	s.pages[p.ID] = clonePage(p)
	return nil
}

// Size returns the number of stored pages.
func (s *PageStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.pages)
}

func clonePage(p *page.StoryPage) page.StoryPage {
	copied := *p
	copied.Blocks = append([]page.Block(nil), p.Blocks...)
	return copied
}
