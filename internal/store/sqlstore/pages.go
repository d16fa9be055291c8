package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/page"
)

var _ page.Store = (*PageStore)(nil)

// maxSlugAttempts bounds the suffix search for a free slug.
const maxSlugAttempts = 1000

type PageStore struct {
	db *DB
}

func NewPageStore(db *DB) *PageStore {
	return &PageStore{db: db}
}

// storyImages is the JSON shape of the images column.
type storyImages struct {
	PublisherLogo   page.AssetRef `json:"publisher_logo"`
	PosterPortrait  page.AssetRef `json:"poster_portrait"`
	PosterSquare    page.AssetRef `json:"poster_square"`
	PosterLandscape page.AssetRef `json:"poster_landscape"`
}

func (s *PageStore) CreateChildPage(ctx context.Context, parentID int64, p *page.StoryPage) (page.PageRef, error) {
	images, blocks, err := encodePage(p)
	if err != nil {
		return page.PageRef{}, err
	}

	base := p.Slug
	if base == "" {
		base = page.Slugify(p.Title)
	}
	now := time.Now().UTC()
	query := s.db.rebind(`INSERT INTO story_pages (
		parent_id, page_type, title, slug, publisher, images, custom_css, original_url, blocks, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (parent_id, slug) DO NOTHING
	RETURNING id`)

	slug := base
	for n := 2; n <= maxSlugAttempts+1; n++ {
		var id int64
		err := s.db.db.QueryRowContext(ctx, query,
			parentID, p.PageType, p.Title, slug, p.Publisher, images, p.CustomCSS, p.OriginalURL, blocks,
			formatTime(now), formatTime(now),
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			slug = fmt.Sprintf("%s-%d", base, n)
			continue
		}
		if err != nil {
			return page.PageRef{}, fmt.Errorf("insert page: %w", err)
		}

		p.ID = id
		p.ParentID = parentID
		p.Slug = slug
		p.CreatedAt = now
		p.UpdatedAt = now
		return p.Ref(), nil
	}
	return page.PageRef{}, fmt.Errorf("no free slug for %q under parent %d", base, parentID)
}

func (s *PageStore) Get(ctx context.Context, id int64) (*page.StoryPage, bool, error) {
	query := s.db.rebind(`SELECT id, parent_id, page_type, title, slug, publisher, images, custom_css, original_url, blocks, created_at, updated_at
		FROM story_pages WHERE id = ?`)

	var (
		p                    page.StoryPage
		images, blocks       string
		createdAt, updatedAt string
	)
	err := s.db.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.ParentID, &p.PageType, &p.Title, &p.Slug, &p.Publisher, &images,
		&p.CustomCSS, &p.OriginalURL, &blocks, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query page %d: %w", id, err)
	}

	var decoded storyImages
	if err := json.Unmarshal([]byte(images), &decoded); err != nil {
		return nil, false, fmt.Errorf("page %d images: %w", id, err)
	}
	p.PublisherLogo = decoded.PublisherLogo
	p.PosterPortrait = decoded.PosterPortrait
	p.PosterSquare = decoded.PosterSquare
	p.PosterLandscape = decoded.PosterLandscape

	if err := json.Unmarshal([]byte(blocks), &p.Blocks); err != nil {
		return nil, false, fmt.Errorf("page %d blocks: %w", id, err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, false, fmt.Errorf("page %d created_at: %w", id, err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, false, fmt.Errorf("page %d updated_at: %w", id, err)
	}
	return &p, true, nil
}

// Update rewrites everything except the page's position in the tree.
func (s *PageStore) Update(ctx context.Context, p *page.StoryPage) error {
	images, blocks, err := encodePage(p)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	query := s.db.rebind(`UPDATE story_pages SET
		page_type = ?, title = ?, publisher = ?, images = ?, custom_css = ?, original_url = ?, blocks = ?, updated_at = ?
		WHERE id = ?`)

	res, err := s.db.db.ExecContext(ctx, query,
		p.PageType, p.Title, p.Publisher, images, p.CustomCSS, p.OriginalURL, blocks, formatTime(now), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update page %d: %w", p.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update page %d: %w", p.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update page %d: %w", p.ID, page.ErrNotFound)
	}
	p.UpdatedAt = now
	return nil
}

func encodePage(p *page.StoryPage) (string, string, error) {
	images, err := json.Marshal(storyImages{
		PublisherLogo:   p.PublisherLogo,
		PosterPortrait:  p.PosterPortrait,
		PosterSquare:    p.PosterSquare,
		PosterLandscape: p.PosterLandscape,
	})
	if err != nil {
		return "", "", fmt.Errorf("encode page images: %w", err)
	}
	blocks := p.Blocks
	if blocks == nil {
		blocks = []page.Block{}
	}
	encodedBlocks, err := json.Marshal(blocks)
	if err != nil {
		return "", "", fmt.Errorf("encode page blocks: %w", err)
	}
	return string(images), string(encodedBlocks), nil
}
