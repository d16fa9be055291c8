package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rohmanhakim/webstory-importer/internal/external"
)

var _ external.Repository = (*ExternalStoryRepository)(nil)

type ExternalStoryRepository struct {
	db *DB
}

func NewExternalStoryRepository(db *DB) *ExternalStoryRepository {
	return &ExternalStoryRepository{db: db}
}

func (r *ExternalStoryRepository) Get(ctx context.Context, urlHash string) (external.ExternalStory, bool, error) {
	query := r.db.rebind(`SELECT url_hash, url, title, publisher, publisher_logo_src,
		poster_portrait_src, poster_square_src, poster_landscape_src, last_fetched_at
		FROM external_stories WHERE url_hash = ?`)

	var (
		e           external.ExternalStory
		lastFetched string
	)
	err := r.db.db.QueryRowContext(ctx, query, urlHash).Scan(
		&e.URLHash, &e.URL, &e.Title, &e.Publisher, &e.PublisherLogoSrc,
		&e.PosterPortraitSrc, &e.PosterSquareSrc, &e.PosterLandscapeSrc, &lastFetched,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return external.ExternalStory{}, false, nil
	}
	if err != nil {
		return external.ExternalStory{}, false, fmt.Errorf("query external story: %w", err)
	}
	if e.LastFetchedAt, err = parseTime(lastFetched); err != nil {
		return external.ExternalStory{}, false, fmt.Errorf("external story last_fetched_at: %w", err)
	}
	return e, true, nil
}

// Put overwrites any existing entry for the same hash.
func (r *ExternalStoryRepository) Put(ctx context.Context, e external.ExternalStory) error {
	query := r.db.rebind(`INSERT INTO external_stories (
		url_hash, url, title, publisher, publisher_logo_src,
		poster_portrait_src, poster_square_src, poster_landscape_src, last_fetched_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (url_hash) DO UPDATE SET
		url = excluded.url,
		title = excluded.title,
		publisher = excluded.publisher,
		publisher_logo_src = excluded.publisher_logo_src,
		poster_portrait_src = excluded.poster_portrait_src,
		poster_square_src = excluded.poster_square_src,
		poster_landscape_src = excluded.poster_landscape_src,
		last_fetched_at = excluded.last_fetched_at`)

	_, err := r.db.db.ExecContext(ctx, query,
		e.URLHash, e.URL, e.Title, e.Publisher, e.PublisherLogoSrc,
		e.PosterPortraitSrc, e.PosterSquareSrc, e.PosterLandscapeSrc, formatTime(e.LastFetchedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert external story: %w", err)
	}
	return nil
}
