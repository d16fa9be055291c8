package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

/*
Responsibilities
- Open the catalog database for the configured driver
- Create the schema on first use
- Translate queries to the driver's placeholder style

Queries are written with '?' placeholders and rebound for postgres.
Timestamps are stored as RFC 3339 text in both dialects.
*/

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DB is a database handle paired with its dialect.
type DB struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to dsn and migrates the schema. For sqlite dsn is a file
// path; for postgres it is a connection URL.
func Open(ctx context.Context, dialect Dialect, dsn string) (*DB, error) {
	var driver string
	switch dialect {
	case DialectSQLite:
		driver = "sqlite"
	case DialectPostgres:
		driver = "pgx"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// one writer at a time, otherwise concurrent imports hit SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	store, err := New(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an open handle and migrates the schema.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*DB, error) {
	d := &DB{db: db, dialect: dialect}
	if err := d.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate %s schema: %w", dialect, err)
	}
	return d, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Dialect() Dialect {
	return d.dialect
}

func (d *DB) migrate(ctx context.Context) error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d.dialect == DialectPostgres {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS assets (
			id ` + idColumn + `,
			kind TEXT NOT NULL,
			hash TEXT NOT NULL,
			title TEXT NOT NULL,
			width INTEGER NOT NULL DEFAULT 0,
			height INTEGER NOT NULL DEFAULT 0,
			thumbnail_id BIGINT NOT NULL DEFAULT 0,
			storage_key TEXT NOT NULL,
			content_type TEXT NOT NULL,
			source_url TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE (kind, hash)
		)`,
		`CREATE TABLE IF NOT EXISTS story_pages (
			id ` + idColumn + `,
			parent_id BIGINT NOT NULL,
			page_type TEXT NOT NULL,
			title TEXT NOT NULL,
			slug TEXT NOT NULL,
			publisher TEXT NOT NULL,
			images TEXT NOT NULL,
			custom_css TEXT NOT NULL,
			original_url TEXT NOT NULL,
			blocks TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE (parent_id, slug)
		)`,
		`CREATE TABLE IF NOT EXISTS external_stories (
			url_hash TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			publisher TEXT NOT NULL,
			publisher_logo_src TEXT NOT NULL,
			poster_portrait_src TEXT NOT NULL,
			poster_square_src TEXT NOT NULL,
			poster_landscape_src TEXT NOT NULL,
			last_fetched_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites '?' placeholders to $n for postgres.
func (d *DB) rebind(query string) string {
	if d.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
