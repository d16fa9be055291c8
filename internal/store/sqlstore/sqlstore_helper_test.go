package sqlstore_test

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rohmanhakim/webstory-importer/internal/external"
	"github.com/rohmanhakim/webstory-importer/internal/store/sqlstore"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *sqlstore.DB {
	t.Helper()
	db, err := sqlstore.Open(context.Background(), sqlstore.DialectSQLite, filepath.Join(t.TempDir(), "webstories.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// openPostgresMock returns a postgres-dialect store over sqlmock with the
// schema statements already expected.
func openPostgresMock(t *testing.T) (*sqlstore.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	for _, table := range []string{"assets", "story_pages", "external_stories"} {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS " + table)).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	db, err := sqlstore.New(context.Background(), conn, sqlstore.DialectPostgres)
	require.NoError(t, err)
	return db, mock
}


func externalStory(hash, url, title string) external.ExternalStory {
	return external.ExternalStory{URLHash: hash, URL: url, Title: title, LastFetchedAt: time.Now()}
}
