package external_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/external"
	"github.com/rohmanhakim/webstory-importer/internal/fetcher"
	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/internal/story"
	"github.com/rohmanhakim/webstory-importer/pkg/retry"
	"github.com/rohmanhakim/webstory-importer/pkg/timeutil"
)

const storyHTML = `<!doctype html>
<html amp>
<head>
	<title>Wagtail spotting</title>
	<link rel="canonical" href="/good-story.html">
</head>
<body>
	<amp-story standalone title="Wagtail spotting" publisher="Torchbox"
		publisher-logo-src="torchbox.png" poster-portrait-src="/wagtails.jpg"
		poster-landscape-src="https://cdn.example.com/wide.jpg">
		<amp-story-page id="cover"></amp-story-page>
	</amp-story>
</body>
</html>`

// storyServer serves storyHTML at /good-story.html and counts requests.
func storyServer(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/good-story.html", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		// widen the window for concurrent misses
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(storyHTML))
	})
	mux.HandleFunc("/not-a-story.html", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>hello</p></body></html>`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &hits
}

func newTestCache(repo external.Repository) *external.Cache {
	sink := &metadata.NoopSink{}
	retryParam := retry.NewRetryParam(time.Millisecond, 0, 1, 1, timeutil.NewBackoffParam(time.Millisecond, 2.0, 5*time.Millisecond))
	f := fetcher.NewHttpFetcher(sink, &http.Client{Timeout: 5 * time.Second}, retryParam, nil)
	return external.NewCache(sink, repo, f, story.NewParser(sink), external.NewCacheParam("webstories-test", 1<<20))
}

type failingRepository struct{}

func (failingRepository) Get(ctx context.Context, urlHash string) (external.ExternalStory, bool, error) {
	return external.ExternalStory{}, false, errors.New("connection refused")
}

func (failingRepository) Put(ctx context.Context, entry external.ExternalStory) error {
	return errors.New("connection refused")
}
