package importer_test

import (
	"bytes"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/assets"
	"github.com/rohmanhakim/webstory-importer/internal/fetcher"
	"github.com/rohmanhakim/webstory-importer/internal/importer"
	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/internal/page"
	"github.com/rohmanhakim/webstory-importer/internal/sanitizer"
	"github.com/rohmanhakim/webstory-importer/internal/storage"
	"github.com/rohmanhakim/webstory-importer/internal/store/memory"
	"github.com/rohmanhakim/webstory-importer/pkg/hashutil"
	"github.com/rohmanhakim/webstory-importer/pkg/retry"
	"github.com/rohmanhakim/webstory-importer/pkg/timeutil"
	"github.com/stretchr/testify/require"
)

// wagtailStory uses host-relative asset URLs so every fetch stays on the
// test server.
const wagtailStory = `<!doctype html>
<html amp lang="en">
<head>
	<meta charset="utf-8">
	<title>Wagtail spotting</title>
	<link rel="canonical" href="https://example.com/good-story.html">
	<script async src="https://cdn.ampproject.org/v0.js"></script>
	<style amp-boilerplate>body{-webkit-animation:none}</style>
	<style amp-custom>#cover {background-color: #eee;}</style>
</head>
<body>
	<amp-story standalone title="Wagtail spotting" publisher="Torchbox"
		publisher-logo-src="/torchbox.png"
		poster-portrait-src="/wagtails.png">
		<amp-story-page id="cover">
			<amp-story-grid-layer template="fill">
				<amp-img src="/wagtails.png" width="720" height="1280" layout="responsive"></amp-img>
			</amp-story-grid-layer>
		</amp-story-page>
		<amp-story-page id="page-1">
			<amp-story-grid-layer template="vertical">
				<p>Today we went out wagtail spotting</p>
				<script>alert("boo!")</script>
				<amp-img src="/missing.png" width="10" height="10"></amp-img>
				<amp-video width="720" height="1280" poster="/wagtails.png">
					<source src="/flight.mp4" type="video/mp4">
				</amp-video>
			</amp-story-grid-layer>
		</amp-story-page>
	</amp-story>
</body>
</html>`

const notAStory = `<!doctype html>
<html>
<head>
	<meta charset="utf-8">
	<title>Not a story</title>
	<link rel="canonical" href="https://example.com/bad-story.html">
</head>
<body>
	<p>This is not a web story. What are you doing?</p>
</body>
</html>`

const logolessStory = `<!doctype html>
<html amp><head><link rel="canonical" href="https://example.com/x.html"></head>
<body><amp-story standalone title="Bare"><amp-story-page id="only"><p>hi</p></amp-story-page></amp-story></body></html>`

// mirrorStory serves the same image bytes as wagtailStory from other URLs.
const mirrorStory = `<!doctype html>
<html amp lang="en">
<head>
	<meta charset="utf-8">
	<title>Wagtails again</title>
	<link rel="canonical" href="https://example.com/mirror-story.html">
</head>
<body>
	<amp-story standalone title="Wagtails again" publisher="Torchbox"
		publisher-logo-src="/mirror/logo.png"
		poster-portrait-src="/mirror/poster.png">
		<amp-story-page id="cover">
			<amp-story-grid-layer template="fill">
				<amp-img src="/mirror/poster.png" width="720" height="1280" layout="responsive"></amp-img>
			</amp-story-grid-layer>
		</amp-story-page>
	</amp-story>
</body>
</html>`

type storyServer struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func newStoryServer(t *testing.T) *storyServer {
	t.Helper()
	logo := pngBytes(t, 2, 2, 0x11)
	poster := pngBytes(t, 9, 16, 0x22)

	s := &storyServer{hits: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()

		switch r.URL.Path {
		case "/good-story.html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(wagtailStory))
		case "/bad-story.html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(notAStory))
		case "/mirror-story.html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(mirrorStory))
		case "/bad-story.json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"title": "not a story"}`))
		case "/logoless.html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(logolessStory))
		case "/torchbox.png", "/mirror/logo.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(logo)
		case "/wagtails.png", "/mirror/poster.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(poster)
		case "/flight.mp4":
			w.Header().Set("Content-Type", "video/mp4")
			w.Write([]byte("mp4 bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *storyServer) totalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

func (s *storyServer) hitsFor(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func pngBytes(t *testing.T, w, h int, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type metadataSinkMock struct {
	mu     sync.Mutex
	errors []metadata.ErrorCause
	stats  []metadata.ImportStats
}

func (m *metadataSinkMock) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, cause)
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

func (m *metadataSinkMock) RecordImportStats(stats metadata.ImportStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = append(m.stats, stats)
}

func (m *metadataSinkMock) lastStats(t *testing.T) metadata.ImportStats {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.stats)
	return m.stats[len(m.stats)-1]
}

type importFixture struct {
	sink     *metadataSinkMock
	catalog  *memory.AssetCatalog
	pages    *memory.PageStore
	importer *importer.Importer
}

func newImportFixture(t *testing.T, cleanHTML bool) importFixture {
	t.Helper()
	sink := &metadataSinkMock{}
	catalog := memory.NewAssetCatalog()
	pages := memory.NewPageStore()
	library := assets.NewLibrary(sink, catalog, storage.NewLocalSink(sink, t.TempDir(), "/media"))

	retryParam := retry.NewRetryParam(
		time.Millisecond,
		time.Millisecond,
		42,
		1,
		timeutil.NewBackoffParam(time.Millisecond, 2.0, 10*time.Millisecond),
	)
	f := fetcher.NewHttpFetcher(sink, nil, retryParam, nil)

	imp, err := importer.NewImporter(
		sink,
		sink,
		f,
		sanitizer.NewHTMLSanitizer(sink, cleanHTML),
		library,
		pages,
		page.DefaultRegistry(),
		importer.NewImportParam(
			"webstories-test/1.0",
			0,
			page.DefaultStoryPageType,
			4,
			assets.NewResolveParam("webstories-test/1.0", 0, hashutil.HashAlgoSHA1),
		),
	)
	require.NoError(t, err)
	return importFixture{sink: sink, catalog: catalog, pages: pages, importer: imp}
}
