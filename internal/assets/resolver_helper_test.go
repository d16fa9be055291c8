package assets_test

import (
	"bytes"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/assets"
	"github.com/rohmanhakim/webstory-importer/internal/fetcher"
	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/internal/storage"
	"github.com/rohmanhakim/webstory-importer/internal/store/memory"
	"github.com/rohmanhakim/webstory-importer/pkg/hashutil"
	"github.com/rohmanhakim/webstory-importer/pkg/retry"
	"github.com/rohmanhakim/webstory-importer/pkg/timeutil"
	"github.com/stretchr/testify/require"
)

type artifactEvent struct {
	kind  metadata.ArtifactKind
	path  string
	attrs map[metadata.AttributeKey]string
}

type metadataSinkMock struct {
	mu        sync.Mutex
	errors    []metadata.ErrorCause
	artifacts []artifactEvent
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
	m.mu.Lock()
	defer m.mu.Unlock()
	values := make(map[metadata.AttributeKey]string, len(attrs))
	for _, a := range attrs {
		values[a.Key] = a.Value
	}
	m.artifacts = append(m.artifacts, artifactEvent{kind: kind, path: path, attrs: values})
}

func (m *metadataSinkMock) dedupedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.artifacts {
		if a.attrs[metadata.AttrDeduped] == "true" {
			n++
		}
	}
	return n
}

// pngBytes encodes a solid w x h PNG so dimension detection has real input.
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

// assetServer serves a fixed path table and counts hits per path.
type assetServer struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
	all  atomic.Int32
}

type servedFile struct {
	contentType string
	body        []byte
}

func newAssetServer(t *testing.T, files map[string]servedFile) *assetServer {
	t.Helper()
	s := &assetServer{hits: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()
		s.all.Add(1)

		file, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		// slow enough that concurrent callers overlap
		time.Sleep(10 * time.Millisecond)
		w.Header().Set("Content-Type", file.contentType)
		w.Write(file.body)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *assetServer) hitsFor(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

type resolverFixture struct {
	sink     *metadataSinkMock
	catalog  *memory.AssetCatalog
	library  *assets.Library
	resolver *assets.LocalResolver
}

func newResolverFixture(t *testing.T) resolverFixture {
	t.Helper()
	sink := &metadataSinkMock{}
	catalog := memory.NewAssetCatalog()
	blobs := storage.NewLocalSink(sink, t.TempDir(), "https://media.example.com")
	library := assets.NewLibrary(sink, catalog, blobs)

	retryParam := retry.NewRetryParam(
		time.Millisecond,
		time.Millisecond,
		42,
		1,
		timeutil.NewBackoffParam(time.Millisecond, 2.0, 10*time.Millisecond),
	)
	f := fetcher.NewHttpFetcher(sink, nil, retryParam, nil)
	resolver := assets.NewLocalResolver(
		sink,
		f,
		library,
		assets.NewResolveParam("webstories-test/1.0", 0, hashutil.HashAlgoSHA256),
	)
	return resolverFixture{sink: sink, catalog: catalog, library: library, resolver: resolver}
}
