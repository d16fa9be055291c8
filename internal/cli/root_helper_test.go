package cmd_test

import (
	"bytes"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	cmd "github.com/rohmanhakim/webstory-importer/internal/cli"
	"github.com/stretchr/testify/require"
)

const story = `<!doctype html>
<html amp lang="en">
<head>
	<meta charset="utf-8">
	<title>Wagtail spotting</title>
	<link rel="canonical" href="https://example.com/wagtail-spotting.html">
	<style amp-custom>#cover {background-color: #eee;}</style>
</head>
<body>
	<amp-story standalone title="Wagtail spotting" publisher="Torchbox"
		publisher-logo-src="/torchbox.png"
		poster-portrait-src="/wagtails.png">
		<amp-story-page id="cover">
			<amp-story-grid-layer template="fill">
				<amp-img src="/wagtails.png" alt="Wagtails" width="720" height="1280" layout="responsive"></amp-img>
			</amp-story-grid-layer>
		</amp-story-page>
		<amp-story-page id="page-1">
			<amp-story-grid-layer template="vertical">
				<p>Today we went out wagtail spotting</p>
			</amp-story-grid-layer>
		</amp-story-page>
	</amp-story>
</body>
</html>`

func newStoryServer(t *testing.T) *httptest.Server {
	t.Helper()
	images := map[string][]byte{
		"/torchbox.png": pngBytes(t, 2, 2),
		"/wagtails.png": pngBytes(t, 9, 16),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/story.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(story))
	})
	mux.HandleFunc("/plain.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<!doctype html><html><body><p>not a story</p></body></html>`))
	})
	for name, data := range images {
		mux.HandleFunc(name, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(data)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

// run executes the command tree with args plus flags pointing all storage
// at dir.
func run(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	cmd.ResetFlags()
	root := cmd.NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args,
		"--database-dsn", dir+"/webstories.db",
		"--media-dir", dir+"/media",
		"--max-attempt", "1",
		"--log-level", "error",
	))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
