package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rohmanhakim/webstory-importer/internal/external"
	"github.com/rohmanhakim/webstory-importer/internal/importer"
	"github.com/rohmanhakim/webstory-importer/internal/mdconvert"
	"github.com/rohmanhakim/webstory-importer/internal/metrics"
	"github.com/rohmanhakim/webstory-importer/internal/page"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
	"github.com/rs/zerolog"
)

// StoryImporter runs one import.
type StoryImporter interface {
	Import(ctx context.Context, req importer.ImportRequest) (importer.ImportResult, error)
}

// PageReader loads stored pages.
type PageReader interface {
	Get(ctx context.Context, id int64) (*page.StoryPage, bool, error)
}

// StoryRenderer turns a stored page into a standalone AMP document.
type StoryRenderer interface {
	RenderStory(ctx context.Context, p *page.StoryPage) (string, failure.ClassifiedError)
}

// ExternalStories resolves story URLs hosted elsewhere.
type ExternalStories interface {
	GetOrFetch(ctx context.Context, rawURL string) (external.ExternalStory, failure.ClassifiedError)
}

// Server wraps a chi.Router serving the import form endpoint, rendered
// pages, external story lookups and metrics.
type Server struct {
	Router chi.Router

	log       zerolog.Logger
	importer  StoryImporter
	pages     PageReader
	renderer  StoryRenderer
	converter mdconvert.ConvertRule
	external  ExternalStories
	gatherer  prometheus.Gatherer
	mediaDir  string
	mediaPath string

	srv *http.Server
}

type Option func(*Server)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithMarkdown enables GET /pages/{id}/markdown.
func WithMarkdown(converter mdconvert.ConvertRule) Option {
	return func(s *Server) {
		s.converter = converter
	}
}

// WithGatherer serves gatherer on /metrics instead of the default registry.
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

// WithMedia serves locally stored assets from dir under urlPath.
func WithMedia(dir string, urlPath string) Option {
	return func(s *Server) {
		s.mediaDir = dir
		s.mediaPath = "/" + strings.Trim(urlPath, "/")
	}
}

func NewServer(
	storyImporter StoryImporter,
	pages PageReader,
	renderer StoryRenderer,
	externalStories ExternalStories,
	opts ...Option,
) *Server {
	s := &Server{
		log:      zerolog.Nop(),
		importer: storyImporter,
		pages:    pages,
		renderer: renderer,
		external: externalStories,
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Post("/webstories/import", s.handleImport)
	r.Get("/pages/{id}", s.handlePage)
	if s.converter != nil {
		r.Get("/pages/{id}/markdown", s.handleMarkdown)
	}
	r.Get("/external", s.handleExternal)
	r.Get("/external/embed", s.handleExternalEmbed)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	if s.mediaDir != "" && s.mediaPath != "/" {
		fileServer := http.StripPrefix(s.mediaPath, http.FileServer(http.Dir(s.mediaDir)))
		r.Method(http.MethodGet, s.mediaPath+"/*", fileServer)
	}
	return r
}

// Start runs http.Server until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 15 * time.Second,
		// imports fetch a whole story with its assets
		WriteTimeout: 5 * time.Minute,
	}
	s.log.Info().Str("addr", addr).Msg("http server started")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
