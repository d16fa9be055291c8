package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rohmanhakim/webstory-importer/internal/assets"
	"github.com/rohmanhakim/webstory-importer/internal/config"
	"github.com/rohmanhakim/webstory-importer/internal/external"
	"github.com/rohmanhakim/webstory-importer/internal/fetcher"
	"github.com/rohmanhakim/webstory-importer/internal/httpapi"
	"github.com/rohmanhakim/webstory-importer/internal/importer"
	"github.com/rohmanhakim/webstory-importer/internal/logging"
	"github.com/rohmanhakim/webstory-importer/internal/markup"
	"github.com/rohmanhakim/webstory-importer/internal/mdconvert"
	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/internal/metrics"
	"github.com/rohmanhakim/webstory-importer/internal/page"
	"github.com/rohmanhakim/webstory-importer/internal/render"
	"github.com/rohmanhakim/webstory-importer/internal/sanitizer"
	"github.com/rohmanhakim/webstory-importer/internal/storage"
	"github.com/rohmanhakim/webstory-importer/internal/store/memory"
	"github.com/rohmanhakim/webstory-importer/internal/store/redisstore"
	"github.com/rohmanhakim/webstory-importer/internal/store/sqlstore"
	"github.com/rohmanhakim/webstory-importer/internal/story"
	"github.com/rohmanhakim/webstory-importer/pkg/limiter"
	"github.com/rohmanhakim/webstory-importer/pkg/retry"
	"github.com/rohmanhakim/webstory-importer/pkg/timeutil"
	"github.com/rs/zerolog"
)

// app holds the wired components for one command run.
type app struct {
	cfg       config.Config
	logger    zerolog.Logger
	pages     page.Store
	assets    *assets.Library
	importer  *importer.Importer
	renderer  *render.Renderer
	converter *mdconvert.StoryConversionRule
	external  *external.Cache

	closers []io.Closer
}

func newApp(ctx context.Context, cfg config.Config, logOut io.Writer) (*app, error) {
	logger := logging.NewLoggerTo(logOut, cfg.LogLevel(), cfg.LogFormat())
	metrics.MustRegister(prometheus.DefaultRegisterer)
	recorder := metadata.NewRecorder(logger)

	a := &app{cfg: cfg, logger: logger}

	backoff := timeutil.NewBackoffParam(cfg.BackoffInitialDuration(), cfg.BackoffMultiplier(), cfg.BackoffMaxDuration())
	rateLimiter := limiter.NewConcurrentRateLimiter()
	rateLimiter.SetBaseDelay(cfg.BaseDelay())
	rateLimiter.SetJitter(cfg.Jitter())
	rateLimiter.SetRandomSeed(cfg.RandomSeed())
	rateLimiter.SetBackoffParam(backoff)
	httpFetcher := fetcher.NewHttpFetcher(
		recorder,
		&http.Client{Timeout: cfg.Timeout()},
		retry.NewRetryParam(
			cfg.BaseDelay(),
			cfg.Jitter(),
			cfg.RandomSeed(),
			cfg.MaxAttempt(),
			backoff,
		),
		rateLimiter,
	)

	blobs, err := newBlobSink(ctx, cfg, recorder)
	if err != nil {
		return nil, err
	}

	var (
		catalog      assets.Catalog
		externalRepo external.Repository
	)
	switch cfg.DatabaseDriver() {
	case config.DatabaseMemory:
		catalog = memory.NewAssetCatalog()
		a.pages = memory.NewPageStore()
		externalRepo = memory.NewExternalStoryRepository()
	default:
		db, err := sqlstore.Open(ctx, sqlstore.Dialect(cfg.DatabaseDriver()), cfg.DatabaseDSN())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		catalog = sqlstore.NewAssetCatalog(db)
		a.pages = sqlstore.NewPageStore(db)
		externalRepo = sqlstore.NewExternalStoryRepository(db)
	}

	if cfg.RedisURL() != "" {
		client, err := redisstore.NewClient(cfg.RedisURL())
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, client)
		externalRepo = redisstore.NewExternalStoryRepository(client, "webstories:", cfg.ExternalCacheTTL())
	}

	a.assets = assets.NewLibrary(recorder, catalog, blobs)
	expander := markup.NewExpander(a.assets, recorder)
	a.renderer = render.NewRenderer(recorder, expander, a.assets, cfg.SiteBaseURL())
	a.converter = mdconvert.NewRule(recorder, expander)
	a.external = external.NewCache(
		recorder,
		externalRepo,
		httpFetcher,
		story.NewParser(recorder),
		external.NewCacheParam(cfg.UserAgent(), cfg.MaxDocumentSize()),
	)

	a.importer, err = importer.NewImporter(
		recorder,
		recorder,
		httpFetcher,
		sanitizer.NewHTMLSanitizer(recorder, cfg.CleanHTML()),
		a.assets,
		a.pages,
		page.DefaultRegistry(),
		importer.NewImportParam(
			cfg.UserAgent(),
			cfg.MaxDocumentSize(),
			cfg.ImportPageType(),
			cfg.FetchConcurrency(),
			assets.NewResolveParam(cfg.UserAgent(), cfg.MaxAssetSize(), cfg.HashAlgo()),
		),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func newBlobSink(ctx context.Context, cfg config.Config, sink metadata.MetadataSink) (storage.Sink, error) {
	if cfg.BlobBackend() != config.BlobS3 {
		return storage.NewLocalSink(sink, cfg.MediaDir(), cfg.MediaBaseURL()), nil
	}
	s3Cfg := storage.S3Config{
		Bucket:   cfg.S3Bucket(),
		Region:   cfg.S3Region(),
		Endpoint: cfg.S3Endpoint(),
		Prefix:   cfg.S3Prefix(),
	}
	client, err := storage.NewS3Client(ctx, s3Cfg)
	if err != nil {
		return nil, fmt.Errorf("s3 blob backend: %w", err)
	}
	return storage.NewS3Sink(sink, client, s3Cfg), nil
}

func (a *app) server() *httpapi.Server {
	opts := []httpapi.Option{
		httpapi.WithLogger(a.logger),
		httpapi.WithMarkdown(a.converter),
	}
	if a.cfg.BlobBackend() == config.BlobLocal {
		opts = append(opts, httpapi.WithMedia(a.cfg.MediaDir(), a.cfg.MediaBaseURL()))
	}
	return httpapi.NewServer(a.importer, a.pages, a.renderer, a.external, opts...)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}
