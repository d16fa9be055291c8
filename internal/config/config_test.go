package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/config"
	"github.com/rohmanhakim/webstory-importer/internal/page"
	"github.com/rohmanhakim/webstory-importer/pkg/hashutil"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestWithDefault(t *testing.T) {
	cfg, err := config.WithDefault().Build()
	if err != nil {
		t.Fatalf("should not have any error, got %v", err)
	}

	if !cfg.CleanHTML() {
		t.Errorf("expected CleanHTML true by default")
	}
	if cfg.ImportPageType() != page.DefaultStoryPageType {
		t.Errorf("expected ImportPageType %q, got %q", page.DefaultStoryPageType, cfg.ImportPageType())
	}
	if cfg.FetchConcurrency() != 4 {
		t.Errorf("expected FetchConcurrency 4, got %d", cfg.FetchConcurrency())
	}
	if cfg.HashAlgo() != hashutil.HashAlgoSHA256 {
		t.Errorf("expected HashAlgo sha256, got %s", cfg.HashAlgo())
	}
	if cfg.Timeout() != 10*time.Second {
		t.Errorf("expected Timeout 10s, got %v", cfg.Timeout())
	}
	if cfg.MaxAttempt() != 3 {
		t.Errorf("expected MaxAttempt 3, got %d", cfg.MaxAttempt())
	}
	if cfg.DatabaseDriver() != config.DatabaseSQLite {
		t.Errorf("expected sqlite database, got %s", cfg.DatabaseDriver())
	}
	if cfg.BlobBackend() != config.BlobLocal {
		t.Errorf("expected local blobs, got %s", cfg.BlobBackend())
	}
	if cfg.ExternalCacheTTL() != 0 {
		t.Errorf("expected external entries to never expire, got %v", cfg.ExternalCacheTTL())
	}
	if cfg.RedisURL() != "" {
		t.Errorf("expected no redis by default, got %q", cfg.RedisURL())
	}
}

func TestWithChain(t *testing.T) {
	cfg, err := config.WithDefault().
		WithCleanHTML(false).
		WithFetchConcurrency(8).
		WithHashAlgo(hashutil.HashAlgoBLAKE3).
		WithUserAgent("test-agent").
		WithDatabase(config.DatabasePostgres, "postgres://localhost/webstories").
		WithS3("bucket", "eu-west-1", "http://localhost:9000", "stories/").
		WithRedisURL("redis://localhost:6379/0").
		WithSiteBaseURL("https://www.example.com").
		Build()
	if err != nil {
		t.Fatalf("should not have any error, got %v", err)
	}

	if cfg.CleanHTML() {
		t.Errorf("expected CleanHTML false")
	}
	if cfg.FetchConcurrency() != 8 {
		t.Errorf("expected FetchConcurrency 8, got %d", cfg.FetchConcurrency())
	}
	if cfg.HashAlgo() != hashutil.HashAlgoBLAKE3 {
		t.Errorf("expected blake3, got %s", cfg.HashAlgo())
	}
	if cfg.UserAgent() != "test-agent" {
		t.Errorf("expected test-agent, got %s", cfg.UserAgent())
	}
	if cfg.DatabaseDriver() != config.DatabasePostgres || cfg.DatabaseDSN() != "postgres://localhost/webstories" {
		t.Errorf("unexpected database %s %s", cfg.DatabaseDriver(), cfg.DatabaseDSN())
	}
	if cfg.BlobBackend() != config.BlobS3 || cfg.S3Bucket() != "bucket" || cfg.S3Region() != "eu-west-1" {
		t.Errorf("unexpected s3 settings %s %s %s", cfg.BlobBackend(), cfg.S3Bucket(), cfg.S3Region())
	}
	if cfg.S3Endpoint() != "http://localhost:9000" || cfg.S3Prefix() != "stories/" {
		t.Errorf("unexpected s3 endpoint %s prefix %s", cfg.S3Endpoint(), cfg.S3Prefix())
	}
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name    string
		builder *config.Config
	}{
		{"unknown hash", config.WithDefault().WithHashAlgo("md5")},
		{"zero concurrency", config.WithDefault().WithFetchConcurrency(0)},
		{"zero attempts", config.WithDefault().WithMaxAttempt(0)},
		{"empty page type", config.WithDefault().WithImportPageType("")},
		{"unknown database", config.WithDefault().WithDatabase("oracle", "x")},
		{"sqlite without dsn", config.WithDefault().WithDatabase(config.DatabaseSQLite, "")},
		{"s3 without bucket", config.WithDefault().WithS3("", "us-east-1", "", "")},
		{"empty media dir", config.WithDefault().WithMediaDir("")},
		{"relative site url", config.WithDefault().WithSiteBaseURL("/stories")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if _, err := config.WithDefault().WithDatabase(config.DatabaseMemory, "").Build(); err != nil {
		t.Errorf("memory database needs no dsn, got %v", err)
	}
}

func TestWithConfigFile(t *testing.T) {
	path := writeConfigFile(t, `{
		"cleanHtml": false,
		"fetchConcurrency": 2,
		"hashAlgo": "sha1",
		"timeout": 5000000000,
		"databaseDriver": "memory",
		"redisUrl": "redis://cache:6379/1",
		"externalCacheTtl": 3600000000000
	}`)

	builder, err := config.WithConfigFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := builder.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.CleanHTML() {
		t.Errorf("expected CleanHTML false from file")
	}
	if cfg.FetchConcurrency() != 2 {
		t.Errorf("expected FetchConcurrency 2, got %d", cfg.FetchConcurrency())
	}
	if cfg.HashAlgo() != hashutil.HashAlgoSHA1 {
		t.Errorf("expected sha1, got %s", cfg.HashAlgo())
	}
	if cfg.Timeout() != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Timeout())
	}
	if cfg.ExternalCacheTTL() != time.Hour {
		t.Errorf("expected 1h ttl, got %v", cfg.ExternalCacheTTL())
	}
	// untouched fields keep defaults
	if cfg.MaxAttempt() != 3 {
		t.Errorf("expected default MaxAttempt 3, got %d", cfg.MaxAttempt())
	}
}

func TestWithConfigFile_Errors(t *testing.T) {
	_, err := config.WithConfigFile(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, config.ErrFileDoesNotExist) {
		t.Errorf("expected ErrFileDoesNotExist, got %v", err)
	}

	_, err = config.WithConfigFile(writeConfigFile(t, `{not json`))
	if !errors.Is(err, config.ErrConfigParsingFail) {
		t.Errorf("expected ErrConfigParsingFail, got %v", err)
	}
}

func TestWithEnv(t *testing.T) {
	t.Setenv("WEBSTORIES_CLEAN_HTML", "false")
	t.Setenv("WEBSTORIES_USER_AGENT", "env-agent")
	t.Setenv("WEBSTORIES_TIMEOUT", "3s")
	t.Setenv("WEBSTORIES_MAX_ATTEMPT", "5")
	t.Setenv("WEBSTORIES_DATABASE_DRIVER", "postgres")
	t.Setenv("WEBSTORIES_DATABASE_DSN", "postgres://db/webstories")

	path := writeConfigFile(t, `{"userAgent": "file-agent", "fetchConcurrency": 6}`)
	builder, err := config.WithConfigFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	builder, err = builder.WithEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := builder.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.CleanHTML() {
		t.Errorf("expected env to disable CleanHTML")
	}
	if cfg.UserAgent() != "env-agent" {
		t.Errorf("expected env to win over file, got %s", cfg.UserAgent())
	}
	if cfg.FetchConcurrency() != 6 {
		t.Errorf("expected file value 6 to survive, got %d", cfg.FetchConcurrency())
	}
	if cfg.Timeout() != 3*time.Second {
		t.Errorf("expected 3s, got %v", cfg.Timeout())
	}
	if cfg.MaxAttempt() != 5 {
		t.Errorf("expected 5 attempts, got %d", cfg.MaxAttempt())
	}
	if cfg.DatabaseDriver() != config.DatabasePostgres {
		t.Errorf("expected postgres, got %s", cfg.DatabaseDriver())
	}
}

func TestWithEnv_Invalid(t *testing.T) {
	t.Setenv("WEBSTORIES_MAX_ATTEMPT", "many")

	_, err := config.WithDefault().WithEnv()
	if !errors.Is(err, config.ErrEnvParsingFail) {
		t.Errorf("expected ErrEnvParsingFail, got %v", err)
	}
}
