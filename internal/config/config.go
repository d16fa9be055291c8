package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rohmanhakim/webstory-importer/internal/build"
	"github.com/rohmanhakim/webstory-importer/internal/logging"
	"github.com/rohmanhakim/webstory-importer/internal/page"
	"github.com/rohmanhakim/webstory-importer/pkg/hashutil"
)

// EnvPrefix namespaces every environment variable, e.g. WEBSTORIES_USER_AGENT.
const EnvPrefix = "WEBSTORIES"

const (
	DatabaseMemory   = "memory"
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"

	BlobLocal = "local"
	BlobS3    = "s3"
)

type Config struct {
	//===============
	// Import
	//===============
	// Whether story page markup is sanitized before it is stored
	cleanHTML bool
	// Page type new stories are created as
	importPageType string
	// Number of assets fetched concurrently while rewriting one story
	fetchConcurrency int
	// Content hash used to deduplicate assets
	hashAlgo hashutil.HashAlgo

	//===============
	// Fetch
	//===============
	// Maximum time of a single fetch request
	timeout time.Duration
	// User agent that will be used in the request header. In raw string
	userAgent string
	// Upper bound on a story document body
	maxDocumentSize int64
	// Upper bound on an image or media body
	maxAssetSize int64

	//===============
	// Politeness
	//===============
	// Minimum, fixed waiting time you enforce between two HTTP requests to the same host.
	baseDelay time.Duration
	// Randomized variation added on top of the base delay.
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64
	// maximum attempt during retry
	maxAttempt int
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration

	//===============
	// Storage
	//===============
	// memory, sqlite or postgres
	databaseDriver string
	// sqlite file path or postgres URL
	databaseDSN string
	// local or s3
	blobBackend string
	// Root directory for locally stored assets
	mediaDir string
	// Public URL prefix the media directory is served under
	mediaBaseURL string
	s3Bucket     string
	s3Region     string
	s3Endpoint   string
	s3Prefix     string
	// redis:// URL. Empty keeps external stories in the database
	redisURL string
	// Lifetime of external story entries in redis; 0 keeps them forever
	externalCacheTTL time.Duration

	//===============
	// Serving
	//===============
	// Absolute URL prefix for rendered page links
	siteBaseURL string
	httpAddr    string
	logLevel    string
	logFormat   string
}

type configDTO struct {
	CleanHTML              *bool         `json:"cleanHtml,omitempty"`
	ImportPageType         string        `json:"importPageType,omitempty"`
	FetchConcurrency       int           `json:"fetchConcurrency,omitempty"`
	HashAlgo               string        `json:"hashAlgo,omitempty"`
	Timeout                time.Duration `json:"timeout,omitempty"`
	UserAgent              string        `json:"userAgent,omitempty"`
	MaxDocumentSize        int64         `json:"maxDocumentSize,omitempty"`
	MaxAssetSize           int64         `json:"maxAssetSize,omitempty"`
	BaseDelay              time.Duration `json:"baseDelay,omitempty"`
	Jitter                 time.Duration `json:"jitter,omitempty"`
	RandomSeed             int64         `json:"randomSeed,omitempty"`
	MaxAttempt             int           `json:"maxAttempt,omitempty"`
	BackoffInitialDuration time.Duration `json:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64       `json:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration `json:"backoffMaxDuration,omitempty"`
	DatabaseDriver         string        `json:"databaseDriver,omitempty"`
	DatabaseDSN            string        `json:"databaseDsn,omitempty"`
	BlobBackend            string        `json:"blobBackend,omitempty"`
	MediaDir               string        `json:"mediaDir,omitempty"`
	MediaBaseURL           string        `json:"mediaBaseUrl,omitempty"`
	S3Bucket               string        `json:"s3Bucket,omitempty"`
	S3Region               string        `json:"s3Region,omitempty"`
	S3Endpoint             string        `json:"s3Endpoint,omitempty"`
	S3Prefix               string        `json:"s3Prefix,omitempty"`
	RedisURL               string        `json:"redisUrl,omitempty"`
	ExternalCacheTTL       time.Duration `json:"externalCacheTtl,omitempty"`
	SiteBaseURL            string        `json:"siteBaseUrl,omitempty"`
	HTTPAddr               string        `json:"httpAddr,omitempty"`
	LogLevel               string        `json:"logLevel,omitempty"`
	LogFormat              string        `json:"logFormat,omitempty"`
}

// envDTO mirrors configDTO for the environment overlay. Durations use Go
// syntax there ("10s").
type envDTO struct {
	CleanHTML              *bool         `envconfig:"CLEAN_HTML"`
	ImportPageType         string        `envconfig:"IMPORT_PAGE_TYPE"`
	FetchConcurrency       int           `envconfig:"FETCH_CONCURRENCY"`
	HashAlgo               string        `envconfig:"HASH_ALGO"`
	Timeout                time.Duration `envconfig:"TIMEOUT"`
	UserAgent              string        `envconfig:"USER_AGENT"`
	MaxDocumentSize        int64         `envconfig:"MAX_DOCUMENT_SIZE"`
	MaxAssetSize           int64         `envconfig:"MAX_ASSET_SIZE"`
	BaseDelay              time.Duration `envconfig:"BASE_DELAY"`
	Jitter                 time.Duration `envconfig:"JITTER"`
	RandomSeed             int64         `envconfig:"RANDOM_SEED"`
	MaxAttempt             int           `envconfig:"MAX_ATTEMPT"`
	BackoffInitialDuration time.Duration `envconfig:"BACKOFF_INITIAL"`
	BackoffMultiplier      float64       `envconfig:"BACKOFF_MULTIPLIER"`
	BackoffMaxDuration     time.Duration `envconfig:"BACKOFF_MAX"`
	DatabaseDriver         string        `envconfig:"DATABASE_DRIVER"`
	DatabaseDSN            string        `envconfig:"DATABASE_DSN"`
	BlobBackend            string        `envconfig:"BLOB_BACKEND"`
	MediaDir               string        `envconfig:"MEDIA_DIR"`
	MediaBaseURL           string        `envconfig:"MEDIA_BASE_URL"`
	S3Bucket               string        `envconfig:"S3_BUCKET"`
	S3Region               string        `envconfig:"S3_REGION"`
	S3Endpoint             string        `envconfig:"S3_ENDPOINT"`
	S3Prefix               string        `envconfig:"S3_PREFIX"`
	RedisURL               string        `envconfig:"REDIS_URL"`
	ExternalCacheTTL       time.Duration `envconfig:"EXTERNAL_CACHE_TTL"`
	SiteBaseURL            string        `envconfig:"SITE_BASE_URL"`
	HTTPAddr               string        `envconfig:"HTTP_ADDR"`
	LogLevel               string        `envconfig:"LOG_LEVEL"`
	LogFormat              string        `envconfig:"LOG_FORMAT"`
}

func (dto envDTO) toConfigDTO() configDTO {
	return configDTO(dto)
}

// apply overrides c with every non-zero field of dto.
func (c *Config) apply(dto configDTO) *Config {
	if dto.CleanHTML != nil {
		c.cleanHTML = *dto.CleanHTML
	}
	if dto.ImportPageType != "" {
		c.importPageType = dto.ImportPageType
	}
	if dto.FetchConcurrency != 0 {
		c.fetchConcurrency = dto.FetchConcurrency
	}
	if dto.HashAlgo != "" {
		c.hashAlgo = hashutil.HashAlgo(dto.HashAlgo)
	}
	if dto.Timeout != 0 {
		c.timeout = dto.Timeout
	}
	if dto.UserAgent != "" {
		c.userAgent = dto.UserAgent
	}
	if dto.MaxDocumentSize != 0 {
		c.maxDocumentSize = dto.MaxDocumentSize
	}
	if dto.MaxAssetSize != 0 {
		c.maxAssetSize = dto.MaxAssetSize
	}
	if dto.BaseDelay != 0 {
		c.baseDelay = dto.BaseDelay
	}
	if dto.Jitter != 0 {
		c.jitter = dto.Jitter
	}
	if dto.RandomSeed != 0 {
		c.randomSeed = dto.RandomSeed
	}
	if dto.MaxAttempt != 0 {
		c.maxAttempt = dto.MaxAttempt
	}
	if dto.BackoffInitialDuration != 0 {
		c.backoffInitialDuration = dto.BackoffInitialDuration
	}
	if dto.BackoffMultiplier != 0 {
		c.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		c.backoffMaxDuration = dto.BackoffMaxDuration
	}
	if dto.DatabaseDriver != "" {
		c.databaseDriver = dto.DatabaseDriver
	}
	if dto.DatabaseDSN != "" {
		c.databaseDSN = dto.DatabaseDSN
	}
	if dto.BlobBackend != "" {
		c.blobBackend = dto.BlobBackend
	}
	if dto.MediaDir != "" {
		c.mediaDir = dto.MediaDir
	}
	if dto.MediaBaseURL != "" {
		c.mediaBaseURL = dto.MediaBaseURL
	}
	if dto.S3Bucket != "" {
		c.s3Bucket = dto.S3Bucket
	}
	if dto.S3Region != "" {
		c.s3Region = dto.S3Region
	}
	if dto.S3Endpoint != "" {
		c.s3Endpoint = dto.S3Endpoint
	}
	if dto.S3Prefix != "" {
		c.s3Prefix = dto.S3Prefix
	}
	if dto.RedisURL != "" {
		c.redisURL = dto.RedisURL
	}
	if dto.ExternalCacheTTL != 0 {
		c.externalCacheTTL = dto.ExternalCacheTTL
	}
	if dto.SiteBaseURL != "" {
		c.siteBaseURL = dto.SiteBaseURL
	}
	if dto.HTTPAddr != "" {
		c.httpAddr = dto.HTTPAddr
	}
	if dto.LogLevel != "" {
		c.logLevel = dto.LogLevel
	}
	if dto.LogFormat != "" {
		c.logFormat = dto.LogFormat
	}
	return c
}

// WithConfigFile returns the defaults overridden by the JSON file at path.
// Durations in the file are nanoseconds.
func WithConfigFile(path string) (*Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	err = json.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return WithDefault().apply(cfgDTO), nil
}

// WithEnv overrides c with WEBSTORIES_* environment variables.
func (c *Config) WithEnv() (*Config, error) {
	var dto envDTO
	if err := envconfig.Process(EnvPrefix, &dto); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEnvParsingFail, err.Error())
	}
	return c.apply(dto.toConfigDTO()), nil
}

// WithDefault creates a new Config with default values for all fields.
func WithDefault() *Config {
	defaultConfig := Config{
		cleanHTML:              true,
		importPageType:         page.DefaultStoryPageType,
		fetchConcurrency:       4,
		hashAlgo:               hashutil.HashAlgoSHA256,
		timeout:                time.Second * 10,
		userAgent:              build.UserAgent(),
		maxDocumentSize:        5 << 20,
		maxAssetSize:           100 << 20,
		baseDelay:              0,
		jitter:                 0,
		randomSeed:             time.Now().UnixNano(),
		maxAttempt:             3,
		backoffInitialDuration: 200 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     5 * time.Second,
		databaseDriver:         DatabaseSQLite,
		databaseDSN:            "webstories.db",
		blobBackend:            BlobLocal,
		mediaDir:               "media",
		mediaBaseURL:           "/media",
		s3Region:               "us-east-1",
		externalCacheTTL:       0,
		siteBaseURL:            "",
		httpAddr:               ":8080",
		logLevel:               "info",
		logFormat:              logging.FormatJSON,
	}
	return &defaultConfig
}

func (c *Config) WithCleanHTML(clean bool) *Config {
	c.cleanHTML = clean
	return c
}

func (c *Config) WithImportPageType(pageType string) *Config {
	c.importPageType = pageType
	return c
}

func (c *Config) WithFetchConcurrency(concurrency int) *Config {
	c.fetchConcurrency = concurrency
	return c
}

func (c *Config) WithHashAlgo(algo hashutil.HashAlgo) *Config {
	c.hashAlgo = algo
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithMaxAssetSize(size int64) *Config {
	c.maxAssetSize = size
	return c
}

func (c *Config) WithBaseDelay(delay time.Duration) *Config {
	c.baseDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithDatabase(driver string, dsn string) *Config {
	c.databaseDriver = driver
	c.databaseDSN = dsn
	return c
}

func (c *Config) WithMediaDir(dir string) *Config {
	c.mediaDir = dir
	return c
}

func (c *Config) WithMediaBaseURL(baseURL string) *Config {
	c.mediaBaseURL = baseURL
	return c
}

func (c *Config) WithS3(bucket string, region string, endpoint string, prefix string) *Config {
	c.blobBackend = BlobS3
	c.s3Bucket = bucket
	c.s3Region = region
	c.s3Endpoint = endpoint
	c.s3Prefix = prefix
	return c
}

func (c *Config) WithRedisURL(redisURL string) *Config {
	c.redisURL = redisURL
	return c
}

func (c *Config) WithSiteBaseURL(baseURL string) *Config {
	c.siteBaseURL = baseURL
	return c
}

func (c *Config) WithHTTPAddr(addr string) *Config {
	c.httpAddr = addr
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.logLevel = level
	return c
}

func (c *Config) WithLogFormat(format string) *Config {
	c.logFormat = format
	return c
}

func (c *Config) Build() (Config, error) {
	if !hashutil.IsSupported(c.hashAlgo) {
		return Config{}, fmt.Errorf("%w: unsupported hashAlgo %q", ErrInvalidConfig, c.hashAlgo)
	}
	if c.fetchConcurrency < 1 {
		return Config{}, fmt.Errorf("%w: fetchConcurrency must be at least 1", ErrInvalidConfig)
	}
	if c.maxAttempt < 1 {
		return Config{}, fmt.Errorf("%w: maxAttempt must be at least 1", ErrInvalidConfig)
	}
	if c.importPageType == "" {
		return Config{}, fmt.Errorf("%w: importPageType cannot be empty", ErrInvalidConfig)
	}

	switch c.databaseDriver {
	case DatabaseMemory:
	case DatabaseSQLite, DatabasePostgres:
		if c.databaseDSN == "" {
			return Config{}, fmt.Errorf("%w: databaseDsn is required for %s", ErrInvalidConfig, c.databaseDriver)
		}
	default:
		return Config{}, fmt.Errorf("%w: unknown databaseDriver %q", ErrInvalidConfig, c.databaseDriver)
	}

	switch c.blobBackend {
	case BlobLocal:
		if c.mediaDir == "" {
			return Config{}, fmt.Errorf("%w: mediaDir cannot be empty", ErrInvalidConfig)
		}
	case BlobS3:
		if c.s3Bucket == "" {
			return Config{}, fmt.Errorf("%w: s3Bucket is required for the s3 blob backend", ErrInvalidConfig)
		}
	default:
		return Config{}, fmt.Errorf("%w: unknown blobBackend %q", ErrInvalidConfig, c.blobBackend)
	}

	if c.siteBaseURL != "" {
		if u, err := url.Parse(c.siteBaseURL); err != nil || !u.IsAbs() {
			return Config{}, fmt.Errorf("%w: siteBaseUrl must be absolute", ErrInvalidConfig)
		}
	}

	return *c, nil
}

func (c Config) CleanHTML() bool {
	return c.cleanHTML
}

func (c Config) ImportPageType() string {
	return c.importPageType
}

func (c Config) FetchConcurrency() int {
	return c.fetchConcurrency
}

func (c Config) HashAlgo() hashutil.HashAlgo {
	return c.hashAlgo
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) MaxDocumentSize() int64 {
	return c.maxDocumentSize
}

func (c Config) MaxAssetSize() int64 {
	return c.maxAssetSize
}

func (c Config) BaseDelay() time.Duration {
	return c.baseDelay
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) DatabaseDriver() string {
	return c.databaseDriver
}

func (c Config) DatabaseDSN() string {
	return c.databaseDSN
}

func (c Config) BlobBackend() string {
	return c.blobBackend
}

func (c Config) MediaDir() string {
	return c.mediaDir
}

func (c Config) MediaBaseURL() string {
	return c.mediaBaseURL
}

func (c Config) S3Bucket() string {
	return c.s3Bucket
}

func (c Config) S3Region() string {
	return c.s3Region
}

func (c Config) S3Endpoint() string {
	return c.s3Endpoint
}

func (c Config) S3Prefix() string {
	return c.s3Prefix
}

func (c Config) RedisURL() string {
	return c.redisURL
}

func (c Config) ExternalCacheTTL() time.Duration {
	return c.externalCacheTTL
}

func (c Config) SiteBaseURL() string {
	return c.siteBaseURL
}

func (c Config) HTTPAddr() string {
	return c.httpAddr
}

func (c Config) LogLevel() string {
	return c.logLevel
}

func (c Config) LogFormat() string {
	return c.logFormat
}
