package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/build"
	"github.com/rohmanhakim/webstory-importer/internal/config"
	"github.com/rohmanhakim/webstory-importer/internal/importer"
	"github.com/rohmanhakim/webstory-importer/internal/page"
	"github.com/rohmanhakim/webstory-importer/internal/render"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
	"github.com/rohmanhakim/webstory-importer/pkg/hashutil"
	"github.com/spf13/cobra"
)

var (
	cfgFile          string
	cleanHTML        bool
	userAgent        string
	timeout          time.Duration
	maxAttempt       int
	fetchConcurrency int
	hashAlgo         string
	databaseDriver   string
	databaseDSN      string
	mediaDir         string
	mediaBaseURL     string
	s3Bucket         string
	s3Region         string
	s3Endpoint       string
	s3Prefix         string
	redisURL         string
	siteBaseURL      string
	logLevel         string
	logFormat        string

	sourceURL string
	parentID  int64
	pageID    int64
	outFile   string
	withLinks bool
	storyURL  string
	asEmbed   bool
	httpAddr  string
)

// errSilent marks failures whose message was already printed.
var errSilent = errors.New("command failed")

// NewRootCmd builds the webstories command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "webstories",
		Short: "Import AMP web stories into a page tree.",
		Long: `webstories fetches AMP web stories, stores their pages with local copies
of every image and video they reference, and renders them back as standalone
AMP documents, Markdown, or embeddable story cards.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Cobra supports persistent flags, which, if defined here,
	// will be available to all subcommands.
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config-file", "", "config file path (e.g., /home/myuser/config.json)")
	flags.BoolVar(&cleanHTML, "clean-html", true, "sanitize story markup before storing it")
	flags.StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	flags.DurationVar(&timeout, "timeout", 0, "timeout for HTTP requests")
	flags.IntVar(&maxAttempt, "max-attempt", 0, "attempts per fetch before giving up")
	flags.IntVar(&fetchConcurrency, "fetch-concurrency", 0, "assets fetched concurrently per story")
	flags.StringVar(&hashAlgo, "hash-algo", "", "asset content hash: sha1, sha256 or blake3")
	flags.StringVar(&databaseDriver, "database-driver", "", "memory, sqlite or postgres")
	flags.StringVar(&databaseDSN, "database-dsn", "", "sqlite file path or postgres URL")
	flags.StringVar(&mediaDir, "media-dir", "", "directory for locally stored assets")
	flags.StringVar(&mediaBaseURL, "media-base-url", "", "URL prefix local assets are served under")
	flags.StringVar(&s3Bucket, "s3-bucket", "", "store assets in this S3 bucket instead of --media-dir")
	flags.StringVar(&s3Region, "s3-region", "us-east-1", "S3 region")
	flags.StringVar(&s3Endpoint, "s3-endpoint", "", "S3-compatible endpoint, e.g. MinIO")
	flags.StringVar(&s3Prefix, "s3-prefix", "", "key prefix inside the bucket")
	flags.StringVar(&redisURL, "redis-url", "", "keep external stories in redis (redis://host:6379/0)")
	flags.StringVar(&siteBaseURL, "site-base-url", "", "absolute URL prefix for rendered page links")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&logFormat, "log-format", "", "json or console")

	rootCmd.AddCommand(
		newImportCmd(),
		newRenderCmd(),
		newExportCmd(),
		newExternalCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

func newImportCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "import",
		Short: "Import a web story as a child of a page.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				result, err := a.importer.Import(ctx, importer.ImportRequest{
					SourceURL: sourceURL,
					ParentID:  parentID,
				})
				if err != nil {
					return userError(cmd, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported page %d (%s) under parent %d\n",
					result.Page.ID, result.Page.Slug, result.Page.ParentID)
				return nil
			})
		},
	}
	c.Flags().StringVar(&sourceURL, "source-url", "", "URL of the story to import")
	c.Flags().Int64Var(&parentID, "parent", 1, "id of the page the story is created under")
	_ = c.MarkFlagRequired("source-url")
	return c
}

func newRenderCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "render",
		Short: "Render a stored story as a standalone AMP document.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				p, err := loadPage(ctx, a, pageID)
				if err != nil {
					return err
				}
				out, renderErr := a.renderer.RenderStory(ctx, p)
				if renderErr != nil {
					return renderErr
				}
				return writeOutput(cmd, []byte(out))
			})
		},
	}
	c.Flags().Int64Var(&pageID, "page-id", 0, "id of the stored story page")
	c.Flags().StringVar(&outFile, "out", "", "write to this file instead of stdout")
	_ = c.MarkFlagRequired("page-id")
	return c
}

func newExportCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "export",
		Short: "Export a stored story as Markdown.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				p, err := loadPage(ctx, a, pageID)
				if err != nil {
					return err
				}
				result, convErr := a.converter.ConvertStory(ctx, p)
				if convErr != nil {
					return convErr
				}
				if err := writeOutput(cmd, result.GetMarkdownContent()); err != nil {
					return err
				}
				if withLinks {
					for _, ref := range result.GetLinkRefs() {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s\t%s\t%s\n", ref.GetPageID(), ref.GetKind(), ref.GetRaw())
					}
				}
				return nil
			})
		},
	}
	c.Flags().Int64Var(&pageID, "page-id", 0, "id of the stored story page")
	c.Flags().StringVar(&outFile, "out", "", "write to this file instead of stdout")
	c.Flags().BoolVar(&withLinks, "links", false, "list link, image and video references on stderr")
	_ = c.MarkFlagRequired("page-id")
	return c
}

func newExternalCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "external",
		Short: "Look up a story hosted elsewhere, fetching it on first use.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				entry, err := a.external.GetOrFetch(ctx, storyURL)
				if err != nil {
					return userError(cmd, err)
				}
				if asEmbed {
					out, renderErr := render.RenderEmbed(render.ExternalCard(entry))
					if renderErr != nil {
						return renderErr
					}
					fmt.Fprintln(cmd.OutOrStdout(), out)
					return nil
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entry)
			})
		},
	}
	c.Flags().StringVar(&storyURL, "url", "", "URL of the external story")
	c.Flags().BoolVar(&asEmbed, "embed", false, "print an amp-story-player embed instead of JSON")
	_ = c.MarkFlagRequired("url")
	return c
}

func newServeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Serve the import endpoint, rendered pages and metrics over HTTP.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				server := a.server()
				errCh := make(chan error, 1)
				go func() {
					errCh <- server.Start(a.cfg.HTTPAddr())
				}()

				select {
				case err := <-errCh:
					return err
				case <-ctx.Done():
				}
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				a.logger.Info().Msg("shutting down")
				return server.Shutdown(shutdownCtx)
			})
		},
	}
	c.Flags().StringVar(&httpAddr, "addr", "", "listen address (default :8080)")
	return c
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "webstories %s (built %s)\n", build.FullVersion(), build.BuildTime)
		},
	}
}

func withApp(cmd *cobra.Command, run func(ctx context.Context, a *app) error) error {
	cfg, err := InitConfigWithError(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()
	return run(cmd.Context(), a)
}

func loadPage(ctx context.Context, a *app, id int64) (*page.StoryPage, error) {
	p, found, err := a.pages.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("page %d not found", id)
	}
	return p, nil
}

// userError prints the user-facing message of err, if it has one.
func userError(cmd *cobra.Command, err error) error {
	if msg, ok := failure.UserMessage(err); ok {
		fmt.Fprintln(cmd.ErrOrStderr(), msg)
		return errSilent
	}
	return err
}

func writeOutput(cmd *cobra.Command, data []byte) error {
	var w io.Writer = cmd.OutOrStdout()
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	_, err := w.Write(data)
	return err
}

// InitConfigWithError layers defaults, the config file, WEBSTORIES_*
// environment variables and explicitly set flags, in that order.
func InitConfigWithError(cmd *cobra.Command) (config.Config, error) {
	configBuilder := config.WithDefault()
	if cfgFile != "" {
		fromFile, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return config.Config{}, fmt.Errorf("error initializing config from file: %w", err)
		}
		configBuilder = fromFile
	}

	configBuilder, err := configBuilder.WithEnv()
	if err != nil {
		return config.Config{}, err
	}

	// Override with CLI flag values where provided
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("clean-html") {
		configBuilder = configBuilder.WithCleanHTML(cleanHTML)
	}
	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}
	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}
	if maxAttempt > 0 {
		configBuilder = configBuilder.WithMaxAttempt(maxAttempt)
	}
	if fetchConcurrency > 0 {
		configBuilder = configBuilder.WithFetchConcurrency(fetchConcurrency)
	}
	if hashAlgo != "" {
		configBuilder = configBuilder.WithHashAlgo(hashutil.HashAlgo(hashAlgo))
	}
	if databaseDriver != "" || databaseDSN != "" {
		driver, dsn := configBuilder.DatabaseDriver(), configBuilder.DatabaseDSN()
		if databaseDriver != "" {
			driver = databaseDriver
		}
		if databaseDSN != "" {
			dsn = databaseDSN
		}
		configBuilder = configBuilder.WithDatabase(driver, dsn)
	}
	if mediaDir != "" {
		configBuilder = configBuilder.WithMediaDir(mediaDir)
	}
	if mediaBaseURL != "" {
		configBuilder = configBuilder.WithMediaBaseURL(mediaBaseURL)
	}
	if s3Bucket != "" {
		configBuilder = configBuilder.WithS3(s3Bucket, s3Region, s3Endpoint, s3Prefix)
	}
	if redisURL != "" {
		configBuilder = configBuilder.WithRedisURL(redisURL)
	}
	if siteBaseURL != "" {
		configBuilder = configBuilder.WithSiteBaseURL(siteBaseURL)
	}
	if httpAddr != "" {
		configBuilder = configBuilder.WithHTTPAddr(httpAddr)
	}
	if logLevel != "" {
		configBuilder = configBuilder.WithLogLevel(logLevel)
	}
	if logFormat != "" {
		configBuilder = configBuilder.WithLogFormat(logFormat)
	}

	return configBuilder.Build()
}

// ResetFlags restores every flag variable to its zero value.
func ResetFlags() {
	cfgFile = ""
	cleanHTML = true
	userAgent = ""
	timeout = 0
	maxAttempt = 0
	fetchConcurrency = 0
	hashAlgo = ""
	databaseDriver = ""
	databaseDSN = ""
	mediaDir = ""
	mediaBaseURL = ""
	s3Bucket = ""
	s3Region = "us-east-1"
	s3Endpoint = ""
	s3Prefix = ""
	redisURL = ""
	siteBaseURL = ""
	logLevel = ""
	logFormat = ""
	sourceURL = ""
	parentID = 0
	pageID = 0
	outFile = ""
	withLinks = false
	storyURL = ""
	asEmbed = false
	httpAddr = ""
}
