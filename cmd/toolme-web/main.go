package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/toolme/internal/attachments"
	"github.com/good-yellow-bee/toolme/internal/client"
	"github.com/good-yellow-bee/toolme/internal/i18n"
	"github.com/good-yellow-bee/toolme/internal/log"
	"github.com/good-yellow-bee/toolme/internal/metrics"
	"github.com/good-yellow-bee/toolme/internal/security"
	"github.com/good-yellow-bee/toolme/internal/web"
	"github.com/good-yellow-bee/toolme/internal/web/session"
	"github.com/good-yellow-bee/toolme/pkg/config"
)

var (
	configFile string
	httpAddr   string
	apiURL     string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "toolme-web",
	Short: "ToolMe web frontend",
	Long: `toolme-web serves the ToolMe marketplace pages and talks to the
marketplace API on behalf of each browser session.`,
	SilenceUsage: true,
	RunE:         runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := config.GetBuildInfo()
		fmt.Printf("toolme-web %s\n", info.Version)
		fmt.Printf("  commit: %s\n", info.Commit)
		fmt.Printf("  built:  %s\n", info.BuildTime)
		fmt.Printf("  go:     %s %s/%s\n", info.GoVersion, info.OS, info.Arch)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: ./toolme.yaml when present)")
	rootCmd.Flags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address (overrides http.address)")
	rootCmd.Flags().StringVar(&apiURL, "api", "", "backend base URL (overrides api.base_url)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every request")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.HTTP.Address = httpAddr
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
	}
	cfg.Verbose = verbose

	logger := log.New(cfg.Environment)
	metrics.SetBuildInfo(config.Version, config.Commit, config.BuildTime)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions, err := openSessions(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer sessions.Close()

	var files *attachments.Store
	if cfg.Attachments.Enabled {
		files, err = attachments.New(cfg.attachmentsConfig())
		if err != nil {
			return fmt.Errorf("init attachments: %w", err)
		}
		if err := files.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("prepare attachments bucket: %w", err)
		}
		logger.Info().Str("bucket", cfg.Attachments.Bucket).Msg("submission attachments enabled")
	}

	csrfKey, generated, err := cfg.CSRFKey()
	if err != nil {
		return err
	}
	if generated {
		logger.Warn().Msg("csrf.key not set, using a random key; open forms break on restart")
	}

	catalog, err := i18n.New()
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	transport, err := security.BackendTransport(security.BackendTLSConfig{CAFile: cfg.API.CAFile})
	if err != nil {
		return fmt.Errorf("backend tls: %w", err)
	}
	backendHTTP := &http.Client{Timeout: cfg.API.Timeout, Transport: transport}

	webCfg := web.Config{
		CSRFKey:        csrfKey,
		SecureCookies:  cfg.Cookies.Secure,
		VerboseLogging: cfg.Verbose,
		AuthPerMinute:  cfg.RateLimit.AuthPerMinute,
		PageSize:       cfg.Pagination.PageSize,
		NewClient: func(cred *client.Credential) *client.Client {
			return client.New(cfg.API.BaseURL,
				client.WithCredential(cred),
				client.WithHTTPClient(backendHTTP),
				client.WithObserver(metrics.ObserveBackend),
				client.WithUserAgent(config.UserAgent("toolme-web")),
			)
		},
		Logger: logger,
	}
	// A nil *attachments.Store must not become a non-nil interface.
	if files != nil {
		webCfg.Attachments = files
	}

	srv, err := web.NewServer(webCfg, sessions, catalog)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	defer srv.Close()

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
	serveTLS := cfg.serverTLS().Enabled()
	if serveTLS {
		if httpServer.TLSConfig, err = security.LoadServerTLS(cfg.serverTLS()); err != nil {
			return fmt.Errorf("http tls: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("version", config.Version).
			Str("addr", cfg.HTTP.Address).
			Str("api", cfg.API.BaseURL).
			Bool("tls", serveTLS).
			Msg("toolme-web listening")
		var err error
		if serveTLS {
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	var metricsServer *metrics.Server
	if cfg.Metrics.Address != "" {
		metricsServer = metrics.NewServer(cfg.Metrics.Address, logger)
		g.Go(metricsServer.Start)
	}

	if cfg.I18n.Dir != "" {
		g.Go(func() error {
			if err := catalog.Watch(gctx, cfg.I18n.Dir, logger); err != nil {
				// Overrides are optional; the embedded catalogs keep working.
				logger.Warn().Err(err).Str("dir", cfg.I18n.Dir).Msg("translation overrides disabled")
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown")
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("metrics shutdown")
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// openSessions builds the configured browser session store.
func openSessions(ctx context.Context, cfg *Config, logger zerolog.Logger) (session.Store, error) {
	switch cfg.Session.Backend {
	case "redis":
		rdb, err := session.NewRedisClient(ctx, session.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("sessions stored in redis")
		return session.NewRedisStore(rdb, cfg.Session.TTL), nil
	default:
		logger.Info().Msg("sessions stored in memory")
		return session.NewMemoryStore(cfg.Session.TTL), nil
	}
}
