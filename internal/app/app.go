package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/ofcrse/site/internal/config"
	"github.com/ofcrse/site/internal/httperr"
	"github.com/ofcrse/site/internal/httpserver"
	"github.com/ofcrse/site/internal/httpserver/deps"
	"github.com/ofcrse/site/internal/httpserver/handlers"
	"github.com/ofcrse/site/internal/httpserver/mw"
	"github.com/ofcrse/site/internal/logger"
	"github.com/ofcrse/site/internal/metrics"
	"github.com/ofcrse/site/internal/redis"
	"github.com/ofcrse/site/internal/shortlink"
	"github.com/ofcrse/site/internal/version"
)

type App struct {
	cfg    *config.Config
	logger logger.Logger
	server *httpserver.Server
}

// New runs the whole startup phase. Any error means the process must not
// start listening.
func New() (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	presenter, err := httperr.Load(cfg.ErrorPagesDir, cfg.Production, loggerClient)
	if err != nil {
		return nil, fmt.Errorf("failed to load error pages: %w", err)
	}

	table, err := loadShortlinks(cfg, loggerClient)
	if err != nil {
		return nil, err
	}

	upstream, err := url.Parse(cfg.GoatCounterURL)
	if err != nil {
		return nil, fmt.Errorf("invalid analytics upstream %q: %w", cfg.GoatCounterURL, err)
	}

	// Dependencies passed to routes.
	d := deps.Deps{
		Logger:     loggerClient,
		Errors:     presenter,
		Shortlinks: table,
		SiteURL:    cfg.SiteURL,
		StartTime:  time.Now(),

		GoatCounter:    upstream,
		CountPrefix:    cfg.CountPrefix,
		ProxyTimeout:   cfg.ProxyTimeout,
		ProxyTransport: handlers.NewProxyTransport(cfg.ProxyTimeout),
		ClientIPHeader: cfg.ClientIPHeader,
		StripHeaders:   cfg.StripHeaders,
		RateLimit: mw.RateLimitConfig{
			Burst:          cfg.CountRateBurst,
			RefillPerMin:   cfg.CountRatePerMin,
			MaxEntries:     cfg.CountRateEntries,
			ClientIPHeader: cfg.ClientIPHeader,
		},

		ContentRoot: cfg.ContentRoot,
	}

	server, err := httpserver.New(cfg, loggerClient, d)
	if err != nil {
		return nil, fmt.Errorf("failed to build http server: %w", err)
	}

	metrics.SetInfo(version.Version, version.Commit)

	return &App{
		cfg:    cfg,
		logger: loggerClient,
		server: server,
	}, nil
}

// loadShortlinks reads the table from redis when SHORTLINKS_DB is set, from
// the shortlinks file otherwise. The redis client only lives for the load.
func loadShortlinks(cfg *config.Config, log logger.Logger) (table shortlink.Table, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RedisConnectTimeout+cfg.RedisPingTimeout)
	defer cancel()

	if cfg.ShortlinksDB == "" {
		return shortlink.LoadTable(ctx, shortlink.NewFileSource(cfg.ShortlinksFile), log)
	}

	log.Info("loading shortlinks from redis", logger.String("key", cfg.ShortlinksKey))
	client, err := redis.New(ctx, redis.ConnectOptions{
		URL:            cfg.ShortlinksDB,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
	}, log)
	if err != nil {
		return shortlink.Table{}, fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer func() {
		err = multierr.Append(err, client.Close())
	}()

	return shortlink.LoadTable(ctx, shortlink.NewRedisSource(client, cfg.ShortlinksKey), log)
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting ofcrse %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("ofcrse %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return multierr.Append(err, a.syncLogger())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var err error
	if stopErr := a.server.Stop(shutdownCtx); stopErr != nil {
		err = fmt.Errorf("failed to stop server: %w", stopErr)
	} else {
		a.logger.Info("✅ ofcrse stopped cleanly")
	}

	return multierr.Append(err, a.syncLogger())
}

// syncLogger flushes buffered entries. Syncing a terminal returns EINVAL, which is ignored.
func (a *App) syncLogger() error {
	if err := a.logger.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTTY) {
		return fmt.Errorf("failed to sync logger: %w", err)
	}
	return nil
}
