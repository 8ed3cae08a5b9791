package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ofcrse/site/internal/logger"
)

// ConnectOptions defines how the shortlink database is reached at startup.
type ConnectOptions struct {
	URL            string        // redis://[user:pass@]host:port/db
	ConnectTimeout time.Duration // total time allowed for connection attempts
	RetryInterval  time.Duration // initial wait between retries, doubled each attempt
	MaxWait        time.Duration // cap for the wait between retries
	PingTimeout    time.Duration // timeout for each ping attempt
}

func (opts ConnectOptions) validate() error {
	if opts.URL == "" {
		return fmt.Errorf("redis URL must not be empty")
	}
	if opts.ConnectTimeout <= 0 {
		return fmt.Errorf("ConnectTimeout must be > 0, got %v", opts.ConnectTimeout)
	}
	if opts.RetryInterval <= 0 {
		return fmt.Errorf("RetryInterval must be > 0, got %v", opts.RetryInterval)
	}
	if opts.MaxWait <= 0 {
		return fmt.Errorf("MaxWait must be > 0, got %v", opts.MaxWait)
	}
	if opts.PingTimeout <= 0 {
		return fmt.Errorf("PingTimeout must be > 0, got %v", opts.PingTimeout)
	}
	return nil
}

// New opens a client for opts.URL and pings it with exponential backoff until
// it answers or ConnectTimeout elapses. The address is logged without credentials.
func New(ctx context.Context, opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	redisOpts.DialTimeout = opts.PingTimeout
	redisOpts.ReadTimeout = opts.PingTimeout
	redisOpts.WriteTimeout = opts.PingTimeout

	client := redis.NewClient(redisOpts)
	if err := connectWithRetry(ctx, client, redisOpts.Addr, opts, log); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func connectWithRetry(ctx context.Context, client *redis.Client, addr string, opts ConnectOptions, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	log.Info("connecting to redis",
		logger.String("addr", addr),
		logger.Duration("timeout", opts.ConnectTimeout))

	start := time.Now()
	wait := opts.RetryInterval

	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
		err := client.Ping(pingCtx).Err()
		pingCancel()

		if err == nil {
			log.Info("connected to redis",
				logger.String("addr", addr),
				logger.Int("attempts", attempt),
				logger.Duration("elapsed", time.Since(start)))
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Error("redis unavailable - giving up",
				logger.String("addr", addr),
				logger.Int("attempts", attempt),
				logger.Error(err))
			return fmt.Errorf("redis unavailable at %s after %d attempts (timeout: %v): %w",
				addr, attempt, opts.ConnectTimeout, err)

		case <-timer.C:
			log.Warn("redis connection failed, retrying",
				logger.String("addr", addr),
				logger.Int("attempt", attempt),
				logger.Duration("next_retry_in", wait),
				logger.Error(err))
			wait *= 2
			if wait > opts.MaxWait {
				wait = opts.MaxWait
			}
		}
	}
}
