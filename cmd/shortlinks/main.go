// Command shortlinks pushes a shortlink file into the redis hash read by the site at startup.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/ofcrse/site/internal/logger"
	"github.com/ofcrse/site/internal/redis"
	"github.com/ofcrse/site/internal/shortlink"
	"github.com/ofcrse/site/internal/version"
)

func main() {
	file := flag.String("file", "shortlinks.json", "JSON or YAML shortlink table")
	db := flag.String("db", "", "redis URL, ex: redis://localhost:6379/0")
	key := flag.String("key", "shortlinks", "redis hash holding the table")
	timeout := flag.Duration("timeout", 15*time.Second, "how long to keep retrying the redis connection")
	level := flag.String("log-level", "info", "debug | info | warn | error")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		log.Printf("shortlinks %s", version.String())
		return
	}
	if *db == "" {
		log.Fatal("❌ -db is required")
	}

	l := logger.New(*level, true)
	defer func() { _ = l.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+5*time.Second)
	defer cancel()

	table, err := shortlink.NewFileSource(*file).Load(ctx)
	if err != nil {
		l.Fatal("failed to read shortlinks", logger.String("file", *file), logger.Error(err))
	}

	client, err := redis.New(ctx, redis.ConnectOptions{
		URL:            *db,
		ConnectTimeout: *timeout,
		RetryInterval:  time.Second,
		MaxWait:        5 * time.Second,
		PingTimeout:    3 * time.Second,
	}, l)
	if err != nil {
		l.Fatal("failed to connect to redis", logger.Error(err))
	}
	defer func() { _ = client.Close() }()

	if err := shortlink.NewRedisSource(client, *key).Save(ctx, table); err != nil {
		l.Fatal("failed to store shortlinks", logger.Error(err))
	}

	l.Info("✅ shortlinks stored",
		logger.String("key", *key),
		logger.Int("count", table.Len()),
		logger.Strings("keys", table.Keys()))
}
