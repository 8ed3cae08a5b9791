package shortlink

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSource keeps the table in a single redis hash (field = key, value = URL).
type RedisSource struct {
	client redis.Cmdable
	key    string
}

func NewRedisSource(client redis.Cmdable, key string) *RedisSource {
	return &RedisSource{client: client, key: key}
}

func (s *RedisSource) String() string { return "redis:" + s.key }

// Load reads the whole hash. A hash that does not exist is ErrSourceMissing.
func (s *RedisSource) Load(ctx context.Context) (Table, error) {
	links, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return Table{}, fmt.Errorf("failed to read shortlinks hash: %w", err)
	}
	if len(links) == 0 {
		return Table{}, fmt.Errorf("%w: redis hash %s", ErrSourceMissing, s.key)
	}
	return NewTable(links)
}

// Save replaces the hash with the table contents in one transaction.
func (s *RedisSource) Save(ctx context.Context, table Table) error {
	if table.Len() == 0 {
		return fmt.Errorf("refusing to save an empty shortlink table to %s", s.key)
	}

	fields := make([]interface{}, 0, table.Len()*2)
	for key, dest := range table.Entries() {
		fields = append(fields, key, dest)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		pipe.HSet(ctx, s.key, fields...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save shortlinks hash: %w", err)
	}
	return nil
}
