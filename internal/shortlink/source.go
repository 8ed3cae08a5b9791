package shortlink

import (
	"context"
	"errors"
	"fmt"

	"github.com/ofcrse/site/internal/logger"
)

// ErrSourceMissing reports a shortlink source that does not exist at all,
// as opposed to one that exists but cannot be parsed.
var ErrSourceMissing = errors.New("shortlink source not found")

// Source produces the shortlink table. It is read exactly once at startup.
type Source interface {
	Load(ctx context.Context) (Table, error)
	String() string
}

// LoadTable reads src with the startup policy: a missing source yields an
// empty table, anything else that fails is returned to abort startup.
func LoadTable(ctx context.Context, src Source, log logger.Logger) (Table, error) {
	table, err := src.Load(ctx)
	if errors.Is(err, ErrSourceMissing) {
		log.Warn("shortlink source not found, serving an empty table",
			logger.String("source", src.String()))
		return Table{}, nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("failed to load shortlinks from %s: %w", src, err)
	}

	log.Info("shortlinks loaded",
		logger.String("source", src.String()),
		logger.Int("count", table.Len()))

	if _, ok := table.Lookup(MusicKey); !ok {
		log.Warn("shortlink table has no music entry, music host will answer 404",
			logger.String("key", MusicKey))
	}

	return table, nil
}
