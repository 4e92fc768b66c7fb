package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tradeforge/depthd/internal/book"
	"github.com/tradeforge/depthd/internal/cache/redis"
	"github.com/tradeforge/depthd/internal/config"
	"github.com/tradeforge/depthd/internal/domain"
	"github.com/tradeforge/depthd/internal/service"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Book      *book.ConcurrentBook
	BookCache domain.BookCache
	SignalBus domain.SignalBus
	Service   *service.BookService
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Book: book.New(cfg.Venue.Name, cfg.Venue.Symbol, cfg.Venue.PricePrecision),
	}

	// --- Redis mirror and signal bus (optional) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.BookCache = redis.NewBookCache(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	deps.Service = service.NewBookService(
		deps.Book,
		deps.BookCache,
		deps.SignalBus,
		cfg.Venue.SnapshotDepth,
		logger,
	)

	return deps, cleanup, nil
}
