package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tradeforge/depthd/internal/feed"
	"github.com/tradeforge/depthd/internal/server"
	"github.com/tradeforge/depthd/internal/server/handler"
	"github.com/tradeforge/depthd/internal/service"
)

// ServeMode runs only the HTTP query API over the in-memory book.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, deps)
	return g.Wait()
}

// FeedMode runs only the venue feed, maintaining the book and its mirror
// without exposing the query API.
func (a *App) FeedMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting feed mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startFeed(ctx, g, deps)
	return g.Wait()
}

// TailMode subscribes to the book event channel and logs every event. It is
// an operational tool for following a book maintained by another instance.
func (a *App) TailMode(ctx context.Context, deps *Dependencies) error {
	if deps.SignalBus == nil {
		return fmt.Errorf("app: tail mode requires redis to be enabled")
	}

	events, err := deps.SignalBus.Subscribe(ctx, service.BooksChannel)
	if err != nil {
		return fmt.Errorf("app: subscribe %s: %w", service.BooksChannel, err)
	}

	a.logger.InfoContext(ctx, "tailing book events",
		slog.String("channel", service.BooksChannel))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-events:
			if !ok {
				return nil
			}
			a.logger.InfoContext(ctx, "book event", slog.String("payload", string(payload)))
		}
	}
}

// FullMode runs the venue feed and the HTTP query API together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startFeed(ctx, g, deps)
	a.startServer(ctx, g, deps)
	return g.Wait()
}

// startFeed launches the venue feed goroutine on the group.
func (a *App) startFeed(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	wsFeed := feed.NewVenueFeed(
		a.cfg.Venue.WsURL,
		a.cfg.Venue.Name,
		a.cfg.Venue.Symbol,
		deps.Service,
		a.logger,
	)
	g.Go(func() error {
		defer wsFeed.Close()
		return wsFeed.Run(ctx)
	})
}

// startServer launches the HTTP server and its shutdown watcher on the group.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(deps.Book, a.logger),
		Book:   handler.NewBookHandler(deps.Service, a.logger),
		Orders: handler.NewOrderHandler(deps.Service, a.cfg.Venue.Name, a.cfg.Venue.Symbol, a.logger),
	}
	if deps.BookCache != nil {
		handlers.Mirror = handler.NewMirrorHandler(deps.BookCache, a.cfg.Venue.Name, a.cfg.Venue.Symbol, a.logger)
	}

	srv := server.NewServer(server.Config{Port: a.cfg.Server.Port}, handlers, a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "query API listening",
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)))
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
