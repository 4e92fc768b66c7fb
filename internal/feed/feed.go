package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tradeforge/depthd/internal/domain"
)

// Applier consumes decoded order events and applies them to the book.
type Applier interface {
	ApplyAdd(ctx context.Context, order domain.Order) error
	ApplyUpdate(ctx context.Context, orderID string, price, quantity *float64) error
	ApplyCancel(ctx context.Context, orderID string) error
}

// VenueFeed connects to a venue's order stream WebSocket, subscribes to the
// configured symbol, and applies each decoded event to the book. It
// reconnects on disconnect.
type VenueFeed struct {
	wsURL     string
	venue     string
	symbol    string
	applier   Applier
	logger    *slog.Logger
	closeOnce sync.Once
	done      chan struct{}
}

// NewVenueFeed creates a feed that applies order events for the given venue
// and symbol to the applier.
func NewVenueFeed(wsURL, venue, symbol string, applier Applier, logger *slog.Logger) *VenueFeed {
	return &VenueFeed{
		wsURL:   wsURL,
		venue:   venue,
		symbol:  symbol,
		applier: applier,
		logger:  logger.With(slog.String("component", "venue_feed")),
		done:    make(chan struct{}),
	}
}

// Run connects, subscribes to the order stream for the configured symbol, and
// runs until ctx is cancelled. Reconnects with backoff on disconnect.
func (f *VenueFeed) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}
		err := f.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("venue ws disconnected, reconnecting", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *VenueFeed) runConnection(ctx context.Context) error {
	client := NewWSClient(f.wsURL, f.symbol)
	defer client.Close()

	client.OnEvent(func(ev OrderEvent) {
		f.apply(context.Background(), ev)
	})

	connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err := client.Connect(connCtx)
	cancel()
	if err != nil {
		return err
	}
	f.logger.Info("venue ws subscribed",
		slog.String("venue", f.venue),
		slog.String("symbol", f.symbol))

	<-ctx.Done()
	return ctx.Err()
}

// apply routes a single event to the applier. Malformed events and late
// cancels are logged at debug level and dropped.
func (f *VenueFeed) apply(ctx context.Context, ev OrderEvent) {
	switch ev.Type {
	case EventAdd:
		order, err := ev.Order(f.venue, f.symbol)
		if err != nil {
			f.logger.Debug("dropping malformed add event", slog.String("error", err.Error()))
			return
		}
		if err := f.applier.ApplyAdd(ctx, order); err != nil {
			f.logger.Warn("apply add failed",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()))
		}
	case EventUpdate:
		if err := f.applier.ApplyUpdate(ctx, ev.OrderID, ev.Price, ev.Quantity); err != nil {
			f.logger.Debug("apply update failed",
				slog.String("order_id", ev.OrderID),
				slog.String("error", err.Error()))
		}
	case EventCancel:
		if err := f.applier.ApplyCancel(ctx, ev.OrderID); err != nil {
			f.logger.Debug("apply cancel failed",
				slog.String("order_id", ev.OrderID),
				slog.String("error", err.Error()))
		}
	}
}

// Close stops the feed.
func (f *VenueFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
