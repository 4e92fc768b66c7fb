package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tradeforge/depthd/internal/book"
	"github.com/tradeforge/depthd/internal/domain"
)

// BooksChannel is the signal bus channel book events are published on.
const BooksChannel = "books"

// BookService applies order events to the in-memory book and keeps the
// Redis mirror and signal bus in sync. The cache and bus are optional; when
// nil the service operates on the in-memory book alone.
type BookService struct {
	book          *book.ConcurrentBook
	cache         domain.BookCache
	bus           domain.SignalBus
	snapshotDepth int
	logger        *slog.Logger
}

// NewBookService creates a BookService around the given book. cache and bus
// may be nil.
func NewBookService(
	b *book.ConcurrentBook,
	cache domain.BookCache,
	bus domain.SignalBus,
	snapshotDepth int,
	logger *slog.Logger,
) *BookService {
	return &BookService{
		book:          b,
		cache:         cache,
		bus:           bus,
		snapshotDepth: snapshotDepth,
		logger:        logger.With(slog.String("component", "book_service")),
	}
}

// ApplyAdd inserts an order into the book and propagates the new state.
func (s *BookService) ApplyAdd(ctx context.Context, order domain.Order) error {
	s.book.AddOrder(order)
	s.propagate(ctx, "add", order.ID)
	return nil
}

// ApplyUpdate changes the price and/or quantity of an existing order. Updates
// for unknown orders return domain.ErrOrderNotFound.
func (s *BookService) ApplyUpdate(ctx context.Context, orderID string, price, quantity *float64) error {
	if err := s.book.UpdateOrder(orderID, price, quantity); err != nil {
		return fmt.Errorf("book_service: update %q: %w", orderID, err)
	}
	s.propagate(ctx, "update", orderID)
	return nil
}

// ApplyCancel removes an order from the book. Cancels for unknown orders
// return domain.ErrOrderNotFound; the book is left untouched.
func (s *BookService) ApplyCancel(ctx context.Context, orderID string) error {
	if err := s.book.CancelOrder(orderID); err != nil {
		return fmt.Errorf("book_service: cancel %q: %w", orderID, err)
	}
	s.propagate(ctx, "cancel", orderID)
	return nil
}

// Snapshot returns the current book state down to the given depth. A depth
// of zero or less returns all levels.
func (s *BookService) Snapshot(ctx context.Context, depth int) domain.BookSnapshot {
	return s.book.Snapshot(depth)
}

// Order returns a copy of the resting order with the given ID.
func (s *BookService) Order(ctx context.Context, orderID string) (domain.Order, error) {
	order, ok := s.book.Order(orderID)
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// Stats summarizes the book for the query API.
type Stats struct {
	Venue        string   `json:"venue"`
	Symbol       string   `json:"symbol"`
	MidPrice     *float64 `json:"mid_price"`
	Spread       *float64 `json:"spread"`
	BidLiquidity float64  `json:"bid_liquidity"`
	AskLiquidity float64  `json:"ask_liquidity"`
	BidOrders    int      `json:"bid_orders"`
	AskOrders    int      `json:"ask_orders"`
}

// Stats returns the current derived metrics of the book. MidPrice and Spread
// are nil while either side of the book is empty.
func (s *BookService) Stats(ctx context.Context) Stats {
	st := Stats{
		Venue:        s.book.Venue(),
		Symbol:       s.book.Symbol(),
		BidLiquidity: s.book.TotalLiquidity(domain.Bid),
		AskLiquidity: s.book.TotalLiquidity(domain.Ask),
		BidOrders:    s.book.OrderCount(domain.Bid),
		AskOrders:    s.book.OrderCount(domain.Ask),
	}
	if mid, ok := s.book.MidPrice(); ok {
		st.MidPrice = &mid
	}
	if spread, ok := s.book.Spread(); ok {
		st.Spread = &spread
	}
	return st
}

// propagate mirrors the current snapshot to the cache and publishes a book
// event on the bus. Failures are logged, never surfaced: the in-memory book
// is the source of truth and downstream mirrors are best-effort.
func (s *BookService) propagate(ctx context.Context, event, orderID string) {
	snap := s.book.Snapshot(s.snapshotDepth)

	if s.cache != nil {
		if err := s.cache.SetSnapshot(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "mirror snapshot failed",
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"event":     event,
			"order_id":  orderID,
			"venue":     snap.Venue,
			"symbol":    snap.Symbol,
			"timestamp": snap.Timestamp.Format(time.RFC3339Nano),
		})
		if err := s.bus.Publish(ctx, BooksChannel, evt); err != nil {
			s.logger.WarnContext(ctx, "publish book event failed",
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
		}
	}
}

// IsNotFound reports whether err denotes a missing order.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrOrderNotFound)
}
