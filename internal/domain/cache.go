package domain

import (
	"context"
	"errors"
)

// BookCache mirrors the latest book snapshot for one venue/symbol into an
// external cache so other processes can read depth without holding the book.
type BookCache interface {
	// SetSnapshot replaces the cached snapshot for the snapshot's venue/symbol.
	SetSnapshot(ctx context.Context, snap BookSnapshot) error
	// GetSnapshot reads the cached snapshot back; a book that was never
	// mirrored yields ErrBookNotCached.
	GetSnapshot(ctx context.Context, venue, symbol string) (BookSnapshot, error)
	// GetBBO returns the cached best bid and best ask prices.
	GetBBO(ctx context.Context, venue, symbol string) (bestBid, bestAsk float64, err error)
}

// ErrBookNotCached is returned by BookCache reads when no snapshot has been
// mirrored for the requested venue/symbol.
var ErrBookNotCached = errors.New("book not cached")

// SignalBus publishes and consumes raw event payloads between components.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
