package domain

import "errors"

var (
	// ErrOrderNotFound is returned by update and cancel when no resting order
	// carries the given id. A late cancel for an already removed order is a
	// normal, recoverable condition.
	ErrOrderNotFound = errors.New("order not found")

	// ErrPriceLevelGone signals that an order was found in the id index but
	// its recorded price level is missing from the book. It indicates a
	// broken internal invariant, not a runtime condition callers should
	// expect.
	ErrPriceLevelGone = errors.New("price level not found")
)
