package book

import (
	"sync"
	"time"

	"github.com/tradeforge/depthd/internal/domain"
)

// ConcurrentBook serializes access to one Store behind a reader/writer lock.
// Mutations are exclusive; reads may run concurrently with each other. Each
// method holds the lock for exactly one store operation, so no caller ever
// observes a half-applied mutation (including the transient absence of an
// order mid-update).
//
// One lock guards one venue/symbol book; books for different pairs do not
// contend with each other.
type ConcurrentBook struct {
	mu    sync.RWMutex
	store *Store
}

// NewConcurrentBook wraps the given store. The store must not be used
// directly afterwards.
func NewConcurrentBook(store *Store) *ConcurrentBook {
	return &ConcurrentBook{store: store}
}

// New constructs a concurrent book for one venue/symbol in a single call.
func New(venue, symbol string, pricePrecision int) *ConcurrentBook {
	return NewConcurrentBook(NewStore(venue, symbol, pricePrecision))
}

// Venue returns the venue tag. Immutable after construction, so no lock.
func (b *ConcurrentBook) Venue() string { return b.store.venue }

// Symbol returns the symbol tag. Immutable after construction, so no lock.
func (b *ConcurrentBook) Symbol() string { return b.store.symbol }

// LastUpdate returns the time of the most recent successful mutation.
func (b *ConcurrentBook) LastUpdate() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store.LastUpdate()
}

// AddOrder inserts or overwrites a resting order. Never fails.
func (b *ConcurrentBook) AddOrder(o domain.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.store.AddOrder(o)
}

// UpdateOrder applies a partial update under the write lock, forwarding the
// store's result verbatim.
func (b *ConcurrentBook) UpdateOrder(id string, newPrice, newQuantity *float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.UpdateOrder(id, newPrice, newQuantity)
}

// CancelOrder removes a resting order under the write lock, forwarding the
// store's result verbatim.
func (b *ConcurrentBook) CancelOrder(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.CancelOrder(id)
}

// Snapshot returns an aggregated depth view. depth <= 0 means unbounded.
func (b *ConcurrentBook) Snapshot(depth int) domain.BookSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store.Snapshot(depth)
}

// Order returns a copy of the resting order with the given id.
func (b *ConcurrentBook) Order(id string) (domain.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store.Order(id)
}

// MidPrice returns the mid of the best bid and ask when both sides rest.
func (b *ConcurrentBook) MidPrice() (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store.MidPrice()
}

// Spread returns best ask minus best bid when both sides rest.
func (b *ConcurrentBook) Spread() (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store.Spread()
}

// TotalLiquidity sums resting quantity on one side.
func (b *ConcurrentBook) TotalLiquidity(side domain.Side) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store.TotalLiquidity(side)
}

// OrderCount returns the number of resting orders on one side.
func (b *ConcurrentBook) OrderCount(side domain.Side) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store.OrderCount(side)
}
