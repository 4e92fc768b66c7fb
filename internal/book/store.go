// Package book implements an in-memory limit order book for a single
// venue/symbol pair: a price-indexed store of resting orders plus a
// concurrency wrapper that makes one store safe to share between feed
// handlers and API readers.
package book

import (
	"math"
	"time"

	"github.com/tidwall/btree"

	"github.com/tradeforge/depthd/internal/domain"
)

// btreeDegree matches the fan-out used for the side indexes.
const btreeDegree = 32

// levelRef records where an order currently rests so update and cancel can
// reach it without scanning price levels.
type levelRef struct {
	side domain.Side
	key  int64
}

// Store is the single-threaded order book core. Each side is an ordered map
// from quantized price to the orders resting at that price. Prices are
// quantized to integers (price * 10^precision, rounded) so level ordering and
// equality are exact; the float form is only reconstructed for output.
//
// Store performs no locking. Wrap it in a ConcurrentBook before sharing it
// across goroutines.
type Store struct {
	venue      string
	symbol     string
	precision  int
	multiplier float64

	bids *btree.Map[int64, map[string]domain.Order]
	asks *btree.Map[int64, map[string]domain.Order]
	byID map[string]levelRef

	lastUpdate time.Time
}

// NewStore creates an empty book for one venue/symbol. pricePrecision is the
// number of decimal places preserved by quantization and is fixed for the
// store's lifetime.
func NewStore(venue, symbol string, pricePrecision int) *Store {
	return &Store{
		venue:      venue,
		symbol:     symbol,
		precision:  pricePrecision,
		multiplier: math.Pow10(pricePrecision),
		bids:       btree.NewMap[int64, map[string]domain.Order](btreeDegree),
		asks:       btree.NewMap[int64, map[string]domain.Order](btreeDegree),
		byID:       make(map[string]levelRef),
		lastUpdate: time.Now(),
	}
}

// Venue returns the venue tag fixed at construction.
func (s *Store) Venue() string { return s.venue }

// Symbol returns the symbol tag fixed at construction.
func (s *Store) Symbol() string { return s.symbol }

// Precision returns the price precision fixed at construction.
func (s *Store) Precision() int { return s.precision }

// LastUpdate returns the time of the most recent successful mutation.
func (s *Store) LastUpdate() time.Time { return s.lastUpdate }

// quantize converts a float price to its exact integer level key.
func (s *Store) quantize(price float64) int64 {
	return int64(math.Round(price * s.multiplier))
}

// dequantize converts a level key back to a display price.
func (s *Store) dequantize(key int64) float64 {
	return float64(key) / s.multiplier
}

func (s *Store) side(side domain.Side) *btree.Map[int64, map[string]domain.Order] {
	if side == domain.Bid {
		return s.bids
	}
	return s.asks
}

// AddOrder inserts a copy of the order at its quantized price level, creating
// the level if needed. An existing order with the same id is silently
// replaced: the old copy is detached from wherever it rests first, so a
// re-added id never occupies two levels at once. AddOrder never fails.
func (s *Store) AddOrder(o domain.Order) {
	if _, ok := s.byID[o.ID]; ok {
		_, _ = s.remove(o.ID)
	}
	key := s.quantize(o.Price)
	tree := s.side(o.Side)
	level, ok := tree.Get(key)
	if !ok {
		level = make(map[string]domain.Order)
		tree.Set(key, level)
	}
	level[o.ID] = o.Clone()
	s.byID[o.ID] = levelRef{side: o.Side, key: key}
	s.lastUpdate = time.Now()
}

// UpdateOrder applies a partial update to a resting order: nil means "keep".
// The order is detached from its current level, rebuilt with the overridden
// fields and a fresh timestamp, and reinserted, relocating it if the price
// moved levels. Returns domain.ErrOrderNotFound for an unknown id.
func (s *Store) UpdateOrder(id string, newPrice, newQuantity *float64) error {
	order, err := s.remove(id)
	if err != nil {
		return err
	}
	if newPrice != nil {
		order.Price = *newPrice
	}
	if newQuantity != nil {
		order.Quantity = *newQuantity
	}
	order.Timestamp = time.Now()
	s.AddOrder(order)
	return nil
}

// CancelOrder removes a resting order and prunes its level if it was the last
// occupant. Returns domain.ErrOrderNotFound for an unknown id, or
// domain.ErrPriceLevelGone if the id index points at a level that no longer
// exists (an internal invariant violation).
func (s *Store) CancelOrder(id string) error {
	if _, err := s.remove(id); err != nil {
		return err
	}
	s.lastUpdate = time.Now()
	return nil
}

// remove detaches an order from the book and returns it, pruning an emptied
// level. Shared by UpdateOrder; the transient absence between remove and
// reinsert is invisible to external observers because the concurrency wrapper
// holds the write lock across the whole update.
func (s *Store) remove(id string) (domain.Order, error) {
	ref, ok := s.byID[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	tree := s.side(ref.side)
	level, ok := tree.Get(ref.key)
	if !ok {
		return domain.Order{}, domain.ErrPriceLevelGone
	}
	order, ok := level[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	delete(level, id)
	if len(level) == 0 {
		tree.Delete(ref.key)
	}
	delete(s.byID, id)
	return order, nil
}

// Order returns a copy of the resting order with the given id.
func (s *Store) Order(id string) (domain.Order, bool) {
	ref, ok := s.byID[id]
	if !ok {
		return domain.Order{}, false
	}
	level, ok := s.side(ref.side).Get(ref.key)
	if !ok {
		return domain.Order{}, false
	}
	o, ok := level[id]
	if !ok {
		return domain.Order{}, false
	}
	return o.Clone(), true
}

// Snapshot aggregates up to depth price levels per side, bids best (highest)
// first and asks best (lowest) first. depth <= 0 means unbounded. Levels with
// no resting orders never appear; they are pruned on mutation.
func (s *Store) Snapshot(depth int) domain.BookSnapshot {
	snap := domain.BookSnapshot{
		Venue:     s.venue,
		Symbol:    s.symbol,
		Timestamp: s.lastUpdate,
	}
	snap.Bids = s.collectLevels(s.bids, depth, true)
	snap.Asks = s.collectLevels(s.asks, depth, false)
	return snap
}

func (s *Store) collectLevels(tree *btree.Map[int64, map[string]domain.Order], depth int, reverse bool) []domain.PriceLevel {
	capHint := tree.Len()
	if depth > 0 && depth < capHint {
		capHint = depth
	}
	out := make([]domain.PriceLevel, 0, capHint)
	iter := func(key int64, level map[string]domain.Order) bool {
		total := 0.0
		for _, o := range level {
			total += o.Quantity
		}
		out = append(out, domain.PriceLevel{
			Price:         s.dequantize(key),
			TotalQuantity: total,
			OrderCount:    len(level),
		})
		return depth <= 0 || len(out) < depth
	}
	if reverse {
		tree.Reverse(iter)
	} else {
		tree.Scan(iter)
	}
	return out
}

// bestKeys returns the top-of-book level keys for both sides.
func (s *Store) bestKeys() (bid int64, ask int64, ok bool) {
	bidKey, _, haveBid := s.bids.Max()
	askKey, _, haveAsk := s.asks.Min()
	return bidKey, askKey, haveBid && haveAsk
}

// MidPrice returns (best bid + best ask) / 2. ok is false when either side is
// empty; no price is fabricated for a one-sided book.
func (s *Store) MidPrice() (float64, bool) {
	bid, ask, ok := s.bestKeys()
	if !ok {
		return 0, false
	}
	return (s.dequantize(bid) + s.dequantize(ask)) / 2, true
}

// Spread returns best ask minus best bid. The result is signed: a locked or
// crossed book yields zero or a negative spread, which the store neither
// validates nor prevents.
func (s *Store) Spread() (float64, bool) {
	bid, ask, ok := s.bestKeys()
	if !ok {
		return 0, false
	}
	return s.dequantize(ask) - s.dequantize(bid), true
}

// TotalLiquidity sums the resting quantity across every level on one side.
func (s *Store) TotalLiquidity(side domain.Side) float64 {
	total := 0.0
	s.side(side).Scan(func(_ int64, level map[string]domain.Order) bool {
		for _, o := range level {
			total += o.Quantity
		}
		return true
	})
	return total
}

// OrderCount returns the number of orders resting on one side.
func (s *Store) OrderCount(side domain.Side) int {
	count := 0
	s.side(side).Scan(func(_ int64, level map[string]domain.Order) bool {
		count += len(level)
		return true
	})
	return count
}
