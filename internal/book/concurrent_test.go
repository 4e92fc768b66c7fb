package book

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeforge/depthd/internal/domain"
)

func TestConcurrentBookForwardsResults(t *testing.T) {
	b := New("coinbase", "BTC-USD", 2)

	b.AddOrder(order("b1", domain.Bid, 100.00, 5))
	b.AddOrder(order("a1", domain.Ask, 101.00, 3))

	mid, ok := b.MidPrice()
	require.True(t, ok)
	assert.Equal(t, 100.50, mid)

	assert.ErrorIs(t, b.CancelOrder("missing"), domain.ErrOrderNotFound)
	assert.ErrorIs(t, b.UpdateOrder("missing", ptr(1), nil), domain.ErrOrderNotFound)
	require.NoError(t, b.CancelOrder("b1"))

	_, ok = b.MidPrice()
	assert.False(t, ok)
}

// Readers running against a stream of writers must always observe a book that
// is internally consistent: snapshot ordering intact, never a half-applied
// update (an order either at its old price or its new one, never absent).
func TestConcurrentReadersAndWriters(t *testing.T) {
	b := New("coinbase", "BTC-USD", 2)

	const writers = 4
	const readers = 4
	const opsPerWriter = 500

	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("w%d", w)
			for i := range opsPerWriter {
				price := 100.00 + float64(i%7)
				b.AddOrder(order(id, domain.Bid, price, 1))
				if i%3 == 0 {
					_ = b.UpdateOrder(id, ptr(price-0.5), nil)
				}
				if i%5 == 0 {
					_ = b.CancelOrder(id)
				}
			}
		}()
	}
	for range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range opsPerWriter {
				snap := b.Snapshot(0)
				for j := 1; j < len(snap.Bids); j++ {
					assert.Greater(t, snap.Bids[j-1].Price, snap.Bids[j].Price,
						"bid levels must stay strictly descending")
				}
				for _, lvl := range snap.Bids {
					assert.Positive(t, lvl.OrderCount, "empty levels must never be visible")
				}
				_ = b.TotalLiquidity(domain.Bid)
				_, _ = b.Spread()
			}
		}()
	}
	wg.Wait()

	// Every writer's order is either resting exactly once or cancelled.
	total := b.OrderCount(domain.Bid)
	assert.LessOrEqual(t, total, writers)
}

func TestConcurrentBookIsolatedPerInstance(t *testing.T) {
	a := New("coinbase", "BTC-USD", 2)
	z := New("kraken", "ETH-USD", 2)

	a.AddOrder(order("b1", domain.Bid, 100.00, 5))

	assert.Equal(t, 1, a.OrderCount(domain.Bid))
	assert.Equal(t, 0, z.OrderCount(domain.Bid))
	assert.Equal(t, "coinbase", a.Venue())
	assert.Equal(t, "kraken", z.Venue())
}
