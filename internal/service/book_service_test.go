package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeforge/depthd/internal/book"
	"github.com/tradeforge/depthd/internal/domain"
)

type fakeCache struct {
	snapshots []domain.BookSnapshot
}

func (f *fakeCache) SetSnapshot(ctx context.Context, snap domain.BookSnapshot) error {
	f.snapshots = append(f.snapshots, snap)
	return nil
}

func (f *fakeCache) GetSnapshot(ctx context.Context, venue, symbol string) (domain.BookSnapshot, error) {
	if len(f.snapshots) == 0 {
		return domain.BookSnapshot{}, domain.ErrBookNotCached
	}
	return f.snapshots[len(f.snapshots)-1], nil
}

func (f *fakeCache) GetBBO(ctx context.Context, venue, symbol string) (float64, float64, error) {
	return 0, 0, domain.ErrBookNotCached
}

type fakeBus struct {
	published [][]byte
}

func (f *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error {
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func newTestService(t *testing.T) (*BookService, *fakeCache, *fakeBus) {
	t.Helper()
	cache := &fakeCache{}
	bus := &fakeBus{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewBookService(book.New("coinbase", "BTC-USD", 2), cache, bus, 10, logger)
	return svc, cache, bus
}

func order(id string, side domain.Side, price, qty float64) domain.Order {
	return domain.Order{
		ID:        id,
		Price:     price,
		Quantity:  qty,
		Side:      side,
		Venue:     "coinbase",
		Symbol:    "BTC-USD",
		Timestamp: time.Now().UTC(),
	}
}

func TestApplyAddMirrorsAndPublishes(t *testing.T) {
	svc, cache, bus := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.ApplyAdd(ctx, order("o1", domain.Bid, 100.00, 2)))

	require.Len(t, cache.snapshots, 1)
	snap := cache.snapshots[0]
	assert.Equal(t, "coinbase", snap.Venue)
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, 100.00, snap.Bids[0].Price)
	assert.Len(t, bus.published, 1)
}

func TestApplyUpdateUnknownOrder(t *testing.T) {
	svc, cache, _ := newTestService(t)

	price := 101.0
	err := svc.ApplyUpdate(context.Background(), "ghost", &price, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.True(t, IsNotFound(err))
	assert.Empty(t, cache.snapshots)
}

func TestApplyCancelRemovesAndPropagates(t *testing.T) {
	svc, cache, bus := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.ApplyAdd(ctx, order("o1", domain.Ask, 101.00, 1)))
	require.NoError(t, svc.ApplyCancel(ctx, "o1"))

	require.Len(t, cache.snapshots, 2)
	assert.Empty(t, cache.snapshots[1].Asks)
	assert.Len(t, bus.published, 2)

	_, err := svc.Order(ctx, "o1")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestApplyCancelUnknownOrderLeavesBookUntouched(t *testing.T) {
	svc, cache, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.ApplyAdd(ctx, order("o1", domain.Bid, 100.00, 2)))
	err := svc.ApplyCancel(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	snap := svc.Snapshot(ctx, 0)
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, 2.0, snap.Bids[0].TotalQuantity)
	assert.Len(t, cache.snapshots, 1)
}

func TestStats(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	st := svc.Stats(ctx)
	assert.Nil(t, st.MidPrice)
	assert.Nil(t, st.Spread)

	require.NoError(t, svc.ApplyAdd(ctx, order("b1", domain.Bid, 100.00, 2)))
	require.NoError(t, svc.ApplyAdd(ctx, order("a1", domain.Ask, 101.00, 3)))

	st = svc.Stats(ctx)
	require.NotNil(t, st.MidPrice)
	assert.InDelta(t, 100.50, *st.MidPrice, 1e-9)
	require.NotNil(t, st.Spread)
	assert.InDelta(t, 1.00, *st.Spread, 1e-9)
	assert.Equal(t, 2.0, st.BidLiquidity)
	assert.Equal(t, 3.0, st.AskLiquidity)
	assert.Equal(t, 1, st.BidOrders)
	assert.Equal(t, 1, st.AskOrders)
}

func TestNilCacheAndBusAreOptional(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewBookService(book.New("coinbase", "BTC-USD", 2), nil, nil, 10, logger)

	require.NoError(t, svc.ApplyAdd(context.Background(), order("o1", domain.Bid, 100.00, 1)))
	snap := svc.Snapshot(context.Background(), 0)
	assert.Len(t, snap.Bids, 1)
}
