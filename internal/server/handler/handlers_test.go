package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeforge/depthd/internal/book"
	"github.com/tradeforge/depthd/internal/domain"
	"github.com/tradeforge/depthd/internal/service"
)

// newTestMux wires the handlers onto a mux the same way the server does,
// backed by a real in-memory book.
func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewBookService(book.New("coinbase", "BTC-USD", 2), nil, nil, 10, logger)

	books := NewBookHandler(svc, logger)
	orders := NewOrderHandler(svc, "coinbase", "BTC-USD", logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/book", books.GetBook)
	mux.HandleFunc("GET /api/book/stats", books.GetStats)
	mux.HandleFunc("POST /api/orders", orders.PlaceOrder)
	mux.HandleFunc("GET /api/orders/{id}", orders.GetOrder)
	mux.HandleFunc("PATCH /api/orders/{id}", orders.UpdateOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", orders.CancelOrder)
	return mux
}

func do(t *testing.T, mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

type stubCache struct {
	snap   domain.BookSnapshot
	cached bool
}

func (s *stubCache) SetSnapshot(ctx context.Context, snap domain.BookSnapshot) error {
	s.snap, s.cached = snap, true
	return nil
}

func (s *stubCache) GetSnapshot(ctx context.Context, venue, symbol string) (domain.BookSnapshot, error) {
	if !s.cached {
		return domain.BookSnapshot{}, domain.ErrBookNotCached
	}
	return s.snap, nil
}

func (s *stubCache) GetBBO(ctx context.Context, venue, symbol string) (float64, float64, error) {
	if !s.cached {
		return 0, 0, domain.ErrBookNotCached
	}
	bb, _ := s.snap.BestBid()
	ba, _ := s.snap.BestAsk()
	return bb.Price, ba.Price, nil
}

func TestHealthReportsBookIdentity(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := book.New("coinbase", "BTC-USD", 2)
	h := NewHealthHandler(b, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.HealthCheck)

	rec := do(t, mux, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"venue":"coinbase"`)
	assert.Contains(t, rec.Body.String(), `"symbol":"BTC-USD"`)
	assert.Contains(t, rec.Body.String(), `"book_updated_at"`)
}

func TestMirrorEndpoints(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := &stubCache{}
	h := NewMirrorHandler(cache, "coinbase", "BTC-USD", logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/book/mirror", h.GetMirror)
	mux.HandleFunc("GET /api/book/mirror/bbo", h.GetBBO)

	rec := do(t, mux, http.MethodGet, "/api/book/mirror", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "nothing mirrored yet")

	rec = do(t, mux, http.MethodGet, "/api/book/mirror/bbo", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, cache.SetSnapshot(context.Background(), domain.BookSnapshot{
		Venue:  "coinbase",
		Symbol: "BTC-USD",
		Bids:   []domain.PriceLevel{{Price: 100.00, TotalQuantity: 2, OrderCount: 1}},
		Asks:   []domain.PriceLevel{{Price: 101.00, TotalQuantity: 1, OrderCount: 1}},
	}))

	rec = do(t, mux, http.MethodGet, "/api/book/mirror", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap domain.BookSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, 100.00, snap.Bids[0].Price)

	rec = do(t, mux, http.MethodGet, "/api/book/mirror/bbo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bid":100`)
	assert.Contains(t, rec.Body.String(), `"ask":101`)
}

func TestPlaceAndGetOrder(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodPost, "/api/orders",
		`{"order_id":"o1","side":"bid","price":100.00,"size":2.5}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"order_id":"o1"`)

	rec = do(t, mux, http.MethodGet, "/api/orders/o1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price":100`)
}

func TestPlaceOrderValidation(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodPost, "/api/orders", `{"side":"bid","size":2.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodPost, "/api/orders", `{"side":"diagonal","price":1.0,"size":2.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodPost, "/api/orders", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBookSnapshotAndDepth(t *testing.T) {
	mux := newTestMux(t)

	for _, body := range []string{
		`{"order_id":"b1","side":"bid","price":100.00,"size":1}`,
		`{"order_id":"b2","side":"bid","price":99.00,"size":1}`,
		`{"order_id":"a1","side":"ask","price":101.00,"size":1}`,
	} {
		rec := do(t, mux, http.MethodPost, "/api/orders", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(t, mux, http.MethodGet, "/api/book?depth=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap domain.BookSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, 100.00, snap.Bids[0].Price)
	require.Len(t, snap.Asks, 1)
	assert.Equal(t, 101.00, snap.Asks[0].Price)
}

func TestGetStats(t *testing.T) {
	mux := newTestMux(t)

	do(t, mux, http.MethodPost, "/api/orders", `{"order_id":"b1","side":"bid","price":100.00,"size":2}`)
	do(t, mux, http.MethodPost, "/api/orders", `{"order_id":"a1","side":"ask","price":101.00,"size":3}`)

	rec := do(t, mux, http.MethodGet, "/api/book/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mid_price":100.5`)
	assert.Contains(t, rec.Body.String(), `"spread":1`)
}

func TestUpdateOrder(t *testing.T) {
	mux := newTestMux(t)

	do(t, mux, http.MethodPost, "/api/orders", `{"order_id":"o1","side":"bid","price":100.00,"size":2}`)

	rec := do(t, mux, http.MethodPatch, "/api/orders/o1", `{"price":99.50}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, mux, http.MethodGet, "/api/orders/o1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price":99.5`)

	rec = do(t, mux, http.MethodPatch, "/api/orders/o1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodPatch, "/api/orders/ghost", `{"size":1.0}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelOrder(t *testing.T) {
	mux := newTestMux(t)

	do(t, mux, http.MethodPost, "/api/orders", `{"order_id":"o1","side":"ask","price":101.00,"size":1}`)

	rec := do(t, mux, http.MethodDelete, "/api/orders/o1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, mux, http.MethodDelete, "/api/orders/o1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, mux, http.MethodGet, "/api/orders/o1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
