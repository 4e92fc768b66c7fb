package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tradeforge/depthd/internal/domain"
)

// MirrorHandler serves the Redis-mirrored view of the book. The mirror is
// what other processes read; exposing it here lets operators compare it
// against the live in-memory book.
type MirrorHandler struct {
	cache  domain.BookCache
	venue  string
	symbol string
	logger *slog.Logger
}

// NewMirrorHandler creates a MirrorHandler reading from the given cache.
func NewMirrorHandler(cache domain.BookCache, venue, symbol string, logger *slog.Logger) *MirrorHandler {
	return &MirrorHandler{
		cache:  cache,
		venue:  venue,
		symbol: symbol,
		logger: logger,
	}
}

// GetMirror returns the snapshot last mirrored to Redis for this book.
// GET /api/book/mirror
func (h *MirrorHandler) GetMirror(w http.ResponseWriter, r *http.Request) {
	snap, err := h.cache.GetSnapshot(r.Context(), h.venue, h.symbol)
	if err != nil {
		if errors.Is(err, domain.ErrBookNotCached) {
			writeError(w, http.StatusNotFound, "book not cached")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get mirror failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read book mirror")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// GetBBO returns the mirrored best bid and best ask.
// GET /api/book/mirror/bbo
func (h *MirrorHandler) GetBBO(w http.ResponseWriter, r *http.Request) {
	bid, ask, err := h.cache.GetBBO(r.Context(), h.venue, h.symbol)
	if err != nil {
		if errors.Is(err, domain.ErrBookNotCached) {
			writeError(w, http.StatusNotFound, "book not cached")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get mirror bbo failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read book mirror")
		return
	}

	writeJSON(w, http.StatusOK, map[string]float64{
		"bid": bid,
		"ask": ask,
	})
}
