package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// BookStatus reports the identity and freshness of the in-memory book.
type BookStatus interface {
	Venue() string
	Symbol() string
	LastUpdate() time.Time
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	book   BookStatus
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler reporting on the given book.
func NewHealthHandler(book BookStatus, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{book: book, logger: logger}
}

// HealthCheck reports liveness plus which book this instance maintains and
// when it last changed, so operators can spot a stalled feed.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"venue":           h.book.Venue(),
		"symbol":          h.book.Symbol(),
		"book_updated_at": h.book.LastUpdate().UTC().Format(time.RFC3339Nano),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}
