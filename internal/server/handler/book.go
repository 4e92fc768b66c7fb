package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tradeforge/depthd/internal/domain"
	"github.com/tradeforge/depthd/internal/service"
)

// BookService defines the methods that the book handler requires from the
// service layer.
type BookService interface {
	Snapshot(ctx context.Context, depth int) domain.BookSnapshot
	Stats(ctx context.Context) service.Stats
}

// BookHandler serves book query endpoints.
type BookHandler struct {
	books  BookService
	logger *slog.Logger
}

// NewBookHandler creates a BookHandler with the given service and logger.
func NewBookHandler(books BookService, logger *slog.Logger) *BookHandler {
	return &BookHandler{
		books:  books,
		logger: logger,
	}
}

// GetBook returns a depth-limited snapshot of the book.
// GET /api/book?depth=10
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	depth := parseDepth(r)
	snap := h.books.Snapshot(r.Context(), depth)
	writeJSON(w, http.StatusOK, snap)
}

// GetStats returns the derived metrics of the book: mid-price, spread,
// per-side liquidity and order counts.
// GET /api/book/stats
func (h *BookHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.books.Stats(r.Context()))
}
