package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tradeforge/depthd/internal/domain"
)

// OrderService defines the methods that the order handler requires from the
// service layer.
type OrderService interface {
	ApplyAdd(ctx context.Context, order domain.Order) error
	ApplyUpdate(ctx context.Context, orderID string, price, quantity *float64) error
	ApplyCancel(ctx context.Context, orderID string) error
	Order(ctx context.Context, orderID string) (domain.Order, error)
}

// OrderHandler serves order mutation endpoints.
type OrderHandler struct {
	orders OrderService
	venue  string
	symbol string
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler with the given service and logger.
func NewOrderHandler(orders OrderService, venue, symbol string, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		venue:  venue,
		symbol: symbol,
		logger: logger,
	}
}

// placeOrderRequest is the JSON body for PlaceOrder.
type placeOrderRequest struct {
	OrderID     string            `json:"order_id"`
	Side        string            `json:"side"`
	Price       *float64          `json:"price"`
	Quantity    *float64          `json:"size"`
	Participant string            `json:"participant"`
	Metadata    map[string]string `json:"metadata"`
}

// updateOrderRequest is the JSON body for UpdateOrder. Absent fields are
// left unchanged.
type updateOrderRequest struct {
	Price    *float64 `json:"price"`
	Quantity *float64 `json:"size"`
}

// PlaceOrder inserts a new resting order into the book.
// POST /api/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.Price == nil || req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "price and size are required")
		return
	}

	side, err := domain.ParseSide(req.Side)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := req.OrderID
	if id == "" {
		id = uuid.NewString()
	}

	order := domain.Order{
		ID:              id,
		Price:           *req.Price,
		Quantity:        *req.Quantity,
		Side:            side,
		Venue:           h.venue,
		Symbol:          h.symbol,
		Timestamp:       time.Now().UTC(),
		ParticipantType: req.Participant,
		Metadata:        req.Metadata,
	}

	if err := h.orders.ApplyAdd(r.Context(), order); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: place order failed",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to place order")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"status":   "accepted",
		"order_id": id,
	})
}

// GetOrder returns a single resting order by its ID.
// GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.orders.Order(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateOrder changes the price and/or quantity of a resting order.
// PATCH /api/orders/{id}
func (h *OrderHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.Price == nil && req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "price or size is required")
		return
	}

	if err := h.orders.ApplyUpdate(r.Context(), id, req.Price, req.Quantity); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: update order failed",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update order")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "updated",
		"order_id": id,
	})
}

// CancelOrder removes a resting order by its ID.
// DELETE /api/orders/{id}
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	if err := h.orders.ApplyCancel(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: cancel order failed",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to cancel order")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "cancelled",
		"order_id": id,
	})
}
