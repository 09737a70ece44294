package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/stickermart/internal/domain"
)

// OrderService defines what the order handler needs from the service layer.
type OrderService interface {
	CreateOrder(ctx context.Context, listingID, buyer string, rail domain.Rail) (domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
}

// OrderVerifier runs an on-demand chain verification for a pending TON
// order. The payment poller satisfies it.
type OrderVerifier interface {
	VerifyOrder(ctx context.Context, order domain.Order) (bool, error)
}

// OrderHandler serves order creation, lookup, and verification endpoints.
type OrderHandler struct {
	orders   OrderService
	verifier OrderVerifier
	logger   *slog.Logger
}

// NewOrderHandler creates an OrderHandler with the given dependencies.
func NewOrderHandler(orders OrderService, verifier OrderVerifier, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, verifier: verifier, logger: logger}
}

type createOrderRequest struct {
	ListingID string `json:"listingId"`
	Buyer     string `json:"buyer"`
	Rail      string `json:"rail"`
}

// CreateOrder creates a direct-purchase order and returns the payment
// instruction for the chosen rail.
// POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), req.ListingID, req.Buyer, domain.Rail(req.Rail))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: create order failed",
			slog.String("listing_id", req.ListingID),
			slog.String("error", err.Error()),
		)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// GetOrder returns a single order by id.
// GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// VerifyOrder triggers an immediate chain scan for a pending TON order and
// reports whether the payment settled.
// POST /api/orders/{id}/verify
func (h *OrderHandler) VerifyOrder(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	settled, err := h.verifier.VerifyOrder(r.Context(), order)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: verify order failed",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"orderId": id,
		"settled": settled,
	})
}
