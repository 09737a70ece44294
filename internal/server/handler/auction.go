package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/stickermart/internal/domain"
)

// AuctionService defines what the auction handler needs from the service
// layer.
type AuctionService interface {
	PlaceBid(ctx context.Context, listingID, bidder string, amount float64, rail domain.Rail) (domain.Bid, domain.Order, error)
	BuyNow(ctx context.Context, listingID, buyer string) (domain.Listing, error)
}

// FinalizeService defines the settlement operations the auction handler
// exposes.
type FinalizeService interface {
	FinalizeAuction(ctx context.Context, listingID string) error
	FinalizeAuctionSettlement(ctx context.Context, listingID string) error
}

// AuctionHandler serves bid placement, buy-now, and finalization endpoints.
type AuctionHandler struct {
	auctions AuctionService
	finalize FinalizeService
	logger   *slog.Logger
}

// NewAuctionHandler creates an AuctionHandler with the given services.
func NewAuctionHandler(auctions AuctionService, finalize FinalizeService, logger *slog.Logger) *AuctionHandler {
	return &AuctionHandler{auctions: auctions, finalize: finalize, logger: logger}
}

type placeBidRequest struct {
	Bidder string  `json:"bidder"`
	Amount float64 `json:"amount"`
	Rail   string  `json:"rail"`
}

// bidResponse bundles the recorded bid with the escrow payment instruction.
type bidResponse struct {
	Bid   domain.Bid   `json:"bid"`
	Order domain.Order `json:"order"`
}

// PlaceBid places a bid on an auction listing.
// POST /api/listings/{id}/bids
func (h *AuctionHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing listing id")
		return
	}

	var req placeBidRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bid, order, err := h.auctions.PlaceBid(r.Context(), id, req.Bidder, req.Amount, domain.Rail(req.Rail))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: place bid failed",
			slog.String("listing_id", id),
			slog.String("error", err.Error()),
		)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bidResponse{Bid: bid, Order: order})
}

type buyNowRequest struct {
	Buyer string `json:"buyer"`
}

// BuyNow records the buyer as the auction's leader at the buy-now price.
// The buyer then pays through a regular order against the listing.
// POST /api/listings/{id}/buy-now
func (h *AuctionHandler) BuyNow(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing listing id")
		return
	}

	var req buyNowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	listing, err := h.auctions.BuyNow(r.Context(), id, req.Buyer)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: buy now failed",
			slog.String("listing_id", id),
			slog.String("error", err.Error()),
		)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

// Finalize closes an ended auction. With settle=true it also transfers
// ownership to the highest bidder, which requires a funded escrow.
// POST /api/listings/{id}/finalize?settle=true
func (h *AuctionHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing listing id")
		return
	}

	var err error
	if r.URL.Query().Get("settle") == "true" {
		err = h.finalize.FinalizeAuctionSettlement(r.Context(), id)
	} else {
		err = h.finalize.FinalizeAuction(r.Context(), id)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: finalize failed",
			slog.String("listing_id", id),
			slog.String("error", err.Error()),
		)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
