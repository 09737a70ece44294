package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/stickermart/internal/domain"
)

// ListingService defines what the listing handler needs from the service
// layer.
type ListingService interface {
	CreateFixed(ctx context.Context, seller, collectibleID string, currency domain.Currency, price float64) (domain.Listing, error)
	CreateAuction(ctx context.Context, seller, collectibleID string, currency domain.Currency, minBid, buyNowPrice float64) (domain.Listing, error)
	Get(ctx context.Context, id string) (domain.Listing, error)
	Catalogue(ctx context.Context, currency *domain.Currency, opts domain.ListOpts) ([]domain.CatalogueEntry, error)
	Deactivate(ctx context.Context, id, requester string) error
	Remove(ctx context.Context, id, requester string) error
}

// ListingHandler serves listing-related HTTP endpoints.
type ListingHandler struct {
	listings ListingService
	logger   *slog.Logger
}

// NewListingHandler creates a ListingHandler with the given service and
// logger.
func NewListingHandler(listings ListingService, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{listings: listings, logger: logger}
}

type createListingRequest struct {
	Seller        string  `json:"seller"`
	CollectibleID string  `json:"collectibleId"`
	Kind          string  `json:"kind"`
	Currency      string  `json:"currency"`
	Price         float64 `json:"price,omitempty"`
	MinBid        float64 `json:"minBid,omitempty"`
	BuyNowPrice   float64 `json:"buyNowPrice,omitempty"`
}

// CreateListing creates a fixed-price or auction listing.
// POST /api/listings
func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		l   domain.Listing
		err error
	)
	switch domain.ListingKind(req.Kind) {
	case domain.ListingKindFixed:
		l, err = h.listings.CreateFixed(r.Context(), req.Seller, req.CollectibleID,
			domain.Currency(req.Currency), req.Price)
	case domain.ListingKindAuction:
		l, err = h.listings.CreateAuction(r.Context(), req.Seller, req.CollectibleID,
			domain.Currency(req.Currency), req.MinBid, req.BuyNowPrice)
	default:
		writeError(w, http.StatusBadRequest, "kind must be fixed or auction")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: create listing failed",
			slog.String("error", err.Error()),
		)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, l)
}

// ListListings returns the active catalogue with pagination, optionally
// filtered by currency.
// GET /api/listings?currency=TON&limit=50&offset=0
func (h *ListingHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var currency *domain.Currency
	if v := r.URL.Query().Get("currency"); v != "" {
		c := domain.Currency(v)
		if !c.Valid() {
			writeError(w, http.StatusBadRequest, "unknown currency")
			return
		}
		currency = &c
	}

	entries, err := h.listings.Catalogue(r.Context(), currency, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list listings failed",
			slog.String("error", err.Error()),
		)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"listings": entries,
		"limit":    opts.Limit,
		"offset":   opts.Offset,
	})
}

// GetListing returns a single listing by id.
// GET /api/listings/{id}
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing listing id")
		return
	}

	l, err := h.listings.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// DeactivateListing takes a listing off the catalogue. With purge=true the
// inactive record is deleted entirely.
// DELETE /api/listings/{id}?requester=<user>&purge=false
func (h *ListingHandler) DeactivateListing(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	requester := r.URL.Query().Get("requester")
	if id == "" || requester == "" {
		writeError(w, http.StatusBadRequest, "missing listing id or requester")
		return
	}

	var err error
	if r.URL.Query().Get("purge") == "true" {
		err = h.listings.Remove(r.Context(), id, requester)
	} else {
		err = h.listings.Deactivate(r.Context(), id, requester)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: deactivate listing failed",
			slog.String("listing_id", id),
			slog.String("error", err.Error()),
		)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
