package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/stickermart/internal/domain"
)

// maxUploadSize bounds sticker image uploads.
const maxUploadSize = 10 << 20 // 10 MiB

// CollectibleService defines what the collectible handler needs from the
// service layer.
type CollectibleService interface {
	CreateSticker(ctx context.Context, owner, name, description, contentType string, image io.Reader) (domain.Sticker, error)
	Mint(ctx context.Context, stickerID, owner string, chain domain.Currency) (domain.Collectible, error)
	Get(ctx context.Context, id string) (domain.Collectible, error)
	Metadata(ctx context.Context, id string) (domain.CollectibleMetadata, error)
	ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Collectible, error)
	Delete(ctx context.Context, id, requester string) error
}

// CollectibleHandler serves sticker upload, minting, and metadata endpoints.
type CollectibleHandler struct {
	collectibles CollectibleService
	logger       *slog.Logger
}

// NewCollectibleHandler creates a CollectibleHandler with the given service.
func NewCollectibleHandler(collectibles CollectibleService, logger *slog.Logger) *CollectibleHandler {
	return &CollectibleHandler{collectibles: collectibles, logger: logger}
}

// UploadSticker stores a sticker image and records the sticker. The image
// arrives as the raw request body; owner, name, and description come from
// query parameters.
// POST /api/stickers?owner=<user>&name=<name>&description=<text>
func (h *CollectibleHandler) UploadSticker(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner := q.Get("owner")
	name := q.Get("name")

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	body := http.MaxBytesReader(w, r.Body, maxUploadSize)
	st, err := h.collectibles.CreateSticker(r.Context(), owner, name, q.Get("description"), contentType, body)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: upload sticker failed",
			slog.String("error", err.Error()),
		)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, st)
}

type mintRequest struct {
	StickerID string `json:"stickerId"`
	Owner     string `json:"owner"`
	Chain     string `json:"chain"`
}

// Mint creates a collectible from an uploaded sticker.
// POST /api/collectibles
func (h *CollectibleHandler) Mint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.collectibles.Mint(r.Context(), req.StickerID, req.Owner, domain.Currency(req.Chain))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: mint failed",
			slog.String("sticker_id", req.StickerID),
			slog.String("error", err.Error()),
		)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

// ListCollectibles returns a user's collectibles.
// GET /api/collectibles?owner=<user>
func (h *CollectibleHandler) ListCollectibles(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "missing owner")
		return
	}

	out, err := h.collectibles.ListByOwner(r.Context(), owner, parseListOpts(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"collectibles": out})
}

// GetCollectible returns a single collectible by id.
// GET /api/collectibles/{id}
func (h *CollectibleHandler) GetCollectible(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing collectible id")
		return
	}

	c, err := h.collectibles.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GetMetadata serves the indexer metadata document for a collectible.
// GET /api/collectibles/{id}/metadata
func (h *CollectibleHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing collectible id")
		return
	}

	meta, err := h.collectibles.Metadata(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// DeleteCollectible removes a collectible that has no active listing.
// DELETE /api/collectibles/{id}?requester=<user>
func (h *CollectibleHandler) DeleteCollectible(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	requester := r.URL.Query().Get("requester")
	if id == "" || requester == "" {
		writeError(w, http.StatusBadRequest, "missing collectible id or requester")
		return
	}

	if err := h.collectibles.Delete(r.Context(), id, requester); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: delete collectible failed",
			slog.String("collectible_id", id),
			slog.String("error", err.Error()),
		)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
