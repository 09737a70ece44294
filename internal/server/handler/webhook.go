package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/stickermart/internal/platform/telegram"
)

// UpdateProcessor handles decoded Telegram updates. The payment webhook
// processor satisfies it.
type UpdateProcessor interface {
	Process(ctx context.Context, update telegram.Update) error
}

// WebhookHandler receives Telegram webhook deliveries for the Stars rail.
type WebhookHandler struct {
	processor UpdateProcessor
	logger    *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler with the given processor.
func NewWebhookHandler(processor UpdateProcessor, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{processor: processor, logger: logger}
}

// HandleUpdate decodes and processes one webhook delivery. Malformed bodies
// get 200 so the Bot API does not retry garbage forever; only transient
// processing failures return 500 to trigger a redelivery.
// POST /telegram/webhook
func (h *WebhookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.WarnContext(r.Context(), "handler: malformed webhook body",
			slog.String("error", err.Error()),
		)
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.processor.Process(r.Context(), update); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: webhook processing failed",
			slog.Int64("update_id", update.UpdateID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	w.WriteHeader(http.StatusOK)
}
