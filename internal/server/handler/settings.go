package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/stickermart/internal/domain"
)

// RateService exposes the current conversion rate. The order service
// satisfies it.
type RateService interface {
	CurrentRate(ctx context.Context) (domain.Rate, error)
}

// SettingsHandler serves the public marketplace settings clients need to
// build payment UIs: the destination wallet, the bot username, and the
// current conversion rate.
type SettingsHandler struct {
	rates       RateService
	wallet      string
	botUsername string
	logger      *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(rates RateService, wallet, botUsername string, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		rates:       rates,
		wallet:      wallet,
		botUsername: botUsername,
		logger:      logger,
	}
}

// PublicSettings returns the marketplace's public settings.
// GET /api/settings/public
func (h *SettingsHandler) PublicSettings(w http.ResponseWriter, r *http.Request) {
	rate, err := h.rates.CurrentRate(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: current rate failed",
			slog.String("error", err.Error()),
		)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"destinationWallet": h.wallet,
		"botUsername":       h.botUsername,
		"starsPerTon":       rate.StarsPerTon,
		"rateTakenAt":       rate.TakenAt,
	})
}
