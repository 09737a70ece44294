package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/stickermart/internal/domain"
	"github.com/alanyoungcy/stickermart/internal/platform/telegram"
)

// InvoiceBot is the Bot API surface the webhook processor needs.
// *telegram.Client satisfies it.
type InvoiceBot interface {
	AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errorMessage string) error
	SendInvoice(ctx context.Context, chatID int64, title, description, payload string, amount int64) error
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// TokenSettler confirms a payment identified by its correlation token. The
// settlement service satisfies it.
type TokenSettler interface {
	ConfirmByToken(ctx context.Context, token string, receipt domain.PaymentReceipt) error
}

// WebhookProcessor handles incoming Telegram updates for the Stars rail:
// pre-checkout confirmations, successful payments, and /start deep links
// that resend a pending invoice.
type WebhookProcessor struct {
	bot     InvoiceBot
	orders  domain.OrderStore
	settler TokenSettler
	logger  *slog.Logger
}

// NewWebhookProcessor creates a WebhookProcessor.
func NewWebhookProcessor(bot InvoiceBot, orders domain.OrderStore, settler TokenSettler, logger *slog.Logger) *WebhookProcessor {
	return &WebhookProcessor{
		bot:     bot,
		orders:  orders,
		settler: settler,
		logger:  logger,
	}
}

// Process dispatches one update. Unknown update shapes are ignored without
// error; the Bot API retries deliveries that fail, so only transient
// problems should surface as errors.
func (w *WebhookProcessor) Process(ctx context.Context, update telegram.Update) error {
	switch {
	case update.PreCheckoutQuery != nil:
		return w.handlePreCheckout(ctx, *update.PreCheckoutQuery)
	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		return w.handleSuccessfulPayment(ctx, *update.Message)
	case update.Message != nil && strings.HasPrefix(update.Message.Text, "/start"):
		return w.handleStart(ctx, *update.Message)
	default:
		return nil
	}
}

// handlePreCheckout always answers ok. The real settlement decision happens
// on the successful_payment update; rejecting here would only strand a payer
// whose order settled through another path in the meantime.
func (w *WebhookProcessor) handlePreCheckout(ctx context.Context, q telegram.PreCheckoutQuery) error {
	if err := w.bot.AnswerPreCheckoutQuery(ctx, q.ID, true, ""); err != nil {
		return fmt.Errorf("payment: answer pre-checkout: %w", err)
	}
	w.logger.InfoContext(ctx, "pre-checkout answered",
		slog.String("query_id", q.ID),
		slog.String("payload", q.InvoicePayload),
	)
	return nil
}

func (w *WebhookProcessor) handleSuccessfulPayment(ctx context.Context, msg telegram.Message) error {
	sp := msg.SuccessfulPayment
	receipt := domain.PaymentReceipt{
		TelegramChargeID: sp.TelegramPaymentChargeID,
		ProviderChargeID: sp.ProviderPaymentChargeID,
	}

	err := w.settler.ConfirmByToken(ctx, sp.InvoicePayload, receipt)
	if errors.Is(err, domain.ErrNotFound) {
		// Unknown or already settled payload. Drop the event.
		w.logger.WarnContext(ctx, "payment with unmatched payload ignored",
			slog.String("payload", sp.InvoicePayload),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("payment: confirm stars payment: %w", err)
	}

	w.logger.InfoContext(ctx, "stars payment settled",
		slog.String("payload", sp.InvoicePayload),
		slog.String("charge_id", sp.TelegramPaymentChargeID),
	)
	return nil
}

// handleStart resends the invoice for a pending Stars order when the user
// opens the bot through the order's deep link.
func (w *WebhookProcessor) handleStart(ctx context.Context, msg telegram.Message) error {
	payload := strings.TrimSpace(strings.TrimPrefix(msg.Text, "/start"))
	if payload == "" {
		return nil
	}

	order, err := w.orders.FindPendingByToken(ctx, payload)
	if errors.Is(err, domain.ErrNotFound) {
		w.logger.InfoContext(ctx, "start link with no pending order",
			slog.String("payload", payload),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("payment: look up start payload: %w", err)
	}
	if order.Rail != domain.RailStars {
		return nil
	}

	title := "Sticker purchase"
	if order.Kind == domain.OrderKindBidEscrow {
		title = "Bid escrow"
	}
	err = w.bot.SendInvoice(ctx, msg.Chat.ID, title,
		fmt.Sprintf("Payment for listing %s", order.ListingID),
		order.CorrelationToken, int64(order.Amount))
	if err != nil {
		return fmt.Errorf("payment: resend invoice for %s: %w", order.ID, err)
	}

	w.logger.InfoContext(ctx, "invoice resent",
		slog.String("order_id", order.ID),
		slog.Int64("chat_id", msg.Chat.ID),
	)
	return nil
}
