package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/alanyoungcy/stickermart/internal/domain"
	"github.com/alanyoungcy/stickermart/internal/platform/telegram"
)

type fakeBot struct {
	preCheckoutOK  []string
	invoicesSent   []string
	invoiceAmounts []int64
	sendInvoiceErr error
}

func (f *fakeBot) AnswerPreCheckoutQuery(_ context.Context, queryID string, ok bool, _ string) error {
	if ok {
		f.preCheckoutOK = append(f.preCheckoutOK, queryID)
	}
	return nil
}

func (f *fakeBot) SendInvoice(_ context.Context, _ int64, _, _, payload string, amount int64) error {
	if f.sendInvoiceErr != nil {
		return f.sendInvoiceErr
	}
	f.invoicesSent = append(f.invoicesSent, payload)
	f.invoiceAmounts = append(f.invoiceAmounts, amount)
	return nil
}

func (f *fakeBot) SendMessage(_ context.Context, _ int64, _ string) error {
	return nil
}

type fakeTokenSettler struct {
	confirmed []string
	err       error
}

func (f *fakeTokenSettler) ConfirmByToken(_ context.Context, token string, _ domain.PaymentReceipt) error {
	if f.err != nil {
		return f.err
	}
	f.confirmed = append(f.confirmed, token)
	return nil
}

type fakeOrderStore struct {
	byToken map[string]domain.Order
}

func (f *fakeOrderStore) Create(context.Context, domain.Order) error { return nil }

func (f *fakeOrderStore) GetByID(context.Context, string) (domain.Order, error) {
	return domain.Order{}, domain.ErrNotFound
}

func (f *fakeOrderStore) FindPendingByToken(_ context.Context, token string) (domain.Order, error) {
	o, ok := f.byToken[token]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrderStore) ListPendingByRail(context.Context, domain.Rail, domain.ListOpts) ([]domain.Order, error) {
	return nil, nil
}

func (f *fakeOrderStore) MarkPaid(context.Context, string, domain.PaymentReceipt) (bool, error) {
	return false, nil
}

func (f *fakeOrderStore) MarkTerminal(context.Context, string, domain.OrderStatus) error {
	return nil
}

func TestProcessPreCheckoutAlwaysAnswersOK(t *testing.T) {
	bot := &fakeBot{}
	w := NewWebhookProcessor(bot, &fakeOrderStore{}, &fakeTokenSettler{}, testLogger())

	err := w.Process(context.Background(), telegram.Update{
		PreCheckoutQuery: &telegram.PreCheckoutQuery{ID: "q1", InvoicePayload: "tok"},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(bot.preCheckoutOK) != 1 || bot.preCheckoutOK[0] != "q1" {
		t.Fatalf("pre-checkout answers = %v, want [q1]", bot.preCheckoutOK)
	}
}

func TestProcessSuccessfulPaymentSettles(t *testing.T) {
	settler := &fakeTokenSettler{}
	w := NewWebhookProcessor(&fakeBot{}, &fakeOrderStore{}, settler, testLogger())

	err := w.Process(context.Background(), telegram.Update{
		Message: &telegram.Message{
			Chat: telegram.Chat{ID: 42},
			SuccessfulPayment: &telegram.SuccessfulPayment{
				InvoicePayload:          "order:1:l1:BUY",
				TelegramPaymentChargeID: "tg-charge",
			},
		},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(settler.confirmed) != 1 || settler.confirmed[0] != "order:1:l1:BUY" {
		t.Fatalf("settled tokens = %v, want [order:1:l1:BUY]", settler.confirmed)
	}
}

func TestProcessUnmatchedPayloadIgnored(t *testing.T) {
	settler := &fakeTokenSettler{err: domain.ErrNotFound}
	w := NewWebhookProcessor(&fakeBot{}, &fakeOrderStore{}, settler, testLogger())

	err := w.Process(context.Background(), telegram.Update{
		Message: &telegram.Message{
			SuccessfulPayment: &telegram.SuccessfulPayment{InvoicePayload: "stale"},
		},
	})
	if err != nil {
		t.Fatalf("unmatched payload should be dropped without error, got %v", err)
	}
}

func TestProcessSettlementErrorSurfaces(t *testing.T) {
	settler := &fakeTokenSettler{err: errors.New("db down")}
	w := NewWebhookProcessor(&fakeBot{}, &fakeOrderStore{}, settler, testLogger())

	err := w.Process(context.Background(), telegram.Update{
		Message: &telegram.Message{
			SuccessfulPayment: &telegram.SuccessfulPayment{InvoicePayload: "tok"},
		},
	})
	if err == nil {
		t.Fatal("transient settlement failure must surface so the Bot API redelivers")
	}
}

func TestProcessStartResendsInvoice(t *testing.T) {
	orders := &fakeOrderStore{byToken: map[string]domain.Order{
		"order:1:l1:BUY": {
			ID:               "o1",
			ListingID:        "l1",
			Rail:             domain.RailStars,
			Kind:             domain.OrderKindBuy,
			Status:           domain.OrderStatusPending,
			Amount:           25,
			CorrelationToken: "order:1:l1:BUY",
		},
	}}
	bot := &fakeBot{}
	w := NewWebhookProcessor(bot, orders, &fakeTokenSettler{}, testLogger())

	err := w.Process(context.Background(), telegram.Update{
		Message: &telegram.Message{
			Chat: telegram.Chat{ID: 7},
			Text: "/start order:1:l1:BUY",
		},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(bot.invoicesSent) != 1 || bot.invoicesSent[0] != "order:1:l1:BUY" {
		t.Fatalf("invoices resent = %v, want the order token", bot.invoicesSent)
	}
	if bot.invoiceAmounts[0] != 25 {
		t.Fatalf("resent invoice amount = %d, want 25", bot.invoiceAmounts[0])
	}
}

func TestProcessStartIgnoresUnknownAndNonStars(t *testing.T) {
	orders := &fakeOrderStore{byToken: map[string]domain.Order{
		"ton-token": {ID: "o2", Rail: domain.RailTON, Status: domain.OrderStatusPending},
	}}
	bot := &fakeBot{}
	w := NewWebhookProcessor(bot, orders, &fakeTokenSettler{}, testLogger())

	for _, text := range []string{"/start missing-token", "/start ton-token", "/start"} {
		err := w.Process(context.Background(), telegram.Update{
			Message: &telegram.Message{Chat: telegram.Chat{ID: 7}, Text: text},
		})
		if err != nil {
			t.Fatalf("Process(%q): %v", text, err)
		}
	}
	if len(bot.invoicesSent) != 0 {
		t.Fatalf("no invoice should be resent, got %v", bot.invoicesSent)
	}
}

func TestProcessIgnoresUnknownUpdateShapes(t *testing.T) {
	w := NewWebhookProcessor(&fakeBot{}, &fakeOrderStore{}, &fakeTokenSettler{}, testLogger())

	if err := w.Process(context.Background(), telegram.Update{}); err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if err := w.Process(context.Background(), telegram.Update{
		Message: &telegram.Message{Text: "hello"},
	}); err != nil {
		t.Fatalf("plain message: %v", err)
	}
}
