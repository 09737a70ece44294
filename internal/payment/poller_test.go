package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/stickermart/internal/domain"
	"github.com/alanyoungcy/stickermart/internal/platform/tonapi"
)

type scanResult struct {
	tx  tonapi.Transaction
	err error
}

type fakeScanner struct {
	results []scanResult
	calls   int
}

func (f *fakeScanner) FindTransferByComment(_ context.Context, _, _ string, _ int) (tonapi.Transaction, error) {
	if f.calls >= len(f.results) {
		f.calls++
		return tonapi.Transaction{}, domain.ErrNotFound
	}
	r := f.results[f.calls]
	f.calls++
	return r.tx, r.err
}

type fakeSettler struct {
	confirmed []string
	receipts  []domain.PaymentReceipt
	err       error
}

func (f *fakeSettler) ConfirmPayment(_ context.Context, orderID string, receipt domain.PaymentReceipt) error {
	f.confirmed = append(f.confirmed, orderID)
	f.receipts = append(f.receipts, receipt)
	return f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingTonOrder() domain.Order {
	return domain.Order{
		ID:               "order-1",
		Rail:             domain.RailTON,
		Status:           domain.OrderStatusPending,
		CorrelationToken: "order:1:l1:BUY",
	}
}

func newTestPoller(scanner ChainScanner, settler Settler, sleeps *[]time.Duration) *Poller {
	return NewPoller(scanner, nil, settler, "EQC_dest", testLogger(),
		WithSleep(func(_ context.Context, d time.Duration) error {
			if sleeps != nil {
				*sleeps = append(*sleeps, d)
			}
			return nil
		}),
	)
}

func TestVerifyOrderRejectsNonTonRail(t *testing.T) {
	p := newTestPoller(&fakeScanner{}, &fakeSettler{}, nil)

	order := pendingTonOrder()
	order.Rail = domain.RailStars

	_, err := p.VerifyOrder(context.Background(), order)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("VerifyOrder on Stars order: err = %v, want ErrValidation", err)
	}
}

func TestVerifyOrderRejectsNonPending(t *testing.T) {
	p := newTestPoller(&fakeScanner{}, &fakeSettler{}, nil)

	order := pendingTonOrder()
	order.Status = domain.OrderStatusPaid

	_, err := p.VerifyOrder(context.Background(), order)
	if !errors.Is(err, domain.ErrOrderNotPending) {
		t.Fatalf("VerifyOrder on paid order: err = %v, want ErrOrderNotPending", err)
	}
}

func TestVerifyOrderRetriesUntilMatch(t *testing.T) {
	scanner := &fakeScanner{results: []scanResult{
		{err: domain.ErrNotFound},
		{err: domain.ErrNotFound},
		{tx: tonapi.Transaction{Hash: "abc123", Success: true}},
	}}
	settler := &fakeSettler{}
	var sleeps []time.Duration
	p := newTestPoller(scanner, settler, &sleeps)

	settled, err := p.VerifyOrder(context.Background(), pendingTonOrder())
	if err != nil {
		t.Fatalf("VerifyOrder: %v", err)
	}
	if !settled {
		t.Fatal("VerifyOrder = false, want settled")
	}
	if scanner.calls != 3 {
		t.Fatalf("scanner called %d times, want 3", scanner.calls)
	}
	if len(settler.confirmed) != 1 || settler.confirmed[0] != "order-1" {
		t.Fatalf("settler confirmed %v, want [order-1]", settler.confirmed)
	}
	if settler.receipts[0].TxHash != "abc123" {
		t.Fatalf("receipt tx hash = %q, want abc123", settler.receipts[0].TxHash)
	}

	wantSleeps := []time.Duration{0, 2 * time.Second, 4 * time.Second}
	if len(sleeps) != len(wantSleeps) {
		t.Fatalf("sleeps = %v, want %v", sleeps, wantSleeps)
	}
	for i, w := range wantSleeps {
		if sleeps[i] != w {
			t.Fatalf("sleep %d = %v, want %v", i, sleeps[i], w)
		}
	}
}

func TestVerifyOrderExhaustsAttempts(t *testing.T) {
	scanner := &fakeScanner{}
	settler := &fakeSettler{}
	p := newTestPoller(scanner, settler, nil)

	settled, err := p.VerifyOrder(context.Background(), pendingTonOrder())
	if err != nil {
		t.Fatalf("VerifyOrder: %v", err)
	}
	if settled {
		t.Fatal("VerifyOrder = true with no matching transfer")
	}
	if scanner.calls != 3 {
		t.Fatalf("scanner called %d times, want 3", scanner.calls)
	}
	if len(settler.confirmed) != 0 {
		t.Fatalf("settler confirmed %v, want none", settler.confirmed)
	}
}

func TestVerifyOrderContinuesPastScanErrors(t *testing.T) {
	scanner := &fakeScanner{results: []scanResult{
		{err: domain.ErrExternalUnavailable},
		{tx: tonapi.Transaction{Hash: "def456", Success: true}},
	}}
	settler := &fakeSettler{}
	p := newTestPoller(scanner, settler, nil)

	settled, err := p.VerifyOrder(context.Background(), pendingTonOrder())
	if err != nil {
		t.Fatalf("VerifyOrder: %v", err)
	}
	if !settled {
		t.Fatal("VerifyOrder = false, want settled after transient scan failure")
	}
}

func TestVerifyOrderPropagatesSettlerError(t *testing.T) {
	scanner := &fakeScanner{results: []scanResult{
		{tx: tonapi.Transaction{Hash: "abc", Success: true}},
	}}
	settler := &fakeSettler{err: errors.New("db down")}
	p := newTestPoller(scanner, settler, nil)

	_, err := p.VerifyOrder(context.Background(), pendingTonOrder())
	if err == nil {
		t.Fatal("VerifyOrder should surface settler failure")
	}
}
