package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/stickermart/internal/domain"
	"github.com/alanyoungcy/stickermart/internal/platform/tonapi"
)

// ChainScanner finds incoming transfers by comment on the destination
// wallet. *tonapi.Client satisfies it.
type ChainScanner interface {
	FindTransferByComment(ctx context.Context, account, token string, limit int) (tonapi.Transaction, error)
}

// Settler applies a confirmed payment to its order. The settlement service
// satisfies it.
type Settler interface {
	ConfirmPayment(ctx context.Context, orderID string, receipt domain.PaymentReceipt) error
}

// Poller verifies pending TON orders by scanning the destination wallet's
// recent transactions for the order's correlation token.
type Poller struct {
	scanner ChainScanner
	orders  domain.OrderStore
	settler Settler
	logger  *slog.Logger

	wallet       string
	scanLimit    int
	policy       RetryPolicy
	pollInterval time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithRetryPolicy overrides the per-verification retry schedule.
func WithRetryPolicy(p RetryPolicy) PollerOption {
	return func(pl *Poller) { pl.policy = p }
}

// WithPollInterval overrides the background sweep interval.
func WithPollInterval(d time.Duration) PollerOption {
	return func(pl *Poller) { pl.pollInterval = d }
}

// WithScanLimit overrides how many recent transactions each scan inspects.
func WithScanLimit(n int) PollerOption {
	return func(pl *Poller) { pl.scanLimit = n }
}

// WithSleep replaces the delay function, used in tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) PollerOption {
	return func(pl *Poller) { pl.sleep = fn }
}

// NewPoller creates a Poller verifying transfers into wallet.
func NewPoller(scanner ChainScanner, orders domain.OrderStore, settler Settler, wallet string, logger *slog.Logger, opts ...PollerOption) *Poller {
	p := &Poller{
		scanner:      scanner,
		orders:       orders,
		settler:      settler,
		logger:       logger,
		wallet:       wallet,
		scanLimit:    50,
		policy:       DefaultRetryPolicy(),
		pollInterval: time.Minute,
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// VerifyOrder scans the chain for a transfer carrying the order's
// correlation token, retrying per the policy. On a match it hands the
// receipt to the settler and reports true. Exhausting all attempts without
// a match reports false with no error; the order stays pending for the next
// sweep.
func (p *Poller) VerifyOrder(ctx context.Context, order domain.Order) (bool, error) {
	if order.Rail != domain.RailTON {
		return false, fmt.Errorf("payment: verify order %s: %w: rail %s", order.ID, domain.ErrValidation, order.Rail)
	}
	if order.Status != domain.OrderStatusPending {
		return false, domain.ErrOrderNotPending
	}

	for attempt := 0; attempt < p.policy.Attempts; attempt++ {
		if err := p.sleep(ctx, p.policy.BackoffFor(attempt)); err != nil {
			return false, err
		}

		tx, err := p.scanner.FindTransferByComment(ctx, p.wallet, order.CorrelationToken, p.scanLimit)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			p.logger.WarnContext(ctx, "chain scan failed",
				slog.String("order_id", order.ID),
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()),
			)
			continue
		}

		receipt := domain.PaymentReceipt{TxHash: tx.Hash}
		if err := p.settler.ConfirmPayment(ctx, order.ID, receipt); err != nil {
			return false, fmt.Errorf("payment: confirm order %s: %w", order.ID, err)
		}

		p.logger.InfoContext(ctx, "ton payment verified",
			slog.String("order_id", order.ID),
			slog.String("tx_hash", tx.Hash),
			slog.Int("attempt", attempt+1),
		)
		return true, nil
	}

	return false, nil
}

// Run sweeps pending TON orders on the poll interval until the context is
// cancelled. Each sweep verifies every pending order once (single attempt,
// no backoff) so one slow order cannot starve the rest.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "payment poller started",
		slog.String("wallet", p.wallet),
		slog.Duration("interval", p.pollInterval),
	)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.InfoContext(ctx, "payment poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *Poller) sweep(ctx context.Context) {
	orders, err := p.orders.ListPendingByRail(ctx, domain.RailTON, domain.ListOpts{Limit: 100})
	if err != nil {
		p.logger.ErrorContext(ctx, "list pending ton orders failed",
			slog.String("error", err.Error()))
		return
	}

	sweepPolicy := RetryPolicy{Attempts: 1}
	for _, order := range orders {
		single := *p
		single.policy = sweepPolicy
		if _, err := single.VerifyOrder(ctx, order); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			p.logger.WarnContext(ctx, "sweep verification failed",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
