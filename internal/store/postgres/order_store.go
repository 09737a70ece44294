package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/stickermart/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates a new OrderStore backed by the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Create inserts a new order with its rail payment details flattened into
// the row.
func (s *OrderStore) Create(ctx context.Context, o domain.Order) error {
	const q = `
		INSERT INTO orders (
			id, listing_id, buyer, kind, rail, amount, status,
			correlation_token, bid_id,
			ton_to, ton_comment, ton_deeplink, ton_tx_hash, ton_verified,
			stars_invoice_link, stars_payload,
			stars_telegram_charge_id, stars_provider_charge_id,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9,
			$10, $11, $12, $13, $14,
			$15, $16, $17, $18,
			$19, $20
		)`

	ton := o.Ton
	if ton == nil {
		ton = &domain.TonPayment{}
	}
	stars := o.Stars
	if stars == nil {
		stars = &domain.StarsPayment{}
	}

	_, err := exec(ctx, s.pool, q,
		o.ID, o.ListingID, o.Buyer, string(o.Kind), string(o.Rail), o.Amount, string(o.Status),
		o.CorrelationToken, o.BidID,
		ton.To, ton.Comment, ton.Deeplink, ton.TxHash, ton.Verified,
		stars.InvoiceLink, stars.Payload,
		stars.TelegramChargeID, stars.ProviderChargeID,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create order %s: %w", o.ID, err)
	}
	return nil
}

const orderCols = `id, listing_id, buyer, kind, rail, amount, status,
	correlation_token, bid_id,
	ton_to, ton_comment, ton_deeplink, ton_tx_hash, ton_verified,
	stars_invoice_link, stars_payload,
	stars_telegram_charge_id, stars_provider_charge_id,
	created_at, updated_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var kind, rail, status string
	var ton domain.TonPayment
	var stars domain.StarsPayment

	err := row.Scan(
		&o.ID, &o.ListingID, &o.Buyer, &kind, &rail, &o.Amount, &status,
		&o.CorrelationToken, &o.BidID,
		&ton.To, &ton.Comment, &ton.Deeplink, &ton.TxHash, &ton.Verified,
		&stars.InvoiceLink, &stars.Payload,
		&stars.TelegramChargeID, &stars.ProviderChargeID,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}

	o.Kind = domain.OrderKind(kind)
	o.Rail = domain.Rail(rail)
	o.Status = domain.OrderStatus(status)
	switch o.Rail {
	case domain.RailTON:
		o.Ton = &ton
	case domain.RailStars:
		o.Stars = &stars
	}
	return o, nil
}

// GetByID returns the order with the given id.
func (s *OrderStore) GetByID(ctx context.Context, id string) (domain.Order, error) {
	o, err := scanOrder(queryRow(ctx, s.pool,
		`SELECT `+orderCols+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("postgres: get order %s: %w", id, err)
	}
	return o, nil
}

// FindPendingByToken returns the pending order carrying the given
// correlation token. Confirmations referencing settled or unknown tokens get
// ErrNotFound.
func (s *OrderStore) FindPendingByToken(ctx context.Context, token string) (domain.Order, error) {
	o, err := scanOrder(queryRow(ctx, s.pool,
		`SELECT `+orderCols+` FROM orders WHERE correlation_token = $1 AND status = $2`,
		token, string(domain.OrderStatusPending)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("postgres: find pending order by token: %w", err)
	}
	return o, nil
}

// ListPendingByRail returns pending orders on the given rail, oldest first,
// for the background verification sweep.
func (s *OrderStore) ListPendingByRail(ctx context.Context, rail domain.Rail, opts domain.ListOpts) ([]domain.Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders WHERE rail = $1 AND status = $2 ORDER BY created_at ASC`
	args := []any{string(rail), string(domain.OrderStatusPending)}
	q, args = paginate(q, args, opts)

	rows, err := query(ctx, s.pool, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pending orders for %s: %w", rail, err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list pending orders rows: %w", err)
	}
	return out, nil
}

// MarkPaid transitions the order from pending to paid and records the
// payment receipt. The WHERE status = 'pending' guard makes the transition a
// compare-and-swap: a false return means another confirmation got there
// first (or the order is terminal) and the caller must treat the event as a
// no-op.
func (s *OrderStore) MarkPaid(ctx context.Context, id string, receipt domain.PaymentReceipt) (bool, error) {
	const q = `
		UPDATE orders SET
			status = $2,
			ton_tx_hash = CASE WHEN $3 <> '' THEN $3 ELSE ton_tx_hash END,
			ton_verified = ton_verified OR $3 <> '',
			stars_telegram_charge_id = CASE WHEN $4 <> '' THEN $4 ELSE stars_telegram_charge_id END,
			stars_provider_charge_id = CASE WHEN $5 <> '' THEN $5 ELSE stars_provider_charge_id END,
			updated_at = NOW()
		WHERE id = $1 AND status = $6`

	tag, err := exec(ctx, s.pool, q,
		id, string(domain.OrderStatusPaid),
		receipt.TxHash, receipt.TelegramChargeID, receipt.ProviderChargeID,
		string(domain.OrderStatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("postgres: mark order paid %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkTerminal moves a pending order to failed or cancelled. Orders already
// terminal are left untouched and reported as ErrOrderNotPending.
func (s *OrderStore) MarkTerminal(ctx context.Context, id string, status domain.OrderStatus) error {
	if status != domain.OrderStatusFailed && status != domain.OrderStatusCancelled {
		return fmt.Errorf("postgres: mark order terminal %s: %w: status %q", id, domain.ErrValidation, status)
	}

	tag, err := exec(ctx, s.pool,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		string(status), id, string(domain.OrderStatusPending))
	if err != nil {
		return fmt.Errorf("postgres: mark order terminal %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotPending
	}
	return nil
}
