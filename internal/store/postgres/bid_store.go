package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/stickermart/internal/domain"
)

// BidStore implements domain.BidStore using PostgreSQL.
type BidStore struct {
	pool *pgxpool.Pool
}

// NewBidStore creates a new BidStore backed by the given pool.
func NewBidStore(pool *pgxpool.Pool) *BidStore {
	return &BidStore{pool: pool}
}

// Create inserts a new bid.
func (s *BidStore) Create(ctx context.Context, b domain.Bid) error {
	const q = `
		INSERT INTO bids (id, listing_id, bidder, amount, rail, correlation_token, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := exec(ctx, s.pool, q,
		b.ID, b.ListingID, b.Bidder, b.Amount, string(b.Rail),
		b.CorrelationToken, string(b.Status), b.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create bid %s: %w", b.ID, err)
	}
	return nil
}

const bidCols = `id, listing_id, bidder, amount, rail, correlation_token, status, created_at`

func scanBid(row pgx.Row) (domain.Bid, error) {
	var b domain.Bid
	var rail, status string
	err := row.Scan(&b.ID, &b.ListingID, &b.Bidder, &b.Amount, &rail,
		&b.CorrelationToken, &status, &b.CreatedAt)
	b.Rail = domain.Rail(rail)
	b.Status = domain.BidStatus(status)
	return b, err
}

// GetByID returns the bid with the given id.
func (s *BidStore) GetByID(ctx context.Context, id string) (domain.Bid, error) {
	b, err := scanBid(queryRow(ctx, s.pool,
		`SELECT `+bidCols+` FROM bids WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Bid{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Bid{}, fmt.Errorf("postgres: get bid %s: %w", id, err)
	}
	return b, nil
}

// SetFunded marks the bid funded and records the escrow order's correlation
// token on it.
func (s *BidStore) SetFunded(ctx context.Context, id, correlationToken string) error {
	tag, err := exec(ctx, s.pool,
		`UPDATE bids SET status = $1, correlation_token = $2 WHERE id = $3`,
		string(domain.BidStatusFunded), correlationToken, id)
	if err != nil {
		return fmt.Errorf("postgres: set bid funded %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByListing returns the listing's bids with the given status, newest
// first.
func (s *BidStore) ListByListing(ctx context.Context, listingID string, status domain.BidStatus) ([]domain.Bid, error) {
	rows, err := query(ctx, s.pool,
		`SELECT `+bidCols+` FROM bids WHERE listing_id = $1 AND status = $2 ORDER BY created_at DESC`,
		listingID, string(status))
	if err != nil {
		return nil, fmt.Errorf("postgres: list bids for %s: %w", listingID, err)
	}
	defer rows.Close()

	var out []domain.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan bid: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list bids rows: %w", err)
	}
	return out, nil
}
