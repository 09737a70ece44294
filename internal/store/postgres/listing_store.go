package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/stickermart/internal/domain"
)

// ListingStore implements domain.ListingStore using PostgreSQL.
type ListingStore struct {
	pool *pgxpool.Pool
}

// NewListingStore creates a new ListingStore backed by the given pool.
func NewListingStore(pool *pgxpool.Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

// Create inserts a new listing. The partial unique index on
// (collectible_id) WHERE active surfaces as ErrCollectibleListed when the
// collectible already has an active listing.
func (s *ListingStore) Create(ctx context.Context, l domain.Listing) error {
	const q = `
		INSERT INTO listings (
			id, collectible_id, seller, currency, price, active, kind,
			ends_at, min_bid, buy_now_price, increment_percent,
			highest_bid_amount, highest_bidder, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	var endsAt *time.Time
	if !l.EndsAt.IsZero() {
		endsAt = &l.EndsAt
	}

	_, err := exec(ctx, s.pool, q,
		l.ID, l.CollectibleID, l.Seller, string(l.Currency), l.Price, l.Active, string(l.Kind),
		endsAt, l.MinBid, l.BuyNowPrice, l.IncrementPercent,
		l.HighestBidAmount, l.HighestBidder, l.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrCollectibleListed
		}
		return fmt.Errorf("postgres: create listing %s: %w", l.ID, err)
	}
	return nil
}

const listingCols = `id, collectible_id, seller, currency, price, active, kind,
	ends_at, min_bid, buy_now_price, increment_percent,
	highest_bid_amount, highest_bidder, created_at`

func scanListing(row pgx.Row) (domain.Listing, error) {
	var l domain.Listing
	var currency, kind string
	var endsAt *time.Time

	err := row.Scan(
		&l.ID, &l.CollectibleID, &l.Seller, &currency, &l.Price, &l.Active, &kind,
		&endsAt, &l.MinBid, &l.BuyNowPrice, &l.IncrementPercent,
		&l.HighestBidAmount, &l.HighestBidder, &l.CreatedAt,
	)
	if err != nil {
		return domain.Listing{}, err
	}

	l.Currency = domain.Currency(currency)
	l.Kind = domain.ListingKind(kind)
	if endsAt != nil {
		l.EndsAt = *endsAt
	}
	return l, nil
}

// GetByID returns the listing with the given id.
func (s *ListingStore) GetByID(ctx context.Context, id string) (domain.Listing, error) {
	l, err := scanListing(queryRow(ctx, s.pool,
		`SELECT `+listingCols+` FROM listings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Listing{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Listing{}, fmt.Errorf("postgres: get listing %s: %w", id, err)
	}
	return l, nil
}

// GetForUpdate returns the listing with a row lock held for the duration of
// the surrounding transaction. Concurrent bid placements on the same auction
// serialize on this lock.
func (s *ListingStore) GetForUpdate(ctx context.Context, id string) (domain.Listing, error) {
	l, err := scanListing(queryRow(ctx, s.pool,
		`SELECT `+listingCols+` FROM listings WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Listing{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Listing{}, fmt.Errorf("postgres: lock listing %s: %w", id, err)
	}
	return l, nil
}

// ListActive returns active listings, optionally filtered by currency,
// newest first.
func (s *ListingStore) ListActive(ctx context.Context, currency *domain.Currency, opts domain.ListOpts) ([]domain.Listing, error) {
	q := `SELECT ` + listingCols + ` FROM listings WHERE active`
	args := []any{}
	if currency != nil {
		args = append(args, string(*currency))
		q += fmt.Sprintf(" AND currency = $%d", len(args))
	}
	q += " ORDER BY created_at DESC"
	q, args = paginate(q, args, opts)

	rows, err := query(ctx, s.pool, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active listings: %w", err)
	}
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list active listings rows: %w", err)
	}
	return out, nil
}

// ActiveByCollectible returns the active listing for a collectible, if any.
func (s *ListingStore) ActiveByCollectible(ctx context.Context, collectibleID string) (domain.Listing, error) {
	l, err := scanListing(queryRow(ctx, s.pool,
		`SELECT `+listingCols+` FROM listings WHERE collectible_id = $1 AND active`,
		collectibleID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Listing{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Listing{}, fmt.Errorf("postgres: active listing for %s: %w", collectibleID, err)
	}
	return l, nil
}

// SetActive flips the listing's active flag.
func (s *ListingStore) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := exec(ctx, s.pool,
		`UPDATE listings SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("postgres: set listing active %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetHighest promotes the recorded highest bid on an auction listing.
func (s *ListingStore) SetHighest(ctx context.Context, id string, amount float64, bidder string) error {
	tag, err := exec(ctx, s.pool,
		`UPDATE listings SET highest_bid_amount = $1, highest_bidder = $2 WHERE id = $3`,
		amount, bidder, id)
	if err != nil {
		return fmt.Errorf("postgres: set listing highest %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the listing record.
func (s *ListingStore) Delete(ctx context.Context, id string) error {
	tag, err := exec(ctx, s.pool, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete listing %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
