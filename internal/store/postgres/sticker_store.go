package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/stickermart/internal/domain"
)

// StickerStore implements domain.StickerStore using PostgreSQL.
type StickerStore struct {
	pool *pgxpool.Pool
}

// NewStickerStore creates a new StickerStore backed by the given pool.
func NewStickerStore(pool *pgxpool.Pool) *StickerStore {
	return &StickerStore{pool: pool}
}

// Create inserts a new sticker record.
func (s *StickerStore) Create(ctx context.Context, st domain.Sticker) error {
	const q = `
		INSERT INTO stickers (id, owner, file_key, name, description, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := exec(ctx, s.pool, q,
		st.ID, st.Owner, st.FileKey, st.Name, st.Description, st.ImageURL, st.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create sticker %s: %w", st.ID, err)
	}
	return nil
}

const stickerCols = `id, owner, file_key, name, description, image_url, created_at`

func scanSticker(row pgx.Row) (domain.Sticker, error) {
	var st domain.Sticker
	err := row.Scan(&st.ID, &st.Owner, &st.FileKey, &st.Name, &st.Description, &st.ImageURL, &st.CreatedAt)
	return st, err
}

// GetByID returns the sticker with the given id.
func (s *StickerStore) GetByID(ctx context.Context, id string) (domain.Sticker, error) {
	st, err := scanSticker(queryRow(ctx, s.pool,
		`SELECT `+stickerCols+` FROM stickers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Sticker{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Sticker{}, fmt.Errorf("postgres: get sticker %s: %w", id, err)
	}
	return st, nil
}

// ListByOwner returns the owner's stickers, newest first.
func (s *StickerStore) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Sticker, error) {
	q := `SELECT ` + stickerCols + ` FROM stickers WHERE owner = $1 ORDER BY created_at DESC`
	args := []any{owner}
	q, args = paginate(q, args, opts)

	rows, err := query(ctx, s.pool, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stickers for %s: %w", owner, err)
	}
	defer rows.Close()

	var out []domain.Sticker
	for rows.Next() {
		st, err := scanSticker(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan sticker: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list stickers rows: %w", err)
	}
	return out, nil
}

// paginate appends LIMIT/OFFSET clauses to q for the given opts.
func paginate(q string, args []any, opts domain.ListOpts) (string, []any) {
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return q, args
}
