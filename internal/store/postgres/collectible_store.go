package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/stickermart/internal/domain"
)

// CollectibleStore implements domain.CollectibleStore using PostgreSQL.
type CollectibleStore struct {
	pool *pgxpool.Pool
}

// NewCollectibleStore creates a new CollectibleStore backed by the given pool.
func NewCollectibleStore(pool *pgxpool.Pool) *CollectibleStore {
	return &CollectibleStore{pool: pool}
}

// Create inserts a new collectible record.
func (s *CollectibleStore) Create(ctx context.Context, c domain.Collectible) error {
	const q = `
		INSERT INTO collectibles (
			id, owner, sticker_id, name, description, image_url,
			chain, token_ref, metadata_url, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := exec(ctx, s.pool, q,
		c.ID, c.Owner, c.StickerID, c.Name, c.Description, c.ImageURL,
		string(c.Chain), c.TokenRef, c.MetadataURL, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create collectible %s: %w", c.ID, err)
	}
	return nil
}

const collectibleCols = `id, owner, sticker_id, name, description, image_url,
	chain, token_ref, metadata_url, created_at`

func scanCollectible(row pgx.Row) (domain.Collectible, error) {
	var c domain.Collectible
	var chain string
	err := row.Scan(
		&c.ID, &c.Owner, &c.StickerID, &c.Name, &c.Description, &c.ImageURL,
		&chain, &c.TokenRef, &c.MetadataURL, &c.CreatedAt,
	)
	c.Chain = domain.Currency(chain)
	return c, err
}

// GetByID returns the collectible with the given id.
func (s *CollectibleStore) GetByID(ctx context.Context, id string) (domain.Collectible, error) {
	c, err := scanCollectible(queryRow(ctx, s.pool,
		`SELECT `+collectibleCols+` FROM collectibles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Collectible{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Collectible{}, fmt.Errorf("postgres: get collectible %s: %w", id, err)
	}
	return c, nil
}

// ListByOwner returns the owner's collectibles, newest first.
func (s *CollectibleStore) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Collectible, error) {
	q := `SELECT ` + collectibleCols + ` FROM collectibles WHERE owner = $1 ORDER BY created_at DESC`
	args := []any{owner}
	q, args = paginate(q, args, opts)

	rows, err := query(ctx, s.pool, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list collectibles for %s: %w", owner, err)
	}
	defer rows.Close()

	var out []domain.Collectible
	for rows.Next() {
		c, err := scanCollectible(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan collectible: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list collectibles rows: %w", err)
	}
	return out, nil
}

// UpdateOwner transfers the collectible to a new owner.
func (s *CollectibleStore) UpdateOwner(ctx context.Context, id, owner string) error {
	tag, err := exec(ctx, s.pool,
		`UPDATE collectibles SET owner = $1 WHERE id = $2`, owner, id)
	if err != nil {
		return fmt.Errorf("postgres: update collectible owner %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateToken records the mint result on the collectible.
func (s *CollectibleStore) UpdateToken(ctx context.Context, id, tokenRef, metadataURL string) error {
	tag, err := exec(ctx, s.pool,
		`UPDATE collectibles SET token_ref = $1, metadata_url = $2 WHERE id = $3`,
		tokenRef, metadataURL, id)
	if err != nil {
		return fmt.Errorf("postgres: update collectible token %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the collectible record.
func (s *CollectibleStore) Delete(ctx context.Context, id string) error {
	tag, err := exec(ctx, s.pool, `DELETE FROM collectibles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete collectible %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
