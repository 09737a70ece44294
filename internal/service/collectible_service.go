package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/stickermart/internal/clock"
	"github.com/alanyoungcy/stickermart/internal/domain"
)

// presignExpiry is how long resolved image URLs stay valid.
const presignExpiry = 24 * time.Hour

// CollectibleService handles sticker uploads, collectible minting, metadata
// serving, and deletion.
type CollectibleService struct {
	stickers     domain.StickerStore
	collectibles domain.CollectibleStore
	listings     domain.ListingStore
	blobW        domain.BlobWriter
	blobR        domain.BlobReader
	audit        domain.AuditStore
	clock        clock.Clock
	logger       *slog.Logger

	publicBaseURL string
}

// NewCollectibleService creates a CollectibleService with all required
// dependencies. publicBaseURL is the externally reachable API root used to
// build metadata URLs.
func NewCollectibleService(
	stickers domain.StickerStore,
	collectibles domain.CollectibleStore,
	listings domain.ListingStore,
	blobW domain.BlobWriter,
	blobR domain.BlobReader,
	audit domain.AuditStore,
	clk clock.Clock,
	logger *slog.Logger,
	publicBaseURL string,
) *CollectibleService {
	return &CollectibleService{
		stickers:      stickers,
		collectibles:  collectibles,
		listings:      listings,
		blobW:         blobW,
		blobR:         blobR,
		audit:         audit,
		clock:         clk,
		logger:        logger,
		publicBaseURL: publicBaseURL,
	}
}

// CreateSticker uploads the image and records the sticker.
func (s *CollectibleService) CreateSticker(ctx context.Context, owner, name, description, contentType string, image io.Reader) (domain.Sticker, error) {
	if owner == "" || name == "" {
		return domain.Sticker{}, fmt.Errorf("collectible_service: create sticker: %w: owner and name required", domain.ErrValidation)
	}

	id := uuid.New().String()
	fileKey := "stickers/" + id

	if err := s.blobW.Put(ctx, fileKey, image, contentType); err != nil {
		return domain.Sticker{}, fmt.Errorf("collectible_service: upload sticker image: %w", err)
	}

	imageURL, err := s.blobR.PresignGet(ctx, fileKey, presignExpiry)
	if err != nil {
		return domain.Sticker{}, fmt.Errorf("collectible_service: presign sticker image: %w", err)
	}

	st := domain.Sticker{
		ID:          id,
		Owner:       owner,
		FileKey:     fileKey,
		Name:        name,
		Description: description,
		ImageURL:    imageURL,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.stickers.Create(ctx, st); err != nil {
		return domain.Sticker{}, fmt.Errorf("collectible_service: create sticker: %w", err)
	}

	s.logger.InfoContext(ctx, "sticker created",
		slog.String("sticker_id", st.ID),
		slog.String("owner", owner),
	)
	return st, nil
}

// Mint creates a collectible from one of the owner's stickers, writes its
// metadata document to blob storage, and records the token reference.
func (s *CollectibleService) Mint(ctx context.Context, stickerID, owner string, chain domain.Currency) (domain.Collectible, error) {
	if !chain.Valid() {
		return domain.Collectible{}, fmt.Errorf("collectible_service: mint: %w: chain %q", domain.ErrValidation, chain)
	}

	st, err := s.stickers.GetByID(ctx, stickerID)
	if err != nil {
		return domain.Collectible{}, fmt.Errorf("collectible_service: mint: %w", err)
	}
	if st.Owner != owner {
		return domain.Collectible{}, domain.ErrNotOwner
	}

	c := domain.Collectible{
		ID:          uuid.New().String(),
		Owner:       owner,
		StickerID:   st.ID,
		Name:        st.Name,
		Description: st.Description,
		ImageURL:    st.ImageURL,
		Chain:       chain,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.collectibles.Create(ctx, c); err != nil {
		return domain.Collectible{}, fmt.Errorf("collectible_service: mint: %w", err)
	}

	metadataKey := "metadata/" + c.ID + ".json"
	doc, err := json.Marshal(c.Metadata())
	if err != nil {
		return domain.Collectible{}, fmt.Errorf("collectible_service: marshal metadata: %w", err)
	}
	if err := s.blobW.Put(ctx, metadataKey, bytes.NewReader(doc), "application/json"); err != nil {
		return domain.Collectible{}, fmt.Errorf("collectible_service: write metadata: %w", err)
	}

	tokenRef := fmt.Sprintf("%s:%s", chain, c.ID)
	metadataURL := fmt.Sprintf("%s/api/collectibles/%s/metadata", s.publicBaseURL, c.ID)
	if err := s.collectibles.UpdateToken(ctx, c.ID, tokenRef, metadataURL); err != nil {
		return domain.Collectible{}, fmt.Errorf("collectible_service: record token: %w", err)
	}
	c.TokenRef = tokenRef
	c.MetadataURL = metadataURL

	_ = s.audit.Log(ctx, "collectible_minted", map[string]any{
		"collectible_id": c.ID,
		"sticker_id":     st.ID,
		"owner":          owner,
		"chain":          string(chain),
	})

	s.logger.InfoContext(ctx, "collectible minted",
		slog.String("collectible_id", c.ID),
		slog.String("chain", string(chain)),
	)
	return c, nil
}

// Get returns a collectible by id.
func (s *CollectibleService) Get(ctx context.Context, id string) (domain.Collectible, error) {
	c, err := s.collectibles.GetByID(ctx, id)
	if err != nil {
		return domain.Collectible{}, fmt.Errorf("collectible_service: get %s: %w", id, err)
	}
	return c, nil
}

// Metadata returns the indexer view of a collectible.
func (s *CollectibleService) Metadata(ctx context.Context, id string) (domain.CollectibleMetadata, error) {
	c, err := s.collectibles.GetByID(ctx, id)
	if err != nil {
		return domain.CollectibleMetadata{}, fmt.Errorf("collectible_service: metadata %s: %w", id, err)
	}
	return c.Metadata(), nil
}

// ListByOwner returns the owner's collectibles.
func (s *CollectibleService) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Collectible, error) {
	out, err := s.collectibles.ListByOwner(ctx, owner, opts)
	if err != nil {
		return nil, fmt.Errorf("collectible_service: list for %s: %w", owner, err)
	}
	return out, nil
}

// Delete removes a collectible. A collectible with an active listing cannot
// be deleted; unlist it first.
func (s *CollectibleService) Delete(ctx context.Context, id, requester string) error {
	c, err := s.collectibles.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("collectible_service: delete %s: %w", id, err)
	}
	if c.Owner != requester {
		return domain.ErrNotOwner
	}

	_, err = s.listings.ActiveByCollectible(ctx, id)
	if err == nil {
		return domain.ErrCollectibleListed
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("collectible_service: delete %s: %w", id, err)
	}

	if err := s.collectibles.Delete(ctx, id); err != nil {
		return fmt.Errorf("collectible_service: delete %s: %w", id, err)
	}

	_ = s.audit.Log(ctx, "collectible_deleted", map[string]any{
		"collectible_id": id,
		"owner":          requester,
	})
	return nil
}
