package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alanyoungcy/stickermart/internal/clock"
	"github.com/alanyoungcy/stickermart/internal/domain"
)

// ListingService handles listing creation, catalogue queries, deactivation,
// and removal.
type ListingService struct {
	listings     domain.ListingStore
	collectibles domain.CollectibleStore
	bus          domain.SignalBus
	audit        domain.AuditStore
	clock        clock.Clock
	logger       *slog.Logger
}

// NewListingService creates a ListingService with all required dependencies.
func NewListingService(
	listings domain.ListingStore,
	collectibles domain.CollectibleStore,
	bus domain.SignalBus,
	audit domain.AuditStore,
	clk clock.Clock,
	logger *slog.Logger,
) *ListingService {
	return &ListingService{
		listings:     listings,
		collectibles: collectibles,
		bus:          bus,
		audit:        audit,
		clock:        clk,
		logger:       logger,
	}
}

// CreateFixed lists a collectible at a fixed price.
func (s *ListingService) CreateFixed(ctx context.Context, seller, collectibleID string, currency domain.Currency, price float64) (domain.Listing, error) {
	if err := s.checkSeller(ctx, seller, collectibleID); err != nil {
		return domain.Listing{}, err
	}
	if !currency.Valid() {
		return domain.Listing{}, fmt.Errorf("listing_service: %w: currency %q", domain.ErrValidation, currency)
	}
	if price <= 0 {
		return domain.Listing{}, fmt.Errorf("listing_service: %w: price must be positive", domain.ErrValidation)
	}

	l := domain.Listing{
		ID:            uuid.New().String(),
		CollectibleID: collectibleID,
		Seller:        seller,
		Currency:      currency,
		Price:         price,
		Active:        true,
		Kind:          domain.ListingKindFixed,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.listings.Create(ctx, l); err != nil {
		return domain.Listing{}, fmt.Errorf("listing_service: create fixed: %w", err)
	}

	s.published(ctx, "listing_created", l)
	return l, nil
}

// CreateAuction lists a collectible as a 24-hour auction with the fixed
// minimum-increment policy. buyNowPrice of 0 disables buy-now.
func (s *ListingService) CreateAuction(ctx context.Context, seller, collectibleID string, currency domain.Currency, minBid, buyNowPrice float64) (domain.Listing, error) {
	if err := s.checkSeller(ctx, seller, collectibleID); err != nil {
		return domain.Listing{}, err
	}
	if !currency.Valid() {
		return domain.Listing{}, fmt.Errorf("listing_service: %w: currency %q", domain.ErrValidation, currency)
	}
	if minBid <= 0 {
		return domain.Listing{}, fmt.Errorf("listing_service: %w: min bid must be positive", domain.ErrValidation)
	}
	if buyNowPrice < 0 {
		return domain.Listing{}, fmt.Errorf("listing_service: %w: buy-now price cannot be negative", domain.ErrValidation)
	}

	now := s.clock.Now()
	l := domain.Listing{
		ID:               uuid.New().String(),
		CollectibleID:    collectibleID,
		Seller:           seller,
		Currency:         currency,
		Price:            minBid,
		Active:           true,
		Kind:             domain.ListingKindAuction,
		EndsAt:           now.Add(domain.AuctionDuration),
		MinBid:           minBid,
		BuyNowPrice:      buyNowPrice,
		IncrementPercent: domain.BidIncrementPercent,
		CreatedAt:        now,
	}
	if err := s.listings.Create(ctx, l); err != nil {
		return domain.Listing{}, fmt.Errorf("listing_service: create auction: %w", err)
	}

	s.published(ctx, "listing_created", l)
	return l, nil
}

// Get returns a listing by id.
func (s *ListingService) Get(ctx context.Context, id string) (domain.Listing, error) {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("listing_service: get %s: %w", id, err)
	}
	return l, nil
}

// Catalogue returns the active listings joined with their collectibles,
// optionally filtered by currency. Listings whose collectible record has
// vanished are skipped rather than failing the whole page.
func (s *ListingService) Catalogue(ctx context.Context, currency *domain.Currency, opts domain.ListOpts) ([]domain.CatalogueEntry, error) {
	listings, err := s.listings.ListActive(ctx, currency, opts)
	if err != nil {
		return nil, fmt.Errorf("listing_service: catalogue: %w", err)
	}

	out := make([]domain.CatalogueEntry, 0, len(listings))
	for _, l := range listings {
		c, err := s.collectibles.GetByID(ctx, l.CollectibleID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("listing_service: catalogue collectible %s: %w", l.CollectibleID, err)
		}
		out = append(out, domain.CatalogueEntry{Listing: l, Collectible: c})
	}
	return out, nil
}

// Deactivate takes a listing off the catalogue. The seller or the current
// collectible owner may deactivate. Pending orders against the listing are
// unaffected; a payment that confirms later still settles.
func (s *ListingService) Deactivate(ctx context.Context, id, requester string) error {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("listing_service: deactivate %s: %w", id, err)
	}
	if err := s.checkSellerOrOwner(ctx, requester, l); err != nil {
		return err
	}

	if err := s.listings.SetActive(ctx, id, false); err != nil {
		return fmt.Errorf("listing_service: deactivate %s: %w", id, err)
	}

	_ = s.audit.Log(ctx, "listing_deactivated", map[string]any{
		"listing_id": id,
		"requester":  requester,
	})
	s.logger.InfoContext(ctx, "listing deactivated",
		slog.String("listing_id", id),
	)
	return nil
}

// Remove deletes an inactive listing record entirely.
func (s *ListingService) Remove(ctx context.Context, id, requester string) error {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("listing_service: remove %s: %w", id, err)
	}
	if err := s.checkSellerOrOwner(ctx, requester, l); err != nil {
		return err
	}
	if l.Active {
		return fmt.Errorf("listing_service: remove %s: %w: deactivate first", id, domain.ErrValidation)
	}

	if err := s.listings.Delete(ctx, id); err != nil {
		return fmt.Errorf("listing_service: remove %s: %w", id, err)
	}

	_ = s.audit.Log(ctx, "listing_removed", map[string]any{
		"listing_id": id,
		"requester":  requester,
	})
	return nil
}

func (s *ListingService) checkSeller(ctx context.Context, seller, collectibleID string) error {
	c, err := s.collectibles.GetByID(ctx, collectibleID)
	if err != nil {
		return fmt.Errorf("listing_service: collectible %s: %w", collectibleID, err)
	}
	if c.Owner != seller {
		return domain.ErrNotOwner
	}
	return nil
}

func (s *ListingService) checkSellerOrOwner(ctx context.Context, requester string, l domain.Listing) error {
	if requester == l.Seller {
		return nil
	}
	c, err := s.collectibles.GetByID(ctx, l.CollectibleID)
	if err != nil {
		return fmt.Errorf("listing_service: collectible %s: %w", l.CollectibleID, err)
	}
	if c.Owner != requester {
		return domain.ErrNotOwner
	}
	return nil
}

func (s *ListingService) published(ctx context.Context, event string, l domain.Listing) {
	payload, err := json.Marshal(map[string]any{
		"event":      event,
		"listing_id": l.ID,
		"kind":       string(l.Kind),
		"currency":   string(l.Currency),
		"price":      l.Price,
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, "ch:listing", payload); err != nil {
		s.logger.WarnContext(ctx, "listing event publish failed",
			slog.String("listing_id", l.ID),
			slog.String("error", err.Error()),
		)
	}

	_ = s.audit.Log(ctx, event, map[string]any{
		"listing_id": l.ID,
		"kind":       string(l.Kind),
	})

	s.logger.InfoContext(ctx, event,
		slog.String("listing_id", l.ID),
		slog.String("kind", string(l.Kind)),
	)
}
