package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/stickermart/internal/clock"
	"github.com/alanyoungcy/stickermart/internal/domain"
)

type listingHarness struct {
	collectibles *memCollectibles
	listings     *memListings
	audit        *memAudit
	clock        *clock.Manual
	svc          *ListingService
}

func newListingHarness(cols ...domain.Collectible) *listingHarness {
	h := &listingHarness{
		collectibles: newMemCollectibles(cols...),
		listings:     newMemListings(),
		audit:        &memAudit{},
		clock:        clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
	h.svc = NewListingService(
		h.listings, h.collectibles, newMemBus(), h.audit, h.clock, testLogger(),
	)
	return h
}

func TestCreateAuctionFixedPolicy(t *testing.T) {
	h := newListingHarness(aliceCollectible())

	l, err := h.svc.CreateAuction(context.Background(), "alice", "col-1", domain.CurrencyTON, 1, 2)
	if err != nil {
		t.Fatalf("CreateAuction: %v", err)
	}

	wantEnd := h.clock.Now().Add(24 * time.Hour)
	if !l.EndsAt.Equal(wantEnd) {
		t.Fatalf("EndsAt = %v, want %v", l.EndsAt, wantEnd)
	}
	if l.IncrementPercent != 20 {
		t.Fatalf("IncrementPercent = %v, want 20", l.IncrementPercent)
	}
	if l.Price != l.MinBid {
		t.Fatalf("Price = %v, want mirror of MinBid %v", l.Price, l.MinBid)
	}
	if !l.Active || l.Kind != domain.ListingKindAuction {
		t.Fatalf("listing = %+v", l)
	}
}

func TestCreateListingRequiresOwnership(t *testing.T) {
	h := newListingHarness(aliceCollectible())

	_, err := h.svc.CreateFixed(context.Background(), "bob", "col-1", domain.CurrencyTON, 3)
	if !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("non-owner listing: err = %v, want ErrNotOwner", err)
	}
}

func TestCreateListingRejectsDoubleListing(t *testing.T) {
	h := newListingHarness(aliceCollectible())
	ctx := context.Background()

	if _, err := h.svc.CreateFixed(ctx, "alice", "col-1", domain.CurrencyTON, 3); err != nil {
		t.Fatalf("first listing: %v", err)
	}
	_, err := h.svc.CreateFixed(ctx, "alice", "col-1", domain.CurrencyTON, 4)
	if !errors.Is(err, domain.ErrCollectibleListed) {
		t.Fatalf("second listing: err = %v, want ErrCollectibleListed", err)
	}
}

func TestCreateListingValidatesInput(t *testing.T) {
	h := newListingHarness(aliceCollectible())
	ctx := context.Background()

	if _, err := h.svc.CreateFixed(ctx, "alice", "col-1", domain.Currency("USD"), 3); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("bad currency: err = %v, want ErrValidation", err)
	}
	if _, err := h.svc.CreateFixed(ctx, "alice", "col-1", domain.CurrencyTON, 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("zero price: err = %v, want ErrValidation", err)
	}
	if _, err := h.svc.CreateAuction(ctx, "alice", "col-1", domain.CurrencyTON, 0, 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("zero min bid: err = %v, want ErrValidation", err)
	}
	if _, err := h.svc.CreateAuction(ctx, "alice", "col-1", domain.CurrencyTON, 1, -1); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("negative buy-now: err = %v, want ErrValidation", err)
	}
}

func TestCatalogueJoinsCollectibles(t *testing.T) {
	h := newListingHarness(aliceCollectible())
	ctx := context.Background()

	l, err := h.svc.CreateFixed(ctx, "alice", "col-1", domain.CurrencyTON, 3)
	if err != nil {
		t.Fatalf("CreateFixed: %v", err)
	}

	entries, err := h.svc.Catalogue(ctx, nil, domain.ListOpts{Limit: 10})
	if err != nil {
		t.Fatalf("Catalogue: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Listing.ID != l.ID || entries[0].Collectible.ID != "col-1" {
		t.Fatalf("entry = %+v", entries[0])
	}

	stars := domain.CurrencyStars
	entries, err = h.svc.Catalogue(ctx, &stars, domain.ListOpts{Limit: 10})
	if err != nil {
		t.Fatalf("Catalogue filtered: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("STARS entries = %d, want 0", len(entries))
	}
}

func TestDeactivateAndRemove(t *testing.T) {
	h := newListingHarness(aliceCollectible())
	ctx := context.Background()

	l, err := h.svc.CreateFixed(ctx, "alice", "col-1", domain.CurrencyTON, 3)
	if err != nil {
		t.Fatalf("CreateFixed: %v", err)
	}

	if err := h.svc.Deactivate(ctx, l.ID, "mallory"); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("stranger deactivate: err = %v, want ErrNotOwner", err)
	}

	// Remove requires deactivation first.
	if err := h.svc.Remove(ctx, l.ID, "alice"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("remove active listing: err = %v, want ErrValidation", err)
	}

	if err := h.svc.Deactivate(ctx, l.ID, "alice"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if err := h.svc.Remove(ctx, l.ID, "alice"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := h.svc.Get(ctx, l.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("removed listing still present: err = %v", err)
	}
}
