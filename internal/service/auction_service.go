package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/stickermart/internal/clock"
	"github.com/alanyoungcy/stickermart/internal/domain"
)

// bidLockTTL bounds how long a bid placement can hold the per-listing lock.
const bidLockTTL = 10 * time.Second

// AuctionService handles bid placement and buy-now on auction listings.
// Placements serialize per listing through a distributed lock plus a row
// lock inside the transaction, so two racing bids always observe each
// other's increment.
type AuctionService struct {
	tx       domain.TxRunner
	listings domain.ListingStore
	bids     domain.BidStore
	orders   *OrderService
	locks    domain.LockManager
	bus      domain.SignalBus
	audit    domain.AuditStore
	clock    clock.Clock
	logger   *slog.Logger
}

// NewAuctionService creates an AuctionService with all required dependencies.
func NewAuctionService(
	tx domain.TxRunner,
	listings domain.ListingStore,
	bids domain.BidStore,
	orders *OrderService,
	locks domain.LockManager,
	bus domain.SignalBus,
	audit domain.AuditStore,
	clk clock.Clock,
	logger *slog.Logger,
) *AuctionService {
	return &AuctionService{
		tx:       tx,
		listings: listings,
		bids:     bids,
		orders:   orders,
		locks:    locks,
		bus:      bus,
		audit:    audit,
		clock:    clk,
		logger:   logger,
	}
}

// PlaceBid places a bid on an open auction. The amount must meet the
// minimum-increment rule: max(minBid, highestBidAmount) grown by the
// listing's increment percent. The bid is recorded pending together with
// its escrow order; it only becomes the visible leader once that order is
// confirmed paid.
func (s *AuctionService) PlaceBid(ctx context.Context, listingID, bidder string, amount float64, rail domain.Rail) (domain.Bid, domain.Order, error) {
	if bidder == "" {
		return domain.Bid{}, domain.Order{}, fmt.Errorf("auction_service: %w: bidder required", domain.ErrValidation)
	}
	if !rail.Valid() {
		return domain.Bid{}, domain.Order{}, fmt.Errorf("auction_service: %w: rail %q", domain.ErrValidation, rail)
	}

	unlock, err := s.locks.Acquire(ctx, "listing:"+listingID, bidLockTTL)
	if err != nil {
		return domain.Bid{}, domain.Order{}, fmt.Errorf("auction_service: lock listing %s: %w", listingID, err)
	}
	defer unlock()

	var (
		bid   domain.Bid
		order domain.Order
	)
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		l, err := s.listings.GetForUpdate(ctx, listingID)
		if err != nil {
			return fmt.Errorf("auction_service: listing %s: %w", listingID, err)
		}
		if !l.IsAuction() {
			return fmt.Errorf("auction_service: %w: listing %s is not an auction", domain.ErrValidation, listingID)
		}
		if !l.AuctionOpen(s.clock.Now()) {
			return domain.ErrAuctionClosed
		}
		if amount+domain.AmountTolerance < l.MinNextBid() {
			return domain.ErrBidTooLow
		}

		bidID := uuid.New().String()
		order, err = s.orders.CreateEscrow(ctx, l, bidder, rail, amount, bidID)
		if err != nil {
			return err
		}

		bid = domain.Bid{
			ID:               bidID,
			ListingID:        l.ID,
			Bidder:           bidder,
			Amount:           amount,
			Rail:             rail,
			CorrelationToken: order.CorrelationToken,
			Status:           domain.BidStatusPending,
			CreatedAt:        s.clock.Now(),
		}
		if err := s.bids.Create(ctx, bid); err != nil {
			return fmt.Errorf("auction_service: create bid: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Bid{}, domain.Order{}, err
	}

	s.publishBid(ctx, bid)
	return bid, order, nil
}

// BuyNow records the buyer as the auction's leader at the buy-now price.
// No escrow is created and nothing transfers here: the buyer pays through
// a regular order, and the sale settles when that payment confirms. The
// increment rule does not apply, but the buy-now price must still beat the
// current leader.
func (s *AuctionService) BuyNow(ctx context.Context, listingID, buyer string) (domain.Listing, error) {
	if buyer == "" {
		return domain.Listing{}, fmt.Errorf("auction_service: %w: buyer required", domain.ErrValidation)
	}

	unlock, err := s.locks.Acquire(ctx, "listing:"+listingID, bidLockTTL)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("auction_service: lock listing %s: %w", listingID, err)
	}
	defer unlock()

	var listing domain.Listing
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		l, err := s.listings.GetForUpdate(ctx, listingID)
		if err != nil {
			return fmt.Errorf("auction_service: listing %s: %w", listingID, err)
		}
		if !l.IsAuction() {
			return fmt.Errorf("auction_service: %w: listing %s is not an auction", domain.ErrValidation, listingID)
		}
		if !l.AuctionOpen(s.clock.Now()) {
			return domain.ErrAuctionClosed
		}
		if l.BuyNowPrice <= 0 {
			return fmt.Errorf("auction_service: %w: listing %s has no buy-now price", domain.ErrValidation, listingID)
		}
		if l.BuyNowPrice+domain.AmountTolerance < math.Max(l.MinBid, l.HighestBidAmount) {
			return domain.ErrBidTooLow
		}

		if err := s.listings.SetHighest(ctx, listingID, l.BuyNowPrice, buyer); err != nil {
			return fmt.Errorf("auction_service: record buy-now %s: %w", listingID, err)
		}
		l.HighestBidAmount = l.BuyNowPrice
		l.HighestBidder = buyer
		listing = l
		return nil
	})
	if err != nil {
		return domain.Listing{}, err
	}

	s.publishBuyNow(ctx, listing)
	return listing, nil
}

func (s *AuctionService) publishBid(ctx context.Context, bid domain.Bid) {
	payload, err := json.Marshal(map[string]any{
		"event":      "bid_placed",
		"bid_id":     bid.ID,
		"listing_id": bid.ListingID,
		"amount":     bid.Amount,
	})
	if err == nil {
		if pubErr := s.bus.Publish(ctx, "ch:listing", payload); pubErr != nil {
			s.logger.WarnContext(ctx, "bid event publish failed",
				slog.String("bid_id", bid.ID),
				slog.String("error", pubErr.Error()),
			)
		}
	}

	_ = s.audit.Log(ctx, "bid_placed", map[string]any{
		"bid_id":     bid.ID,
		"listing_id": bid.ListingID,
		"bidder":     bid.Bidder,
		"amount":     bid.Amount,
	})

	s.logger.InfoContext(ctx, "bid_placed",
		slog.String("bid_id", bid.ID),
		slog.String("listing_id", bid.ListingID),
		slog.Float64("amount", bid.Amount),
	)
}

func (s *AuctionService) publishBuyNow(ctx context.Context, l domain.Listing) {
	payload, err := json.Marshal(map[string]any{
		"event":      "buy_now_recorded",
		"listing_id": l.ID,
		"buyer":      l.HighestBidder,
		"amount":     l.HighestBidAmount,
	})
	if err == nil {
		if pubErr := s.bus.Publish(ctx, "ch:listing", payload); pubErr != nil {
			s.logger.WarnContext(ctx, "buy-now event publish failed",
				slog.String("listing_id", l.ID),
				slog.String("error", pubErr.Error()),
			)
		}
	}

	_ = s.audit.Log(ctx, "buy_now_recorded", map[string]any{
		"listing_id": l.ID,
		"buyer":      l.HighestBidder,
		"amount":     l.HighestBidAmount,
	})

	s.logger.InfoContext(ctx, "buy_now_recorded",
		slog.String("listing_id", l.ID),
		slog.String("buyer", l.HighestBidder),
		slog.Float64("amount", l.HighestBidAmount),
	)
}
