package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/alanyoungcy/stickermart/internal/clock"
	"github.com/alanyoungcy/stickermart/internal/domain"
)

// Notifier delivers operator notifications. *notify.Notifier satisfies it.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// SettlementService is the only component that mutates ownership. Every
// path into it funnels through the order status compare-and-swap, so a
// confirmation delivered twice, or raced between the two rails, settles
// exactly once and degrades to a no-op afterwards.
type SettlementService struct {
	tx           domain.TxRunner
	orders       domain.OrderStore
	bids         domain.BidStore
	listings     domain.ListingStore
	collectibles domain.CollectibleStore
	bus          domain.SignalBus
	audit        domain.AuditStore
	notifier     Notifier
	clock        clock.Clock
	logger       *slog.Logger
}

// NewSettlementService creates a SettlementService with all required
// dependencies.
func NewSettlementService(
	tx domain.TxRunner,
	orders domain.OrderStore,
	bids domain.BidStore,
	listings domain.ListingStore,
	collectibles domain.CollectibleStore,
	bus domain.SignalBus,
	audit domain.AuditStore,
	notifier Notifier,
	clk clock.Clock,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		tx:           tx,
		orders:       orders,
		bids:         bids,
		listings:     listings,
		collectibles: collectibles,
		bus:          bus,
		audit:        audit,
		notifier:     notifier,
		clock:        clk,
		logger:       logger,
	}
}

// ConfirmPayment applies a payment confirmation to its order. The whole
// mutation runs in one transaction anchored on the pending-to-paid
// compare-and-swap: when the swap reports no rows the order was already
// settled (or cancelled) and the confirmation is dropped without error.
//
// A confirmation settles even when the listing has been deactivated in the
// meantime; the payment wins.
func (s *SettlementService) ConfirmPayment(ctx context.Context, orderID string, receipt domain.PaymentReceipt) error {
	var (
		settled bool
		order   domain.Order
	)

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		swapped, err := s.orders.MarkPaid(ctx, orderID, receipt)
		if err != nil {
			return err
		}
		if !swapped {
			return nil
		}

		order, err = s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		listing, err := s.listings.GetForUpdate(ctx, order.ListingID)
		if err != nil {
			return fmt.Errorf("settlement: listing %s: %w", order.ListingID, err)
		}

		switch order.Kind {
		case domain.OrderKindBuy:
			if err := s.settleSale(ctx, listing, order); err != nil {
				return err
			}
		case domain.OrderKindBidEscrow:
			if err := s.fundBid(ctx, listing, order); err != nil {
				return err
			}
		default:
			return fmt.Errorf("settlement: %w: order kind %q", domain.ErrValidation, order.Kind)
		}

		settled = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("settlement: confirm order %s: %w", orderID, err)
	}

	if !settled {
		s.logger.InfoContext(ctx, "duplicate confirmation ignored",
			slog.String("order_id", orderID),
		)
		return nil
	}

	s.publish(ctx, "payment_settled", map[string]any{
		"order_id":   order.ID,
		"listing_id": order.ListingID,
		"kind":       string(order.Kind),
		"rail":       string(order.Rail),
	})
	return nil
}

// ConfirmByToken resolves the pending order carrying the correlation token
// and confirms it. Unknown or already-settled tokens get ErrNotFound, which
// the webhook processor treats as an ignorable event.
func (s *SettlementService) ConfirmByToken(ctx context.Context, token string, receipt domain.PaymentReceipt) error {
	order, err := s.orders.FindPendingByToken(ctx, token)
	if err != nil {
		return err
	}
	return s.ConfirmPayment(ctx, order.ID, receipt)
}

// settleSale transfers ownership to the buyer and retires the listing.
func (s *SettlementService) settleSale(ctx context.Context, listing domain.Listing, order domain.Order) error {
	if err := s.collectibles.UpdateOwner(ctx, listing.CollectibleID, order.Buyer); err != nil {
		return fmt.Errorf("settlement: transfer collectible %s: %w", listing.CollectibleID, err)
	}
	if err := s.listings.SetActive(ctx, listing.ID, false); err != nil {
		return fmt.Errorf("settlement: retire listing %s: %w", listing.ID, err)
	}

	_ = s.audit.Log(ctx, "sale_settled", map[string]any{
		"order_id":       order.ID,
		"listing_id":     listing.ID,
		"collectible_id": listing.CollectibleID,
		"buyer":          order.Buyer,
		"rail":           string(order.Rail),
	})

	s.notify(ctx, "sale_settled", "Sale settled",
		fmt.Sprintf("Listing %s sold to %s via %s", listing.ID, order.Buyer, order.Rail))

	s.logger.InfoContext(ctx, "sale settled",
		slog.String("order_id", order.ID),
		slog.String("listing_id", listing.ID),
		slog.String("buyer", order.Buyer),
	)
	return nil
}

// fundBid marks the escrowed bid funded and promotes it to the visible
// leader when it still beats the recorded highest bid.
func (s *SettlementService) fundBid(ctx context.Context, listing domain.Listing, order domain.Order) error {
	if order.BidID == "" {
		return fmt.Errorf("settlement: %w: escrow order %s has no bid", domain.ErrValidation, order.ID)
	}

	if err := s.bids.SetFunded(ctx, order.BidID, order.CorrelationToken); err != nil {
		return fmt.Errorf("settlement: fund bid %s: %w", order.BidID, err)
	}

	bid, err := s.bids.GetByID(ctx, order.BidID)
	if err != nil {
		return fmt.Errorf("settlement: bid %s: %w", order.BidID, err)
	}

	// A later-funded lower bid never displaces a higher leader.
	if listing.HighestBidAmount+domain.AmountTolerance <= bid.Amount {
		if err := s.listings.SetHighest(ctx, listing.ID, bid.Amount, bid.Bidder); err != nil {
			return fmt.Errorf("settlement: promote bid %s: %w", bid.ID, err)
		}
	}

	_ = s.audit.Log(ctx, "bid_funded", map[string]any{
		"bid_id":     bid.ID,
		"listing_id": listing.ID,
		"bidder":     bid.Bidder,
		"amount":     bid.Amount,
	})

	s.notify(ctx, "bid_funded", "Bid funded",
		fmt.Sprintf("Bid of %g on listing %s funded by %s", bid.Amount, listing.ID, bid.Bidder))

	s.logger.InfoContext(ctx, "bid funded",
		slog.String("bid_id", bid.ID),
		slog.String("listing_id", listing.ID),
		slog.Float64("amount", bid.Amount),
	)
	return nil
}

// FinalizeAuction closes an ended auction without settling it. The winner
// pays through a regular order afterwards; FinalizeAuctionSettlement moves
// ownership once a funded escrow backs the winning bid.
func (s *SettlementService) FinalizeAuction(ctx context.Context, listingID string) error {
	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return fmt.Errorf("settlement: finalize %s: %w", listingID, err)
	}
	if !l.IsAuction() {
		return fmt.Errorf("settlement: finalize %s: %w: not an auction", listingID, domain.ErrValidation)
	}
	if !l.Ended(s.clock.Now()) {
		return fmt.Errorf("settlement: finalize %s: %w: auction still open", listingID, domain.ErrValidation)
	}
	if l.HighestBidder == "" {
		return fmt.Errorf("settlement: finalize %s: %w: no bids recorded", listingID, domain.ErrValidation)
	}
	if !l.Active {
		return nil
	}

	if err := s.listings.SetActive(ctx, listingID, false); err != nil {
		return fmt.Errorf("settlement: finalize %s: %w", listingID, err)
	}

	_ = s.audit.Log(ctx, "auction_closed", map[string]any{
		"listing_id":     listingID,
		"highest_bidder": l.HighestBidder,
		"highest_amount": l.HighestBidAmount,
	})
	s.logger.InfoContext(ctx, "auction closed",
		slog.String("listing_id", listingID),
	)
	return nil
}

// FinalizeAuctionSettlement settles an ended auction onto its highest
// bidder. It requires a funded escrow bid by the recorded highest bidder
// whose amount matches the recorded highest amount; otherwise
// ErrNoValidEscrow. An auction still running cannot settle.
func (s *SettlementService) FinalizeAuctionSettlement(ctx context.Context, listingID string) error {
	var listing domain.Listing

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		l, err := s.listings.GetForUpdate(ctx, listingID)
		if err != nil {
			return err
		}
		listing = l

		if !l.IsAuction() {
			return fmt.Errorf("%w: listing %s is not an auction", domain.ErrValidation, listingID)
		}
		if !l.Ended(s.clock.Now()) {
			return fmt.Errorf("%w: auction still open", domain.ErrValidation)
		}
		if l.HighestBidder == "" {
			return domain.ErrNoValidEscrow
		}

		funded, err := s.bids.ListByListing(ctx, listingID, domain.BidStatusFunded)
		if err != nil {
			return err
		}

		var escrow *domain.Bid
		for i := range funded {
			b := funded[i]
			if b.Bidder == l.HighestBidder &&
				math.Abs(b.Amount-l.HighestBidAmount) < domain.AmountTolerance {
				escrow = &b
				break
			}
		}
		if escrow == nil {
			return domain.ErrNoValidEscrow
		}

		if err := s.collectibles.UpdateOwner(ctx, l.CollectibleID, l.HighestBidder); err != nil {
			return err
		}
		if err := s.listings.SetActive(ctx, listingID, false); err != nil {
			return err
		}

		_ = s.audit.Log(ctx, "auction_finalized", map[string]any{
			"listing_id":     listingID,
			"collectible_id": l.CollectibleID,
			"winner":         l.HighestBidder,
			"amount":         l.HighestBidAmount,
			"bid_id":         escrow.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("settlement: finalize settlement %s: %w", listingID, err)
	}

	s.notify(ctx, "auction_finalized", "Auction finalized",
		fmt.Sprintf("Listing %s settled to %s at %g", listingID, listing.HighestBidder, listing.HighestBidAmount))

	s.publish(ctx, "auction_finalized", map[string]any{
		"listing_id": listingID,
		"winner":     listing.HighestBidder,
		"amount":     listing.HighestBidAmount,
	})

	s.logger.InfoContext(ctx, "auction finalized",
		slog.String("listing_id", listingID),
		slog.String("winner", listing.HighestBidder),
	)
	return nil
}

func (s *SettlementService) publish(ctx context.Context, event string, detail map[string]any) {
	detail["event"] = event
	payload, err := json.Marshal(detail)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, "ch:settlement", payload); err != nil {
		s.logger.WarnContext(ctx, "settlement event publish failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (s *SettlementService) notify(ctx context.Context, event, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
