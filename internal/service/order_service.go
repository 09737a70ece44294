package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"

	"github.com/google/uuid"

	"github.com/alanyoungcy/stickermart/internal/clock"
	"github.com/alanyoungcy/stickermart/internal/domain"
)

// InvoiceCreator creates Stars invoice links. *telegram.Client satisfies it.
type InvoiceCreator interface {
	CreateInvoiceLink(ctx context.Context, title, description, payload string, amount int64) (string, error)
}

// OrderService creates payment orders. Each order freezes its rail-native
// amount using the conversion rate current at creation; rate changes never
// reprice an existing order.
type OrderService struct {
	orders   domain.OrderStore
	listings domain.ListingStore
	rates    domain.RateCache
	invoices InvoiceCreator
	audit    domain.AuditStore
	clock    clock.Clock
	logger   *slog.Logger

	wallet      string  // TON destination wallet
	defaultRate float64 // Stars-per-TON seed when the cache is empty
	botUsername string  // fallback deep link target when invoice creation fails
}

// NewOrderService creates an OrderService with all required dependencies.
func NewOrderService(
	orders domain.OrderStore,
	listings domain.ListingStore,
	rates domain.RateCache,
	invoices InvoiceCreator,
	audit domain.AuditStore,
	clk clock.Clock,
	logger *slog.Logger,
	wallet string,
	defaultRate float64,
	botUsername string,
) *OrderService {
	return &OrderService{
		orders:      orders,
		listings:    listings,
		rates:       rates,
		invoices:    invoices,
		audit:       audit,
		clock:       clk,
		logger:      logger,
		wallet:      wallet,
		defaultRate: defaultRate,
		botUsername: botUsername,
	}
}

// CurrentRate returns the conversion rate snapshot, seeding the cache with
// the configured default when it is empty.
func (s *OrderService) CurrentRate(ctx context.Context) (domain.Rate, error) {
	r, err := s.rates.Get(ctx)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Rate{}, fmt.Errorf("order_service: current rate: %w", err)
	}

	r = domain.Rate{StarsPerTon: s.defaultRate, TakenAt: s.clock.Now()}
	if setErr := s.rates.Set(ctx, r); setErr != nil {
		s.logger.WarnContext(ctx, "rate cache seed failed",
			slog.String("error", setErr.Error()))
	}
	return r, nil
}

// CreateOrder creates a direct-purchase order for a listing.
//
// On a fixed-price listing any buyer may order at the listed price. On an
// auction the buyer must be the recorded highest bidder and either hold a
// bid at the buy-now price or have won the ended auction; everyone else gets
// ErrNotEligibleToPay.
func (s *OrderService) CreateOrder(ctx context.Context, listingID, buyer string, rail domain.Rail) (domain.Order, error) {
	if !rail.Valid() {
		return domain.Order{}, fmt.Errorf("order_service: %w: rail %q", domain.ErrValidation, rail)
	}
	if buyer == "" {
		return domain.Order{}, fmt.Errorf("order_service: %w: buyer required", domain.ErrValidation)
	}

	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order_service: listing %s: %w", listingID, err)
	}
	if !l.Active {
		return domain.Order{}, domain.ErrListingInactive
	}

	amount := l.Price
	if l.IsAuction() {
		if err := s.checkAuctionEligibility(l, buyer); err != nil {
			return domain.Order{}, err
		}
		amount = l.HighestBidAmount
	}

	return s.create(ctx, l, buyer, rail, domain.OrderKindBuy, amount, "")
}

// checkAuctionEligibility enforces who may pay for an auction listing: the
// recorded highest bidder, and only when their bid sits at the buy-now price
// or the auction has ended with their bid on top.
func (s *OrderService) checkAuctionEligibility(l domain.Listing, buyer string) error {
	if l.HighestBidder == "" || l.HighestBidder != buyer {
		return domain.ErrNotEligibleToPay
	}

	atBuyNow := l.BuyNowPrice > 0 &&
		math.Abs(l.HighestBidAmount-l.BuyNowPrice) < domain.AmountTolerance
	wonEnded := l.Ended(s.clock.Now())

	if !atBuyNow && !wonEnded {
		return domain.ErrNotEligibleToPay
	}
	return nil
}

// CreateEscrow creates the escrow order backing a freshly placed bid. Called
// by the auction service inside the bid transaction.
func (s *OrderService) CreateEscrow(ctx context.Context, l domain.Listing, bidder string, rail domain.Rail, bidAmount float64, bidID string) (domain.Order, error) {
	return s.create(ctx, l, bidder, rail, domain.OrderKindBidEscrow, bidAmount, bidID)
}

// Get returns the order with the given id.
func (s *OrderService) Get(ctx context.Context, id string) (domain.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order_service: get %s: %w", id, err)
	}
	return o, nil
}

func (s *OrderService) create(ctx context.Context, l domain.Listing, buyer string, rail domain.Rail, kind domain.OrderKind, amount float64, bidID string) (domain.Order, error) {
	rate, err := s.CurrentRate(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	now := s.clock.Now()
	native := rate.Convert(amount, l.Currency, rail)
	id := uuid.New().String()
	token := domain.CorrelationToken(now, l.ID, kind, id)

	o := domain.Order{
		ID:               id,
		ListingID:        l.ID,
		Buyer:            buyer,
		Kind:             kind,
		Rail:             rail,
		Amount:           native,
		Status:           domain.OrderStatusPending,
		CorrelationToken: token,
		BidID:            bidID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	switch rail {
	case domain.RailTON:
		o.Ton = &domain.TonPayment{
			To:       s.wallet,
			Comment:  token,
			Deeplink: domain.TonTransferLink(s.wallet, native, token),
		}
	case domain.RailStars:
		o.Stars = s.starsPayment(ctx, l, token, int64(native), kind)
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return domain.Order{}, fmt.Errorf("order_service: create order: %w", err)
	}

	_ = s.audit.Log(ctx, "order_created", map[string]any{
		"order_id":   o.ID,
		"listing_id": l.ID,
		"kind":       string(kind),
		"rail":       string(rail),
		"amount":     native,
	})

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", o.ID),
		slog.String("listing_id", l.ID),
		slog.String("rail", string(rail)),
		slog.String("kind", string(kind)),
		slog.Float64("amount", native),
	)
	return o, nil
}

// starsPayment creates the invoice link for a Stars order. When the Bot API
// is unreachable the payer still gets a working instruction: a bot deep link
// that resends the invoice through the /start flow.
func (s *OrderService) starsPayment(ctx context.Context, l domain.Listing, token string, amount int64, kind domain.OrderKind) *domain.StarsPayment {
	title := "Sticker purchase"
	if kind == domain.OrderKindBidEscrow {
		title = "Bid escrow"
	}

	link, err := s.invoices.CreateInvoiceLink(ctx, title,
		fmt.Sprintf("Payment for listing %s", l.ID), token, amount)
	if err != nil {
		s.logger.WarnContext(ctx, "invoice link creation failed, using bot deep link",
			slog.String("listing_id", l.ID),
			slog.String("error", err.Error()),
		)
		link = fmt.Sprintf("https://t.me/%s?start=%s", s.botUsername, url.QueryEscape(token))
	}

	return &domain.StarsPayment{
		InvoiceLink: link,
		Payload:     token,
	}
}
