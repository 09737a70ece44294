package domain

import (
	"math"
	"time"
)

// ListingKind distinguishes fixed-price sales from auctions.
type ListingKind string

const (
	ListingKindFixed   ListingKind = "fixed"
	ListingKindAuction ListingKind = "auction"
)

const (
	// AuctionDuration is the fixed lifetime of every auction listing.
	AuctionDuration = 24 * time.Hour

	// BidIncrementPercent is the fixed minimum-increment policy: each bid
	// must exceed the current base by this percentage.
	BidIncrementPercent = 20.0

	// AmountTolerance absorbs float error in amount comparisons.
	AmountTolerance = 1e-9
)

// Listing is an offer to sell one collectible, either at a fixed price or as
// a time-boxed auction. At most one active listing may reference a
// collectible at a time. The highest-bid fields are only advanced by the
// settlement service once a bid's escrow order is confirmed paid, so an
// unfunded bid can never become the visible leader.
type Listing struct {
	ID            string
	CollectibleID string
	Seller        string
	Currency      Currency
	Price         float64 // fixed price; minBid mirror for auctions
	Active        bool
	Kind          ListingKind

	// Auction fields; zero values on fixed listings.
	EndsAt           time.Time
	MinBid           float64
	BuyNowPrice      float64 // 0 = no buy-now option
	IncrementPercent float64
	HighestBidAmount float64
	HighestBidder    string

	CreatedAt time.Time
}

// CatalogueEntry pairs an active listing with the collectible it sells,
// the shape the marketplace catalogue endpoint returns.
type CatalogueEntry struct {
	Listing     Listing
	Collectible Collectible
}

// IsAuction reports whether the listing sells by auction.
func (l Listing) IsAuction() bool {
	return l.Kind == ListingKindAuction
}

// AuctionOpen reports whether the auction is accepting bids at the given
// instant: it must be active, an auction, and not past its end time.
func (l Listing) AuctionOpen(now time.Time) bool {
	return l.Active && l.IsAuction() && !now.After(l.EndsAt)
}

// Ended reports whether the auction end time has passed.
func (l Listing) Ended(now time.Time) bool {
	return l.IsAuction() && now.After(l.EndsAt)
}

// MinNextBid returns the smallest acceptable bid amount under the
// minimum-increment rule: max(minBid, highestBidAmount) grown by
// IncrementPercent.
func (l Listing) MinNextBid() float64 {
	base := math.Max(l.MinBid, l.HighestBidAmount)
	return base * (1 + l.IncrementPercent/100)
}
