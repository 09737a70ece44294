package domain

import "time"

// BidStatus tracks the escrow lifecycle of a bid. A bid is created Pending
// and becomes Funded exactly once, when the order escrowing it is confirmed
// paid. Bids are never rejected after creation; an unfunded bid is inert.
type BidStatus string

const (
	BidStatusPending BidStatus = "pending"
	BidStatusFunded  BidStatus = "funded"
)

// Bid is a candidate purchase commitment on an auction listing. The amount is
// expressed in the listing's currency; the escrow order bound to the bid
// freezes the rail-native amount separately.
type Bid struct {
	ID               string
	ListingID        string
	Bidder           string
	Amount           float64
	Rail             Rail
	CorrelationToken string // copied from the escrow order once created
	Status           BidStatus
	CreatedAt        time.Time
}
