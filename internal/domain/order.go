package domain

import (
	"fmt"
	"math"
	"net/url"
	"time"
)

// Rail identifies the payment confirmation mechanism an order is bound to:
// the poll-verified TON chain or the webhook-confirmed Telegram Stars
// invoice. Exactly one rail per order, chosen at creation.
type Rail string

const (
	RailTON   Rail = "TON"
	RailStars Rail = "STARS"
)

// Valid reports whether r is a known rail.
func (r Rail) Valid() bool {
	return r == RailTON || r == RailStars
}

// OrderKind distinguishes a direct purchase from a bid escrow.
type OrderKind string

const (
	OrderKindBuy       OrderKind = "BUY"
	OrderKindBidEscrow OrderKind = "BID"
)

// OrderStatus tracks the order lifecycle. An order transitions exactly once
// from Pending to one of the terminal states and is immutable afterwards.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// TonPayment holds the on-chain rail details of an order.
type TonPayment struct {
	To       string // destination wallet
	Comment  string // correlation token embedded as transfer comment
	Deeplink string
	TxHash   string // set on confirmation
	Verified bool
}

// StarsPayment holds the push-invoice rail details of an order.
type StarsPayment struct {
	InvoiceLink      string
	Payload          string // correlation token embedded as invoice payload
	TelegramChargeID string
	ProviderChargeID string
}

// Order is one payment attempt: one rail, one amount frozen at creation in
// the rail's native unit, one correlation token. For escrow orders BidID
// links the pending bid the payment backs.
type Order struct {
	ID               string
	ListingID        string
	Buyer            string
	Kind             OrderKind
	Rail             Rail
	Amount           float64 // TON for the TON rail, Stars for the Stars rail
	Status           OrderStatus
	CorrelationToken string
	BidID            string // empty for BUY orders

	Ton   *TonPayment
	Stars *StarsPayment

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentReceipt carries the provider references delivered with a payment
// confirmation; fields not applicable to the rail stay empty.
type PaymentReceipt struct {
	TxHash           string
	TelegramChargeID string
	ProviderChargeID string
}

// CorrelationToken builds the opaque token embedded in a payment instruction
// and matched back to the order on confirmation. The order id fragment keeps
// tokens distinct when two orders hit the same listing in the same
// millisecond.
func CorrelationToken(now time.Time, listingID string, kind OrderKind, orderID string) string {
	frag := orderID
	if len(frag) > 8 {
		frag = frag[:8]
	}
	return fmt.Sprintf("order:%d:%s:%s:%s", now.UnixMilli(), listingID, kind, frag)
}

// TonTransferLink encodes a TON wallet payment instruction: destination,
// amount in nanoton, and the correlation token as the transfer comment.
func TonTransferLink(to string, amountTon float64, comment string) string {
	amountNano := int64(math.Round(amountTon * 1e9))
	return fmt.Sprintf("ton://transfer/%s?amount=%d&text=%s",
		url.PathEscape(to), amountNano, url.QueryEscape(comment))
}
