package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// TxRunner executes fn inside a single database transaction. Store methods
// called with the context passed to fn join that transaction, which is how
// multi-entity settlement mutations form one atomic unit.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// StickerStore persists uploaded source assets.
type StickerStore interface {
	Create(ctx context.Context, s Sticker) error
	GetByID(ctx context.Context, id string) (Sticker, error)
	ListByOwner(ctx context.Context, owner string, opts ListOpts) ([]Sticker, error)
}

// CollectibleStore persists collectible records. UpdateOwner is invoked only
// by the settlement service, inside a settlement transaction.
type CollectibleStore interface {
	Create(ctx context.Context, c Collectible) error
	GetByID(ctx context.Context, id string) (Collectible, error)
	ListByOwner(ctx context.Context, owner string, opts ListOpts) ([]Collectible, error)
	UpdateOwner(ctx context.Context, id, owner string) error
	UpdateToken(ctx context.Context, id, tokenRef, metadataURL string) error
	Delete(ctx context.Context, id string) error
}

// ListingStore persists sale listings. GetForUpdate takes a row lock so
// concurrent bid placements on the same auction serialize inside their
// transactions.
type ListingStore interface {
	Create(ctx context.Context, l Listing) error
	GetByID(ctx context.Context, id string) (Listing, error)
	GetForUpdate(ctx context.Context, id string) (Listing, error)
	ListActive(ctx context.Context, currency *Currency, opts ListOpts) ([]Listing, error)
	ActiveByCollectible(ctx context.Context, collectibleID string) (Listing, error)
	SetActive(ctx context.Context, id string, active bool) error
	SetHighest(ctx context.Context, id string, amount float64, bidder string) error
	Delete(ctx context.Context, id string) error
}

// BidStore persists auction bids.
type BidStore interface {
	Create(ctx context.Context, b Bid) error
	GetByID(ctx context.Context, id string) (Bid, error)
	SetFunded(ctx context.Context, id, correlationToken string) error
	ListByListing(ctx context.Context, listingID string, status BidStatus) ([]Bid, error)
}

// OrderStore persists payment orders. MarkPaid is the compare-and-swap at
// the heart of settlement: it transitions Pending→Paid and reports false
// when the order was already terminal, which callers treat as a no-op.
type OrderStore interface {
	Create(ctx context.Context, o Order) error
	GetByID(ctx context.Context, id string) (Order, error)
	FindPendingByToken(ctx context.Context, token string) (Order, error)
	ListPendingByRail(ctx context.Context, rail Rail, opts ListOpts) ([]Order, error)
	MarkPaid(ctx context.Context, id string, receipt PaymentReceipt) (bool, error)
	MarkTerminal(ctx context.Context, id string, status OrderStatus) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
