package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/stickermart/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memTx runs the unit directly; the in-memory stores have no transactions to
// join.
type memTx struct{}

func (memTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memCollectibles struct {
	mu    sync.Mutex
	items map[string]domain.Collectible
}

func newMemCollectibles(items ...domain.Collectible) *memCollectibles {
	m := &memCollectibles{items: make(map[string]domain.Collectible)}
	for _, c := range items {
		m.items[c.ID] = c
	}
	return m
}

func (m *memCollectibles) Create(_ context.Context, c domain.Collectible) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[c.ID] = c
	return nil
}

func (m *memCollectibles) GetByID(_ context.Context, id string) (domain.Collectible, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return domain.Collectible{}, domain.ErrNotFound
	}
	return c, nil
}

func (m *memCollectibles) ListByOwner(_ context.Context, owner string, _ domain.ListOpts) ([]domain.Collectible, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Collectible
	for _, c := range m.items {
		if c.Owner == owner {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCollectibles) UpdateOwner(_ context.Context, id, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Owner = owner
	m.items[id] = c
	return nil
}

func (m *memCollectibles) UpdateToken(_ context.Context, id, tokenRef, metadataURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.TokenRef = tokenRef
	c.MetadataURL = metadataURL
	m.items[id] = c
	return nil
}

func (m *memCollectibles) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

type memListings struct {
	mu    sync.Mutex
	items map[string]domain.Listing
}

func newMemListings(items ...domain.Listing) *memListings {
	m := &memListings{items: make(map[string]domain.Listing)}
	for _, l := range items {
		m.items[l.ID] = l
	}
	return m
}

func (m *memListings) Create(_ context.Context, l domain.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.Active && l.Active && existing.CollectibleID == l.CollectibleID {
			return domain.ErrCollectibleListed
		}
	}
	m.items[l.ID] = l
	return nil
}

func (m *memListings) GetByID(_ context.Context, id string) (domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.items[id]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	return l, nil
}

func (m *memListings) GetForUpdate(ctx context.Context, id string) (domain.Listing, error) {
	return m.GetByID(ctx, id)
}

func (m *memListings) ListActive(_ context.Context, currency *domain.Currency, _ domain.ListOpts) ([]domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Listing
	for _, l := range m.items {
		if !l.Active {
			continue
		}
		if currency != nil && l.Currency != *currency {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *memListings) ActiveByCollectible(_ context.Context, collectibleID string) (domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.items {
		if l.Active && l.CollectibleID == collectibleID {
			return l, nil
		}
	}
	return domain.Listing{}, domain.ErrNotFound
}

func (m *memListings) SetActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.Active = active
	m.items[id] = l
	return nil
}

func (m *memListings) SetHighest(_ context.Context, id string, amount float64, bidder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.HighestBidAmount = amount
	l.HighestBidder = bidder
	m.items[id] = l
	return nil
}

func (m *memListings) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

type memBids struct {
	mu    sync.Mutex
	items map[string]domain.Bid
}

func newMemBids() *memBids {
	return &memBids{items: make(map[string]domain.Bid)}
}

func (m *memBids) Create(_ context.Context, b domain.Bid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[b.ID] = b
	return nil
}

func (m *memBids) GetByID(_ context.Context, id string) (domain.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[id]
	if !ok {
		return domain.Bid{}, domain.ErrNotFound
	}
	return b, nil
}

func (m *memBids) SetFunded(_ context.Context, id, correlationToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	b.Status = domain.BidStatusFunded
	b.CorrelationToken = correlationToken
	m.items[id] = b
	return nil
}

func (m *memBids) ListByListing(_ context.Context, listingID string, status domain.BidStatus) ([]domain.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Bid
	for _, b := range m.items {
		if b.ListingID == listingID && b.Status == status {
			out = append(out, b)
		}
	}
	return out, nil
}

type memOrders struct {
	mu    sync.Mutex
	items map[string]domain.Order
}

func newMemOrders() *memOrders {
	return &memOrders{items: make(map[string]domain.Order)}
}

func (m *memOrders) Create(_ context.Context, o domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[o.ID] = o
	return nil
}

func (m *memOrders) GetByID(_ context.Context, id string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

func (m *memOrders) FindPendingByToken(_ context.Context, token string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.items {
		if o.CorrelationToken == token && o.Status == domain.OrderStatusPending {
			return o, nil
		}
	}
	return domain.Order{}, domain.ErrNotFound
}

func (m *memOrders) ListPendingByRail(_ context.Context, rail domain.Rail, _ domain.ListOpts) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.items {
		if o.Rail == rail && o.Status == domain.OrderStatusPending {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOrders) MarkPaid(_ context.Context, id string, receipt domain.PaymentReceipt) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return false, nil
	}
	if o.Status != domain.OrderStatusPending {
		return false, nil
	}
	o.Status = domain.OrderStatusPaid
	if o.Ton != nil && receipt.TxHash != "" {
		o.Ton.TxHash = receipt.TxHash
		o.Ton.Verified = true
	}
	if o.Stars != nil {
		o.Stars.TelegramChargeID = receipt.TelegramChargeID
		o.Stars.ProviderChargeID = receipt.ProviderChargeID
	}
	m.items[id] = o
	return true, nil
}

func (m *memOrders) MarkTerminal(_ context.Context, id string, status domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Status != domain.OrderStatusPending {
		return domain.ErrOrderNotPending
	}
	o.Status = status
	m.items[id] = o
	return nil
}

type memRateCache struct {
	mu   sync.Mutex
	rate *domain.Rate
}

func (m *memRateCache) Set(_ context.Context, r domain.Rate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = &r
	return nil
}

func (m *memRateCache) Get(_ context.Context) (domain.Rate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rate == nil {
		return domain.Rate{}, domain.ErrNotFound
	}
	return *m.rate, nil
}

type fakeLocks struct {
	mu       sync.Mutex
	acquired []string
	held     map[string]bool
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{held: make(map[string]bool)}
}

func (f *fakeLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return nil, domain.ErrLockHeld
	}
	f.held[key] = true
	f.acquired = append(f.acquired, key)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.held, key)
	}, nil
}

type memBus struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func newMemBus() *memBus {
	return &memBus{published: make(map[string][][]byte)}
}

func (m *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[channel] = append(m.published[channel], payload)
	return nil
}

func (m *memBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

type memAudit struct {
	mu     sync.Mutex
	events []string
}

func (m *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *memAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (m *memAudit) count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e == event {
			n++
		}
	}
	return n
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) Notify(_ context.Context, event, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fakeInvoices struct {
	link string
	err  error
}

func (f *fakeInvoices) CreateInvoiceLink(_ context.Context, _, _, _ string, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.link == "" {
		return "https://t.me/invoice/xyz", nil
	}
	return f.link, nil
}

var errBoom = errors.New("boom")
