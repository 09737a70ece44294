package domain

import (
	"testing"
	"time"
)

func TestCorrelationToken(t *testing.T) {
	now := time.UnixMilli(1700000000000).UTC()

	got := CorrelationToken(now, "listing-7", OrderKindBuy, "01234567-89ab-cdef")
	want := "order:1700000000000:listing-7:BUY:01234567"
	if got != want {
		t.Fatalf("CorrelationToken = %q, want %q", got, want)
	}

	escrow := CorrelationToken(now, "listing-7", OrderKindBidEscrow, "01234567-89ab-cdef")
	if escrow == got {
		t.Fatal("BUY and BID tokens for the same listing must differ")
	}

	short := CorrelationToken(now, "listing-7", OrderKindBuy, "ab")
	if short != "order:1700000000000:listing-7:BUY:ab" {
		t.Fatalf("short order id token = %q", short)
	}
}

func TestCorrelationTokenDistinctPerOrder(t *testing.T) {
	// Two escrow orders on the same listing in the same millisecond must
	// not share a token, or confirmations would match an arbitrary one.
	now := time.UnixMilli(1700000000000).UTC()

	a := CorrelationToken(now, "listing-7", OrderKindBidEscrow, "aaaaaaaa-1")
	b := CorrelationToken(now, "listing-7", OrderKindBidEscrow, "bbbbbbbb-2")
	if a == b {
		t.Fatalf("tokens collide: %q", a)
	}
}

func TestTonTransferLink(t *testing.T) {
	got := TonTransferLink("EQC_wallet", 0.5, "order:1:l:BUY")
	want := "ton://transfer/EQC_wallet?amount=500000000&text=order%3A1%3Al%3ABUY"
	if got != want {
		t.Fatalf("TonTransferLink = %q, want %q", got, want)
	}
}

func TestTonTransferLinkRoundsNanoton(t *testing.T) {
	// 0.1 TON is not exactly representable; the nanoton amount must still
	// come out whole.
	got := TonTransferLink("w", 0.1, "c")
	want := "ton://transfer/w?amount=100000000&text=c"
	if got != want {
		t.Fatalf("TonTransferLink = %q, want %q", got, want)
	}
}

func TestRailValid(t *testing.T) {
	if !RailTON.Valid() || !RailStars.Valid() {
		t.Fatal("known rails must be valid")
	}
	if Rail("PAYPAL").Valid() {
		t.Fatal("unknown rail must be invalid")
	}
}
