package domain

import (
	"math"
	"testing"
	"time"
)

func auctionListing(endsAt time.Time) Listing {
	return Listing{
		ID:               "l1",
		Kind:             ListingKindAuction,
		Active:           true,
		EndsAt:           endsAt,
		MinBid:           1,
		IncrementPercent: BidIncrementPercent,
	}
}

func TestMinNextBidFromMinBid(t *testing.T) {
	l := auctionListing(time.Now().Add(time.Hour))

	got := l.MinNextBid()
	if math.Abs(got-1.2) > AmountTolerance {
		t.Fatalf("MinNextBid with no bids = %v, want 1.2", got)
	}
}

func TestMinNextBidFromHighestBid(t *testing.T) {
	l := auctionListing(time.Now().Add(time.Hour))
	l.HighestBidAmount = 1.5

	got := l.MinNextBid()
	if math.Abs(got-1.8) > AmountTolerance {
		t.Fatalf("MinNextBid over 1.5 = %v, want 1.8", got)
	}
}

func TestMinNextBidUsesLargerBase(t *testing.T) {
	l := auctionListing(time.Now().Add(time.Hour))
	l.MinBid = 10
	l.HighestBidAmount = 2

	got := l.MinNextBid()
	if math.Abs(got-12) > AmountTolerance {
		t.Fatalf("MinNextBid with minBid above highest = %v, want 12", got)
	}
}

func TestAuctionOpenWindow(t *testing.T) {
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := auctionListing(end)

	if !l.AuctionOpen(end.Add(-time.Minute)) {
		t.Fatal("auction should be open before its end time")
	}
	if !l.AuctionOpen(end) {
		t.Fatal("auction should still be open at exactly its end time")
	}
	if l.AuctionOpen(end.Add(time.Second)) {
		t.Fatal("auction should be closed past its end time")
	}

	l.Active = false
	if l.AuctionOpen(end.Add(-time.Minute)) {
		t.Fatal("deactivated auction should not accept bids")
	}
}

func TestEndedOnlyForAuctions(t *testing.T) {
	end := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	l := auctionListing(end)
	if !l.Ended(end.Add(time.Second)) {
		t.Fatal("auction past end time should report Ended")
	}

	fixed := Listing{Kind: ListingKindFixed, Active: true}
	if fixed.Ended(end.Add(time.Hour)) {
		t.Fatal("fixed listing must never report Ended")
	}
}
