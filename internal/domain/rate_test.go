package domain

import (
	"math"
	"testing"
)

func TestRateConvertStarsListingToTon(t *testing.T) {
	r := Rate{StarsPerTon: 250}

	got := r.Convert(5, CurrencyStars, RailTON)
	if math.Abs(got-0.02) > 1e-12 {
		t.Fatalf("Convert(5 STARS -> TON) = %v, want 0.02", got)
	}
}

func TestRateConvertTonListingToStars(t *testing.T) {
	r := Rate{StarsPerTon: 250}

	got := r.Convert(0.5, CurrencyTON, RailStars)
	if got != 125 {
		t.Fatalf("Convert(0.5 TON -> STARS) = %v, want 125", got)
	}
}

func TestRateConvertSameUnitPassthrough(t *testing.T) {
	r := Rate{StarsPerTon: 250}

	if got := r.Convert(3.5, CurrencyTON, RailTON); got != 3.5 {
		t.Fatalf("TON passthrough = %v, want 3.5", got)
	}
	if got := r.Convert(10, CurrencyStars, RailStars); got != 10 {
		t.Fatalf("Stars passthrough = %v, want 10", got)
	}
}

func TestRateStarsAmountRoundsAndFloors(t *testing.T) {
	r := Rate{StarsPerTon: 250}

	// Rounds to the nearest whole Star.
	if got := r.StarsAmount(0.0101, CurrencyTON); got != 3 {
		t.Fatalf("StarsAmount(0.0101 TON) = %v, want 3", got)
	}

	// Never below one Star.
	if got := r.StarsAmount(0.0001, CurrencyTON); got != 1 {
		t.Fatalf("StarsAmount(0.0001 TON) = %v, want 1", got)
	}
	if got := r.StarsAmount(0.2, CurrencyStars); got != 1 {
		t.Fatalf("StarsAmount(0.2 STARS) = %v, want 1", got)
	}
}

func TestRateTonAmountFloor(t *testing.T) {
	r := Rate{StarsPerTon: 1e12}

	got := r.TonAmount(1, CurrencyStars)
	if got != 0.000001 {
		t.Fatalf("TonAmount with huge rate = %v, want floor 0.000001", got)
	}
}

func TestRateZeroRateClamped(t *testing.T) {
	r := Rate{StarsPerTon: 0}

	// A zero rate must not zero out or blow up conversions.
	if got := r.TonAmount(5, CurrencyStars); got != 5 {
		t.Fatalf("TonAmount with zero rate = %v, want 5 (rate clamped to 1)", got)
	}
	if got := r.StarsAmount(5, CurrencyTON); got != 5 {
		t.Fatalf("StarsAmount with zero rate = %v, want 5 (rate clamped to 1)", got)
	}
}
