package domain

import (
	"math"
	"time"
)

// minTonAmount floors converted TON amounts so a rounded-down Stars price can
// never produce a zero-value transfer.
const minTonAmount = 0.000001

// Rate is a snapshot of the Stars-per-TON conversion value. Orders freeze
// their amount using the snapshot current at creation and never reinterpret
// it afterwards.
type Rate struct {
	StarsPerTon float64
	TakenAt     time.Time
}

// TonAmount converts a listing-currency amount into TON. The rate is clamped
// to at least 1 so a misconfigured zero rate cannot divide away the amount.
func (r Rate) TonAmount(amount float64, cur Currency) float64 {
	if cur == CurrencyTON {
		return amount
	}
	return math.Max(minTonAmount, amount/math.Max(1, r.StarsPerTon))
}

// StarsAmount converts a listing-currency amount into whole Stars, with a
// floor of 1 Star (the invoice provider rejects zero-amount invoices).
func (r Rate) StarsAmount(amount float64, cur Currency) float64 {
	if cur == CurrencyStars {
		return math.Max(1, math.Round(amount))
	}
	return math.Max(1, math.Round(amount*math.Max(1, r.StarsPerTon)))
}

// Convert returns the amount in the given rail's native unit.
func (r Rate) Convert(amount float64, cur Currency, rail Rail) float64 {
	if rail == RailTON {
		return r.TonAmount(amount, cur)
	}
	return r.StarsAmount(amount, cur)
}
