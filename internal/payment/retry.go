// Package payment implements the two asynchronous payment rails: the
// polling chain verifier for TON transfers and the webhook processor for
// Telegram Stars invoices. Both feed confirmations into the settlement
// service, which is the only component that mutates ownership.
package payment

import "time"

// RetryPolicy bounds one verification invocation: up to Attempts scans of
// the chain with the corresponding Backoff delay before each.
type RetryPolicy struct {
	Attempts int
	Backoff  []time.Duration
}

// DefaultRetryPolicy verifies up to three times with increasing delays.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		Backoff:  []time.Duration{0, 2 * time.Second, 4 * time.Second},
	}
}

// BackoffFor returns the delay before the given zero-based attempt. Attempts
// beyond the schedule reuse the last entry.
func (p RetryPolicy) BackoffFor(attempt int) time.Duration {
	if len(p.Backoff) == 0 {
		return 0
	}
	if attempt >= len(p.Backoff) {
		return p.Backoff[len(p.Backoff)-1]
	}
	return p.Backoff[attempt]
}
