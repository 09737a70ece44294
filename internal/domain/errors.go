package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrValidation          = errors.New("invalid input")
	ErrNotOwner            = errors.New("requester is not the owner")
	ErrListingInactive     = errors.New("listing inactive")
	ErrCollectibleListed   = errors.New("collectible has an active listing")
	ErrAuctionClosed       = errors.New("auction closed")
	ErrBidTooLow           = errors.New("bid below minimum increment")
	ErrNotEligibleToPay    = errors.New("buyer not eligible to pay for auction")
	ErrNoValidEscrow       = errors.New("no funded escrow matching the highest bid")
	ErrOrderNotPending     = errors.New("order is not pending")
	ErrRateLimited         = errors.New("rate limited")
	ErrLockHeld            = errors.New("lock already held")
	ErrExternalUnavailable = errors.New("external service unavailable")
)
