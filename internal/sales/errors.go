package sales

import "errors"

// Window violations.
var (
	ErrNotStarted      = errors.New("sale not started")
	ErrEnded           = errors.New("sale ended")
	ErrInvalidWindow   = errors.New("invalid sale window")
	ErrSaleStillActive = errors.New("sale still active")
)

// State violations.
var (
	ErrSaleNotOpen        = errors.New("sale not open")
	ErrSaleAlreadyStarted = errors.New("sale already started")
	ErrSaleHasBuyer       = errors.New("sale has buyer")
	ErrSaleNotOver        = errors.New("sale not over")
	ErrWrongSaleType      = errors.New("wrong sale type")
)

// Value violations.
var (
	ErrPriceMismatch = errors.New("price mismatch")
	ErrBelowAsk      = errors.New("bid below ask price")
	ErrBidTooLow     = errors.New("bid too low")
	ErrFeeExceedsCap = errors.New("fee exceeds cap")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidConfig = errors.New("invalid config")
)

// Authorization.
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotOwner       = errors.New("not owner")
	ErrReasonRequired = errors.New("reason required")
)

var (
	ErrNotFound       = errors.New("sale not found")
	ErrInvalidRequest = errors.New("invalid request")
)

// Ledger write conflicts.
var (
	ErrStaleSale   = errors.New("stale sale version")
	ErrTokenListed = errors.New("token already in an open sale")
)
