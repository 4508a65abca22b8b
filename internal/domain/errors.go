package domain

import "errors"

// Error kinds surfaced by ledger operations.
var (
	ErrInvalidCredentials       = errors.New("ledger: invalid email or password")
	ErrAccountSuspended         = errors.New("ledger: account suspended")
	ErrDuplicateEmail           = errors.New("ledger: email already registered")
	ErrInvalidAddressFormat     = errors.New("ledger: invalid wallet address")
	ErrDuplicateAddress         = errors.New("ledger: wallet address already exists")
	ErrBelowWithdrawalMinimum   = errors.New("ledger: balance below minimum withdrawal")
	ErrInvalidAmount            = errors.New("ledger: invalid amount")
	ErrPrivilegedTargetRejected = errors.New("ledger: administrators cannot be targeted")
	ErrRecordNotFound           = errors.New("ledger: record not found")

	ErrStaleWrite = errors.New("ledger: record changed since it was read")
	ErrForbidden  = errors.New("ledger: admin access required")
	ErrNoSession  = errors.New("ledger: no active session")
	ErrAborted    = errors.New("ledger: operation aborted")
)
