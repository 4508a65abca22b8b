// Package rules holds the pure validation predicates shared by registration,
// wallet management, withdrawal and admin overrides. Nothing here performs I/O.
package rules

import (
	"regexp"  // Address pattern
	"strings" // Input normalization

	"accrual_system/internal/domain" // Domain models

	"github.com/shopspring/decimal" // Exact amounts
)

// Legacy (1, 3) or bech32 (bc1) prefix, then 25-39 characters excluding I and O.
var addressPattern = regexp.MustCompile(`^(bc1|[13])[a-zA-HJ-NP-Z0-9]{25,39}$`)

// ValidAddress checks the syntactic shape of a wallet address.
func ValidAddress(address string) bool {
	return addressPattern.MatchString(address)
}

// HasAddress reports whether address already exists in wallets.
func HasAddress(wallets []domain.Wallet, address string) bool {
	for _, w := range wallets {
		if w.Address == address {
			return true // Already present
		}
	}
	return false
}

// NormalizeEmail trims and lowercases an email so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailTaken reports whether any user other than exceptID owns email.
func EmailTaken(users []domain.User, email string, exceptID uint) bool {
	email = NormalizeEmail(email)
	for _, u := range users {
		if u.ID != exceptID && NormalizeEmail(u.Email) == email {
			return true // Already present
		}
	}
	return false
}

// CanWithdraw reports whether balance meets the minimum withdrawal threshold.
func CanWithdraw(balance, minimum decimal.Decimal) bool {
	return balance.GreaterThanOrEqual(minimum)
}

// CheckNewWallet validates an address a user wants to add.
func CheckNewWallet(u domain.User, address string) error {
	if !ValidAddress(address) {
		return domain.ErrInvalidAddressFormat // Bad shape
	}
	if HasAddress(u.Wallets, address) {
		return domain.ErrDuplicateAddress // Already owned
	}
	return nil
}

// CheckWithdrawal validates that w can be emptied.
func CheckWithdrawal(w domain.Wallet, minimum decimal.Decimal) error {
	if !CanWithdraw(w.Balance, minimum) {
		return domain.ErrBelowWithdrawalMinimum // Too little to withdraw
	}
	return nil
}

// CheckAdminTarget rejects administrator targets for privileged mutations.
func CheckAdminTarget(target domain.User) error {
	if target.IsAdmin() {
		return domain.ErrPrivilegedTargetRejected // Administrators are immune
	}
	return nil
}

// ParseAmount parses an admin-supplied balance. Non-numeric and negative input is rejected.
func ParseAmount(text string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(text)) // Exact parse
	if err != nil || amount.IsNegative() {
		return decimal.Zero, domain.ErrInvalidAmount // Non-numeric or negative
	}
	return amount, nil
}
