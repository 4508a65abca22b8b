package domain

import "github.com/shopspring/decimal" // Exact decimal arithmetic

// Role of a ledger user
type Role string

const (
	RoleUser  Role = "user"  // Regular account
	RoleAdmin Role = "admin" // Administrator account
)

// User Model
type User struct {
	ID              uint            `json:"id"`              // Unique, immutable identifier
	Email           string          `json:"email"`           // Unique across the collection
	Username        string          `json:"username"`        // Display name
	Password        string          `json:"password"`        // Opaque credential (bcrypt hash)
	Role            Role            `json:"role"`            // Role: user or admin
	Suspended       bool            `json:"suspended"`       // Suspended accounts cannot log in
	Wallets         []Wallet        `json:"wallets"`         // Wallets owned by the user
	EarningsHistory []EarningRecord `json:"earningsHistory"` // Append-only accrual history
	Version         uint64          `json:"version"`         // Bumped on every stored change
}

// IsAdmin reports whether the user holds the administrator role
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// FindWallet returns a pointer into u.Wallets for the given address, or nil
func (u *User) FindWallet(address string) *Wallet {
	for i := range u.Wallets {
		if u.Wallets[i].Address == address {
			return &u.Wallets[i]
		}
	}
	return nil
}

// TotalBalance sums the balances of every wallet
func (u User) TotalBalance() decimal.Decimal {
	total := decimal.Zero
	for _, w := range u.Wallets {
		total = total.Add(w.Balance)
	}
	return total
}

// EarnedSince sums history amounts with a timestamp strictly after since (unix millis)
func (u User) EarnedSince(since int64) decimal.Decimal {
	total := decimal.Zero
	for _, e := range u.EarningsHistory {
		if e.Timestamp > since {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// Clone returns a deep copy that shares no slices with u
func (u User) Clone() User {
	c := u
	c.Wallets = append([]Wallet(nil), u.Wallets...)
	c.EarningsHistory = append([]EarningRecord(nil), u.EarningsHistory...)
	return c
}
