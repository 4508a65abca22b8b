package domain

import "github.com/shopspring/decimal" // Exact decimal arithmetic

// PlaceholderAddress names the wallet created by an admin balance override on a user with no wallets
const PlaceholderAddress = "manual-admin-update"

// Wallet Model
type Wallet struct {
	Address   string          `json:"address"`   // Unique within the owning user
	Balance   decimal.Decimal `json:"balance"`   // Never negative
	CreatedAt int64           `json:"createdAt"` // Creation time in unix milliseconds
}

// EarningRecord Model
type EarningRecord struct {
	Timestamp     int64           `json:"timestamp"`     // Credit time in unix milliseconds
	Amount        decimal.Decimal `json:"amount"`        // Credited quantity
	WalletAddress string          `json:"walletAddress"` // Back-reference to the credited wallet
}
