package service

import (
	"time" // Stats windows

	"accrual_system/internal/domain"  // Domain models
	"accrual_system/internal/session" // Session context

	"github.com/shopspring/decimal" // Exact amounts
)

// Dashboard is the session user's balance overview.
type Dashboard struct {
	UserID         uint            `json:"id"`             // User id
	Username       string          `json:"username"`       // Display name
	Role           domain.Role     `json:"role"`           // Role
	Wallets        []domain.Wallet `json:"wallets"`        // Wallets with balances
	TotalBalance   decimal.Decimal `json:"totalBalance"`   // Sum of all wallets
	TodayEarnings  decimal.Decimal `json:"todayEarnings"`  // Earned in the last 24 hours
	WeeklyEarnings decimal.Decimal `json:"weeklyEarnings"` // Earned in the last 7 days
	EarningsCount  int             `json:"earningsCount"`  // Number of earning records
}

// Dashboard summarizes the latest known state of the session user.
func (s *Service) Dashboard(sess *session.Session) Dashboard {
	u := sess.User()   // Cached record
	now := s.cfg.Now() // Reference time for the windows
	wallets := u.Wallets
	if wallets == nil {
		wallets = []domain.Wallet{} // Render an empty list, not null
	}
	return Dashboard{
		UserID:         u.ID,
		Username:       u.Username,
		Role:           u.Role,
		Wallets:        wallets,
		TotalBalance:   u.TotalBalance(),
		TodayEarnings:  u.EarnedSince(now.Add(-24 * time.Hour).UnixMilli()),
		WeeklyEarnings: u.EarnedSince(now.Add(-7 * 24 * time.Hour).UnixMilli()),
		EarningsCount:  len(u.EarningsHistory),
	}
}
