// Package admin implements privileged one-shot edits over the whole ledger.
// Each operation reads the entire collection, changes at most one user and
// writes the collection back.
package admin

import (
	"context" // Context for store calls
	"fmt"     // Error wrapping

	"accrual_system/internal/domain" // Domain models
	"accrual_system/internal/ledger" // Ledger store
	"accrual_system/internal/rules"  // Validation rules

	"github.com/shopspring/decimal" // Exact amounts
	"github.com/sirupsen/logrus"    // Structured logging
)

// UserSummary is one row of the admin user listing.
type UserSummary struct {
	ID           uint            `json:"id"`           // User id
	Username     string          `json:"username"`     // Display name
	Email        string          `json:"email"`        // Email
	Role         domain.Role     `json:"role"`         // Role
	Suspended    bool            `json:"suspended"`    // Suspension flag
	TotalBalance decimal.Decimal `json:"totalBalance"` // Sum of all wallets
}

// Mutator is the AdminMutator.
type Mutator struct {
	store *ledger.Store // Ledger store
	now   func() int64  // Unix milliseconds
}

// NewMutator creates a Mutator. now returns unix milliseconds for placeholder wallets.
func NewMutator(store *ledger.Store, now func() int64) *Mutator {
	return &Mutator{store: store, now: now}
}

// ListUsers summarizes every user for actor.
func (m *Mutator) ListUsers(ctx context.Context, actor uint) ([]UserSummary, error) {
	c, err := m.store.ReadAll(ctx) // Whole collection
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(&c, actor); err != nil {
		return nil, err // Not an admin
	}
	out := make([]UserSummary, 0, len(c.Users)) // One row per user
	for _, u := range c.Users {
		out = append(out, UserSummary{
			ID:           u.ID,
			Username:     u.Username,
			Email:        u.Email,
			Role:         u.Role,
			Suspended:    u.Suspended,
			TotalBalance: u.TotalBalance(),
		})
	}
	return out, nil
}

// ToggleSuspended flips the suspended flag of a non-admin user and returns the new state.
func (m *Mutator) ToggleSuspended(ctx context.Context, actor, target uint) (bool, error) {
	var suspended bool // State after the toggle
	_, err := m.mutate(ctx, actor, target, "toggle_suspend", func(c *domain.Collection, u *domain.User) {
		u.Suspended = !u.Suspended // Flip
		suspended = u.Suspended
	})
	return suspended, err
}

// DeleteUser removes a non-admin user with all wallets and history.
func (m *Mutator) DeleteUser(ctx context.Context, actor, target uint) error {
	_, err := m.mutate(ctx, actor, target, "delete_user", func(c *domain.Collection, _ *domain.User) {
		kept := make([]domain.User, 0, len(c.Users)) // Users that stay
		for _, u := range c.Users {
			if u.ID != target {
				kept = append(kept, u)
			}
		}
		c.Users = kept
	})
	return err
}

// SetBalance zeroes every wallet of a non-admin user and puts amountText on
// the first one, creating a placeholder wallet when there is none. No
// earning record is appended.
func (m *Mutator) SetBalance(ctx context.Context, actor, target uint, amountText string) (domain.User, error) {
	amount, err := rules.ParseAmount(amountText) // Validate before touching the store
	if err != nil {
		return domain.User{}, err
	}
	return m.mutate(ctx, actor, target, "set_balance", func(_ *domain.Collection, u *domain.User) {
		if len(u.Wallets) == 0 {
			u.Wallets = append(u.Wallets, domain.Wallet{
				Address:   domain.PlaceholderAddress, // Placeholder for wallet-less users
				CreatedAt: m.now(),                   // Creation time
			})
		}
		for i := range u.Wallets {
			u.Wallets[i].Balance = decimal.Zero // Clear every wallet
		}
		u.Wallets[0].Balance = amount // New balance on the first wallet
	})
}

// mutate runs fn against target inside one collection read-modify-write cycle.
// The checks repeat on every attempt since the collection may have changed.
func (m *Mutator) mutate(ctx context.Context, actor, target uint, action string, fn func(*domain.Collection, *domain.User)) (domain.User, error) {
	var result domain.User // Target after fn
	_, err := m.store.UpdateAll(ctx, func(c *domain.Collection) error {
		if err := requireAdmin(c, actor); err != nil {
			return err // Actor is not an admin
		}
		u := c.FindUser(target) // Target user
		if u == nil {
			return fmt.Errorf("user %d: %w", target, domain.ErrRecordNotFound)
		}
		if err := rules.CheckAdminTarget(*u); err != nil {
			return err // Administrators are immune
		}
		fn(c, u)
		if found := c.FindUser(target); found != nil {
			result = found.Clone() // Still present unless deleted
		}
		return nil
	})
	entry := logrus.WithFields(logrus.Fields{
		"actor_id":  actor,  // Admin
		"target_id": target, // Target user
		"action":    action, // Mutation name
	})
	if err != nil {
		entry.WithError(err).Warn("Admin action rejected")
		return domain.User{}, err
	}
	entry.Info("Admin action applied")
	return result, nil
}

// requireAdmin checks that actor exists and is an administrator
func requireAdmin(c *domain.Collection, actor uint) error {
	a := c.FindUser(actor)
	if a == nil || !a.IsAdmin() {
		return domain.ErrForbidden
	}
	return nil
}
