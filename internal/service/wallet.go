package service

import (
	"context" // Context for store calls
	"fmt"     // Error wrapping
	"strings" // Input trimming

	"accrual_system/internal/domain"  // Domain models
	"accrual_system/internal/rules"   // Validation rules
	"accrual_system/internal/session" // Session context

	"github.com/shopspring/decimal" // Exact amounts
	"github.com/sirupsen/logrus"    // Structured logging
)

// AddWallet adds address to the session user and restarts accrual so the new
// wallet gets a task. An empty address means the prompt was dismissed.
func (s *Service) AddWallet(ctx context.Context, sess *session.Session, address string) (domain.User, error) {
	address = strings.TrimSpace(address) // Ignore surrounding whitespace
	if address == "" {
		return domain.User{}, domain.ErrAborted // Prompt dismissed
	}
	// Fail fast against the cached record
	if err := rules.CheckNewWallet(sess.User(), address); err != nil {
		return domain.User{}, err
	}
	u, err := s.store.UpdateUser(ctx, sess.UserID(), func(u *domain.User) error {
		// Re-check against the fresh record
		if err := rules.CheckNewWallet(*u, address); err != nil {
			return err
		}
		u.Wallets = append(u.Wallets, domain.Wallet{
			Address:   address,                 // New wallet address
			CreatedAt: s.cfg.Now().UnixMilli(), // Creation time
		})
		return nil
	})
	if err != nil {
		return domain.User{}, err // Invalid, duplicate, or store failure
	}
	logrus.WithFields(logrus.Fields{"user_id": u.ID, "wallet": address}).Info("Wallet added")
	return s.afterWalletChange(ctx, sess, u) // Restart accrual
}

// DeleteWallet removes address from the session user and restarts accrual.
func (s *Service) DeleteWallet(ctx context.Context, sess *session.Session, address string) (domain.User, error) {
	u, err := s.store.UpdateUser(ctx, sess.UserID(), func(u *domain.User) error {
		kept := make([]domain.Wallet, 0, len(u.Wallets)) // Wallets that stay
		for _, w := range u.Wallets {
			if w.Address != address {
				kept = append(kept, w)
			}
		}
		// Nothing removed means the wallet is unknown
		if len(kept) == len(u.Wallets) {
			return fmt.Errorf("wallet %s: %w", address, domain.ErrRecordNotFound)
		}
		u.Wallets = kept
		return nil
	})
	if err != nil {
		return domain.User{}, err // Unknown wallet or store failure
	}
	logrus.WithFields(logrus.Fields{"user_id": u.ID, "wallet": address}).Info("Wallet deleted")
	return s.afterWalletChange(ctx, sess, u) // Restart accrual
}

// Withdraw empties a wallet whose balance meets the minimum withdrawal.
func (s *Service) Withdraw(ctx context.Context, sess *session.Session, address string) (domain.User, error) {
	var withdrawn string // Amount taken out, for the log
	u, err := s.store.UpdateUser(ctx, sess.UserID(), func(u *domain.User) error {
		w := u.FindWallet(address) // Wallet to empty
		if w == nil {
			return fmt.Errorf("wallet %s: %w", address, domain.ErrRecordNotFound)
		}
		// Check the threshold on the fresh balance
		if err := rules.CheckWithdrawal(*w, s.cfg.MinWithdrawal); err != nil {
			return err
		}
		withdrawn = w.Balance.StringFixed(8) // Record amount
		w.Balance = decimal.Zero             // Reset to zero
		return nil
	})
	if err != nil {
		return domain.User{}, err // Below minimum, unknown wallet, or store failure
	}
	logrus.WithFields(logrus.Fields{
		"user_id": u.ID,      // Wallet owner
		"wallet":  address,   // Emptied wallet
		"amount":  withdrawn, // Amount withdrawn
	}).Info("Withdrawal")
	sess.Set(u)         // Update the cached record
	s.notify.Refresh(u) // Redraw
	return u, nil
}

// afterWalletChange caches u and restarts accrual for the new wallet set
func (s *Service) afterWalletChange(ctx context.Context, sess *session.Session, u domain.User) (domain.User, error) {
	sess.Set(u) // Update the cached record
	if err := s.sched.Start(ctx, sess); err != nil {
		return u, err // Store failure while restarting
	}
	s.notify.Refresh(u) // Redraw
	return u, nil
}
