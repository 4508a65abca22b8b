// Package service is the command dispatch surface: one method per user intent,
// callable from any front end.
package service

import (
	"context" // Context for store and scheduler calls
	"time"    // Clock for wallet timestamps and stats

	"accrual_system/internal/accrual" // Wallet accrual scheduler
	"accrual_system/internal/admin"   // Admin mutations
	"accrual_system/internal/domain"  // Domain models
	"accrual_system/internal/ledger"  // Ledger store
	"accrual_system/internal/session" // Session management

	"github.com/shopspring/decimal" // Exact amounts
	"github.com/sirupsen/logrus"    // Structured logging
)

// Config holds the business thresholds the service enforces.
type Config struct {
	MinWithdrawal decimal.Decimal  // Smallest balance that can be withdrawn
	Now           func() time.Time // Clock, defaults to time.Now
}

// Service wires the session manager, scheduler and admin mutator together.
type Service struct {
	store    *ledger.Store      // Ledger store
	sessions *session.Manager   // Session manager
	sched    *accrual.Scheduler // Accrual scheduler
	admin    *admin.Mutator     // Admin mutator
	notify   accrual.Notifier   // Refresh hook
	cfg      Config             // Thresholds and clock
}

// New creates a Service. notify is told about every successful mutation and may be nil.
func New(store *ledger.Store, sessions *session.Manager, sched *accrual.Scheduler, mutator *admin.Mutator, notify accrual.Notifier, cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now // Default clock
	}
	if notify == nil {
		notify = accrual.NotifierFunc(func(domain.User) {}) // No-op refresh
	}
	return &Service{store: store, sessions: sessions, sched: sched, admin: mutator, notify: notify, cfg: cfg}
}

// Current returns the active session.
func (s *Service) Current() (*session.Session, error) {
	return s.sessions.Current()
}

// Resume restores the persisted session and starts accrual for it.
func (s *Service) Resume(ctx context.Context) (*session.Session, error) {
	sess, err := s.sessions.Resume(ctx) // Restore the saved pointer
	if err != nil {
		return nil, err // No session or store failure
	}
	return sess, s.sched.Start(ctx, sess) // Start accrual
}

// Login authenticates and starts accrual for the user's wallets. A failed
// attempt leaves the current session and its accrual untouched.
func (s *Service) Login(ctx context.Context, email, password string) (*session.Session, error) {
	sess, err := s.sessions.Login(ctx, email, password) // Check credentials
	if err != nil {
		return nil, err // Invalid credentials or suspended
	}
	return sess, s.sched.Start(ctx, sess) // Start replaces the previous user's tasks
}

// Register creates a user, logs them in and starts (empty) accrual. A failed
// attempt leaves the current session and its accrual untouched.
func (s *Service) Register(ctx context.Context, username, email, password string) (*session.Session, error) {
	sess, err := s.sessions.Register(ctx, username, email, password) // Create and log in
	if err != nil {
		return nil, err // Duplicate email or empty input
	}
	return sess, s.sched.Start(ctx, sess) // Start replaces the previous user's tasks
}

// Logout stops accrual and clears the session.
func (s *Service) Logout(ctx context.Context) error {
	s.sched.Stop()                 // Stop every wallet task
	logrus.Info("User logged out") // Log logout
	return s.sessions.Logout(ctx)  // Clear the saved pointer
}

// Close stops background work.
func (s *Service) Close() {
	s.sched.Stop()
}

// ActiveTasks lists wallets with a running accrual task.
func (s *Service) ActiveTasks() []string {
	return s.sched.Active()
}

// ListUsers returns the admin user listing.
func (s *Service) ListUsers(ctx context.Context, sess *session.Session) ([]admin.UserSummary, error) {
	return s.admin.ListUsers(ctx, sess.UserID())
}

// SuspendUser toggles suspension of target and returns the new state.
func (s *Service) SuspendUser(ctx context.Context, sess *session.Session, target uint) (bool, error) {
	suspended, err := s.admin.ToggleSuspended(ctx, sess.UserID(), target) // Flip the flag
	if err == nil {
		s.notify.Refresh(sess.User()) // Redraw the admin view
	}
	return suspended, err
}

// DeleteUser removes target.
func (s *Service) DeleteUser(ctx context.Context, sess *session.Session, target uint) error {
	err := s.admin.DeleteUser(ctx, sess.UserID(), target) // Remove the user
	if err == nil {
		s.notify.Refresh(sess.User()) // Redraw the admin view
	}
	return err
}

// SetBalance force-sets target's balance from amount text.
func (s *Service) SetBalance(ctx context.Context, sess *session.Session, target uint, amount string) (domain.User, error) {
	u, err := s.admin.SetBalance(ctx, sess.UserID(), target, amount) // Override the balance
	if err == nil {
		s.notify.Refresh(sess.User()) // Redraw the admin view
	}
	return u, err
}
