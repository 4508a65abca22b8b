// Package accrual credits the wallets of the session user on a fixed period.
package accrual

import (
	"context" // Task cancellation
	"errors"  // Error matching
	"sort"    // Stable task listing
	"sync"    // Task table locking
	"time"    // Tick period and timestamps

	"accrual_system/internal/domain"  // Domain models
	"accrual_system/internal/ledger"  // Ledger store
	"accrual_system/internal/session" // Session context

	"github.com/shopspring/decimal" // Exact amounts
	"github.com/sirupsen/logrus"    // Structured logging
)

// Notifier is told about every record an accrual tick writes.
type Notifier interface {
	Refresh(u domain.User)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(u domain.User)

func (f NotifierFunc) Refresh(u domain.User) { f(u) }

// Config holds the accrual rate and period.
type Config struct {
	Rate      decimal.Decimal
	Interval  time.Duration
	NewTicker TickerFactory    // defaults to SystemTicker
	Now       func() time.Time // defaults to time.Now
	Notifier  Notifier         // optional
}

type task struct {
	address string             // Wallet the task credits
	cancel  context.CancelFunc // Stops the task
	done    chan struct{}      // Closed when the goroutine exits
	owed    int                // Ticks whose write never landed; only touched by the task goroutine
}

// Scheduler runs one task per wallet of the session user. Tasks are keyed by
// wallet address; Start replaces the whole table.
type Scheduler struct {
	store *ledger.Store
	cfg   Config

	startMu sync.Mutex // serializes Start and Stop
	mu      sync.Mutex // guards tasks
	tasks   map[string]*task
}

// New creates an idle scheduler.
func New(store *ledger.Store, cfg Config) *Scheduler {
	if cfg.NewTicker == nil {
		cfg.NewTicker = SystemTicker // Real ticker
	}
	if cfg.Now == nil {
		cfg.Now = time.Now // Real clock
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NotifierFunc(func(domain.User) {}) // No-op refresh
	}
	return &Scheduler{store: store, cfg: cfg, tasks: make(map[string]*task)}
}

// Start stops every running task, then starts one task per wallet the
// session user currently owns, as read from the store.
func (s *Scheduler) Start(ctx context.Context, sess *session.Session) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.stop() // Never leave two tasks for one wallet

	u, err := s.store.ReadUser(ctx, sess.UserID()) // Fresh wallet list
	if err != nil {
		return err
	}
	sess.Set(u) // Update the cached record

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range u.Wallets {
		taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx)) // Outlives the request
		t := &task{address: w.Address, cancel: cancel, done: make(chan struct{})}
		s.tasks[w.Address] = t                                      // Register the task
		go s.run(taskCtx, sess, t, s.cfg.NewTicker(s.cfg.Interval)) // Ticker exists before Start returns
	}
	logrus.WithFields(logrus.Fields{
		"user_id": u.ID,           // Session user
		"wallets": len(u.Wallets), // Task count
	}).Info("Accrual started")
	return nil
}

// Stop cancels every task and waits for in-flight ticks to finish. It is
// safe to call when nothing is running.
func (s *Scheduler) Stop() {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	s.stop()
}

// Active lists the wallet addresses that currently have a task.
func (s *Scheduler) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tasks))
	for addr := range s.tasks {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

func (s *Scheduler) stop() {
	s.mu.Lock()
	running := s.tasks               // Snapshot the table
	s.tasks = make(map[string]*task) // Clear it
	s.mu.Unlock()                    // Self-dropping tasks need the lock

	for _, t := range running {
		t.cancel() // Signal every task
	}
	for _, t := range running {
		<-t.done // Wait for in-flight ticks
	}
}

func (s *Scheduler) run(ctx context.Context, sess *session.Session, t *task, ticker Ticker) {
	defer close(t.done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return // Stopped
		case <-ticker.C():
			if ctx.Err() != nil {
				return // Stopped while the tick was pending
			}
			if !s.tick(ctx, sess, t) {
				return // Wallet or owner gone
			}
		}
	}
}

// tick performs one read-modify-write cycle for t's wallet. Credit from
// earlier ticks that could not be written is carried into this one. It
// returns false when the wallet or its owner no longer exists and the task
// has dropped itself.
func (s *Scheduler) tick(ctx context.Context, sess *session.Session, t *task) bool {
	// a cycle that has begun runs to completion even if Stop is called meanwhile
	ctx = context.WithoutCancel(ctx)
	entry := logrus.WithFields(logrus.Fields{"user_id": sess.UserID(), "wallet": t.address})

	ticks := t.owed + 1 // This tick plus any unwritten ones
	u, err := s.store.UpdateUser(ctx, sess.UserID(), func(u *domain.User) error {
		w := u.FindWallet(t.address)
		if w == nil {
			return domain.ErrRecordNotFound // Wallet deleted since Start
		}
		at := s.cfg.Now().UnixMilli() // Credit time
		for i := 0; i < ticks; i++ {
			w.Balance = w.Balance.Add(s.cfg.Rate) // Credit one period
			u.EarningsHistory = append(u.EarningsHistory, domain.EarningRecord{
				Timestamp:     at,
				Amount:        s.cfg.Rate,
				WalletAddress: t.address,
			})
		}
		return nil
	})
	if errors.Is(err, domain.ErrRecordNotFound) {
		entry.Debug("wallet gone, cancelling accrual task")
		s.drop(t)
		return false
	}
	if err != nil {
		t.owed = ticks // Retry the credit on the next firing
		entry.WithError(err).WithField("owed", ticks).Warn("accrual tick failed")
		return true
	}
	t.owed = 0

	entry.WithField("balance", u.FindWallet(t.address).Balance.StringFixed(8)).Debug("Accrual tick")
	sess.Set(u)               // Update the cached record
	s.cfg.Notifier.Refresh(u) // Redraw
	return true
}

func (s *Scheduler) drop(t *task) {
	t.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	// A restarted table may hold a newer task for the same wallet
	if s.tasks[t.address] == t {
		delete(s.tasks, t.address)
	}
}
