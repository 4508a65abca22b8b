package ledger

import (
	"context" // Context for store calls
	"errors"  // Error matching

	"accrual_system/internal/domain" // Domain models

	"github.com/sirupsen/logrus" // Structured logging
)

// UpdateUser runs one read-modify-write cycle on user id. fn mutates a fresh
// copy; an error from fn aborts the cycle before anything is written. In
// optimistic mode a stale write re-reads and re-applies fn, up to the
// configured number of attempts.
func (s *Store) UpdateUser(ctx context.Context, id uint, fn func(*domain.User) error) (domain.User, error) {
	for attempt := 1; ; attempt++ {
		u, err := s.ReadUser(ctx, id) // Fresh copy
		if err != nil {
			return domain.User{}, err
		}
		if err := fn(&u); err != nil {
			return domain.User{}, err
		}
		err = s.WriteUser(ctx, &u) // Version-checked write
		if err == nil {
			return u, nil // Written
		}
		if !s.retryable(err, attempt) {
			return domain.User{}, err
		}
		logrus.WithFields(logrus.Fields{
			"user_id": id,
			"attempt": attempt,
		}).Debug("user write conflict, retrying")
	}
}

// UpdateAll is UpdateUser for the whole collection.
func (s *Store) UpdateAll(ctx context.Context, fn func(*domain.Collection) error) (domain.Collection, error) {
	for attempt := 1; ; attempt++ {
		c, err := s.ReadAll(ctx) // Fresh snapshot
		if err != nil {
			return domain.Collection{}, err
		}
		if err := fn(&c); err != nil {
			return domain.Collection{}, err
		}
		err = s.WriteAll(ctx, c) // Version-checked write
		if err == nil {
			return c, nil // Written
		}
		if !s.retryable(err, attempt) {
			return domain.Collection{}, err
		}
		logrus.WithField("attempt", attempt).Debug("collection write conflict, retrying")
	}
}

func (s *Store) retryable(err error, attempt int) bool {
	return errors.Is(err, domain.ErrStaleWrite) && attempt < s.retries
}
