package session

import (
	"context" // Context for store calls
	"errors"  // Error matching
	"fmt"     // Error wrapping
	"strings" // Input trimming
	"sync"    // Current session locking

	"accrual_system/internal/domain" // Domain models
	"accrual_system/internal/ledger" // Ledger store
	"accrual_system/internal/rules"  // Validation rules

	"github.com/sirupsen/logrus" // Structured logging
	"golang.org/x/crypto/bcrypt" // Password hashing
)

// Manager is the SessionManager: it resolves the current user and persists
// the session pointer through the store.
type Manager struct {
	store *ledger.Store // Ledger store

	mu      sync.Mutex // Guards current
	current *Session   // Active session, nil when logged out
}

// NewManager creates a manager with no active session.
func NewManager(store *ledger.Store) *Manager {
	return &Manager{store: store}
}

// HashPassword turns a plaintext password into the stored credential.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost) // Hash with default cost
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Current returns the active session, or ErrNoSession.
func (m *Manager) Current() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, domain.ErrNoSession // Logged out
	}
	return m.current, nil
}

// Resume restores the persisted session pointer. A pointer to a missing or
// suspended user is cleared.
func (m *Manager) Resume(ctx context.Context) (*Session, error) {
	id, ok, err := m.store.CurrentUserID(ctx) // Saved pointer
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNoSession // Nothing saved
	}
	u, err := m.store.ReadUser(ctx, id) // Pointed-to user
	if err == nil && !u.Suspended {
		return m.activate(u), nil // Valid session
	}
	if err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, err // Store failure
	}
	logrus.WithField("user_id", id).Info("clearing invalid session")
	if err := m.Logout(ctx); err != nil {
		return nil, err
	}
	return nil, domain.ErrNoSession
}

// Login opens a session for a matching, non-suspended email and password.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := m.store.FindByEmail(ctx, email) // Look up by normalized email
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, domain.ErrInvalidCredentials // Unknown email
	} else if err != nil {
		return nil, err // Store failure
	}
	// Compare hashed password
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if u.Suspended {
		return nil, domain.ErrAccountSuspended // Suspended accounts cannot log in
	}
	if err := m.store.SetCurrentUserID(ctx, u.ID); err != nil {
		return nil, err // Could not persist the pointer
	}
	logrus.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("User logged in")
	return m.activate(u), nil
}

// Register creates a regular user and logs them in.
func (m *Manager) Register(ctx context.Context, username, email, password string) (*Session, error) {
	email = rules.NormalizeEmail(email) // Case-insensitive email
	if email == "" || password == "" {
		return nil, domain.ErrAborted // Form dismissed
	}
	all, err := m.store.ReadAll(ctx) // Snapshot for the duplicate check
	if err != nil {
		return nil, err
	}
	if rules.EmailTaken(all.Users, email, 0) {
		return nil, domain.ErrDuplicateEmail // Email already registered
	}
	hash, err := HashPassword(password) // Hash before storage
	if err != nil {
		return nil, err
	}
	u := domain.User{
		Email:    email,                       // Normalized email
		Username: strings.TrimSpace(username), // Display name
		Password: hash,                        // Hashed password
		Role:     domain.RoleUser,             // Regular user
	}
	// the store re-checks email uniqueness atomically
	if err := m.store.WriteUser(ctx, &u); err != nil {
		return nil, err
	}
	if err := m.store.SetCurrentUserID(ctx, u.ID); err != nil {
		return nil, err // Could not persist the pointer
	}
	logrus.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("User registered")
	u, err = m.store.ReadUser(ctx, u.ID) // Stored copy with version
	if err != nil {
		return nil, err
	}
	return m.activate(u), nil
}

// Logout clears the persisted pointer and the active session.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.current = nil // Drop the session
	m.mu.Unlock()
	return m.store.ClearCurrentUserID(ctx) // Drop the saved pointer
}

// activate installs a new session for u
func (m *Manager) activate(u domain.User) *Session {
	s := New(u)
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	return s
}
