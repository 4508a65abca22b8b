// Package ledger owns the persisted collection of user ledgers.
//
// Every read decodes a fresh copy of the whole collection from the blob and
// every write replaces a whole user record (WriteUser) or the whole user
// sequence (WriteAll). Each call is atomic on its own; a read followed by a
// write is not. Two read-modify-write cycles on the same user that overlap
// can therefore lose an update. Mode decides what happens then:
//
//   - ModeOptimistic compares per-user version stamps and rejects the stale
//     write with domain.ErrStaleWrite. UpdateUser and UpdateAll re-read and
//     re-apply the mutation.
//   - ModeOverwrite keeps last-writer-wins, reproducing the lost update.
package ledger

import (
	"context"       // Context for blob calls
	"encoding/json" // Collection encoding
	"errors"        // Error matching
	"fmt"           // Error wrapping
	"sync"          // Store locking
	"time"          // Id clock

	"accrual_system/internal/domain"  // Domain models
	"accrual_system/internal/rules"   // Validation rules
	"accrual_system/internal/storage" // Blob backends
)

// Mode selects how concurrent read-modify-write cycles are reconciled.
type Mode string

const (
	ModeOptimistic Mode = "optimistic" // Version-checked writes
	ModeOverwrite  Mode = "overwrite"  // Last writer wins
)

// ParseMode validates a configured mode name.
func ParseMode(name string) (Mode, error) {
	switch Mode(name) {
	case ModeOptimistic, ModeOverwrite:
		return Mode(name), nil
	}
	return "", fmt.Errorf("unknown consistency mode %q", name)
}

// Options configures a Store.
type Options struct {
	Mode    Mode             // Consistency mode, defaults to optimistic
	Retries int              // attempts per Update call, at least 1
	Now     func() time.Time // id clock, defaults to time.Now
}

// Store is the LedgerStore.
type Store struct {
	mu      sync.Mutex       // Serializes blob access
	blob    storage.Blob     // Persisted document
	mode    Mode             // Consistency mode
	retries int              // Attempts per Update call
	now     func() time.Time // Id clock
}

// NewStore wraps blob.
func NewStore(blob storage.Blob, opts Options) *Store {
	if opts.Mode == "" {
		opts.Mode = ModeOptimistic // Default mode
	}
	if opts.Retries < 1 {
		opts.Retries = 1 // At least one attempt
	}
	if opts.Now == nil {
		opts.Now = time.Now // Real clock
	}
	return &Store{blob: blob, mode: opts.Mode, retries: opts.Retries, now: opts.Now}
}

// Mode returns the configured consistency mode.
func (s *Store) Mode() Mode {
	return s.mode
}

// Init seeds the collection with admin when nothing has been persisted yet.
// It reports whether seeding happened.
func (s *Store) Init(ctx context.Context, admin domain.User, lang string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.blob.Get(ctx) // Anything persisted yet?
	if err == nil {
		return false, nil // Already initialized
	}
	if !errors.Is(err, storage.ErrBlobMissing) {
		return false, err
	}
	if admin.ID == 0 {
		admin.ID = 1 // Seeded admin is id 1
	}
	admin.Role = domain.RoleAdmin // Always an administrator
	admin.Version = 1             // First version
	if lang == "" {
		lang = domain.DefaultLang // Default locale
	}
	c := domain.Collection{Users: []domain.User{normalize(admin)}, UserLang: lang}
	return true, s.save(ctx, c)
}

// ReadUser returns an independent copy of one user.
func (s *Store) ReadUser(ctx context.Context, id uint) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx)
	if err != nil {
		return domain.User{}, err
	}
	u := c.FindUser(id)
	if u == nil {
		return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrRecordNotFound)
	}
	return *u, nil
}

// FindByEmail returns the user registered under email.
func (s *Store) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx)
	if err != nil {
		return domain.User{}, err
	}
	email = rules.NormalizeEmail(email)
	for _, u := range c.Users {
		if rules.NormalizeEmail(u.Email) == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrRecordNotFound
}

// ReadAll returns an independent copy of the entire collection.
func (s *Store) ReadAll(ctx context.Context) (domain.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// WriteUser replaces the stored record with u's id, or inserts u when its id
// is zero. On success u carries its assigned id and new version.
func (s *Store) WriteUser(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx)
	if err != nil {
		return err
	}
	next := normalize(u.Clone()) // Independent copy of the record
	if rules.EmailTaken(c.Users, next.Email, next.ID) {
		return domain.ErrDuplicateEmail // Email must stay unique
	}

	cur := c.FindUser(next.ID) // Stored record, if any
	switch {
	case next.ID == 0:
		next.ID = s.nextID(c.Users) // Assign a fresh id
		next.Version = 1
		c.Users = append(c.Users, next) // Insert
	case cur == nil && next.Version == 0:
		next.Version = 1
		c.Users = append(c.Users, next) // Insert
	case cur == nil:
		// deleted since it was read
		return fmt.Errorf("user %d: %w", next.ID, domain.ErrRecordNotFound)
	default:
		if s.mode == ModeOptimistic && cur.Version != next.Version {
			return fmt.Errorf("user %d at version %d, stored %d: %w", next.ID, next.Version, cur.Version, domain.ErrStaleWrite)
		}
		next.Version = cur.Version + 1 // Bump version
		*cur = next                    // Replace in place
	}

	if err := s.save(ctx, c); err != nil {
		return err
	}
	u.ID, u.Version = next.ID, next.Version // Report id and version to the caller
	return nil
}

// WriteAll replaces the user sequence with snapshot.Users. snapshot must come
// from ReadAll: in optimistic mode users inserted after that read are kept,
// and a stale user anywhere in the sequence rejects the whole write.
func (s *Store) WriteAll(ctx context.Context, snapshot domain.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.load(ctx) // Current stored state
	if err != nil {
		return err
	}

	seen := make(map[uint]bool, len(snapshot.Users))      // Ids present in the snapshot
	result := make([]domain.User, 0, len(snapshot.Users)) // Users to persist
	for _, in := range snapshot.Users {
		next := normalize(in.Clone())   // Independent copy of the record
		cur := stored.FindUser(next.ID) // Stored record, if any
		switch {
		case next.ID == 0:
		case cur == nil && next.Version != 0 && s.mode == ModeOptimistic:
			return fmt.Errorf("user %d deleted concurrently: %w", next.ID, domain.ErrStaleWrite)
		case cur != nil && s.mode == ModeOptimistic && cur.Version != next.Version:
			return fmt.Errorf("user %d at version %d, stored %d: %w", next.ID, next.Version, cur.Version, domain.ErrStaleWrite)
		}
		switch {
		case cur == nil:
			next.Version++ // New or re-added record
		case !sameContent(*cur, next):
			next.Version = cur.Version + 1 // Bump version
		default:
			next.Version = cur.Version // Unchanged record keeps its version
		}
		if next.ID != 0 {
			seen[next.ID] = true
		}
		result = append(result, next)
	}

	if s.mode == ModeOptimistic {
		for _, cur := range stored.Users {
			if !seen[cur.ID] && cur.ID > snapshot.HighWater {
				result = append(result, cur) // Inserted after the snapshot was read
			}
		}
	}
	for i := range result {
		if result[i].ID == 0 {
			result[i].ID = s.nextID(result) // Assign a fresh id
			result[i].Version = 1
		}
	}
	for i, u := range result {
		if rules.EmailTaken(result[i+1:], u.Email, u.ID) {
			return domain.ErrDuplicateEmail // Email must stay unique
		}
	}

	stored.Users = result // Replace the sequence
	return s.save(ctx, stored)
}

// CurrentUserID returns the persisted session pointer.
func (s *Store) CurrentUserID(ctx context.Context) (uint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx)
	if err != nil || c.CurrentUser == nil {
		return 0, false, err
	}
	return *c.CurrentUser, true, nil // Pointer is set
}

// SetCurrentUserID persists the session pointer.
func (s *Store) SetCurrentUserID(ctx context.Context, id uint) error {
	return s.modify(ctx, func(c *domain.Collection) { c.CurrentUser = &id })
}

// ClearCurrentUserID resets the session pointer to null.
func (s *Store) ClearCurrentUserID(ctx context.Context) error {
	return s.modify(ctx, func(c *domain.Collection) { c.CurrentUser = nil })
}

// Lang returns the persisted locale, defaulting to "en".
func (s *Store) Lang(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx)
	if err != nil {
		return domain.DefaultLang, err // Default on failure
	}
	return c.UserLang, nil
}

// SetLang persists the locale preference.
func (s *Store) SetLang(ctx context.Context, lang string) error {
	return s.modify(ctx, func(c *domain.Collection) { c.UserLang = lang })
}

func (s *Store) modify(ctx context.Context, fn func(*domain.Collection)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx)
	if err != nil {
		return err
	}
	fn(&c) // Apply the change
	return s.save(ctx, c)
}

func (s *Store) load(ctx context.Context) (domain.Collection, error) {
	raw, err := s.blob.Get(ctx) // Read the document
	if errors.Is(err, storage.ErrBlobMissing) {
		return domain.Collection{Users: []domain.User{}, UserLang: domain.DefaultLang}, nil
	}
	if err != nil {
		return domain.Collection{}, fmt.Errorf("load ledger: %w", err)
	}
	var c domain.Collection
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.Collection{}, fmt.Errorf("decode ledger: %w", err)
	}
	if c.UserLang == "" {
		c.UserLang = domain.DefaultLang // Default locale
	}
	for i := range c.Users {
		c.Users[i] = normalize(c.Users[i])
	}
	c.HighWater = domain.MaxID(c.Users) // Highest id in this snapshot
	return c, nil
}

func (s *Store) save(ctx context.Context, c domain.Collection) error {
	raw, err := json.Marshal(c) // Encode the document
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := s.blob.Set(ctx, raw); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// nextID is unique and increasing: the clock in milliseconds, bumped past every existing id.
func (s *Store) nextID(users []domain.User) uint {
	id := uint(s.now().UnixMilli()) // Clock-based id
	if max := domain.MaxID(users); id <= max {
		id = max + 1 // Stay above every existing id
	}
	return id
}

// normalize replaces nil slices so records always encode as [] rather than null.
func normalize(u domain.User) domain.User {
	if u.Wallets == nil {
		u.Wallets = []domain.Wallet{} // Encode as []
	}
	if u.EarningsHistory == nil {
		u.EarningsHistory = []domain.EarningRecord{} // Encode as []
	}
	return u
}

func sameContent(a, b domain.User) bool {
	a.Version, b.Version = 0, 0 // Compare content only
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ra) == string(rb)
}
