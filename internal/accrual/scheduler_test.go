package accrual

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"accrual_system/internal/admin"
	"accrual_system/internal/domain"
	"accrual_system/internal/ledger"
	"accrual_system/internal/session"
	"accrual_system/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	walletA = "1BoatSLRHtKNngkdXEeobR76b53LETtpyT"
	walletB = "3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy"
)

var rate = decimal.RequireFromString("0.00000001")

type manualTicker struct {
	c       chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (m *manualTicker) C() <-chan time.Time { return m.c }

func (m *manualTicker) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

// manualClock hands out tickers that only fire on Advance.
type manualClock struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (c *manualClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{c: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

// fire delivers one firing to every live ticker and reports how many fired.
func (c *manualClock) fire() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		t.mu.Lock()
		if !t.stopped {
			select {
			case t.c <- time.Now():
				n++
			default:
			}
		}
		t.mu.Unlock()
	}
	return n
}

func (c *manualClock) live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		t.mu.Lock()
		if !t.stopped {
			n++
		}
		t.mu.Unlock()
	}
	return n
}

type fixture struct {
	store   *ledger.Store
	sched   *Scheduler
	clock   *manualClock
	sess    *session.Session
	updates chan domain.User
}

func newFixture(t *testing.T, wallets ...string) *fixture {
	t.Helper()
	return newFixtureOn(t, storage.NewMemoryBlob(), 10, wallets...)
}

func newFixtureOn(t *testing.T, blob storage.Blob, retries int, wallets ...string) *fixture {
	t.Helper()
	ctx := context.Background()
	store := ledger.NewStore(blob, ledger.Options{Retries: retries})

	u := domain.User{Email: "alice@example.com", Username: "alice", Role: domain.RoleUser}
	for _, addr := range wallets {
		u.Wallets = append(u.Wallets, domain.Wallet{Address: addr})
	}
	require.NoError(t, store.WriteUser(ctx, &u))

	f := &fixture{
		store:   store,
		clock:   &manualClock{},
		sess:    session.New(u),
		updates: make(chan domain.User, 64),
	}
	f.sched = New(store, Config{
		Rate:      rate,
		Interval:  time.Second,
		NewTicker: f.clock.NewTicker,
		Notifier:  NotifierFunc(func(u domain.User) { f.updates <- u }),
	})
	t.Cleanup(f.sched.Stop)
	return f
}

// advance fires every live ticker once and waits for each resulting write.
func (f *fixture) advance(t *testing.T) {
	t.Helper()
	n := f.clock.fire()
	for i := 0; i < n; i++ {
		select {
		case <-f.updates:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for tick %d of %d", i+1, n)
		}
	}
}

func (f *fixture) user(t *testing.T) domain.User {
	t.Helper()
	u, err := f.store.ReadUser(context.Background(), f.sess.UserID())
	require.NoError(t, err)
	return u
}

func TestAccrualCreditsRatePerTick(t *testing.T) {
	f := newFixture(t, walletA)
	require.NoError(t, f.sched.Start(context.Background(), f.sess))

	for i := 0; i < 3; i++ {
		f.advance(t)
	}

	u := f.user(t)
	assert.Equal(t, "0.00000003", u.Wallets[0].Balance.StringFixed(8))
	require.Len(t, u.EarningsHistory, 3)
	for _, e := range u.EarningsHistory {
		assert.True(t, e.Amount.Equal(rate))
		assert.Equal(t, walletA, e.WalletAddress)
	}
	assert.True(t, f.sess.User().Wallets[0].Balance.Equal(u.Wallets[0].Balance), "session tracks the written record")
}

func TestAccrualMultipleWalletsKeepsEveryUpdate(t *testing.T) {
	f := newFixture(t, walletA, walletB)
	require.NoError(t, f.sched.Start(context.Background(), f.sess))

	for i := 0; i < 5; i++ {
		f.advance(t)
	}

	u := f.user(t)
	assert.Equal(t, "0.00000005", u.Wallets[0].Balance.StringFixed(8))
	assert.Equal(t, "0.00000005", u.Wallets[1].Balance.StringFixed(8))
	assert.Len(t, u.EarningsHistory, 10)
}

func TestStartIsIdempotent(t *testing.T) {
	f := newFixture(t, walletA, walletB)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		f.sched.Stop()
		require.NoError(t, f.sched.Start(ctx, f.sess))
		require.NoError(t, f.sched.Start(ctx, f.sess))
	}

	assert.Equal(t, []string{walletA, walletB}, f.sched.Active())
	assert.Equal(t, 2, f.clock.live())

	f.advance(t)
	u := f.user(t)
	assert.Len(t, u.EarningsHistory, 2, "one credit per wallet per firing")
}

func TestStopCancelsEverything(t *testing.T) {
	f := newFixture(t, walletA)
	f.sched.Stop() // nothing running yet

	require.NoError(t, f.sched.Start(context.Background(), f.sess))
	f.advance(t)
	f.sched.Stop()
	f.sched.Stop()

	assert.Empty(t, f.sched.Active())
	assert.Equal(t, 0, f.clock.fire())
	assert.Len(t, f.user(t).EarningsHistory, 1)
}

func TestDeletedWalletTaskCancelsItself(t *testing.T) {
	f := newFixture(t, walletA, walletB)
	ctx := context.Background()
	require.NoError(t, f.sched.Start(ctx, f.sess))

	_, err := f.store.UpdateUser(ctx, f.sess.UserID(), func(u *domain.User) error {
		u.Wallets = u.Wallets[1:]
		return nil
	})
	require.NoError(t, err)

	n := f.clock.fire()
	assert.Equal(t, 2, n)
	select {
	case <-f.updates:
	case <-time.After(2 * time.Second):
		t.Fatal("surviving wallet did not tick")
	}

	assert.Eventually(t, func() bool {
		return len(f.sched.Active()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{walletB}, f.sched.Active())

	u := f.user(t)
	require.Len(t, u.Wallets, 1)
	assert.Nil(t, u.FindWallet(walletA), "tick did not recreate the wallet")
	require.Len(t, u.EarningsHistory, 1)
	assert.Equal(t, walletB, u.EarningsHistory[0].WalletAddress)
}

func TestDeletedUserTaskCancelsItself(t *testing.T) {
	f := newFixture(t, walletA)
	ctx := context.Background()
	require.NoError(t, f.sched.Start(ctx, f.sess))

	_, err := f.store.UpdateAll(ctx, func(c *domain.Collection) error {
		c.Users = nil
		return nil
	})
	require.NoError(t, err)

	f.clock.fire()
	assert.Eventually(t, func() bool {
		return len(f.sched.Active()) == 0
	}, 2*time.Second, 5*time.Millisecond)

	c, err := f.store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, c.Users)
}

func TestForceSetThenAccrue(t *testing.T) {
	f := newFixture(t, walletA)
	ctx := context.Background()
	root := domain.User{Email: "root@example.com", Username: "root", Role: domain.RoleAdmin}
	require.NoError(t, f.store.WriteUser(ctx, &root))
	mutator := admin.NewMutator(f.store, func() int64 { return time.Now().UnixMilli() })
	require.NoError(t, f.sched.Start(ctx, f.sess))

	for i := 0; i < 3; i++ {
		f.advance(t)
	}
	assert.Equal(t, "0.00000003", f.user(t).Wallets[0].Balance.StringFixed(8))

	_, err := mutator.SetBalance(ctx, root.ID, f.sess.UserID(), "0.5")
	require.NoError(t, err)
	assert.Equal(t, "0.50000000", f.user(t).Wallets[0].Balance.StringFixed(8))
	assert.Len(t, f.user(t).EarningsHistory, 3)

	f.advance(t)
	u := f.user(t)
	assert.Equal(t, "0.50000001", u.Wallets[0].Balance.StringFixed(8))
	assert.Len(t, u.EarningsHistory, 4)
}

func TestForceSetConcurrentWithTick(t *testing.T) {
	f := newFixture(t, walletA)
	ctx := context.Background()
	root := domain.User{Email: "root@example.com", Username: "root", Role: domain.RoleAdmin}
	require.NoError(t, f.store.WriteUser(ctx, &root))
	mutator := admin.NewMutator(f.store, func() int64 { return time.Now().UnixMilli() })
	require.NoError(t, f.sched.Start(ctx, f.sess))

	done := make(chan error, 1)
	go func() {
		_, err := mutator.SetBalance(ctx, root.ID, f.sess.UserID(), "0.5")
		done <- err
	}()
	f.advance(t)
	require.NoError(t, <-done)

	// either order is fine, but neither write may be lost
	u := f.user(t)
	assert.Contains(t, []string{"0.50000000", "0.50000001"}, u.Wallets[0].Balance.StringFixed(8))
	assert.Len(t, u.EarningsHistory, 1)

	before := u.Wallets[0].Balance
	f.advance(t)
	u = f.user(t)
	assert.Equal(t, before.Add(rate).StringFixed(8), u.Wallets[0].Balance.StringFixed(8))
	assert.Len(t, u.EarningsHistory, 2)
}

// contendedBlob bumps every stored version on each read while armed, as if
// another writer landed between every read and write.
type contendedBlob struct {
	*storage.MemoryBlob
	mu    sync.Mutex
	armed bool
	gets  int
}

func (b *contendedBlob) Get(ctx context.Context) ([]byte, error) {
	raw, err := b.MemoryBlob.Get(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil || !b.armed {
		return raw, err
	}
	b.gets++
	var c domain.Collection
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	for i := range c.Users {
		c.Users[i].Version++
	}
	if raw, err = json.Marshal(c); err != nil {
		return nil, err
	}
	return raw, b.MemoryBlob.Set(ctx, raw)
}

func (b *contendedBlob) arm(on bool) {
	b.mu.Lock()
	b.armed = on
	b.mu.Unlock()
}

func (b *contendedBlob) reads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gets
}

func TestConflictedTickCreditedOnNextFiring(t *testing.T) {
	blob := &contendedBlob{MemoryBlob: storage.NewMemoryBlob()}
	f := newFixtureOn(t, blob, 2, walletA)
	ctx := context.Background()
	require.NoError(t, f.sched.Start(ctx, f.sess))

	// two attempts, each one read and one write-side load
	blob.arm(true)
	require.Equal(t, 1, f.clock.fire())
	assert.Eventually(t, func() bool { return blob.reads() >= 4 }, 2*time.Second, 5*time.Millisecond)
	blob.arm(false)
	assert.Empty(t, f.updates)

	f.advance(t)
	u := f.user(t)
	assert.Equal(t, "0.00000002", u.Wallets[0].Balance.StringFixed(8))
	assert.Len(t, u.EarningsHistory, 2)

	f.advance(t)
	u = f.user(t)
	assert.Equal(t, "0.00000003", u.Wallets[0].Balance.StringFixed(8))
	assert.Len(t, u.EarningsHistory, 3)
}
