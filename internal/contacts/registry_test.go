package contacts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/rentalcrm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/angelmondragon/rentalcrm-backend/pkg/kv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestRegistry(t *testing.T, store kv.Store, opts ...Option) *Registry {
	t.Helper()
	clock := &stepClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	reg, err := NewRegistry(store, append([]Option{WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	return reg
}

func TestResolveOrCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t, kv.NewMemoryStore())

	first, created, err := reg.ResolveOrCreate(ctx, "a@x.com", Hint{Name: "Ada Byron King", Phone: "555"})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := reg.ResolveOrCreate(ctx, "a@x.com", Hint{Name: "Someone Else"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ada", second.FirstName, "resolution must not apply the hint to an existing contact")
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
}

func TestResolveOrCreateDefaults(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t, kv.NewMemoryStore())

	c, _, err := reg.ResolveOrCreate(ctx, "  a@x.com ", Hint{Name: "Ada Byron King", Phone: " 555 "})
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", c.Email)
	assert.Equal(t, "Ada", c.FirstName)
	assert.Equal(t, "Byron King", c.LastName)
	assert.Equal(t, "555", c.Phone)
	assert.Equal(t, DefaultLeadSource, c.LeadSource)
	assert.Equal(t, enums.LeadStatusNewLead, c.LeadStatus)
	assert.Equal(t, 1, c.WebsiteVisits)
	assert.Zero(t, c.TotalBookings)
	assert.True(t, c.TotalRevenue.IsZero())
	assert.Nil(t, c.EstimatedDealValue)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)
	assert.Contains(t, c.ID, "contact_")
}

func TestResolveOrCreateRejectsEmptyEmail(t *testing.T) {
	store := kv.NewMemoryStore()
	reg := newTestRegistry(t, store)

	_, _, err := reg.ResolveOrCreate(context.Background(), "   ", Hint{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.Zero(t, store.Len())
}

func TestUpdateMergesAndKeepsBothCopiesInSync(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	reg := newTestRegistry(t, store)

	c, _, err := reg.ResolveOrCreate(ctx, "a@x.com", Hint{Name: "Ada Lovelace", Phone: "555"})
	require.NoError(t, err)

	action := "Viewed Vehicle"
	vehicle := "Toyota Corolla"
	updated, err := reg.Update(ctx, c.ID, Patch{LastAction: &action, LastVehicleViewed: &vehicle})
	require.NoError(t, err)

	assert.Equal(t, "Viewed Vehicle", updated.LastAction)
	assert.Equal(t, "Toyota Corolla", updated.LastVehicleViewed)
	assert.Equal(t, "555", updated.Phone, "omitted fields are preserved")
	assert.True(t, updated.UpdatedAt.After(c.UpdatedAt))
	assert.Equal(t, c.CreatedAt, updated.CreatedAt)

	byID, err := reg.Get(ctx, c.ID)
	require.NoError(t, err)
	byEmail, err := reg.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, byID, byEmail)
}

func TestUpdateUnknownContactIsNotFound(t *testing.T) {
	store := kv.NewMemoryStore()
	reg := newTestRegistry(t, store)

	action := "x"
	_, err := reg.Update(context.Background(), "contact_missing", Patch{LastAction: &action})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	assert.Zero(t, store.Len())
}

func TestUpdateCountersOnlyGrow(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t, kv.NewMemoryStore())
	c, _, err := reg.ResolveOrCreate(ctx, "a@x.com", Hint{})
	require.NoError(t, err)

	_, err = reg.Update(ctx, c.ID, Patch{TotalBookingsDelta: -1})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	_, err = reg.Update(ctx, c.ID, Patch{TotalRevenueDelta: decimal.NewFromInt(-5)})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	amounts := []decimal.Decimal{decimal.RequireFromString("250"), decimal.RequireFromString("99.95")}
	for _, amount := range amounts {
		_, err = reg.Update(ctx, c.ID, Patch{TotalBookingsDelta: 1, TotalRevenueDelta: amount, WebsiteVisitsDelta: 1})
		require.NoError(t, err)
	}

	got, err := reg.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalBookings)
	assert.True(t, got.TotalRevenue.Equal(decimal.RequireFromString("349.95")), got.TotalRevenue.String())
	assert.Equal(t, 3, got.WebsiteVisits)
}

func TestListReturnsOneEntryPerEmail(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t, kv.NewMemoryStore())

	for _, email := range []string{"b@x.com", "a@x.com"} {
		_, _, err := reg.ResolveOrCreate(ctx, email, Hint{})
		require.NoError(t, err)
	}
	items, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a@x.com", items[0].Email)
}

func TestConcurrentFirstResolveMayDuplicate(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t, kv.NewMemoryStore())

	ids := resolveConcurrently(t, reg, "race@x.com", 8)

	found, err := reg.FindByEmail(ctx, "race@x.com")
	require.NoError(t, err)
	assert.Contains(t, ids, found.ID, "the email key points at one of the created contacts")
	assert.GreaterOrEqual(t, len(uniq(ids)), 1)
}

func TestConcurrentFirstResolveWithLockCreatesOne(t *testing.T) {
	lock, err := NewRedisEmailLock(newMemoryLockStore(), time.Second, 2*time.Second)
	require.NoError(t, err)
	lock.poll = time.Millisecond
	reg := newTestRegistry(t, kv.NewMemoryStore(), WithLocker(lock))

	ids := resolveConcurrently(t, reg, "race@x.com", 8)
	assert.Len(t, uniq(ids), 1)
}

func TestResolveContinuesWhenLockFails(t *testing.T) {
	reg := newTestRegistry(t, kv.NewMemoryStore(), WithLocker(failingLocker{}))

	c, created, err := reg.ResolveOrCreate(context.Background(), "a@x.com", Hint{})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, c.ID)
}

func TestStoreFailuresSurfaceAsDependencyErrors(t *testing.T) {
	reg := newTestRegistry(t, brokenStore{})

	_, _, err := reg.ResolveOrCreate(context.Background(), "a@x.com", Hint{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
}

func resolveConcurrently(t *testing.T, reg *Registry, email string, n int) []string {
	t.Helper()
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		out []string
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			c, _, err := reg.ResolveOrCreate(context.Background(), email, Hint{})
			if err != nil {
				t.Errorf("resolve: %v", err)
				return
			}
			mu.Lock()
			out = append(out, c.ID)
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()
	return out
}

func uniq(values []string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, string) (func(context.Context), error) {
	return nil, errors.New("redis down")
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string, any) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp"), "redis get failed")
}

func (brokenStore) Set(context.Context, string, any) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp"), "redis set failed")
}

func (brokenStore) Delete(context.Context, ...string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp"), "redis del failed")
}

func (brokenStore) ScanPrefix(context.Context, string) ([]kv.Entry, error) {
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp"), "redis scan failed")
}

type memoryLockStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{data: map[string]string{}}
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryLockStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", errors.New("redis: nil")
	}
	return v, nil
}

func (m *memoryLockStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryLockStore) LockKey(scope, id string) string {
	return "rentalcrm:lock:" + scope + ":" + id
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		full, first, last string
	}{
		{"Ada Lovelace", "Ada", "Lovelace"},
		{"  Mary  Ann   Evans ", "Mary", "Ann Evans"},
		{"Cher", "Cher", ""},
		{"   ", "", ""},
	}
	for _, tt := range tests {
		first, last := SplitName(tt.full)
		assert.Equal(t, tt.first, first, tt.full)
		assert.Equal(t, tt.last, last, tt.full)
	}
}
