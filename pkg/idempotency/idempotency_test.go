package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	setNXResult bool
	setNXError  error
	lastKey     string
	lastTTL     time.Duration
	lastDeleted string
}

func (f *fakeStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	return f.setNXResult, f.setNXError
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "rentalcrm:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	if len(keys) > 0 {
		f.lastDeleted = keys[0]
	}
	return nil
}

func TestCheckAndMarkProcessed_FirstTime(t *testing.T) {
	store := &fakeStore{setNXResult: true}
	manager, err := NewManager(store, 72*time.Hour)
	require.NoError(t, err)

	already, err := manager.CheckAndMarkProcessed(context.Background(), "tracking", "msg-1")
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, "rentalcrm:idempotency:msg:processed:tracking:msg-1", store.lastKey)
	assert.Equal(t, 72*time.Hour, store.lastTTL)
}

func TestCheckAndMarkProcessed_AlreadyProcessed(t *testing.T) {
	manager, err := NewManager(&fakeStore{setNXResult: false}, time.Hour)
	require.NoError(t, err)

	already, err := manager.CheckAndMarkProcessed(context.Background(), "tracking", "msg-1")
	require.NoError(t, err)
	assert.True(t, already)
}

func TestCheckAndMarkProcessed_Error(t *testing.T) {
	manager, err := NewManager(&fakeStore{setNXError: errors.New("redis down")}, time.Hour)
	require.NoError(t, err)

	_, err = manager.CheckAndMarkProcessed(context.Background(), "tracking", "msg-1")
	assert.Error(t, err)
}

func TestDeleteAndValidation(t *testing.T) {
	store := &fakeStore{}
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	require.NoError(t, manager.Delete(context.Background(), "tracking", "msg-9"))
	assert.Equal(t, "rentalcrm:idempotency:msg:processed:tracking:msg-9", store.lastDeleted)

	_, err = manager.CheckAndMarkProcessed(context.Background(), "", "msg-1")
	assert.Error(t, err)
	_, err = manager.CheckAndMarkProcessed(context.Background(), "tracking", " ")
	assert.Error(t, err)

	_, err = NewManager(nil, time.Hour)
	assert.Error(t, err)
}
