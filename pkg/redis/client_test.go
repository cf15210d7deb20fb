package redis

import (
	"context"
	"fmt"
	"path"
	"sort"
	"testing"
	"time"

	"github.com/angelmondragon/rentalcrm-backend/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	allowed, count, err := client.FixedWindowAllow(ctx, "track:10.0.0.1", 2, time.Second)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.EqualValues(t, 1, count)
	assert.Len(t, mock.expireCalls, 1)

	allowed, count, err = client.FixedWindowAllow(ctx, "track:10.0.0.1", 2, time.Second)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.EqualValues(t, 2, count)
	assert.Len(t, mock.expireCalls, 1, "expire should not be set again")

	allowed, _, err = client.FixedWindowAllow(ctx, "track:10.0.0.1", 2, time.Second)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestSetNXAndDel(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	ok, err := client.SetNX(ctx, "k", "owner-1", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, "k", "owner-2", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.Del(ctx, "k"))
	_, err = client.Get(ctx, "k")
	assert.True(t, IsNil(err))
}

func TestScanKeysFollowsCursor(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	for i := 0; i < 5; i++ {
		mock.data[fmt.Sprintf("crm_task_%d", i)] = "{}"
	}
	mock.data["crm_activity_1"] = "{}"
	client := &Client{store: mock, scanCount: 2}

	keys, err := client.ScanKeys(ctx, "crm_task_*")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"crm_task_0", "crm_task_1", "crm_task_2", "crm_task_3", "crm_task_4"}, keys)
	assert.Greater(t, mock.scanCalls, 1)
}

func TestMGetAlignsMissingKeys(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	mock.data["a"] = "1"
	client := &Client{store: mock}

	values, err := client.MGet(ctx, "a", "b")
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "1", values[0])
	assert.Nil(t, values[1])
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	assert.Error(t, client.Ping(context.Background()))
	_, err := client.Get(context.Background(), "k")
	assert.Error(t, err)
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "rentalcrm:idempotency:tracking:msg-1", client.IdempotencyKey("tracking", "msg-1"))
	assert.Equal(t, "rentalcrm:rate_limit:track", client.RateLimitKey("track"))
	assert.Equal(t, "rentalcrm:lock:contact_email:a@x.com", client.LockKey("contact_email", "a@x.com"))
	assert.Equal(t, "rentalcrm:lock:contact_email", client.LockKey("contact_email", " "))
}

func TestOptionsFromConfigRequiresEndpoint(t *testing.T) {
	_, err := optionsFromConfig(configWith("", ""))
	assert.Error(t, err)

	opts, err := optionsFromConfig(configWith("", "localhost:6379"))
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
}

func configWith(url, addr string) config.RedisConfig {
	return config.RedisConfig{URL: url, Address: addr, PoolSize: 4}
}

type mockCmdable struct {
	data        map[string]string
	incr        map[string]int64
	expireCalls []expireCall
	scanCalls   int
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		incr: make(map[string]int64),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) MGet(ctx context.Context, keys ...string) *redis.SliceCmd {
	out := make([]any, len(keys))
	for i, key := range keys {
		if v, ok := m.data[key]; ok {
			out[i] = v
		}
	}
	return redis.NewSliceResult(out, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

// Scan pages through sorted keys, using the cursor as an offset.
func (m *mockCmdable) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	m.scanCalls++
	all := make([]string, 0, len(m.data))
	for key := range m.data {
		if ok, _ := path.Match(match, key); ok {
			all = append(all, key)
		}
	}
	sort.Strings(all)
	start := int(cursor)
	end := start + int(count)
	if end >= len(all) {
		if start > len(all) {
			start = len(all)
		}
		return redis.NewScanCmdResult(all[start:], 0, nil)
	}
	return redis.NewScanCmdResult(all[start:end], uint64(end), nil)
}
