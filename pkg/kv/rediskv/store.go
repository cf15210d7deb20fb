// Package rediskv implements kv.Store on top of Redis string keys.
package rediskv

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/angelmondragon/rentalcrm-backend/pkg/kv"
	"github.com/angelmondragon/rentalcrm-backend/pkg/redis"
)

const mgetBatch = 500

type backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	MGet(ctx context.Context, keys ...string) ([]any, error)
	Del(ctx context.Context, keys ...string) error
	ScanKeys(ctx context.Context, match string) ([]string, error)
	Ping(ctx context.Context) error
}

type Store struct {
	client backend
}

var _ kv.Store = (*Store)(nil)

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, key string, dest any) error {
	raw, err := s.client.Get(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			return kv.ErrNotFound
		}
		return unavailable(err, "redis get")
	}
	return kv.Decode(key, []byte(raw), dest)
}

func (s *Store) Set(ctx context.Context, key string, value any) error {
	data, err := kv.Encode(value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, string(data), 0); err != nil {
		return unavailable(err, "redis set")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...); err != nil {
		return unavailable(err, "redis del")
	}
	return nil
}

// ScanPrefix walks SCAN MATCH <prefix>*, then loads values with MGET.
// Keys deleted between the two steps are skipped.
func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([]kv.Entry, error) {
	found, err := s.client.ScanKeys(ctx, escapeGlob(prefix)+"*")
	if err != nil {
		return nil, unavailable(err, "redis scan")
	}

	// SCAN may return a key more than once.
	seen := make(map[string]struct{}, len(found))
	keys := make([]string, 0, len(found))
	for _, key := range found {
		if _, dup := seen[key]; dup || !strings.HasPrefix(key, prefix) {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]kv.Entry, 0, len(keys))
	for start := 0; start < len(keys); start += mgetBatch {
		end := min(start+mgetBatch, len(keys))
		batch := keys[start:end]
		values, err := s.client.MGet(ctx, batch...)
		if err != nil {
			return nil, unavailable(err, "redis mget")
		}
		for i, value := range values {
			str, ok := value.(string)
			if !ok {
				continue
			}
			entries = append(entries, kv.Entry{Key: batch[i], Value: []byte(str)})
		}
	}
	return entries, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx); err != nil {
		return unavailable(err, "redis ping")
	}
	return nil
}

func unavailable(err error, op string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s failed", op))
}

// escapeGlob quotes the SCAN MATCH metacharacters so emails containing them
// are matched literally.
func escapeGlob(prefix string) string {
	var b strings.Builder
	b.Grow(len(prefix))
	for _, r := range prefix {
		switch r {
		case '*', '?', '[', ']', '\\', '^', '-':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
