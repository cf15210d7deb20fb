// Package kv defines the key-value collaborator the CRM persists through.
//
// Values are JSON documents. Backends guarantee single-key atomicity only;
// there are no multi-key transactions and no compare-and-swap.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("kv: key not found")

// Entry is one key with its raw JSON value, as returned by ScanPrefix.
type Entry struct {
	Key   string
	Value json.RawMessage
}

// Store is the point get/set/delete plus prefix-scan surface.
type Store interface {
	// Get decodes the value stored at key into dest, or returns ErrNotFound.
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	// Delete removes every key given; absent keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// ScanPrefix returns every entry whose key starts with prefix, sorted by key.
	ScanPrefix(ctx context.Context, prefix string) ([]Entry, error)
}

// Pinger is implemented by backends with a reachable remote dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ScanPrefixInto decodes every entry under prefix into T, preserving key order.
func ScanPrefixInto[T any](ctx context.Context, store Store, prefix string) ([]T, error) {
	entries, err := store.ScanPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(entries))
	for _, entry := range entries {
		var item T
		if err := json.Unmarshal(entry.Value, &item); err != nil {
			return nil, fmt.Errorf("decode %s: %w", entry.Key, err)
		}
		out = append(out, item)
	}
	return out, nil
}

// Keys returns the keys of entries in order.
func Keys(entries []Entry) []string {
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		keys = append(keys, entry.Key)
	}
	return keys
}

// Encode is the JSON encoding every backend persists.
func Encode(value any) ([]byte, error) {
	if raw, ok := value.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, errors.New("encode value: invalid raw json")
		}
		return raw, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return data, nil
}

// Decode unmarshals a stored value into dest.
func Decode(key string, data []byte, dest any) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
