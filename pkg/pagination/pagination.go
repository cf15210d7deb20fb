package pagination

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 50
	// MaxLimit caps how many records any page can request.
	MaxLimit = 500
)

// Params holds cursor pagination inputs from controllers or services.
type Params struct {
	Limit  int
	Cursor string
}

// Page is one slice of a key-ordered listing. NextCursor is empty on the last page.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// EncodeCursor wraps the sort key of the last returned record.
func EncodeCursor(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// ParseCursor decodes the cursor string back into a sort key.
func ParseCursor(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("decode cursor: %w", err)
	}
	if len(decoded) == 0 {
		return "", fmt.Errorf("invalid cursor format")
	}
	return string(decoded), nil
}

// Apply pages through items, which must already be sorted ascending by keyOf.
// Records up to and including the cursor key are skipped.
func Apply[T any](items []T, keyOf func(T) string, params Params) (Page[T], error) {
	after, err := ParseCursor(params.Cursor)
	if err != nil {
		return Page[T]{}, err
	}
	start := 0
	if after != "" {
		start = sort.Search(len(items), func(i int) bool {
			return keyOf(items[i]) > after
		})
	}

	limit := NormalizeLimit(params.Limit)
	end := start + limit
	if end > len(items) {
		end = len(items)
	}

	page := Page[T]{Items: items[start:end]}
	if page.Items == nil {
		page.Items = []T{}
	}
	if end < len(items) && end > start {
		page.NextCursor = EncodeCursor(keyOf(items[end-1]))
	}
	return page, nil
}
