// Package pagination implements opaque keyset cursors over (created_at, id).
//
// Cursors travel in query strings (`?cursor=`) and CLI flags, so they use
// unpadded URL-safe base64.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	sep = "|"
)

var ErrInvalidCursor = errors.New("invalid cursor format")

var encoding = base64.RawURLEncoding

// Cursor is the position of the last item a caller has seen
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// PageResult is one page of a listing. Cursor is empty on the last page.
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

// NormalizeLimit maps non-positive sizes to DefaultLimit and caps at MaxLimit.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// EncodeCursor returns "" for an empty id so callers can pass a zero item.
func EncodeCursor(lastID string, timestamp time.Time) string {
	if lastID == "" {
		return ""
	}
	return encoding.EncodeToString([]byte(timestamp.UTC().Format(time.RFC3339Nano) + sep + lastID))
}

// DecodeCursor returns a nil cursor, meaning "first page", for "".
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}

	raw, err := encoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	ts, id, ok := strings.Cut(string(raw), sep)
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}

	timestamp, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{LastID: id, Timestamp: timestamp}, nil
}

// After reports whether (id, timestamp) sorts after c in ascending
// (timestamp, id) order. A nil cursor precedes everything.
func (c *Cursor) After(id string, timestamp time.Time) bool {
	if c == nil {
		return true
	}
	if !timestamp.Equal(c.Timestamp) {
		return timestamp.After(c.Timestamp)
	}
	return id > c.LastID
}

// PageSlice pages items already sorted by ascending (timestamp, id). It is
// the in-memory counterpart of the keyset query in the tenant repository.
func PageSlice[T any](items []T, cursor *Cursor, limit int, getID func(T) string, getTimestamp func(T) time.Time) PageResult[T] {
	limit = NormalizeLimit(limit)

	result := PageResult[T]{Items: make([]T, 0, limit)}
	for _, item := range items {
		if !cursor.After(getID(item), getTimestamp(item)) {
			continue
		}
		if len(result.Items) == limit {
			result.HasMore = true
			break
		}
		result.Items = append(result.Items, item)
	}

	if result.HasMore {
		last := result.Items[len(result.Items)-1]
		result.Cursor = EncodeCursor(getID(last), getTimestamp(last))
	}
	return result
}
