// Package pagination provides keyset pagination over lists ordered by a
// unique string key, such as tenants ordered by subdomain.
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

var ErrInvalidCursor = errors.New("invalid cursor")

const cursorPrefix = "k:"

// Encode returns an opaque cursor positioned after key.
func Encode(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + key))
}

// Decode returns the key a cursor is positioned after, or "" for an empty
// cursor.
func Decode(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(raw) <= len(cursorPrefix) || string(raw[:len(cursorPrefix)]) != cursorPrefix {
		return "", ErrInvalidCursor
	}
	return string(raw[len(cursorPrefix):]), nil
}

// ParseLimit reads a limit query value, applying the default and cap.
func ParseLimit(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return DefaultLimit
	}
	return min(n, MaxLimit)
}

// Window returns the items after cursor, up to limit, and the cursor of the
// next page ("" when there is none). items must be sorted ascending by key.
func Window[T any](items []T, cursor string, limit int, key func(T) string) ([]T, string, error) {
	after, err := Decode(cursor)
	if err != nil {
		return nil, "", err
	}
	start := 0
	if after != "" {
		for start < len(items) && key(items[start]) <= after {
			start++
		}
	}
	items = items[start:]
	if len(items) <= limit {
		return items, "", nil
	}
	items = items[:limit]
	return items, Encode(key(items[len(items)-1])), nil
}
