// Package pagination implements forward cursor pagination over creation time.
//
// Cursors are reversible text, not secrets: anyone can decode them.
package pagination

import (
	"encoding/base64"
	"time"

	"workorder-tracker/internal/domain"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// EncodeCursor renders t as an opaque cursor string.
func EncodeCursor(t time.Time) string {
	return base64.RawURLEncoding.EncodeToString([]byte(t.UTC().Format(time.RFC3339Nano)))
}

// DecodeCursor reverses EncodeCursor.
func DecodeCursor(cursor string) (time.Time, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, domain.E(domain.KindInvalidInput, "invalid cursor", err)
	}
	t, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}, domain.E(domain.KindInvalidInput, "invalid cursor", err)
	}
	return t.UTC(), nil
}

// Query is the decoded form of a page request.
type Query struct {
	Before *time.Time
	Limit  int
}

// Fetch is the number of rows to ask the store for: one extra to detect a next page.
func (q Query) Fetch() int {
	return q.Limit + 1
}

// ParseQuery decodes an optional cursor and normalizes limit.
func ParseQuery(cursor string, limit int) (Query, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	q := Query{Limit: limit}
	if cursor != "" {
		before, err := DecodeCursor(cursor)
		if err != nil {
			return Query{}, err
		}
		q.Before = &before
	}
	return q, nil
}

// Page is one window of a newest-first result set.
type Page[T any] struct {
	Items       []T
	HasNextPage bool
	EndCursor   *string
}

// Paginate trims a result fetched with Query.Fetch down to limit items and
// derives the page info from the last remaining item.
func Paginate[T any](items []T, limit int, createdAt func(T) time.Time) Page[T] {
	page := Page[T]{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.HasNextPage = true
	}
	if len(page.Items) == 0 {
		page.Items = []T{}
		page.HasNextPage = false
		return page
	}
	cursor := EncodeCursor(createdAt(page.Items[len(page.Items)-1]))
	page.EndCursor = &cursor
	return page
}
