// Package pagination implements cursor pagination that survives writes
// between page requests. The cursor is an opaque signed token; when the
// underlying listing shifts under a held token the paginator restarts
// from the first page instead of serving duplicates or gaps.
package pagination

import (
	"context"
	"fmt"

	"service-dispatch-go/internal/pagetoken"
)

// Page is one window of a listing as returned by storage. FormerLastID is
// the id of the row immediately before the window, empty on the first
// page; it anchors the staleness check.
type Page[T any] struct {
	Values       []T
	LastID       string
	FormerLastID string
}

// FetchPage loads one window of at most limit values starting at offset.
type FetchPage[T any] func(ctx context.Context, offset, limit int) (Page[T], error)

// Result is a page ready to hand to the client. NextPageToken is empty on
// the last page. Refreshed signals the held cursor went stale and the
// listing restarted from the top.
type Result[T any] struct {
	Results       []T
	NextPageToken string
	Refreshed     bool
}

// Paginator pages through a listing with signed continuation tokens.
type Paginator[T any] struct {
	tokens   *pagetoken.Manager
	pageSize int
}

// New returns a Paginator producing pages of pageSize values.
func New[T any](tokens *pagetoken.Manager, pageSize int) *Paginator[T] {
	return &Paginator[T]{tokens: tokens, pageSize: pageSize}
}

// Paginate resolves the cursor and fetches the next window.
//
// skip > 0 bypasses the token entirely and reads at that raw offset.
// Otherwise the token, when it verifies, positions the read; a missing or
// invalid token reads the first page. A verified token whose remembered
// last id no longer matches the row before the window means the listing
// shifted, so the read restarts cold with Refreshed set.
func (p *Paginator[T]) Paginate(ctx context.Context, token string, skip int, fetch FetchPage[T]) (Result[T], error) {
	if skip > 0 {
		page, err := fetch(ctx, skip, p.pageSize)
		if err != nil {
			return Result[T]{}, fmt.Errorf("fetch page: %w", err)
		}
		return p.finish(page, skip, false)
	}

	offset := 0
	lastID := ""
	if token != "" {
		if id, off, ok := p.tokens.Verify(token); ok {
			lastID, offset = id, off
		}
	}

	page, err := fetch(ctx, offset, p.pageSize)
	if err != nil {
		return Result[T]{}, fmt.Errorf("fetch page: %w", err)
	}

	if lastID != "" && page.FormerLastID != lastID {
		page, err = fetch(ctx, 0, p.pageSize)
		if err != nil {
			return Result[T]{}, fmt.Errorf("refetch first page: %w", err)
		}
		return p.finish(page, 0, true)
	}

	return p.finish(page, offset, false)
}

func (p *Paginator[T]) finish(page Page[T], offset int, refreshed bool) (Result[T], error) {
	res := Result[T]{Results: page.Values, Refreshed: refreshed}
	if len(page.Values) < p.pageSize {
		return res, nil
	}

	next, err := p.tokens.Sign(page.LastID, offset+len(page.Values))
	if err != nil {
		return Result[T]{}, fmt.Errorf("sign page token: %w", err)
	}
	res.NextPageToken = next
	return res, nil
}
