package query

import (
	"context"

	"snapgram/internal/models"
)

// PageFunc loads the page after cursor; cursor is "" for the first page.
type PageFunc[T models.Document] func(ctx context.Context, cursor string) (*models.DocumentList[T], error)

// InfiniteData is the page sequence of an infinite query.
type InfiniteData[T models.Document] struct {
	Pages []models.DocumentList[T]
}

// Infinite is a cursor-paginated query whose pages live in a Client under
// its key, so invalidating the entity resets it to page one.
type Infinite[T models.Document] struct {
	c        *Client
	key      Key
	pageSize int
	fetch    PageFunc[T]
}

// NewInfinite binds a page loader to key.
func NewInfinite[T models.Document](c *Client, key Key, pageSize int, fetch PageFunc[T]) *Infinite[T] {
	return &Infinite[T]{c: c, key: key, pageSize: pageSize, fetch: fetch}
}

// Key returns the query key.
func (q *Infinite[T]) Key() Key { return q.key }

func (q *Infinite[T]) data() (*InfiniteData[T], bool) {
	return Peek[*InfiniteData[T]](q.c, q.key)
}

// Loaded reports whether the first page is cached.
func (q *Infinite[T]) Loaded() bool {
	_, ok := q.data()
	return ok
}

// IsFetching reports whether any page of this query is loading.
func (q *Infinite[T]) IsFetching() bool {
	return q.c.IsFetching(q.key)
}

// Load fetches the first page unless pages are already cached.
func (q *Infinite[T]) Load(ctx context.Context) error {
	if q.Loaded() {
		return nil
	}
	_, err := run(ctx, q.c, q.key, "first", func(ctx context.Context, gen uint64) (any, error) {
		page, err := q.fetch(ctx, "")
		if err != nil {
			return nil, err
		}
		q.c.store(q.key, gen, &InfiniteData[T]{Pages: []models.DocumentList[T]{*page}})
		return nil, nil
	})
	return err
}

// Pages returns a copy of the loaded pages in fetch order.
func (q *Infinite[T]) Pages() []models.DocumentList[T] {
	q.c.mu.Lock()
	defer q.c.mu.Unlock()
	e, ok := q.c.entries[q.key.String()]
	if !ok {
		return nil
	}
	d, ok := e.value.(*InfiniteData[T])
	if !ok {
		return nil
	}
	return append([]models.DocumentList[T](nil), d.Pages...)
}

// Items returns every loaded document in page order.
func (q *Infinite[T]) Items() []T {
	var out []T
	for _, p := range q.Pages() {
		out = append(out, p.Documents...)
	}
	return out
}

// HasNextPage is false before the first page loads, once a page came back
// short, and once the loaded count reaches the reported total.
func (q *Infinite[T]) HasNextPage() bool {
	pages := q.Pages()
	if len(pages) == 0 {
		return false
	}
	return hasMore(pages, q.pageSize)
}

func hasMore[T any](pages []models.DocumentList[T], pageSize int) bool {
	last := pages[len(pages)-1]
	if len(last.Documents) == 0 || len(last.Documents) < pageSize {
		return false
	}
	if last.Total > 0 {
		var loaded int64
		for _, p := range pages {
			loaded += int64(len(p.Documents))
		}
		if loaded >= last.Total {
			return false
		}
	}
	return true
}

// FetchNextPage loads the page after the last loaded document and appends
// it. It does nothing when HasNextPage is false. Concurrent calls share one
// request. A page that arrives after the query was invalidated, or after
// another caller already appended past the same cursor, is dropped.
func (q *Infinite[T]) FetchNextPage(ctx context.Context) error {
	pages := q.Pages()
	if len(pages) == 0 || !hasMore(pages, q.pageSize) {
		return nil
	}
	last := pages[len(pages)-1].Documents
	cursor := last[len(last)-1].DocumentID()

	_, err := run(ctx, q.c, q.key, "next:"+cursor, func(ctx context.Context, gen uint64) (any, error) {
		if q.tailCursor() != cursor {
			return nil, nil
		}
		page, err := q.fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		q.appendPage(gen, cursor, *page)
		return nil, nil
	})
	return err
}

func (q *Infinite[T]) tailCursor() string {
	pages := q.Pages()
	if len(pages) == 0 {
		return ""
	}
	tail := pages[len(pages)-1].Documents
	if len(tail) == 0 {
		return ""
	}
	return tail[len(tail)-1].DocumentID()
}

func (q *Infinite[T]) appendPage(gen uint64, cursor string, page models.DocumentList[T]) {
	q.c.mu.Lock()
	defer q.c.mu.Unlock()
	if q.c.gens[q.key.Entity()] != gen {
		return
	}
	e, ok := q.c.entries[q.key.String()]
	if !ok {
		return
	}
	d, ok := e.value.(*InfiniteData[T])
	if !ok || len(d.Pages) == 0 {
		return
	}
	tail := d.Pages[len(d.Pages)-1].Documents
	if len(tail) == 0 || tail[len(tail)-1].DocumentID() != cursor {
		return
	}
	next := &InfiniteData[T]{Pages: append(append([]models.DocumentList[T](nil), d.Pages...), page)}
	q.c.entries[q.key.String()] = &entry{value: next, fetchedAt: q.c.now()}
}
