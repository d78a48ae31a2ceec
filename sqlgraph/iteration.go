package sqlgraph

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/odit-bit/expertfinder/socialgraph"
)

// iterators read in keyset pages so no connection stays checked out while
// the caller works on the current item, the caller is free to write to the
// graph between two Next calls.
var iterationPageSize = 500

//==========

const usersIterationQuery = `
	SELECT id, network, external_id, handle, url, completed
	FROM users
	WHERE id > ? AND (? = '' OR network = ?) AND (? = FALSE OR completed = ?)
	ORDER BY id
	LIMIT ?
`

// Users implements socialgraph.Graph.
func (g *Graph) Users(ctx context.Context, filter socialgraph.UserFilter) (socialgraph.UserIterator, error) {
	query := g.db.Rebind(usersIterationQuery)
	fetch := func(after uuid.UUID) ([]socialgraph.User, error) {
		var page []socialgraph.User
		err := g.db.SelectContext(ctx, &page, query,
			after, filter.Network, filter.Network, filter.CompletedOnly, true, iterationPageSize)
		if err != nil {
			return nil, fmt.Errorf("user iterator: %w", err)
		}
		return page, nil
	}

	it := &userIterator{pager: pager[socialgraph.User]{
		fetch: fetch,
		key:   func(u *socialgraph.User) uuid.UUID { return u.ID },
	}}
	return it, nil
}

//==========

const resourcesIterationQuery = `
	SELECT ` + resourceColumns + `
	FROM resources
	WHERE id > ?
	ORDER BY id
	LIMIT ?
`

// Resources implements socialgraph.Graph.
func (g *Graph) Resources(ctx context.Context) (socialgraph.ResourceIterator, error) {
	query := g.db.Rebind(resourcesIterationQuery)
	fetch := func(after uuid.UUID) ([]resourceRow, error) {
		var page []resourceRow
		if err := g.db.SelectContext(ctx, &page, query, after, iterationPageSize); err != nil {
			return nil, fmt.Errorf("resource iterator: %w", err)
		}
		return page, nil
	}

	it := &resourceIterator{pager: pager[resourceRow]{
		fetch: fetch,
		key:   func(r *resourceRow) uuid.UUID { return r.ID },
	}}
	return it, nil
}

//==========

var _ socialgraph.UserIterator = (*userIterator)(nil)
var _ socialgraph.ResourceIterator = (*resourceIterator)(nil)

type userIterator struct {
	pager[socialgraph.User]
}

// User implements socialgraph.UserIterator.
func (it *userIterator) User() *socialgraph.User {
	u := *it.current()
	return &u
}

type resourceIterator struct {
	pager[resourceRow]
}

// Resource implements socialgraph.ResourceIterator.
func (it *resourceIterator) Resource() *socialgraph.Resource {
	return it.current().resource()
}

// pager walks a table ordered by id, one page at a time.
type pager[T any] struct {
	fetch func(after uuid.UUID) ([]T, error)
	key   func(*T) uuid.UUID

	page    []T
	idx     int
	after   uuid.UUID
	done    bool
	closed  bool
	lastErr error
}

func (p *pager[T]) current() *T {
	return &p.page[p.idx-1]
}

// Next implements socialgraph.Iterator.
func (p *pager[T]) Next() bool {
	if p.closed || p.lastErr != nil {
		return false
	}
	if p.idx < len(p.page) {
		p.idx++
		return true
	}
	if p.done {
		return false
	}

	page, err := p.fetch(p.after)
	if err != nil {
		p.lastErr = err
		return false
	}
	if len(page) < iterationPageSize {
		p.done = true
	}
	if len(page) == 0 {
		return false
	}

	p.page = page
	p.idx = 1
	p.after = p.key(&page[len(page)-1])
	return true
}

// Error implements socialgraph.Iterator.
func (p *pager[T]) Error() error {
	return p.lastErr
}

// Close implements socialgraph.Iterator.
func (p *pager[T]) Close() error {
	p.closed = true
	p.page = nil
	return nil
}
