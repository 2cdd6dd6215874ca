package gocardless

import (
	"context"
	"net/url"
)

// Paginator walks a cursor-paged list endpoint one page at a time. It is
// forward-only; start a new one to iterate again.
type Paginator[T any] struct {
	svc     *Service[T]
	query   url.Values
	items   []*T
	index   int
	after   string
	started bool
	current *T
	err     error
}

func NewPaginator[T any](svc *Service[T], query url.Values) *Paginator[T] {
	return &Paginator[T]{svc: svc, query: cloneValues(query)}
}

func (p *Paginator[T]) Next(ctx context.Context) bool {
	for {
		if p.err != nil {
			return false
		}
		if p.index < len(p.items) {
			p.current = p.items[p.index]
			p.index++
			return true
		}
		if p.started && p.after == "" {
			p.current = nil
			return false
		}

		query := cloneValues(p.query)
		if p.after != "" {
			query.Set("after", p.after)
		}

		page, err := p.svc.List(ctx, query)
		if err != nil {
			p.err = err
			p.current = nil
			return false
		}
		p.started = true
		p.items = page.Items
		p.index = 0
		p.after = page.After
	}
}

func (p *Paginator[T]) Value() *T {
	return p.current
}

func (p *Paginator[T]) Err() error {
	return p.err
}

func cloneValues(src url.Values) url.Values {
	dst := url.Values{}
	for k, v := range src {
		dst[k] = append([]string(nil), v...)
	}
	return dst
}
