package client

import (
	"context"

	"github.com/good-yellow-bee/toolme/internal/models"
)

// DefaultPageSize is the "load more" window.
const DefaultPageSize = 12

// ProjectLister is the listing operation the pager drives.
type ProjectLister interface {
	List(ctx context.Context, page Page) (*ProjectPage, error)
}

// Pager accumulates the public listing page by page.
//
// Paging is offset based: the next request asks for skip = number of rows
// received so far. This is only consistent when the backend orders the
// listing by a stable key (created_at, id). Rows that show up twice anyway
// are dropped and counted by Duplicates.
type Pager struct {
	lister   ProjectLister
	pageSize int

	items      []models.Project
	seen       map[string]struct{}
	offset     int
	total      int
	started    bool
	exhausted  bool
	duplicates int
}

// NewPager creates a pager. pageSize <= 0 selects DefaultPageSize.
func NewPager(lister ProjectLister, pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager{
		lister:   lister,
		pageSize: pageSize,
		seen:     make(map[string]struct{}),
	}
}

// HasMore reports whether another Next call can return rows.
func (p *Pager) HasMore() bool {
	if !p.started {
		return true
	}
	return !p.exhausted && p.offset < p.total
}

// Next fetches the following window, appends it and returns the rows that
// were new. The total is refreshed from every response.
func (p *Pager) Next(ctx context.Context) ([]models.Project, error) {
	if !p.HasMore() {
		return nil, nil
	}
	page, err := p.lister.List(ctx, Page{Skip: p.offset, Limit: p.pageSize})
	if err != nil {
		return nil, err
	}
	p.started = true
	p.total = page.Total
	p.offset += len(page.Items)
	if len(page.Items) == 0 {
		p.exhausted = true
	}

	added := make([]models.Project, 0, len(page.Items))
	for _, item := range page.Items {
		if _, dup := p.seen[item.ID]; dup {
			p.duplicates++
			continue
		}
		p.seen[item.ID] = struct{}{}
		added = append(added, item)
	}
	p.items = append(p.items, added...)
	return added, nil
}

// FillTo fetches windows until at least n rows are held or the listing ends.
func (p *Pager) FillTo(ctx context.Context, n int) error {
	for len(p.items) < n && p.HasMore() {
		if _, err := p.Next(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Items returns a copy of the accumulated rows.
func (p *Pager) Items() []models.Project {
	out := make([]models.Project, len(p.items))
	copy(out, p.items)
	return out
}

// Total is the listing size last reported by the backend.
func (p *Pager) Total() int {
	return p.total
}

// Offset is the skip value of the next request.
func (p *Pager) Offset() int {
	return p.offset
}

// PageSize returns the window size.
func (p *Pager) PageSize() int {
	return p.pageSize
}

// Duplicates counts rows dropped because they were already held.
func (p *Pager) Duplicates() int {
	return p.duplicates
}

// HasMoreAfter reports whether a listing of total rows continues past offset.
func HasMoreAfter(offset, total int) bool {
	return offset < total
}
