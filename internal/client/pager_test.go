package client

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/good-yellow-bee/toolme/internal/models"
)

// fakeLister serves a fixed listing, optionally inserting rows to simulate
// concurrent publishes between page requests.
type fakeLister struct {
	rows  []models.Project
	calls []Page
	err   error
	after func(call int, l *fakeLister)
}

func (f *fakeLister) List(_ context.Context, page Page) (*ProjectPage, error) {
	f.calls = append(f.calls, page)
	if f.err != nil {
		return nil, f.err
	}
	end := page.Skip + page.Limit
	if end > len(f.rows) {
		end = len(f.rows)
	}
	var items []models.Project
	if page.Skip < len(f.rows) {
		items = append(items, f.rows[page.Skip:end]...)
	}
	res := &ProjectPage{Items: items, Total: len(f.rows)}
	if f.after != nil {
		f.after(len(f.calls), f)
	}
	return res, nil
}

func projectsN(n int) []models.Project {
	out := make([]models.Project, n)
	for i := range out {
		out[i] = models.Project{ID: fmt.Sprintf("p%02d", i)}
	}
	return out
}

func TestPager_WalksListing(t *testing.T) {
	l := &fakeLister{rows: projectsN(30)}
	p := NewPager(l, 12)

	assert.True(t, p.HasMore())
	for p.HasMore() {
		_, err := p.Next(context.Background())
		require.NoError(t, err)
	}

	assert.Len(t, p.Items(), 30)
	assert.Equal(t, 30, p.Total())
	assert.Equal(t, []Page{{0, 12}, {12, 12}, {24, 12}}, l.calls)
}

func TestPager_DefaultPageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, NewPager(&fakeLister{}, 0).PageSize())
}

func TestPager_EmptyListing(t *testing.T) {
	l := &fakeLister{}
	p := NewPager(l, 12)

	added, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.False(t, p.HasMore())

	added, err = p.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, added)
	assert.Len(t, l.calls, 1)
}

func TestPager_DropsDuplicatesFromShiftedWindow(t *testing.T) {
	l := &fakeLister{rows: projectsN(24)}
	// A publish at the head shifts every row down by one.
	l.after = func(call int, f *fakeLister) {
		if call == 1 {
			f.rows = append([]models.Project{{ID: "new"}}, f.rows...)
		}
	}
	p := NewPager(l, 12)

	require.NoError(t, p.FillTo(context.Background(), 100))

	ids := make(map[string]int)
	for _, item := range p.Items() {
		ids[item.ID]++
	}
	for id, n := range ids {
		assert.Equal(t, 1, n, "duplicate %s", id)
	}
	assert.Equal(t, 1, p.Duplicates())
	assert.Len(t, p.Items(), 24)
}

func TestPager_ErrorLeavesStateUntouched(t *testing.T) {
	l := &fakeLister{rows: projectsN(5), err: errors.New("boom")}
	p := NewPager(l, 12)

	_, err := p.Next(context.Background())
	require.Error(t, err)
	assert.Empty(t, p.Items())
	assert.Equal(t, 0, p.Offset())
	assert.True(t, p.HasMore())
}

func TestPager_ItemsIsACopy(t *testing.T) {
	p := NewPager(&fakeLister{rows: projectsN(3)}, 12)
	_, err := p.Next(context.Background())
	require.NoError(t, err)

	items := p.Items()
	items[0].ID = "mutated"
	assert.Equal(t, "p00", p.Items()[0].ID)
}

func TestHasMoreAfter(t *testing.T) {
	assert.True(t, HasMoreAfter(12, 40))
	assert.False(t, HasMoreAfter(40, 40))
	assert.False(t, HasMoreAfter(0, 0))
}
