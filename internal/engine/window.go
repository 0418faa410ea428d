package engine

import (
	"cmp"
	"errors"
	"slices"
	"strings"
)

var ErrPageSize = errors.New("page size not allowed")

// PageSizes are the page sizes a table surface offers.
var PageSizes = []int{10, 25, 50}

const DefaultPageSize = 10

func ValidPageSize(n int) bool {
	return slices.Contains(PageSizes, n)
}

// SortState selects a column and direction. An empty Field keeps arrival order.
type SortState struct {
	Field string `json:"field,omitempty"`
	Desc  bool   `json:"desc"`
}

// Toggle cycles a column through ascending, descending and unsorted.
// Selecting a different column starts at ascending.
func (s SortState) Toggle(field string) SortState {
	switch {
	case s.Field != field:
		return SortState{Field: field}
	case !s.Desc:
		return SortState{Field: field, Desc: true}
	default:
		return SortState{}
	}
}

// PageState is a 0-based page index and a page size.
type PageState struct {
	Index int `json:"pageIndex"`
	Size  int `json:"pageSize"`
}

// PageCount is ceil(total/size), never less than 1 so an empty table still
// renders one empty page.
func PageCount(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	n := (total + size - 1) / size
	if n < 1 {
		return 1
	}
	return n
}

// Clamp bounds the index to [0, pageCount-1].
func (p PageState) Clamp(total int) PageState {
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	last := PageCount(total, p.Size) - 1
	p.Index = max(0, min(p.Index, last))
	return p
}

func (p PageState) First() PageState { return PageState{Index: 0, Size: p.Size} }

func (p PageState) Previous(total int) PageState {
	return PageState{Index: p.Index - 1, Size: p.Size}.Clamp(total)
}

func (p PageState) Next(total int) PageState {
	return PageState{Index: p.Index + 1, Size: p.Size}.Clamp(total)
}

func (p PageState) Last(total int) PageState {
	return PageState{Index: PageCount(total, p.Size) - 1, Size: p.Size}
}

func (p PageState) Goto(n, total int) PageState {
	return PageState{Index: n, Size: p.Size}.Clamp(total)
}

// Resize switches to a new page size keeping the first visible row on screen.
func (p PageState) Resize(size, total int) PageState {
	if size <= 0 {
		size = DefaultPageSize
	}
	first := p.Index * p.Size
	return PageState{Index: first / size, Size: size}.Clamp(total)
}

// Window is one page of the sorted, filtered rows.
type Window[T any] struct {
	Rows      []T  `json:"rows"`
	PageIndex int  `json:"pageIndex"`
	PageSize  int  `json:"pageSize"`
	PageCount int  `json:"pageCount"`
	Total     int  `json:"total"`
	CanPrev   bool `json:"canPrev"`
	CanNext   bool `json:"canNext"`
}

// Sort returns a stably sorted copy of rows. Rows that compare equal keep
// their relative order; an empty or unknown field returns rows as is.
func Sort[T any](rows []T, schema *Schema[T], state SortState) []T {
	if state.Field == "" {
		return rows
	}
	c, ok := schema.Column(state.Field)
	if !ok {
		return rows
	}

	var compare func(a, b T) int
	if c.Kind == KindNumber {
		compare = func(a, b T) int { return cmp.Compare(c.Number(a), c.Number(b)) }
	} else {
		compare = func(a, b T) int { return strings.Compare(c.Text(a), c.Text(b)) }
	}
	if state.Desc {
		asc := compare
		compare = func(a, b T) int { return asc(b, a) }
	}

	out := slices.Clone(rows)
	slices.SortStableFunc(out, compare)
	return out
}

// Paginate slices an already sorted set.
func Paginate[T any](sorted []T, page PageState) Window[T] {
	total := len(sorted)
	page = page.Clamp(total)
	count := PageCount(total, page.Size)

	start := min(page.Index*page.Size, total)
	end := min(start+page.Size, total)

	return Window[T]{
		Rows:      sorted[start:end:end],
		PageIndex: page.Index,
		PageSize:  page.Size,
		PageCount: count,
		Total:     total,
		CanPrev:   page.Index > 0,
		CanNext:   page.Index < count-1,
	}
}

// Configure sorts the filtered rows and returns the requested page.
func Configure[T any](filtered []T, schema *Schema[T], sort SortState, page PageState) Window[T] {
	return Paginate(Sort(filtered, schema, sort), page)
}
