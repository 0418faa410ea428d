package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"pharmadash/internal/logging"
)

var logger = logging.New("engine")

// Fetcher retrieves the ordered rows of one period.
type Fetcher[T any] interface {
	Fetch(ctx context.Context, period string) ([]T, error)
}

// FetchFunc adapts a function to Fetcher.
type FetchFunc[T any] func(ctx context.Context, period string) ([]T, error)

func (f FetchFunc[T]) Fetch(ctx context.Context, period string) ([]T, error) {
	return f(ctx, period)
}

// View is what a table surface renders.
type View[T any] struct {
	Period        string            `json:"period"`
	PendingPeriod string            `json:"pendingPeriod,omitempty"`
	LoadError     string            `json:"loadError,omitempty"`
	Filters       map[string]string `json:"filters"`
	Search        string            `json:"search"`
	Sort          SortState         `json:"sort"`
	Domains       Domains           `json:"domains"`
	Window[T]
}

// Session owns the query state of one table surface: the period's raw rows,
// filter, sort and page. Every transition recomputes the derived artifacts
// from upstream state instead of patching them.
type Session[T any] struct {
	mu      sync.Mutex
	schema  *Schema[T]
	fetcher Fetcher[T]
	store   PeriodStore[T]

	filter FilterState
	sort   SortState
	page   PageState

	domains  Domains
	filtered []T
	sorted   []T
}

func NewSession[T any](schema *Schema[T], fetcher Fetcher[T]) *Session[T] {
	s := &Session[T]{
		schema:  schema,
		fetcher: fetcher,
		page:    PageState{Size: DefaultPageSize},
	}
	s.rederive()
	return s
}

func (s *Session[T]) Schema() *Schema[T] { return s.schema }

// Load selects period and fetches its rows unless they are already active.
// The fetch runs without holding the session lock; its result is applied
// only if period is still the selection when it arrives. A late result for
// an abandoned period returns ErrStale, a failed fetch a *LoadError.
func (s *Session[T]) Load(ctx context.Context, period string) error {
	period = strings.TrimSpace(period)
	if period == "" {
		return errors.New("empty period")
	}

	s.mu.Lock()
	t, ok := s.store.Begin(period)
	s.mu.Unlock()
	if !ok {
		return nil
	}

	start := time.Now()
	logger.Debugf("loading period %s", period)
	rows, err := s.fetcher.Fetch(ctx, period)

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.store.Period()
	applied, err := s.store.Commit(t, rows, err)
	switch {
	case errors.Is(err, ErrStale):
		logger.Infof("discarded result for period %s, selection is now %s", period, s.store.Selected())
		return err
	case err != nil:
		logger.Warnf("%v (keeping period %q)", err, prev)
		return err
	case !applied:
		return nil
	}

	// Selections survive as long as their value exists in the new domains.
	s.domains = DeriveDomains(s.store.Raw(), s.schema, s.schema.Filterable)
	s.filter = s.reconcile(s.filter)
	if prev != period {
		s.filter = s.filter.WithSearch("")
		s.sort = SortState{}
		s.page = s.page.First()
	}
	s.refilter()
	logger.Infof("period %s active: %d rows in %v", period, len(s.store.Raw()), time.Since(start))
	return nil
}

// Reload fetches the active period again.
func (s *Session[T]) Reload(ctx context.Context) error {
	s.mu.Lock()
	period := s.store.Period()
	s.store.Invalidate()
	s.mu.Unlock()
	if period == "" {
		return nil
	}
	return s.Load(ctx, period)
}

// reconcile drops selections whose value is no longer in the domain.
func (s *Session[T]) reconcile(f FilterState) FilterState {
	out := f
	for field, value := range f.Selections {
		if value != "" && !s.domains.Contains(field, value) {
			logger.Debugf("filter %s=%q no longer available, cleared", field, value)
			out = out.With(field, "")
		}
	}
	return out
}

func (s *Session[T]) SetFilter(field, value string) error {
	if !s.schema.IsFilterable(field) {
		return fmt.Errorf("filter %q: %w", field, ErrUnknownField)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = s.filter.With(field, value)
	s.page = s.page.First()
	s.refilter()
	return nil
}

func (s *Session[T]) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = FilterState{}
	s.page = s.page.First()
	s.refilter()
}

func (s *Session[T]) SetSearch(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = s.filter.WithSearch(text)
	s.page = s.page.First()
	s.refilter()
}

func (s *Session[T]) SetSort(sort SortState) error {
	if sort.Field != "" {
		if _, ok := s.schema.Column(sort.Field); !ok {
			return fmt.Errorf("sort %q: %w", sort.Field, ErrUnknownField)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = sort
	s.page = s.page.First()
	s.resort()
	return nil
}

// ToggleSort cycles field through ascending, descending and unsorted.
func (s *Session[T]) ToggleSort(field string) error {
	if _, ok := s.schema.Column(field); !ok {
		return fmt.Errorf("sort %q: %w", field, ErrUnknownField)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = s.sort.Toggle(field)
	s.page = s.page.First()
	s.resort()
	return nil
}

func (s *Session[T]) FirstPage() { s.movePage(func(p PageState, _ int) PageState { return p.First() }) }

func (s *Session[T]) PreviousPage() { s.movePage(PageState.Previous) }

func (s *Session[T]) NextPage() { s.movePage(PageState.Next) }

func (s *Session[T]) LastPage() { s.movePage(PageState.Last) }

// GotoPage jumps to page n, clamped to the available pages.
func (s *Session[T]) GotoPage(n int) {
	s.movePage(func(p PageState, total int) PageState { return p.Goto(n, total) })
}

func (s *Session[T]) movePage(move func(PageState, int) PageState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = move(s.page, len(s.sorted))
}

// SetPageSize switches to one of PageSizes keeping the first visible row on
// the current page.
func (s *Session[T]) SetPageSize(size int) error {
	if !ValidPageSize(size) {
		return fmt.Errorf("%d: %w", size, ErrPageSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = s.page.Resize(size, len(s.sorted))
	return nil
}

func (s *Session[T]) View() View[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View[T]{
		Period:  s.store.Period(),
		Filters: map[string]string{},
		Search:  s.filter.Search,
		Sort:    s.sort,
		Domains: s.domains,
		Window:  Paginate(s.sorted, s.page),
	}
	for k, val := range s.filter.Selections {
		v.Filters[k] = val
	}
	if s.store.Pending() {
		v.PendingPeriod = s.store.Selected()
	}
	if le := s.store.LoadError(); le != nil {
		v.LoadError = le.Error()
	}
	return v
}

// Filtered returns a copy of the whole filtered set in arrival order,
// independent of sort and page.
func (s *Session[T]) Filtered() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.filtered)
}

// Period is the period whose rows are active.
func (s *Session[T]) Period() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Period()
}

// Selection returns the selected value of a filter field.
func (s *Session[T]) Selection(field string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.Selections[field]
}

func (s *Session[T]) rederive() {
	s.domains = DeriveDomains(s.store.Raw(), s.schema, s.schema.Filterable)
	s.refilter()
}

func (s *Session[T]) refilter() {
	s.filtered = Apply(s.store.Raw(), s.schema, s.filter)
	s.resort()
}

func (s *Session[T]) resort() {
	s.sorted = Sort(s.filtered, s.schema, s.sort)
	s.page = s.page.Clamp(len(s.sorted))
}
