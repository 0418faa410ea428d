package engine

import (
	"errors"
	"fmt"
)

// ErrStale reports a load result that arrived after a different period had
// been selected. The result was discarded.
var ErrStale = errors.New("stale period result discarded")

// LoadError is a failed period load. The previous record set stays active.
type LoadError struct {
	Period string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load period %s: %v", e.Period, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Ticket identifies one load request.
type Ticket struct {
	Period string
	seq    uint64
}

// PeriodStore holds the raw rows of the selected reporting period.
// Raw sets are replaced wholesale and never modified in place.
//
// PeriodStore is not safe for concurrent use; Session serializes access.
type PeriodStore[T any] struct {
	selected  string
	committed string
	raw       []T
	loadErr   *LoadError

	seq          uint64
	committedSeq uint64
	fresh        bool
}

// Begin records period as the selection and hands out a ticket for the
// fetch. It returns false when period is the one already loaded, in which
// case no fetch is needed and any in-flight load for another period becomes
// stale.
func (s *PeriodStore[T]) Begin(period string) (Ticket, bool) {
	s.selected = period
	if period == s.committed && s.fresh {
		s.loadErr = nil
		return Ticket{}, false
	}
	s.seq++
	return Ticket{Period: period, seq: s.seq}, true
}

// Commit applies the outcome of the fetch behind t. It returns true when the
// raw set was replaced. Results for a period that is no longer selected, or
// older than the last applied result, yield ErrStale. A fetch error is kept
// as a *LoadError and leaves the last good set in place.
func (s *PeriodStore[T]) Commit(t Ticket, rows []T, fetchErr error) (bool, error) {
	if t.Period != s.selected || t.seq <= s.committedSeq {
		return false, ErrStale
	}
	if fetchErr != nil {
		s.loadErr = &LoadError{Period: t.Period, Err: fetchErr}
		return false, s.loadErr
	}
	if rows == nil {
		rows = []T{}
	}
	s.raw = rows
	s.committed = t.Period
	s.committedSeq = t.seq
	s.loadErr = nil
	s.fresh = true
	return true, nil
}

// Invalidate forces the next Begin for the loaded period to fetch again.
func (s *PeriodStore[T]) Invalidate() { s.fresh = false }

// Raw returns the active record set. It is never nil.
func (s *PeriodStore[T]) Raw() []T {
	if s.raw == nil {
		return []T{}
	}
	return s.raw
}

// Period is the period whose rows are active.
func (s *PeriodStore[T]) Period() string { return s.committed }

// Selected is the most recently requested period.
func (s *PeriodStore[T]) Selected() string { return s.selected }

// Pending reports whether the selected period has not been applied yet.
func (s *PeriodStore[T]) Pending() bool {
	return s.selected != "" && s.selected != s.committed && s.loadErr == nil
}

func (s *PeriodStore[T]) LoadError() *LoadError { return s.loadErr }
