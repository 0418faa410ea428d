package engine

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrUnknownField = errors.New("unknown field")

type Kind int

const (
	KindString Kind = iota
	KindNumber
)

// Column describes one field of the row type T. String columns set Text,
// numeric columns set Number. Hidden columns can be filtered and sorted on
// but are neither displayed nor exported.
type Column[T any] struct {
	Name   string
	Header string
	Kind   Kind
	Hidden bool
	Text   func(T) string
	Number func(T) float64
}

// Format renders the cell the way it is exported.
func (c Column[T]) Format(row T) string {
	if c.Kind == KindNumber {
		return strconv.FormatFloat(c.Number(row), 'f', -1, 64)
	}
	return c.Text(row)
}

// Schema is the field list and record shape one table surface works with.
type Schema[T any] struct {
	Columns    []Column[T]
	Filterable []string
	Search     string

	index map[string]int
}

func NewSchema[T any](columns []Column[T], filterable []string, search string) (*Schema[T], error) {
	s := &Schema[T]{
		Columns:    columns,
		Filterable: filterable,
		Search:     search,
		index:      make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := s.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		switch {
		case c.Kind == KindString && c.Text == nil:
			return nil, fmt.Errorf("column %q: string column without Text accessor", c.Name)
		case c.Kind == KindNumber && c.Number == nil:
			return nil, fmt.Errorf("column %q: numeric column without Number accessor", c.Name)
		}
		s.index[c.Name] = i
	}
	for _, f := range filterable {
		c, ok := s.Column(f)
		if !ok {
			return nil, fmt.Errorf("filterable %q: %w", f, ErrUnknownField)
		}
		if c.Kind != KindString {
			return nil, fmt.Errorf("filterable %q is not a string column", f)
		}
	}
	if search != "" {
		c, ok := s.Column(search)
		if !ok {
			return nil, fmt.Errorf("search %q: %w", search, ErrUnknownField)
		}
		if c.Kind != KindString {
			return nil, fmt.Errorf("search %q is not a string column", search)
		}
	}
	return s, nil
}

// MustSchema is NewSchema for package-level schema definitions.
func MustSchema[T any](columns []Column[T], filterable []string, search string) *Schema[T] {
	s, err := NewSchema(columns, filterable, search)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema[T]) Column(name string) (Column[T], bool) {
	i, ok := s.index[name]
	if !ok {
		return Column[T]{}, false
	}
	return s.Columns[i], true
}

func (s *Schema[T]) IsFilterable(name string) bool {
	for _, f := range s.Filterable {
		if f == name {
			return true
		}
	}
	return false
}

// Visible returns the displayed columns in declaration order.
func (s *Schema[T]) Visible() []Column[T] {
	out := make([]Column[T], 0, len(s.Columns))
	for _, c := range s.Columns {
		if !c.Hidden {
			out = append(out, c)
		}
	}
	return out
}

// Names returns the visible column names in declaration order.
func (s *Schema[T]) Names() []string {
	cols := s.Visible()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
