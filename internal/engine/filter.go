package engine

import (
	"strings"

	"golang.org/x/text/cases"
)

// FilterState holds one selected value per field ("" means no constraint)
// plus the free-text search applied to the schema's search column.
type FilterState struct {
	Selections map[string]string `json:"filters"`
	Search     string            `json:"search"`
}

// With returns a copy of f with field set to value. An empty value clears it.
func (f FilterState) With(field, value string) FilterState {
	sel := make(map[string]string, len(f.Selections)+1)
	for k, v := range f.Selections {
		sel[k] = v
	}
	if value == "" {
		delete(sel, field)
	} else {
		sel[field] = value
	}
	return FilterState{Selections: sel, Search: f.Search}
}

func (f FilterState) WithSearch(text string) FilterState {
	return FilterState{Selections: f.Selections, Search: text}
}

// IsEmpty reports whether f constrains nothing.
func (f FilterState) IsEmpty() bool {
	for _, v := range f.Selections {
		if v != "" {
			return false
		}
	}
	return strings.TrimSpace(f.Search) == ""
}

// Apply returns the rows matching every active constraint, in their original
// relative order. Selections compare exactly; the search is a trimmed,
// case-insensitive substring match on the search column. An unconstrained
// state returns rows unchanged.
func Apply[T any](rows []T, schema *Schema[T], state FilterState) []T {
	if state.IsEmpty() {
		return rows
	}

	type eq struct {
		text  func(T) string
		value string
	}
	var eqs []eq
	for field, value := range state.Selections {
		if value == "" || !schema.IsFilterable(field) {
			continue
		}
		c, _ := schema.Column(field)
		eqs = append(eqs, eq{text: c.Text, value: value})
	}

	var (
		search func(T) string
		needle string
		fold   cases.Caser
	)
	if term := strings.TrimSpace(state.Search); term != "" && schema.Search != "" {
		c, _ := schema.Column(schema.Search)
		search = c.Text
		fold = cases.Fold()
		needle = fold.String(term)
	}

	if len(eqs) == 0 && search == nil {
		return rows
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		pass := true
		for _, e := range eqs {
			if e.text(row) != e.value {
				pass = false
				break
			}
		}
		if pass && search != nil {
			pass = strings.Contains(fold.String(search(row)), needle)
		}
		if pass {
			out = append(out, row)
		}
	}
	return out
}
