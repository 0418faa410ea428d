package engine

// Domains maps a filterable field to its distinct values in first-seen order.
type Domains map[string][]string

// DeriveDomains collects the distinct values of each requested field from
// the unfiltered rows. Unknown or non-string fields get an empty domain.
func DeriveDomains[T any](rows []T, schema *Schema[T], fields []string) Domains {
	out := make(Domains, len(fields))

	type acc struct {
		text func(T) string
		seen map[string]struct{}
		list []string
	}
	accs := make([]*acc, 0, len(fields))
	for _, f := range fields {
		out[f] = []string{}
		c, ok := schema.Column(f)
		if !ok || c.Kind != KindString {
			continue
		}
		accs = append(accs, &acc{text: c.Text, seen: make(map[string]struct{}), list: []string{}})
	}

	// One pass over the rows for all fields.
	for _, row := range rows {
		for _, a := range accs {
			v := a.text(row)
			if _, ok := a.seen[v]; ok {
				continue
			}
			a.seen[v] = struct{}{}
			a.list = append(a.list, v)
		}
	}

	i := 0
	for _, f := range fields {
		c, ok := schema.Column(f)
		if !ok || c.Kind != KindString {
			continue
		}
		out[f] = accs[i].list
		i++
	}
	return out
}

// Contains reports whether value is present in the domain of field.
func (d Domains) Contains(field, value string) bool {
	for _, v := range d[field] {
		if v == value {
			return true
		}
	}
	return false
}
