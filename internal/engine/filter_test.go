package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pharmadash/internal/models"
)

func TestDeriveDomainsFirstSeenOrder(t *testing.T) {
	rows := []models.Record{
		rec("a", "X", "Onc", "US", 1),
		rec("b", "Y", "Onc", "DE", 1),
		rec("c", "X", "Car", "US", 1),
	}

	d := DeriveDomains(rows, DrugTable, DrugTable.Filterable)

	assert.Equal(t, []string{"US", "DE"}, d[models.FieldCountry])
	assert.Equal(t, []string{"Onc", "Car"}, d[models.FieldCategory])
	assert.Equal(t, []string{"X", "Y"}, d[models.FieldCompany])
	assert.True(t, d.Contains(models.FieldCountry, "DE"))
	assert.False(t, d.Contains(models.FieldCountry, "FR"))
}

func TestDeriveDomainsEdgeCases(t *testing.T) {
	d := DeriveDomains(nil, DrugTable, []string{models.FieldCountry, "nope", models.FieldRank})
	assert.Equal(t, []string{}, d[models.FieldCountry])
	assert.Equal(t, []string{}, d["nope"])
	assert.Equal(t, []string{}, d[models.FieldRank])
}

func TestApplyExactMatch(t *testing.T) {
	rows := []models.Record{
		rec("a", "X", "Onc", "US", 1),
		rec("b", "Y", "Onc", "DE", 2),
		rec("c", "X", "Car", "US", 3),
		rec("d", "X", "Onc", "US", 4),
	}

	got := Apply(rows, DrugTable, FilterState{}.With(models.FieldCountry, "US").With(models.FieldCategory, "Onc"))
	assert.Equal(t, []models.Record{rows[0], rows[3]}, got)

	// "U" is not a prefix match
	got = Apply(rows, DrugTable, FilterState{}.With(models.FieldCountry, "U"))
	assert.Empty(t, got)
}

func TestApplyUnconstrainedReturnsInput(t *testing.T) {
	rows := sampleRows(5)
	assert.Equal(t, rows, Apply(rows, DrugTable, FilterState{}))
	assert.Equal(t, rows, Apply(rows, DrugTable, FilterState{Search: "   "}))
	// non-filterable fields are ignored
	assert.Equal(t, rows, Apply(rows, DrugTable, FilterState{Selections: map[string]string{models.FieldDrug: "x"}}))
}

func TestApplySubsetAndIdempotent(t *testing.T) {
	rows := sampleRows(30)
	state := FilterState{}.With(models.FieldCountry, "DE").WithSearch("1")

	once := Apply(rows, DrugTable, state)
	twice := Apply(once, DrugTable, state)
	assert.Equal(t, once, twice)
	assert.NotEmpty(t, once)

	// order preserving subset
	j := 0
	for _, r := range once {
		for j < len(rows) && rows[j] != r {
			j++
		}
		assert.Less(t, j, len(rows), "filtered row %v out of order or missing", r)
		j++
	}
}

func TestApplySearchFoldsCaseAndTrims(t *testing.T) {
	rows := []models.Record{
		rec("Aspirin-500", "Bayer", "Cardio", "DE", 1),
		rec("ASPIRIN", "Bayer", "Cardio", "FR", 1),
		rec("Ibuprofen", "Bayer", "Pain", "DE", 1),
	}

	got := Apply(rows, DrugTable, FilterState{Search: " aspirin "})
	assert.Equal(t, []models.Record{rows[0], rows[1]}, got)

	got = Apply(rows, DrugTable, FilterState{Search: "zzz"})
	assert.Empty(t, got)
}

func TestApplyEmptyRaw(t *testing.T) {
	got := Apply([]models.Record{}, DrugTable, FilterState{}.With(models.FieldCountry, "US"))
	assert.Empty(t, got)
}

func TestFilterStateWithCopies(t *testing.T) {
	a := FilterState{}.With(models.FieldCountry, "US")
	b := a.With(models.FieldCountry, "DE")
	c := b.With(models.FieldCountry, "")

	assert.Equal(t, "US", a.Selections[models.FieldCountry])
	assert.Equal(t, "DE", b.Selections[models.FieldCountry])
	assert.NotContains(t, c.Selections, models.FieldCountry)
	assert.True(t, c.IsEmpty())
}

func TestFilterLeavesOtherDomainsIntact(t *testing.T) {
	raw := []models.Record{
		rec("Keytruda", "Merck", "Oncology", "US", 3),
		rec("Opdivo", "BMS", "Oncology", "US", 2),
		rec("Eliquis", "Pfizer", "Cardio", "DE", 1),
	}
	state := FilterState{}.With(models.FieldCategory, "Oncology")

	got := Apply(raw, DrugTable, state)
	assert.Equal(t, raw[:2], got)

	d := DeriveDomains(raw, DrugTable, DrugTable.Filterable)
	assert.Equal(t, []string{"Merck", "BMS", "Pfizer"}, d[models.FieldCompany])
}
