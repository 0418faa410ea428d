package engine

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pharmadash/internal/models"
)

func TestSerializeCSVRoundTrip(t *testing.T) {
	rows := []models.Record{
		rec(`Drug, "special"`, "Multi\nLine Inc", "Onc", "US", 1500.25),
		rec("Plain", "Co", "Car", "DE", 7),
	}
	rows[0].Rank = 1
	rows[1].Rank = 2

	payload, err := SerializeCSV(rows, DrugTable)
	require.NoError(t, err)

	got, err := LoadRecords(bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestSerializeCSVHeaderAndOrder(t *testing.T) {
	rows := sampleRows(3)
	payload, err := SerializeCSV(rows, DrugTable)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, DrugTable.Names(), records[0])
	assert.Equal(t, "drug-00", records[1][0])
	assert.Equal(t, "drug-02", records[3][0])
}

func TestSerializeCSVEmpty(t *testing.T) {
	payload, err := SerializeCSV([]models.Record{}, CompanyTable)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(CompanyTable.Names(), ",")+"\n", string(payload))
	assert.NotContains(t, string(payload), models.FieldCompany)
}

func TestWriteXLSX(t *testing.T) {
	rows := sampleRows(4)
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, rows, DrugTable))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "Drug Name", got[0][0])
	assert.Equal(t, "Mean Sales ($)", got[0][5])
	assert.Equal(t, "drug-03", got[4][0])
	assert.Equal(t, "3", got[4][5])
}

func TestETag(t *testing.T) {
	a := ETag([]byte("payload"))
	assert.Equal(t, a, ETag([]byte("payload")))
	assert.NotEqual(t, a, ETag([]byte("payload2")))
	assert.Len(t, a, 18)
	assert.True(t, strings.HasPrefix(a, `"`))
}
