package engine

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"pharmadash/internal/models"
)

// headerAliases maps normalized CSV headers to record fields. Both the field
// keys written by WriteCSV and the display headers are accepted.
var headerAliases = map[string]string{
	"drugname":       models.FieldDrug,
	"drug":           models.FieldDrug,
	"companyname":    models.FieldCompany,
	"company":        models.FieldCompany,
	"categoryname":   models.FieldCategory,
	"category":       models.FieldCategory,
	"countryname":    models.FieldCountry,
	"country":        models.FieldCountry,
	"rank":           models.FieldRank,
	"estimatedsales": models.FieldEstimatedSales,
	"meansales":      models.FieldEstimatedSales,
	"minsales":       models.FieldMinSales,
	"maxsales":       models.FieldMaxSales,
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	var b strings.Builder
	for _, r := range h {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LoadRecords parses a CSV of sales estimates. The first row is the header;
// columns may appear in any order and unknown columns are skipped. Empty
// numeric cells read as zero, an empty rank as unranked (0). A present rank
// must be an integer of at least 1.
func LoadRecords(r io.Reader) ([]models.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []models.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		if f, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, dup := cols[f]; !dup {
				cols[f] = i
			}
		}
	}
	if _, ok := cols[models.FieldDrug]; !ok {
		return nil, fmt.Errorf("missing %s column", models.FieldDrug)
	}

	out := make([]models.Record, 0, 1024)
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}
		num := func(name string) (float64, error) {
			s := strings.ReplaceAll(strings.TrimSpace(field(name)), ",", "")
			if s == "" {
				return 0, nil
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, fmt.Errorf("line %d: %s: %w", line, name, err)
			}
			return v, nil
		}

		row := models.Record{
			DrugName:     field(models.FieldDrug),
			CompanyName:  field(models.FieldCompany),
			CategoryName: field(models.FieldCategory),
			CountryName:  field(models.FieldCountry),
		}
		if s := strings.TrimSpace(field(models.FieldRank)); s != "" {
			if row.Rank, err = strconv.Atoi(s); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, models.FieldRank, err)
			}
			if row.Rank < 1 {
				return nil, fmt.Errorf("line %d: %s %d below 1", line, models.FieldRank, row.Rank)
			}
		}
		if row.EstimatedSales, err = num(models.FieldEstimatedSales); err != nil {
			return nil, err
		}
		if row.MinSales, err = num(models.FieldMinSales); err != nil {
			return nil, err
		}
		if row.MaxSales, err = num(models.FieldMaxSales); err != nil {
			return nil, err
		}
		if err := checkSales(row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, row)
	}
	return out, nil
}

// checkSales rejects negative figures and a max below the min.
func checkSales(r models.Record) error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{models.FieldEstimatedSales, r.EstimatedSales},
		{models.FieldMinSales, r.MinSales},
		{models.FieldMaxSales, r.MaxSales},
	} {
		if f.value < 0 {
			return fmt.Errorf("%s %v is negative", f.name, f.value)
		}
	}
	if r.MaxSales < r.MinSales {
		return fmt.Errorf("%s %v below %s %v", models.FieldMaxSales, r.MaxSales, models.FieldMinSales, r.MinSales)
	}
	return nil
}

// LoadFile reads one period file.
func LoadFile(path string) ([]models.Record, error) {
	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := LoadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debugf("loaded %s: %d rows in %v", path, len(rows), time.Since(start))
	return rows, nil
}
