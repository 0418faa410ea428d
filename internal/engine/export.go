package engine

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"github.com/zeebo/xxh3"
)

const exportSheet = "Sheet1"

// WriteCSV writes every row with a header row of column names. Quoting of
// delimiters, quotes and newlines follows RFC 4180.
func WriteCSV[T any](w io.Writer, rows []T, schema *Schema[T]) error {
	cols := schema.Visible()
	cw := csv.NewWriter(w)
	if err := cw.Write(schema.Names()); err != nil {
		return err
	}
	rec := make([]string, len(cols))
	for _, row := range rows {
		for i, c := range cols {
			rec[i] = c.Format(row)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SerializeCSV is WriteCSV into memory.
func SerializeCSV[T any](rows []T, schema *Schema[T]) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows, schema); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteXLSX writes the rows as a single-sheet workbook. Numeric columns are
// stored as numbers.
func WriteXLSX[T any](w io.Writer, rows []T, schema *Schema[T]) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return err
	}

	cols := schema.Visible()
	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c.Header
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for r, row := range rows {
		cells := make([]interface{}, len(cols))
		for i, c := range cols {
			if c.Kind == KindNumber {
				cells[i] = c.Number(row)
			} else {
				cells[i] = c.Text(row)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

// ETag is a strong validator for an exported payload.
func ETag(payload []byte) string {
	return fmt.Sprintf(`"%016x"`, xxh3.Hash(payload))
}
