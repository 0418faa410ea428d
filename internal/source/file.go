package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pharmadash/internal/engine"
	"pharmadash/internal/models"
)

// FileSource serves periods from a directory of <period>.csv files.
type FileSource struct {
	dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Periods lists the file stems, newest first.
func (s *FileSource) Periods(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	periods := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}
		periods = append(periods, strings.TrimSuffix(name, filepath.Ext(name)))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(periods)))
	return periods, nil
}

func (s *FileSource) Records(ctx context.Context, period string) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if period == "" || strings.ContainsAny(period, `/\`) || strings.Contains(period, "..") {
		return nil, ErrNotFound
	}
	rows, err := engine.LoadFile(filepath.Join(s.dir, period+".csv"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return rows, err
}
