// Package catalog loads the fixed set of career records the service
// matches against, plus their precomputed embedding vectors.
package catalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/careersync/careersync/internal/domain"
)

// CSV header columns. Missing cells are treated as empty strings, never null.
const (
	colTitle       = "job_title"
	colDescription = "Short_description"
	colSkills      = "Skills_required"
)

// Catalog is the in-memory table of career records. Read-only after Load.
type Catalog struct {
	records []domain.CareerRecord
}

// Load reads the catalog CSV. The ID of each record is its row position.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged rows: missing trailing cells become ""

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}

	idx := map[string]int{}
	for i, name := range header {
		idx[name] = i
	}
	if _, ok := idx[colTitle]; !ok {
		return nil, fmt.Errorf("catalog is missing required column %q", colTitle)
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read catalog rows: %w", err)
	}

	records := make([]domain.CareerRecord, len(rows))
	for i, row := range rows {
		records[i] = domain.CareerRecord{
			ID:          strconv.Itoa(i),
			Title:       cell(row, idx, colTitle),
			Description: cell(row, idx, colDescription),
			Skills:      cell(row, idx, colSkills),
		}
	}

	return &Catalog{records: records}, nil
}

func cell(row []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// Records returns the loaded rows in file order.
func (c *Catalog) Records() []domain.CareerRecord {
	return c.records
}

// Len returns the number of catalog rows.
func (c *Catalog) Len() int {
	return len(c.records)
}

// FullTexts returns the derived full-text field per record, in row order.
func (c *Catalog) FullTexts() []string {
	texts := make([]string, len(c.records))
	for i, r := range c.records {
		texts[i] = r.FullText()
	}
	return texts
}

// CheckVectors verifies the positional coupling invariant: the vector at
// position i must correspond to the record at position i. A count
// mismatch means the vectors file was built from a different catalog.
func (c *Catalog) CheckVectors(vectors [][]float32) error {
	if len(vectors) != len(c.records) {
		return fmt.Errorf("%w: %d records, %d vectors",
			domain.ErrCatalogMismatch, len(c.records), len(vectors))
	}
	return nil
}
