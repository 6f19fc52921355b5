package sources

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// table is a header-indexed rectangular extract, the common shape behind
// every importer regardless of whether it came from CSV or a workbook tab.
type table struct {
	header map[string]int
	rows   [][]string
}

func newTable(records [][]string) (*table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("sources: extract has no header row")
	}
	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.TrimSpace(name)] = i
	}
	return &table{header: header, rows: records[1:]}, nil
}

func (t *table) has(col string) bool {
	_, ok := t.header[col]
	return ok
}

// get returns the trimmed cell value, or "" when the column is absent or the
// row is ragged.
func (t *table) get(row int, col string) string {
	i, ok := t.header[col]
	if !ok || i >= len(t.rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.rows[row][i])
}

func (t *table) len() int { return len(t.rows) }

func readCSV(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sources: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("sources: read %s: %w", path, err)
	}
	return newTable(records)
}

func readSheet(path, sheet string) (*table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("sources: open %s: %w", path, err)
	}
	defer f.Close()

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("sources: read sheet %s of %s: %w", sheet, path, err)
	}
	t, err := newTable(records)
	if err != nil {
		return nil, fmt.Errorf("sources: sheet %s of %s: %w", sheet, path, err)
	}
	return t, nil
}
