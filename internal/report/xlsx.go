package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"scada-recon/internal/recon"
)

// RTUSheet pairs one RTU name with its merged and rule-annotated table.
type RTUSheet struct {
	Name  string
	Table *recon.Table
}

const (
	minColumnWidth = 10
	maxColumnWidth = 60
)

// BuildWorkbook renders one worksheet per RTU with every column of the merged
// table, widths sized to content.
func BuildWorkbook(sheets []RTUSheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("report: no sheets to write")
	}
	f := excelize.NewFile()
	for si, s := range sheets {
		name := sheetName(s.Name)
		if si == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("report: sheet %s: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("report: sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, s.Table); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, t *recon.Table) error {
	cols := t.Columns()
	widths := make([]int, len(cols))

	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c
		widths[i] = len(c)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("report: sheet %s: %w", sheet, err)
	}

	for r := 0; r < t.Len(); r++ {
		row := make([]interface{}, len(cols))
		for i, c := range cols {
			v, err := t.At(r, c)
			if err != nil {
				return err
			}
			row[i] = cellValue(v)
			if n := len(v.Str()); n > widths[i] {
				widths[i] = n
			}
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", r+2), &row); err != nil {
			return fmt.Errorf("report: sheet %s row %d: %w", sheet, r, err)
		}
	}

	for i := range cols {
		w := widths[i] + 2
		if w < minColumnWidth {
			w = minColumnWidth
		}
		if w > maxColumnWidth {
			w = maxColumnWidth
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, float64(w)); err != nil {
			return err
		}
	}
	return nil
}

// cellValue maps a table cell onto the workbook type system. Nulls become
// empty cells.
func cellValue(v recon.Value) interface{} {
	switch v.Kind() {
	case recon.KindNumber:
		n, _ := v.Num()
		return n
	case recon.KindBool:
		return v.True()
	case recon.KindString:
		return v.Str()
	}
	return nil
}

// sheetName sanitises an RTU name for use as a worksheet name: the characters
// Excel rejects are stripped and the 31-character limit enforced.
func sheetName(name string) string {
	r := strings.NewReplacer(":", "", "\\", "", "/", "", "?", "", "*", "", "[", "", "]", "", "'", "")
	name = r.Replace(name)
	if name == "" {
		name = "RTU"
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
