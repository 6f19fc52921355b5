package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// RuleSummary is one line of the defect summary: a rule and how many rows it
// matched.
type RuleSummary struct {
	Name    string
	Title   string
	Matches int
}

// BuildDefectPDF renders the defect summary for one run: the scope, row
// count, and a table of match counts per rule.
func BuildDefectPDF(scope string, totalRows int, generated time.Time, summaries []RuleSummary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Telecontrol Defect Summary")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Scope: %s", scope))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Points: %d", totalRows))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generated.Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 6, "Rule", "1", 0, "C", false, 0, "")
	pdf.CellFormat(110, 6, "Description", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Matches", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, s := range summaries {
		pdf.CellFormat(30, 6, s.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(110, 6, s.Title, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", s.Matches), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
