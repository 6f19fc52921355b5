package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"scada-recon/internal/recon"
)

func sampleTable(t *testing.T) *recon.Table {
	t.Helper()
	tbl := recon.NewTable("GenericPointAddress", "NumControls", "ReportANY")
	rows := [][]recon.Value{
		{recon.String("[(BUSB1:12):3:6- SD]"), recon.Number(2), recon.Bool(false)},
		{recon.Null(), recon.Number(0), recon.Bool(true)},
	}
	for _, r := range rows {
		if err := tbl.AppendRow(r...); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}
	return tbl
}

func TestBuildWorkbook(t *testing.T) {
	raw, err := BuildWorkbook([]RTUSheet{
		{Name: "BUSB1_RTU", Table: sampleTable(t)},
		{Name: "OTHER_RTU", Table: sampleTable(t)},
	})
	if err != nil {
		t.Fatalf("BuildWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "BUSB1_RTU" || sheets[1] != "OTHER_RTU" {
		t.Fatalf("sheets = %v", sheets)
	}
	got, err := f.GetCellValue("BUSB1_RTU", "A1")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if got != "GenericPointAddress" {
		t.Errorf("A1 = %q, want the header", got)
	}
	got, err = f.GetCellValue("BUSB1_RTU", "A2")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if got != "[(BUSB1:12):3:6- SD]" {
		t.Errorf("A2 = %q", got)
	}
	got, err = f.GetCellValue("BUSB1_RTU", "A3")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if got != "" {
		t.Errorf("A3 = %q, want empty for a null cell", got)
	}
}

func TestBuildWorkbookRejectsEmpty(t *testing.T) {
	if _, err := BuildWorkbook(nil); err == nil {
		t.Error("expected error for no sheets")
	}
}

func TestSheetName(t *testing.T) {
	cases := map[string]string{
		"BUSB1_RTU":  "BUSB1_RTU",
		"[(B:12)]":   "(B12)",
		"":           "RTU",
		"AAAAAAAAAABBBBBBBBBBCCCCCCCCCCDD": "AAAAAAAAAABBBBBBBBBBCCCCCCCCCCD",
	}
	for in, want := range cases {
		if got := sheetName(in); got != want {
			t.Errorf("sheetName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildDefectPDF(t *testing.T) {
	raw, err := BuildDefectPDF("rtu:BUSB1", 120, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), []RuleSummary{
		{Name: "Report1", Title: "Missing Analog Components", Matches: 3},
		{Name: "ReportANY", Title: "Any Defect", Matches: 7},
	})
	if err != nil {
		t.Fatalf("BuildDefectPDF: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte("%PDF")) {
		t.Error("output should be a PDF document")
	}
}
