package sources

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"scada-recon/internal/addressing"
)

// InventoryRow is one cleaned record from the PowerOn all-RTUs extract.
type InventoryRow struct {
	Protocol       string
	PORTU          string
	RTU            string
	RTUAddress     string
	Card           string
	Word           string
	IOA1           string
	IOA2           string
	Offset         string
	POAlias        string
	POName         string
	ControlID      string
	ConfigInfo     string
	ConfigHealth   string
	PODescription  string
	POType         string
	ScanInputRow   string
	Shift          string
	ScanInputRef   string
	UserTag        string
	Size           string
	Interpretation string
	Menu           string
	Symbol         string
	TCAction       string
	ETerraAlias    string
	Type           addressing.GenericType
	Address        string
}

// normInt collapses float-formatted integers ("2000.0") back to their
// integer text. Anything else passes through untouched.
func normInt(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}

// ImportInventory reads and cleans the PowerOn all-RTUs CSV. Excluded RTU
// names (without the _RTU suffix) are dropped, and IEC rows sharing a
// (RTU, Card, Word) triple are resolved by record type keeping the last.
func ImportInventory(path string, excludedRTUs []string, logger *log.Logger) ([]InventoryRow, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	excluded := make(map[string]bool, len(excludedRTUs))
	for _, name := range excludedRTUs {
		excluded[strings.TrimSuffix(name, "_RTU")] = true
	}

	rows := make([]InventoryRow, 0, t.len())
	for i := 0; i < t.len(); i++ {
		r := InventoryRow{
			Protocol:       t.get(i, "Protocol"),
			PORTU:          t.get(i, "RTU"),
			RTUAddress:     normInt(t.get(i, "RTU Address")),
			Card:           normInt(t.get(i, "addr1")),
			Word:           normInt(t.get(i, "addr2")),
			POAlias:        t.get(i, "comp_alias"),
			POName:         t.get(i, "comp_name"),
			ControlID:      t.get(i, "control_val"),
			ConfigInfo:     t.get(i, "config_extra_info"),
			ConfigHealth:   t.get(i, "config_health"),
			PODescription:  t.get(i, "desc"),
			POType:         t.get(i, "recordType"),
			ScanInputRow:   t.get(i, "scan_row"),
			Shift:          normInt(t.get(i, "shift")),
			ScanInputRef:   t.get(i, "siref1"),
			UserTag:        t.get(i, "user_tag"),
			Size:           normInt(t.get(i, "size")),
			Interpretation: t.get(i, "interpretation"),
			Menu:           t.get(i, "symbol_menu"),
			Symbol:         t.get(i, "symbol_name"),
			TCAction:       t.get(i, "telecontrol_action"),
		}
		r.RTU = strings.TrimSuffix(r.PORTU, "_RTU")
		if excluded[r.RTU] {
			continue
		}
		r.Type = addressing.GenericTypeFromPOType(r.POType)
		r.ETerraAlias = addressing.Alias(
			t.get(i, "eterra_sub"), t.get(i, "eterra_dev_type"),
			t.get(i, "eterra_dev_id"), t.get(i, "eterra_point_id"))
		deriveInventoryAddress(&r, logger)
		rows = append(rows, r)
	}

	return dedupeIEC(rows, logger), nil
}

// deriveInventoryAddress fills the IOA halves, the scan offset and the
// PowerOn-side generic address for one row.
func deriveInventoryAddress(r *InventoryRow, logger *log.Logger) {
	rtuID := addressing.RTUID(r.RTU, r.RTUAddress)

	ctrl := ""
	if r.ControlID != "" {
		ctrl = addressing.ControlFunctionTag(r.ControlID, r.Type)
	}

	if r.Protocol == addressing.ProtocolIEC101 {
		ioa, err := strconv.Atoi(r.Word)
		if err != nil {
			if logger != nil {
				logger.Printf("sources: inventory IOA is not an integer r%s:c%s:w%s", r.PORTU, r.Card, r.Word)
			}
		} else {
			ioa1, ioa2 := addressing.SplitIOA(ioa)
			r.IOA1, r.IOA2 = strconv.Itoa(ioa1), strconv.Itoa(ioa2)
		}
		r.Offset = r.Word
		r.Address = fmt.Sprintf("[%s:%s:%s-%s %s]", rtuID, r.Card, r.Word, ctrl, r.Type.TypeTag())
		return
	}

	offset, ok := addressing.ScanOffset(r.Protocol, r.POType, r.Word, r.Shift)
	if !ok {
		if logger != nil {
			logger.Printf("sources: inventory offset fields not integers r%s:c%s:w%s:b%s:s%s",
				r.PORTU, r.Card, r.Word, r.Shift, r.Size)
		}
		return
	}
	r.Offset = offset
	r.Address = fmt.Sprintf("[%s:%s:%s-%s %s]", rtuID, r.Card, offset, ctrl, r.Type.TypeTag())
}

// dedupeIEC resolves IEC scan rows that share a physical address. The
// duplicates come from analog/double definitions over the same IOA; ordering
// by POType and keeping the last drops the analog.
func dedupeIEC(rows []InventoryRow, logger *log.Logger) []InventoryRow {
	type key struct{ rtu, card, word string }
	groups := make(map[key][]int)
	for i, r := range rows {
		if r.Protocol != addressing.ProtocolIEC101 || r.Type.IsControl() {
			continue
		}
		k := key{r.PORTU, r.Card, r.Word}
		groups[k] = append(groups[k], i)
	}

	drop := make(map[int]bool)
	for k, idx := range groups {
		if len(idx) < 2 {
			continue
		}
		if logger != nil {
			logger.Printf("sources: inventory duplicate IEC address %s:%s:%s (%d rows), resolving by record type",
				k.rtu, k.card, k.word, len(idx))
		}
		sort.SliceStable(idx, func(a, b int) bool { return rows[idx[a]].POType < rows[idx[b]].POType })
		for _, i := range idx[:len(idx)-1] {
			drop[i] = true
		}
	}
	if len(drop) == 0 {
		return rows
	}
	kept := rows[:0]
	for i, r := range rows {
		if !drop[i] {
			kept = append(kept, r)
		}
	}
	return kept
}
