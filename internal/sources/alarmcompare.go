package sources

import (
	"log"
	"strconv"
)

// SheetAlarmEvents is the tab of the alarm comparison workbook holding one
// row per compared alarm event.
const SheetAlarmEvents = "Event Detail"

// AlarmRow is one compared alarm event. Token is the state value the alarm
// fires for (0..3 on digitals); -1 when the extract carried no usable value.
type AlarmRow struct {
	ETerraAlias   string
	POAlias       string
	Token         int
	ETerraSub     string
	ETerraMessage string
	ETerraZone    string
	ETerraStatus  string
	POSub         string
	POMessage     string
	POZone        string
	POValue       string
	PORef         string
	POStatus      string
	MessageMatch  bool
	ZoneMatch     bool
}

// ImportAlarmCompare reads the Event Detail sheet of the alarm comparison
// workbook.
func ImportAlarmCompare(path string, logger *log.Logger) ([]AlarmRow, error) {
	t, err := readSheet(path, SheetAlarmEvents)
	if err != nil {
		return nil, err
	}
	rows := make([]AlarmRow, 0, t.len())
	for i := 0; i < t.len(); i++ {
		token := -1
		if n, err := strconv.Atoi(normInt(t.get(i, "Value"))); err == nil {
			token = n
		} else if logger != nil {
			logger.Printf("sources: alarm row %s has no usable token value %q", t.get(i, "eTerra Alias"), t.get(i, "Value"))
		}
		rows = append(rows, AlarmRow{
			ETerraAlias:   t.get(i, "eTerra Alias"),
			POAlias:       t.get(i, "PO Alias"),
			Token:         token,
			ETerraSub:     t.get(i, "eTerraSubstation"),
			ETerraMessage: t.get(i, "eTerraAlarmMessage"),
			ETerraZone:    t.get(i, "eTerraAlarmZone"),
			ETerraStatus:  t.get(i, "eTerraStatus"),
			POSub:         t.get(i, "POSubstation"),
			POMessage:     t.get(i, "POAlarmMessage"),
			POZone:        t.get(i, "POAlarmZone"),
			POValue:       t.get(i, "POAlarmValue"),
			PORef:         t.get(i, "POAlarmRef"),
			POStatus:      t.get(i, "POStatus"),
			MessageMatch:  parseFlag(t.get(i, "AlarmMessageMatch")),
			ZoneMatch:     parseFlag(t.get(i, "AlarmZoneMatch")),
		})
	}
	return rows, nil
}
