package sources

import (
	"fmt"
	"log"
	"strings"
)

// AutoTestRow is one automated control test outcome, keyed by the derived
// generic control address.
type AutoTestRow struct {
	RawAddress string
	Status     string
	Result     string
	Alias      string
	Attribute  string
	Action     string
	Address    string
}

// ImportAutoTest reads the automated control test CSV. The raw address is
// card:word:ctrlid against a PowerOn RTU name; the RTU map supplies the RTU
// address needed to build the canonical control address. Rows whose RTU
// cannot be resolved keep an empty address and never join.
func ImportAutoTest(path string, rtus RTUMap, logger *log.Logger) ([]AutoTestRow, error) {
	t, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	rows := make([]AutoTestRow, 0, t.len())
	for i := 0; i < t.len(); i++ {
		r := AutoTestRow{
			RawAddress: t.get(i, "control_address"),
			Status:     t.get(i, "control_status"),
			Result:     t.get(i, "control_result"),
			Alias:      t.get(i, "component_alias"),
			Attribute:  t.get(i, "control_attribute"),
			Action:     t.get(i, "telecontrol_action"),
		}
		parts := strings.Split(r.RawAddress, ":")
		if len(parts) != 3 {
			if logger != nil {
				logger.Printf("sources: auto test address %q is not card:word:ctrlid", r.RawAddress)
			}
			rows = append(rows, r)
			continue
		}
		name, info, ok := rtus.ResolvePowerOnName(t.get(i, "RTU"))
		if !ok {
			if logger != nil {
				logger.Printf("sources: auto test RTU %q not in RTU map", t.get(i, "RTU"))
			}
			rows = append(rows, r)
			continue
		}
		r.Address = fmt.Sprintf("[(%s:%s):%s:%s-%s C]", name, info.Address, parts[0], parts[1], parts[2])
		rows = append(rows, r)
	}
	return rows, nil
}
