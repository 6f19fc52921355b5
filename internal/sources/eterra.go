package sources

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"scada-recon/internal/addressing"
)

// Workbook tab names in the eTerra export.
const (
	TabPoint    = "POINT"
	TabAnalog   = "ANALOG"
	TabControl  = "CTRL"
	TabSetpoint = "SETPNT"
)

// PointRow is one cleaned record from the POINT or ANALOG tab, reduced to
// the columns both tabs share plus the optional review annotations.
type PointRow struct {
	ETerraKey    string
	Alias        string
	Sub          string
	DeviceType   string
	DeviceID     string
	DeviceName   string
	PointID      string
	PointName    string
	Zone         string
	RTU          string
	RTUAddress   string
	Card         string
	Word         string
	CASDU        string
	IOA          string
	IOA1         string
	IOA2         string
	Size         string
	Protocol     string
	Controllable string
	RTUID        string
	Address      string
	Type         addressing.GenericType

	// Review annotations, present only on annotated exports.
	IgnoreRTU     bool
	IgnorePoint   bool
	OldData       bool
	POAliasExists *bool
	POAliasLinked *int
}

// ControlRow is one cleaned record from the CTRL or SETPNT tab.
type ControlRow struct {
	ETerraKey  string
	Alias      string
	Sub        string
	DeviceType string
	DeviceID   string
	DeviceName string
	PointID    string
	ControlID  string
	RTU        string
	RTUAddress string
	Card       string
	Word       string
	CASDU      string
	CtrlFunc   string
	Protocol   string
	RTUID      string
	Address    string
	Type       addressing.GenericType
}

// SpuriousPoint reports whether an eTerra record is one of the spurious
// placeholder points that never reach PowerOn and must be skipped.
func SpuriousPoint(pointName, deviceType, deviceID string) bool {
	if strings.Contains(pointName, "SPURIOUS ALARM") {
		return true
	}
	if strings.Contains(deviceID, "SPURIOUS") {
		return true
	}
	return deviceType == "UNUSED" && deviceID == "SPURIOUS"
}

// TapsControllable derives the Controllable flag for analog records. Only
// tap position measurands are controllable.
func TapsControllable(pointID string) string {
	if pointID == "TCP" {
		return "1"
	}
	return "0"
}

func parseFlag(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "1", "TRUE", "Y", "YES":
		return true
	}
	return false
}

// annotations fills the optional review columns when the export carries them.
func annotations(t *table, i int, p *PointRow) {
	if t.has("IGNORE_RTU") {
		p.IgnoreRTU = parseFlag(t.get(i, "IGNORE_RTU"))
	}
	if t.has("IGNORE_POINT") {
		p.IgnorePoint = parseFlag(t.get(i, "IGNORE_POINT"))
	}
	if t.has("OLD_DATA") {
		p.OldData = parseFlag(t.get(i, "OLD_DATA"))
	}
	if t.has("PowerOn Alias Exists") {
		v := parseFlag(t.get(i, "PowerOn Alias Exists"))
		p.POAliasExists = &v
	}
	if t.has("PowerOn Alias Linked to SCADA") {
		if n, err := strconv.Atoi(t.get(i, "PowerOn Alias Linked to SCADA")); err == nil {
			p.POAliasLinked = &n
		}
	}
}

// ImportPointTab reads and cleans the POINT tab of the eTerra export.
// Dummy points are kept; spurious points are dropped.
func ImportPointTab(path string, logger *log.Logger) ([]PointRow, error) {
	t, err := readSheet(path, TabPoint)
	if err != nil {
		return nil, err
	}
	rows := make([]PointRow, 0, t.len())
	for i := 0; i < t.len(); i++ {
		if SpuriousPoint(t.get(i, "point_name"), t.get(i, "devtyp"), t.get(i, "device_id")) {
			continue
		}
		p := PointRow{
			ETerraKey:    t.get(i, "eTerraKey"),
			Sub:          t.get(i, "sub"),
			DeviceType:   t.get(i, "devtyp"),
			DeviceID:     t.get(i, "device_id"),
			DeviceName:   t.get(i, "device_name"),
			PointID:      t.get(i, "point_id"),
			PointName:    t.get(i, "point_name"),
			Zone:         t.get(i, "area"),
			RTU:          t.get(i, "rtu"),
			RTUAddress:   t.get(i, "rtu_address"),
			Card:         t.get(i, "card"),
			Word:         t.get(i, "phyadr"),
			CASDU:        t.get(i, "address1"),
			Protocol:     t.get(i, "protocol"),
			Controllable: t.get(i, "ctrlable"),
		}
		p.Size = pointSize(t.get(i, "concat_conect"))
		p.Type = pointGenericType(p.Card, p.CASDU, p.Size)
		finishPointRow(&p, logger)
		annotations(t, i, &p)
		rows = append(rows, p)
	}
	return rows, nil
}

// ImportAnalogTab reads and cleans the ANALOG tab. Analogs are always
// GenericType A; dummy rows are dropped.
func ImportAnalogTab(path string, logger *log.Logger) ([]PointRow, error) {
	t, err := readSheet(path, TabAnalog)
	if err != nil {
		return nil, err
	}
	rows := make([]PointRow, 0, t.len())
	for i := 0; i < t.len(); i++ {
		card, casdu := t.get(i, "card"), t.get(i, "address1")
		if addressing.IsDummyPoint(card, casdu) {
			continue
		}
		if SpuriousPoint("", t.get(i, "devtyp"), t.get(i, "device_id")) {
			continue
		}
		p := PointRow{
			ETerraKey:  t.get(i, "eTerraKey"),
			Sub:        t.get(i, "sub"),
			DeviceType: t.get(i, "devtyp"),
			DeviceID:   t.get(i, "device_id"),
			DeviceName: t.get(i, "device_name"),
			PointID:    t.get(i, "analog_id"),
			Zone:       t.get(i, "area"),
			RTU:        t.get(i, "rtu"),
			RTUAddress: t.get(i, "rtu_address"),
			Card:       card,
			Word:       t.get(i, "word"),
			CASDU:      casdu,
			Protocol:   t.get(i, "protocol"),
			Type:       addressing.TypeAnalog,
		}
		p.Controllable = TapsControllable(p.PointID)
		finishPointRow(&p, logger)
		annotations(t, i, &p)
		rows = append(rows, p)
	}
	return rows, nil
}

// ImportControlTab reads and cleans the CTRL tab.
func ImportControlTab(path string, logger *log.Logger) ([]ControlRow, error) {
	t, err := readSheet(path, TabControl)
	if err != nil {
		return nil, err
	}
	rows := make([]ControlRow, 0, t.len())
	for i := 0; i < t.len(); i++ {
		if SpuriousPoint("", t.get(i, "devtyp"), t.get(i, "device_id")) {
			continue
		}
		c := ControlRow{
			ETerraKey:  t.get(i, "eTerraKey"),
			Sub:        t.get(i, "sub"),
			DeviceType: t.get(i, "devtyp"),
			DeviceID:   t.get(i, "device_id"),
			DeviceName: t.get(i, "device_name"),
			PointID:    t.get(i, "point_id"),
			ControlID:  t.get(i, "control_id"),
			RTU:        t.get(i, "rtu"),
			RTUAddress: t.get(i, "rtu_address"),
			Card:       t.get(i, "card"),
			Word:       t.get(i, "phyadr"),
			CASDU:      t.get(i, "address"),
			CtrlFunc:   t.get(i, "ctrlfunc"),
			Protocol:   t.get(i, "protocol"),
			Type:       addressing.TypeControl,
		}
		finishControlRow(&c, logger)
		rows = append(rows, c)
	}
	return rows, nil
}

// ImportSetpointTab reads and cleans the SETPNT tab. Setpoints only exist on
// IEC RTUs; Card and Word carry the two IOA halves.
func ImportSetpointTab(path string, logger *log.Logger) ([]ControlRow, error) {
	t, err := readSheet(path, TabSetpoint)
	if err != nil {
		return nil, err
	}
	rows := make([]ControlRow, 0, t.len())
	for i := 0; i < t.len(); i++ {
		if SpuriousPoint("", t.get(i, "devtyp"), t.get(i, "device_id")) {
			continue
		}
		c := ControlRow{
			ETerraKey:  t.get(i, "eTerraKey"),
			Sub:        t.get(i, "sub"),
			DeviceType: t.get(i, "devtyp"),
			DeviceID:   t.get(i, "device_id"),
			DeviceName: t.get(i, "device_name"),
			PointID:    t.get(i, "analog_id"),
			RTU:        t.get(i, "rtu"),
			RTUAddress: t.get(i, "rtu_address"),
			Card:       t.get(i, "card"),
			Word:       t.get(i, "phyadr"),
			CASDU:      t.get(i, "address1"),
			CtrlFunc:   t.get(i, "mdlparm2"),
			Protocol:   t.get(i, "protocol"),
			Type:       addressing.TypeSetpoint,
		}
		finishControlRow(&c, logger)
		rows = append(rows, c)
	}
	return rows, nil
}

func pointSize(concatConect string) string {
	switch strings.TrimSpace(concatConect) {
	case "0":
		return "1"
	case "1":
		return "2"
	}
	return strings.TrimSpace(concatConect)
}

func pointGenericType(card, casdu, size string) addressing.GenericType {
	if addressing.IsDummyPoint(card, casdu) {
		return addressing.TypeDummy
	}
	switch size {
	case "1":
		return addressing.TypeSingleDigital
	case "2":
		return addressing.TypeDoubleDigital
	}
	return addressing.TypeUnknown
}

func finishPointRow(p *PointRow, logger *log.Logger) {
	p.Alias = addressing.Alias(p.Sub, p.DeviceType, p.DeviceID, p.PointID)
	p.RTUID = addressing.RTUID(p.RTU, p.RTUAddress)
	d := addressing.Derive(addressing.PointFields{
		RTU: p.RTU, RTUAddress: p.RTUAddress, Protocol: p.Protocol,
		Card: p.Card, Word: p.Word, CASDU: p.CASDU, Type: p.Type,
	}, logger)
	p.CASDU, p.IOA, p.IOA1, p.IOA2, p.Address = d.CASDU, d.IOA, d.IOA1, d.IOA2, d.Address
}

func finishControlRow(c *ControlRow, logger *log.Logger) {
	c.Alias = addressing.Alias(c.Sub, c.DeviceType, c.DeviceID, c.PointID)
	c.RTUID = addressing.RTUID(c.RTU, c.RTUAddress)
	d := addressing.Derive(addressing.PointFields{
		RTU: c.RTU, RTUAddress: c.RTUAddress, Protocol: c.Protocol,
		Card: c.Card, Word: c.Word, CASDU: c.CASDU, CtrlFunc: c.CtrlFunc, Type: c.Type,
	}, logger)
	c.CASDU, c.Address = d.CASDU, d.Address
}

// RTUInfo is one entry of the RTU map derived from the point tab.
type RTUInfo struct {
	Address  string
	Protocol string
}

// RTUMap resolves eTerra RTU names to their address and protocol.
type RTUMap map[string]RTUInfo

// BuildRTUMap collects the distinct (RTU, RTUAddress, Protocol) triples from
// the point tab.
func BuildRTUMap(points []PointRow) (RTUMap, error) {
	m := make(RTUMap, 64)
	for _, p := range points {
		if p.RTU == "" {
			continue
		}
		info := RTUInfo{Address: p.RTUAddress, Protocol: p.Protocol}
		if prev, ok := m[p.RTU]; ok && prev != info {
			return nil, fmt.Errorf("sources: RTU %s maps to both %v and %v", p.RTU, prev, info)
		}
		m[p.RTU] = info
	}
	return m, nil
}

// ResolvePowerOnName looks up a PowerOn-side RTU name, which carries an
// "_RTU" suffix the eTerra side does not.
func (m RTUMap) ResolvePowerOnName(poName string) (name string, info RTUInfo, ok bool) {
	name = strings.TrimSuffix(poName, "_RTU")
	info, ok = m[name]
	return name, info, ok
}
