package recon

import (
	"errors"
	"io"
	"log"
	"testing"

	"scada-recon/internal/addressing"
	"scada-recon/internal/sources"
)

func mergeEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(nil, log.New(io.Discard, "", 0), opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func digitalPoint(sub, devID, pointID, rtu, rtuAddr, card, word string) sources.PointRow {
	p := sources.PointRow{
		Sub: sub, DeviceType: "CB", DeviceID: devID, PointID: pointID,
		RTU: rtu, RTUAddress: rtuAddr, Card: card, Word: word,
		Protocol: addressing.ProtocolMK2A, Controllable: "0",
		Type: addressing.TypeSingleDigital,
	}
	finish(&p)
	return p
}

func analogPoint(sub, devID, pointID, rtu, rtuAddr, card, word string) sources.PointRow {
	p := sources.PointRow{
		Sub: sub, DeviceType: "TX", DeviceID: devID, PointID: pointID,
		RTU: rtu, RTUAddress: rtuAddr, Card: card, Word: word,
		Protocol: addressing.ProtocolMK2A,
		Type:     addressing.TypeAnalog,
	}
	p.Controllable = sources.TapsControllable(pointID)
	finish(&p)
	return p
}

func finish(p *sources.PointRow) {
	p.Alias = addressing.Alias(p.Sub, p.DeviceType, p.DeviceID, p.PointID)
	p.RTUID = addressing.RTUID(p.RTU, p.RTUAddress)
	d := addressing.Derive(addressing.PointFields{
		RTU: p.RTU, RTUAddress: p.RTUAddress, Protocol: p.Protocol,
		Card: p.Card, Word: p.Word, Type: p.Type,
	}, nil)
	p.Address = d.Address
}

func control(sub, devType, devID, pointID, ctrlID, rtu, rtuAddr, card, word, ctrlFunc string) sources.ControlRow {
	c := sources.ControlRow{
		Sub: sub, DeviceType: devType, DeviceID: devID, PointID: pointID,
		ControlID: ctrlID, RTU: rtu, RTUAddress: rtuAddr,
		Card: card, Word: word, CtrlFunc: ctrlFunc,
		Protocol: addressing.ProtocolMK2A, Type: addressing.TypeControl,
	}
	c.Alias = addressing.Alias(sub, devType, devID, pointID)
	c.RTUID = addressing.RTUID(rtu, rtuAddr)
	d := addressing.Derive(addressing.PointFields{
		RTU: rtu, RTUAddress: rtuAddr, Protocol: c.Protocol,
		Card: card, Word: word, CtrlFunc: ctrlFunc, Type: c.Type,
	}, nil)
	c.Address = d.Address
	return c
}

func cell(t *testing.T, tbl *Table, row int, col string) Value {
	t.Helper()
	v, err := tbl.At(row, col)
	if err != nil {
		t.Fatalf("At(%d, %s): %v", row, col, err)
	}
	return v
}

func rowByAlias(t *testing.T, tbl *Table, alias string) int {
	t.Helper()
	for i := 0; i < tbl.Len(); i++ {
		if cell(t, tbl, i, ColAlias).Str() == alias {
			return i
		}
	}
	t.Fatalf("no row with alias %s", alias)
	return -1
}

func TestMergeBasic(t *testing.T) {
	p1 := digitalPoint("SUB1", "CB1", "SWCL", "BUSB1", "12", "3", "6")
	p2 := digitalPoint("SUB1", "CB2", "SWCL", "BUSB1", "12", "3", "7")
	a1 := analogPoint("SUB1", "T1", "MW", "BUSB1", "12", "5", "2")
	in := Inputs{
		Points:  []sources.PointRow{p2, p1},
		Analogs: []sources.PointRow{a1},
		Inventory: []sources.InventoryRow{
			{Address: p1.Address, POAlias: "PO/" + p1.Alias, ConfigHealth: "GOOD", ScanInputRef: "SI 1"},
			{Address: a1.Address, POAlias: "PO/" + a1.Alias, ConfigHealth: "GOOD"},
		},
		Compare: []sources.CompareRow{{Address: p1.Address, Status: "Matched", Key: "K1"}},
	}

	tbl, err := mergeEngine(t).Merge(in, Scope{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if tbl.Len() != 3 {
		t.Fatalf("merged %d rows, want 3", tbl.Len())
	}

	// Sorted by generic address.
	prev := cell(t, tbl, 0, ColAddress)
	for i := 1; i < tbl.Len(); i++ {
		cur := cell(t, tbl, i, ColAddress)
		if cur.Less(prev) {
			t.Errorf("row %d out of address order", i)
		}
		prev = cur
	}

	i1 := rowByAlias(t, tbl, p1.Alias)
	if got := cell(t, tbl, i1, ColPOAlias).Str(); got != "PO/"+p1.Alias {
		t.Errorf("POAlias = %q", got)
	}
	if !cell(t, tbl, i1, ColPOAliasExists).True() {
		t.Error("matched point should have PowerOn alias")
	}
	if n, _ := cell(t, tbl, i1, ColPOAliasLinked).Num(); n != 2 {
		t.Errorf("linked = %v, want 2 for a row with a scan input ref", n)
	}
	if got := cell(t, tbl, i1, ColCompareStatus).Str(); got != "Matched" {
		t.Errorf("HbddeCompareStatus = %q", got)
	}

	i2 := rowByAlias(t, tbl, p2.Alias)
	if cell(t, tbl, i2, ColPOAliasExists).True() {
		t.Error("unmatched point should not have PowerOn alias")
	}
	if !cell(t, tbl, i2, ColPOAlias).IsNull() {
		t.Error("unmatched point should have null PO columns")
	}
	if n, _ := cell(t, tbl, i2, ColNumAlarms).Num(); n != 0 {
		t.Errorf("NumAlarms = %v, want 0", n)
	}
	if n, _ := cell(t, tbl, i2, ColNumControls).Num(); n != 0 {
		t.Errorf("NumControls = %v, want 0", n)
	}
	if !cell(t, tbl, i2, ColPctAlarmsMatched).IsNull() {
		t.Error("alarm percentage should stay null with no alarms")
	}
	if got := cell(t, tbl, i2, ColType).Str(); got != "SD" {
		t.Errorf("Type = %q, want SD", got)
	}
	if cell(t, tbl, i2, ColIgnore).True() {
		t.Error("Ignore should be false without annotations")
	}
}

func TestMergeDummyAndRTUCommsFlags(t *testing.T) {
	dummy := digitalPoint("SUB1", "CB9", "SWCL", "€€€€€€€€", "", "", "")
	dummy.Type = addressing.TypeSingleDigital
	comms := digitalPoint("SUB1", "BUSB1", "STAT", "BUSB1", "12", "1", "1")
	comms.DeviceType = "RTU"
	comms.Alias = addressing.Alias("SUB1", "RTU", "BUSB1", "STAT")
	in := Inputs{Points: []sources.PointRow{dummy, comms}}

	tbl, err := mergeEngine(t).Merge(in, Scope{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	id := rowByAlias(t, tbl, dummy.Alias)
	if got := cell(t, tbl, id, ColType).Str(); got != "DUMMY" {
		t.Errorf("sentinel RTU row Type = %q, want DUMMY", got)
	}
	ic := rowByAlias(t, tbl, comms.Alias)
	if !cell(t, tbl, ic, ColRTUComms).True() {
		t.Error("RTU device rows should flag RTUComms")
	}
	if cell(t, tbl, id, ColRTUComms).True() {
		t.Error("non-RTU device rows should not flag RTUComms")
	}
}

func TestMergeDuplicateInventoryFatal(t *testing.T) {
	p := digitalPoint("SUB1", "CB1", "SWCL", "BUSB1", "12", "3", "6")
	in := Inputs{
		Points: []sources.PointRow{p},
		Inventory: []sources.InventoryRow{
			{Address: p.Address, POAlias: "one"},
			{Address: p.Address, POAlias: "two"},
		},
	}
	_, err := mergeEngine(t).Merge(in, Scope{})
	if !errors.Is(err, ErrDuplicateAddress) {
		t.Fatalf("Merge error = %v, want ErrDuplicateAddress", err)
	}
}

func TestMergeDuplicateCompareKeepsFirst(t *testing.T) {
	p := digitalPoint("SUB1", "CB1", "SWCL", "BUSB1", "12", "3", "6")
	in := Inputs{
		Points: []sources.PointRow{p},
		Compare: []sources.CompareRow{
			{Address: p.Address, Status: "Matched"},
			{Address: p.Address, Status: "notinPO"},
		},
	}
	tbl, err := mergeEngine(t).Merge(in, Scope{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := cell(t, tbl, 0, ColCompareStatus).Str(); got != "Matched" {
		t.Errorf("HbddeCompareStatus = %q, want the first record", got)
	}
}

func TestMergeOrphanControlSynthesis(t *testing.T) {
	p := digitalPoint("SUB1", "CB1", "SWCL", "BUSB1", "12", "3", "6")
	orphan := control("SUB1", "CB", "CB2", "SWCL", "OPEN", "BUSB1", "12", "3", "8", "1")
	in := Inputs{
		Points:   []sources.PointRow{p},
		Controls: []sources.ControlRow{orphan},
	}
	tbl, err := mergeEngine(t).Merge(in, Scope{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("merged %d rows, want point plus placeholder", tbl.Len())
	}
	i := rowByAlias(t, tbl, orphan.Alias)
	if !cell(t, tbl, i, ColAddress).IsNull() {
		t.Error("placeholder has no physical address")
	}
	if got := cell(t, tbl, i, ColGenericType).Str(); got != "DUMMY" {
		t.Errorf("placeholder GenericType = %q, want DUMMY", got)
	}
	if got := cell(t, tbl, i, CtrlCol(1, CtrlAddr)).Str(); got != orphan.Address {
		t.Errorf("Ctrl1Addr = %q, want %q", got, orphan.Address)
	}
	if got := cell(t, tbl, i, CtrlCol(1, CtrlName)).Str(); got != "OPEN" {
		t.Errorf("Ctrl1Name = %q, want OPEN", got)
	}
}

func TestMergeControlSlotCardinality(t *testing.T) {
	p := digitalPoint("SUB1", "CB1", "SWCL", "BUSB1", "12", "3", "6")
	p.Controllable = "1"
	mk := func(ctrlID, word string) sources.ControlRow {
		return control("SUB1", "CB", "CB1", "SWCL", ctrlID, "BUSB1", "12", "3", word, "1")
	}
	in := Inputs{
		Points:   []sources.PointRow{p},
		Controls: []sources.ControlRow{mk("OPEN", "10"), mk("CLOSE", "11"), mk("TRIP", "12")},
	}
	tbl, err := mergeEngine(t).Merge(in, Scope{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	i := rowByAlias(t, tbl, p.Alias)
	if got := cell(t, tbl, i, CtrlCol(1, CtrlName)).Str(); got != "OPEN" {
		t.Errorf("Ctrl1Name = %q, want OPEN", got)
	}
	if got := cell(t, tbl, i, CtrlCol(2, CtrlName)).Str(); got != "CLOSE" {
		t.Errorf("Ctrl2Name = %q, want CLOSE", got)
	}
	if n, _ := cell(t, tbl, i, ColNumControls).Num(); n != 2 {
		t.Errorf("NumControls = %v, want 2 after truncation", n)
	}
}

func TestMergeTapChangerControls(t *testing.T) {
	tap := analogPoint("SUB1", "T1", "TCP", "BUSB1", "12", "5", "2")
	raise := control("SUB1", "TX", "T1", "TAP", "RAISE", "BUSB1", "12", "3", "10", "1")
	lower := control("SUB1", "TX", "T1", "TAP", "LOWER", "BUSB1", "12", "3", "11", "1")
	sp := control("SUB1", "TX", "T1", "TCP", "", "BUSB1", "12", "5", "2", "")
	sp.Type = addressing.TypeSetpoint
	sp.Address = "[(BUSB1:12):5:2-2 C]"

	in := Inputs{
		Analogs:   []sources.PointRow{tap},
		Controls:  []sources.ControlRow{raise, lower},
		Setpoints: []sources.ControlRow{sp},
	}
	tbl, err := mergeEngine(t).Merge(in, Scope{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	i := rowByAlias(t, tbl, tap.Alias)
	if got := cell(t, tbl, i, CtrlCol(1, CtrlName)).Str(); got != "SETPOINT" {
		t.Errorf("Ctrl1Name = %q, want the setpoint in slot 1", got)
	}
	if got := cell(t, tbl, i, CtrlCol(1, CtrlAddr)).Str(); got != sp.Address {
		t.Errorf("Ctrl1Addr = %q, want %q", got, sp.Address)
	}
	if got := cell(t, tbl, i, CtrlCol(2, CtrlName)).Str(); got != "LOWER" {
		t.Errorf("Ctrl2Name = %q, want the second tap control kept", got)
	}
}

func TestMergeAlarmAttachment(t *testing.T) {
	p := digitalPoint("SUB1", "CB1", "SWCL", "BUSB1", "12", "3", "6")
	mk := func(token int, status string, match bool) sources.AlarmRow {
		return sources.AlarmRow{
			ETerraAlias: p.Alias, POAlias: "PO/" + p.Alias, Token: token,
			ETerraMessage: "E", POMessage: "P",
			POStatus: status, PORef: "R1", MessageMatch: match, ZoneMatch: true,
		}
	}
	in := Inputs{
		Points: []sources.PointRow{p},
		Alarms: []sources.AlarmRow{
			mk(0, "Alarm Missing", false),
			mk(1, "Alarm Missing", false),
			mk(2, "Matched", true),
			mk(3, "Alarm Missing", false),
			mk(4, "Alarm Missing", false),
		},
	}
	tbl, err := mergeEngine(t).Merge(in, Scope{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	i := rowByAlias(t, tbl, p.Alias)
	if n, _ := cell(t, tbl, i, ColNumAlarms).Num(); n != 5 {
		t.Errorf("NumAlarms = %v, want 5", n)
	}
	if n, _ := cell(t, tbl, i, ColNumAlarmsMatched).Num(); n != 1 {
		t.Errorf("NumAlarmsMatched = %v, want 1", n)
	}
	if n, _ := cell(t, tbl, i, ColPctAlarmsMatched).Num(); n != 20 {
		t.Errorf("PercentAlarmsMatched = %v, want 20", n)
	}
	// Matched events sort to the head of the group, so the point-level
	// status reflects the match.
	if got := cell(t, tbl, i, ColAlarmPOStatus).Str(); got != "Matched" {
		t.Errorf("CompAlarmPOStatus = %q, want Matched", got)
	}
	for tok := 0; tok < AlarmSlots; tok++ {
		if cell(t, tbl, i, AlarmCol(tok, AlarmETerraMessage)).IsNull() {
			t.Errorf("token %d slot should be populated", tok)
		}
	}
	if !cell(t, tbl, i, AlarmCol(2, AlarmMessageMatch)).True() {
		t.Error("token 2 slot should carry the match")
	}
}

func TestMergeAlarmDuplicateTokenKeepsLast(t *testing.T) {
	p := digitalPoint("SUB1", "CB1", "SWCL", "BUSB1", "12", "3", "6")
	stale := sources.AlarmRow{
		ETerraAlias: p.Alias, POAlias: "PO/" + p.Alias, Token: 0,
		ETerraMessage: "OPEN", POMessage: "stale", POStatus: "Alarm Missing",
	}
	fresh := stale
	fresh.POMessage = "OPEN"
	fresh.POStatus = "Matched"
	fresh.MessageMatch = true
	in := Inputs{
		Points: []sources.PointRow{p},
		Alarms: []sources.AlarmRow{stale, fresh},
	}
	tbl, err := mergeEngine(t).Merge(in, Scope{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	i := rowByAlias(t, tbl, p.Alias)
	if n, _ := cell(t, tbl, i, ColNumAlarms).Num(); n != 1 {
		t.Errorf("NumAlarms = %v, want 1 after token dedupe", n)
	}
	if got := cell(t, tbl, i, AlarmCol(0, AlarmPOMessage)).Str(); got != "OPEN" {
		t.Errorf("Alarm0_POMessage = %q, want the later event kept", got)
	}
	if !cell(t, tbl, i, AlarmCol(0, AlarmMessageMatch)).True() {
		t.Error("token 0 slot should carry the later event's match")
	}
	if got := cell(t, tbl, i, ColAlarmPOStatus).Str(); got != "Matched" {
		t.Errorf("CompAlarmPOStatus = %q, want Matched", got)
	}
}

func TestMergeCommissioningAndAutoTest(t *testing.T) {
	p := digitalPoint("SUB1", "CB1", "SWCL", "BUSB1", "12", "3", "6")
	p.Controllable = "1"
	c := control("SUB1", "CB", "CB1", "SWCL", "OPEN", "BUSB1", "12", "3", "10", "1")
	comm := func(test string) sources.CommissioningRow {
		return sources.CommissioningRow{ControlAddress: c.Address, TestName: test, Result: "OK"}
	}
	in := Inputs{
		Points:   []sources.PointRow{p},
		Controls: []sources.ControlRow{c},
		Commissioning: []sources.CommissioningRow{
			comm(sources.TestVisualCheck), comm(sources.TestControlSent), comm(sources.TestActionVerified),
		},
		AutoTests: []sources.AutoTestRow{{Address: c.Address, Status: "COMPLETE", Result: "OK"}},
	}
	tbl, err := mergeEngine(t).Merge(in, Scope{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	i := rowByAlias(t, tbl, p.Alias)
	for _, f := range []string{CtrlVisualCheck, CtrlControlSent, CtrlActionVerified} {
		if got := cell(t, tbl, i, CtrlCol(1, f)).Str(); got != "OK" {
			t.Errorf("Ctrl1%s = %q, want OK", f, got)
		}
	}
	if got := cell(t, tbl, i, CtrlCol(1, CtrlTestResult)).Str(); got != "OK" {
		t.Errorf("Ctrl1TestResult = %q, want OK", got)
	}
	if n, _ := cell(t, tbl, i, ColNumControlsOk).Num(); n != 1 {
		t.Errorf("NumControlsCommissionOk = %v, want 1", n)
	}
	if n, _ := cell(t, tbl, i, ColNumControlsAllOk).Num(); n != 1 {
		t.Errorf("NumControlsAllCommissionOk = %v, want 1", n)
	}
	if n, _ := cell(t, tbl, i, ColPctControlsOk).Num(); n != 100 {
		t.Errorf("PercentControlsCommissionOk = %v, want 100", n)
	}
}

func TestMergeScopeRTU(t *testing.T) {
	pa := digitalPoint("SUB1", "CB1", "SWCL", "BUSB1", "12", "3", "6")
	pb := digitalPoint("SUB2", "CB1", "SWCL", "OTHER", "9", "3", "6")
	orphan := control("SUB2", "CB", "CB3", "SWCL", "OPEN", "OTHER", "9", "3", "8", "1")
	in := Inputs{
		Points:   []sources.PointRow{pa, pb},
		Controls: []sources.ControlRow{orphan},
	}
	tbl, err := mergeEngine(t).Merge(in, Scope{RTU: "BUSB1"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if tbl.Len() != 1 {
		t.Fatalf("scoped merge has %d rows, want 1", tbl.Len())
	}
	if got := cell(t, tbl, 0, ColRTU).Str(); got != "BUSB1" {
		t.Errorf("RTU = %q", got)
	}
}

func TestScopeKey(t *testing.T) {
	cases := []struct {
		s    Scope
		want string
	}{
		{Scope{}, "all"},
		{Scope{RTU: "BUSB1"}, "rtu:BUSB1"},
		{Scope{Substation: "SUB1"}, "sub:SUB1"},
		{Scope{RTU: "BUSB1", Substation: "SUB1"}, "rtu:BUSB1"},
	}
	for _, tc := range cases {
		if got := tc.s.Key(); got != tc.want {
			t.Errorf("Key(%+v) = %q, want %q", tc.s, got, tc.want)
		}
	}
}

func TestMergeIdempotent(t *testing.T) {
	p := digitalPoint("SUB1", "CB1", "SWCL", "BUSB1", "12", "3", "6")
	p.Controllable = "1"
	c := control("SUB1", "CB", "CB1", "SWCL", "OPEN", "BUSB1", "12", "3", "10", "1")
	in := Inputs{
		Points:    []sources.PointRow{p},
		Controls:  []sources.ControlRow{c},
		Inventory: []sources.InventoryRow{{Address: p.Address, POAlias: "PO/" + p.Alias}},
		Alarms:    []sources.AlarmRow{{ETerraAlias: p.Alias, Token: 0, POStatus: "Matched", MessageMatch: true}},
	}
	e := mergeEngine(t)
	first, err := e.Merge(in, Scope{})
	if err != nil {
		t.Fatalf("first Merge: %v", err)
	}
	second, err := e.Merge(in, Scope{})
	if err != nil {
		t.Fatalf("second Merge: %v", err)
	}
	if !first.Equal(second) {
		t.Error("merging the same inputs twice should produce identical tables")
	}
}

func TestMergeStageObserver(t *testing.T) {
	stages := map[string]int{}
	e := mergeEngine(t, WithStageObserver(func(stage string, rows int) { stages[stage] = rows }))
	p := digitalPoint("SUB1", "CB1", "SWCL", "BUSB1", "12", "3", "6")
	if _, err := e.Merge(Inputs{Points: []sources.PointRow{p}}, Scope{}); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(stages) < 7 {
		t.Errorf("observer saw %d stages, want one per pipeline step", len(stages))
	}
}
