package recon

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"scada-recon/internal/addressing"
	"scada-recon/internal/sources"
)

// ErrDuplicateAddress is returned when the PowerOn inventory carries two
// rows with the same generic point address. Proceeding would corrupt every
// downstream join, so the run must abort.
var ErrDuplicateAddress = errors.New("recon: duplicate GenericPointAddress in inventory")

// Scope restricts a run to one RTU or one substation. The zero Scope covers
// everything. When both are set the RTU wins.
type Scope struct {
	RTU        string
	Substation string
}

// Key is the cache key for this scope.
func (s Scope) Key() string {
	switch {
	case s.RTU != "":
		return "rtu:" + s.RTU
	case s.Substation != "":
		return "sub:" + s.Substation
	}
	return "all"
}

// Inputs carries the cleaned source extracts for one run.
type Inputs struct {
	Points        []sources.PointRow
	Analogs       []sources.PointRow
	Controls      []sources.ControlRow
	Setpoints     []sources.ControlRow
	Inventory     []sources.InventoryRow
	Compare       []sources.CompareRow
	Alarms        []sources.AlarmRow
	AutoTests     []sources.AutoTestRow
	Commissioning []sources.CommissioningRow
}

// Option configures an Engine.
type Option func(*Engine)

// WithStageObserver registers a callback invoked with the row count after
// each merge stage.
func WithStageObserver(fn func(stage string, rows int)) Option {
	return func(e *Engine) { e.observe = fn }
}

// Engine merges the source extracts into one denormalised table, one row
// per eTerra point.
type Engine struct {
	exceptions *ExceptionTable
	logger     *log.Logger
	observe    func(stage string, rows int)
}

// NewEngine creates a merge engine. A nil exception table means the built-in
// defaults.
func NewEngine(exceptions *ExceptionTable, logger *log.Logger, opts ...Option) (*Engine, error) {
	if logger == nil {
		return nil, errors.New("recon: logger is required")
	}
	if exceptions == nil {
		exceptions = DefaultExceptions()
	}
	e := &Engine{exceptions: exceptions, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) stage(name string, rows int) {
	e.logger.Printf("recon: %s: %d rows", name, rows)
	if e.observe != nil {
		e.observe(name, rows)
	}
}

// Merge runs the full merge pipeline over the inputs for one scope.
func (e *Engine) Merge(in Inputs, scope Scope) (*Table, error) {
	t, err := e.baseTable(in)
	if err != nil {
		return nil, err
	}
	e.stage("combine point and analog tabs", t.Len())

	t = filterScope(t, scope)
	e.stage("filter to scope "+scope.Key(), t.Len())

	if err := e.addOrphanControlPoints(t, in, scope); err != nil {
		return nil, err
	}
	e.stage("synthesize points for orphan controls", t.Len())

	rows := t.Len()

	if err := e.joinInventory(t, in.Inventory); err != nil {
		return nil, err
	}
	e.stage("join PowerOn inventory", t.Len())

	if err := e.joinCompare(t, in.Compare); err != nil {
		return nil, err
	}
	e.stage("join habdde comparison", t.Len())

	if err := e.attachAlarms(t, in.Alarms); err != nil {
		return nil, err
	}
	e.stage("attach alarm comparisons", t.Len())

	if err := e.attachControls(t, in); err != nil {
		return nil, err
	}
	e.stage("attach controls", t.Len())

	if err := e.deriveFlags(t); err != nil {
		return nil, err
	}
	e.stage("derive flags", t.Len())

	if t.Len() != rows {
		return nil, fmt.Errorf("recon: row count changed from %d to %d during joins, duplicate join keys in a source", rows, t.Len())
	}
	return t, nil
}

// baseTable unions the point and analog tabs on their common columns and
// sorts by generic address. The annotation columns are only carried when the
// export was annotated.
func (e *Engine) baseTable(in Inputs) (*Table, error) {
	annotated := false
	for _, p := range in.Points {
		if p.POAliasExists != nil || p.POAliasLinked != nil {
			annotated = true
			break
		}
	}

	cols := append([]string(nil), baseColumns...)
	if annotated {
		cols = append(cols, ColPOAliasExists, ColPOAliasLinked)
	}
	t := NewTable(cols...)

	appendPoint := func(p sources.PointRow) error {
		vals := []Value{
			StringOrNull(p.Address), StringOrNull(p.CASDU), String(p.Protocol), String(p.RTU), StringOrNull(p.Card),
			String(p.RTUAddress), String(p.RTUID), StringOrNull(p.IOA2), StringOrNull(p.IOA1), StringOrNull(p.IOA), String(p.PointID),
			String(string(p.Type)), String(p.DeviceType), String(p.DeviceName), String(p.DeviceID),
			String(p.Sub), StringOrNull(p.Word), StringOrNull(p.ETerraKey), String(p.Alias), String(p.Controllable),
			Bool(p.IgnoreRTU), Bool(p.IgnorePoint), Bool(p.OldData),
		}
		if annotated {
			exists, linked := Null(), Null()
			if p.POAliasExists != nil {
				exists = Bool(*p.POAliasExists)
			}
			if p.POAliasLinked != nil {
				linked = Number(float64(*p.POAliasLinked))
			}
			vals = append(vals, exists, linked)
		}
		return t.AppendRow(vals...)
	}

	for _, p := range in.Points {
		if err := appendPoint(p); err != nil {
			return nil, err
		}
	}
	for _, p := range in.Analogs {
		if err := appendPoint(p); err != nil {
			return nil, err
		}
	}
	if err := t.SortByColumn(ColAddress); err != nil {
		return nil, err
	}
	return t, nil
}

func filterScope(t *Table, scope Scope) *Table {
	switch {
	case scope.RTU != "":
		return t.Filter(func(i int) bool {
			v, _ := t.At(i, ColRTU)
			return v.Str() == scope.RTU
		})
	case scope.Substation != "":
		return t.Filter(func(i int) bool {
			v, _ := t.At(i, ColSub)
			return v.Str() == scope.Substation
		})
	}
	return t
}

func controlInScope(c sources.ControlRow, scope Scope) bool {
	switch {
	case scope.RTU != "":
		return c.RTU == scope.RTU
	case scope.Substation != "":
		return c.Sub == scope.Substation
	}
	return true
}

// addOrphanControlPoints synthesises a placeholder point for every in-scope
// control whose alias has no point row, so commissioning state for the
// control is still reported. Placeholders have no physical address.
func (e *Engine) addOrphanControlPoints(t *Table, in Inputs, scope Scope) error {
	known := make(map[string]bool, t.Len())
	for i := 0; i < t.Len(); i++ {
		v, err := t.At(i, ColAlias)
		if err != nil {
			return err
		}
		known[v.Str()] = true
	}

	var orphans []sources.ControlRow
	for _, c := range append(append([]sources.ControlRow(nil), in.Controls...), in.Setpoints...) {
		lookup := e.exceptions.ControlLookupAlias(c.Alias, c.PointID)
		if !controlInScope(c, scope) || known[c.Alias] || known[lookup] {
			continue
		}
		known[c.Alias] = true
		orphans = append(orphans, c)
	}
	sort.SliceStable(orphans, func(a, b int) bool { return orphans[a].Alias < orphans[b].Alias })

	annotated := t.HasColumn(ColPOAliasExists)
	for _, c := range orphans {
		e.logger.Printf("recon: control %s has no point row, synthesizing placeholder %s", c.Address, c.Alias)
		vals := []Value{
			Null(), StringOrNull(c.CASDU), String(c.Protocol), String(c.RTU), Null(),
			String(c.RTUAddress), String(c.RTUID), Null(), Null(), Null(), String(c.PointID),
			String(string(addressing.TypeDummy)), String(c.DeviceType), String(c.DeviceName), String(c.DeviceID),
			String(c.Sub), Null(), StringOrNull(c.ETerraKey), String(c.Alias), String("1"),
			Bool(false), Bool(false), Bool(false),
		}
		if annotated {
			vals = append(vals, Null(), Null())
		}
		if err := t.AppendRow(vals...); err != nil {
			return err
		}
	}
	return nil
}

// joinInventory left-joins the PowerOn inventory by generic address.
// Duplicate inventory addresses are fatal.
func (e *Engine) joinInventory(t *Table, inventory []sources.InventoryRow) error {
	byAddr := make(map[string]sources.InventoryRow, len(inventory))
	var dups []string
	for _, r := range inventory {
		if r.Address == "" {
			continue
		}
		if _, seen := byAddr[r.Address]; seen {
			dups = append(dups, fmt.Sprintf("%s (%s %s:%s %s)", r.Address, r.PORTU, r.Card, r.Word, r.POType))
			continue
		}
		byAddr[r.Address] = r
	}
	if len(dups) > 0 {
		sort.Strings(dups)
		return fmt.Errorf("%w: %s", ErrDuplicateAddress, strings.Join(dups, "; "))
	}

	cols := make(map[string][]Value, len(inventoryColumns))
	for _, c := range inventoryColumns {
		cols[c] = make([]Value, t.Len())
	}
	for i := 0; i < t.Len(); i++ {
		addr, err := t.At(i, ColAddress)
		if err != nil {
			return err
		}
		r, ok := byAddr[addr.Str()]
		if addr.IsNull() || !ok {
			continue
		}
		cols[ColPOProtocol][i] = StringOrNull(r.Protocol)
		cols[ColPORTU][i] = StringOrNull(r.PORTU)
		cols[ColPOCard][i] = StringOrNull(r.Card)
		cols[ColPOWord][i] = StringOrNull(r.Word)
		cols[ColPOIOA1][i] = StringOrNull(r.IOA1)
		cols[ColPOIOA2][i] = StringOrNull(r.IOA2)
		cols[ColPOOffset][i] = StringOrNull(r.Offset)
		cols[ColPOAlias][i] = StringOrNull(r.POAlias)
		cols[ColPOName][i] = StringOrNull(r.POName)
		cols[ColConfigInfo][i] = StringOrNull(r.ConfigInfo)
		cols[ColConfigHealth][i] = StringOrNull(r.ConfigHealth)
		cols[ColPODescription][i] = StringOrNull(r.PODescription)
		cols[ColPOType][i] = StringOrNull(r.POType)
		cols[ColScanInputRow][i] = StringOrNull(r.ScanInputRow)
		cols[ColShift][i] = StringOrNull(r.Shift)
		cols[ColScanInputRef][i] = StringOrNull(r.ScanInputRef)
		cols[ColUserTag][i] = StringOrNull(r.UserTag)
		cols[ColPOSize][i] = StringOrNull(r.Size)
		cols[ColInterpretation][i] = StringOrNull(r.Interpretation)
		cols[ColMenu][i] = StringOrNull(r.Menu)
		cols[ColSymbol][i] = StringOrNull(r.Symbol)
		cols[ColTCAction][i] = StringOrNull(r.TCAction)
		cols[ColPOGenericType][i] = String(string(r.Type))
		cols[ColPOETerraAlias][i] = StringOrNull(r.ETerraAlias)
	}
	for _, c := range inventoryColumns {
		if err := t.AddColumn(c, cols[c]); err != nil {
			return err
		}
	}
	return nil
}

// joinCompare left-joins the habdde comparison status by generic address.
// The comparison is not authoritative, so duplicate keys keep the first row
// and are only logged.
func (e *Engine) joinCompare(t *Table, compare []sources.CompareRow) error {
	byAddr := make(map[string]sources.CompareRow, len(compare))
	for _, r := range compare {
		if r.Address == "" {
			continue
		}
		if _, seen := byAddr[r.Address]; seen {
			e.logger.Printf("recon: comparison has duplicate address %s, keeping first", r.Address)
			continue
		}
		byAddr[r.Address] = r
	}

	status := make([]Value, t.Len())
	key := make([]Value, t.Len())
	for i := 0; i < t.Len(); i++ {
		addr, err := t.At(i, ColAddress)
		if err != nil {
			return err
		}
		if r, ok := byAddr[addr.Str()]; ok && !addr.IsNull() {
			status[i] = StringOrNull(r.Status)
			key[i] = StringOrNull(r.Key)
		}
	}
	if err := t.AddColumn(ColCompareStatus, status); err != nil {
		return err
	}
	return t.AddColumn(ColCompareKey, key)
}

// attachAlarms groups the alarm comparison events by alias and attaches
// point-level fields from the head of each group, per-token message triples
// for tokens 0..3 and the match aggregates.
func (e *Engine) attachAlarms(t *Table, alarms []sources.AlarmRow) error {
	alarms = dedupeAlarmTokens(alarms)
	groups := make(map[string][]sources.AlarmRow, len(alarms))
	for _, a := range alarms {
		groups[a.ETerraAlias] = append(groups[a.ETerraAlias], a)
	}
	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool {
			ri, rj := alarmRank(g[i]), alarmRank(g[j])
			if ri != rj {
				return ri < rj
			}
			if g[i].Token != g[j].Token {
				return g[i].Token < g[j].Token
			}
			if g[i].ETerraMessage != g[j].ETerraMessage {
				return g[i].ETerraMessage < g[j].ETerraMessage
			}
			return g[i].POMessage < g[j].POMessage
		})
	}

	n := t.Len()
	point := make(map[string][]Value, len(alarmPointColumns))
	for _, c := range alarmPointColumns {
		point[c] = make([]Value, n)
	}
	slots := make(map[string][]Value, AlarmSlots*3)
	for tok := 0; tok < AlarmSlots; tok++ {
		for _, f := range []string{AlarmETerraMessage, AlarmPOMessage, AlarmMessageMatch} {
			slots[AlarmCol(tok, f)] = make([]Value, n)
		}
	}
	numAlarms := make([]Value, n)
	numMatched := make([]Value, n)
	pctMatched := make([]Value, n)

	for i := 0; i < n; i++ {
		alias, err := t.At(i, ColAlias)
		if err != nil {
			return err
		}
		g := groups[alias.Str()]
		numAlarms[i] = Number(float64(len(g)))
		if len(g) == 0 {
			numMatched[i] = Number(0)
			continue
		}

		head := g[0]
		point[ColAlarmETerraAlias][i] = StringOrNull(head.ETerraAlias)
		point[ColAlarmPOAlias][i] = StringOrNull(head.POAlias)
		point[ColAlarmETerraZone][i] = StringOrNull(head.ETerraZone)
		point[ColAlarmETerraStat][i] = StringOrNull(head.ETerraStatus)
		point[ColAlarmPOSub][i] = StringOrNull(head.POSub)
		point[ColAlarmPOZone][i] = StringOrNull(head.POZone)
		point[ColAlarmPORef][i] = StringOrNull(head.PORef)
		point[ColAlarmPOStatus][i] = StringOrNull(head.POStatus)
		point[ColAlarmZoneMatch][i] = Bool(head.ZoneMatch)

		matched := 0
		for _, a := range g {
			if a.MessageMatch {
				matched++
			}
			if a.Token < 0 || a.Token >= AlarmSlots {
				continue
			}
			slots[AlarmCol(a.Token, AlarmETerraMessage)][i] = StringOrNull(a.ETerraMessage)
			slots[AlarmCol(a.Token, AlarmPOMessage)][i] = StringOrNull(a.POMessage)
			slots[AlarmCol(a.Token, AlarmMessageMatch)][i] = Bool(a.MessageMatch)
		}
		numMatched[i] = Number(float64(matched))
		pctMatched[i] = Number(float64(matched) / float64(len(g)) * 100)
	}

	for _, c := range alarmPointColumns {
		if err := t.AddColumn(c, point[c]); err != nil {
			return err
		}
	}
	for tok := 0; tok < AlarmSlots; tok++ {
		for _, f := range []string{AlarmETerraMessage, AlarmPOMessage, AlarmMessageMatch} {
			name := AlarmCol(tok, f)
			if err := t.AddColumn(name, slots[name]); err != nil {
				return err
			}
		}
	}
	if err := t.AddColumn(ColNumAlarms, numAlarms); err != nil {
		return err
	}
	if err := t.AddColumn(ColNumAlarmsMatched, numMatched); err != nil {
		return err
	}
	return t.AddColumn(ColPctAlarmsMatched, pctMatched)
}

// dedupeAlarmTokens keeps only the last event seen for each (alias, token)
// slot. Re-exported comparisons repeat token slots and the newest row is the
// valid one. Events without a token slot are kept as-is.
func dedupeAlarmTokens(alarms []sources.AlarmRow) []sources.AlarmRow {
	seen := make(map[string]int, len(alarms))
	out := make([]sources.AlarmRow, 0, len(alarms))
	for _, a := range alarms {
		if a.Token < 0 {
			out = append(out, a)
			continue
		}
		key := fmt.Sprintf("%s\x00%d", a.ETerraAlias, a.Token)
		if j, ok := seen[key]; ok {
			out[j] = a
			continue
		}
		seen[key] = len(out)
		out = append(out, a)
	}
	return out
}

// alarmRank sorts matched alarm events ahead of everything else so the
// head-of-group row is stable and meaningful.
func alarmRank(a sources.AlarmRow) int {
	if a.POStatus == "Matched" {
		return 0
	}
	return 1
}

// attachControls resolves up to two controls per controllable point by alias
// and attaches their comparison, configuration, commissioning and auto-test
// state, plus the commissioning aggregates.
func (e *Engine) attachControls(t *Table, in Inputs) error {
	ctrlsByAlias := make(map[string][]sources.ControlRow, len(in.Controls))
	for _, c := range in.Controls {
		ctrlsByAlias[c.Alias] = append(ctrlsByAlias[c.Alias], c)
	}
	setpointsByAlias := make(map[string][]sources.ControlRow, len(in.Setpoints))
	for _, c := range in.Setpoints {
		setpointsByAlias[c.Alias] = append(setpointsByAlias[c.Alias], c)
	}

	invByAddr := make(map[string]sources.InventoryRow, len(in.Inventory))
	for _, r := range in.Inventory {
		if r.Address != "" {
			invByAddr[r.Address] = r
		}
	}
	compByAddr := make(map[string]sources.CompareRow, len(in.Compare))
	for _, r := range in.Compare {
		if _, seen := compByAddr[r.Address]; !seen && r.Address != "" {
			compByAddr[r.Address] = r
		}
	}
	commByAddr := make(map[string]map[string]string, len(in.Commissioning))
	for _, r := range in.Commissioning {
		if r.ControlAddress == "" {
			continue
		}
		if commByAddr[r.ControlAddress] == nil {
			commByAddr[r.ControlAddress] = make(map[string]string, 3)
		}
		commByAddr[r.ControlAddress][r.TestName] = r.Result
	}
	testByAddr := make(map[string]sources.AutoTestRow, len(in.AutoTests))
	for _, r := range in.AutoTests {
		if r.Address != "" {
			testByAddr[r.Address] = r
		}
	}

	n := t.Len()
	fields := []string{
		CtrlAddr, CtrlName, CtrlMatchStatus, CtrlConfigHealth, CtrlTCAction,
		CtrlVisualCheck, CtrlControlSent, CtrlActionVerified, CtrlTestStatus, CtrlTestResult,
	}
	cols := make(map[string][]Value)
	for slot := 1; slot <= MaxControls; slot++ {
		for _, f := range fields {
			cols[CtrlCol(slot, f)] = make([]Value, n)
		}
	}
	numCtrls := make([]Value, n)
	numOk := make([]Value, n)
	numAllOk := make([]Value, n)
	pctOk := make([]Value, n)
	pctAllOk := make([]Value, n)

	for i := 0; i < n; i++ {
		alias, err := t.At(i, ColAlias)
		if err != nil {
			return err
		}
		controllable, err := t.At(i, ColControllable)
		if err != nil {
			return err
		}
		gtype, err := t.At(i, ColGenericType)
		if err != nil {
			return err
		}
		pointID, err := t.At(i, ColPointID)
		if err != nil {
			return err
		}

		// Unresolved slots keep blank addr and name, matching the
		// comparison tooling's output; the deeper fields stay null.
		for slot := 1; slot <= MaxControls; slot++ {
			cols[CtrlCol(slot, CtrlAddr)][i] = String("")
			cols[CtrlCol(slot, CtrlName)][i] = String("")
		}

		var resolved []sources.ControlRow
		if controllable.Str() == "1" {
			lookup := e.exceptions.ControlLookupAlias(alias.Str(), pointID.Str())
			found := ctrlsByAlias[lookup]
			if len(found) > MaxControls {
				e.logger.Printf("recon: alias %s has %d controls, keeping first %d", alias.Str(), len(found), MaxControls)
				found = found[:MaxControls]
			}
			resolved = append(resolved, found...)
		}
		// Analog setpoints take the first slot; a tap changer keeps its
		// second control.
		if gtype.Str() == string(addressing.TypeAnalog) {
			if sps := setpointsByAlias[alias.Str()]; len(sps) > 0 {
				if len(resolved) == 0 {
					resolved = append(resolved, sps[0])
				} else {
					resolved[0] = sps[0]
				}
			}
		}

		counted, okCount, allOkCount := 0, 0, 0
		for slotIdx, c := range resolved {
			slot := slotIdx + 1
			cols[CtrlCol(slot, CtrlAddr)][i] = String(c.Address)
			name := c.ControlID
			if c.Type == addressing.TypeSetpoint {
				name = "SETPOINT"
			}
			cols[CtrlCol(slot, CtrlName)][i] = String(name)
			if c.Address == "" {
				continue
			}
			counted++
			if comp, ok := compByAddr[c.Address]; ok {
				cols[CtrlCol(slot, CtrlMatchStatus)][i] = StringOrNull(comp.Status)
			}
			if inv, ok := invByAddr[c.Address]; ok {
				cols[CtrlCol(slot, CtrlConfigHealth)][i] = StringOrNull(inv.ConfigHealth)
				cols[CtrlCol(slot, CtrlTCAction)][i] = StringOrNull(inv.TCAction)
			}
			outcomes := commByAddr[c.Address]
			visual := outcomes[sources.TestVisualCheck]
			sent := outcomes[sources.TestControlSent]
			verified := outcomes[sources.TestActionVerified]
			cols[CtrlCol(slot, CtrlVisualCheck)][i] = StringOrNull(visual)
			cols[CtrlCol(slot, CtrlControlSent)][i] = StringOrNull(sent)
			cols[CtrlCol(slot, CtrlActionVerified)][i] = StringOrNull(verified)
			if verified == "OK" {
				okCount++
				if visual == "OK" && sent == "OK" {
					allOkCount++
				}
			}
			if at, ok := testByAddr[c.Address]; ok {
				cols[CtrlCol(slot, CtrlTestStatus)][i] = StringOrNull(at.Status)
				cols[CtrlCol(slot, CtrlTestResult)][i] = StringOrNull(at.Result)
			}
		}
		numCtrls[i] = Number(float64(counted))
		numOk[i] = Number(float64(okCount))
		numAllOk[i] = Number(float64(allOkCount))
		if counted > 0 {
			pctOk[i] = Number(float64(okCount) / float64(counted) * 100)
			pctAllOk[i] = Number(float64(allOkCount) / float64(counted) * 100)
		}
	}

	for slot := 1; slot <= MaxControls; slot++ {
		for _, f := range fields {
			name := CtrlCol(slot, f)
			if err := t.AddColumn(name, cols[name]); err != nil {
				return err
			}
		}
	}
	for _, c := range []struct {
		name string
		vals []Value
	}{
		{ColNumControls, numCtrls},
		{ColNumControlsOk, numOk},
		{ColNumControlsAllOk, numAllOk},
		{ColPctControlsOk, pctOk},
		{ColPctControlsAllOk, pctAllOk},
	} {
		if err := t.AddColumn(c.name, c.vals); err != nil {
			return err
		}
	}
	return nil
}

// deriveFlags appends the row-level flags the rule library keys on. The
// alias-existence flags come from review annotations when the export carried
// them, otherwise they are derived from the inventory join.
func (e *Engine) deriveFlags(t *Table) error {
	n := t.Len()
	typ := make([]Value, n)
	ignore := make([]Value, n)
	rtuComms := make([]Value, n)

	for i := 0; i < n; i++ {
		rtuID, err := t.At(i, ColRTUID)
		if err != nil {
			return err
		}
		gtype, err := t.At(i, ColGenericType)
		if err != nil {
			return err
		}
		if rtuID.Str() == SentinelRTUID {
			typ[i] = String(string(addressing.TypeDummy))
		} else {
			typ[i] = gtype
		}

		ignoreRTU, err := t.At(i, ColIgnoreRTU)
		if err != nil {
			return err
		}
		ignorePoint, err := t.At(i, ColIgnorePoint)
		if err != nil {
			return err
		}
		oldData, err := t.At(i, ColOldData)
		if err != nil {
			return err
		}
		ignore[i] = Bool(ignoreRTU.True() || ignorePoint.True() || oldData.True())

		devType, err := t.At(i, ColDeviceType)
		if err != nil {
			return err
		}
		rtuComms[i] = Bool(devType.Str() == "RTU")
	}

	if err := t.AddColumn(ColType, typ); err != nil {
		return err
	}
	if err := t.AddColumn(ColIgnore, ignore); err != nil {
		return err
	}
	if err := t.AddColumn(ColRTUComms, rtuComms); err != nil {
		return err
	}

	if !t.HasColumn(ColPOAliasExists) {
		exists := make([]Value, n)
		linked := make([]Value, n)
		for i := 0; i < n; i++ {
			poAlias, err := t.At(i, ColPOAlias)
			if err != nil {
				return err
			}
			ref, err := t.At(i, ColScanInputRef)
			if err != nil {
				return err
			}
			exists[i] = Bool(!poAlias.IsNull() && !poAlias.IsBlank())
			if !ref.IsNull() && !ref.IsBlank() {
				linked[i] = Number(2)
			} else {
				linked[i] = Number(0)
			}
		}
		if err := t.AddColumn(ColPOAliasExists, exists); err != nil {
			return err
		}
		if err := t.AddColumn(ColPOAliasLinked, linked); err != nil {
			return err
		}
	}
	return nil
}
