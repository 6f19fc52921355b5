package recon

import "fmt"

// Canonical column names of the merged table. The vocabulary is shared with
// the upstream comparison tooling, so the names are data, not identifiers,
// and several carry spaces.
const (
	ColAddress      = "GenericPointAddress"
	ColCASDU        = "CASDU"
	ColProtocol     = "Protocol"
	ColRTU          = "RTU"
	ColCard         = "Card"
	ColRTUAddress   = "RTUAddress"
	ColRTUID        = "RTUId"
	ColIOA2         = "IOA2"
	ColIOA1         = "IOA1"
	ColIOA          = "IOA"
	ColPointID      = "PointId"
	ColGenericType  = "GenericType"
	ColDeviceType   = "DeviceType"
	ColDeviceName   = "DeviceName"
	ColDeviceID     = "DeviceId"
	ColSub          = "Sub"
	ColWord         = "Word"
	ColETerraKey    = "eTerraKey"
	ColAlias        = "eTerraAlias"
	ColControllable = "Controllable"

	ColIgnoreRTU     = "IGNORE_RTU"
	ColIgnorePoint   = "IGNORE_POINT"
	ColOldData       = "OLD_DATA"
	ColPOAliasExists = "PowerOn Alias Exists"
	ColPOAliasLinked = "PowerOn Alias Linked to SCADA"

	ColCompareStatus = "HbddeCompareStatus"
	ColCompareKey    = "HabCompKey"

	ColPOProtocol       = "PO_Protocol"
	ColPORTU            = "PO_RTU"
	ColPOCard           = "PO_Card"
	ColPOWord           = "PO_Word"
	ColPOIOA1           = "PO_IOA1"
	ColPOIOA2           = "PO_IOA2"
	ColPOOffset         = "PO_Offset"
	ColPOAlias          = "POAlias"
	ColPOName           = "POName"
	ColConfigInfo       = "ConfigInfo"
	ColConfigHealth     = "ConfigHealth"
	ColPODescription    = "PODescription"
	ColPOType           = "POType"
	ColScanInputRow     = "ScanInputRow"
	ColShift            = "Shift"
	ColScanInputRef     = "ScanInputRef"
	ColUserTag          = "UserTag"
	ColPOSize           = "Size"
	ColInterpretation   = "POInterpretation"
	ColMenu             = "Menu"
	ColSymbol           = "Symbol"
	ColTCAction         = "TC Action"
	ColPOGenericType    = "PO_GenericType"
	ColPOETerraAlias    = "PO_eTerraAlias"

	ColAlarmETerraAlias = "CompAlarmEterraAlias"
	ColAlarmPOAlias     = "CompAlarmPOAlias"
	ColAlarmETerraZone  = "CompAlarmeTerraAlarmZone"
	ColAlarmETerraStat  = "CompAlarmeTerraStatus"
	ColAlarmPOSub       = "CompAlarmPOsubstation"
	ColAlarmPOZone      = "CompAlarmPOAlarmZone"
	ColAlarmPORef       = "CompAlarmPOAlarmRef"
	ColAlarmPOStatus    = "CompAlarmPOStatus"
	ColAlarmZoneMatch   = "CompAlarmAlarmZoneMatch"

	ColNumAlarms        = "NumAlarms"
	ColNumAlarmsMatched = "NumAlarmsMatched"
	ColPctAlarmsMatched = "PercentAlarmsMatched"

	ColNumControls           = "NumControls"
	ColNumControlsOk         = "NumControlsCommissionOk"
	ColNumControlsAllOk      = "NumControlsAllCommissionOk"
	ColPctControlsOk         = "PercentControlsCommissionOk"
	ColPctControlsAllOk      = "PercentControlsAllCommissionOk"

	ColType     = "Type"
	ColIgnore   = "Ignore"
	ColRTUComms = "RTUComms"
)

// SentinelRTUID marks eTerra points that belong to no physical RTU. The
// upstream export uses this literal placeholder.
const SentinelRTUID = "(€€€€€€€€:)"

// AlarmSlots is the number of materialised alarm token slots per point.
// Digitals carry 2 (SD) or 4 (DD) alarms for tokens 0..3; events beyond the
// materialised slots still count in NumAlarms.
const AlarmSlots = 4

// AlarmCol names the per-token alarm columns: Alarm<token>_<field>.
func AlarmCol(token int, field string) string {
	return fmt.Sprintf("Alarm%d_%s", token, field)
}

// Per-token alarm field suffixes.
const (
	AlarmETerraMessage = "eTerraMessage"
	AlarmPOMessage     = "POMessage"
	AlarmMessageMatch  = "MessageMatch"
)

// MaxControls is the number of control slots per point.
const MaxControls = 2

// CtrlCol names the per-control columns: Ctrl<n>_<field>, n in 1..MaxControls.
func CtrlCol(n int, field string) string {
	return fmt.Sprintf("Ctrl%d%s", n, field)
}

// Per-control field suffixes.
const (
	CtrlAddr           = "Addr"
	CtrlName           = "Name"
	CtrlMatchStatus    = "MatchStatus"
	CtrlConfigHealth   = "ConfigHealth"
	CtrlTCAction       = "TelecontrolAction"
	CtrlVisualCheck    = "VisualCheck"
	CtrlControlSent    = "ControlSent"
	CtrlActionVerified = "ActionVerified"
	CtrlTestStatus     = "TestStatus"
	CtrlTestResult     = "TestResult"
)

// baseColumns is the common column subset shared by the point and analog
// tabs, in merged-table order.
var baseColumns = []string{
	ColAddress, ColCASDU, ColProtocol, ColRTU, ColCard,
	ColRTUAddress, ColRTUID, ColIOA2, ColIOA1, ColIOA, ColPointID,
	ColGenericType, ColDeviceType, ColDeviceName, ColDeviceID,
	ColSub, ColWord, ColETerraKey, ColAlias, ColControllable,
	ColIgnoreRTU, ColIgnorePoint, ColOldData,
}

// inventoryColumns are appended by the inventory left join, in order.
var inventoryColumns = []string{
	ColPOProtocol, ColPORTU, ColPOCard, ColPOWord, ColPOIOA1, ColPOIOA2,
	ColPOOffset, ColPOAlias, ColPOName, ColConfigInfo, ColConfigHealth,
	ColPODescription, ColPOType, ColScanInputRow, ColShift, ColScanInputRef,
	ColUserTag, ColPOSize, ColInterpretation, ColMenu, ColSymbol, ColTCAction,
	ColPOGenericType, ColPOETerraAlias,
}

// alarmPointColumns are the point-level fields of the alarm comparison.
var alarmPointColumns = []string{
	ColAlarmETerraAlias, ColAlarmPOAlias, ColAlarmETerraZone, ColAlarmETerraStat,
	ColAlarmPOSub, ColAlarmPOZone, ColAlarmPORef, ColAlarmPOStatus, ColAlarmZoneMatch,
}
