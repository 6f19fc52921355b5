package defect

import "scada-recon/internal/recon"

// Rule names. Each becomes a boolean column on the merged table; the
// numbering is the reporting convention the commissioning team already uses.
const (
	RuleMissingAnalogs       = "Report1"
	RuleMissingDoubles       = "Report2"
	RuleMissingControllables = "Report3"
	RuleMissingTCActions     = "Report4"
	RuleMissingAlarmRefs     = "Report5"
	RuleTestedNotInPO        = "Report6"
	RuleControlsNotLinked    = "Report7"
	RuleNoControls           = "Report8"
	RuleAlarmMismatchActions = "Report9"
	RuleResetCtrlFuncZero    = "Report10"
	RuleLampSymbol           = "Report11"
	RuleCommissionedUnmatch  = "Report12"
	RuleAnalogLimits         = "Report13"
	RuleAnyDefect            = "ReportANY"
)

func eq(col string, v recon.Value) Criterion {
	return Criterion{Columns: col, Op: OpEq, Value: v}
}

func ne(col string, v recon.Value) Criterion {
	return Criterion{Columns: col, Op: OpNe, Value: v}
}

// ignoreGuards excludes rows the review annotations marked as not worth
// reporting on.
func ignoreGuards() []Node {
	return []Node{
		eq(recon.ColIgnoreRTU, recon.Bool(false)),
		eq(recon.ColIgnorePoint, recon.Bool(false)),
		eq(recon.ColOldData, recon.Bool(false)),
	}
}

func andGroup(nodes ...Node) Group {
	return Group{CombineWith: CombineAnd, Children: nodes}
}

func orGroup(nodes ...Node) Group {
	return Group{CombineWith: CombineOr, Children: nodes}
}

// Library returns the defect rule library in evaluation order. The
// any-defect rule composes the others by column reference and must stay
// last.
func Library() []Rule {
	rules := []Rule{
		{
			Name:            RuleMissingAnalogs,
			Title:           "Missing Analog Components",
			RequiredColumns: []string{recon.ColGenericType, recon.ColPOAliasExists},
			Root: andGroup(append([]Node{
				eq(recon.ColGenericType, recon.String("A")),
				eq(recon.ColPOAliasExists, recon.Bool(false)),
			}, ignoreGuards()...)...),
		},
		{
			Name:            RuleMissingDoubles,
			Title:           "Missing DD Components",
			RequiredColumns: []string{recon.ColGenericType, recon.ColPOAliasExists},
			Root: andGroup(append([]Node{
				Criterion{Columns: recon.ColGenericType, Op: OpIn, Values: []recon.Value{recon.String("DD")}},
				eq(recon.ColPOAliasExists, recon.Bool(false)),
			}, ignoreGuards()...)...),
		},
		{
			Name:            RuleMissingControllables,
			Title:           "Missing Controllable Components",
			RequiredColumns: []string{recon.ColGenericType, recon.ColPOAliasExists},
			Root: andGroup(append([]Node{
				Criterion{Columns: "Ctrl1Addr,Ctrl2Addr", Op: OpAnyNotNA},
				eq(recon.ColControllable, recon.String("1")),
				ne(recon.ColRTUID, recon.String(recon.SentinelRTUID)),
				eq(recon.ColPOAliasExists, recon.Bool(false)),
			}, ignoreGuards()...)...),
		},
		{
			Name:            RuleMissingTCActions,
			Title:           "Components Missing Telecontrol Actions",
			RequiredColumns: []string{recon.ColGenericType, recon.ColControllable, recon.ColPOAliasExists},
			Root: andGroup(
				andGroup(append([]Node{
					Criterion{Columns: recon.ColGenericType, Op: OpIn, Values: []recon.Value{recon.String("SD"), recon.String("DD")}},
					eq(recon.ColControllable, recon.String("1")),
					eq(recon.ColPOAliasExists, recon.Bool(true)),
					eq(recon.ColPOAliasLinked, recon.Number(2)),
					ne(recon.ColDeviceType, recon.String("RTU")),
				}, ignoreGuards()...)...),
				orGroup(
					andGroup(
						eq(recon.ColControllable, recon.String("1")),
						Criterion{Columns: "Ctrl1Addr", Op: OpNotNAOrBlank},
						Criterion{Columns: "Ctrl1TelecontrolAction", Op: OpIsNAOrBlank},
					),
					andGroup(
						eq(recon.ColControllable, recon.String("1")),
						Criterion{Columns: "Ctrl2Addr", Op: OpNotNAOrBlank},
						Criterion{Columns: "Ctrl2TelecontrolAction", Op: OpIsNAOrBlank},
					),
				),
			),
		},
		{
			Name:            RuleMissingAlarmRefs,
			Title:           "Components Missing Alarm Reference",
			RequiredColumns: []string{recon.ColGenericType, recon.ColPOAliasExists, recon.ColPOAliasLinked},
			Root: andGroup(append([]Node{
				Criterion{Columns: recon.ColGenericType, Op: OpIn, Values: []recon.Value{recon.String("SD"), recon.String("DD")}},
				ne(recon.ColDeviceType, recon.String("RTU")),
				eq(recon.ColPOAliasExists, recon.Bool(true)),
				eq(recon.ColPOAliasLinked, recon.Number(2)),
				Criterion{Columns: recon.ColAlarmETerraAlias, Op: OpNotNAOrBlank},
				eq(recon.ColAlarmPOStatus, recon.String("Alarm Missing")),
				Criterion{Columns: recon.ColAlarmPORef, Op: OpIsNullOrZero},
				Criterion{Columns: recon.AlarmCol(0, recon.AlarmPOMessage), Op: OpIsNAOrBlank},
				eq(recon.ColConfigHealth, recon.String("GOOD")),
			}, ignoreGuards()...)...),
		},
		{
			Name:            RuleTestedNotInPO,
			Title:           "Controls not in PO but tested ok",
			RequiredColumns: []string{recon.ColPOAliasExists},
			Root: andGroup(
				andGroup(append([]Node{
					eq(recon.ColPOAliasExists, recon.Bool(false)),
				}, ignoreGuards()...)...),
				orGroup(
					andGroup(
						Criterion{Columns: "Ctrl1Addr", Op: OpNotNA},
						eq("Ctrl1MatchStatus", recon.String("notinPO")),
						eq("Ctrl1TestResult", recon.String("OK")),
					),
					andGroup(
						Criterion{Columns: "Ctrl2Addr", Op: OpNotNA},
						eq("Ctrl2MatchStatus", recon.String("notinPO")),
						eq("Ctrl2TestResult", recon.String("OK")),
					),
				),
			),
		},
		{
			Name:            RuleControlsNotLinked,
			Title:           "Controls Not Linked",
			RequiredColumns: []string{recon.ColGenericType, recon.ColPOAliasExists},
			Root: andGroup(
				andGroup(append([]Node{
					Criterion{Columns: recon.ColGenericType, Op: OpIn, Values: []recon.Value{recon.String("SD"), recon.String("DD")}},
					eq(recon.ColPOAliasExists, recon.Bool(true)),
					ne(recon.ColDeviceType, recon.String("RTU")),
				}, ignoreGuards()...)...),
				orGroup(
					andGroup(
						ne("Ctrl1Name", recon.String("")),
						Criterion{Columns: "Ctrl1ConfigHealth", Op: OpIsNAOrBlank},
					),
					andGroup(
						ne("Ctrl2Name", recon.String("")),
						Criterion{Columns: "Ctrl2ConfigHealth", Op: OpIsNAOrBlank},
					),
				),
			),
		},
		{
			Name:            RuleNoControls,
			Title:           "Ctrl-able eTerra Points with no Controls",
			RequiredColumns: []string{recon.ColControllable},
			Root: andGroup(append([]Node{
				eq(recon.ColControllable, recon.String("1")),
				Criterion{Columns: "Ctrl1Name", Op: OpIsNAOrBlank},
				Criterion{Columns: "Ctrl2Name", Op: OpIsNAOrBlank},
			}, ignoreGuards()...)...),
		},
		{
			Name:            RuleAlarmMismatchActions,
			Title:           "Alarm Mismatch Manual Actions",
			RequiredColumns: []string{"AlarmMismatchComment"},
			Root: andGroup(append([]Node{
				ne("AlarmMismatchComment", recon.String("")),
			}, ignoreGuards()...)...),
		},
		{
			Name:  RuleResetCtrlFuncZero,
			Title: "RESET w/ CtrlFunc 0",
			Root: andGroup(append([]Node{
				eq("Ctrl1Name", recon.String("RESET")),
				Criterion{Columns: "Ctrl1Addr", Op: OpEndsWith, Value: recon.String("-0 C]")},
			}, ignoreGuards()...)...),
		},
		{
			Name:  RuleLampSymbol,
			Title: "SWDD with LAMP symbol",
			Root: andGroup(append([]Node{
				eq(recon.ColPointID, recon.String("SWDD")),
				eq(recon.ColSymbol, recon.String("scottish_power/SPT_master_lamp_indication")),
			}, ignoreGuards()...)...),
		},
		{
			Name:  RuleCommissionedUnmatch,
			Title: "Commissioned Controls Not Matched",
			Root: andGroup(append([]Node{
				Criterion{Columns: "Ctrl1Addr,Ctrl1ConfigHealth,Ctrl1ActionVerified", Op: OpCtrlTestOK},
				ne(recon.ColCompareStatus, recon.String("Matched")),
			}, ignoreGuards()...)...),
		},
		{
			// Reserved until the analog limit comparison lands in the
			// inventory extract.
			Name:  RuleAnalogLimits,
			Title: "Analog Limit Mismatch",
			Root:  andGroup(Criterion{Op: OpAlwaysFalse}),
		},
	}

	any := Rule{Name: RuleAnyDefect, Title: "Any Defect", Root: Group{CombineWith: CombineOr}}
	for _, r := range rules {
		any.Root.Children = append(any.Root.Children, eq(r.Name, recon.Bool(true)))
	}
	return append(rules, any)
}
