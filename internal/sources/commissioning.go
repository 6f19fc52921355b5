package sources

// Manual commissioning test names as recorded in the test_results table.
const (
	TestVisualCheck    = "visual_check"
	TestControlSent    = "control_sent"
	TestActionVerified = "action_verified"
)

// CommissioningRow is one manually recorded field-verification outcome for
// one control action: one row per (control address, test name).
type CommissioningRow struct {
	Testset        string
	TestDate       string
	User           string
	ControlAddress string
	TestName       string
	Result         string
	Comments       string
	RTUName        string
	VoltageGroup   string
	TestArea       string
	Alias          string
}
