package recon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultExceptionsTapChanger(t *testing.T) {
	ex := DefaultExceptions()
	got := ex.ControlLookupAlias("SUB1/TX/T1/TCP", "TCP")
	if got != "SUB1/TX/T1/TAP" {
		t.Errorf("ControlLookupAlias = %q, want SUB1/TX/T1/TAP", got)
	}
	// Other point ids pass through.
	if got := ex.ControlLookupAlias("SUB1/CB/CB1/SWCL", "SWCL"); got != "SUB1/CB/CB1/SWCL" {
		t.Errorf("ControlLookupAlias = %q, want unchanged alias", got)
	}
}

func TestRTUExcludedBothNamingConventions(t *testing.T) {
	ex := DefaultExceptions()
	for _, name := range []string{"CUMW", "CUMW_RTU", "MICR4"} {
		if !ex.RTUExcluded(name) {
			t.Errorf("RTUExcluded(%q) = false, want true", name)
		}
	}
	if ex.RTUExcluded("BUSB1") {
		t.Error("BUSB1 should not be excluded")
	}
}

func TestLoadExceptionsEmptyPathDefaults(t *testing.T) {
	ex, err := LoadExceptions("")
	if err != nil {
		t.Fatalf("LoadExceptions: %v", err)
	}
	if len(ex.AliasSubstitutions) == 0 || len(ex.ExcludedRTUs) == 0 {
		t.Error("empty path should yield the built-in defaults")
	}
}

func TestLoadExceptionsFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exceptions.yaml")
	doc := `alias_substitutions:
  - point_id: TCP
    from: TCP
    to: TAP
excluded_rtus:
  - OLDR_RTU
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ex, err := LoadExceptions(path)
	if err != nil {
		t.Fatalf("LoadExceptions: %v", err)
	}
	if !ex.RTUExcluded("OLDR") {
		t.Error("OLDR should be excluded via the _RTU-suffixed entry")
	}
	if got := ex.ControlLookupAlias("S/TX/T1/TCP", "TCP"); got != "S/TX/T1/TAP" {
		t.Errorf("ControlLookupAlias = %q", got)
	}
}

func TestLoadExceptionsRejectsIncompleteSubstitution(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exceptions.yaml")
	doc := `alias_substitutions:
  - point_id: TCP
    from: TCP
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadExceptions(path); err == nil {
		t.Error("expected validation error for substitution without a target")
	}
}
