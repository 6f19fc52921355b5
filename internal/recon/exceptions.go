package recon

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AliasSubstitution rewrites one path segment of an alias before the control
// lookup, for device families whose measurand and control use different
// point ids.
type AliasSubstitution struct {
	PointID string `yaml:"point_id"`
	From    string `yaml:"from"`
	To      string `yaml:"to"`
}

// ExceptionTable names the data quirks the pipeline has to work around:
// alias substitutions for control lookups and RTUs whose inventory rows are
// known bad and must be dropped wholesale.
type ExceptionTable struct {
	AliasSubstitutions []AliasSubstitution `yaml:"alias_substitutions"`
	ExcludedRTUs       []string            `yaml:"excluded_rtus"`
}

// DefaultExceptions returns the built-in exception table: tap changers look
// up their controls under TAP rather than TCP, and two RTUs with duplicated
// inventory rows are excluded.
func DefaultExceptions() *ExceptionTable {
	return &ExceptionTable{
		AliasSubstitutions: []AliasSubstitution{
			{PointID: "TCP", From: "TCP", To: "TAP"},
		},
		ExcludedRTUs: []string{"CUMW", "MICR4"},
	}
}

// LoadExceptions reads an exception table from a YAML file, or returns the
// built-in defaults when path is empty.
func LoadExceptions(path string) (*ExceptionTable, error) {
	if path == "" {
		return DefaultExceptions(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recon: read exceptions: %w", err)
	}
	var t ExceptionTable
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("recon: parse exceptions %s: %w", path, err)
	}
	for _, s := range t.AliasSubstitutions {
		if s.PointID == "" || s.From == "" || s.To == "" {
			return nil, fmt.Errorf("recon: exceptions %s: alias substitution needs point_id, from and to", path)
		}
	}
	return &t, nil
}

// ControlLookupAlias returns the alias to use when resolving controls for a
// point, applying any substitution registered for its point id.
func (t *ExceptionTable) ControlLookupAlias(alias, pointID string) string {
	for _, s := range t.AliasSubstitutions {
		if s.PointID == pointID {
			return strings.ReplaceAll(alias, s.From, s.To)
		}
	}
	return alias
}

// RTUExcluded reports whether an RTU (either naming convention) is on the
// exclusion list.
func (t *ExceptionTable) RTUExcluded(name string) bool {
	name = strings.TrimSuffix(name, "_RTU")
	for _, r := range t.ExcludedRTUs {
		if strings.TrimSuffix(r, "_RTU") == name {
			return true
		}
	}
	return false
}
