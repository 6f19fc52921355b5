package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

type config struct {
	DataDir    string
	OutputDir  string
	Exceptions string

	ETerraExport  string
	HabddeCompare string
	AllRTUs       string
	ControlsTest  string
	CompareAlarms string

	DatabaseURL string
}

// loadConfig reads the run configuration from an ini file, falling back to
// environment variables and compiled-in defaults. A missing file at the
// default path is not an error; an explicitly named file must exist.
func loadConfig(path string, explicit bool) (config, error) {
	cfg := config{
		DataDir:       getenvDefault("RECON_DATA_DIR", "data"),
		OutputDir:     getenvDefault("RECON_OUTPUT_DIR", "output"),
		ETerraExport:  "eterra_export.xlsx",
		HabddeCompare: "habdde_compare.csv",
		AllRTUs:       "all_rtus.csv",
		ControlsTest:  "controls_test.csv",
		CompareAlarms: "compare_alarms.xlsx",
		DatabaseURL:   getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
	}

	if _, err := os.Stat(path); err != nil {
		if explicit {
			return config{}, fmt.Errorf("config %s: %w", path, err)
		}
		return cfg, nil
	}

	f, err := ini.Load(path)
	if err != nil {
		return config{}, fmt.Errorf("config %s: %w", path, err)
	}

	paths := f.Section("Paths")
	if v := paths.Key("data_dir").String(); v != "" {
		cfg.DataDir = v
	}
	if v := paths.Key("output_dir").String(); v != "" {
		cfg.OutputDir = v
	}
	if v := paths.Key("exceptions").String(); v != "" {
		cfg.Exceptions = v
	}

	files := f.Section("Files")
	if v := files.Key("eterra_export").String(); v != "" {
		cfg.ETerraExport = v
	}
	if v := files.Key("habdde_compare").String(); v != "" {
		cfg.HabddeCompare = v
	}
	if v := files.Key("all_rtus").String(); v != "" {
		cfg.AllRTUs = v
	}
	if v := files.Key("controls_test").String(); v != "" {
		cfg.ControlsTest = v
	}
	if v := files.Key("compare_alarms").String(); v != "" {
		cfg.CompareAlarms = v
	}

	if v := f.Section("Database").Key("dsn").String(); v != "" {
		cfg.DatabaseURL = v
	}
	return cfg, nil
}

func (c config) dataPath(name string) string {
	return filepath.Join(c.DataDir, name)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
