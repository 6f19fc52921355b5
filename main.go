package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"scada-recon/internal/defect"
	"scada-recon/internal/observability/metrics"
	"scada-recon/internal/recon"
	"scada-recon/internal/report"
	"scada-recon/internal/sources"
	"scada-recon/internal/store"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	var (
		rtu          = flag.String("rtu", "", "restrict the run to one RTU")
		substation   = flag.String("substation", "", "restrict the run to one substation")
		configPath   = flag.String("config", "recon.ini", "run configuration file")
		outDir       = flag.String("out", "", "output directory (overrides config)")
		useCache     = flag.Bool("use-cache", false, "reuse the cached merged table for this scope")
		refreshCache = flag.Bool("refresh-cache", false, "rebuild and re-cache the merged table")
		metricsAddr  = flag.String("metrics-addr", "", "serve /metrics on this address")
	)
	flag.Parse()
	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument %q\n", flag.Arg(0))
		flag.Usage()
		os.Exit(2)
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)

	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})
	cfg, err := loadConfig(*configPath, explicit)
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}

	metrics.Init(logger)
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Printf("metrics listening on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Printf("metrics server error: %v", err)
			}
		}()
	}

	start := time.Now()
	if err := run(cfg, recon.Scope{RTU: *rtu, Substation: *substation}, *useCache, *refreshCache, logger); err != nil {
		metrics.ObserveRun(metrics.ResultError, time.Since(start))
		logger.Fatalf("run error: %v", err)
	}
	metrics.ObserveRun(metrics.ResultSuccess, time.Since(start))
}

func run(cfg config, scope recon.Scope, useCache, refreshCache bool, logger *log.Logger) error {
	ctx := context.Background()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db open: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("db ping: %w", err)
		}
	}
	if (useCache || refreshCache) && db == nil {
		return fmt.Errorf("cache flags need a database dsn in the config or DATABASE_URL")
	}

	var cache *store.Cache
	if db != nil {
		var err error
		cache, err = store.NewCache(db, logger)
		if err != nil {
			return err
		}
		if err := cache.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	var table *recon.Table
	if useCache && !refreshCache {
		t, found, err := cache.Load(ctx, scope.Key())
		if err != nil {
			metrics.IncCacheOperation("load", metrics.ResultError)
			return err
		}
		metrics.IncCacheOperation("load", metrics.ResultSuccess)
		if found {
			table = t
		} else {
			logger.Printf("no cached table for scope %s, merging from sources", scope.Key())
		}
	}

	if table == nil {
		t, err := mergeFromSources(ctx, cfg, scope, db, logger)
		if err != nil {
			return err
		}
		table = t
		if cache != nil && (useCache || refreshCache) {
			if err := cache.Save(ctx, scope.Key(), table); err != nil {
				metrics.IncCacheOperation("save", metrics.ResultError)
				return err
			}
			metrics.IncCacheOperation("save", metrics.ResultSuccess)
		}
	}

	rules := defect.Library()
	defectEngine, err := defect.NewEngine(logger, defect.WithMatchObserver(metrics.ObserveRuleMatches))
	if err != nil {
		return err
	}
	if err := defectEngine.Apply(table, rules); err != nil {
		return err
	}

	return writeOutputs(cfg, scope, table, rules, logger)
}

func mergeFromSources(ctx context.Context, cfg config, scope recon.Scope, db *sql.DB, logger *log.Logger) (*recon.Table, error) {
	exceptions, err := recon.LoadExceptions(cfg.Exceptions)
	if err != nil {
		return nil, err
	}

	exportPath := cfg.dataPath(cfg.ETerraExport)
	points, err := sources.ImportPointTab(exportPath, logger)
	if err != nil {
		return nil, err
	}
	metrics.ObserveImportRows("points", len(points))
	analogs, err := sources.ImportAnalogTab(exportPath, logger)
	if err != nil {
		return nil, err
	}
	metrics.ObserveImportRows("analogs", len(analogs))
	controls, err := sources.ImportControlTab(exportPath, logger)
	if err != nil {
		return nil, err
	}
	metrics.ObserveImportRows("controls", len(controls))
	setpoints, err := sources.ImportSetpointTab(exportPath, logger)
	if err != nil {
		return nil, err
	}
	metrics.ObserveImportRows("setpoints", len(setpoints))

	rtus, err := sources.BuildRTUMap(points)
	if err != nil {
		return nil, err
	}

	inventory, err := sources.ImportInventory(cfg.dataPath(cfg.AllRTUs), exceptions.ExcludedRTUs, logger)
	if err != nil {
		return nil, err
	}
	metrics.ObserveImportRows("inventory", len(inventory))
	compare, err := sources.ImportCompare(cfg.dataPath(cfg.HabddeCompare), logger)
	if err != nil {
		return nil, err
	}
	metrics.ObserveImportRows("compare", len(compare))
	alarms, err := sources.ImportAlarmCompare(cfg.dataPath(cfg.CompareAlarms), logger)
	if err != nil {
		return nil, err
	}
	metrics.ObserveImportRows("alarms", len(alarms))
	autoTests, err := sources.ImportAutoTest(cfg.dataPath(cfg.ControlsTest), rtus, logger)
	if err != nil {
		return nil, err
	}
	metrics.ObserveImportRows("auto_tests", len(autoTests))

	var commissioning []sources.CommissioningRow
	if db != nil {
		if err := store.EnsureCommissioningSchema(ctx, db); err != nil {
			return nil, err
		}
		commissioning, err = store.LoadCommissioning(ctx, db)
		if err != nil {
			return nil, err
		}
		metrics.ObserveImportRows("commissioning", len(commissioning))
	} else {
		logger.Printf("no database configured, skipping manual commissioning results")
	}

	engine, err := recon.NewEngine(exceptions, logger, recon.WithStageObserver(metrics.ObserveStageRows))
	if err != nil {
		return nil, err
	}
	return engine.Merge(recon.Inputs{
		Points:        points,
		Analogs:       analogs,
		Controls:      controls,
		Setpoints:     setpoints,
		Inventory:     inventory,
		Compare:       compare,
		Alarms:        alarms,
		AutoTests:     autoTests,
		Commissioning: commissioning,
	}, scope)
}

func writeOutputs(cfg config, scope recon.Scope, table *recon.Table, rules []defect.Rule, logger *log.Logger) error {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return err
	}
	stem := strings.ReplaceAll(scope.Key(), ":", "_")

	workbook, err := report.BuildWorkbook(sheetsByRTU(table))
	if err != nil {
		metrics.IncExport("xlsx", metrics.ResultError)
		return err
	}
	xlsxPath := filepath.Join(cfg.OutputDir, stem+"_report.xlsx")
	if err := os.WriteFile(xlsxPath, workbook, 0o644); err != nil {
		metrics.IncExport("xlsx", metrics.ResultError)
		return err
	}
	metrics.IncExport("xlsx", metrics.ResultSuccess)
	logger.Printf("wrote %s", xlsxPath)

	summaries := make([]report.RuleSummary, 0, len(rules))
	for _, r := range rules {
		n, err := defect.MatchCount(table, r.Name)
		if err != nil {
			return err
		}
		summaries = append(summaries, report.RuleSummary{Name: r.Name, Title: r.Title, Matches: n})
	}
	pdf, err := report.BuildDefectPDF(scope.Key(), table.Len(), time.Now().UTC(), summaries)
	if err != nil {
		metrics.IncExport("pdf", metrics.ResultError)
		return err
	}
	pdfPath := filepath.Join(cfg.OutputDir, stem+"_defects.pdf")
	if err := os.WriteFile(pdfPath, pdf, 0o644); err != nil {
		metrics.IncExport("pdf", metrics.ResultError)
		return err
	}
	metrics.IncExport("pdf", metrics.ResultSuccess)
	logger.Printf("wrote %s", pdfPath)
	return nil
}

// sheetsByRTU splits the merged table into one sheet per RTU, sorted by name.
// Placeholder rows without an RTU land on a NO_RTU sheet.
func sheetsByRTU(table *recon.Table) []report.RTUSheet {
	names := map[string]bool{}
	rtuOf := func(i int) string {
		v, err := table.At(i, recon.ColRTU)
		if err != nil || v.Str() == "" {
			return "NO_RTU"
		}
		return v.Str()
	}
	for i := 0; i < table.Len(); i++ {
		names[rtuOf(i)] = true
	}
	ordered := make([]string, 0, len(names))
	for n := range names {
		ordered = append(ordered, n)
	}
	sort.Strings(ordered)

	sheets := make([]report.RTUSheet, 0, len(ordered))
	for _, name := range ordered {
		name := name
		sheets = append(sheets, report.RTUSheet{
			Name:  name,
			Table: table.Filter(func(i int) bool { return rtuOf(i) == name }),
		})
	}
	return sheets
}
