package metrics

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "recon_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	runsTotal   *prometheus.CounterVec
	runLatency  *prometheus.HistogramVec
	stageRows   *prometheus.GaugeVec
	defectRows  *prometheus.GaugeVec
	importRows  *prometheus.GaugeVec
	cacheTotal  *prometheus.CounterVec
	exportTotal *prometheus.CounterVec
)

// Init registers the pipeline metrics. Safe to call more than once.
func Init(logger *log.Logger) {
	registerOnce.Do(func() {
		runsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "runs_total",
				Help: "Total reconciliation runs by result",
			},
			[]string{"result"},
		)
		runLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "run_latency_seconds",
				Help:    "Reconciliation run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		stageRows = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "merge_stage_rows",
				Help: "Row count after each merge stage of the last run",
			},
			[]string{"stage"},
		)
		defectRows = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "defect_rule_matches",
				Help: "Rows matched per defect rule in the last run",
			},
			[]string{"rule"},
		)
		importRows = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "import_rows",
				Help: "Rows imported per source extract in the last run",
			},
			[]string{"source"},
		)
		cacheTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cache_operations_total",
				Help: "Cache operations by kind and result",
			},
			[]string{"kind", "result"},
		)
		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Report exports by format and result",
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			runsTotal,
			runLatency,
			stageRows,
			defectRows,
			importRows,
			cacheTotal,
			exportTotal,
		)

		if logger != nil {
			logger.Printf("metrics: registered pipeline collectors")
		}
	})
}

// ObserveRun records one run's latency and result.
func ObserveRun(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if runsTotal != nil {
		runsTotal.WithLabelValues(result).Inc()
	}
	if runLatency != nil {
		runLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveStageRows sets the row count after one merge stage.
func ObserveStageRows(stage string, rows int) {
	if stage == "" {
		stage = "unknown"
	}
	if stageRows != nil {
		stageRows.WithLabelValues(stage).Set(float64(rows))
	}
}

// ObserveRuleMatches sets the matched row count for one defect rule.
func ObserveRuleMatches(rule string, matches int) {
	if rule == "" {
		rule = "unknown"
	}
	if defectRows != nil {
		defectRows.WithLabelValues(rule).Set(float64(matches))
	}
}

// ObserveImportRows sets the imported row count for one source extract.
func ObserveImportRows(source string, rows int) {
	if source == "" {
		source = "unknown"
	}
	if importRows != nil {
		importRows.WithLabelValues(source).Set(float64(rows))
	}
}

// IncCacheOperation counts one cache load or save by result.
func IncCacheOperation(kind, result string) {
	if kind == "" {
		kind = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if cacheTotal != nil {
		cacheTotal.WithLabelValues(kind, result).Inc()
	}
}

// IncExport counts one report export by format and result.
func IncExport(format, result string) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
