package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/esportubt/discord-bot/internal/reconcile"
)

// Config carries the constant labels attached to every metric.
type Config struct {
	ServiceName string
	Environment string
}

// SyncMetrics instruments reconciliation runs.
type SyncMetrics struct {
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	lastRunSize *prometheus.GaugeVec
}

var (
	syncMetricsOnce sync.Once
	syncMetrics     *SyncMetrics
)

func Sync() *SyncMetrics {
	return SyncWithConfig(Config{})
}

func SyncWithConfig(cfg Config) *SyncMetrics {
	syncMetricsOnce.Do(func() {
		syncMetrics = newSyncMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return syncMetrics
}

func ResetSyncMetricsForTest() {
	syncMetricsOnce = sync.Once{}
	syncMetrics = nil
}

func newSyncMetrics(registerer prometheus.Registerer, cfg Config) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "rolesync"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "rolesync_runs_total",
			Help:        "Reconciliation runs by mode and outcome.",
			ConstLabels: constLabels,
		},
		[]string{"mode", "outcome"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "rolesync_run_duration_seconds",
			Help:        "Reconciliation run duration.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"mode"},
	)
	lastRunSize := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "rolesync_last_run_entries",
			Help:        "Entry counts of the most recent completed run.",
			ConstLabels: constLabels,
		},
		[]string{"list"},
	)

	registerer.MustRegister(runsTotal, runDuration, lastRunSize)

	return &SyncMetrics{
		runsTotal:   runsTotal,
		runDuration: runDuration,
		lastRunSize: lastRunSize,
	}
}

// ObserveRun implements reconcile.Metrics.
func (m *SyncMetrics) ObserveRun(mode reconcile.Mode, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(string(mode), outcome).Inc()
	m.runDuration.WithLabelValues(string(mode)).Observe(duration.Seconds())
}

// SetLastRunCounts implements reconcile.Metrics.
func (m *SyncMetrics) SetLastRunCounts(granted, revoked, unresolved, forbidden int) {
	if m == nil {
		return
	}
	m.lastRunSize.WithLabelValues("granted").Set(float64(granted))
	m.lastRunSize.WithLabelValues("revoked").Set(float64(revoked))
	m.lastRunSize.WithLabelValues("unresolved").Set(float64(unresolved))
	m.lastRunSize.WithLabelValues("forbidden").Set(float64(forbidden))
}
