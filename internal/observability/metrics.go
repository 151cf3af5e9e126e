package observability

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/yungbote/weighting-backend/internal/platform/logger"
)

type Metrics struct {
	registry *prometheus.Registry

	aggregateOps       *prometheus.CounterVec
	aggregateLatency   *prometheus.HistogramVec
	aggregateConflicts *prometheus.CounterVec
	aggregateRetries   *prometheus.CounterVec

	planNodesWritten  *prometheus.CounterVec
	planNodesDeleted  *prometheus.CounterVec
	weightRowsWritten *prometheus.CounterVec
	reportsUnweighted prometheus.Counter

	pgStats *prometheus.GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 15 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 15 * time.Second
	}
	return time.Duration(n) * time.Second
}

// Init builds the process-wide metrics when METRICS_ENABLED is set and
// returns nil otherwise. Every method tolerates a nil receiver.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics(prometheus.NewRegistry())
		if log != nil {
			log.Info("metrics initialized")
		}
	})
	return instance
}

// NewMetrics registers the weighting metrics on reg. Tests pass a fresh
// registry; Init uses one per process.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		aggregateOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "weighting_aggregate_operations_total",
			Help: "Aggregate operations by operation and status.",
		}, []string{"op", "status"}),
		aggregateLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weighting_aggregate_operation_duration_seconds",
			Help:    "Aggregate operation latency in seconds by operation and status.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 180},
		}, []string{"op", "status"}),
		aggregateConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "weighting_aggregate_conflicts_total",
			Help: "Aggregate writes that failed on a uniqueness or concurrency conflict.",
		}, []string{"op"}),
		aggregateRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "weighting_aggregate_retryable_total",
			Help: "Aggregate writes that failed with a retryable error.",
		}, []string{"op"}),
		planNodesWritten: f.NewCounterVec(prometheus.CounterOpts{
			Name: "weighting_plan_nodes_written_total",
			Help: "Plan and target rows inserted or upserted.",
		}, []string{"kind"}),
		planNodesDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "weighting_plan_nodes_deleted_total",
			Help: "Plan, target and context rows removed by subtree deletes.",
		}, []string{"kind"}),
		weightRowsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Name: "weighting_response_weights_written_total",
			Help: "Response weight rows inserted, by context kind.",
		}, []string{"context"}),
		reportsUnweighted: f.NewCounter(prometheus.CounterOpts{
			Name: "weighting_saved_reports_unweighted_total",
			Help: "Saved reports whose weighted flag was cleared by a subset delete.",
		}),
		pgStats: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "weighting_db_pool",
			Help: "database/sql pool statistics.",
		}, []string{"stat"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	op = normalizeLabel(op)
	status = normalizeLabel(status)
	m.aggregateOps.WithLabelValues(op, status).Inc()
	m.aggregateLatency.WithLabelValues(op, status).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.WithLabelValues(normalizeLabel(op)).Inc()
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetries.WithLabelValues(normalizeLabel(op)).Inc()
}

func (m *Metrics) AddPlanNodesWritten(plans, targets int) {
	if m == nil {
		return
	}
	m.planNodesWritten.WithLabelValues("plan").Add(float64(plans))
	m.planNodesWritten.WithLabelValues("target").Add(float64(targets))
}

func (m *Metrics) AddPlanNodesDeleted(plans, targets, contexts int) {
	if m == nil {
		return
	}
	m.planNodesDeleted.WithLabelValues("plan").Add(float64(plans))
	m.planNodesDeleted.WithLabelValues("target").Add(float64(targets))
	m.planNodesDeleted.WithLabelValues("context").Add(float64(contexts))
}

// AddWeightRows counts inserted weight rows; root selects the context label.
func (m *Metrics) AddWeightRows(root bool, n int) {
	if m == nil || n <= 0 {
		return
	}
	label := "target"
	if root {
		label = "root"
	}
	m.weightRowsWritten.WithLabelValues(label).Add(float64(n))
}

func (m *Metrics) AddReportsUnweighted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.reportsUnweighted.Add(float64(n))
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.collectPoolStats(log, db)
			}
		}
	}()
}

func (m *Metrics) collectPoolStats(log *logger.Logger, db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		if log != nil {
			log.Warn("metrics: db stats unavailable", "error", err)
		}
		return
	}
	stats := sqlDB.Stats()
	m.pgStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
	m.pgStats.WithLabelValues("in_use").Set(float64(stats.InUse))
	m.pgStats.WithLabelValues("idle").Set(float64(stats.Idle))
	m.pgStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
	m.pgStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
	m.pgStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
}

func normalizeLabel(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
