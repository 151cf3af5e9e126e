package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsAggregateCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveAggregateOperation("weighting.plan.update", "success", 20*time.Millisecond)
	m.ObserveAggregateOperation("weighting.plan.update", "success", 40*time.Millisecond)
	m.ObserveAggregateOperation(" ", "conflict", time.Millisecond)
	m.IncAggregateConflict("weighting.plan.update")
	m.AddWeightRows(true, 3)
	m.AddWeightRows(false, 0)
	m.AddReportsUnweighted(2)

	if got := promtest.ToFloat64(m.aggregateOps.WithLabelValues("weighting.plan.update", "success")); got != 2 {
		t.Fatalf("success ops: want=2 got=%v", got)
	}
	if got := promtest.ToFloat64(m.aggregateOps.WithLabelValues("unknown", "conflict")); got != 1 {
		t.Fatalf("blank op label: want=1 got=%v", got)
	}
	if got := promtest.ToFloat64(m.aggregateConflicts.WithLabelValues("weighting.plan.update")); got != 1 {
		t.Fatalf("conflicts: want=1 got=%v", got)
	}
	if got := promtest.ToFloat64(m.weightRowsWritten.WithLabelValues("root")); got != 3 {
		t.Fatalf("root weight rows: want=3 got=%v", got)
	}
	if got := promtest.ToFloat64(m.reportsUnweighted); got != 2 {
		t.Fatalf("reports unweighted: want=2 got=%v", got)
	}
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics
	m.ObserveAggregateOperation("op", "success", time.Second)
	m.IncAggregateConflict("op")
	m.IncAggregateRetry("op")
	m.AddPlanNodesWritten(1, 2)
	m.AddPlanNodesDeleted(1, 2, 3)
	m.AddWeightRows(true, 1)
	m.AddReportsUnweighted(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 503 {
		t.Fatalf("nil handler status: want=503 got=%d", rec.Code)
	}
}

func TestMetricsHandlerExposesRegistry(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddPlanNodesWritten(2, 5)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	res, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(body), `weighting_plan_nodes_written_total{kind="target"} 5`) {
		t.Fatalf("scrape output missing plan node counter:\n%s", body)
	}
}
