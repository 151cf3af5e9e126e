package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/weighting-backend/internal/observability"
)

// WriteVolume counts the rows one successful weighting write touched.
type WriteVolume struct {
	PlansWritten      int
	TargetsWritten    int
	PlansDeleted      int
	TargetsDeleted    int
	ContextsDeleted   int
	WeightRows        int
	RootWeights       bool
	ReportsUnweighted int
}

// Hooks receives aggregate outcomes. ObserveWrite fires only after a write
// committed.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
	ObserveWrite(name string, v WriteVolume)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}
func (noopHooks) ObserveWrite(string, WriteVolume)               {}

type metricsHooks struct {
	metrics *observability.Metrics
}

// NewMetricsHooks reports aggregate outcomes to Prometheus. A nil metrics
// disables reporting.
func NewMetricsHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return &metricsHooks{metrics: metrics}
}

func (h *metricsHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.metrics.ObserveAggregateOperation(strings.TrimSpace(name), strings.TrimSpace(status), dur)
}

func (h *metricsHooks) IncConflict(name string) {
	h.metrics.IncAggregateConflict(strings.TrimSpace(name))
}

func (h *metricsHooks) IncRetry(name string) {
	h.metrics.IncAggregateRetry(strings.TrimSpace(name))
}

func (h *metricsHooks) ObserveWrite(_ string, v WriteVolume) {
	if v.PlansWritten > 0 || v.TargetsWritten > 0 {
		h.metrics.AddPlanNodesWritten(v.PlansWritten, v.TargetsWritten)
	}
	if v.PlansDeleted > 0 || v.TargetsDeleted > 0 || v.ContextsDeleted > 0 {
		h.metrics.AddPlanNodesDeleted(v.PlansDeleted, v.TargetsDeleted, v.ContextsDeleted)
	}
	if v.WeightRows > 0 {
		h.metrics.AddWeightRows(v.RootWeights, v.WeightRows)
	}
	if v.ReportsUnweighted > 0 {
		h.metrics.AddReportsUnweighted(v.ReportsUnweighted)
	}
}
