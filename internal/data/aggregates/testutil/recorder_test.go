package testutil

import (
	"testing"
	"time"

	"github.com/yungbote/weighting-backend/internal/data/aggregates"
)

func TestOperationRecorderKeepsLatestStatus(t *testing.T) {
	r := &OperationRecorder{}
	r.ObserveOperation("Weighting.Plan.CreateWeightingPlan", "validation", time.Millisecond)
	r.ObserveOperation("Weighting.Response.CreateResponseWeights", "success", time.Millisecond)
	r.ObserveOperation("Weighting.Plan.CreateWeightingPlan", "success", time.Millisecond)
	r.IncConflict("Weighting.Plan.CreateWeightingPlan")
	r.IncRetry("Weighting.Response.CreateResponseWeights")

	names := r.Names()
	if len(names) != 3 || names[1] != "Weighting.Response.CreateResponseWeights" {
		t.Fatalf("unexpected names: %v", names)
	}
	if status, ok := r.StatusOf("Weighting.Plan.CreateWeightingPlan"); !ok || status != "success" {
		t.Fatalf("latest status: ok=%t status=%s", ok, status)
	}
	if _, ok := r.StatusOf("Weighting.Plan.DeleteWeightingPlan"); ok {
		t.Fatalf("unrecorded operation reported a status")
	}
	if len(r.Conflicts) != 1 || len(r.Retries) != 1 {
		t.Fatalf("conflicts=%v retries=%v", r.Conflicts, r.Retries)
	}
}

func TestOperationRecorderSumsWrites(t *testing.T) {
	r := &OperationRecorder{}
	const op = "Weighting.Response.CreateResponseWeights"
	r.ObserveWrite(op, aggregates.WriteVolume{WeightRows: 3})
	r.ObserveWrite(op, aggregates.WriteVolume{WeightRows: 2, RootWeights: true})
	r.ObserveWrite("Weighting.Plan.DeleteWeightingPlan", aggregates.WriteVolume{PlansDeleted: 1})

	got := r.Total(op)
	if got.WeightRows != 5 || !got.RootWeights || got.PlansDeleted != 0 {
		t.Fatalf("unexpected total: %+v", got)
	}
	if empty := r.Total("Weighting.Plan.CreateWeightingPlan"); empty != (aggregates.WriteVolume{}) {
		t.Fatalf("unrecorded operation has volume: %+v", empty)
	}
}
