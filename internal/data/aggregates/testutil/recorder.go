package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/weighting-backend/internal/data/aggregates"
)

// OperationRecorder collects aggregate hook signals so tests can assert
// which weighting operations ran and how they ended.
type OperationRecorder struct {
	mu sync.Mutex

	Operations []Operation
	Conflicts  []string
	Retries    []string
	Writes     []Write
}

type Operation struct {
	Name     string
	Status   string
	Duration time.Duration
}

type Write struct {
	Name   string
	Volume aggregates.WriteVolume
}

var _ aggregates.Hooks = (*OperationRecorder)(nil)

func (r *OperationRecorder) ObserveOperation(name, status string, dur time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Operations = append(r.Operations, Operation{Name: name, Status: status, Duration: dur})
}

func (r *OperationRecorder) IncConflict(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Conflicts = append(r.Conflicts, name)
}

func (r *OperationRecorder) IncRetry(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Retries = append(r.Retries, name)
}

func (r *OperationRecorder) ObserveWrite(name string, v aggregates.WriteVolume) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Writes = append(r.Writes, Write{Name: name, Volume: v})
}

// Total sums the write volume reported by every committed run of name.
func (r *OperationRecorder) Total(name string) aggregates.WriteVolume {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out aggregates.WriteVolume
	for _, w := range r.Writes {
		if w.Name != name {
			continue
		}
		out.PlansWritten += w.Volume.PlansWritten
		out.TargetsWritten += w.Volume.TargetsWritten
		out.PlansDeleted += w.Volume.PlansDeleted
		out.TargetsDeleted += w.Volume.TargetsDeleted
		out.ContextsDeleted += w.Volume.ContextsDeleted
		out.WeightRows += w.Volume.WeightRows
		out.ReportsUnweighted += w.Volume.ReportsUnweighted
		out.RootWeights = out.RootWeights || w.Volume.RootWeights
	}
	return out
}

// Names lists operation names in the order they finished.
func (r *OperationRecorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Operations))
	for _, op := range r.Operations {
		out = append(out, op.Name)
	}
	return out
}

// StatusOf reports the status of the most recent run of name.
func (r *OperationRecorder) StatusOf(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.Operations) - 1; i >= 0; i-- {
		if r.Operations[i].Name == name {
			return r.Operations[i].Status, true
		}
	}
	return "", false
}
