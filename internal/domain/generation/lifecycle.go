// Package generation holds the pure lifecycle rules for generation jobs:
// permitted transitions, variant fan-out planning and status aggregation.
package generation

import "github.com/target/mmk-genstudio/internal/domain/model"

// CanTransition reports whether a job may move from one status to another.
// queued -> generating -> completed | failed, and any in-flight status may fail.
func CanTransition(from, to model.Status) bool {
	switch from {
	case model.StatusQueued:
		return to == model.StatusGenerating || to == model.StatusFailed
	case model.StatusGenerating:
		return to == model.StatusCompleted || to == model.StatusFailed
	default:
		return false
	}
}

// Aggregate folds the statuses of a group into the status-check outcome.
//
// completed: nothing in flight and at least one job completed.
// error: nothing in flight and no job completed.
// processing: anything still queued or generating.
func Aggregate(jobs []*model.GenerationJob) model.CheckState {
	if len(jobs) == 0 {
		return model.CheckStateProcessing
	}
	completed := 0
	for _, j := range jobs {
		if j.InFlight() {
			return model.CheckStateProcessing
		}
		if j.Status == model.StatusCompleted {
			completed++
		}
	}
	if completed > 0 {
		return model.CheckStateCompleted
	}
	return model.CheckStateError
}
