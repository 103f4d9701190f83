package model

import "time"

// GenerationEventType names a lifecycle event.
type GenerationEventType string

const (
	GenerationEventCompleted GenerationEventType = "completed"
	GenerationEventFailed    GenerationEventType = "failed"
)

// GenerationEvent is published after a job reaches a terminal status.
type GenerationEvent struct {
	Type         GenerationEventType `json:"type"`
	JobID        string              `json:"job_id"`
	GroupID      string              `json:"group_id"`
	ExternalID   string              `json:"external_id,omitempty"`
	Kind         Kind                `json:"kind"`
	VariantIndex int                 `json:"variant_index"`
	AssetRef     string              `json:"asset_ref,omitempty"`
	Error        string              `json:"error,omitempty"`
	OccurredAt   time.Time           `json:"occurred_at"`
}
