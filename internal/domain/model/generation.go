// Package model defines the core data types shared by the generation lifecycle services.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind identifies the type of asset a generation job produces.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type Kind string

// Status represents the lifecycle state of a generation job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type Status string

const (
	// KindMusic is an audio track.
	KindMusic Kind = "music"
	// KindArtwork is a still image.
	KindArtwork Kind = "artwork"
	// KindVideo is a video clip rendered from a source image.
	KindVideo Kind = "video"

	// StatusQueued indicates a placeholder row exists but the provider has not accepted work yet.
	StatusQueued Status = "queued"
	// StatusGenerating indicates the provider accepted the request and the job awaits results.
	StatusGenerating Status = "generating"
	// StatusCompleted indicates the asset was materialized into durable storage.
	StatusCompleted Status = "completed"
	// StatusFailed indicates the job ended without an asset.
	StatusFailed Status = "failed"
)

// ErrInvalidKind is returned when a kind string is not recognised.
var ErrInvalidKind = errors.New("invalid generation kind")

// Valid returns true if the Kind is valid.
func (k Kind) Valid() bool {
	return k == KindMusic || k == KindArtwork || k == KindVideo
}

// UnmarshalText implements encoding.TextUnmarshaler for Kind.
func (k *Kind) UnmarshalText(text []byte) error {
	v := Kind(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(text))
	}
	*k = v
	return nil
}

// Valid returns true if the Status is valid.
func (s Status) Valid() bool {
	return s == StatusQueued || s == StatusGenerating || s == StatusCompleted || s == StatusFailed
}

// UnmarshalText implements encoding.TextUnmarshaler for Status.
func (s *Status) UnmarshalText(text []byte) error {
	v := Status(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid generation status: %q", string(text))
	}
	*s = v
	return nil
}

// IsTerminal reports whether no further transitions are permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// GenerationJob is one requested asset: a single track, image or video.
type GenerationJob struct {
	ID           string     `json:"id"`
	Kind         Kind       `json:"kind"`
	Status       Status     `json:"status"`
	ExternalID   string     `json:"external_id,omitempty"`
	GroupID      string     `json:"group_id"`
	VariantIndex int        `json:"variant_index"`
	DisplayName  string     `json:"display_name"`
	AssetRef     string     `json:"asset_ref,omitempty"`
	Attributes   Attributes `json:"attributes"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Error returns the failure reason recorded in the job attributes.
func (j *GenerationJob) Error() string {
	if j == nil || j.Attributes == nil {
		return ""
	}
	return j.Attributes.Meta().Error
}

// InFlight reports whether the job still awaits a terminal outcome.
func (j *GenerationJob) InFlight() bool {
	return j != nil && !j.Status.IsTerminal()
}

// UnmarshalJSON decodes the attributes using the job kind as the discriminator.
func (j *GenerationJob) UnmarshalJSON(data []byte) error {
	type alias GenerationJob
	aux := struct {
		*alias
		Attributes json.RawMessage `json:"attributes"`
	}{alias: (*alias)(j)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	attrs, err := DecodeAttributes(j.Kind, aux.Attributes)
	if err != nil {
		return err
	}
	j.Attributes = attrs
	return nil
}

// GenerationSummary is the listing read model.
type GenerationSummary struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	DisplayName  string    `json:"display_name"`
	Status       Status    `json:"status"`
	AssetRef     string    `json:"asset_ref,omitempty"`
	VariantIndex int       `json:"variant_index"`
	GroupID      string    `json:"group_id"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summarize projects a job into its listing read model.
func (j *GenerationJob) Summarize() GenerationSummary {
	return GenerationSummary{
		ID:           j.ID,
		Kind:         j.Kind,
		DisplayName:  j.DisplayName,
		Status:       j.Status,
		AssetRef:     j.AssetRef,
		VariantIndex: j.VariantIndex,
		GroupID:      j.GroupID,
		Error:        j.Error(),
		CreatedAt:    j.CreatedAt,
	}
}

// CreateGenerationJobRequest carries the fields of a new job row.
// ID and GroupID are assigned by the caller so a group can be created row by row.
type CreateGenerationJobRequest struct {
	ID           string
	Kind         Kind
	Status       Status
	ExternalID   string
	GroupID      string
	VariantIndex int
	DisplayName  string
	Attributes   Attributes
}

// Validate validates the CreateGenerationJobRequest fields.
func (r *CreateGenerationJobRequest) Validate() error {
	if r.ID == "" || r.GroupID == "" {
		return errors.New("id and group id are required")
	}
	if !r.Kind.Valid() {
		return ErrInvalidKind
	}
	if r.Status != StatusQueued && r.Status != StatusGenerating {
		return fmt.Errorf("new jobs must start queued or generating, got %q", r.Status)
	}
	if r.Status == StatusGenerating && r.ExternalID == "" {
		return errors.New("generating jobs require an external id")
	}
	if r.VariantIndex < 1 {
		return errors.New("variant index must be >= 1")
	}
	if r.Attributes != nil && r.Attributes.Kind() != r.Kind {
		return fmt.Errorf("attributes of kind %q do not match job kind %q", r.Attributes.Kind(), r.Kind)
	}
	return nil
}

// CompleteGenerationParams describes the write that finalizes a materialized job.
type CompleteGenerationParams struct {
	ID          string
	AssetRef    string
	DisplayName string
	Attributes  Attributes
}

// GenerationListOptions groups parameters for the listing read model.
type GenerationListOptions struct {
	Kind   *Kind   // Optional filter by kind
	Status *Status // Optional filter by status
	Limit  int
	Offset int
}

// StaleGenerationQuery selects in-flight jobs untouched since UpdatedBefore.
type StaleGenerationQuery struct {
	Statuses      []Status
	UpdatedBefore time.Time
	Limit         int
}

// ActiveGenerationQuery selects generating jobs touched after UpdatedAfter.
type ActiveGenerationQuery struct {
	UpdatedAfter time.Time
	Limit        int
}
