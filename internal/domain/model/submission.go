package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MaxVariants caps the number of placeholders a single submission may request.
const MaxVariants = 8

// SubmitRequest asks for M variants of one asset.
type SubmitRequest struct {
	Kind        Kind
	DisplayName string
	Variants    int
	Attributes  Attributes
}

// submitRequestJSON is the wire shape; attributes decode by kind.
type submitRequestJSON struct {
	Kind        Kind            `json:"kind"`
	DisplayName string          `json:"display_name"`
	Variants    int             `json:"variants"`
	Attributes  json.RawMessage `json:"attributes"`
}

// UnmarshalJSON decodes a submission, using kind to pick the attributes type.
func (r *SubmitRequest) UnmarshalJSON(data []byte) error {
	var raw submitRequestJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !raw.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, raw.Kind)
	}
	attrs, err := DecodeAttributes(raw.Kind, raw.Attributes)
	if err != nil {
		return err
	}
	*r = SubmitRequest{
		Kind:        raw.Kind,
		DisplayName: raw.DisplayName,
		Variants:    raw.Variants,
		Attributes:  attrs,
	}
	return nil
}

// Normalize fills defaults: one variant and a display name derived from the prompt.
func (r *SubmitRequest) Normalize() {
	if r.Variants == 0 {
		r.Variants = 1
	}
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	if r.DisplayName == "" && r.Attributes != nil {
		r.DisplayName = DisplayNameFromPrompt(r.Attributes.Prompt())
	}
}

// Validate validates the SubmitRequest fields.
func (r *SubmitRequest) Validate() error {
	if !r.Kind.Valid() {
		return ErrInvalidKind
	}
	if r.Variants < 1 || r.Variants > MaxVariants {
		return fmt.Errorf("variants must be between 1 and %d", MaxVariants)
	}
	if r.Attributes == nil {
		return errors.New("attributes are required")
	}
	if r.Attributes.Kind() != r.Kind {
		return fmt.Errorf("attributes of kind %q do not match kind %q", r.Attributes.Kind(), r.Kind)
	}
	return ValidateAttributes(r.Attributes)
}

// DisplayNameFromPrompt shortens a prompt into a display name.
func DisplayNameFromPrompt(prompt string) string {
	const maxLen = 80
	p := strings.Join(strings.Fields(prompt), " ")
	if len([]rune(p)) <= maxLen {
		return p
	}
	return strings.TrimSpace(string([]rune(p)[:maxLen])) + "…"
}

// SubmitResult reports the placeholders created for a submission.
type SubmitResult struct {
	GroupID    string   `json:"group_id"`
	JobIDs     []string `json:"job_ids"`
	ExternalID string   `json:"external_id,omitempty"`
}

// CheckState is the aggregate outcome of a status check.
type CheckState string

const (
	CheckStateProcessing CheckState = "processing"
	CheckStateCompleted  CheckState = "completed"
	CheckStateError      CheckState = "error"
)

// CheckStatusResult reports what a status check observed and changed.
type CheckStatusResult struct {
	Status        CheckState `json:"status"`
	UpdatedJobIDs []string   `json:"updated_job_ids"`
	// Retryable is set when the provider could not be reached and the caller should try later.
	Retryable bool   `json:"retryable,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ReconcileResult summarises one reconciler sweep.
type ReconcileResult struct {
	Checked      int `json:"checked"`
	ForcedFailed int `json:"forced_failed"`
}
