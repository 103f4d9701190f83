package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Attributes is the kind-specific payload of a generation job. The concrete
// type is always one of MusicAttributes, ArtworkAttributes or VideoAttributes.
type Attributes interface {
	Kind() Kind
	Meta() AssetMeta
	// Prompt returns the user prompt, used as the display-name fallback.
	Prompt() string

	withMeta(AssetMeta) Attributes
}

// AssetMeta holds the fields every kind records once the provider responds.
type AssetMeta struct {
	Error          string `json:"error,omitempty"`
	ProviderItemID string `json:"provider_item_id,omitempty"`
	SourceURL      string `json:"source_url,omitempty"`
	ContentType    string `json:"content_type,omitempty"`
	SizeBytes      int64  `json:"size_bytes,omitempty"`
}

// MusicAttributes describes a track request and result.
type MusicAttributes struct {
	PromptText      string   `json:"prompt"`
	Tags            []string `json:"tags,omitempty"`
	Instrumental    bool     `json:"instrumental"`
	Model           string   `json:"model,omitempty"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
	AssetMeta
}

// ArtworkAttributes describes an image request and result.
type ArtworkAttributes struct {
	PromptText string `json:"prompt"`
	Style      string `json:"style,omitempty"`
	Model      string `json:"model,omitempty"`
	AssetMeta
}

// VideoAttributes describes an image-to-video request and result.
type VideoAttributes struct {
	PromptText      string  `json:"prompt,omitempty"`
	SourceImageID   string  `json:"source_image_id"`
	Model           string  `json:"model,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	AssetMeta
}

func (MusicAttributes) Kind() Kind   { return KindMusic }
func (ArtworkAttributes) Kind() Kind { return KindArtwork }
func (VideoAttributes) Kind() Kind   { return KindVideo }

func (a MusicAttributes) Meta() AssetMeta   { return a.AssetMeta }
func (a ArtworkAttributes) Meta() AssetMeta { return a.AssetMeta }
func (a VideoAttributes) Meta() AssetMeta   { return a.AssetMeta }

func (a MusicAttributes) Prompt() string   { return a.PromptText }
func (a ArtworkAttributes) Prompt() string { return a.PromptText }
func (a VideoAttributes) Prompt() string   { return a.PromptText }

func (a MusicAttributes) withMeta(m AssetMeta) Attributes {
	a.AssetMeta = m
	return a
}

func (a ArtworkAttributes) withMeta(m AssetMeta) Attributes {
	a.AssetMeta = m
	return a
}

func (a VideoAttributes) withMeta(m AssetMeta) Attributes {
	a.AssetMeta = m
	return a
}

// WithError returns a copy of attrs carrying the failure reason.
func WithError(attrs Attributes, reason string) Attributes {
	m := attrs.Meta()
	m.Error = reason
	return attrs.withMeta(m)
}

// WithAsset returns a copy of attrs recording the materialized asset.
func WithAsset(attrs Attributes, meta AssetMeta) Attributes {
	m := attrs.Meta()
	m.ProviderItemID = meta.ProviderItemID
	m.SourceURL = meta.SourceURL
	m.ContentType = meta.ContentType
	m.SizeBytes = meta.SizeBytes
	m.Error = ""
	return attrs.withMeta(m)
}

// WithDuration returns a copy of attrs with the provider-reported duration,
// for kinds that carry one. A zero duration leaves attrs unchanged.
func WithDuration(attrs Attributes, seconds float64) Attributes {
	if seconds <= 0 {
		return attrs
	}
	switch a := attrs.(type) {
	case MusicAttributes:
		a.DurationSeconds = seconds
		return a
	case VideoAttributes:
		a.DurationSeconds = seconds
		return a
	default:
		return attrs
	}
}

// EmptyAttributes returns the zero attributes value for kind.
func EmptyAttributes(kind Kind) (Attributes, error) {
	switch kind {
	case KindMusic:
		return MusicAttributes{}, nil
	case KindArtwork:
		return ArtworkAttributes{}, nil
	case KindVideo:
		return VideoAttributes{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
}

// DecodeAttributes decodes raw JSON into the attributes type for kind.
// Empty input yields the zero value for the kind.
func DecodeAttributes(kind Kind, raw []byte) (Attributes, error) {
	empty := len(raw) == 0 || string(raw) == "null"
	switch kind {
	case KindMusic:
		var a MusicAttributes
		if !empty {
			if err := json.Unmarshal(raw, &a); err != nil {
				return nil, fmt.Errorf("decode music attributes: %w", err)
			}
		}
		return a, nil
	case KindArtwork:
		var a ArtworkAttributes
		if !empty {
			if err := json.Unmarshal(raw, &a); err != nil {
				return nil, fmt.Errorf("decode artwork attributes: %w", err)
			}
		}
		return a, nil
	case KindVideo:
		var a VideoAttributes
		if !empty {
			if err := json.Unmarshal(raw, &a); err != nil {
				return nil, fmt.Errorf("decode video attributes: %w", err)
			}
		}
		return a, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
}

// EncodeAttributes marshals attrs for storage. Nil encodes as an empty object.
func EncodeAttributes(attrs Attributes) ([]byte, error) {
	if attrs == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(attrs)
}

// ValidateAttributes checks the kind-specific required fields of a submission.
func ValidateAttributes(attrs Attributes) error {
	switch a := attrs.(type) {
	case MusicAttributes:
		if strings.TrimSpace(a.PromptText) == "" {
			return errors.New("music prompt is required")
		}
		if a.DurationSeconds < 0 {
			return errors.New("duration must be >= 0")
		}
	case ArtworkAttributes:
		if strings.TrimSpace(a.PromptText) == "" {
			return errors.New("artwork prompt is required")
		}
	case VideoAttributes:
		if strings.TrimSpace(a.SourceImageID) == "" {
			return errors.New("video source image id is required")
		}
	case nil:
		return errors.New("attributes are required")
	default:
		return fmt.Errorf("unsupported attributes type %T", attrs)
	}
	return nil
}
