package provider

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/target/mmk-genstudio/internal/domain/model"
)

// PathSet lists the JMESPath expressions tried, in order, for each field of a
// provider response. The first expression yielding a usable value wins.
type PathSet struct {
	// Items locate the result list; "@" matches a bare top-level array.
	Items []string
	// ExternalID locate the task identifier on the response root.
	ExternalID []string
	// RootStatus and RootError locate a whole-request status and message.
	RootStatus []string
	RootError  []string

	ItemID       []string
	ItemURL      []string
	ItemTitle    []string
	ItemStatus   []string
	ItemDuration []string
	ItemError    []string
}

// DefaultPaths covers the response shapes seen from the supported providers:
// a bare list, {data:{items:[...]}}, {data:{items:{items:[...]}}}, wrapped
// task envelopes and single-object results.
var DefaultPaths = PathSet{
	Items: []string{
		"@",
		"data.items",
		"data.items.items",
		"data.response.sunoData",
		"data.response.items",
		"data.data",
		"data",
		"items",
		"clips",
		"results",
		"output.results",
	},
	ExternalID: []string{
		"taskId", "task_id", "data.taskId", "data.task_id",
		"id", "data.id", "request_id", "requestId", "data.request_id",
	},
	RootStatus: []string{"data.status", "data.state", "status", "state"},
	RootError:  []string{"data.errorMessage", "data.error_message", "errorMessage", "error_message", "error.message", "error"},

	ItemID: []string{"id", "clip_id", "clipId", "audioId", "audio_id"},
	ItemURL: []string{
		"audio_url", "audioUrl", "image_url", "imageUrl", "video_url", "videoUrl",
		"assetUrl", "asset_url", "url", "output.url", "output[0]",
	},
	ItemTitle:    []string{"title", "name", "metadata.title"},
	ItemStatus:   []string{"status", "state", "metadata.status"},
	ItemDuration: []string{"duration", "duration_seconds", "durationSeconds", "metadata.duration"},
	ItemError:    []string{"error_message", "errorMessage", "fail_reason", "failReason", "error.message", "error", "metadata.error_message"},
}

var successTokens = map[string]struct{}{
	"complete": {}, "completed": {}, "succeeded": {}, "success": {}, "succeed": {},
	"done": {}, "finished": {}, "ready": {},
}

var failureTokens = map[string]struct{}{
	"failed": {}, "failure": {}, "error": {}, "errored": {}, "cancelled": {}, "canceled": {},
	"rejected": {}, "create_task_failed": {}, "generate_audio_failed": {},
	"callback_exception": {}, "sensitive_word_error": {}, "content_policy_violation": {},
}

// IsSuccessStatus reports whether a provider status string means the result is ready.
func IsSuccessStatus(status string) bool {
	_, ok := successTokens[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// IsFailureStatus reports whether a provider status string is an explicit failure.
func IsFailureStatus(status string) bool {
	_, ok := failureTokens[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// Normalizer turns heterogeneous provider JSON into a model.ProviderReport.
type Normalizer struct {
	paths PathSet
}

// NewNormalizer compiles every expression in paths up front so a typo fails at wiring time.
func NewNormalizer(paths PathSet) (*Normalizer, error) {
	groups := [][]string{
		paths.Items, paths.ExternalID, paths.RootStatus, paths.RootError,
		paths.ItemID, paths.ItemURL, paths.ItemTitle, paths.ItemStatus,
		paths.ItemDuration, paths.ItemError,
	}
	for _, group := range groups {
		for _, expr := range group {
			if _, err := jmespath.Compile(expr); err != nil {
				return nil, fmt.Errorf("invalid jmespath expression %q: %w", expr, err)
			}
		}
	}
	return &Normalizer{paths: paths}, nil
}

// DefaultNormalizer returns a Normalizer over DefaultPaths.
func DefaultNormalizer() *Normalizer {
	n, err := NewNormalizer(DefaultPaths)
	if err != nil {
		//nolint:forbidigo // DefaultPaths is static; a compile failure is a programming error
		panic(err)
	}
	return n
}

// Normalize parses body. It never fails: unparseable or unrecognised input
// yields a report with no items, which callers treat as "nothing actionable".
func (n *Normalizer) Normalize(body []byte) model.ProviderReport {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return model.ProviderReport{}
	}
	return n.NormalizeValue(root)
}

// NormalizeValue is Normalize over an already-decoded JSON document.
func (n *Normalizer) NormalizeValue(root any) model.ProviderReport {
	report := model.ProviderReport{}
	if _, isObject := root.(map[string]any); isObject {
		report.ExternalID = firstString(root, n.paths.ExternalID)
		if status := firstString(root, n.paths.RootStatus); IsFailureStatus(status) {
			report.Failed = true
			report.FailureReason = firstString(root, n.paths.RootError)
			if report.FailureReason == "" {
				report.FailureReason = "provider reported " + strings.ToLower(status)
			}
		}
	}

	for _, raw := range n.itemList(root) {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		report.Items = append(report.Items, n.item(obj))
	}
	return report
}

// ExternalID extracts the task identifier from body, or "" when none is present.
func (n *Normalizer) ExternalID(body []byte) string {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return ""
	}
	return firstString(root, n.paths.ExternalID)
}

func (n *Normalizer) itemList(root any) []any {
	for _, expr := range n.paths.Items {
		v, err := jmespath.Search(expr, root)
		if err != nil {
			continue
		}
		if list, ok := v.([]any); ok && len(list) > 0 {
			return list
		}
	}
	// A lone result object: treat the root as the single item.
	if obj, ok := root.(map[string]any); ok {
		if firstString(obj, n.paths.ItemURL) != "" || firstString(obj, n.paths.ItemStatus) != "" {
			return []any{obj}
		}
	}
	return nil
}

func (n *Normalizer) item(obj map[string]any) model.ProviderItem {
	it := model.ProviderItem{
		ItemID:          firstString(obj, n.paths.ItemID),
		Title:           firstString(obj, n.paths.ItemTitle),
		AssetURL:        firstString(obj, n.paths.ItemURL),
		DurationSeconds: firstNumber(obj, n.paths.ItemDuration),
		RawStatus:       firstString(obj, n.paths.ItemStatus),
	}
	it.State = classify(it.RawStatus, it.AssetURL)
	if it.State == model.ItemFailed {
		it.FailureReason = firstString(obj, n.paths.ItemError)
		if it.FailureReason == "" {
			it.FailureReason = "provider reported " + strings.ToLower(it.RawStatus)
		}
	}
	return it
}

// classify maps a raw status and URL to an item state. A success status
// without a URL stays pending because there is nothing to download yet.
func classify(status, assetURL string) model.ItemState {
	switch {
	case IsFailureStatus(status):
		return model.ItemFailed
	case assetURL == "":
		return model.ItemPending
	case status == "" || IsSuccessStatus(status):
		return model.ItemComplete
	default:
		return model.ItemPending
	}
}

func firstString(data any, exprs []string) string {
	for _, expr := range exprs {
		v, err := jmespath.Search(expr, data)
		if err != nil || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return ""
}

func firstNumber(data any, exprs []string) float64 {
	for _, expr := range exprs {
		v, err := jmespath.Search(expr, data)
		if err != nil || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			if t > 0 {
				return t
			}
		case string:
			if f, perr := strconv.ParseFloat(strings.TrimSpace(t), 64); perr == nil && f > 0 {
				return f
			}
		}
	}
	return 0
}
