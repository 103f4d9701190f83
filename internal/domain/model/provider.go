package model

// ItemState classifies one normalized provider result.
type ItemState string

const (
	ItemPending  ItemState = "pending"
	ItemComplete ItemState = "complete"
	ItemFailed   ItemState = "failed"
)

// ProviderItem is one result entry after normalization, whatever shape the provider used.
type ProviderItem struct {
	ItemID          string
	Title           string
	AssetURL        string
	DurationSeconds float64
	RawStatus       string
	State           ItemState
	// FailureReason carries the provider's message for failed items.
	FailureReason string
}

// Actionable reports whether the item can drive a state change.
func (i ProviderItem) Actionable() bool {
	return i.State == ItemComplete || i.State == ItemFailed
}

// ProviderReport is the normalized view of a poll or submit response.
type ProviderReport struct {
	ExternalID string
	Items      []ProviderItem
	// Failed is set when the response as a whole carries an explicit failure signal.
	Failed        bool
	FailureReason string
}

// HasActionable reports whether any item can drive a state change.
func (r ProviderReport) HasActionable() bool {
	for _, it := range r.Items {
		if it.Actionable() {
			return true
		}
	}
	return false
}

// ProviderSubmission is what the provider client sends on submit.
type ProviderSubmission struct {
	Kind        Kind
	DisplayName string
	Variants    int
	Attributes  Attributes
	CallbackURL string
}
