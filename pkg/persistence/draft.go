package persistence

import (
	"time"

	"github.com/goliatone/go-formstate/pkg/model"
)

const draftPrefix = "draft:"

// DraftKey returns the storage key for the draft of formID.
func DraftKey(formID string) string {
	return draftPrefix + formID
}

// Draft is an autosaved copy of a form's values.
type Draft struct {
	FormID  string                 `json:"formId"`
	Values  map[string]model.Value `json:"values"`
	SavedAt time.Time              `json:"savedAt"`
}

// EmptyDraft is the default when no draft is stored.
func EmptyDraft() Draft {
	return Draft{Values: map[string]model.Value{}}
}

// Normalized guarantees a non-nil value map.
func (d Draft) Normalized() Draft {
	if d.Values == nil {
		d.Values = map[string]model.Value{}
	}
	return d
}

// IsEmpty reports whether the draft carries no values.
func (d Draft) IsEmpty() bool {
	return len(d.Values) == 0
}

// NewDraftAdapter returns an adapter for the draft of formID.
func NewDraftAdapter(store Store, formID string, opts ...AdapterOption) *Adapter[Draft] {
	return NewAdapter(store, DraftKey(formID), EmptyDraft, opts...)
}
