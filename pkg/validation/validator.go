package validation

import (
	"fmt"
	"unicode/utf8"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/model"
)

// Messages are the user-facing texts for built-in rules. MinLength and
// MaxLength receive the limit as a %d verb.
type Messages struct {
	Required  string `json:"required" yaml:"required"`
	MinLength string `json:"minLength" yaml:"minLength"`
	MaxLength string `json:"maxLength" yaml:"maxLength"`
	Pattern   string `json:"pattern" yaml:"pattern"`
}

// DefaultMessages returns the built-in English messages.
func DefaultMessages() Messages {
	return Messages{
		Required:  "This field is required",
		MinLength: "minimum %d characters",
		MaxLength: "maximum %d characters",
		Pattern:   "invalid format",
	}
}

// Result maps field ids to the message of their first failing rule.
type Result map[string]string

// Valid reports whether no field failed.
func (r Result) Valid() bool {
	return len(r) == 0
}

// Option configures a Validator.
type Option func(*Validator)

// WithMessages overrides the built-in messages; empty entries keep the
// defaults.
func WithMessages(messages Messages) Option {
	return func(v *Validator) {
		if messages.Required != "" {
			v.messages.Required = messages.Required
		}
		if messages.MinLength != "" {
			v.messages.MinLength = messages.MinLength
		}
		if messages.MaxLength != "" {
			v.messages.MaxLength = messages.MaxLength
		}
		if messages.Pattern != "" {
			v.messages.Pattern = messages.Pattern
		}
	}
}

// Validator evaluates each field's rules independently. It holds no state
// beyond its messages and is safe for concurrent use.
type Validator struct {
	messages Messages
}

// New constructs a Validator.
func New(options ...Option) *Validator {
	v := &Validator{messages: DefaultMessages()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(v)
	}
	return v
}

// ValidateField returns the message of the first failing rule, or "" when the
// field passes. Rules run in fixed order: required, minLength, maxLength,
// pattern, custom. Custom runs only when every built-in rule passed and
// receives fields for cross-field checks.
func (v *Validator) ValidateField(field *model.Field, fields model.Collection) string {
	if field == nil || field.Rules == nil {
		return ""
	}
	rules := field.Rules
	value := field.Value
	text := value.String()

	if rules.Required && value.IsEmpty() {
		return v.messages.Required
	}
	if rules.MinLength != nil && utf8.RuneCountInString(text) < *rules.MinLength {
		return fmt.Sprintf(v.messages.MinLength, *rules.MinLength)
	}
	if rules.MaxLength != nil && utf8.RuneCountInString(text) > *rules.MaxLength {
		return fmt.Sprintf(v.messages.MaxLength, *rules.MaxLength)
	}
	if rules.Pattern != nil && !rules.Pattern.MatchString(text) {
		return v.messages.Pattern
	}
	if rules.Custom != nil {
		return rules.Custom(value, fields)
	}
	return ""
}

// Validate runs ValidateField over every field.
func (v *Validator) Validate(fields model.Collection) Result {
	result := make(Result)
	for _, field := range fields {
		if field == nil {
			continue
		}
		if msg := v.ValidateField(field, fields); msg != "" {
			result[field.ID] = msg
		}
	}
	return result
}

// Actions converts a validation pass into SET_ERROR/CLEAR_ERROR actions, one
// per field, so every error is recomputed from scratch.
func (v *Validator) Actions(fields model.Collection) []form.Action {
	actions := make([]form.Action, 0, len(fields))
	for _, field := range fields {
		if field == nil {
			continue
		}
		if msg := v.ValidateField(field, fields); msg != "" {
			actions = append(actions, form.SetError{FieldID: field.ID, Error: msg})
			continue
		}
		actions = append(actions, form.ClearError{FieldID: field.ID})
	}
	return actions
}

// Apply returns fields with every error recomputed.
func (v *Validator) Apply(fields model.Collection) model.Collection {
	next := fields
	for _, action := range v.Actions(fields) {
		next = form.Reduce(next, action)
	}
	return next
}
