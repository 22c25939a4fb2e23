package model

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of input kinds a field can take.
type Kind string

const (
	KindText     Kind = "text"
	KindEmail    Kind = "email"
	KindPassword Kind = "password"
	KindNumber   Kind = "number"
	KindSelect   Kind = "select"
	KindCheckbox Kind = "checkbox"
	KindRadio    Kind = "radio"
)

// Kinds lists every supported kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindText, KindEmail, KindPassword, KindNumber, KindSelect, KindCheckbox, KindRadio}
}

// Valid reports whether k belongs to the supported set.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindEmail, KindPassword, KindNumber, KindSelect, KindCheckbox, KindRadio:
		return true
	default:
		return false
	}
}

// TextLike reports whether the kind stores a string value.
func (k Kind) TextLike() bool {
	return k.Valid() && k != KindCheckbox
}

// HasOptions reports whether the kind renders a fixed list of choices.
func (k Kind) HasOptions() bool {
	return k == KindSelect || k == KindRadio
}

// ParseKind normalises raw input into a Kind.
func ParseKind(raw string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if !kind.Valid() {
		return "", fmt.Errorf("model: unknown field kind %q", raw)
	}
	return kind, nil
}

// Option is one choice of a select or radio field.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Field models an individual input inside a form.
type Field struct {
	ID          string   `json:"id" yaml:"id"`
	Label       string   `json:"label,omitempty" yaml:"label,omitempty"`
	Kind        Kind     `json:"kind" yaml:"kind"`
	Value       Value    `json:"value" yaml:"value"`
	Placeholder string   `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Help        string   `json:"help,omitempty" yaml:"help,omitempty"`
	Options     []Option `json:"options,omitempty" yaml:"options,omitempty"`
	Rules       *Rules   `json:"rules,omitempty" yaml:"rules,omitempty"`
	Error       string   `json:"error,omitempty" yaml:"-"`
}

var (
	errFieldIDMissing = errors.New("model: field id is required")
	errOptionsOnKind  = errors.New("model: options are only valid on select and radio fields")
)

// FieldOption customises a field built through NewField.
type FieldOption func(*Field)

// WithValue seeds the field value.
func WithValue(value Value) FieldOption {
	return func(f *Field) {
		f.Value = value
	}
}

// WithRules attaches validation rules.
func WithRules(rules Rules) FieldOption {
	return func(f *Field) {
		clone := rules
		f.Rules = &clone
	}
}

// WithOptions sets the choices for select/radio fields.
func WithOptions(options ...Option) FieldOption {
	return func(f *Field) {
		f.Options = append([]Option(nil), options...)
	}
}

// WithPlaceholder sets the placeholder hint.
func WithPlaceholder(text string) FieldOption {
	return func(f *Field) {
		f.Placeholder = text
	}
}

// WithHelp sets the help text.
func WithHelp(text string) FieldOption {
	return func(f *Field) {
		f.Help = text
	}
}

// NewField builds a field with the kind's empty value and applies options.
// It rejects unknown kinds, values the kind cannot hold and options on kinds
// that do not render choices.
func NewField(id, label string, kind Kind, options ...FieldOption) (*Field, error) {
	field := &Field{
		ID:    strings.TrimSpace(id),
		Label: label,
		Kind:  kind,
		Value: EmptyValue(kind),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(field)
	}
	if err := field.Check(); err != nil {
		return nil, err
	}
	return field, nil
}

// MustField is NewField that panics, for fixtures and static definitions.
func MustField(id, label string, kind Kind, options ...FieldOption) *Field {
	field, err := NewField(id, label, kind, options...)
	if err != nil {
		panic(err)
	}
	return field
}

// Check validates the structural invariants of a single field.
func (f *Field) Check() error {
	if f == nil {
		return errors.New("model: field is nil")
	}
	if f.ID == "" {
		return errFieldIDMissing
	}
	if !f.Kind.Valid() {
		return fmt.Errorf("model: field %q: unknown kind %q", f.ID, f.Kind)
	}
	if !f.Accepts(f.Value) {
		return fmt.Errorf("model: field %q: %s value not accepted by kind %q", f.ID, f.Value.variant(), f.Kind)
	}
	if len(f.Options) > 0 && !f.Kind.HasOptions() {
		return fmt.Errorf("%w (field %q)", errOptionsOnKind, f.ID)
	}
	return nil
}

// Accepts reports whether value is a legal value for the field kind.
func (f *Field) Accepts(value Value) bool {
	if f == nil {
		return false
	}
	if f.Kind == KindCheckbox {
		return value.IsBool()
	}
	return f.Kind.Valid() && !value.IsBool()
}

// HasError reports whether the field currently carries a validation message.
func (f *Field) HasError() bool {
	return f != nil && f.Error != ""
}

// DisplayLabel falls back to the id when no label is set.
func (f *Field) DisplayLabel() string {
	if f == nil {
		return ""
	}
	if f.Label != "" {
		return f.Label
	}
	return f.ID
}

// Clone returns a shallow copy; rules and options are shared because they are
// never mutated after construction.
func (f *Field) Clone() *Field {
	if f == nil {
		return nil
	}
	clone := *f
	return &clone
}
