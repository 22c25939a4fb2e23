// Package definition loads form definitions from YAML, JSON or an OpenAPI
// request body and turns them into field collections.
package definition

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// EmailPattern is the loose address check attached to imported email fields.
const EmailPattern = `^[^@\s]+@[^@\s]+\.[^@\s]+$`

// Default messages for rules declared in a document.
const (
	defaultMatchesMessage = "values do not match"
	defaultOptionMessage  = "choose one of the listed options"
)

// Definition is a named, ordered set of fields.
type Definition struct {
	ID          string
	Title       string
	Description string
	Fields      model.Collection
}

// NewForm builds a form seeded with the definition's fields.
func (d Definition) NewForm(options ...form.Option) *form.Form {
	opts := append([]form.Option{form.WithName(d.ID)}, options...)
	return form.New(d.Fields, opts...)
}

// SetFields returns the action that swaps an existing form over to this
// definition.
func (d Definition) SetFields() form.SetFields {
	return form.SetFields{Fields: d.Fields.Clone()}
}

// DisplayTitle falls back to a label derived from the id.
func (d Definition) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return Label(d.ID)
}

type document struct {
	ID          string      `json:"id" yaml:"id"`
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description" yaml:"description"`
	Fields      []fieldSpec `json:"fields" yaml:"fields"`
}

type fieldSpec struct {
	ID          string         `json:"id" yaml:"id"`
	Label       string         `json:"label" yaml:"label"`
	Kind        string         `json:"kind" yaml:"kind"`
	Value       *model.Value   `json:"value" yaml:"value"`
	Placeholder string         `json:"placeholder" yaml:"placeholder"`
	Help        string         `json:"help" yaml:"help"`
	Options     []model.Option `json:"options" yaml:"options"`
	Rules       *ruleSpec      `json:"rules" yaml:"rules"`
}

type ruleSpec struct {
	Required  bool           `json:"required" yaml:"required"`
	MinLength *int           `json:"minLength" yaml:"minLength"`
	MaxLength *int           `json:"maxLength" yaml:"maxLength"`
	Pattern   *model.Pattern `json:"pattern" yaml:"pattern"`
	// Matches names a sibling field this one must equal.
	Matches string `json:"matches" yaml:"matches"`
	Message string `json:"message" yaml:"message"`
}

// Parse decodes a YAML or JSON definition.
func Parse(data []byte) (Definition, error) {
	return parse(data, "")
}

func parse(data []byte, fallbackID string) (Definition, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Definition{}, errors.New("definition: document is empty")
	}

	var doc document
	if trimmed[0] == '{' {
		decoder := json.NewDecoder(bytes.NewReader(trimmed))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&doc); err != nil {
			return Definition{}, fmt.Errorf("definition: decode json: %w", err)
		}
	} else {
		decoder := yaml.NewDecoder(bytes.NewReader(trimmed))
		decoder.KnownFields(true)
		if err := decoder.Decode(&doc); err != nil {
			return Definition{}, fmt.Errorf("definition: decode yaml: %w", err)
		}
	}

	def := Definition{
		ID:          strings.TrimSpace(doc.ID),
		Title:       doc.Title,
		Description: doc.Description,
	}
	if def.ID == "" {
		def.ID = fallbackID
	}
	if def.ID == "" {
		return Definition{}, errors.New("definition: id is required")
	}

	fields := make(model.Collection, 0, len(doc.Fields))
	for i, spec := range doc.Fields {
		field, err := spec.build()
		if err != nil {
			return Definition{}, fmt.Errorf("definition %q: field %d: %w", def.ID, i, err)
		}
		fields = append(fields, field)
	}
	if err := fields.Check(); err != nil {
		return Definition{}, fmt.Errorf("definition %q: %w", def.ID, err)
	}
	def.Fields = fields
	return def, nil
}

func (s fieldSpec) build() (*model.Field, error) {
	kind := model.KindText
	if strings.TrimSpace(s.Kind) != "" {
		parsed, err := model.ParseKind(s.Kind)
		if err != nil {
			return nil, err
		}
		kind = parsed
	}

	label := s.Label
	if label == "" {
		label = Label(s.ID)
	}

	options := []model.FieldOption{
		model.WithPlaceholder(s.Placeholder),
		model.WithHelp(s.Help),
	}
	if s.Value != nil {
		options = append(options, model.WithValue(*s.Value))
	}
	if len(s.Options) > 0 {
		options = append(options, model.WithOptions(s.Options...))
	}
	if rules := s.rules(kind); rules != nil {
		options = append(options, model.WithRules(*rules))
	}
	return model.NewField(s.ID, label, kind, options...)
}

func (s fieldSpec) rules(kind model.Kind) *model.Rules {
	var custom []model.CustomRule
	if s.Rules != nil && s.Rules.Matches != "" {
		msg := s.Rules.Message
		if msg == "" {
			msg = defaultMatchesMessage
		}
		custom = append(custom, validation.Equals(s.Rules.Matches, msg))
	}
	if kind.HasOptions() && len(s.Options) > 0 {
		custom = append(custom, validation.OneOf(s.Options, defaultOptionMessage))
	}

	if s.Rules == nil && len(custom) == 0 {
		return nil
	}
	rules := model.Rules{}
	if s.Rules != nil {
		rules.Required = s.Rules.Required
		rules.MinLength = s.Rules.MinLength
		rules.MaxLength = s.Rules.MaxLength
		rules.Pattern = s.Rules.Pattern
	}
	if len(custom) > 0 {
		rules.Custom = validation.Chain(custom...)
	}
	return &rules
}
