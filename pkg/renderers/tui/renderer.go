package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/render"
	"github.com/goliatone/go-formstate/pkg/validation"
)

const notANumber = "must be a number"

// Renderer fills a form interactively. Every answer goes through the form
// as UPDATE_FIELD and is validated right away; a failing answer is recorded
// with SET_ERROR and the prompt repeats.
type Renderer struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	validator         *validation.Validator
	submitTransformer SubmitTransformer
	theme             Theme
	maxAttempts       int
	logger            *zap.Logger
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) *Renderer {
	r := &Renderer{
		driver:       newSurveyDriver(),
		outputFormat: OutputFormatJSON,
		validator:    validation.New(),
		theme:        Theme{ErrorPrefix: "✗ "},
		logger:       zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Render prompts every field in order, then re-validates the whole form so
// cross-field rules see final values, re-prompting whatever still fails.
func (r *Renderer) Render(ctx context.Context, f *form.Form, opts render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errors.New("tui: form is required")
	}

	if opts.Title != "" {
		if err := r.driver.Info(ctx, r.theme.InfoPrefix+opts.Title); err != nil {
			return nil, err
		}
	}
	for _, msg := range opts.FormErrors {
		_ = r.driver.Info(ctx, r.theme.ErrorPrefix+msg)
	}

	for _, field := range f.Fields() {
		for _, msg := range opts.Errors[field.ID] {
			_ = r.driver.Info(ctx, fmt.Sprintf("%s%s: %s", r.theme.ErrorPrefix, field.DisplayLabel(), msg))
		}
		if err := r.promptField(ctx, f, field.ID); err != nil {
			return nil, err
		}
	}

	for rounds := 0; ; rounds++ {
		fields := f.Fields()
		result := r.validator.Validate(fields)
		for _, action := range r.validator.Actions(fields) {
			_ = f.Dispatch(action)
		}
		if result.Valid() {
			break
		}
		if r.maxAttempts > 0 && rounds >= r.maxAttempts {
			return nil, fmt.Errorf("%w: %d fields invalid", ErrTooManyAttempts, len(result))
		}
		for _, field := range fields {
			msg, failed := result[field.ID]
			if !failed {
				continue
			}
			_ = r.driver.Info(ctx, fmt.Sprintf("%s%s: %s", r.theme.ErrorPrefix, field.DisplayLabel(), msg))
			if err := r.promptField(ctx, f, field.ID); err != nil {
				return nil, err
			}
		}
	}

	values := f.Values()
	if r.submitTransformer != nil {
		var err error
		values, err = r.submitTransformer(values)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}
	return r.serialize(f.Fields(), values)
}

func (r *Renderer) promptField(ctx context.Context, f *form.Form, id string) error {
	for attempt := 1; ; attempt++ {
		field, ok := f.Field(id)
		if !ok {
			// removed by another writer while prompting
			return nil
		}

		value, problem, err := r.ask(ctx, field)
		if err != nil {
			return err
		}
		if problem == "" {
			if err := f.Dispatch(form.UpdateField{FieldID: id, Value: value}); err != nil {
				return fmt.Errorf("tui: %w", err)
			}
			updated, _ := f.Field(id)
			problem = r.validator.ValidateField(updated, f.Fields())
		}

		if problem == "" {
			_ = f.Dispatch(form.ClearError{FieldID: id})
			return nil
		}
		_ = f.Dispatch(form.SetError{FieldID: id, Error: problem})
		r.logger.Debug("tui answer rejected", zap.String("field", id), zap.String("error", problem))

		if r.maxAttempts > 0 && attempt >= r.maxAttempts {
			return fmt.Errorf("%w: field %q", ErrTooManyAttempts, id)
		}
		if err := r.driver.Info(ctx, fmt.Sprintf("%s%s: %s", r.theme.ErrorPrefix, field.DisplayLabel(), problem)); err != nil {
			return err
		}
	}
}

// ask returns the answer for field, or a problem message when the answer is
// unusable before validation (a non-numeric number).
func (r *Renderer) ask(ctx context.Context, field *model.Field) (model.Value, string, error) {
	label := field.DisplayLabel()
	current := field.Value.String()

	switch field.Kind {
	case model.KindCheckbox:
		checked, _ := field.Value.Bool()
		answer, err := r.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: checked, Help: field.Help})
		return model.Checked(answer), "", err

	case model.KindPassword:
		answer, err := r.driver.Password(ctx, InputConfig{Message: label, Help: field.Help})
		return model.Text(answer), "", err

	case model.KindSelect, model.KindRadio:
		if len(field.Options) > 0 {
			return r.askOption(ctx, field)
		}
	}

	answer, err := r.driver.Input(ctx, InputConfig{
		Message:     label,
		Default:     current,
		Help:        field.Help,
		Placeholder: field.Placeholder,
	})
	if err != nil {
		return model.Value{}, "", err
	}
	answer = strings.TrimSpace(answer)
	if field.Kind == model.KindNumber && answer != "" {
		if _, err := strconv.ParseFloat(answer, 64); err != nil {
			return model.Value{}, notANumber, nil
		}
	}
	return model.Text(answer), "", nil
}

func (r *Renderer) askOption(ctx context.Context, field *model.Field) (model.Value, string, error) {
	labels := make([]string, len(field.Options))
	values := make([]string, len(field.Options))
	for i, opt := range field.Options {
		values[i] = opt.Value
		labels[i] = opt.Label
		if labels[i] == "" {
			labels[i] = opt.Value
		}
	}
	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      field.DisplayLabel(),
		Options:      labels,
		DefaultIndex: indexOf(values, field.Value.String()),
		Help:         field.Help,
	})
	if err != nil {
		return model.Value{}, "", err
	}
	if idx < 0 || idx >= len(values) {
		return model.Value{}, "invalid selection", nil
	}
	return model.Text(values[idx]), "", nil
}

func (r *Renderer) serialize(fields model.Collection, values map[string]any) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		encoded := url.Values{}
		for key, value := range values {
			encoded.Set(key, fmt.Sprint(value))
		}
		return []byte(encoded.Encode()), nil
	case OutputFormatPrettyText:
		return prettyPrint(fields, values), nil
	default:
		return json.Marshal(values)
	}
}

// prettyPrint lists fields in display order, followed by any keys a submit
// transformer added.
func prettyPrint(fields model.Collection, values map[string]any) []byte {
	var b bytes.Buffer
	seen := make(map[string]bool, len(values))
	for _, field := range fields {
		value, ok := values[field.ID]
		if !ok {
			continue
		}
		seen[field.ID] = true
		if field.Kind == model.KindPassword {
			value = "********"
		}
		fmt.Fprintf(&b, "%s=%v\n", field.ID, value)
	}
	extra := make([]string, 0)
	for key := range values {
		if !seen[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		fmt.Fprintf(&b, "%s=%v\n", key, values[key])
	}
	return b.Bytes()
}
