// Package controller connects a form to its validator, a debounced
// validation pass and a debounced draft auto-save.
package controller

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/debounce"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/persistence"
	"github.com/goliatone/go-formstate/pkg/validation"
)

const (
	// DefaultValidationDelay is the quiet interval before validation runs.
	DefaultValidationDelay = 500 * time.Millisecond
	// DefaultAutosaveDelay is the quiet interval before a draft is written.
	DefaultAutosaveDelay = 2 * time.Second
)

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("controller: closed")

// Option configures a Controller.
type Option func(*config)

type config struct {
	validator       *validation.Validator
	clock           debounce.Clock
	logger          *zap.Logger
	validationDelay time.Duration
	autosaveDelay   time.Duration
	draft           *persistence.Adapter[persistence.Draft]
	onValidate      func(validation.Result)
}

// WithValidator replaces the default validator.
func WithValidator(v *validation.Validator) Option {
	return func(cfg *config) {
		if v != nil {
			cfg.validator = v
		}
	}
}

// WithClock drives both debouncers and draft timestamps from clock.
func WithClock(clock debounce.Clock) Option {
	return func(cfg *config) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// WithLogger sets the logger shared by the controller and its debouncers.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithValidationDelay overrides DefaultValidationDelay.
func WithValidationDelay(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.validationDelay = d
		}
	}
}

// WithAutosaveDelay overrides DefaultAutosaveDelay.
func WithAutosaveDelay(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.autosaveDelay = d
		}
	}
}

// WithDraft enables auto-save through adapter. Without it, value changes
// only schedule validation.
func WithDraft(adapter *persistence.Adapter[persistence.Draft]) Option {
	return func(cfg *config) {
		cfg.draft = adapter
	}
}

// WithValidationHook is called after every validation pass with its result.
func WithValidationHook(fn func(validation.Result)) Option {
	return func(cfg *config) {
		cfg.onValidate = fn
	}
}

// Controller owns the timers attached to one form. Closing it guarantees no
// validation or auto-save runs afterwards.
type Controller struct {
	ctx       context.Context
	form      *form.Form
	validator *validation.Validator
	validate  *debounce.Debouncer
	autosave  *debounce.Debouncer
	draft     *persistence.Adapter[persistence.Draft]
	clock     debounce.Clock
	logger    *zap.Logger
	hook      func(validation.Result)

	unsubscribe func()
}

// New attaches a controller to f. Cancelling ctx has the same effect as
// Close on the debouncers; ctx is also used for draft writes.
func New(ctx context.Context, f *form.Form, options ...Option) *Controller {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config{
		clock:           debounce.SystemClock(),
		logger:          zap.NewNop(),
		validationDelay: DefaultValidationDelay,
		autosaveDelay:   DefaultAutosaveDelay,
	}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.validator == nil {
		cfg.validator = validation.New()
	}

	logger := cfg.logger.With(zap.String("form", f.Name()))
	c := &Controller{
		ctx:       ctx,
		form:      f,
		validator: cfg.validator,
		draft:     cfg.draft,
		clock:     cfg.clock,
		logger:    logger,
		hook:      cfg.onValidate,
		validate: debounce.New(cfg.validationDelay,
			debounce.WithClock(cfg.clock),
			debounce.WithLogger(logger),
			debounce.WithName("validate"),
		),
		autosave: debounce.New(cfg.autosaveDelay,
			debounce.WithClock(cfg.clock),
			debounce.WithLogger(logger),
			debounce.WithName("autosave"),
		),
	}
	c.validate.Bind(ctx)
	c.autosave.Bind(ctx)
	c.unsubscribe = f.Subscribe(c.onChange)
	return c
}

// Form returns the controlled form.
func (c *Controller) Form() *form.Form {
	return c.form
}

// Dispatch forwards action to the form.
func (c *Controller) Dispatch(action form.Action) error {
	if c.validate.Stopped() {
		return ErrClosed
	}
	return c.form.Dispatch(action)
}

// ValidatePending reports whether a validation pass is scheduled.
func (c *Controller) ValidatePending() bool {
	return c.validate.Pending()
}

// AutosavePending reports whether a draft write is scheduled.
func (c *Controller) AutosavePending() bool {
	return c.autosave.Pending()
}

// ValidateNow cancels any scheduled pass and validates immediately.
func (c *Controller) ValidateNow() validation.Result {
	c.validate.Cancel()
	return c.runValidation()
}

// SaveNow cancels any scheduled auto-save and writes the draft immediately.
func (c *Controller) SaveNow(ctx context.Context) {
	c.autosave.Cancel()
	c.saveDraft(ctx)
}

// RestoreDraft replays stored values as UPDATE_FIELD actions and returns how
// many were applied. Values for missing fields or of the wrong variant are
// skipped.
func (c *Controller) RestoreDraft(ctx context.Context) int {
	if c.draft == nil {
		return 0
	}
	draft := c.draft.Load(ctx)
	if draft.IsEmpty() {
		return 0
	}

	applied := 0
	for _, field := range c.form.Fields() {
		value, ok := draft.Values[field.ID]
		if !ok {
			continue
		}
		if err := c.Dispatch(form.UpdateField{FieldID: field.ID, Value: value}); err != nil {
			c.logger.Debug("draft value skipped", zap.String("field", field.ID), zap.Error(err))
			continue
		}
		applied++
	}
	c.logger.Debug("draft restored", zap.Int("applied", applied))
	return applied
}

// DiscardDraft cancels pending auto-save and removes the stored draft.
func (c *Controller) DiscardDraft(ctx context.Context) {
	c.autosave.Cancel()
	if c.draft != nil {
		c.draft.Clear(ctx)
	}
}

// Close detaches from the form and stops both debouncers. Pending work is
// dropped; call SaveNow first to keep it.
func (c *Controller) Close() {
	c.unsubscribe()
	c.validate.Stop()
	c.autosave.Stop()
}

func (c *Controller) onChange(change form.Change) {
	if !changesValues(change.Action) {
		return
	}
	c.validate.Schedule(func() {
		c.runValidation()
	})
	if c.draft != nil {
		c.autosave.Schedule(func() {
			c.saveDraft(c.ctx)
		})
	}
}

// runValidation validates one snapshot and dispatches the outcome. Fields
// whose value changed since the snapshot are skipped; the change already
// scheduled another pass.
func (c *Controller) runValidation() validation.Result {
	fields := c.form.Fields()
	result := make(validation.Result)
	for _, action := range c.validator.Actions(fields) {
		id := actionFieldID(action)
		before, _ := fields.Find(id)
		current, ok := c.form.Field(id)
		if !ok || !current.Value.Equal(before.Value) {
			c.logger.Debug("stale validation result dropped", zap.String("field", id))
			continue
		}
		if set, isSet := action.(form.SetError); isSet {
			result[id] = set.Error
		}
		if err := c.form.Dispatch(action); err != nil {
			// removed since the lookup above
			c.logger.Debug("validation result dropped", zap.Error(err))
		}
	}
	c.logger.Debug("form validated", zap.Int("errors", len(result)))
	if c.hook != nil {
		c.hook(result)
	}
	return result
}

func actionFieldID(action form.Action) string {
	switch a := action.(type) {
	case form.SetError:
		return a.FieldID
	case form.ClearError:
		return a.FieldID
	}
	return ""
}

func (c *Controller) saveDraft(ctx context.Context) {
	if c.draft == nil {
		return
	}
	c.draft.Save(ctx, persistence.Draft{
		FormID:  c.form.Name(),
		Values:  collectValues(c.form.Fields()),
		SavedAt: c.clock.Now(),
	})
}

func collectValues(fields model.Collection) map[string]model.Value {
	out := make(map[string]model.Value, len(fields))
	for _, field := range fields {
		out[field.ID] = field.Value
	}
	return out
}

func changesValues(action form.Action) bool {
	switch action.(type) {
	case form.UpdateField, form.AddField, form.SetFields, form.ResetForm:
		return true
	default:
		return false
	}
}
