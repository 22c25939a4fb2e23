// Package html renders a form snapshot as an HTML <form> using pongo2
// templates. Field values and messages are escaped by the template engine;
// help text may carry inline markup and is sanitized with bluemonday.
package html

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/render"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// DefaultTemplate is the entry template name inside the template set.
const DefaultTemplate = "form.tmpl"

// TemplatesFS exposes the embedded templates so callers can copy and
// customise them.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}

// Option configures the renderer.
type Option func(*config)

type config struct {
	templates fs.FS
	name      string
	submit    string
	policy    *bluemonday.Policy
}

// WithTemplates loads name from files instead of the embedded template.
func WithTemplates(files fs.FS, name string) Option {
	return func(cfg *config) {
		if files != nil {
			cfg.templates = files
		}
		if strings.TrimSpace(name) != "" {
			cfg.name = name
		}
	}
}

// WithSubmitLabel sets the submit button text.
func WithSubmitLabel(label string) Option {
	return func(cfg *config) {
		if label != "" {
			cfg.submit = label
		}
	}
}

// WithHelpPolicy replaces the sanitizer applied to help text.
func WithHelpPolicy(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		if policy != nil {
			cfg.policy = policy
		}
	}
}

// Renderer implements render.Renderer for HTML output.
type Renderer struct {
	tmpl   *pongo2.Template
	submit string
	policy *bluemonday.Policy
}

var _ render.Renderer = (*Renderer)(nil)

// New parses the template once; Render is safe for concurrent use.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		templates: TemplatesFS(),
		name:      DefaultTemplate,
		submit:    "Submit",
	}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.policy == nil {
		cfg.policy = helpSanitizer()
	}

	set := pongo2.NewSet("formstate-html", pongo2.NewFSLoader(cfg.templates))
	tmpl, err := set.FromFile(cfg.name)
	if err != nil {
		return nil, fmt.Errorf("html: load template %q: %w", cfg.name, err)
	}
	return &Renderer{tmpl: tmpl, submit: cfg.submit, policy: cfg.policy}, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "html"
}

// ContentType reports the MIME type of Render's output.
func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render writes the current field snapshot of f. It does not dispatch.
func (r *Renderer) Render(ctx context.Context, f *form.Form, opts render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errors.New("html: form is required")
	}

	view := r.buildView(f.Name(), f.Fields(), opts)
	out, err := r.tmpl.ExecuteBytes(pongo2.Context{"form": view})
	if err != nil {
		return nil, fmt.Errorf("html: execute template: %w", err)
	}
	return out, nil
}

type formView struct {
	ID          string
	Title       string
	Description string
	Action      string
	Method      string
	Submit      string
	Hidden      []render.HiddenField
	Errors      []string
	Fields      []fieldView
}

type fieldView struct {
	ID          string
	Label       string
	Kind        string
	InputType   string
	Value       string
	Placeholder string
	Help        string
	Checked     bool
	Required    bool
	IsCheckbox  bool
	IsSelect    bool
	IsRadio     bool
	HasMin      bool
	MinLength   int
	HasMax      bool
	MaxLength   int
	Pattern     string
	Options     []optionView
	Errors      []string
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

func (r *Renderer) buildView(id string, fields model.Collection, opts render.RenderOptions) formView {
	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = "POST"
	}
	view := formView{
		ID:          id,
		Title:       opts.Title,
		Description: opts.Description,
		Action:      opts.Action,
		Method:      method,
		Submit:      r.submit,
		Hidden:      render.SortedHidden(opts.Hidden),
		Errors:      opts.FormErrors,
		Fields:      make([]fieldView, 0, len(fields)),
	}
	for _, field := range fields {
		view.Fields = append(view.Fields, r.fieldView(field, opts.Errors[field.ID]))
	}
	return view
}

func (r *Renderer) fieldView(field *model.Field, extra []string) fieldView {
	v := fieldView{
		ID:          field.ID,
		Label:       field.DisplayLabel(),
		Kind:        string(field.Kind),
		InputType:   string(field.Kind),
		Value:       field.Value.String(),
		Placeholder: field.Placeholder,
		Help:        strings.TrimSpace(r.policy.Sanitize(field.Help)),
		IsCheckbox:  field.Kind == model.KindCheckbox,
		IsSelect:    field.Kind == model.KindSelect,
		IsRadio:     field.Kind == model.KindRadio,
	}
	switch field.Kind {
	case model.KindCheckbox:
		v.Checked, _ = field.Value.Bool()
		v.Value = "true"
	case model.KindPassword:
		v.Value = ""
	case model.KindSelect, model.KindRadio:
		for _, opt := range field.Options {
			label := opt.Label
			if label == "" {
				label = opt.Value
			}
			v.Options = append(v.Options, optionView{
				Value:    opt.Value,
				Label:    label,
				Selected: opt.Value == v.Value,
			})
		}
	}
	if rules := field.Rules; rules != nil {
		v.Required = rules.Required
		if rules.MinLength != nil {
			v.HasMin, v.MinLength = true, *rules.MinLength
		}
		if rules.MaxLength != nil {
			v.HasMax, v.MaxLength = true, *rules.MaxLength
		}
		v.Pattern = rules.Pattern.String()
	}
	if field.Error != "" {
		v.Errors = append(v.Errors, field.Error)
	}
	for _, msg := range extra {
		if msg != "" && msg != field.Error {
			v.Errors = append(v.Errors, msg)
		}
	}
	return v
}

var (
	helpPolicyOnce sync.Once
	helpPolicy     *bluemonday.Policy
)

func helpSanitizer() *bluemonday.Policy {
	helpPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("b", "strong", "i", "em", "code", "br", "small")
		policy.AllowAttrs("href").OnElements("a")
		policy.AllowURLSchemes("http", "https", "mailto")
		policy.RequireNoFollowOnLinks(true)
		helpPolicy = policy
	})
	return helpPolicy
}
