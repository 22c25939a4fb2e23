// Package formstate is the top-level entry point: load a form definition,
// drive it through a controller, render it.
//
// The building blocks live under pkg/: model (fields and values), form (the
// reducer and its owning Form), validation, debounce, persistence,
// controller, definition and the renderers.
package formstate

import (
	"context"
	"time"

	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/definition"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/render"
	"github.com/goliatone/go-formstate/pkg/renderers/html"
)

// Field aliases model.Field.
type Field = model.Field

// Action aliases form.Action, the closed set of state transitions.
type Action = form.Action

// Definition aliases definition.Definition.
type Definition = definition.Definition

// RenderOptions aliases render.RenderOptions for callers passing server
// errors or hidden inputs.
type RenderOptions = render.RenderOptions

// NewLoader constructs a definition loader.
func NewLoader(options ...definition.LoaderOption) *definition.Loader {
	return definition.NewLoader(options...)
}

// Load reads a YAML or JSON definition from a path or http(s) URL.
func Load(ctx context.Context, source string) (Definition, error) {
	src, err := definition.ParseSource(source)
	if err != nil {
		return Definition{}, err
	}
	return definition.NewLoader(definition.WithHTTPFallback(10*time.Second)).Load(ctx, src)
}

// NewController builds a form from def and attaches a controller to it.
// Cancelling ctx stops its timers.
func NewController(ctx context.Context, def Definition, options ...controller.Option) *controller.Controller {
	return controller.New(ctx, def.NewForm(), options...)
}

// GenerateHTML renders the initial state of def with the built-in HTML
// renderer.
func GenerateHTML(ctx context.Context, def Definition, opts RenderOptions, options ...html.Option) ([]byte, error) {
	renderer, err := html.New(options...)
	if err != nil {
		return nil, err
	}
	if opts.Title == "" {
		opts.Title = def.DisplayTitle()
	}
	if opts.Description == "" {
		opts.Description = def.Description
	}
	return renderer.Render(ctx, def.NewForm(), opts)
}
