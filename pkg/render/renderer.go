// Package render defines the renderer contract shared by the terminal and
// HTML front-ends, plus a name-keyed registry.
package render

import (
	"context"

	"github.com/goliatone/go-formstate/pkg/form"
)

// Renderer turns a form into bytes. Interactive renderers may dispatch
// actions against f while rendering; static ones only read its fields.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, f *form.Form, options RenderOptions) ([]byte, error)
}
