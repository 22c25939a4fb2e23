package render

// RenderOptions carry per-request data that renderers use without touching
// form state.
type RenderOptions struct {
	// Title and Description head the rendered form.
	Title       string
	Description string
	// Action and Method describe where an HTML form submits. Method defaults
	// to POST.
	Action string
	Method string
	// Errors are extra messages keyed by field id, shown next to the field's
	// own validation error. Use MapErrors to normalise server payloads.
	Errors map[string][]string
	// FormErrors are messages that belong to no field.
	FormErrors []string
	// Hidden inputs emitted alongside the fields (CSRF tokens, versions).
	Hidden map[string]string
}
