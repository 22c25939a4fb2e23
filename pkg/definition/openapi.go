package definition

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formstate/pkg/model"
)

// Vendor extensions read from request body properties.
const (
	extensionOrder       = "x-formstate-order"
	extensionPlaceholder = "x-formstate-placeholder"
	extensionWidget      = "x-formstate-widget"
)

var requestMediaTypes = []string{
	"application/json",
	"application/x-www-form-urlencoded",
	"multipart/form-data",
}

var methodOrder = []string{"POST", "PUT", "PATCH", "GET", "DELETE", "HEAD", "OPTIONS", "TRACE"}

// ErrOperationNotFound is returned when no operation matches.
var ErrOperationNotFound = errors.New("definition: openapi operation not found")

// FromOpenAPI builds a definition from the request body schema of
// operationID. An empty operationID selects the first operation (by path,
// then method) that declares an object request body.
func FromOpenAPI(ctx context.Context, data []byte, operationID string) (Definition, error) {
	if err := ctx.Err(); err != nil {
		return Definition{}, err
	}
	if len(data) == 0 {
		return Definition{}, errors.New("definition: openapi document is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return Definition{}, fmt.Errorf("definition: load openapi: %w", err)
	}
	if doc.Paths == nil || doc.Paths.Len() == 0 {
		return Definition{}, errors.New("definition: openapi document does not contain any paths")
	}

	op, id, err := findOperation(doc, operationID)
	if err != nil {
		return Definition{}, err
	}
	schema := requestSchema(op)
	if schema == nil {
		return Definition{}, fmt.Errorf("definition: operation %q has no object request body", id)
	}

	fields, err := fieldsFromSchema(schema)
	if err != nil {
		return Definition{}, fmt.Errorf("definition: operation %q: %w", id, err)
	}
	title := op.Summary
	if title == "" {
		title = Label(id)
	}
	return Definition{
		ID:          id,
		Title:       title,
		Description: op.Description,
		Fields:      fields,
	}, nil
}

func findOperation(doc *openapi3.T, operationID string) (*openapi3.Operation, string, error) {
	paths := doc.Paths.Map()
	keys := make([]string, 0, len(paths))
	for key := range paths {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, path := range keys {
		item := paths[path]
		if item == nil {
			continue
		}
		for _, method := range methodOrder {
			op := item.GetOperation(method)
			if op == nil {
				continue
			}
			id := op.OperationID
			if id == "" {
				id = strings.ToLower(method) + ":" + path
			}
			switch {
			case operationID == "" && requestSchema(op) != nil:
				return op, id, nil
			case operationID != "" && id == operationID:
				return op, id, nil
			}
		}
	}
	if operationID == "" {
		return nil, "", fmt.Errorf("%w: no operation declares a request body", ErrOperationNotFound)
	}
	return nil, "", fmt.Errorf("%w: %q", ErrOperationNotFound, operationID)
}

func requestSchema(op *openapi3.Operation) *openapi3.Schema {
	if op == nil || op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	content := op.RequestBody.Value.Content
	for _, mediaType := range requestMediaTypes {
		mt, ok := content[mediaType]
		if !ok || mt == nil || mt.Schema == nil || mt.Schema.Value == nil {
			continue
		}
		schema := mt.Schema.Value
		if len(schema.Properties) == 0 {
			continue
		}
		return schema
	}
	return nil
}

type property struct {
	name   string
	order  float64
	schema *openapi3.Schema
}

func fieldsFromSchema(schema *openapi3.Schema) (model.Collection, error) {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	props := make([]property, 0, len(schema.Properties))
	for name, ref := range schema.Properties {
		if ref == nil || ref.Value == nil || ref.Value.ReadOnly {
			continue
		}
		order := math.Inf(1)
		if raw, ok := ref.Value.Extensions[extensionOrder]; ok {
			if n, ok := toFloat(raw); ok {
				order = n
			}
		}
		props = append(props, property{name: name, order: order, schema: ref.Value})
	}
	sort.SliceStable(props, func(i, j int) bool {
		if props[i].order != props[j].order {
			return props[i].order < props[j].order
		}
		return props[i].name < props[j].name
	})

	fields := make(model.Collection, 0, len(props))
	for _, prop := range props {
		field, err := fieldFromProperty(prop.name, prop.schema, required[prop.name])
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func fieldFromProperty(name string, schema *openapi3.Schema, required bool) (*model.Field, error) {
	kind := kindFor(schema)

	label := schema.Title
	if label == "" {
		label = Label(name)
	}

	spec := fieldSpec{
		ID:    name,
		Label: label,
		Kind:  string(kind),
		Help:  schema.Description,
	}
	if placeholder, ok := schema.Extensions[extensionPlaceholder].(string); ok {
		spec.Placeholder = placeholder
	}
	if kind.HasOptions() {
		for _, raw := range schema.Enum {
			text := fmt.Sprint(raw)
			spec.Options = append(spec.Options, model.Option{Value: text, Label: Label(text)})
		}
	}
	if schema.Default != nil {
		value, err := model.ValueOf(schema.Default)
		if err != nil {
			return nil, fmt.Errorf("property %q default: %w", name, err)
		}
		spec.Value = &value
	}

	rules := ruleSpec{Required: required}
	if schema.MinLength > 0 {
		n := int(schema.MinLength)
		rules.MinLength = &n
	}
	if schema.MaxLength != nil {
		n := int(*schema.MaxLength)
		rules.MaxLength = &n
	}
	switch {
	case schema.Pattern != "":
		pattern, err := model.CompilePattern(schema.Pattern)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		rules.Pattern = pattern
	case kind == model.KindEmail:
		rules.Pattern = model.MustPattern(EmailPattern)
	}
	if rules != (ruleSpec{}) {
		spec.Rules = &rules
	}
	return spec.build()
}

func kindFor(schema *openapi3.Schema) model.Kind {
	if widget, ok := schema.Extensions[extensionWidget].(string); ok {
		if kind, err := model.ParseKind(widget); err == nil {
			return kind
		}
	}
	switch {
	case schema.Type.Is(openapi3.TypeBoolean):
		return model.KindCheckbox
	case schema.Type.Is(openapi3.TypeInteger), schema.Type.Is(openapi3.TypeNumber):
		return model.KindNumber
	case len(schema.Enum) > 0:
		return model.KindSelect
	}
	switch schema.Format {
	case "email":
		return model.KindEmail
	case "password":
		return model.KindPassword
	}
	return model.KindText
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(v, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
