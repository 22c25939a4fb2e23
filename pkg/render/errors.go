package render

import (
	"sort"
	"strings"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/model"
)

// ErrorMapping splits a server error payload into field and form messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MapErrors normalises payload keys ("/email", "#/name", "$.terms") to
// field ids. Keys that match no field become form-level messages so nothing
// is lost.
func MapErrors(fields model.Collection, payload map[string][]string) ErrorMapping {
	var mapping ErrorMapping
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		messages := normalizeMessages(payload[key])
		if len(messages) == 0 {
			continue
		}
		id := fieldKey(key)
		if id == "" || fields.Index(id) < 0 {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		if mapping.Fields == nil {
			mapping.Fields = make(map[string][]string)
		}
		mapping.Fields[id] = append(mapping.Fields[id], messages...)
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// Actions converts field messages into SET_ERROR actions carrying the first
// message per field, in id order.
func (m ErrorMapping) Actions() []form.Action {
	ids := make([]string, 0, len(m.Fields))
	for id := range m.Fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	actions := make([]form.Action, 0, len(ids))
	for _, id := range ids {
		actions = append(actions, form.SetError{FieldID: id, Error: m.Fields[id][0]})
	}
	return actions
}

func fieldKey(raw string) string {
	key := strings.TrimSpace(raw)
	key = strings.TrimLeft(key, "#$./")
	key = strings.TrimSuffix(key, "/")
	if key == "_form" || key == "form" {
		return ""
	}
	return key
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
