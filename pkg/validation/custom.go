package validation

import (
	"strings"

	"github.com/goliatone/go-formstate/pkg/model"
)

// Equals builds a cross-field rule that fails unless the value matches the
// field otherID, e.g. a confirm-password input.
func Equals(otherID, message string) model.CustomRule {
	return func(value model.Value, fields model.Collection) string {
		other, ok := fields.Find(otherID)
		if !ok {
			return ""
		}
		if !other.Value.Equal(value) {
			return message
		}
		return ""
	}
}

// OneOf fails unless the value is one of the field's declared option values.
func OneOf(options []model.Option, message string) model.CustomRule {
	allowed := make(map[string]struct{}, len(options))
	for _, opt := range options {
		allowed[opt.Value] = struct{}{}
	}
	return func(value model.Value, _ model.Collection) string {
		text := value.String()
		if text == "" {
			return ""
		}
		if _, ok := allowed[text]; !ok {
			return message
		}
		return ""
	}
}

// Chain runs rules in order and returns the first message.
func Chain(rules ...model.CustomRule) model.CustomRule {
	return func(value model.Value, fields model.Collection) string {
		for _, rule := range rules {
			if rule == nil {
				continue
			}
			if msg := strings.TrimSpace(rule(value, fields)); msg != "" {
				return msg
			}
		}
		return ""
	}
}
