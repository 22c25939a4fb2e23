package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/model"
)

// LoadFields reads a JSON collection fixture. Testing helpers fail the test on
// error to keep table tests concise.
func LoadFields(t *testing.T, path string) model.Collection {
	t.Helper()

	fields, err := LoadFieldsFromPath(path)
	if err != nil {
		t.Fatalf("load fields: %v", err)
	}
	return fields
}

// LoadFieldsFromPath returns a collection without requiring testing.T, so
// fixtures can be wired from setup functions.
func LoadFieldsFromPath(path string) (model.Collection, error) {
	if path == "" {
		return nil, errors.New("testsupport: fields path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read fields: %w", err)
	}
	var out model.Collection
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("testsupport: unmarshal fields: %w", err)
	}
	if err := out.Check(); err != nil {
		return nil, fmt.Errorf("testsupport: invalid fields: %w", err)
	}
	return out, nil
}

// SignupFields is the shared in-memory fixture: a required name with a three
// character minimum, an email, a password pair and a terms checkbox.
func SignupFields() model.Collection {
	return model.Collection{
		model.MustField("name", "Name", model.KindText,
			model.WithRules(model.Rules{Required: true, MinLength: model.Length(3)}),
		),
		model.MustField("email", "Email", model.KindEmail,
			model.WithRules(model.Rules{Required: true, Pattern: model.MustPattern(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)}),
		),
		model.MustField("password", "Password", model.KindPassword,
			model.WithRules(model.Rules{Required: true, MinLength: model.Length(8)}),
		),
		model.MustField("terms", "Accept terms", model.KindCheckbox,
			model.WithRules(model.Rules{Required: true}),
		),
	}
}

// WriteGolden writes arbitrary data as indented JSON when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// Context returns a context cancelled when the test ends.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
