package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestNewField_EmptyValuePerKind(t *testing.T) {
	text := MustField("name", "Name", KindText)
	if !text.Value.Equal(Text("")) {
		t.Fatalf("text field empty value = %#v", text.Value)
	}

	box := MustField("terms", "Terms", KindCheckbox)
	if !box.Value.Equal(Checked(false)) {
		t.Fatalf("checkbox empty value = %#v", box.Value)
	}
}

func TestNewField_RejectsInvalidCombinations(t *testing.T) {
	cases := map[string]func() (*Field, error){
		"unknown kind": func() (*Field, error) {
			return NewField("a", "A", Kind("date"))
		},
		"bool on text": func() (*Field, error) {
			return NewField("a", "A", KindText, WithValue(Checked(true)))
		},
		"text on checkbox": func() (*Field, error) {
			return NewField("a", "A", KindCheckbox, WithValue(Text("yes")))
		},
		"options on text": func() (*Field, error) {
			return NewField("a", "A", KindText, WithOptions(Option{Value: "x"}))
		},
		"missing id": func() (*Field, error) {
			return NewField("  ", "A", KindText)
		},
	}

	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := build(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestField_JSONDecodesTaggedValues(t *testing.T) {
	payload := `[
		{"id":"email","kind":"email","value":"a@b.co","rules":{"required":true,"maxLength":64,"pattern":"@"}},
		{"id":"terms","kind":"checkbox","value":true},
		{"id":"age","kind":"number","value":42}
	]`

	var fields Collection
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := fields.Check(); err != nil {
		t.Fatalf("check: %v", err)
	}

	want := map[string]any{"email": "a@b.co", "terms": true, "age": "42"}
	if diff := cmp.Diff(want, fields.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	rules := fields[0].Rules
	if rules == nil || !rules.Required || rules.MaxLength == nil || *rules.MaxLength != 64 {
		t.Fatalf("rules not decoded: %#v", rules)
	}
	if rules.Pattern.String() != "@" {
		t.Fatalf("pattern = %q", rules.Pattern.String())
	}

	out, err := json.Marshal(fields[1])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"id":"terms","kind":"checkbox","value":true}` {
		t.Fatalf("unexpected encoding: %s", out)
	}
}

func TestField_YAMLDecodesTaggedValues(t *testing.T) {
	doc := `
- id: subscribe
  kind: checkbox
  value: true
- id: nickname
  kind: text
  value: "true"
  rules:
    minLength: 2
`
	var fields Collection
	if err := yaml.Unmarshal([]byte(doc), &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := fields.Check(); err != nil {
		t.Fatalf("check: %v", err)
	}
	if got, ok := fields[0].Value.Bool(); !ok || !got {
		t.Fatalf("subscribe value = %#v", fields[0].Value)
	}
	if got, ok := fields[1].Value.Text(); !ok || got != "true" {
		t.Fatalf("nickname value = %#v", fields[1].Value)
	}
}

func TestCollection_CheckReportsDuplicates(t *testing.T) {
	fields := Collection{
		MustField("a", "A", KindText),
		MustField("b", "B", KindText),
		MustField("a", "A again", KindText),
	}

	err := fields.Check()
	var dupErr *DuplicateIDError
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected DuplicateIDError, got %v", err)
	}
	if diff := cmp.Diff([]string{"a"}, dupErr.IDs); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind(" Radio ")
	if err != nil || kind != KindRadio {
		t.Fatalf("ParseKind = %q, %v", kind, err)
	}
	if _, err := ParseKind("textarea"); err == nil {
		t.Fatalf("expected error for unsupported kind")
	}
}
