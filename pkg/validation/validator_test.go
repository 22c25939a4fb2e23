package validation

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/model"
)

func textField(id, value string, rules model.Rules) *model.Field {
	return model.MustField(id, id, model.KindText, model.WithValue(model.Text(value)), model.WithRules(rules))
}

func TestValidateField_RuleOrder(t *testing.T) {
	v := New()
	cases := []struct {
		name  string
		field *model.Field
		want  string
	}{
		{
			name:  "required wins over minLength",
			field: textField("a", "", model.Rules{Required: true, MinLength: model.Length(5)}),
			want:  "This field is required",
		},
		{
			name:  "minLength",
			field: textField("a", "Al", model.Rules{Required: true, MinLength: model.Length(3)}),
			want:  "minimum 3 characters",
		},
		{
			name:  "maxLength",
			field: textField("a", "abcdef", model.Rules{MaxLength: model.Length(4), Pattern: model.MustPattern(`^\d+$`)}),
			want:  "maximum 4 characters",
		},
		{
			name:  "pattern",
			field: textField("a", "abc", model.Rules{MaxLength: model.Length(4), Pattern: model.MustPattern(`^\d+$`)}),
			want:  "invalid format",
		},
		{
			name:  "minLength counts characters not bytes",
			field: textField("a", "ñññ", model.Rules{MinLength: model.Length(3), MaxLength: model.Length(3)}),
			want:  "",
		},
		{
			name:  "empty optional still checks minLength",
			field: textField("a", "", model.Rules{MinLength: model.Length(2)}),
			want:  "minimum 2 characters",
		},
		{
			name:  "no rules",
			field: model.MustField("a", "A", model.KindText),
			want:  "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := v.ValidateField(tc.field, model.Collection{tc.field}); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestValidateField_RequiredCheckboxMustBeChecked(t *testing.T) {
	v := New()
	box := model.MustField("terms", "Terms", model.KindCheckbox, model.WithRules(model.Rules{Required: true}))
	if got := v.ValidateField(box, nil); got != "This field is required" {
		t.Fatalf("unchecked required box: %q", got)
	}

	checked := form.Reduce(model.Collection{box}, form.UpdateField{FieldID: "terms", Value: model.Checked(true)})
	if got := v.ValidateField(checked[0], checked); got != "" {
		t.Fatalf("checked box should pass, got %q", got)
	}
}

func TestValidateField_CustomRunsLast(t *testing.T) {
	calls := 0
	custom := func(model.Value, model.Collection) string {
		calls++
		return "custom failed"
	}
	v := New()

	failing := textField("a", "", model.Rules{Required: true, Custom: custom})
	if got := v.ValidateField(failing, nil); got != "This field is required" {
		t.Fatalf("got %q", got)
	}
	if calls != 0 {
		t.Fatalf("custom rule ran after a built-in failure")
	}

	passing := textField("a", "value", model.Rules{Required: true, Custom: custom})
	if got := v.ValidateField(passing, nil); got != "custom failed" {
		t.Fatalf("got %q", got)
	}
	if calls != 1 {
		t.Fatalf("custom rule calls = %d", calls)
	}
}

func TestValidate_CrossFieldEquals(t *testing.T) {
	v := New()
	fields := model.Collection{
		model.MustField("password", "Password", model.KindPassword, model.WithValue(model.Text("s3cret!"))),
		model.MustField("confirm", "Confirm", model.KindPassword,
			model.WithValue(model.Text("s3cret")),
			model.WithRules(model.Rules{Required: true, Custom: Equals("password", "passwords do not match")}),
		),
	}

	got := v.Validate(fields)
	if diff := cmp.Diff(Result{"confirm": "passwords do not match"}, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	fixed := form.Reduce(fields, form.UpdateField{FieldID: "confirm", Value: model.Text("s3cret!")})
	if res := v.Validate(fixed); !res.Valid() {
		t.Fatalf("expected valid, got %v", res)
	}
}

func TestApply_RecomputesErrorsFromScratch(t *testing.T) {
	v := New()
	fields := model.Collection{
		textField("name", "", model.Rules{Required: true}),
		textField("nick", "ok", model.Rules{MinLength: model.Length(2)}),
	}
	fields = form.Reduce(fields, form.SetError{FieldID: "nick", Error: "stale"})

	applied := v.Apply(fields)
	want := map[string]string{"name": "This field is required"}
	if diff := cmp.Diff(want, applied.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	actions := v.Actions(fields)
	wantTypes := []form.ActionType{form.ActionSetError, form.ActionClearError}
	var gotTypes []form.ActionType
	for _, a := range actions {
		gotTypes = append(gotTypes, a.Type())
	}
	if diff := cmp.Diff(wantTypes, gotTypes); diff != "" {
		t.Fatalf("actions mismatch (-want +got):\n%s", diff)
	}
}

func TestWithMessages(t *testing.T) {
	v := New(WithMessages(Messages{MinLength: "al menos %d caracteres"}))
	field := textField("a", "x", model.Rules{Required: true, MinLength: model.Length(2)})
	if got := v.ValidateField(field, nil); got != "al menos 2 caracteres" {
		t.Fatalf("got %q", got)
	}
	empty := textField("a", "", model.Rules{Required: true})
	if got := v.ValidateField(empty, nil); got != "This field is required" {
		t.Fatalf("default message lost: %q", got)
	}
}

func TestEndToEnd_UpdateThenValidate(t *testing.T) {
	v := New()
	f := form.New(model.Collection{
		textField("name", "", model.Rules{Required: true, MinLength: model.Length(3)}),
	})

	run := func() {
		for _, action := range v.Actions(f.Fields()) {
			if err := f.Dispatch(action); err != nil {
				t.Fatalf("dispatch: %v", err)
			}
		}
	}

	if err := f.Dispatch(form.UpdateField{FieldID: "name", Value: model.Text("Al")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	run()
	if got := f.Errors()["name"]; got != "minimum 3 characters" {
		t.Fatalf("after Al: %q", got)
	}

	if err := f.Dispatch(form.UpdateField{FieldID: "name", Value: model.Text("Alice")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	run()
	if _, has := f.Errors()["name"]; has {
		t.Fatalf("error should be absent after Alice")
	}
}

func TestOneOfAndChain(t *testing.T) {
	options := []model.Option{{Value: "free"}, {Value: "pro"}}
	rule := Chain(nil, OneOf(options, "unknown plan"))
	if got := rule(model.Text("enterprise"), nil); got != "unknown plan" {
		t.Fatalf("got %q", got)
	}
	if got := rule(model.Text("pro"), nil); got != "" {
		t.Fatalf("got %q", got)
	}
	if got := rule(model.Text(""), nil); got != "" {
		t.Fatalf("empty value should defer to required, got %q", got)
	}
}
