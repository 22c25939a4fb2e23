package form

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-formstate/pkg/model"
)

func TestForm_DispatchSignalsCallerErrors(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	f := New(sampleFields(), WithLogger(zap.New(core)), WithName("signup"))
	before := f.Fields()

	cases := []struct {
		action Action
		want   error
	}{
		{UpdateField{FieldID: "ghost", Value: model.Text("x")}, ErrFieldNotFound},
		{SetError{FieldID: "ghost", Error: "x"}, ErrFieldNotFound},
		{ClearError{FieldID: "ghost"}, ErrFieldNotFound},
		{RemoveField{FieldID: "ghost"}, ErrFieldNotFound},
		{UpdateField{FieldID: "terms", Value: model.Text("on")}, ErrValueRejected},
		{bogusAction{}, ErrUnknownAction},
	}
	for _, tc := range cases {
		if err := f.Dispatch(tc.action); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.action.Type(), err, tc.want)
		}
	}

	if !sameSlice(before, f.Fields()) {
		t.Fatalf("rejected dispatches changed state")
	}
	if got := logs.FilterMessage("form dispatch ignored").Len(); got != len(cases) {
		t.Fatalf("expected %d debug entries, got %d", len(cases), got)
	}
	entry := logs.All()[0]
	if entry.ContextMap()["form"] != "signup" {
		t.Fatalf("log entry missing form name: %v", entry.ContextMap())
	}
}

func TestForm_StrictIDsRefusesDuplicates(t *testing.T) {
	loose := New(sampleFields())
	if err := loose.Dispatch(AddField{Field: model.MustField("name", "Again", model.KindText)}); err != nil {
		t.Fatalf("loose add: %v", err)
	}
	if len(loose.Fields()) != 5 {
		t.Fatalf("loose form should append duplicate")
	}

	strict := New(sampleFields(), WithStrictIDs())
	err := strict.Dispatch(AddField{Field: model.MustField("name", "Again", model.KindText)})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if len(strict.Fields()) != 4 {
		t.Fatalf("strict form should refuse duplicate")
	}
}

func TestForm_SubscribeReceivesChangesInOrder(t *testing.T) {
	f := New(sampleFields())

	var seen []ActionType
	unsubscribe := f.Subscribe(func(c Change) {
		seen = append(seen, c.Action.Type())
		if c.Prev == nil || c.Next == nil {
			t.Errorf("change missing states")
		}
	})

	_ = f.Dispatch(UpdateField{FieldID: "name", Value: model.Text("Lin")})
	_ = f.Dispatch(UpdateField{FieldID: "ghost", Value: model.Text("x")})
	_ = f.Dispatch(SetError{FieldID: "name", Error: "nope"})
	unsubscribe()
	_ = f.Dispatch(ResetForm{})

	want := []ActionType{ActionUpdateField, ActionSetError}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
	if got := f.Errors(); len(got) != 0 {
		t.Fatalf("reset should clear errors, got %v", got)
	}
}

func TestForm_DoesNotAliasSeed(t *testing.T) {
	seed := sampleFields()
	f := New(seed)
	seed[0] = nil
	if field, ok := f.Field("name"); !ok || field == nil {
		t.Fatalf("form state aliased the seed slice")
	}
}

func TestNewFieldID(t *testing.T) {
	now := time.UnixMilli(1718031234567)
	id := newFieldID(now, uuid.MustParse("3f2a9c1b-0000-4000-8000-000000000000"))
	if id != "field-1718031234567-3f2a9c1b" {
		t.Fatalf("unexpected id %q", id)
	}

	pattern := regexp.MustCompile(`^field-\d+-[0-9a-f]{8}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		generated := NewFieldID()
		if !pattern.MatchString(generated) {
			t.Fatalf("malformed id %q", generated)
		}
		if _, dup := seen[generated]; dup {
			t.Fatalf("duplicate id %q", generated)
		}
		seen[generated] = struct{}{}
	}
}
