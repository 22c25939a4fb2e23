package controller_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/persistence"
	"github.com/goliatone/go-formstate/pkg/testsupport"
	"github.com/goliatone/go-formstate/pkg/validation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	clock  *testsupport.ManualClock
	store  *persistence.MemoryStore
	drafts *persistence.Adapter[persistence.Draft]
	form   *form.Form
	ctrl   *controller.Controller
	passes []validation.Result
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock: testsupport.NewManualClock(epoch),
		store: persistence.NewMemoryStore(),
	}
	h.drafts = persistence.NewDraftAdapter(h.store, "signup")
	h.form = form.New(testsupport.SignupFields(), form.WithName("signup"))
	h.ctrl = controller.New(testsupport.Context(t), h.form,
		controller.WithClock(h.clock),
		controller.WithDraft(h.drafts),
		controller.WithValidationHook(func(r validation.Result) {
			h.passes = append(h.passes, r)
		}),
	)
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) fieldError(t *testing.T, id string) string {
	t.Helper()
	field, ok := h.form.Field(id)
	require.True(t, ok, "field %q", id)
	return field.Error
}

func TestController_ValidatesAfterQuiescence(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.Dispatch(form.UpdateField{FieldID: "name", Value: model.Text("A")}))
	h.clock.Advance(100 * time.Millisecond)
	require.NoError(t, h.ctrl.Dispatch(form.UpdateField{FieldID: "name", Value: model.Text("Al")}))

	h.clock.Advance(499 * time.Millisecond)
	assert.Empty(t, h.passes)
	assert.Equal(t, "", h.fieldError(t, "name"))
	assert.True(t, h.ctrl.ValidatePending())

	h.clock.Advance(time.Millisecond)
	require.Len(t, h.passes, 1)
	assert.Equal(t, "minimum 3 characters", h.fieldError(t, "name"))
	assert.Equal(t, "This field is required", h.fieldError(t, "email"))
	assert.Equal(t, "This field is required", h.fieldError(t, "terms"))

	require.NoError(t, h.ctrl.Dispatch(form.UpdateField{FieldID: "name", Value: model.Text("Alice")}))
	h.clock.Advance(500 * time.Millisecond)
	require.Len(t, h.passes, 2)
	assert.Equal(t, "", h.fieldError(t, "name"))
	_, failed := h.passes[1]["name"]
	assert.False(t, failed)
}

func TestController_ErrorActionsDoNotReschedule(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.Dispatch(form.SetError{FieldID: "email", Error: "taken"}))
	require.NoError(t, h.ctrl.Dispatch(form.ClearError{FieldID: "email"}))
	assert.False(t, h.ctrl.ValidatePending())
	assert.False(t, h.ctrl.AutosavePending())

	require.NoError(t, h.ctrl.Dispatch(form.UpdateField{FieldID: "email", Value: model.Text("a@b.co")}))
	h.clock.Advance(500 * time.Millisecond)
	require.Len(t, h.passes, 1)
	assert.False(t, h.ctrl.ValidatePending(), "validation dispatches must not schedule another pass")
}

func TestController_AutosavesDraft(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.ctrl.Dispatch(form.UpdateField{FieldID: "name", Value: model.Text("Alice")}))
	h.clock.Advance(time.Second)
	require.NoError(t, h.ctrl.Dispatch(form.UpdateField{FieldID: "terms", Value: model.Checked(true)}))

	h.clock.Advance(1999 * time.Millisecond)
	assert.True(t, h.drafts.Load(ctx).IsEmpty())

	h.clock.Advance(time.Millisecond)
	draft := h.drafts.Load(ctx)
	assert.Equal(t, "signup", draft.FormID)
	assert.True(t, draft.SavedAt.Equal(epoch.Add(3*time.Second)))
	assert.True(t, draft.Values["name"].Equal(model.Text("Alice")))
	assert.True(t, draft.Values["terms"].Equal(model.Checked(true)))
	assert.Len(t, draft.Values, 4)
}

func TestController_SaveNowAndDiscard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.ctrl.Dispatch(form.UpdateField{FieldID: "name", Value: model.Text("Bob")}))
	h.ctrl.SaveNow(ctx)
	assert.False(t, h.ctrl.AutosavePending())
	assert.True(t, h.drafts.Load(ctx).Values["name"].Equal(model.Text("Bob")))

	h.ctrl.DiscardDraft(ctx)
	assert.True(t, h.drafts.Load(ctx).IsEmpty())
}

func TestController_RestoreDraft(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.drafts.Save(ctx, persistence.Draft{
		FormID: "signup",
		Values: map[string]model.Value{
			"name":  model.Text("Alice"),
			"terms": model.Checked(true),
			"email": model.Checked(true),
			"ghost": model.Text("boo"),
		},
	})

	assert.Equal(t, 2, h.ctrl.RestoreDraft(ctx))
	name, _ := h.form.Field("name")
	terms, _ := h.form.Field("terms")
	email, _ := h.form.Field("email")
	assert.True(t, name.Value.Equal(model.Text("Alice")))
	assert.True(t, terms.Value.Equal(model.Checked(true)))
	assert.True(t, email.Value.Equal(model.Text("")))
	assert.True(t, h.ctrl.ValidatePending())
}

func TestController_ValidateNow(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.Dispatch(form.UpdateField{FieldID: "password", Value: model.Text("short")}))
	result := h.ctrl.ValidateNow()

	assert.Equal(t, "minimum 8 characters", result["password"])
	assert.Equal(t, "minimum 8 characters", h.fieldError(t, "password"))
	assert.False(t, h.ctrl.ValidatePending())

	h.clock.Advance(time.Second)
	assert.Len(t, h.passes, 1)
}

func TestController_ValidationPassRunsRulesOnceAndSkipsStaleFields(t *testing.T) {
	clock := testsupport.NewManualClock(epoch)
	var f *form.Form
	calls := 0
	code := model.MustField("code", "Code", model.KindText,
		model.WithValue(model.Text("old")),
		model.WithRules(model.Rules{Custom: func(value model.Value, _ model.Collection) string {
			calls++
			if calls == 1 {
				// the user edits the field while the pass is running
				require.NoError(t, f.Dispatch(form.UpdateField{FieldID: "code", Value: model.Text("new")}))
			}
			if value.String() == "old" {
				return "code expired"
			}
			return ""
		}}),
	)
	f = form.New(model.Collection{code})
	ctrl := controller.New(testsupport.Context(t), f, controller.WithClock(clock))
	t.Cleanup(ctrl.Close)

	result := ctrl.ValidateNow()
	assert.Equal(t, 1, calls)
	assert.Empty(t, result)
	field, _ := f.Field("code")
	assert.Equal(t, "new", field.Value.String())
	assert.Equal(t, "", field.Error)

	assert.True(t, ctrl.ValidatePending())
	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, 2, calls)
}

func TestController_CloseDropsPendingWork(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.ctrl.Dispatch(form.UpdateField{FieldID: "name", Value: model.Text("Alice")}))
	h.ctrl.Close()
	h.clock.Advance(10 * time.Second)

	assert.Empty(t, h.passes)
	assert.True(t, h.drafts.Load(ctx).IsEmpty())
	assert.ErrorIs(t, h.ctrl.Dispatch(form.ResetForm{}), controller.ErrClosed)

	// the form itself keeps working, detached
	require.NoError(t, h.form.Dispatch(form.UpdateField{FieldID: "name", Value: model.Text("Zed")}))
	assert.False(t, h.ctrl.ValidatePending())
}

func TestController_ContextCancelStopsTimers(t *testing.T) {
	clock := testsupport.NewManualClock(epoch)
	f := form.New(testsupport.SignupFields())
	ctx, cancel := context.WithCancel(context.Background())

	ctrl := controller.New(ctx, f, controller.WithClock(clock))
	defer ctrl.Close()

	require.NoError(t, ctrl.Dispatch(form.UpdateField{FieldID: "name", Value: model.Text("Al")}))
	cancel()

	require.Eventually(t, func() bool {
		return ctrl.Dispatch(form.ResetForm{}) == controller.ErrClosed
	}, time.Second, 5*time.Millisecond)

	clock.Advance(time.Second)
	name, _ := f.Field("name")
	assert.Equal(t, "", name.Error)
}
