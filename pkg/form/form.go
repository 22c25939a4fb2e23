package form

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/model"
)

// Change describes one state-changing dispatch.
type Change struct {
	Action Action
	Prev   model.Collection
	Next   model.Collection
}

// Listener observes state changes.
type Listener func(Change)

// Option configures a Form.
type Option func(*Form)

// WithLogger routes no-op and rejected dispatch diagnostics to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Form) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithStrictIDs refuses ADD_FIELD when the id is already present instead of
// appending a duplicate.
func WithStrictIDs() Option {
	return func(f *Form) {
		f.strictIDs = true
	}
}

// WithName labels log entries and listeners with a form identifier.
func WithName(name string) Option {
	return func(f *Form) {
		f.name = name
	}
}

// Form owns one field collection and serialises every dispatch through the
// pure reducer, giving a total order over state changes.
type Form struct {
	mu        sync.Mutex
	fields    model.Collection
	listeners map[int]Listener
	nextSub   int

	name      string
	strictIDs bool
	logger    *zap.Logger
}

// New constructs a Form seeded with fields.
func New(fields model.Collection, options ...Option) *Form {
	f := &Form{
		fields:    fields.Clone(),
		listeners: make(map[int]Listener),
		logger:    zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(f)
	}
	return f
}

// Name returns the form identifier, if any.
func (f *Form) Name() string {
	return f.name
}

// Fields returns the current collection. Callers must not mutate the fields.
func (f *Form) Fields() model.Collection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

// Field looks up a single field by id.
func (f *Form) Field(id string) (*model.Field, bool) {
	return f.Fields().Find(id)
}

// Values maps ids to plain payloads.
func (f *Form) Values() map[string]any {
	return f.Fields().Values()
}

// Errors maps ids to their current validation message.
func (f *Form) Errors() map[string]string {
	return f.Fields().Errors()
}

// Dispatch applies action through Reduce. The reducer stays total; the
// returned error only signals a caller bug (unknown id, rejected value,
// duplicate id or unknown action) for which the state did not change.
func (f *Form) Dispatch(action Action) error {
	if action == nil {
		return fmt.Errorf("%w: nil action", ErrUnknownAction)
	}

	f.mu.Lock()
	prev := f.fields
	if err := f.precheck(prev, action); err != nil {
		f.mu.Unlock()
		f.logger.Debug("form dispatch ignored",
			zap.String("form", f.name),
			zap.String("action", string(action.Type())),
			zap.Error(err),
		)
		return err
	}
	next := Reduce(prev, action)
	f.fields = next
	listeners := f.snapshotListeners()
	f.mu.Unlock()

	if duplicate := addDuplicate(prev, action); duplicate != "" {
		f.logger.Warn("form field id added twice",
			zap.String("form", f.name),
			zap.String("field", duplicate),
		)
	}

	change := Change{Action: action, Prev: prev, Next: next}
	for _, listener := range listeners {
		listener(change)
	}
	return nil
}

// Subscribe registers a listener notified after every applied dispatch.
// Listeners run on the dispatching goroutine and must not dispatch
// synchronously. The returned func removes the listener.
func (f *Form) Subscribe(listener Listener) func() {
	if listener == nil {
		return func() {}
	}
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.listeners[id] = listener
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *Form) precheck(state model.Collection, action Action) error {
	if id, ok := targetID(action); ok {
		field, found := state.Find(id)
		if !found {
			return fmt.Errorf("%w: %q", ErrFieldNotFound, id)
		}
		if update, isUpdate := action.(UpdateField); isUpdate && !field.Accepts(update.Value) {
			return fmt.Errorf("%w: field %q (%s)", ErrValueRejected, id, field.Kind)
		}
		return nil
	}

	switch a := action.(type) {
	case AddField:
		if a.Field == nil {
			return fmt.Errorf("%w: ADD_FIELD without field", ErrInvalidAction)
		}
		if f.strictIDs && state.Index(a.Field.ID) >= 0 {
			return fmt.Errorf("%w: %q", ErrDuplicateID, a.Field.ID)
		}
		return nil
	case ResetForm, SetFields:
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnknownAction, action)
	}
}

func (f *Form) snapshotListeners() []Listener {
	if len(f.listeners) == 0 {
		return nil
	}
	ids := make([]int, 0, len(f.listeners))
	for id := range f.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener, len(ids))
	for i, id := range ids {
		out[i] = f.listeners[id]
	}
	return out
}

func addDuplicate(prev model.Collection, action Action) string {
	add, ok := action.(AddField)
	if !ok || add.Field == nil {
		return ""
	}
	if prev.Index(add.Field.ID) >= 0 {
		return add.Field.ID
	}
	return ""
}
