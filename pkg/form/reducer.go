package form

import "github.com/goliatone/go-formstate/pkg/model"

// Reduce computes the next collection for action. It is pure and total:
// unknown actions, missing ids and values the field kind cannot hold return
// state unchanged. Fields that are not touched keep their pointer identity.
func Reduce(state model.Collection, action Action) model.Collection {
	switch a := action.(type) {
	case UpdateField:
		return replace(state, a.FieldID, func(f *model.Field) *model.Field {
			if !f.Accepts(a.Value) {
				return nil
			}
			next := f.Clone()
			next.Value = a.Value
			next.Error = ""
			return next
		})

	case AddField:
		if a.Field == nil {
			return state
		}
		next := make(model.Collection, 0, len(state)+1)
		next = append(next, state...)
		return append(next, a.Field)

	case RemoveField:
		idx := state.Index(a.FieldID)
		if idx < 0 {
			return state
		}
		next := make(model.Collection, 0, len(state)-1)
		next = append(next, state[:idx]...)
		return append(next, state[idx+1:]...)

	case SetError:
		return replace(state, a.FieldID, func(f *model.Field) *model.Field {
			next := f.Clone()
			next.Error = a.Error
			return next
		})

	case ClearError:
		return replace(state, a.FieldID, func(f *model.Field) *model.Field {
			next := f.Clone()
			next.Error = ""
			return next
		})

	case ResetForm:
		return reset(state)

	case SetFields:
		if a.Fields == nil {
			return model.Collection{}
		}
		return a.Fields.Clone()

	default:
		return state
	}
}

// replace swaps the first field matching id for the result of fn. A nil
// result, or a missing id, leaves state untouched.
func replace(state model.Collection, id string, fn func(*model.Field) *model.Field) model.Collection {
	idx := state.Index(id)
	if idx < 0 {
		return state
	}
	updated := fn(state[idx])
	if updated == nil {
		return state
	}
	next := state.Clone()
	next[idx] = updated
	return next
}

func reset(state model.Collection) model.Collection {
	if len(state) == 0 {
		return state
	}
	next := make(model.Collection, len(state))
	for i, field := range state {
		if field == nil {
			continue
		}
		empty := model.EmptyValue(field.Kind)
		if field.Value.Equal(empty) && field.Error == "" {
			next[i] = field
			continue
		}
		clone := field.Clone()
		clone.Value = empty
		clone.Error = ""
		next[i] = clone
	}
	return next
}
