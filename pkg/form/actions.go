package form

import "github.com/goliatone/go-formstate/pkg/model"

// ActionType tags every message on the action channel.
type ActionType string

const (
	ActionUpdateField ActionType = "UPDATE_FIELD"
	ActionAddField    ActionType = "ADD_FIELD"
	ActionRemoveField ActionType = "REMOVE_FIELD"
	ActionSetError    ActionType = "SET_ERROR"
	ActionClearError  ActionType = "CLEAR_ERROR"
	ActionResetForm   ActionType = "RESET_FORM"
	ActionSetFields   ActionType = "SET_FIELDS"
)

// Action is the closed set of state transitions a form accepts.
type Action interface {
	Type() ActionType
	action()
}

// UpdateField replaces the value of FieldID and clears its error.
type UpdateField struct {
	FieldID string
	Value   model.Value
}

// AddField appends Field to the end of the collection.
type AddField struct {
	Field *model.Field
}

// RemoveField drops FieldID from the collection.
type RemoveField struct {
	FieldID string
}

// SetError attaches a validation message to FieldID.
type SetError struct {
	FieldID string
	Error   string
}

// ClearError removes the validation message of FieldID.
type ClearError struct {
	FieldID string
}

// ResetForm empties every value and error, keeping identities and rules.
type ResetForm struct{}

// SetFields replaces the entire collection.
type SetFields struct {
	Fields model.Collection
}

func (UpdateField) Type() ActionType { return ActionUpdateField }
func (AddField) Type() ActionType    { return ActionAddField }
func (RemoveField) Type() ActionType { return ActionRemoveField }
func (SetError) Type() ActionType    { return ActionSetError }
func (ClearError) Type() ActionType  { return ActionClearError }
func (ResetForm) Type() ActionType   { return ActionResetForm }
func (SetFields) Type() ActionType   { return ActionSetFields }

func (UpdateField) action() {}
func (AddField) action()    {}
func (RemoveField) action() {}
func (SetError) action()    {}
func (ClearError) action()  {}
func (ResetForm) action()   {}
func (SetFields) action()   {}

// targetID returns the field id an action addresses, if any.
func targetID(action Action) (string, bool) {
	switch a := action.(type) {
	case UpdateField:
		return a.FieldID, true
	case RemoveField:
		return a.FieldID, true
	case SetError:
		return a.FieldID, true
	case ClearError:
		return a.FieldID, true
	default:
		return "", false
	}
}
