package form

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-formstate/pkg/model"
)

// wireAction is the JSON tagged union used on the action channel, for
// example {"type":"UPDATE_FIELD","fieldId":"name","value":"Al"}.
type wireAction struct {
	Type    ActionType       `json:"type"`
	FieldID string           `json:"fieldId,omitempty"`
	Value   *model.Value     `json:"value,omitempty"`
	Error   string           `json:"error,omitempty"`
	Field   *model.Field     `json:"field,omitempty"`
	Fields  model.Collection `json:"fields,omitempty"`
}

// EncodeAction serialises an action into its wire form.
func EncodeAction(action Action) ([]byte, error) {
	var msg wireAction
	switch a := action.(type) {
	case UpdateField:
		value := a.Value
		msg = wireAction{Type: a.Type(), FieldID: a.FieldID, Value: &value}
	case AddField:
		msg = wireAction{Type: a.Type(), Field: a.Field}
	case RemoveField:
		msg = wireAction{Type: a.Type(), FieldID: a.FieldID}
	case SetError:
		msg = wireAction{Type: a.Type(), FieldID: a.FieldID, Error: a.Error}
	case ClearError:
		msg = wireAction{Type: a.Type(), FieldID: a.FieldID}
	case ResetForm:
		msg = wireAction{Type: a.Type()}
	case SetFields:
		msg = wireAction{Type: a.Type(), Fields: a.Fields}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownAction, action)
	}
	return json.Marshal(msg)
}

// DecodeAction parses a wire message. Structural problems (missing field id,
// invalid field definitions) are reported as ErrInvalidAction; unknown tags as
// ErrUnknownAction.
func DecodeAction(data []byte) (Action, error) {
	var msg wireAction
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}

	msg.Type = ActionType(strings.ToUpper(strings.TrimSpace(string(msg.Type))))
	msg.FieldID = strings.TrimSpace(msg.FieldID)

	requireID := func() error {
		if msg.FieldID == "" {
			return fmt.Errorf("%w: %s requires fieldId", ErrInvalidAction, msg.Type)
		}
		return nil
	}

	switch msg.Type {
	case ActionUpdateField:
		if err := requireID(); err != nil {
			return nil, err
		}
		if msg.Value == nil {
			return nil, fmt.Errorf("%w: %s requires value", ErrInvalidAction, msg.Type)
		}
		return UpdateField{FieldID: msg.FieldID, Value: *msg.Value}, nil
	case ActionAddField:
		if msg.Field == nil {
			return nil, fmt.Errorf("%w: %s requires field", ErrInvalidAction, msg.Type)
		}
		if err := msg.Field.Check(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		return AddField{Field: msg.Field}, nil
	case ActionRemoveField:
		if err := requireID(); err != nil {
			return nil, err
		}
		return RemoveField{FieldID: msg.FieldID}, nil
	case ActionSetError:
		if err := requireID(); err != nil {
			return nil, err
		}
		return SetError{FieldID: msg.FieldID, Error: msg.Error}, nil
	case ActionClearError:
		if err := requireID(); err != nil {
			return nil, err
		}
		return ClearError{FieldID: msg.FieldID}, nil
	case ActionResetForm:
		return ResetForm{}, nil
	case ActionSetFields:
		if err := msg.Fields.Check(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		if msg.Fields == nil {
			msg.Fields = model.Collection{}
		}
		return SetFields{Fields: msg.Fields}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, msg.Type)
	}
}
