package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Value is the tagged variant stored on a field: either text or a checkbox
// state. The zero Value is Text("").
type Value struct {
	isBool  bool
	text    string
	checked bool
}

// Text builds a string value for text-like kinds.
func Text(s string) Value {
	return Value{text: s}
}

// Checked builds a boolean value for checkbox fields.
func Checked(b bool) Value {
	return Value{isBool: true, checked: b}
}

// EmptyValue returns the reset value for a kind.
func EmptyValue(kind Kind) Value {
	if kind == KindCheckbox {
		return Checked(false)
	}
	return Text("")
}

// IsBool reports whether the value is the checkbox variant.
func (v Value) IsBool() bool {
	return v.isBool
}

// Bool returns the checkbox state and whether the value is a boolean.
func (v Value) Bool() (bool, bool) {
	return v.checked, v.isBool
}

// Text returns the string payload and whether the value is textual.
func (v Value) Text() (string, bool) {
	return v.text, !v.isBool
}

// String stringifies the value; booleans render as "true"/"false".
func (v Value) String() string {
	if v.isBool {
		return strconv.FormatBool(v.checked)
	}
	return v.text
}

// IsEmpty reports whether the value is the empty string or an unchecked box.
func (v Value) IsEmpty() bool {
	if v.isBool {
		return !v.checked
	}
	return v.text == ""
}

// Equal reports variant and payload equality.
func (v Value) Equal(other Value) bool {
	if v.isBool != other.isBool {
		return false
	}
	if v.isBool {
		return v.checked == other.checked
	}
	return v.text == other.text
}

// Interface returns the payload as a plain string or bool.
func (v Value) Interface() any {
	if v.isBool {
		return v.checked
	}
	return v.text
}

func (v Value) variant() string {
	if v.isBool {
		return "boolean"
	}
	return "text"
}

// ValueOf converts a decoded JSON/YAML scalar into a Value. Numbers are kept
// as their textual form since number fields store the raw input.
func ValueOf(raw any) (Value, error) {
	switch typed := raw.(type) {
	case nil:
		return Text(""), nil
	case Value:
		return typed, nil
	case string:
		return Text(typed), nil
	case bool:
		return Checked(typed), nil
	case json.Number:
		return Text(typed.String()), nil
	case float64:
		return Text(strconv.FormatFloat(typed, 'f', -1, 64)), nil
	case float32:
		return Text(strconv.FormatFloat(float64(typed), 'f', -1, 32)), nil
	case int:
		return Text(strconv.Itoa(typed)), nil
	case int64:
		return Text(strconv.FormatInt(typed, 10)), nil
	default:
		return Value{}, fmt.Errorf("model: unsupported value type %T", raw)
	}
}

// MarshalJSON encodes the value as a JSON string or boolean.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON accepts strings, booleans, numbers and null.
func (v *Value) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalYAML encodes the value as a YAML scalar.
func (v Value) MarshalYAML() (any, error) {
	return v.Interface(), nil
}

// UnmarshalYAML accepts scalar nodes; !!bool tags become checkbox values.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("model: value at line %d must be a scalar", node.Line)
	}
	switch node.Tag {
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = Checked(b)
	case "!!null":
		*v = Text("")
	default:
		*v = Text(node.Value)
	}
	return nil
}
