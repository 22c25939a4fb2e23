package form

import "errors"

var (
	// ErrFieldNotFound signals an action addressed a field id that is not in
	// the collection. The state is left unchanged.
	ErrFieldNotFound = errors.New("form: field not found")
	// ErrValueRejected signals an UPDATE_FIELD value the field kind cannot
	// hold (a boolean on a text field, text on a checkbox).
	ErrValueRejected = errors.New("form: value not accepted by field kind")
	// ErrDuplicateID signals ADD_FIELD reused an id already present.
	ErrDuplicateID = errors.New("form: duplicate field id")
	// ErrUnknownAction signals an action outside the closed set.
	ErrUnknownAction = errors.New("form: unknown action")
	// ErrInvalidAction signals a wire message missing required members.
	ErrInvalidAction = errors.New("form: invalid action")
)
