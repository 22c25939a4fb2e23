// Package model defines the field model shared by the reducer, the validator
// and the renderers. A Field carries its identity, input kind, current value,
// declarative validation rules and the last validation message. Values are a
// tagged variant (Text or Checked) so a boolean can only ever sit on a
// checkbox field; NewField and Field.Accepts enforce the pairing.
//
// Collections are ordered slices of *Field. Fields stored in a collection are
// treated as immutable: transitions allocate a new Field for the one that
// changed and keep every other pointer, which lets callers compare states by
// identity.
package model
