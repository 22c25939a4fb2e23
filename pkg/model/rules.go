package model

import (
	"encoding/json"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// CustomRule runs after every built-in rule has passed. It receives the full
// collection so dependent fields (confirm password) can look at siblings, and
// returns an error message or the empty string.
type CustomRule func(value Value, fields Collection) string

// Rules are the declarative constraints attached to a field. MinLength must
// not exceed MaxLength when both are set; that precondition is the caller's
// to keep and is not checked at runtime.
type Rules struct {
	Required  bool       `json:"required,omitempty" yaml:"required,omitempty"`
	MinLength *int       `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int       `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern   *Pattern   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Custom    CustomRule `json:"-" yaml:"-"`
}

// Length returns a pointer for MinLength/MaxLength literals.
func Length(n int) *int {
	return &n
}

// Pattern wraps a compiled regular expression and serialises as its source.
type Pattern struct {
	re *regexp.Regexp
}

// CompilePattern compiles expr into a Pattern.
func CompilePattern(expr string) (*Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("model: invalid pattern %q: %w", expr, err)
	}
	return &Pattern{re: re}, nil
}

// MustPattern is CompilePattern that panics on invalid expressions.
func MustPattern(expr string) *Pattern {
	p, err := CompilePattern(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// MatchString reports whether s contains a match of the pattern.
func (p *Pattern) MatchString(s string) bool {
	if p == nil || p.re == nil {
		return true
	}
	return p.re.MatchString(s)
}

// String returns the source expression.
func (p *Pattern) String() string {
	if p == nil || p.re == nil {
		return ""
	}
	return p.re.String()
}

// Equal compares patterns by source.
func (p *Pattern) Equal(other *Pattern) bool {
	return p.String() == other.String()
}

// MarshalJSON encodes the source expression.
func (p *Pattern) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON compiles the source expression.
func (p *Pattern) UnmarshalJSON(data []byte) error {
	var expr string
	if err := json.Unmarshal(data, &expr); err != nil {
		return err
	}
	compiled, err := CompilePattern(expr)
	if err != nil {
		return err
	}
	*p = *compiled
	return nil
}

// MarshalYAML encodes the source expression.
func (p *Pattern) MarshalYAML() (any, error) {
	return p.String(), nil
}

// UnmarshalYAML compiles the source expression.
func (p *Pattern) UnmarshalYAML(node *yaml.Node) error {
	var expr string
	if err := node.Decode(&expr); err != nil {
		return err
	}
	compiled, err := CompilePattern(expr)
	if err != nil {
		return err
	}
	*p = *compiled
	return nil
}
