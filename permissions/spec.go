package permissions

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Spec types with built-in evaluators.
const (
	PermissionType = "permission"
	PolicyType     = "policy"
	ExpressionType = "expression"
)

// RawSpec is a permission specification: a type tag plus type-specific
// fields. Its JSON form is flat, e.g. {"type":"permission","permission":"x"}.
type RawSpec struct {
	Type   string
	Fields map[string]any
}

// PermissionSpec requires a literal permission name.
type PermissionSpec struct {
	Permission string `mapstructure:"permission"`
}

// PolicySpec requires a casbin policy to allow Action on Object.
type PolicySpec struct {
	Object string `mapstructure:"object"`
	Action string `mapstructure:"action"`
}

// ExpressionSpec requires a boolean expression over the principal to hold.
type ExpressionSpec struct {
	Expression string `mapstructure:"expression"`
}

// Permission returns a "permission" spec.
func Permission(name string) RawSpec {
	return RawSpec{Type: PermissionType, Fields: map[string]any{"permission": name}}
}

// Policy returns a "policy" spec.
func Policy(object, action string) RawSpec {
	return RawSpec{Type: PolicyType, Fields: map[string]any{"object": object, "action": action}}
}

// Expression returns an "expression" spec.
func Expression(expression string) RawSpec {
	return RawSpec{Type: ExpressionType, Fields: map[string]any{"expression": expression}}
}

// Decode fills out from the spec's fields. Unknown fields and mismatched
// types are errors matching ErrConfiguration.
func (s RawSpec) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if err := decoder.Decode(s.Fields); err != nil {
		return fmt.Errorf("%w: %q spec: %w", ErrConfiguration, s.Type, err)
	}
	return nil
}

// MarshalJSON encodes the spec in its flat form.
func (s RawSpec) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(s.Fields)+1)
	for k, v := range s.Fields {
		flat[k] = v
	}
	flat["type"] = s.Type
	return json.Marshal(flat)
}

// UnmarshalJSON decodes the flat form. The type field is required.
func (s *RawSpec) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	specType, ok := flat["type"].(string)
	if !ok || specType == "" {
		return fmt.Errorf("%w: spec is missing a string type field", ErrConfiguration)
	}
	delete(flat, "type")

	s.Type = specType
	s.Fields = flat
	return nil
}
