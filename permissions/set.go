package permissions

import (
	"encoding/json"
	"slices"
)

// Set is an immutable set of permission names. The zero Set is empty.
type Set struct {
	m map[string]struct{}
}

// NewSet returns a Set holding the given permissions.
func NewSet(permissions ...string) Set {
	m := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		m[p] = struct{}{}
	}
	return Set{m: m}
}

// Has reports whether permission is in the set.
func (s Set) Has(permission string) bool {
	_, ok := s.m[permission]
	return ok
}

// Len returns the number of permissions.
func (s Set) Len() int {
	return len(s.m)
}

// Slice returns the permissions in sorted order.
func (s Set) Slice() []string {
	out := make([]string, 0, len(s.m))
	for p := range s.m {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// MarshalJSON encodes the set as a sorted JSON array.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON decodes a JSON array of strings.
func (s *Set) UnmarshalJSON(data []byte) error {
	var permissions []string
	if err := json.Unmarshal(data, &permissions); err != nil {
		return err
	}
	*s = NewSet(permissions...)
	return nil
}
