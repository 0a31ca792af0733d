package reconcile

import (
	"errors"
	"fmt"
)

// ErrInvalidValues reports a values parameter that is neither a string nor a
// list of strings. It is detected before any directory contact.
var ErrInvalidValues = errors.New("values must be a string or list of strings")

// ValueSet is a set of attribute values with input order preserved.
// Duplicates in the input collapse to their first occurrence. Equality is
// exact byte-for-byte; no matching-rule semantics are applied.
type ValueSet struct {
	values []string
	index  map[string]struct{}
}

// NewValueSet builds a set from the given values, de-duplicating while
// preserving first-seen order.
func NewValueSet(values ...string) ValueSet {
	set := ValueSet{
		values: make([]string, 0, len(values)),
		index:  make(map[string]struct{}, len(values)),
	}
	for _, v := range values {
		set.add(v)
	}
	return set
}

func (s *ValueSet) add(value string) {
	if _, ok := s.index[value]; ok {
		return
	}
	s.index[value] = struct{}{}
	s.values = append(s.values, value)
}

// Values returns the members in input order.
func (s ValueSet) Values() []string {
	return s.values
}

// Len returns the number of members.
func (s ValueSet) Len() int {
	return len(s.values)
}

// IsEmpty reports whether the set has no members.
func (s ValueSet) IsEmpty() bool {
	return len(s.values) == 0
}

// Contains reports byte-for-byte membership.
func (s ValueSet) Contains(value string) bool {
	_, ok := s.index[value]
	return ok
}

// Equal reports set equality, ignoring order.
func (s ValueSet) Equal(other ValueSet) bool {
	if len(s.values) != len(other.values) {
		return false
	}
	for v := range s.index {
		if _, ok := other.index[v]; !ok {
			return false
		}
	}
	return true
}

// NormalizeValues parses the raw values parameter into a ValueSet. A single
// string becomes a one-element set, except the empty string, which becomes
// the empty set. Lists may arrive as []string or as []any of strings (the
// shape produced by decoding JSON parameters). Anything else is
// ErrInvalidValues.
func NormalizeValues(raw any) (ValueSet, error) {
	switch v := raw.(type) {
	case nil:
		return ValueSet{}, fmt.Errorf("%w: got nil", ErrInvalidValues)
	case string:
		if v == "" {
			return NewValueSet(), nil
		}
		return NewValueSet(v), nil
	case []string:
		return NewValueSet(v...), nil
	case []any:
		values := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return ValueSet{}, fmt.Errorf("%w: list contains %T", ErrInvalidValues, item)
			}
			values = append(values, str)
		}
		return NewValueSet(values...), nil
	default:
		return ValueSet{}, fmt.Errorf("%w: got %T", ErrInvalidValues, raw)
	}
}
