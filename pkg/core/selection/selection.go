// Package selection resolves dropdown selections from persisted page state.
//
// The page's addressable state (its query string) is modelled as an explicit,
// immutable State value: resolution reads it, and a selection change returns a
// new State rather than writing through a side channel.
package selection

import (
	"net/url"
)

// State is the persisted selection state of a page.
type State struct {
	values url.Values
}

// NewState copies values into a State.
func NewState(values url.Values) State {
	cp := make(url.Values, len(values))
	for k, v := range values {
		cp[k] = append([]string(nil), v...)
	}
	return State{values: cp}
}

// ParseState parses a raw query string.
func ParseState(rawQuery string) (State, error) {
	v, err := url.ParseQuery(rawQuery)
	if err != nil {
		return State{}, err
	}
	return NewState(v), nil
}

// Get returns the persisted value for key.
func (s State) Get(key string) string {
	return s.values.Get(key)
}

// All returns every persisted value for key.
func (s State) All(key string) []string {
	return append([]string(nil), s.values[key]...)
}

// With returns a new State with key set to value. An empty value removes key.
func (s State) With(key, value string) State {
	next := NewState(s.values)
	if value == "" {
		next.values.Del(key)
	} else {
		next.values.Set(key, value)
	}
	return next
}

// WithAll returns a new State with key set to values.
func (s State) WithAll(key string, values []string) State {
	next := NewState(s.values)
	next.values.Del(key)
	for _, v := range values {
		next.values.Add(key, v)
	}
	return next
}

// Encode renders the state as a query string.
func (s State) Encode() string {
	return s.values.Encode()
}

// Selection is the resolved choice for one dropdown.
type Selection struct {
	// Index into the option set; -1 when the option set is empty.
	Index int
	// Value is the option at Index, or "" when unset.
	Value string
	// Valid is true when the persisted value was found among the options.
	Valid bool
}

// Unset reports whether no option could be selected at all.
func (s Selection) Unset() bool { return s.Index < 0 }

// Resolve picks the option persisted under key. A persisted value outside the
// option set, or no persisted value, falls back to the first option. The
// returned index is always within range or -1 for an empty option set.
func Resolve(state State, key string, options []string) Selection {
	if len(options) == 0 {
		return Selection{Index: -1}
	}
	if persisted := state.Get(key); persisted != "" {
		for i, opt := range options {
			if opt == persisted {
				return Selection{Index: i, Value: opt, Valid: true}
			}
		}
	}
	return Selection{Index: 0, Value: options[0]}
}

// Select records a user's choice: it validates value against options and
// returns the resolved selection together with the updated state. An invalid
// value leaves the state unchanged.
func Select(state State, key, value string, options []string) (Selection, State) {
	for i, opt := range options {
		if opt == value {
			return Selection{Index: i, Value: opt, Valid: true}, state.With(key, value)
		}
	}
	return Resolve(state, key, options), state
}

// FilterValid keeps the persisted values for key that are in options, in
// persisted order without duplicates. Used for multi-selects.
func FilterValid(state State, key string, options []string) []string {
	allowed := make(map[string]bool, len(options))
	for _, o := range options {
		allowed[o] = true
	}
	var out []string
	seen := make(map[string]bool)
	for _, v := range state.All(key) {
		if allowed[v] && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
