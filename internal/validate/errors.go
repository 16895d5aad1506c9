package validate

import "fmt"

// Error reports a rejected value with the rule it broke.
type Error struct {
	Field  string // name, domain, port, path, env.<KEY>, command
	Value  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func fail(field, value, reason string) *Error {
	return &Error{Field: field, Value: value, Reason: reason}
}
