package bandit

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter is returned when a constructor or simulation argument
// is outside its allowed range.
var ErrInvalidParameter = errors.New("invalid parameter")

// ParameterError names the offending parameter and why it was rejected.
type ParameterError struct {
	Name   string
	Value  any
	Reason string
}

// Error implements error.
func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s: %s=%v %s", ErrInvalidParameter, e.Name, e.Value, e.Reason)
}

// Unwrap returns ErrInvalidParameter so errors.Is matches every ParameterError.
func (e *ParameterError) Unwrap() error {
	return ErrInvalidParameter
}

func invalidParam(name string, value any, reason string) error {
	return &ParameterError{Name: name, Value: value, Reason: reason}
}

func requirePositive(name string, v int) error {
	if v <= 0 {
		return invalidParam(name, v, "must be > 0")
	}
	return nil
}
