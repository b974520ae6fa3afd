package scoring

import (
	"errors"
	"fmt"
)

var ErrInvalidTimestamp = errors.New("scoring: invalid timestamp")

// ParseError reports which input timestamp could not be parsed.
type ParseError struct {
	Field string
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("scoring: parse %s %q", e.Field, e.Value)
}

func (e *ParseError) Unwrap() error {
	return ErrInvalidTimestamp
}
