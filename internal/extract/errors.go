package extract

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidJSON     = errors.New("invalid json")
	ErrMissingField    = errors.New("missing field")
	ErrPatternNotFound = errors.New("pattern not found")
)

// ParseError is returned by every parser in this package. Field is the dotted
// path of the offending value (`members[3].USN`), empty when the payload as a
// whole could not be read.
type ParseError struct {
	Payload string
	Field   string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse %s: %v", e.Payload, e.Err)
	}
	return fmt.Sprintf("parse %s: %s: %v", e.Payload, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
