package record

import (
	"errors"
	"fmt"
)

// ErrNotArray is matched by ShapeError when the top-level value is not an array.
var ErrNotArray = errors.New("input is not a JSON array")

// ParseError is returned when the supplied text is not valid JSON.
type ParseError struct {
	Offset int64 // byte offset of a syntax error, 0 when unknown
	Err    error
}

func (e *ParseError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("invalid JSON at offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("invalid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ShapeError is returned when the input parses but its top-level value is not an array.
type ShapeError struct {
	Got string // JSON type found instead, e.g. "object"
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("expected a JSON array of records, got %s", e.Got)
}

// Is lets errors.Is(err, ErrNotArray) match.
func (e *ShapeError) Is(target error) bool {
	return target == ErrNotArray
}
