package skg

import (
	"errors"
	"fmt"
)

// Conversion errors.
var (
	// ErrEmptyInput indicates a converter was given no records.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidDate indicates a date in none of the supported layouts.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidPageRange indicates a page field with more than one dash.
	ErrInvalidPageRange = errors.New("invalid page range")
)

// ParseError reports a field value that could not be converted.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
