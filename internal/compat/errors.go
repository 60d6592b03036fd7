package compat

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTag means the tag is absent from the registry; the two
	// schemas have diverged beyond what this build supports.
	ErrUnknownTag = errors.New("unknown tag")
	// ErrUnknownEnumValue means a value lies outside its domain's closed set.
	ErrUnknownEnumValue = errors.New("unknown enum value")
	// ErrUnsupportedTag is returned for tags that are never converted, such as
	// device identifiers.
	ErrUnsupportedTag = errors.New("unsupported tag")
	// ErrUnsupportedOnRevision is returned when a tag, or a value such as
	// PURPOSE ATTEST_KEY, is not defined in the schema generation being
	// converted to or from.
	ErrUnsupportedOnRevision = errors.New("not supported on revision")
	// ErrTypeMismatch means the payload does not match the tag's category.
	ErrTypeMismatch = errors.New("payload type mismatch")
)

// ConversionError identifies the parameter that failed a list conversion.
type ConversionError struct {
	Index int
	Tag   string
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("converting parameter %d (%s): %v", e.Index, e.Tag, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}
