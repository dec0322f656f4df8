package ply

import "errors"

var (
	// ErrUnsupportedType is returned when a property's values are not numbers,
	// lists of numbers or nested lists of numbers.
	ErrUnsupportedType = errors.New("unsupported property type")

	// ErrMismatchedLength is returned when the properties of one element
	// disagree on their record count.
	ErrMismatchedLength = errors.New("mismatched property lengths")

	// ErrCountOverflow is returned when a list is longer than its count type
	// can express. Columns modified after the stream was created cause this.
	ErrCountOverflow = errors.New("list length exceeds count type")

	// ErrUnknownFormat is returned for unrecognized format, kind or type names.
	ErrUnknownFormat = errors.New("unknown format")
)
