package svb

import "errors"

// Decode errors. All of them except ErrUnknownChannel abort the whole file
// decode; there is no partial recovery from a corrupt header.
var (
	// ErrTruncated indicates fewer bytes were available than a field or
	// data region declares.
	ErrTruncated = errors.New("svb: truncated input")

	// ErrMalformedString indicates a length-prefixed string was not valid UTF-8.
	ErrMalformedString = errors.New("svb: malformed string")

	// ErrHeaderSizeMismatch indicates a declared header byte count does not
	// match the bytes actually consumed.
	ErrHeaderSizeMismatch = errors.New("svb: header size mismatch")

	// ErrDataSizeMismatch indicates a channel's declared data size is
	// inconsistent with its sample count and value width.
	ErrDataSizeMismatch = errors.New("svb: data size mismatch")

	// ErrUnknownDataType indicates a channel declared a data type tag outside
	// the recognized set.
	ErrUnknownDataType = errors.New("svb: unknown data type")

	// ErrUnknownChannel is returned by lookups for names absent from the file.
	ErrUnknownChannel = errors.New("svb: unknown channel")
)
