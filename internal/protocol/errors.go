package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTransaction   = errors.New("protocol: empty transaction")
	ErrTruncatedRecord    = errors.New("protocol: truncated record")
	ErrLengthMismatch     = errors.New("protocol: record length mismatch")
	ErrMalformedHeader    = errors.New("protocol: malformed record header")
	ErrMalformedTag       = errors.New("protocol: malformed field tag")
	ErrRecordTypeMismatch = errors.New("protocol: record type mismatch")
	ErrTrailingData       = errors.New("protocol: trailing data after last record")
	ErrDuplicateField     = errors.New("protocol: duplicate field tag")
)

// ParseError locates a structural failure in the byte stream.
type ParseError struct {
	Offset      int
	RecordIndex int
	Tag         Tag
	Err         error
}

func (e *ParseError) Error() string {
	if e.Tag != (Tag{}) {
		return fmt.Sprintf("record %d at offset %d field %s: %v", e.RecordIndex, e.Offset, e.Tag, e.Err)
	}
	return fmt.Sprintf("record %d at offset %d: %v", e.RecordIndex, e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
