package reader

import (
	"errors"
	"fmt"
)

// Sentinel kinds for reader errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrMalformedInput    = errors.New("malformed input")
	ErrOpenSource        = errors.New("open source failed")
)

// UnsupportedFormatError is returned by the factory for unknown suffixes.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.Path)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }
