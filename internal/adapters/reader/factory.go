package reader

import (
	"strings"
)

// FormatOf returns the format selected by path's suffix.
func FormatOf(path string) (Format, error) {
	switch {
	case strings.HasSuffix(path, FormatPKL.Suffix()):
		return FormatPKL, nil
	case strings.HasSuffix(path, FormatJSONLBZ2.Suffix()):
		return FormatJSONLBZ2, nil
	}
	return "", &UnsupportedFormatError{Path: path}
}

// NewForPath returns a reader for path's format.
func NewForPath(path string, opts ...Option) (Reader, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	return New(f, opts...)
}

// New returns a reader for f.
func New(f Format, opts ...Option) (Reader, error) {
	switch f {
	case FormatPKL:
		return NewPKLReader(opts...), nil
	case FormatJSONLBZ2:
		return NewJSONLReader(opts...)
	}
	return nil, &UnsupportedFormatError{Path: string(f)}
}
