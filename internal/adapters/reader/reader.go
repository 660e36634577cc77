// Package reader turns tracking recordings into the normalized event model.
//
// Two formats are supported: pickled window archives (.pkl) and per-frame
// bzip2 JSON lines (.jsonl.bz2). NewForPath picks the implementation from the
// file suffix.
package reader

import (
	"context"

	"github.com/okian/pitchtrack/internal/domain/model"
)

// Format identifies a source file format.
type Format string

// Supported formats.
const (
	FormatPKL      Format = "pkl"
	FormatJSONLBZ2 Format = "jsonl.bz2"
)

// Suffix returns the file suffix that selects f.
func (f Format) Suffix() string { return "." + string(f) }

// Reader loads a source file into a Dataset.
type Reader interface {
	// Format returns the format this reader parses.
	Format() Format

	// Load parses path and returns its events keyed by split.
	Load(ctx context.Context, path string, opts ...LoadOption) (model.Dataset, error)

	// AvailableEvents returns the deduplicated labels of each split. It reads
	// only data and never touches the source files.
	AvailableEvents(data model.Dataset) map[string]model.LabelSet
}

// LoadOption customizes a single Load call.
type LoadOption func(*loadOptions)

type loadOptions struct {
	annotationsPath string
	stats           *LoadStats
}

// LoadStats describes one Load call. It belongs to the caller, so
// concurrent loads on one reader never see each other's numbers.
type LoadStats struct {
	// Game is the game id derived from the file name (JSONL only).
	Game string
	// Annotated reports whether the game had cached annotations.
	Annotated bool
	// Annotations is the number of annotations the events were built from.
	Annotations int
	// Frames is the number of distinct frames read (JSONL only).
	Frames int
}

// WithAnnotationsPath points a JSONL load at an annotations document. A
// missing file is not an error; the reader falls back to heuristic
// segmentation. PKL loads ignore it.
func WithAnnotationsPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.annotationsPath = path
	}
}

// WithLoadStats fills st when the load succeeds. PKL loads leave it
// untouched.
func WithLoadStats(st *LoadStats) LoadOption {
	return func(o *loadOptions) {
		o.stats = st
	}
}

func applyLoadOptions(opts []LoadOption) loadOptions {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// base carries the settings and the label projection shared by both readers.
type base struct {
	settings
}

func (b *base) AvailableEvents(data model.Dataset) map[string]model.LabelSet {
	return model.AvailableEvents(data)
}
