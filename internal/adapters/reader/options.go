package reader

import (
	"runtime"

	"github.com/okian/pitchtrack/internal/domain/model"
	"github.com/okian/pitchtrack/internal/domain/pitch"
	"github.com/okian/pitchtrack/pkg/logger"
)

// Defaults used when no option overrides them.
const (
	DefaultWindowMS          = 2000
	DefaultMinFallbackFrames = 10
	DefaultAnnotationGames   = 0
)

type settings struct {
	log               logger.Logger
	pitch             pitch.Pitch
	windowMS          int64
	minFallbackFrames int
	cache             *AnnotationCache
	workers           int
	split             string
	schema            ChannelSchema
}

func defaultSettings() settings {
	log := logger.Nop()
	if logger.Initialized() {
		log = logger.Named("reader")
	}
	return settings{
		log:               log,
		pitch:             pitch.Standard(),
		windowMS:          DefaultWindowMS,
		minFallbackFrames: DefaultMinFallbackFrames,
		workers:           runtime.NumCPU(),
		split:             model.DefaultSplit,
		schema:            DefaultChannelSchema(),
	}
}

// Option applies a configuration option to a reader.
type Option func(*settings)

// WithLogger sets the reader logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPitch sets the pitch used for the centre-to-corner shift.
func WithPitch(p pitch.Pitch) Option {
	return func(s *settings) {
		if p.Length > 0 && p.Width > 0 {
			s.pitch = p
		}
	}
}

// WithWindowMS sets the half-width of annotation windows.
func WithWindowMS(ms int) Option {
	return func(s *settings) {
		if ms > 0 {
			s.windowMS = int64(ms)
		}
	}
}

// WithMinFallbackFrames sets the smallest frame group kept by heuristic
// segmentation.
func WithMinFallbackFrames(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.minFallbackFrames = n
		}
	}
}

// WithAnnotationCache injects the annotation cache. Readers sharing a cache
// see each other's annotation documents.
func WithAnnotationCache(c *AnnotationCache) Option {
	return func(s *settings) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithExtractWorkers bounds concurrent per-event extraction.
func WithExtractWorkers(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithSplit names the split events are emitted under.
func WithSplit(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.split = name
		}
	}
}

// WithChannelSchema overrides the PKL channel layout.
func WithChannelSchema(cs ChannelSchema) Option {
	return func(s *settings) {
		s.schema = cs
	}
}

func newSettings(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
