// Package config defines ingestion configuration and its loading hooks.
//
// Values are layered: defaults from New, then an optional YAML file, then
// PITCHTRACK_ environment variables. See Load.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// WindowMS is the half-width of the frame window around an annotation.
	WindowMS int `koanf:"window_ms"`

	// MinFallbackFrames is the smallest game_event_id group kept by the
	// heuristic segmentation.
	MinFallbackFrames int `koanf:"min_fallback_frames"`

	// PitchLength and PitchWidth are the pitch dimensions in metres. Source
	// coordinates are centre-origin and get shifted by half of each.
	PitchLength float64 `koanf:"pitch_length"`
	PitchWidth  float64 `koanf:"pitch_width"`

	// AnnotationCacheSize bounds the number of games kept in the annotation
	// cache. Zero keeps every game.
	AnnotationCacheSize int `koanf:"annotation_cache_size"`

	// ExtractWorkers bounds concurrent per-event frame extraction.
	ExtractWorkers int `koanf:"extract_workers"`

	// AnnotationsPath is the default annotations document for JSONL loads.
	AnnotationsPath string `koanf:"annotations_path"`

	// Split names the partition every event is placed in.
	Split string `koanf:"split"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		WindowMS:            2000,
		MinFallbackFrames:   10,
		PitchLength:         105,
		PitchWidth:          68,
		AnnotationCacheSize: 0,
		ExtractWorkers:      runtime.NumCPU(),
		Split:               "default",
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.WindowMS <= 0:
		return fmt.Errorf("%w: window_ms must be positive, got %d", ErrInvalidConfig, c.WindowMS)
	case c.MinFallbackFrames <= 0:
		return fmt.Errorf("%w: min_fallback_frames must be positive, got %d", ErrInvalidConfig, c.MinFallbackFrames)
	case c.PitchLength <= 0 || c.PitchWidth <= 0:
		return fmt.Errorf("%w: pitch dimensions must be positive, got %gx%g", ErrInvalidConfig, c.PitchLength, c.PitchWidth)
	case c.AnnotationCacheSize < 0:
		return fmt.Errorf("%w: annotation_cache_size must not be negative, got %d", ErrInvalidConfig, c.AnnotationCacheSize)
	case c.ExtractWorkers <= 0:
		return fmt.Errorf("%w: extract_workers must be positive, got %d", ErrInvalidConfig, c.ExtractWorkers)
	case strings.TrimSpace(c.Split) == "":
		return fmt.Errorf("%w: split must not be empty", ErrInvalidConfig)
	}
	return nil
}
