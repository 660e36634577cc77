// Package service loads tracking recordings through the format readers and
// reports what each load produced.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pitchtrack/internal/adapters/reader"
	"github.com/okian/pitchtrack/internal/config"
	"github.com/okian/pitchtrack/internal/domain/model"
	"github.com/okian/pitchtrack/internal/domain/pitch"
	"github.com/okian/pitchtrack/internal/domain/types"
	"github.com/okian/pitchtrack/pkg/logger"
)

// Result is the outcome of one load.
type Result struct {
	Dataset model.Dataset
	Summary types.Summary
}

// Service owns one reader per format and the annotation cache they share.
type Service struct {
	mu sync.RWMutex

	// Core components
	cache   *reader.AnnotationCache
	readers map[reader.Format]reader.Reader

	// Configuration
	cfg             *config.Config
	annotationsPath string
	readerOpts      []reader.Option

	// State
	started bool
	loads   int
	failed  int

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets window, pitch, cache and worker settings from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
			if cfg.AnnotationsPath != "" && s.annotationsPath == "" {
				s.annotationsPath = cfg.AnnotationsPath
			}
		}
	}
}

// WithAnnotationsPath sets the annotations document used for JSONL loads
// that do not name one.
func WithAnnotationsPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.annotationsPath = path
		}
	}
}

// WithReaderOptions appends reader options applied after the config.
func WithReaderOptions(opts ...reader.Option) Option {
	return func(s *Service) {
		s.readerOpts = append(s.readerOpts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:     config.New(),
		readers: make(map[reader.Format]reader.Reader),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates the shared annotation cache.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	cache, err := reader.NewAnnotationCache(s.cfg.AnnotationCacheSize)
	if err != nil {
		return err
	}
	s.cache = cache
	s.started = true
	s.logger.Info(ctx, "ingest service started",
		logger.Int("windowMs", s.cfg.WindowMS),
		logger.Int("cacheSize", s.cfg.AnnotationCacheSize),
		logger.Int("workers", s.cfg.ExtractWorkers),
		logger.String("annotations", s.annotationsPath),
	)
	return nil
}

// Stop drops the readers and the cache.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.readers = make(map[reader.Format]reader.Reader)
	s.cache = nil
	s.started = false
	s.logger.Info(context.Background(), "ingest service stopped", logger.Int("loads", s.loads))
}

// ReaderFor returns the reader for path's format, creating it on first use.
func (s *Service) ReaderFor(path string) (reader.Reader, error) {
	f, err := reader.FormatOf(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	if r, ok := s.readers[f]; ok {
		return r, nil
	}
	r, err := reader.New(f, s.options()...)
	if err != nil {
		return nil, fmt.Errorf("create %s reader: %w", f, err)
	}
	s.readers[f] = r
	return r, nil
}

func (s *Service) options() []reader.Option {
	opts := []reader.Option{
		reader.WithLogger(s.logger),
		reader.WithPitch(pitch.Pitch{Length: s.cfg.PitchLength, Width: s.cfg.PitchWidth}),
		reader.WithWindowMS(s.cfg.WindowMS),
		reader.WithMinFallbackFrames(s.cfg.MinFallbackFrames),
		reader.WithExtractWorkers(s.cfg.ExtractWorkers),
		reader.WithSplit(s.cfg.Split),
		reader.WithAnnotationCache(s.cache),
	}
	return append(opts, s.readerOpts...)
}

// Load reads path with the matching reader. Every load is tagged with a
// fresh id that appears in its log lines and summary. Load may be called
// concurrently; the summary only reflects this call. A WithLoadStats option
// in opts is superseded by the one Load installs.
func (s *Service) Load(ctx context.Context, path string, opts ...reader.LoadOption) (*Result, error) {
	r, err := s.ReaderFor(path)
	if err != nil {
		return nil, err
	}

	loadID := uuid.NewString()
	if s.annotationsPath != "" && r.Format() == reader.FormatJSONLBZ2 {
		opts = append([]reader.LoadOption{reader.WithAnnotationsPath(s.annotationsPath)}, opts...)
	}
	var stats reader.LoadStats
	opts = append(opts, reader.WithLoadStats(&stats))

	start := time.Now()
	s.logger.Info(ctx, "load started", logger.String("loadId", loadID), logger.String("path", path), logger.String("format", string(r.Format())))
	data, err := r.Load(ctx, path, opts...)
	elapsed := time.Since(start)

	s.mu.Lock()
	s.loads++
	if err != nil {
		s.failed++
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error(ctx, "load failed", logger.String("loadId", loadID), logger.String("path", path), logger.Error(err))
		return nil, err
	}

	summary := types.Summary{
		LoadID:     loadID,
		Path:       path,
		Format:     string(r.Format()),
		DurationMS: elapsed.Milliseconds(),
		Splits:     types.Summarize(data),
	}
	if r.Format() == reader.FormatJSONLBZ2 {
		summary.Game = stats.Game
		summary.Annotations = stats.Annotations
	}

	s.logger.Info(ctx, "load completed",
		logger.String("loadId", loadID),
		logger.Int("splits", len(summary.Splits)),
		logger.Duration("duration", elapsed))
	return &Result{Dataset: data, Summary: summary}, nil
}

// GetStats returns service statistics.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cached := 0
	if s.cache != nil {
		cached = s.cache.Len()
	}
	return map[string]interface{}{
		"started":     s.started,
		"loads":       s.loads,
		"failedLoads": s.failed,
		"readers":     len(s.readers),
		"cachedGames": cached,
	}
}
