package reader

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dsnet/compress/bzip2"

	"github.com/okian/pitchtrack/internal/domain/model"
	"github.com/okian/pitchtrack/pkg/logger"
	"github.com/okian/pitchtrack/pkg/metrics"
)

const (
	maxLineBytes   = 64 << 20
	ctxCheckStride = 1024
)

// JSONLReader reads bzip2-compressed JSON lines, one tracking frame per
// line, and segments them into events using cached annotations or, when
// the game has none, the frames' own game_event_id.
type JSONLReader struct {
	base

	mu      sync.Mutex
	current []Annotation
}

var _ Reader = (*JSONLReader)(nil)

// NewJSONLReader constructs a JSONL reader. Without WithAnnotationCache it
// gets a private cache.
func NewJSONLReader(opts ...Option) (*JSONLReader, error) {
	s := newSettings(opts)
	s.log = s.log.Named("jsonl")
	if s.cache == nil {
		c, err := NewAnnotationCache(DefaultAnnotationGames)
		if err != nil {
			return nil, err
		}
		s.cache = c
	}
	return &JSONLReader{base: base{settings: s}}, nil
}

// Format implements Reader.
func (r *JSONLReader) Format() Format { return FormatJSONLBZ2 }

// Cache returns the annotation cache in use.
func (r *JSONLReader) Cache() *AnnotationCache { return r.cache }

// CurrentAnnotations returns the annotations used by the most recent load,
// or nil when it fell back to heuristic segmentation. With concurrent loads
// use WithLoadStats instead.
func (r *JSONLReader) CurrentAnnotations() []Annotation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// GameID derives the game id from a {game_id}.jsonl.bz2 file name.
func GameID(path string) string {
	id, _, _ := strings.Cut(filepath.Base(path), ".")
	return id
}

// Load implements Reader.
func (r *JSONLReader) Load(ctx context.Context, path string, opts ...LoadOption) (model.Dataset, error) {
	start := time.Now()
	defer func() {
		metrics.RecordLoadDuration(metrics.ReaderJSONL, float64(time.Since(start).Milliseconds()))
	}()
	lo := applyLoadOptions(opts)

	if lo.annotationsPath != "" {
		videos, err := r.cache.ingest(ctx, r.log, lo.annotationsPath)
		if err != nil {
			metrics.RecordLoadError(metrics.ReaderJSONL, errorKind(err))
			return nil, err
		}
		r.log.Debug(ctx, "ingested annotations", logger.String("path", lo.annotationsPath), logger.Int("videos", videos))
	}

	gameID := GameID(path)
	r.log.Info(ctx, "loading tracking data", logger.String("game", gameID), logger.String("path", path))
	buf, err := r.readFrames(ctx, path)
	if err != nil {
		metrics.RecordLoadError(metrics.ReaderJSONL, errorKind(err))
		return nil, err
	}
	r.log.Info(ctx, "loaded frames", logger.String("game", gameID), logger.Int("frames", buf.len()))

	var events []model.EventData
	anns, ok := r.cache.Get(gameID)
	r.mu.Lock()
	r.current = anns
	r.mu.Unlock()
	if ok {
		r.log.Info(ctx, "found annotations", logger.String("game", gameID), logger.Int("annotations", len(anns)))
		events, err = r.fromAnnotations(ctx, buf, anns)
	} else {
		r.log.Info(ctx, "no annotations found, segmenting by game_event_id", logger.String("game", gameID))
		events, err = r.fromTracking(ctx, buf)
	}
	if err != nil {
		metrics.RecordLoadError(metrics.ReaderJSONL, errorKind(err))
		return nil, err
	}

	r.log.Info(ctx, "built events", logger.String("game", gameID), logger.Int("events", len(events)))
	if lo.stats != nil {
		*lo.stats = LoadStats{Game: gameID, Annotated: ok, Annotations: len(anns), Frames: buf.len()}
	}
	return model.Dataset{r.split: events}, nil
}

// readFrames buffers the whole file; source files hold a single game.
func (r *JSONLReader) readFrames(ctx context.Context, path string) (*frameBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenSource, err)
	}
	defer f.Close()

	zr, err := bzip2.NewReader(bufio.NewReader(f), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: bzip2 %s: %v", ErrMalformedInput, path, err)
	}
	defer zr.Close()

	buf := newFrameBuffer()
	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		if line%ctxCheckStride == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		text := sc.Bytes()
		if len(bytes.TrimSpace(text)) == 0 {
			continue
		}
		var frame rawFrame
		if err := json.Unmarshal(text, &frame); err != nil {
			r.log.Debug(ctx, "skipping invalid line", logger.Int("line", line), logger.Error(err))
			metrics.RecordLineSkipped(metrics.ReaderJSONL, "invalid_json")
			continue
		}
		if !frame.VideoTimeMS.set {
			metrics.RecordLineSkipped(metrics.ReaderJSONL, "missing_timestamp")
			continue
		}
		buf.put(frame.VideoTimeMS.value, &frame)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s line %d: %v", ErrMalformedInput, path, line+1, err)
	}
	buf.seal()
	metrics.RecordFramesIngested(metrics.ReaderJSONL, buf.len())
	return buf, nil
}
