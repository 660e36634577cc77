package reader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pitchtrack/internal/domain/model"
	"github.com/okian/pitchtrack/pkg/logger"
	"github.com/okian/pitchtrack/pkg/metrics"
)

// PKLReader reads pickled archives of the form
// {"windows": [{event_id, label, game_time, features}, ...]} where features
// is a [frames][objects][channels] array.
type PKLReader struct {
	base
}

var _ Reader = (*PKLReader)(nil)

// NewPKLReader constructs a PKL reader.
func NewPKLReader(opts ...Option) *PKLReader {
	s := newSettings(opts)
	s.log = s.log.Named("pkl")
	return &PKLReader{base: base{settings: s}}
}

// Format implements Reader.
func (r *PKLReader) Format() Format { return FormatPKL }

// Load implements Reader. Every window becomes one event in the configured
// split; windows that cannot be decoded or produce no frames are skipped.
func (r *PKLReader) Load(ctx context.Context, path string, _ ...LoadOption) (model.Dataset, error) {
	start := time.Now()
	defer func() {
		metrics.RecordLoadDuration(metrics.ReaderPKL, float64(time.Since(start).Milliseconds()))
	}()

	root, err := r.decodeFile(path)
	if err != nil {
		metrics.RecordLoadError(metrics.ReaderPKL, errorKind(err))
		return nil, err
	}

	windowsVal, ok := dictGet(root, "windows")
	if !ok {
		metrics.RecordLoadError(metrics.ReaderPKL, "malformed")
		return nil, fmt.Errorf("%w: %s has no windows", ErrMalformedInput, path)
	}
	windows, err := sequence(windowsVal)
	if err != nil {
		metrics.RecordLoadError(metrics.ReaderPKL, "malformed")
		return nil, fmt.Errorf("%s windows: %w", path, err)
	}

	events := make([]model.EventData, 0, len(windows))
	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ev, err := r.eventFromWindow(w)
		if err != nil {
			r.log.Warn(ctx, "skipping window", logger.Int("window", i), logger.Error(err))
			metrics.RecordEventDiscarded(metrics.ReaderPKL, "malformed")
			continue
		}
		if ev.NumFrames() == 0 {
			metrics.RecordEventDiscarded(metrics.ReaderPKL, "empty")
			continue
		}
		metrics.RecordEventBuilt(metrics.ReaderPKL, metrics.PathWindow)
		events = append(events, *ev)
	}

	r.log.Info(ctx, "loaded pkl windows",
		logger.String("path", path),
		logger.Int("windows", len(windows)),
		logger.Int("events", len(events)))
	return model.Dataset{r.split: events}, nil
}

func (r *PKLReader) decodeFile(path string) (interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenSource, err)
	}
	defer f.Close()

	root, err := unpickle(bufio.NewReader(f))
	if err != nil {
		if errors.Is(err, ErrMalformedInput) {
			return nil, fmt.Errorf("unpickle %s: %w", path, err)
		}
		return nil, fmt.Errorf("%w: unpickle %s: %v", ErrMalformedInput, path, err)
	}
	return root, nil
}

func (r *PKLReader) eventFromWindow(w interface{}) (*model.EventData, error) {
	id, ok := lookupString(w, "event_id")
	if !ok {
		id = uuid.NewString()
	}
	label, ok := lookupString(w, "label")
	if !ok {
		label = fallbackLabel
	}
	gameTime, _ := lookupString(w, "game_time")

	raw, ok := dictGet(w, "features")
	if !ok {
		return nil, fmt.Errorf("%w: window %s has no features", ErrMalformedInput, id)
	}
	t, err := featureTensor(raw)
	if err != nil {
		return nil, fmt.Errorf("window %s: %w", id, err)
	}
	if err := r.schema.Validate(t.Channels); err != nil {
		return nil, fmt.Errorf("window %s: %w", id, err)
	}

	ev := model.NewEvent(id, label, gameTime)
	for f := 0; f < t.Frames; f++ {
		if !ev.AppendFrame(r.frameFromTensor(t, f)) {
			metrics.RecordLineSkipped(metrics.ReaderPKL, "empty_frame")
		}
	}
	ev.Metadata[model.MetaFeatures] = t
	ev.Metadata[model.MetaSourceFrames] = t.Frames
	ev.Metadata[model.MetaNumFrames] = ev.NumFrames()
	return ev, nil
}

// frameFromTensor decodes one frame. Objects with no type flag are dropped;
// players are numbered per side starting at 1.
func (r *PKLReader) frameFromTensor(t *Tensor, f int) model.FrameData {
	var frame model.FrameData
	perSide := map[model.ObjectType]int{}
	for o := 0; o < t.Objects; o++ {
		vec := t.Vector(f, o)
		typ, ok := r.schema.Decode(vec)
		if !ok {
			metrics.RecordObjectDropped(metrics.ReaderPKL, "untyped")
			continue
		}
		x, y := r.pitch.ToCorner(vec[r.schema.X], vec[r.schema.Y])
		if !r.pitch.Contains(x, y) {
			metrics.RecordObjectOffPitch(metrics.ReaderPKL)
		}
		obj := model.Object{
			ID:       fmt.Sprintf("obj_%d", o),
			X:        x,
			Y:        y,
			Type:     typ,
			Features: vec,
		}
		if typ.IsPlayer() {
			perSide[typ]++
			obj.Jersey = perSide[typ]
		}
		frame.Objects = append(frame.Objects, obj)
	}
	return frame
}

func lookupString(v interface{}, key string) (string, bool) {
	raw, ok := dictGet(v, key)
	if !ok {
		return "", false
	}
	return displayString(raw)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrOpenSource):
		return "open"
	case errors.Is(err, ErrMalformedInput):
		return "malformed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "other"
}
