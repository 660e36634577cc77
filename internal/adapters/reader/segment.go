package reader

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/okian/pitchtrack/internal/domain/model"
	"github.com/okian/pitchtrack/pkg/logger"
	"github.com/okian/pitchtrack/pkg/metrics"
)

const fallbackLabel = "Unknown"

// buildEvents runs build for 0..n-1 with at most workers in flight over the
// sealed buffer. Output keeps job order; nil results are dropped.
func buildEvents(ctx context.Context, n, workers int, build func(i int) *model.EventData) ([]model.EventData, error) {
	results := make([]*model.EventData, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = build(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]model.EventData, 0, n)
	for _, ev := range results {
		if ev != nil {
			out = append(out, *ev)
		}
	}
	return out, nil
}

// fromAnnotations builds one event per annotation from the frames within
// windowMS of its position.
func (r *JSONLReader) fromAnnotations(ctx context.Context, buf *frameBuffer, anns []Annotation) ([]model.EventData, error) {
	return buildEvents(ctx, len(anns), r.workers, func(i int) *model.EventData {
		return r.eventFromAnnotation(ctx, buf, anns[i])
	})
}

// Window returns the inclusive frame window around an annotation position.
// The lower bound is clamped at zero.
func Window(positionMS, halfWidthMS int64) (start, end int64) {
	return max(0, positionMS-halfWidthMS), positionMS + halfWidthMS
}

func (r *JSONLReader) eventFromAnnotation(ctx context.Context, buf *frameBuffer, ann Annotation) *model.EventData {
	id := ann.EventID()
	label, ok := ann.LabelText()
	if !ok {
		r.log.Warn(ctx, "annotation without label", logger.String("event_id", id))
		metrics.RecordEventDiscarded(metrics.ReaderJSONL, "malformed_annotation")
		return nil
	}
	pos, ok := ann.PositionMS()
	if !ok {
		r.log.Warn(ctx, "annotation without position", logger.String("event_id", id))
		metrics.RecordEventDiscarded(metrics.ReaderJSONL, "malformed_annotation")
		return nil
	}

	ev := model.NewEvent(id, label, ann.GameTimeText())
	start, end := Window(pos, r.windowMS)
	for _, ts := range buf.between(start, end) {
		if frame, ok := r.extractFrame(buf.frames[ts]); ok {
			ev.AppendFrame(frame)
		}
	}
	ev.Metadata[model.MetaWindowStartMS] = start
	ev.Metadata[model.MetaWindowEndMS] = end
	ev.Metadata[model.MetaEventTimeMS] = pos
	ev.Metadata[model.MetaNumFrames] = ev.NumFrames()

	if ev.NumFrames() == 0 {
		metrics.RecordEventDiscarded(metrics.ReaderJSONL, "empty")
		return nil
	}
	metrics.RecordEventBuilt(metrics.ReaderJSONL, metrics.PathAnnotation)
	return ev
}

// fromTracking groups frames by their game_event_id and keeps groups of at
// least minFallbackFrames frames. Groups are emitted in order of their first
// frame.
func (r *JSONLReader) fromTracking(ctx context.Context, buf *frameBuffer) ([]model.EventData, error) {
	var order []string
	groups := make(map[string][]int64)
	for _, ts := range buf.times {
		id := buf.frames[ts].GameEventID
		if !id.truthy {
			continue
		}
		if _, seen := groups[id.text]; !seen {
			order = append(order, id.text)
		}
		groups[id.text] = append(groups[id.text], ts)
	}

	kept := order[:0]
	for _, id := range order {
		if len(groups[id]) < r.minFallbackFrames {
			metrics.RecordEventDiscarded(metrics.ReaderJSONL, "below_min_frames")
			continue
		}
		kept = append(kept, id)
	}
	r.log.Debug(ctx, "grouped frames by game_event_id", logger.Int("groups", len(order)), logger.Int("kept", len(kept)))

	return buildEvents(ctx, len(kept), r.workers, func(i int) *model.EventData {
		return r.eventFromGroup(kept[i], groups[kept[i]], buf)
	})
}

func (r *JSONLReader) eventFromGroup(id string, times []int64, buf *frameBuffer) *model.EventData {
	ev := model.NewEvent(id, fallbackLabel, fmt.Sprintf("%dms", times[0]))
	for _, ts := range times {
		if frame, ok := r.extractFrame(buf.frames[ts]); ok {
			ev.AppendFrame(frame)
		}
	}
	ev.Metadata[model.MetaFirstFrameMS] = times[0]
	ev.Metadata[model.MetaLastFrameMS] = times[len(times)-1]
	ev.Metadata[model.MetaSourceFrames] = len(times)
	ev.Metadata[model.MetaNumFrames] = ev.NumFrames()

	if ev.NumFrames() == 0 {
		metrics.RecordEventDiscarded(metrics.ReaderJSONL, "empty")
		return nil
	}
	metrics.RecordEventBuilt(metrics.ReaderJSONL, metrics.PathFallback)
	return ev
}
