package reader

import (
	"fmt"

	"github.com/okian/pitchtrack/internal/domain/model"
	"github.com/okian/pitchtrack/pkg/metrics"
)

// extractFrame converts one raw frame into normalized objects. Entries
// missing x or y are skipped individually. ok is false when nothing was
// extracted.
func (r *JSONLReader) extractFrame(f *rawFrame) (model.FrameData, bool) {
	var frame model.FrameData

	if p := f.Ball.point; p != nil {
		if p.valid() {
			frame.Objects = append(frame.Objects, r.object(p, "ball", model.ObjectBall, 0))
		} else {
			metrics.RecordObjectDropped(metrics.ReaderJSONL, "missing_coordinates")
		}
	}
	r.appendPlayers(&frame, f.Home, model.ObjectHome)
	r.appendPlayers(&frame, f.Away, model.ObjectAway)

	return frame, !frame.Empty()
}

func (r *JSONLReader) appendPlayers(frame *model.FrameData, players []*rawPoint, side model.ObjectType) {
	for i, p := range players {
		if !p.valid() {
			metrics.RecordObjectDropped(metrics.ReaderJSONL, "missing_coordinates")
			continue
		}
		jersey := i + 1
		if p.JerseyNum.set {
			jersey = int(p.JerseyNum.value)
		}
		frame.Objects = append(frame.Objects, r.object(p, fmt.Sprintf("%s_%d", side, i), side, jersey))
	}
}

// object builds a record whose features are the shifted x, y and raw z.
func (r *JSONLReader) object(p *rawPoint, id string, typ model.ObjectType, jersey int) model.Object {
	x, y := r.pitch.ToCorner(*p.X, *p.Y)
	if !r.pitch.Contains(x, y) {
		metrics.RecordObjectOffPitch(metrics.ReaderJSONL)
	}
	z := 0.0
	if p.Z != nil {
		z = *p.Z
	}
	return model.Object{
		ID:       id,
		X:        x,
		Y:        y,
		Type:     typ,
		Jersey:   jersey,
		Features: []float64{x, y, z},
	}
}
