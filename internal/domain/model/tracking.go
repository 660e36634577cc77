// Package model contains the normalized tracking entities shared by every
// reader and consumer.
package model

// ObjectType classifies a tracked object.
type ObjectType string

// Object types.
const (
	ObjectBall ObjectType = "ball"
	ObjectHome ObjectType = "home"
	ObjectAway ObjectType = "away"
)

// IsPlayer reports whether t is a home or away player.
func (t ObjectType) IsPlayer() bool { return t == ObjectHome || t == ObjectAway }

// Object is one observation inside a frame. X and Y are corner-origin pitch
// coordinates. Jersey is zero for the ball.
type Object struct {
	ID       string     `json:"id" yaml:"id"`
	X        float64    `json:"x" yaml:"x"`
	Y        float64    `json:"y" yaml:"y"`
	Type     ObjectType `json:"type" yaml:"type"`
	Jersey   int        `json:"jersey,omitempty" yaml:"jersey,omitempty"`
	Features []float64  `json:"features" yaml:"features"`
}

// FrameData holds the objects of one frame. Readers never emit a FrameData
// without objects.
type FrameData struct {
	Objects []Object `json:"objects" yaml:"objects"`
}

// Empty reports whether the frame has no objects.
func (f FrameData) Empty() bool { return len(f.Objects) == 0 }

// ByType returns the objects of the given type in frame order.
func (f FrameData) ByType(t ObjectType) []Object {
	var out []Object
	for _, o := range f.Objects {
		if o.Type == t {
			out = append(out, o)
		}
	}
	return out
}

// Metadata keys set by the readers.
const (
	MetaWindowStartMS = "window_start_ms"
	MetaWindowEndMS   = "window_end_ms"
	MetaEventTimeMS   = "event_time_ms"
	MetaNumFrames     = "num_frames"
	MetaFeatures      = "features"
	MetaFirstFrameMS  = "first_frame_ms"
	MetaLastFrameMS   = "last_frame_ms"
	MetaSourceFrames  = "source_frames"
)

// Metadata carries auxiliary per-event values such as window bounds.
type Metadata map[string]any

// Int64 returns the value under key as int64.
func (m Metadata) Int64(key string) (int64, bool) {
	switch v := m[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

// EventData is one labeled episode of play. Frames is indexed by the
// sequential position assigned at extraction: index i is the i-th frame in
// chronological order.
type EventData struct {
	EventID  string      `json:"event_id" yaml:"event_id"`
	Label    string      `json:"label" yaml:"label"`
	GameTime string      `json:"game_time" yaml:"game_time"`
	Frames   []FrameData `json:"frames" yaml:"frames"`
	Metadata Metadata    `json:"metadata" yaml:"metadata"`
}

// NewEvent returns an event with initialized metadata.
func NewEvent(id, label, gameTime string) *EventData {
	return &EventData{EventID: id, Label: label, GameTime: gameTime, Metadata: Metadata{}}
}

// AppendFrame adds f under the next sequential index unless it is empty, and
// reports whether it was added.
func (e *EventData) AppendFrame(f FrameData) bool {
	if f.Empty() {
		return false
	}
	e.Frames = append(e.Frames, f)
	return true
}

// NumFrames returns the number of stored frames.
func (e *EventData) NumFrames() int { return len(e.Frames) }
