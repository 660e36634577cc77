package reader

import (
	"fmt"

	"github.com/okian/pitchtrack/internal/domain/model"
)

// Tensor is a dense [frames][objects][channels] array stored row-major.
type Tensor struct {
	Frames   int
	Objects  int
	Channels int
	Data     []float64
}

// NewTensor allocates a zeroed tensor.
func NewTensor(frames, objects, channels int) *Tensor {
	return &Tensor{Frames: frames, Objects: objects, Channels: channels, Data: make([]float64, frames*objects*channels)}
}

func (t *Tensor) offset(f, o int) int { return (f*t.Objects + o) * t.Channels }

// At returns a single channel value.
func (t *Tensor) At(f, o, c int) float64 { return t.Data[t.offset(f, o)+c] }

// Vector returns a copy of the channel vector of object o in frame f.
func (t *Tensor) Vector(f, o int) []float64 {
	off := t.offset(f, o)
	out := make([]float64, t.Channels)
	copy(out, t.Data[off:off+t.Channels])
	return out
}

// Nested returns the tensor as nested slices.
func (t *Tensor) Nested() [][][]float64 {
	out := make([][][]float64, t.Frames)
	for f := range out {
		out[f] = make([][]float64, t.Objects)
		for o := range out[f] {
			out[f][o] = t.Vector(f, o)
		}
	}
	return out
}

// tensorFromNested validates a rectangular nested slice and copies it.
func tensorFromNested(v [][][]float64) (*Tensor, error) {
	if len(v) == 0 {
		return NewTensor(0, 0, 0), nil
	}
	objects := len(v[0])
	channels := 0
	if objects > 0 {
		channels = len(v[0][0])
	}
	t := NewTensor(len(v), objects, channels)
	for f := range v {
		if len(v[f]) != objects {
			return nil, fmt.Errorf("%w: frame %d has %d objects, want %d", ErrMalformedInput, f, len(v[f]), objects)
		}
		for o := range v[f] {
			if len(v[f][o]) != channels {
				return nil, fmt.Errorf("%w: frame %d object %d has %d channels, want %d", ErrMalformedInput, f, o, len(v[f][o]), channels)
			}
			copy(t.Data[t.offset(f, o):], v[f][o])
		}
	}
	return t, nil
}

// ChannelSchema names the channel positions of a PKL object vector. The
// three flag channels are a one-hot encoding of the object type.
type ChannelSchema struct {
	X    int
	Y    int
	Ball int
	Home int
	Away int
}

// DefaultChannelSchema is x, y, ball, home, away in channels 0..4.
func DefaultChannelSchema() ChannelSchema {
	return ChannelSchema{X: 0, Y: 1, Ball: 2, Home: 3, Away: 4}
}

// Width is the minimum channel count the schema needs.
func (s ChannelSchema) Width() int {
	w := 0
	for _, idx := range []int{s.X, s.Y, s.Ball, s.Home, s.Away} {
		if idx+1 > w {
			w = idx + 1
		}
	}
	return w
}

// Validate checks the schema against a tensor's channel count.
func (s ChannelSchema) Validate(channels int) error {
	for _, idx := range []int{s.X, s.Y, s.Ball, s.Home, s.Away} {
		if idx < 0 {
			return fmt.Errorf("%w: negative channel index %d", ErrMalformedInput, idx)
		}
	}
	if channels < s.Width() {
		return fmt.Errorf("%w: %d channels, schema needs %d", ErrMalformedInput, channels, s.Width())
	}
	return nil
}

// Decode returns the object type flagged in vec. Ball wins over home and
// home over away when several flags are set; ok is false when none is.
func (s ChannelSchema) Decode(vec []float64) (model.ObjectType, bool) {
	switch {
	case vec[s.Ball] == 1.0:
		return model.ObjectBall, true
	case vec[s.Home] == 1.0:
		return model.ObjectHome, true
	case vec[s.Away] == 1.0:
		return model.ObjectAway, true
	}
	return "", false
}
