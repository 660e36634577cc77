package reader

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

var jsonNull = []byte("null")

// flexString decodes a JSON string, number or bool into its display text.
// Source files disagree on whether ids are numbers or strings.
type flexString struct {
	text   string
	set    bool
	truthy bool
}

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*s = flexString{}
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		return nil
	}
	switch data[0] {
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = flexString{text: str, set: true, truthy: str != ""}
	case 't', 'f':
		b := data[0] == 't'
		*s = flexString{text: strconv.FormatBool(b), set: true, truthy: b}
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			// objects and arrays are kept verbatim
			*s = flexString{text: string(data), set: true, truthy: len(data) > 2}
			return nil
		}
		*s = flexString{text: string(data), set: true, truthy: f != 0}
	}
	return nil
}

// flexInt decodes a JSON number or numeric string into an int64,
// truncating fractions.
type flexInt struct {
	value int64
	set   bool
}

func (n *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*n = flexInt{}
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		data = []byte(str)
	}
	f, err := strconv.ParseFloat(string(bytes.TrimSpace(data)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		// unparseable values read as absent
		return nil
	}
	*n = flexInt{value: int64(f), set: true}
	return nil
}

// rawPoint is one smoothed position. X or Y missing or null marks the
// object as malformed.
type rawPoint struct {
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	Z         *float64 `json:"z"`
	JerseyNum flexInt  `json:"jerseyNum"`
}

func (p *rawPoint) valid() bool { return p != nil && p.X != nil && p.Y != nil }

// ballField accepts an object, null, or an array whose first element is
// the ball.
type ballField struct {
	point *rawPoint
}

func (b *ballField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	b.point = nil
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		return nil
	}
	switch data[0] {
	case '{':
		var p rawPoint
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		b.point = &p
	case '[':
		var ps []*rawPoint
		if err := json.Unmarshal(data, &ps); err != nil {
			return err
		}
		if len(ps) > 0 {
			b.point = ps[0]
		}
	}
	return nil
}

// rawFrame is one JSONL tracking record.
type rawFrame struct {
	VideoTimeMS flexInt     `json:"videoTimeMs"`
	Ball        ballField   `json:"ballsSmoothed"`
	Home        []*rawPoint `json:"homePlayersSmoothed"`
	Away        []*rawPoint `json:"awayPlayersSmoothed"`
	GameEventID flexString  `json:"game_event_id"`
}

// frameBuffer holds every frame of one file keyed by timestamp. It is not
// modified after ingestion and may be read concurrently.
type frameBuffer struct {
	times  []int64
	frames map[int64]*rawFrame
}

func newFrameBuffer() *frameBuffer {
	return &frameBuffer{frames: make(map[int64]*rawFrame)}
}

// put stores f at ts; a later frame with the same timestamp replaces an
// earlier one.
func (b *frameBuffer) put(ts int64, f *rawFrame) {
	b.frames[ts] = f
}

// seal sorts the timestamps. It must be called once ingestion completes.
func (b *frameBuffer) seal() {
	b.times = make([]int64, 0, len(b.frames))
	for ts := range b.frames {
		b.times = append(b.times, ts)
	}
	sort.Slice(b.times, func(i, j int) bool { return b.times[i] < b.times[j] })
}

func (b *frameBuffer) len() int { return len(b.frames) }

// between returns the timestamps in [start, end] in ascending order.
func (b *frameBuffer) between(start, end int64) []int64 {
	i := sort.Search(len(b.times), func(i int) bool { return b.times[i] >= start })
	j := i
	for j < len(b.times) && b.times[j] <= end {
		j++
	}
	return b.times[i:j]
}
