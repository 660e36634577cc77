package testevents

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// Pitch half extents in centre-origin metres.
const (
	halfLength = 52.5
	halfWidth  = 34.0
)

// pklWindowMS is the half-width of the windows written to PKL archives.
const pklWindowMS = 2000

// Channel layout of generated PKL features: x, y, ball, home, away.
const pklChannels = 5

// Every segmentGapEvery-th segment carries no game_event_id.
const segmentGapEvery = 4

// ErrInvalidConfig is returned by Generate for unusable configurations.
var ErrInvalidConfig = errors.New("invalid generator config")

// Game is one generated synthetic game.
type Game struct {
	ID          string
	Frames      []Frame
	Annotations []Annotation
	Segments    []string
}

// Validate checks that cfg can produce a game.
func (c *Config) Validate() error {
	switch {
	case c.GameID == "":
		return fmt.Errorf("%w: game id is required", ErrInvalidConfig)
	case c.Frames <= 0:
		return fmt.Errorf("%w: frames must be positive", ErrInvalidConfig)
	case c.StepMS <= 0:
		return fmt.Errorf("%w: step must be positive", ErrInvalidConfig)
	case c.StartMS < 0:
		return fmt.Errorf("%w: start must not be negative", ErrInvalidConfig)
	case c.Players < 0:
		return fmt.Errorf("%w: players must not be negative", ErrInvalidConfig)
	case c.SegmentFrames <= 0:
		return fmt.Errorf("%w: segment frames must be positive", ErrInvalidConfig)
	case c.Annotations > 0 && len(c.Labels) == 0:
		return fmt.Errorf("%w: annotations need at least one label", ErrInvalidConfig)
	}
	return nil
}

// Generate builds a deterministic game from cfg. The same seed always
// yields the same frames and annotations.
func Generate(cfg *Config) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	g := &Game{ID: cfg.GameID}

	home := formation(rng, cfg.Players, -1)
	away := formation(rng, cfg.Players, 1)
	bx, by := 0.0, 0.0

	for i := 0; i < cfg.Frames; i++ {
		seg := i / cfg.SegmentFrames
		if seg == len(g.Segments) {
			g.Segments = append(g.Segments, segmentID(cfg.GameID, seg))
		}
		bx = clamp(bx+rng.NormFloat64()*0.8, halfLength)
		by = clamp(by+rng.NormFloat64()*0.6, halfWidth)

		f := Frame{
			VideoTimeMS: cfg.StartMS + int64(i)*cfg.StepMS,
			Ball:        At(bx, by).WithZ(max(0, rng.NormFloat64()*0.3)),
			Home:        jitter(rng, home),
			Away:        jitter(rng, away),
			GameEventID: g.Segments[seg],
		}
		g.Frames = append(g.Frames, f)
	}

	duration := int64(cfg.Frames) * cfg.StepMS
	for k := 0; k < cfg.Annotations; k++ {
		offset := (int64(k) + 1) * duration / int64(cfg.Annotations+1)
		idx := int(offset / cfg.StepMS)
		pos := g.Frames[idx].VideoTimeMS
		ann := Annotation{
			Label:    cfg.Labels[k%len(cfg.Labels)],
			Position: pos,
			GameTime: clock(pos),
		}
		if id := g.Frames[idx].GameEventID; id != "" {
			ann.GameEventID = id
		} else {
			ann.PossessionEventID = fmt.Sprintf("poss-%d", k)
		}
		g.Annotations = append(g.Annotations, ann)
	}
	return g, nil
}

// segmentID returns a stable id for segment n, or "" for gap segments.
func segmentID(game string, n int) string {
	if n%segmentGapEvery == segmentGapEvery-1 {
		return ""
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "%s/%d", game, n)).String()
}

type spot struct {
	x, y   float64
	jersey int
}

// formation spreads n players over one half; side is -1 for home and 1 for
// away.
func formation(rng *rand.Rand, n, side int) []spot {
	out := make([]spot, n)
	for i := range out {
		out[i] = spot{
			x:      float64(side) * (5 + rng.Float64()*(halfLength-10)),
			y:      (rng.Float64()*2 - 1) * (halfWidth - 4),
			jersey: i + 1,
		}
	}
	return out
}

func jitter(rng *rand.Rand, players []spot) []*Point {
	out := make([]*Point, len(players))
	for i := range players {
		players[i].x = clamp(players[i].x+rng.NormFloat64()*0.2, halfLength)
		players[i].y = clamp(players[i].y+rng.NormFloat64()*0.2, halfWidth)
		out[i] = At(players[i].x, players[i].y).WithJersey(players[i].jersey)
	}
	return out
}

func clamp(v, limit float64) float64 {
	return min(max(v, -limit), limit)
}

func clock(ms int64) string {
	s := ms / 1000
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

// Doc wraps the game's annotations in an annotations document.
func (g *Game) Doc() AnnotationDoc {
	return AnnotationDoc{Videos: []Video{{GameID: g.ID, Annotations: g.Annotations}}}
}

// Windows returns one PKL window per annotation holding the frames within
// two seconds of it as a [frames][objects][x, y, ball, home, away] array.
func (g *Game) Windows() []any {
	windows := make([]any, 0, len(g.Annotations))
	for _, ann := range g.Annotations {
		var rows [][]float64
		frames := 0
		for _, f := range g.Frames {
			if f.VideoTimeMS < ann.Position-pklWindowMS || f.VideoTimeMS > ann.Position+pklWindowMS {
				continue
			}
			rows = append(rows, featureRow(f.Ball, 2))
			for _, p := range f.Home {
				rows = append(rows, featureRow(p, 3))
			}
			for _, p := range f.Away {
				rows = append(rows, featureRow(p, 4))
			}
			frames++
		}
		data := make([]float64, 0, len(rows)*pklChannels)
		for _, r := range rows {
			data = append(data, r...)
		}
		objects := 0
		if frames > 0 {
			objects = len(rows) / frames
		}
		id := ann.GameEventID
		if id == "" {
			id = ann.PossessionEventID
		}
		windows = append(windows, map[string]any{
			"event_id":  id,
			"label":     ann.Label,
			"game_time": ann.GameTime,
			"features": &NDArray{
				Shape: []int{frames, objects, pklChannels},
				Dtype: "<f8",
				Data:  data,
			},
		})
	}
	return windows
}

func featureRow(p *Point, flag int) []float64 {
	row := make([]float64, pklChannels)
	row[0], row[1] = *p.X, *p.Y
	row[flag] = 1
	return row
}
