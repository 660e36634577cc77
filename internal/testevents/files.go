package testevents

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dsnet/compress/bzip2"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Point is one smoothed position as found in tracking lines.
type Point struct {
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	Z         *float64 `json:"z,omitempty"`
	JerseyNum *int     `json:"jerseyNum,omitempty"`
}

// At returns a point with both coordinates set.
func At(x, y float64) *Point { return &Point{X: &x, Y: &y} }

// WithJersey sets the jersey number.
func (p *Point) WithJersey(n int) *Point {
	p.JerseyNum = &n
	return p
}

// WithZ sets the height.
func (p *Point) WithZ(z float64) *Point {
	p.Z = &z
	return p
}

// Frame is one tracking line.
type Frame struct {
	VideoTimeMS int64    `json:"videoTimeMs"`
	Ball        *Point   `json:"ballsSmoothed,omitempty"`
	Home        []*Point `json:"homePlayersSmoothed,omitempty"`
	Away        []*Point `json:"awayPlayersSmoothed,omitempty"`
	GameEventID string   `json:"game_event_id,omitempty"`
}

// Annotation is one labeled moment in an annotations document.
type Annotation struct {
	GameEventID       string `json:"gameEventId,omitempty"`
	PossessionEventID string `json:"possessionEventId,omitempty"`
	Label             string `json:"label"`
	Position          int64  `json:"position"`
	GameTime          string `json:"gameTime,omitempty"`
}

// Video groups the annotations of one game.
type Video struct {
	GameID      string       `json:"gameId"`
	Annotations []Annotation `json:"annotations"`
}

// AnnotationDoc is the top-level annotations document.
type AnnotationDoc struct {
	Videos []Video `json:"videos"`
}

// WriteJSONLBZ2 writes frames as bzip2-compressed JSON lines.
func WriteJSONLBZ2(path string, frames []Frame) error {
	lines := make([]string, len(frames))
	for i, f := range frames {
		b, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("marshal frame %d: %w", i, err)
		}
		lines[i] = string(b)
	}
	return WriteLinesBZ2(path, lines)
}

// WriteLinesBZ2 writes raw lines through a bzip2 stream. Lines are written
// verbatim so callers can include malformed records.
func WriteLinesBZ2(path string, lines []string) error {
	return writeFile(path, func(w *bufio.Writer) error {
		zw, err := bzip2.NewWriter(w, nil)
		if err != nil {
			return fmt.Errorf("create bzip2 writer: %w", err)
		}
		for _, line := range lines {
			if _, err := zw.Write([]byte(line + "\n")); err != nil {
				return fmt.Errorf("write line: %w", err)
			}
		}
		return zw.Close()
	})
}

// WriteAnnotations writes the annotations document as JSON.
func WriteAnnotations(path string, doc AnnotationDoc) error {
	return writeFile(path, func(w *bufio.Writer) error {
		return json.NewEncoder(w).Encode(doc)
	})
}

// WritePKL pickles v to path.
func WritePKL(path string, v any) error {
	return writeFile(path, func(w *bufio.Writer) error {
		return EncodePickle(w, v)
	})
}

func writeFile(path string, write func(*bufio.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	w := bufio.NewWriter(file)
	if err := write(w); err != nil {
		_ = file.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return file.Close()
}
