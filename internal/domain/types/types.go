// Package types contains the summary records reported for a load.
package types

import (
	"sort"

	"github.com/okian/pitchtrack/internal/domain/model"
)

// LabelCount reports the events and frames carrying one label.
type LabelCount struct {
	Label  string `json:"label" yaml:"label"`
	Events int    `json:"events" yaml:"events"`
	Frames int    `json:"frames" yaml:"frames"`
}

// SplitSummary describes one split of a dataset.
type SplitSummary struct {
	Name   string       `json:"name" yaml:"name"`
	Events int          `json:"events" yaml:"events"`
	Frames int          `json:"frames" yaml:"frames"`
	Labels []LabelCount `json:"labels" yaml:"labels"`
}

// Summary describes one completed load.
type Summary struct {
	LoadID      string         `json:"load_id" yaml:"load_id"`
	Path        string         `json:"path" yaml:"path"`
	Format      string         `json:"format" yaml:"format"`
	Game        string         `json:"game,omitempty" yaml:"game,omitempty"`
	Annotations int            `json:"annotations" yaml:"annotations"`
	DurationMS  int64          `json:"duration_ms" yaml:"duration_ms"`
	Splits      []SplitSummary `json:"splits" yaml:"splits"`
}

// Summarize counts events and frames per split and label. Splits and labels
// are sorted by name.
func Summarize(d model.Dataset) []SplitSummary {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]SplitSummary, 0, len(names))
	for _, name := range names {
		byLabel := map[string]*LabelCount{}
		s := SplitSummary{Name: name, Events: len(d[name])}
		for _, ev := range d[name] {
			lc, ok := byLabel[ev.Label]
			if !ok {
				lc = &LabelCount{Label: ev.Label}
				byLabel[ev.Label] = lc
			}
			lc.Events++
			lc.Frames += ev.NumFrames()
			s.Frames += ev.NumFrames()
		}
		for _, label := range model.AvailableEvents(model.Dataset{name: d[name]})[name].Sorted() {
			s.Labels = append(s.Labels, *byLabel[label])
		}
		out = append(out, s)
	}
	return out
}
