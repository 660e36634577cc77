package model

import "sort"

// DefaultSplit is the split every current reader emits.
const DefaultSplit = "default"

// Dataset maps a split name to its events in reader output order.
type Dataset map[string][]EventData

// LabelSet is a deduplicated set of event labels.
type LabelSet map[string]struct{}

// Has reports whether label is in the set.
func (s LabelSet) Has(label string) bool {
	_, ok := s[label]
	return ok
}

// Sorted returns the labels in lexical order.
func (s LabelSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// AvailableEvents projects each split onto the set of labels it contains.
// It never mutates d.
func AvailableEvents(d Dataset) map[string]LabelSet {
	out := make(map[string]LabelSet, len(d))
	for split, events := range d {
		set := make(LabelSet)
		for i := range events {
			set[events[i].Label] = struct{}{}
		}
		out[split] = set
	}
	return out
}

// Events returns the events of split carrying label, in output order.
func (d Dataset) Events(split, label string) []EventData {
	var out []EventData
	for _, e := range d[split] {
		if e.Label == label {
			out = append(out, e)
		}
	}
	return out
}

// TotalFrames sums the frames of every event in split.
func (d Dataset) TotalFrames(split string) int {
	n := 0
	for i := range d[split] {
		n += len(d[split][i].Frames)
	}
	return n
}
