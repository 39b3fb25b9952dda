package annotation

import "github.com/sonicvg/svcore/internal/event"

// RegionEvent is the externally-facing shape of one Region model
// entry: a durationful, valued, labeled interval with no velocity
// (unlike Note).
type RegionEvent struct {
	Frame    event.Frame
	Duration event.Frame
	Value    float64
	Label    string
}

// Region is a durationful valued annotation, chosen by the Transformer
// for plugin outputs with duration and multiple bins whose units are
// not pitch-like (spec.md §4.E "Output-model selection").
type Region struct {
	sparse
}

// NewRegion constructs an empty Region model.
func NewRegion(sampleRate int) *Region {
	return &Region{sparse: newSparse(sampleRate)}
}

// Add inserts re.
func (m *Region) Add(re RegionEvent) error {
	return m.addEvent(event.Event{
		Frame: re.Frame, HasDuration: true, Duration: re.Duration,
		HasValue: true, Value: re.Value,
		HasLabel: re.Label != "", Label: re.Label,
	})
}

// Remove deletes one occurrence of re.
func (m *Region) Remove(re RegionEvent) bool {
	return m.removeEvent(event.Event{
		Frame: re.Frame, HasDuration: true, Duration: re.Duration,
		HasValue: true, Value: re.Value,
		HasLabel: re.Label != "", Label: re.Label,
	})
}
