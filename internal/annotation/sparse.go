package annotation

import "github.com/sonicvg/svcore/internal/event"

// sparse is the shared backing for every EventSeries-based Model
// variant (SparseOneDimensional, SparseTimeValue, Note, Region): a
// Base plus the series itself, with a common add path that keeps
// extent, value range, and change notification in sync.
type sparse struct {
	*Base
	series *event.EventSeries
}

func newSparse(sampleRate int) sparse {
	return sparse{Base: NewBase(sampleRate), series: event.New()}
}

// Series exposes the backing EventSeries for querying.
func (s *sparse) Series() *event.EventSeries { return s.series }

func (s *sparse) addEvent(e event.Event) error {
	if err := s.series.Add(e); err != nil {
		return err
	}
	s.SetExtent(e.Frame, e.EndFrame())
	if e.HasValue {
		s.widenValueRangeAndNotify(e.Value)
	}
	s.noteEdit()
	return nil
}

func (s *sparse) removeEvent(e event.Event) bool {
	removed := s.series.Remove(e)
	if removed {
		s.noteEdit()
	}
	return removed
}

// SparseOneDimensional is a point-or-interval annotation carrying only
// an optional label — spec.md §4.B's simplest sparse variant, chosen
// by the Transformer for plugin outputs with binCount==0 and no
// duration (spec.md §4.E "Output-model selection").
type SparseOneDimensional struct {
	sparse
}

// NewSparseOneDimensional constructs an empty model at sampleRate.
func NewSparseOneDimensional(sampleRate int) *SparseOneDimensional {
	return &SparseOneDimensional{sparse: newSparse(sampleRate)}
}

// Point adds a labeled instant at frame.
func (m *SparseOneDimensional) Point(frame event.Frame, label string) error {
	return m.addEvent(event.Event{Frame: frame, HasLabel: label != "", Label: label})
}

// SparseTimeValue pairs a frame with a numeric value and an optional
// label. Used both as the Transformer's default sparse output model
// and as AlignmentModel's raw (frame, seconds) series (spec.md §4.D).
type SparseTimeValue struct {
	sparse
}

// NewSparseTimeValue constructs an empty model at sampleRate.
func NewSparseTimeValue(sampleRate int) *SparseTimeValue {
	return &SparseTimeValue{sparse: newSparse(sampleRate)}
}

// Point adds a (frame, value) pair with an optional label.
func (m *SparseTimeValue) Point(frame event.Frame, value float64, label string) error {
	return m.addEvent(event.Event{
		Frame: frame, HasValue: true, Value: value,
		HasLabel: label != "", Label: label,
	})
}

// ValueAt returns the value of the event nearest to and at-or-before
// frame, or (0, false) if the series is empty.
func (m *SparseTimeValue) ValueAt(frame event.Frame) (float64, bool) {
	e, ok := m.series.GetNearestEventMatching(frame+1, func(event.Event) bool { return true }, event.Backward)
	if !ok {
		return 0, false
	}
	return e.Value, true
}
