package event

import (
	"math"
	"sort"
	"sync"

	"github.com/sonicvg/svcore/internal/apperrors"
)

// Direction controls which way GetNearestEventMatching walks from the
// lower-bound position of a start frame.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// maxEventCount is the series size ceiling from spec.md §4.A
// ("count() rejects series larger than the signed-integer maximum").
// It is a var, not a const, so tests can lower it to exercise the
// rejection path without allocating billions of events.
var maxEventCount = math.MaxInt - 1

type seamEntry struct {
	key      Frame
	covering []Event
}

// EventSeries is an ordered multiset of Events plus a seam map used to
// answer interval-containment queries in O(log n + k). See SPEC_FULL.md
// §3/§4.A for the invariants this type maintains. mu serialises every
// mutating and reading operation, per spec §5 ("writes to an
// EventSeries by one thread are totally ordered by the series' mutex;
// observers see a consistent snapshot per accessor call"); it is held
// only for the duration of each method and is never held while a Model
// observer is notified.
type EventSeries struct {
	mu sync.Mutex

	events []Event
	seams  []seamEntry

	finalDurationlessFrame Frame
	hasDurationless         bool
}

// New returns an empty EventSeries.
func New() *EventSeries {
	return &EventSeries{}
}

// Count returns the number of events, including duplicates.
func (s *EventSeries) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// IsEmpty reports whether the series holds no events.
func (s *EventSeries) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events) == 0
}

// Clear removes every event and resets the seam map.
func (s *EventSeries) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.seams = nil
	s.finalDurationlessFrame = 0
	s.hasDurationless = false
}

// GetStartFrame returns the minimum frame among all events, or 0 if
// the series is empty.
func (s *EventSeries) GetStartFrame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return 0
	}
	return s.events[0].Frame
}

// GetEndFrame returns the maximum end frame (frame+duration, or frame
// for durationless events) among all events, or 0 if the series is
// empty.
func (s *EventSeries) GetEndFrame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	var end Frame
	first := true
	for _, e := range s.events {
		ef := e.EndFrame()
		if first || ef > end {
			end = ef
			first = false
		}
	}
	return end
}

// FinalDurationlessFrame returns the maximum frame among durationless
// events, or 0 if none exist.
func (s *EventSeries) FinalDurationlessFrame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalDurationlessFrame
}

// lowerBound returns the first index i such that !s.events[i].Less(e)
// is false is impossible to phrase cleanly; concretely it is the first
// index whose event does not sort strictly before e.
func (s *EventSeries) lowerBound(e Event) int {
	return sort.Search(len(s.events), func(i int) bool {
		return !s.events[i].Less(e)
	})
}

// Add inserts e into the ordered sequence (multiset semantics: an
// identical event may be added any number of times) and maintains the
// seam map and finalDurationlessFrame invariants.
func (s *EventSeries) Add(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) >= maxEventCount {
		return apperrors.Newf("event series exceeds maximum capacity").
			Component("event").Category(apperrors.CategoryValidation).Build()
	}

	existedBefore := e.HasDuration && s.containsEqual(e)

	idx := s.lowerBound(e)
	s.events = append(s.events, Event{})
	copy(s.events[idx+1:], s.events[idx:])
	s.events[idx] = e.Clone()

	if !e.HasDuration {
		if !s.hasDurationless || e.Frame > s.finalDurationlessFrame {
			s.finalDurationlessFrame = e.Frame
		}
		s.hasDurationless = true
		return nil
	}

	if !existedBefore {
		s.growSeamCoverage(e)
	}
	return nil
}

// containsEqual reports whether an event structurally equal to e is
// already present in the sequence.
func (s *EventSeries) containsEqual(e Event) bool {
	for _, ev := range s.events {
		if ev.Equal(e) {
			return true
		}
	}
	return false
}

// Contains reports whether e (or a structurally equal event) is
// present in the series.
func (s *EventSeries) Contains(e Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.containsEqual(e)
}

// ensureSeamKey returns the index of the seam entry for key k,
// creating it (by cloning the coverage set of its predecessor, or
// starting empty if none) if it does not already exist.
func (s *EventSeries) ensureSeamKey(k Frame) int {
	i := sort.Search(len(s.seams), func(i int) bool { return s.seams[i].key >= k })
	if i < len(s.seams) && s.seams[i].key == k {
		return i
	}

	var covering []Event
	if i > 0 {
		covering = append(covering, s.seams[i-1].covering...)
	}

	s.seams = append(s.seams, seamEntry{})
	copy(s.seams[i+1:], s.seams[i:])
	s.seams[i] = seamEntry{key: k, covering: covering}
	return i
}

// growSeamCoverage ensures seam keys exist at e.Frame and e.EndFrame,
// then appends e to the coverage set of every key in that range.
func (s *EventSeries) growSeamCoverage(e Event) {
	s.ensureSeamKey(e.Frame)
	s.ensureSeamKey(e.EndFrame())

	lo := sort.Search(len(s.seams), func(i int) bool { return s.seams[i].key >= e.Frame })
	hi := sort.Search(len(s.seams), func(i int) bool { return s.seams[i].key >= e.EndFrame() })
	for i := lo; i < hi; i++ {
		s.seams[i].covering = append(s.seams[i].covering, e.Clone())
	}
}

// Remove deletes one occurrence of an event structurally equal to e.
// Reports whether an occurrence was found and removed.
func (s *EventSeries) Remove(e Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, ev := range s.events {
		if ev.Equal(e) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	s.events = append(s.events[:idx], s.events[idx+1:]...)

	if !e.HasDuration {
		s.recomputeFinalDurationlessFrame()
		return true
	}

	if !s.containsEqual(e) {
		s.shrinkSeamCoverage(e)
	}
	return true
}

func (s *EventSeries) recomputeFinalDurationlessFrame() {
	s.hasDurationless = false
	var max Frame
	for _, ev := range s.events {
		if ev.HasDuration {
			continue
		}
		if !s.hasDurationless || ev.Frame > max {
			max = ev.Frame
			s.hasDurationless = true
		}
	}
	if !s.hasDurationless {
		max = 0
	}
	s.finalDurationlessFrame = max
}

// shrinkSeamCoverage removes e from the coverage set of every seam key
// in [e.Frame, e.EndFrame), then canonicalises: collapses adjacent
// keys with identical coverage sets, and drops any leading empty
// coverage entries.
func (s *EventSeries) shrinkSeamCoverage(e Event) {
	lo := sort.Search(len(s.seams), func(i int) bool { return s.seams[i].key >= e.Frame })
	hi := sort.Search(len(s.seams), func(i int) bool { return s.seams[i].key >= e.EndFrame() })
	for i := lo; i < hi; i++ {
		s.seams[i].covering = removeOneEqual(s.seams[i].covering, e)
	}

	s.collapseAdjacentDuplicates()
	s.dropLeadingEmpty()
}

func removeOneEqual(set []Event, e Event) []Event {
	for i, ev := range set {
		if ev.Equal(e) {
			return append(set[:i], set[i+1:]...)
		}
	}
	return set
}

func coverageEqual(a, b []Event) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
outer:
	for _, ae := range a {
		for j, be := range b {
			if !used[j] && ae.Equal(be) {
				used[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}

func (s *EventSeries) collapseAdjacentDuplicates() {
	out := s.seams[:0]
	for _, entry := range s.seams {
		if n := len(out); n > 0 && coverageEqual(out[n-1].covering, entry.covering) {
			continue
		}
		out = append(out, entry)
	}
	s.seams = out
}

func (s *EventSeries) dropLeadingEmpty() {
	i := 0
	for i < len(s.seams) && len(s.seams[i].covering) == 0 {
		i++
	}
	s.seams = s.seams[i:]
}

// coverageAt returns the coverage set in effect at frame f: the
// covering set of the greatest seam key <= f, or nil if none exists or
// f precedes the first seam key.
func (s *EventSeries) coverageAt(f Frame) []Event {
	i := sort.Search(len(s.seams), func(i int) bool { return s.seams[i].key > f }) - 1
	if i < 0 {
		return nil
	}
	return s.seams[i].covering
}

// EventsCovering returns the union of durationless events at exactly f
// and durationful events whose coverage includes f.
func (s *EventSeries) EventsCovering(f Frame) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Event
	for _, ev := range s.events {
		if !ev.HasDuration && ev.Frame == f {
			out = append(out, ev)
		}
	}
	out = append(out, s.coverageAt(f)...)
	return out
}

// EventsStartingWithin returns events whose Frame lies in [f, f+d),
// found by a direct range scan on the sequence.
func (s *EventSeries) EventsStartingWithin(f, d Frame) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Event
	for _, ev := range s.events {
		if ev.Frame >= f && ev.Frame < f+d {
			out = append(out, ev)
		}
	}
	return out
}

// EventsSpanning returns every event overlapping [f, f+d): durationless
// events via a direct range scan, durationful events via the seam map
// over [f, f+d) plus the key immediately before f (to catch intervals
// that began earlier).
func (s *EventSeries) EventsSpanning(f, d Frame) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	end := f + d

	var out []Event
	addUnique := func(ev Event) {
		for i := range out {
			if out[i].Equal(ev) {
				return
			}
		}
		out = append(out, ev)
	}

	for _, ev := range s.events {
		if !ev.HasDuration && ev.Frame >= f && ev.Frame < end {
			addUnique(ev)
		}
	}

	lo := sort.Search(len(s.seams), func(i int) bool { return s.seams[i].key >= f })
	if lo > 0 {
		lo--
	}
	hi := sort.Search(len(s.seams), func(i int) bool { return s.seams[i].key >= end })
	for i := lo; i < hi && i < len(s.seams); i++ {
		for _, ev := range s.seams[i].covering {
			if ev.Frame < end && ev.EndFrame() > f {
				addUnique(ev)
			}
		}
	}
	return out
}

// EventsWithin returns events strictly contained in [f, f+d) — a
// durationful event qualifies only if its end frame is <= f+d — plus
// up to overspill events immediately before and after that window.
func (s *EventSeries) EventsWithin(f, d Frame, overspill int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	end := f + d

	startIdx := sort.Search(len(s.events), func(i int) bool { return s.events[i].Frame >= f })
	endIdx := startIdx
	var out []Event
	for endIdx < len(s.events) && s.events[endIdx].Frame < end {
		ev := s.events[endIdx]
		if !ev.HasDuration || ev.EndFrame() <= end {
			out = append(out, ev)
		}
		endIdx++
	}

	var before []Event
	for i := startIdx - 1; i >= 0 && len(before) < overspill; i-- {
		before = append(before, s.events[i])
	}
	for i, j := 0, len(before)-1; i < j; i, j = i+1, j-1 {
		before[i], before[j] = before[j], before[i]
	}

	var after []Event
	for i := endIdx; i < len(s.events) && len(after) < overspill; i++ {
		after = append(after, s.events[i])
	}

	result := make([]Event, 0, len(before)+len(out)+len(after))
	result = append(result, before...)
	result = append(result, out...)
	result = append(result, after...)
	return result
}

// GetNearestEventMatching walks the sequence forward or backward from
// the lower-bound position of startFrame, invoking predicate and
// returning the first match.
func (s *EventSeries) GetNearestEventMatching(startFrame Frame, predicate func(Event) bool, dir Direction) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	probe := Event{Frame: startFrame}
	idx := s.lowerBound(probe)

	if dir == Forward {
		for i := idx; i < len(s.events); i++ {
			if predicate(s.events[i]) {
				return s.events[i], true
			}
		}
		return Event{}, false
	}

	for i := idx - 1; i >= 0; i-- {
		if predicate(s.events[i]) {
			return s.events[i], true
		}
	}
	return Event{}, false
}

// GetEventPreceding returns the nearest event with frame strictly
// before f.
func (s *EventSeries) GetEventPreceding(f Frame) (Event, bool) {
	return s.GetNearestEventMatching(f, func(Event) bool { return true }, Backward)
}

// GetEventFollowing returns the nearest event at or after f.
func (s *EventSeries) GetEventFollowing(f Frame) (Event, bool) {
	return s.GetNearestEventMatching(f, func(Event) bool { return true }, Forward)
}

// All returns a copy of the ordered event sequence, for brute-force
// verification and export.
func (s *EventSeries) All() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
