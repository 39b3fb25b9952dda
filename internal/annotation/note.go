package annotation

import (
	"fmt"
	"math"

	"github.com/sonicvg/svcore/internal/event"
)

// NoteEvent is the externally-facing shape of one Note model entry.
// Velocity follows MIDI convention, defaulting to 100 and clamped to
// [0,127] per spec.md §4.E's Note/Region dispatch rule.
type NoteEvent struct {
	Frame    event.Frame
	Duration event.Frame
	Pitch    float64

	HasVelocity bool // false selects the default velocity below
	Velocity    int

	Label string
}

// resolveVelocity applies spec.md §4.E's Note/Region dispatch rule: a
// missing velocity defaults to 100; a present but out-of-[0,127]
// velocity is treated as 127, not clamped to the nearer bound.
func resolveVelocity(ne NoteEvent) int {
	if !ne.HasVelocity {
		return 100
	}
	if ne.Velocity < 0 || ne.Velocity > 127 {
		return 127
	}
	return ne.Velocity
}

// Note is a durationful pitched annotation, chosen by the Transformer
// for plugin outputs whose units look like pitch (Hz, or containing
// "MIDI"/"midi") and that carry a duration over multiple bins
// (spec.md §4.E "Output-model selection").
type Note struct {
	sparse
	pitchIsMIDI bool
}

// NewNote constructs an empty Note model. pitchIsMIDI records whether
// incoming Pitch values are MIDI note numbers (true) or Hz (false),
// so NoteList can convert units on export.
func NewNote(sampleRate int, pitchIsMIDI bool) *Note {
	return &Note{sparse: newSparse(sampleRate), pitchIsMIDI: pitchIsMIDI}
}

// Add inserts ne, resolving its velocity per spec.md §4.E (see
// resolveVelocity).
func (m *Note) Add(ne NoteEvent) error {
	v := resolveVelocity(ne)
	return m.addEvent(event.Event{
		Frame: ne.Frame, HasDuration: true, Duration: ne.Duration,
		HasValue: true, Value: ne.Pitch,
		HasLevel: true, Level: float64(v),
		HasLabel: ne.Label != "", Label: ne.Label,
	})
}

// Remove deletes one occurrence of the note described by ne.
func (m *Note) Remove(ne NoteEvent) bool {
	v := resolveVelocity(ne)
	return m.removeEvent(event.Event{
		Frame: ne.Frame, HasDuration: true, Duration: ne.Duration,
		HasValue: true, Value: ne.Pitch,
		HasLevel: true, Level: float64(v),
		HasLabel: ne.Label != "", Label: ne.Label,
	})
}

// TabularRowCount returns the number of notes currently stored.
func (m *Note) TabularRowCount() int { return m.series.Count() }

// TabularColumnNames returns the fixed Note column layout.
func (m *Note) TabularColumnNames() []string {
	return []string{"Frame", "Duration", "Pitch", "Velocity", "Label"}
}

// TabularRows returns every note as a NoteEvent, in series order.
func (m *Note) TabularRows() []NoteEvent {
	events := m.series.All()
	out := make([]NoteEvent, len(events))
	for i, e := range events {
		out[i] = noteEventFrom(e)
	}
	return out
}

// TabularCell renders row/col as a display string, matching the
// column order from TabularColumnNames.
func (m *Note) TabularCell(row, col int) string {
	rows := m.TabularRows()
	if row < 0 || row >= len(rows) {
		return ""
	}
	n := rows[row]
	switch col {
	case 0:
		return fmt.Sprintf("%d", n.Frame)
	case 1:
		return fmt.Sprintf("%d", n.Duration)
	case 2:
		return fmt.Sprintf("%.3f", n.Pitch)
	case 3:
		return fmt.Sprintf("%d", n.Velocity)
	case 4:
		return n.Label
	default:
		return ""
	}
}

func noteEventFrom(e event.Event) NoteEvent {
	return NoteEvent{
		Frame: e.Frame, Duration: e.Duration,
		Pitch: e.Value, Velocity: int(e.Level), Label: e.Label,
	}
}

// NoteListEntry is one row of a NoteList export.
type NoteListEntry struct {
	Frame    event.Frame
	Duration event.Frame
	Pitch    float64 // in the requested unit
	Label    string
}

// NoteList exports every note, converting Pitch to Hz (hzUnits=true)
// or MIDI note number (hzUnits=false) regardless of the model's
// internal storage unit, per spec.md §4.B's "Hz-vs-MIDI units switch".
func (m *Note) NoteList(hzUnits bool) []NoteListEntry {
	rows := m.TabularRows()
	out := make([]NoteListEntry, len(rows))
	for i, n := range rows {
		pitch := n.Pitch
		switch {
		case hzUnits && m.pitchIsMIDI:
			pitch = midiToHz(pitch)
		case !hzUnits && !m.pitchIsMIDI:
			pitch = hzToMIDI(pitch)
		}
		out[i] = NoteListEntry{Frame: n.Frame, Duration: n.Duration, Pitch: pitch, Label: n.Label}
	}
	return out
}

func midiToHz(m float64) float64 {
	return 440.0 * math.Pow(2, (m-69.0)/12.0)
}

func hzToMIDI(hz float64) float64 {
	if hz <= 0 {
		return 0
	}
	return 69.0 + 12.0*math.Log2(hz/440.0)
}
