// Package event implements the Event and EventSeries abstractions:
// an ordered, duplicate-permitting collection of point and ranged
// annotations with a secondary interval-query index (the "seam map").
package event

import "maps"

// Frame is a 64-bit signed sample index at a specified sample rate.
// Negative values are disallowed for events; callers doing block-frame
// arithmetic may transiently hold negative Frames before clamping.
type Frame int64

// Event is an immutable point or ranged annotation. Two Events are
// equal when every field compares equal, including Properties.
type Event struct {
	Frame Frame

	HasDuration bool
	Duration    Frame // valid only if HasDuration

	HasValue bool
	Value    float64 // valid only if HasValue

	HasLevel bool
	Level    float64 // valid only if HasLevel

	HasLabel bool
	Label    string // valid only if HasLabel

	Properties map[string]string // optional auxiliary properties
}

// EndFrame returns Frame+Duration for a durationful event, or Frame
// itself for a durationless one (the half-open interval's exclusive
// end collapses to the start for an instant).
func (e Event) EndFrame() Frame {
	if e.HasDuration {
		return e.Frame + e.Duration
	}
	return e.Frame
}

// Covers reports whether the durationful event e covers frame f, i.e.
// e.Frame <= f < e.Frame+e.Duration. Durationless events never cover
// anything under this predicate; use Frame equality for those.
func (e Event) Covers(f Frame) bool {
	if !e.HasDuration {
		return false
	}
	return e.Frame <= f && f < e.Frame+e.Duration
}

// Equal reports structural equality between e and o.
func (e Event) Equal(o Event) bool {
	if e.Frame != o.Frame ||
		e.HasDuration != o.HasDuration || e.Duration != o.Duration ||
		e.HasValue != o.HasValue || e.Value != o.Value ||
		e.HasLevel != o.HasLevel || e.Level != o.Level ||
		e.HasLabel != o.HasLabel || e.Label != o.Label {
		return false
	}
	return maps.Equal(e.Properties, o.Properties)
}

// Less implements the lexicographic ordering by (frame, duration,
// value, label) that the event sequence is kept sorted under.
func (e Event) Less(o Event) bool {
	if e.Frame != o.Frame {
		return e.Frame < o.Frame
	}
	ed, od := durationKey(e), durationKey(o)
	if ed != od {
		return ed < od
	}
	ev, ov := valueKey(e), valueKey(o)
	if ev != ov {
		return ev < ov
	}
	return e.Label < o.Label
}

func durationKey(e Event) Frame {
	if e.HasDuration {
		return e.Duration
	}
	return 0
}

func valueKey(e Event) float64 {
	if e.HasValue {
		return e.Value
	}
	return 0
}

// Clone returns a deep copy of e, duplicating the Properties map so
// mutating the clone never affects e.
func (e Event) Clone() Event {
	c := e
	if e.Properties != nil {
		c.Properties = maps.Clone(e.Properties)
	}
	return c
}
