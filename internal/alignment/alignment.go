// Package alignment implements the AlignmentModel: a bidirectional
// frame mapping between a reference and an aligned timeline, built
// from a sparse (frame, seconds) series via a piecewise-linear path
// (spec.md §4.D).
package alignment

import (
	"math"

	"github.com/sonicvg/svcore/internal/annotation"
	"github.com/sonicvg/svcore/internal/event"
)

// Model owns a reference model (borrowed), an aligned model (borrowed),
// an optional raw sparse time-value series holding (frameOnAligned,
// secondsOnReference) points, and the two PathModels derived from it.
// The raw model is released once the path completes (spec.md §3).
type Model struct {
	*annotation.Base

	reference *annotation.Base // borrowed, must outlive Model
	aligned   *annotation.Base // borrowed, must outlive Model

	referenceRate int

	raw       *annotation.SparseTimeValue // released on completion
	pathBegun bool                        // true once a raw model has ever been installed
	forward   *annotation.Path
	reverse   *annotation.Path
}

// New constructs an AlignmentModel mapping frames on aligned onto
// frames on reference, at reference's sample rate.
func New(reference, aligned *annotation.Base) *Model {
	rate := reference.SampleRate()
	return &Model{
		Base:          annotation.NewBase(rate),
		reference:     reference,
		aligned:       aligned,
		referenceRate: rate,
		forward:       annotation.NewPath(aligned.SampleRate()),
		reverse:       annotation.NewPath(rate),
	}
}

// Reference returns the borrowed reference model.
func (m *Model) Reference() *annotation.Base { return m.reference }

// Aligned returns the borrowed aligned model.
func (m *Model) Aligned() *annotation.Base { return m.aligned }

// SetRawModel installs the raw (frameOnAligned, secondsOnReference)
// series this alignment rebuilds its paths from, and registers the
// Model as an observer so every raw-model change (until completion
// reaches 100) triggers a rebuild.
func (m *Model) SetRawModel(raw *annotation.SparseTimeValue) {
	m.raw = raw
	m.pathBegun = true
	raw.AddObserver(m)
	m.rebuildPaths()
}

// OnModelChanged implements annotation.Observer: rebuild paths on every
// raw-model change until its completion reaches 100, then release it.
func (m *Model) OnModelChanged(changed *annotation.Base, kind annotation.ChangeKind) {
	if m.raw == nil || changed != m.raw.Base {
		return
	}
	m.rebuildPaths()

	pct, ready := m.raw.IsReady()
	m.Base.SetCompletion(pct)
	if ready {
		m.raw.RemoveObserver(m)
		m.raw = nil
	}
}

// rebuildPaths regenerates the forward and reverse PathModels from
// every point currently in the raw series:
//
//	forward: (frameOnAligned, round(seconds * referenceRate))
//	reverse: (round(seconds * referenceRate), frameOnAligned)
func (m *Model) rebuildPaths() {
	if m.raw == nil {
		return
	}
	m.forward = annotation.NewPath(m.aligned.SampleRate())
	m.reverse = annotation.NewPath(m.referenceRate)

	for _, e := range m.raw.Series().All() {
		if !e.HasValue {
			continue
		}
		refFrame := event.Frame(math.Round(e.Value * float64(m.referenceRate)))
		m.forward.Add(annotation.PathPoint{SrcFrame: e.Frame, DstFrame: refFrame})
		m.reverse.Add(annotation.PathPoint{SrcFrame: refFrame, DstFrame: e.Frame})
	}
}

// IsReady returns (0, false) before any raw model has ever been
// installed; (100, true) once a raw model has been installed and has
// either completed (and been released) or is absent after release;
// otherwise it delegates to the raw model, per spec.md §4.D.
func (m *Model) IsReady() (int, bool) {
	if !m.pathBegun {
		return 0, false
	}
	if m.raw == nil {
		return 100, true
	}
	pct, ready := m.raw.IsReady()
	if ready {
		return 100, true
	}
	return pct, false
}

// ToReference maps a frame on the aligned timeline to the reference
// timeline via the forward path.
func (m *Model) ToReference(f event.Frame) event.Frame {
	return align(m.forward, f)
}

// FromReference maps a frame on the reference timeline to the aligned
// timeline via the reverse path.
func (m *Model) FromReference(f event.Frame) event.Frame {
	return align(m.reverse, f)
}

// align finds the greatest path point whose source frame <= f and
// linearly interpolates between it and its successor when f lies
// strictly between them (spec.md §4.D). With no path, it is the
// identity. A point before the path's first source frame clamps to
// the first point's destination. A negative result clamps to 0.
func align(path *annotation.Path, f event.Frame) event.Frame {
	points := path.Points()
	if len(points) == 0 {
		return f
	}

	idx := path.FloorIndex(f)
	if idx < 0 {
		return clampNonNegative(points[0].DstFrame)
	}

	p0 := points[idx]
	if idx+1 >= len(points) {
		return clampNonNegative(p0.DstFrame)
	}

	p1 := points[idx+1]
	if f == p0.SrcFrame || p1.SrcFrame == p0.SrcFrame {
		return clampNonNegative(p0.DstFrame)
	}

	span := float64(p1.SrcFrame - p0.SrcFrame)
	offset := float64(f - p0.SrcFrame)
	dst := float64(p0.DstFrame) + math.Round(float64(p1.DstFrame-p0.DstFrame)*offset/span)
	return clampNonNegative(event.Frame(dst))
}

func clampNonNegative(f event.Frame) event.Frame {
	if f < 0 {
		return 0
	}
	return f
}
