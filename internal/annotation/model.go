// Package annotation implements the Model hierarchy: a uniform
// timeline-annotation abstraction (sparse, backed by an EventSeries;
// or dense, backed by random-access samples/bins) with completion
// tracking, abandonment, and synchronous change notification.
package annotation

import (
	"sync"
	"sync/atomic"

	"github.com/sonicvg/svcore/internal/event"
)

// ID uniquely identifies a Model for the lifetime of the process.
type ID uint64

var nextID atomic.Uint64

func allocateID() ID {
	return ID(nextID.Add(1))
}

// Base carries the fields and behaviour every Model subtype shares:
// identity, sample rate, extent, source/alignment wiring, completion,
// abandonment, RDF typing, and observer notification. Concrete
// variants (SparseOneDimensional, SparseTimeValue, Note, Region,
// Path, DenseTimeValue, EditableDenseThreeDimensional) embed Base and
// add their own backing store.
type Base struct {
	mu sync.Mutex

	id         ID
	sampleRate int
	startFrame event.Frame
	endFrame   event.Frame
	hasExtent  bool

	source    *Base
	alignment *Base

	completion int
	abandoned  atomic.Bool
	rdfType    string

	hasValueRange bool
	valueMin      float64
	valueMax      float64

	observers    observerList
	deferOnAdd   bool
	readyEmitted bool
	dirty        bool
}

// NewBase constructs a Base at the given sample rate with a freshly
// allocated process-wide id. New models start in "defer-on-add" mode
// per spec.md §4.B: edits are coalesced until completion reaches 100.
func NewBase(sampleRate int) *Base {
	return &Base{
		id:         allocateID(),
		sampleRate: sampleRate,
		deferOnAdd: true,
	}
}

func (b *Base) ID() ID { return b.id }

func (b *Base) SampleRate() int { return b.sampleRate }

// Extent returns the current start and end frame.
func (b *Base) Extent() (start, end event.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.startFrame, b.endFrame
}

// SetExtent widens the model's [start,end) extent to include the given
// range, notifying observers if it actually changed.
func (b *Base) SetExtent(start, end event.Frame) {
	b.mu.Lock()
	changed := false
	if start < b.startFrame || !b.hasExtent {
		b.startFrame = start
		changed = true
	}
	if end > b.endFrame {
		b.endFrame = end
		changed = true
	}
	b.hasExtent = true
	b.mu.Unlock()

	if changed {
		b.noteEdit()
	}
}

// SourceModel returns the model this one was derived from, if any.
func (b *Base) SourceModel() *Base {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.source
}

// SetSourceModel records the (borrowed, non-owning) source model.
func (b *Base) SetSourceModel(src *Base) {
	b.mu.Lock()
	b.source = src
	b.mu.Unlock()
}

// AlignmentModel returns the wired alignment model, if any.
func (b *Base) AlignmentModel() *Base {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.alignment
}

// SetAlignmentModel records the (borrowed, non-owning) alignment model.
func (b *Base) SetAlignmentModel(align *Base) {
	b.mu.Lock()
	b.alignment = align
	b.mu.Unlock()
}

// RDFType returns the model's RDF event/signal type URI, if set.
func (b *Base) RDFType() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rdfType
}

// SetRDFType sets the RDF type URI, typically propagated from the
// model's source (spec.md §4.E "Output-model selection").
func (b *Base) SetRDFType(uri string) {
	b.mu.Lock()
	b.rdfType = uri
	b.mu.Unlock()
}

// Completion returns the current completion percentage, in [0,100].
func (b *Base) Completion() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.completion
}

// IsReady reports the completion percentage and whether it has reached
// 100, mirroring the (pct, ready) convention spec.md §4.D documents
// for AlignmentModel and extending it to every Base.
func (b *Base) IsReady() (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.completion, b.completion >= 100
}

// SetCompletion advances the completion percentage. Completion is
// monotonic per spec.md §5 ("Completion is monotonic per model, never
// decreases"); a lower value is ignored. Reaching 100 runs the
// completion protocol from spec.md §4.B: switch to notify-on-add,
// emit a final change, emit ready — exactly once.
func (b *Base) SetCompletion(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	b.mu.Lock()
	if pct <= b.completion {
		b.mu.Unlock()
		return
	}
	b.completion = pct
	reachedReady := pct >= 100 && !b.readyEmitted
	if reachedReady {
		b.readyEmitted = true
		b.deferOnAdd = false
	}
	b.mu.Unlock()

	b.emit(ChangeCompletion)
	if reachedReady {
		b.emit(ChangeGeneric)
		b.emit(ChangeReady)
	}
}

// Abandon sets the cooperative-cancellation flag. Idempotent.
func (b *Base) Abandon() {
	b.abandoned.Store(true)
}

// Abandoned reports whether Abandon has been called.
func (b *Base) Abandoned() bool {
	return b.abandoned.Load()
}

// ValueRange returns the tracked [min,max] value range and whether any
// valued event has been added yet.
func (b *Base) ValueRange() (min, max float64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.valueMin, b.valueMax, b.hasValueRange
}

// widenValueRange extends the tracked value range to include v,
// returning true if the range actually changed.
func (b *Base) widenValueRange(v float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasValueRange {
		b.hasValueRange = true
		b.valueMin, b.valueMax = v, v
		return true
	}
	changed := false
	if v < b.valueMin {
		b.valueMin = v
		changed = true
	}
	if v > b.valueMax {
		b.valueMax = v
		changed = true
	}
	return changed
}

// AddObserver registers o to receive this model's change notifications.
func (b *Base) AddObserver(o Observer) { b.observers.add(o) }

// RemoveObserver unregisters o.
func (b *Base) RemoveObserver(o Observer) { b.observers.remove(o) }

// AboutToBeDeleted notifies observers that this model is being torn
// down, so non-owning holders can drop their references before the
// owner releases it (spec.md §3 "Models... notified of their source's
// deletion").
func (b *Base) AboutToBeDeleted() {
	b.emit(ChangeAboutToBeDeleted)
}

// noteEdit is called by concrete variants after a mutation. In
// defer-on-add mode (before completion reaches 100) it only marks the
// model dirty; in notify-on-add mode it emits immediately. This is the
// "defer-on-add" vs "notify-on-add" switch from spec.md §4.B.
func (b *Base) noteEdit() {
	b.mu.Lock()
	defer_ := b.deferOnAdd
	b.dirty = true
	b.mu.Unlock()

	if !defer_ {
		b.emit(ChangeGeneric)
	}
}

// widenValueRangeAndNotify widens the value range for v and, if it
// changed, forces an immediate full change notification regardless of
// defer-on-add mode, per spec.md §4.B ("adding an event with an
// out-of-range value... triggers a full change notification").
func (b *Base) widenValueRangeAndNotify(v float64) {
	if b.widenValueRange(v) {
		b.emit(ChangeGeneric)
	}
}

func (b *Base) emit(kind ChangeKind) {
	for _, o := range b.observers.snapshot() {
		o.OnModelChanged(b, kind)
	}
}
