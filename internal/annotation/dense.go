package annotation

import (
	"sync"

	"github.com/sonicvg/svcore/internal/apperrors"
	"github.com/sonicvg/svcore/internal/event"
)

// PCMSource is the random-access decoded-audio contract a
// DenseTimeValue model wraps. The Coded Audio Reader satisfies this
// interface; DenseTimeValue depends only on the interface so this
// package never imports the reader package (B sits below C in
// SPEC_FULL.md's component table).
type PCMSource interface {
	ChannelCount() int
	FrameCount() int
	GetInterleavedFrames(start, count int) ([]float32, error)
	IsFinished() bool
	Completion() int
}

// DenseTimeValue is the random-access PCM model produced by the Coded
// Audio Reader (spec.md §4.B). Its readiness and completion mirror the
// underlying reader's decode progress rather than Base's own
// defer-on-add bookkeeping, since a dense model has no discrete "add"
// operation to defer.
type DenseTimeValue struct {
	*Base
	source PCMSource
}

// NewDenseTimeValue wraps source as a DenseTimeValue model at
// sampleRate, with extent set to the source's current frame count.
func NewDenseTimeValue(sampleRate int, source PCMSource) *DenseTimeValue {
	m := &DenseTimeValue{Base: NewBase(sampleRate), source: source}
	m.SetExtent(0, event.Frame(source.FrameCount()))
	return m
}

// ChannelCount returns the number of interleaved channels.
func (m *DenseTimeValue) ChannelCount() int { return m.source.ChannelCount() }

// FrameCount returns the number of frames currently available.
func (m *DenseTimeValue) FrameCount() int {
	n := m.source.FrameCount()
	m.SetExtent(0, event.Frame(n))
	return n
}

// GetInterleavedFrames returns count interleaved frames starting at
// start, delegating to the underlying PCMSource.
func (m *DenseTimeValue) GetInterleavedFrames(start, count int) ([]float32, error) {
	return m.source.GetInterleavedFrames(start, count)
}

// IsReady reports the source's decode completion, shadowing Base's
// own completion bookkeeping (which DenseTimeValue never drives via
// SetCompletion).
func (m *DenseTimeValue) IsReady() (int, bool) {
	pct := m.source.Completion()
	return pct, m.source.IsFinished()
}

// Completion mirrors IsReady's percentage, for callers that only need
// the number.
func (m *DenseTimeValue) Completion() int {
	pct, _ := m.IsReady()
	return pct
}

// EditableDenseThreeDimensional is the column-indexed feature-bin model
// spec.md §4.B describes: chosen by the Transformer for plugin outputs
// with more than one bin at a fixed sample rate (spec.md §4.E
// "Output-model selection").
type EditableDenseThreeDimensional struct {
	*Base

	mu         sync.RWMutex
	resolution event.Frame
	binCount   int
	columns    map[int][]float64
	minCol     int
	maxCol     int
	hasCols    bool
}

// NewEditableDenseThreeDimensional constructs an empty Dense3D model.
// resolution is the minimum meaningful distance between two distinct
// columns, in frames (spec.md glossary "Resolution").
func NewEditableDenseThreeDimensional(sampleRate int, resolution event.Frame, binCount int) *EditableDenseThreeDimensional {
	if resolution < 1 {
		resolution = 1
	}
	return &EditableDenseThreeDimensional{
		Base:       NewBase(sampleRate),
		resolution: resolution,
		binCount:   binCount,
		columns:    make(map[int][]float64),
	}
}

// Resolution returns the model's column resolution in frames.
func (m *EditableDenseThreeDimensional) Resolution() event.Frame { return m.resolution }

// BinCount returns the number of bins each column holds.
func (m *EditableDenseThreeDimensional) BinCount() int { return m.binCount }

// ColumnAt maps a frame to its column index.
func (m *EditableDenseThreeDimensional) ColumnAt(frame event.Frame) int {
	return int(frame / m.resolution)
}

// SetColumn stores values as the full bin vector for column col,
// widening the model's extent and value range and notifying observers.
func (m *EditableDenseThreeDimensional) SetColumn(col int, values []float64) error {
	if len(values) == 0 {
		return apperrors.Newf("dense3d: empty column vector").
			Component("annotation").Category(apperrors.CategoryValidation).Build()
	}

	m.mu.Lock()
	m.columns[col] = append([]float64(nil), values...)
	if !m.hasCols || col < m.minCol {
		m.minCol = col
	}
	if !m.hasCols || col > m.maxCol {
		m.maxCol = col
	}
	m.hasCols = true
	m.mu.Unlock()

	m.SetExtent(event.Frame(m.minCol)*m.resolution, event.Frame(m.maxCol+1)*m.resolution)
	for _, v := range values {
		m.widenValueRangeAndNotify(v)
	}
	m.noteEdit()
	return nil
}

// Column returns the stored bin vector for col, if any.
func (m *EditableDenseThreeDimensional) Column(col int) ([]float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.columns[col]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), v...), true
}

// ColumnRange returns the lowest and highest column index written so
// far, and whether any column has been written.
func (m *EditableDenseThreeDimensional) ColumnRange() (min, max int, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.minCol, m.maxCol, m.hasCols
}
