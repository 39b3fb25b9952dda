// Package transform implements the Feature-Extraction Transformer
// (spec.md §4.E): a scheduler that drives an external feature
// extraction plugin over a dense PCM input, materialising its outputs
// into annotation models. Worker scheduling is grounded in the
// teacher's internal/analysis/processor job/worker pattern, adapted to
// one dedicated goroutine per Transformer rather than a shared job
// queue, since spec.md §5 specifies exclusive per-Transformer
// ownership of a worker thread.
package transform

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sonicvg/svcore/internal/annotation"
	"github.com/sonicvg/svcore/internal/apperrors"
	"github.com/sonicvg/svcore/internal/event"
	"github.com/sonicvg/svcore/internal/logging"
	"github.com/sonicvg/svcore/internal/metrics"
	"github.com/sonicvg/svcore/internal/plugin"
)

// Spec is a Transform specification: which plugin output to
// materialise, and (for time-domain plugins) which input channel to
// read. Every Spec passed to New must agree on InputChannel — they
// describe the same plugin invocation choosing different outputs
// (spec.md §4.E "Initialisation").
type Spec struct {
	OutputIndex  int
	InputChannel int // -1 selects the mean across all channels
}

type modelKind int

const (
	kindSparse1D modelKind = iota
	kindSparseTV
	kindNote
	kindRegion
	kindDense3D
)

type binding struct {
	desc       plugin.OutputDescriptor
	resolution event.Frame
	kind       modelKind

	sparse1D *annotation.SparseOneDimensional
	sparseTV *annotation.SparseTimeValue
	note     *annotation.Note
	region   *annotation.Region
	dense3D  *annotation.EditableDenseThreeDimensional

	counter int64 // FixedSampleRate, timestamp-less features only
}

func (b *binding) base() *annotation.Base {
	switch b.kind {
	case kindSparse1D:
		return b.sparse1D.Base
	case kindSparseTV:
		return b.sparseTV.Base
	case kindNote:
		return b.note.Base
	case kindRegion:
		return b.region.Base
	default:
		return b.dense3D.Base
	}
}

// Transformer drives plug over input, materialising one annotation
// model per bound output (spec.md §4.E).
type Transformer struct {
	plug  plugin.Plugin
	input *annotation.DenseTimeValue

	contextStart    event.Frame
	contextDuration event.Frame

	stepSize     int
	blockSize    int
	channels     int
	inputChannel int

	bindings []*binding

	pollInterval time.Duration
	metrics      *metrics.TransformerMetrics
	log          *slog.Logger

	ok      bool
	message string

	abandoned atomic.Bool
	done      chan struct{}
}

// New validates the Transform specs against plug's descriptors,
// instantiates the plugin at input's sample rate, and picks a
// concrete output model for each spec. Configuration failures (a
// plugin output index out of range, an unmet minimum channel count, a
// rejected step/block size even after reconciliation) do not return an
// error: they leave the Transformer constructed with IsOK() false and
// Message() set, per spec.md §7.
func New(plug plugin.Plugin, specs []Spec, input *annotation.DenseTimeValue, contextStart, contextDuration event.Frame, pollInterval time.Duration, m *metrics.TransformerMetrics) (*Transformer, error) {
	if plug == nil {
		return nil, apperrors.Newf("transform: plugin is nil").
			Component("transform").Category(apperrors.CategoryValidation).Build()
	}
	if input == nil {
		return nil, apperrors.Newf("transform: input model is nil").
			Component("transform").Category(apperrors.CategoryValidation).Build()
	}
	if len(specs) == 0 {
		return nil, apperrors.Newf("transform: at least one Spec is required").
			Component("transform").Category(apperrors.CategoryValidation).Build()
	}

	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}

	t := &Transformer{
		plug:            plug,
		input:           input,
		contextStart:    contextStart,
		contextDuration: contextDuration,
		inputChannel:    specs[0].InputChannel,
		pollInterval:    pollInterval,
		metrics:         m,
		log:             logging.ForService("transform"),
		done:            make(chan struct{}),
	}

	for _, s := range specs[1:] {
		if s.InputChannel != t.inputChannel {
			t.fail(fmt.Sprintf("transform specs disagree on input channel: %d vs %d", s.InputChannel, t.inputChannel))
			return t, nil
		}
	}

	minCh := plug.MinChannels()
	if minCh < 1 {
		minCh = 1
	}
	if input.ChannelCount() < minCh {
		t.fail(fmt.Sprintf("plugin %s requires at least %d channels, input has %d", plug.ID(), minCh, input.ChannelCount()))
		return t, nil
	}

	channels := minCh
	if plug.InputDomain() == plugin.FrequencyDomain && input.ChannelCount() > channels {
		channels = input.ChannelCount()
	}
	t.channels = channels

	step, block := plug.PreferredStepAndBlockSize()
	if step <= 0 {
		step = 512
	}
	if block <= 0 {
		block = step
	}
	if err := plug.Initialise(channels, step, block); err != nil {
		step, block = plug.PreferredStepAndBlockSize()
		if step <= 0 || block <= 0 {
			t.fail(fmt.Sprintf("plugin %s rejected initial step/block size and offered none: %v", plug.ID(), err))
			return t, nil
		}
		if err := plug.Initialise(channels, step, block); err != nil {
			t.fail(fmt.Sprintf("plugin %s rejected reconciled step/block size %d/%d: %v", plug.ID(), step, block, err))
			return t, nil
		}
	}
	t.stepSize, t.blockSize = step, block

	outputs := plug.Outputs()
	rdfType := input.RDFType()
	for _, s := range specs {
		if s.OutputIndex < 0 || s.OutputIndex >= len(outputs) {
			t.fail(fmt.Sprintf("plugin %s has no output index %d", plug.ID(), s.OutputIndex))
			return t, nil
		}
		desc := outputs[s.OutputIndex]
		b := buildBinding(desc, input.SampleRate(), step)
		b.base().SetRDFType(rdfType)
		t.bindings = append(t.bindings, b)
	}

	t.ok = true
	return t, nil
}

func (t *Transformer) fail(msg string) {
	t.message = msg
	t.ok = false
}

// IsOK reports whether initialisation succeeded.
func (t *Transformer) IsOK() bool { return t.ok }

// Message returns the human-readable configuration-failure message,
// or "" if IsOK is true.
func (t *Transformer) Message() string { return t.message }

// Outputs returns the per-Spec output bindings in Spec order, so
// callers can retrieve the concrete annotation model for each.
func (t *Transformer) Outputs() []*annotation.Base {
	out := make([]*annotation.Base, len(t.bindings))
	for i, b := range t.bindings {
		out[i] = b.base()
	}
	return out
}

// SparseOneDimensionalAt, SparseTimeValueAt, NoteAt, RegionAt and
// Dense3DAt return the concrete model at binding index i, or nil if
// that binding chose a different model kind.
func (t *Transformer) SparseOneDimensionalAt(i int) *annotation.SparseOneDimensional { return t.bindings[i].sparse1D }
func (t *Transformer) SparseTimeValueAt(i int) *annotation.SparseTimeValue           { return t.bindings[i].sparseTV }
func (t *Transformer) NoteAt(i int) *annotation.Note                                 { return t.bindings[i].note }
func (t *Transformer) RegionAt(i int) *annotation.Region                             { return t.bindings[i].region }
func (t *Transformer) Dense3DAt(i int) *annotation.EditableDenseThreeDimensional     { return t.bindings[i].dense3D }

// Abandon sets the cooperative-cancellation flag. The worker checks it
// at every loop iteration and after each blocking call.
func (t *Transformer) Abandon() { t.abandoned.Store(true) }

// Abandoned reports whether Abandon has been called.
func (t *Transformer) Abandoned() bool { return t.abandoned.Load() }

// Start launches the worker goroutine. Calling Start on a Transformer
// whose IsOK is false still runs to completion immediately: every
// output is taken straight to 100% with no features dispatched.
func (t *Transformer) Start() { go t.run() }

// Wait blocks until the worker goroutine has finished.
func (t *Transformer) Wait() { <-t.done }

func buildBinding(desc plugin.OutputDescriptor, inputRate, stepSize int) *binding {
	resolution := resolutionFor(desc, inputRate, stepSize)
	b := &binding{desc: desc, resolution: resolution}

	switch {
	case desc.BinCount == 0 && !desc.HasDuration:
		b.kind = kindSparse1D
		b.sparse1D = annotation.NewSparseOneDimensional(inputRate)
	case desc.HasDuration && desc.BinCount > 1 && looksLikePitch(desc.Unit):
		b.kind = kindNote
		b.note = annotation.NewNote(inputRate, strings.Contains(strings.ToLower(desc.Unit), "midi"))
	case desc.HasDuration && desc.BinCount > 1:
		b.kind = kindRegion
		b.region = annotation.NewRegion(inputRate)
	case desc.BinCount == 1 || desc.SampleType == plugin.VariableSampleRate:
		b.kind = kindSparseTV
		b.sparseTV = annotation.NewSparseTimeValue(inputRate)
	default:
		b.kind = kindDense3D
		b.dense3D = annotation.NewEditableDenseThreeDimensional(inputRate, resolution, desc.BinCount)
	}
	return b
}

func looksLikePitch(unit string) bool {
	u := strings.ToLower(unit)
	return u == "hz" || strings.Contains(u, "midi")
}

// resolutionFor implements spec.md §4.E's resolution mapping.
func resolutionFor(desc plugin.OutputDescriptor, inputRate, stepSize int) event.Frame {
	switch desc.SampleType {
	case plugin.OneSamplePerStep:
		return event.Frame(stepSize)
	case plugin.FixedSampleRate:
		if desc.SampleRate <= 0 {
			return 1
		}
		r := event.Frame(math.Round(float64(inputRate) / desc.SampleRate))
		if r < 1 {
			r = 1
		}
		return r
	default: // VariableSampleRate
		if desc.SampleRate <= 0 {
			return 1
		}
		r := event.Frame(math.Round(float64(inputRate) / desc.SampleRate))
		if r < 1 {
			r = 1
		}
		return r
	}
}

func frameToRealtime(f event.Frame, sampleRate int) float64 {
	return float64(f) / float64(sampleRate)
}

func realtimeToFrame(seconds float64, sampleRate int) event.Frame {
	return event.Frame(math.Round(seconds * float64(sampleRate)))
}

func (t *Transformer) run() {
	defer close(t.done)
	defer t.finalise()

	if !t.ok {
		return
	}

	for {
		if t.Abandoned() {
			return
		}
		if _, ready := t.input.IsReady(); ready {
			break
		}
		time.Sleep(t.pollInterval)
	}
	if t.Abandoned() {
		return
	}

	var ffts []*FFTModel
	if t.plug.InputDomain() == plugin.FrequencyDomain {
		ffts = make([]*FFTModel, t.channels)
		var g errgroup.Group
		for c := 0; c < t.channels; c++ {
			c := c
			g.Go(func() error {
				ffts[c] = NewFFTModel(t.input, c, t.blockSize)
				return nil
			})
		}
		_ = g.Wait()
	}
	defer func() { ffts = nil }()

	inputStart, inputEnd := t.input.Extent()
	start := maxFrame(inputStart, t.contextStart)
	end := minFrame(inputEnd, t.contextStart+t.contextDuration)
	totalSteps := int(t.contextDuration)/t.stepSize + 1

	for blockFrame := start; blockFrame < end; blockFrame += event.Frame(t.stepSize) {
		if t.Abandoned() {
			return
		}

		buffers, err := t.readBlock(blockFrame, ffts)
		if err != nil {
			t.log.Warn("transform: block read failed, skipping", "frame", int64(blockFrame), "err", err)
			continue
		}

		ts := frameToRealtime(blockFrame, t.input.SampleRate())
		sets, err := t.plug.Process(buffers, ts)
		if err != nil {
			t.log.Warn("transform: plugin process failed, skipping block", "frame", int64(blockFrame), "err", err)
			continue
		}
		if t.metrics != nil {
			t.metrics.RecordBlock(t.plug.ID())
		}

		for _, fs := range sets {
			t.dispatch(fs, blockFrame)
		}

		pct := progressPercent(blockFrame, t.contextStart, t.stepSize, totalSteps)
		for _, b := range t.bindings {
			b.base().SetCompletion(pct)
			if t.metrics != nil {
				t.metrics.SetCompletion(t.plug.ID(), b.desc.Name, pct)
			}
		}
	}

	if !t.Abandoned() {
		if remaining, err := t.plug.RemainingFeatures(); err == nil {
			for _, fs := range remaining {
				t.dispatch(fs, end)
			}
		} else {
			t.log.Warn("transform: remaining-features call failed", "err", err)
		}
	} else if t.metrics != nil {
		t.metrics.RecordAbandoned(t.plug.ID())
	}
}

// finalise takes every output straight to 100%, per spec.md §4.E step
// 9 and §5 ("Cancellation is not a failure — it leaves the model in
// whatever state it had reached" before jumping to ready).
func (t *Transformer) finalise() {
	for _, b := range t.bindings {
		b.base().SetCompletion(100)
	}
}

// progressPercent implements spec.md §4.E step 7, clamped to [1,99]
// (100 is reserved for finalise, emitted exactly once after the loop).
func progressPercent(blockFrame, contextStart event.Frame, stepSize, totalSteps int) int {
	if stepSize <= 0 || totalSteps <= 0 {
		return 1
	}
	pct := int((int64(blockFrame-contextStart) / int64(stepSize) * 99) / int64(totalSteps))
	if pct < 1 {
		pct = 1
	}
	if pct > 99 {
		pct = 99
	}
	return pct
}

func (t *Transformer) readBlock(blockFrame event.Frame, ffts []*FFTModel) ([][]float32, error) {
	if t.plug.InputDomain() == plugin.FrequencyDomain {
		buffers := make([][]float32, len(ffts))
		for i, f := range ffts {
			col, err := f.Column(blockFrame)
			if err != nil {
				return nil, err
			}
			buffers[i] = col
		}
		return buffers, nil
	}

	if t.channels > 1 {
		buffers := make([][]float32, t.channels)
		for c := 0; c < t.channels; c++ {
			b, err := readChannelBlock(t.input, c, blockFrame, t.blockSize)
			if err != nil {
				return nil, err
			}
			buffers[c] = b
		}
		return buffers, nil
	}

	b, err := readChannelBlock(t.input, t.inputChannel, blockFrame, t.blockSize)
	if err != nil {
		return nil, err
	}
	return [][]float32{b}, nil
}

func (t *Transformer) dispatch(fs plugin.FeatureSet, blockFrame event.Frame) {
	var b *binding
	for _, cand := range t.bindings {
		if cand.desc.Index == fs.OutputIndex {
			b = cand
			break
		}
	}
	if b == nil {
		return
	}

	for _, f := range fs.Features {
		frame, ok := t.featureFrame(b, f, blockFrame)
		if !ok {
			t.log.Warn("transform: dropping feature with no mandatory timestamp", "output", b.desc.Name)
			if t.metrics != nil {
				t.metrics.RecordFeatureDropped(t.plug.ID(), b.desc.Name)
			}
			continue
		}
		dispatchToModel(b, frame, f)
	}
}

// featureFrame implements spec.md §4.E's feature-to-frame mapping.
func (t *Transformer) featureFrame(b *binding, f plugin.Feature, blockFrame event.Frame) (event.Frame, bool) {
	switch b.desc.SampleType {
	case plugin.OneSamplePerStep:
		return blockFrame, true

	case plugin.FixedSampleRate:
		pluginRate := b.desc.SampleRate
		if pluginRate <= 0 {
			pluginRate = 1
		}
		if f.HasTimestamp {
			featureIndex := math.Round(f.Timestamp * pluginRate)
			return event.Frame(math.Round(featureIndex * float64(t.input.SampleRate()) / pluginRate)), true
		}
		frame := event.Frame(math.Round(float64(b.counter) * float64(t.input.SampleRate()) / pluginRate))
		b.counter++
		return frame, true

	default: // VariableSampleRate
		if !f.HasTimestamp {
			return 0, false
		}
		return realtimeToFrame(f.Timestamp, t.input.SampleRate()), true
	}
}

func dispatchToModel(b *binding, frame event.Frame, f plugin.Feature) {
	switch b.kind {
	case kindSparse1D:
		_ = b.sparse1D.Point(frame, f.Label)

	case kindSparseTV:
		if len(f.Values) <= 1 {
			v := 0.0
			if len(f.Values) == 1 {
				v = f.Values[0]
			}
			_ = b.sparseTV.Point(frame, v, f.Label)
			return
		}
		for i, v := range f.Values {
			_ = b.sparseTV.Point(frame, v, fmt.Sprintf("[%d]%s", i, f.Label))
		}

	case kindNote:
		pitch := valueAt(f.Values, 0)
		duration := durationFrames(f, b.note.SampleRate())
		ne := annotation.NoteEvent{Frame: frame, Duration: duration, Pitch: pitch, Label: f.Label}
		if len(f.Values) > 2 {
			ne.HasVelocity = true
			ne.Velocity = int(f.Values[2])
		}
		_ = b.note.Add(ne)

	case kindRegion:
		value := valueAt(f.Values, 0)
		duration := durationFrames(f, b.region.SampleRate())
		_ = b.region.Add(annotation.RegionEvent{Frame: frame, Duration: duration, Value: value, Label: f.Label})

	case kindDense3D:
		col := b.dense3D.ColumnAt(frame)
		_ = b.dense3D.SetColumn(col, f.Values)
	}
}

func valueAt(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}

// durationFrames implements spec.md §4.E's Note/Region duration rule:
// the feature's own duration (seconds, converted to frames at
// sampleRate) if present, else value[1] taken as a frame count.
func durationFrames(f plugin.Feature, sampleRate int) event.Frame {
	if f.HasDuration {
		return realtimeToFrame(f.Duration, sampleRate)
	}
	return event.Frame(valueAt(f.Values, 1))
}
