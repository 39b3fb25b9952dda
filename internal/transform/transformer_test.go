package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sonicvg/svcore/internal/annotation"
	"github.com/sonicvg/svcore/internal/event"
	"github.com/sonicvg/svcore/internal/plugin"
)

// fakeSource is a finished, fixed-length in-memory PCMSource for
// driving the Transformer without the Coded Audio Reader.
type fakeSource struct {
	channels int
	frames   []float32 // interleaved
}

func (f *fakeSource) ChannelCount() int { return f.channels }
func (f *fakeSource) FrameCount() int   { return len(f.frames) / f.channels }
func (f *fakeSource) GetInterleavedFrames(start, count int) ([]float32, error) {
	lo := start * f.channels
	hi := (start + count) * f.channels
	if lo < 0 || hi > len(f.frames) {
		hi = len(f.frames)
	}
	out := make([]float32, hi-lo)
	copy(out, f.frames[lo:hi])
	return out, nil
}
func (f *fakeSource) IsFinished() bool { return true }
func (f *fakeSource) Completion() int  { return 100 }

func newConstantSource(channels, frameCount int, v float32) *fakeSource {
	frames := make([]float32, channels*frameCount)
	for i := range frames {
		frames[i] = v
	}
	return &fakeSource{channels: channels, frames: frames}
}

func TestTransformerRunsToCompletionAndProducesPoints(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := newConstantSource(1, 4096, 1.0)
	dense := annotation.NewDenseTimeValue(48000, source)

	plug := plugin.NewRMSLevelPlugin()
	tr, err := New(plug, []Spec{{OutputIndex: 0, InputChannel: 0}}, dense, 0, event.Frame(4096), time.Millisecond, nil)
	require.NoError(t, err)
	require.True(t, tr.IsOK(), tr.Message())

	tr.Start()
	tr.Wait()

	pct, ready := tr.Outputs()[0].IsReady()
	assert.Equal(t, 100, pct)
	assert.True(t, ready)

	sparseTV := tr.SparseTimeValueAt(0)
	require.NotNil(t, sparseTV)
	points := sparseTV.Series().All()
	require.NotEmpty(t, points)
	for _, p := range points {
		assert.InDelta(t, 1.0, p.Value, 1e-6, "RMS of a constant-1.0 signal is 1.0")
	}
}

func TestTransformerConfigurationFailureStillCompletes(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := newConstantSource(1, 4096, 0.0)
	dense := annotation.NewDenseTimeValue(48000, source)

	plug := plugin.NewRMSLevelPlugin()
	// Requesting an output index the plugin doesn't have is a
	// configuration failure: New still returns a Transformer, just one
	// with IsOK() false.
	tr, err := New(plug, []Spec{{OutputIndex: 7, InputChannel: 0}}, dense, 0, 4096, time.Millisecond, nil)
	require.NoError(t, err)
	assert.False(t, tr.IsOK())
	assert.NotEmpty(t, tr.Message())

	tr.Start()
	tr.Wait()
}

// fakeNotePlugin emits exactly one MIDI-pitch Note feature, used to
// verify the Transformer derives pitchIsMIDI from the output's unit
// string rather than always constructing an Hz-flagged Note model.
type fakeNotePlugin struct {
	emitted bool
}

func (p *fakeNotePlugin) ID() string                 { return "test:note" }
func (p *fakeNotePlugin) InputDomain() plugin.Domain { return plugin.TimeDomain }
func (p *fakeNotePlugin) MinChannels() int           { return 1 }

func (p *fakeNotePlugin) PreferredStepAndBlockSize() (int, int) { return 1024, 1024 }

func (p *fakeNotePlugin) Initialise(channels, stepSize, blockSize int) error { return nil }

func (p *fakeNotePlugin) RemainingFeatures() ([]plugin.FeatureSet, error) { return nil, nil }

func (p *fakeNotePlugin) Outputs() []plugin.OutputDescriptor {
	return []plugin.OutputDescriptor{{
		Index: 0, Name: "notes", BinCount: 2, HasDuration: true,
		Unit: "MIDI pitch", SampleType: plugin.VariableSampleRate,
	}}
}

func (p *fakeNotePlugin) Process(buffers [][]float32, timestampSeconds float64) ([]plugin.FeatureSet, error) {
	if p.emitted {
		return nil, nil
	}
	p.emitted = true
	return []plugin.FeatureSet{{
		OutputIndex: 0,
		Features: []plugin.Feature{{
			HasTimestamp: true, Timestamp: timestampSeconds,
			HasDuration: true, Duration: 0.1,
			Values: []float64{69}, // A4, as a MIDI note number
		}},
	}}, nil
}

func TestTransformerDerivesNotePitchUnitFromDescriptor(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := newConstantSource(1, 4096, 0.0)
	dense := annotation.NewDenseTimeValue(48000, source)

	plug := &fakeNotePlugin{}
	tr, err := New(plug, []Spec{{OutputIndex: 0, InputChannel: 0}}, dense, 0, event.Frame(4096), time.Millisecond, nil)
	require.NoError(t, err)
	require.True(t, tr.IsOK(), tr.Message())

	tr.Start()
	tr.Wait()

	note := tr.NoteAt(0)
	require.NotNil(t, note)
	entries := note.NoteList(true) // request Hz
	require.NotEmpty(t, entries)
	assert.InDelta(t, 440.0, entries[0].Pitch, 1e-6, "a MIDI-unit output's stored pitch converts to Hz; storing it as already-Hz would leave this at 69")
}

func TestTransformerAbandonStopsTheWorker(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := newConstantSource(1, 10_000_000, 0.5)
	dense := annotation.NewDenseTimeValue(48000, source)

	plug := plugin.NewRMSLevelPlugin()
	tr, err := New(plug, []Spec{{OutputIndex: 0, InputChannel: 0}}, dense, 0, 10_000_000, time.Millisecond, nil)
	require.NoError(t, err)
	require.True(t, tr.IsOK())

	tr.Start()
	tr.Abandon()
	tr.Wait()

	assert.True(t, tr.Abandoned())
	pct, ready := tr.Outputs()[0].IsReady()
	assert.Equal(t, 100, pct, "abandonment still jumps every output to ready, per the finalise step")
	assert.True(t, ready)
}
