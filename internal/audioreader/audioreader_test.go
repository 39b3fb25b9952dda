package audioreader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySinkWriteAndReadAt(t *testing.T) {
	s := newMemorySink(2)
	require.NoError(t, s.Write([]float32{0, 1, 2, 3, 4, 5}))
	assert.Equal(t, 3, s.FrameCount())

	out, err := s.ReadAt(1, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 3, 4, 5}, out)

	out, err = s.ReadAt(2, 10)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5}, out, "a read past the end is clamped, not an error")

	out, err = s.ReadAt(5, 1)
	require.NoError(t, err)
	assert.Nil(t, out, "a read entirely past the end returns nothing")
}

func TestTempFileSinkWriteAndClose(t *testing.T) {
	dir := t.TempDir()
	s, err := newTempFileSink(dir, "test-instance", 48000, 2)
	require.NoError(t, err)
	assert.FileExists(t, s.path)
	assert.Equal(t, filepath.Join(dir, "decoded_test-instance.wav"), s.path)

	require.NoError(t, s.Write([]float32{0.1, -0.1, 0.2, -0.2}))
	assert.Equal(t, 2, s.FrameCount())

	require.NoError(t, s.Close())
	_, statErr := os.Stat(s.path)
	assert.True(t, os.IsNotExist(statErr), "Close removes the scratch cache file")
}

func TestScaleToIntRoundTrip(t *testing.T) {
	for _, v := range []float32{0, 0.5, -0.5, 1, -1} {
		scaled := scaleToInt(v)
		back := float32(float64(scaled) / cacheScale)
		assert.InDelta(t, v, back, 1e-6)
	}
}

func TestScaleToIntClampsOutOfRangeInput(t *testing.T) {
	assert.Equal(t, int(cacheScale), scaleToInt(2.0))
	assert.Equal(t, -int(cacheScale)-1, scaleToInt(-2.0))
}

func TestNewAudioReaderDowngradesToMemoryOnTempFileCreateFailure(t *testing.T) {
	r, err := New(Config{
		SourceSampleRate: 48000,
		TargetSampleRate: 48000,
		Channels:         1,
		Mode:             CacheTempFile,
		TempDir:          filepath.Join(t.TempDir(), "does", "not", "exist"),
		AccumulateFrames: 1024,
	})
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, CacheMemory, r.CacheMode(), "an unwritable temp dir downgrades to the memory sink rather than failing New")
}

func TestCurrentPercentUnknownExpectedLengthReportsZero(t *testing.T) {
	r := &AudioReader{cfg: Config{ExpectedSourceFrames: 0}}
	assert.Equal(t, int32(0), r.currentPercent())
}

func TestCurrentPercentClampedToOneAndNinetyNine(t *testing.T) {
	r := &AudioReader{cfg: Config{ExpectedSourceFrames: 1000}}
	r.sourceFramesSeen = 1
	assert.Equal(t, int32(1), r.currentPercent(), "a nonzero-but-tiny fraction still clamps up to 1")

	r.sourceFramesSeen = 1000
	assert.Equal(t, int32(99), r.currentPercent(), "full-length-seen still clamps below 100; only FinishDecodeCache reports 100")
}

// TestFinishDecodeCacheTailPaddingUsesTotalSourceFrames drains several
// chunks before the final partial one, so the tail alone is much
// smaller than the cumulative source length. The pad/truncate
// algorithm must size itself off the cumulative total (sourceFramesSeen
// + the tail), not the tail alone, or the result badly undershoots
// round(totalSourceFrames * ratio) for a non-unity resample ratio.
func TestFinishDecodeCacheTailPaddingUsesTotalSourceFrames(t *testing.T) {
	r, err := New(Config{
		SourceSampleRate: 24000,
		TargetSampleRate: 48000, // ratio 2.0
		Channels:         1,
		Mode:             CacheMemory,
		AccumulateFrames: 300,
	})
	require.NoError(t, err)
	defer r.Close()

	const sourceFrames = 1000 // drains 3x300, leaves a 100-frame tail
	samples := make([]float32, sourceFrames)
	for i := range samples {
		samples[i] = 0.25
	}
	require.NoError(t, r.AddSamples(samples))
	require.NoError(t, r.FinishDecodeCache())

	assert.InDelta(t, 2000, r.FrameCount(), 20,
		"output length should track round(totalSourceFrames*ratio) using the cumulative source count, not the final tail alone")
}

func TestAudioReaderEndToEndAtUnityRatio(t *testing.T) {
	r, err := New(Config{
		SourceSampleRate: 48000,
		TargetSampleRate: 48000,
		Channels:         1,
		Mode:             CacheMemory,
		AccumulateFrames: 256,
	})
	require.NoError(t, err)
	defer r.Close()

	const sourceFrames = 1000
	samples := make([]float32, sourceFrames)
	for i := range samples {
		samples[i] = 0.5
	}
	require.NoError(t, r.AddSamples(samples))
	require.NoError(t, r.FinishDecodeCache())

	assert.True(t, r.IsFinished())
	assert.Equal(t, 100, r.Completion())
	assert.InDelta(t, sourceFrames, r.FrameCount(), 8, "a 1:1 resample ratio should land within a few frames of the source length after tail padding and truncation")
}
