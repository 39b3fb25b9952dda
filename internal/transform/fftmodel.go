package transform

import (
	"github.com/sonicvg/svcore/internal/annotation"
	"github.com/sonicvg/svcore/internal/event"
)

// FFTModel is the per-channel frequency-domain view a frequency-domain
// Transformer builds over its dense PCM input (spec.md §4.E step 2):
// a windowed FFT computed on demand for the block starting at a given
// frame. It is held as a shared-by-lifetime reference from the
// Transformer for the duration of one run and released when the run
// terminates (spec.md §5 "Shared resources").
type FFTModel struct {
	source    *annotation.DenseTimeValue
	channel   int
	blockSize int
	fftSize   int
	window    []float64
}

// NewFFTModel builds an FFTModel over one channel of source, at the
// given block size. blockSize need not be a power of two; it is
// zero-padded up to the next power of two before transforming.
func NewFFTModel(source *annotation.DenseTimeValue, channel, blockSize int) *FFTModel {
	return &FFTModel{
		source:    source,
		channel:   channel,
		blockSize: blockSize,
		fftSize:   nextPowerOfTwo(blockSize),
		window:    hannWindow(blockSize),
	}
}

// Column returns the FFT of the block starting at blockFrame, packed
// as the plugin boundary's interleaved (real[0], imag[0], ...,
// real[n/2], imag[n/2]) layout (spec.md §6).
func (f *FFTModel) Column(blockFrame event.Frame) ([]float32, error) {
	samples, err := readChannelBlock(f.source, f.channel, blockFrame, f.blockSize)
	if err != nil {
		return nil, err
	}

	windowed := make([]complex128, f.fftSize)
	for i, s := range samples {
		windowed[i] = complex(float64(s)*f.window[i], 0)
	}

	fftRadix2(windowed)

	bins := f.fftSize/2 + 1
	out := make([]float32, bins*2)
	for i := 0; i < bins; i++ {
		out[i*2] = float32(real(windowed[i]))
		out[i*2+1] = float32(imag(windowed[i]))
	}
	return out, nil
}

// readChannelBlock reads blockSize frames of one channel (or, if
// channel < 0, the mean across all channels — spec.md §4.E "deliver
// the mean, not the sum, of channels") starting at blockFrame,
// zero-padding any portion that falls outside [0, FrameCount).
func readChannelBlock(source *annotation.DenseTimeValue, channel int, blockFrame event.Frame, blockSize int) ([]float32, error) {
	out := make([]float32, blockSize)

	total := event.Frame(source.FrameCount())
	lo := blockFrame
	hi := blockFrame + event.Frame(blockSize)
	readLo := maxFrame(lo, 0)
	readHi := minFrame(hi, total)
	if readLo >= readHi {
		return out, nil
	}

	channels := source.ChannelCount()
	interleaved, err := source.GetInterleavedFrames(int(readLo), int(readHi-readLo))
	if err != nil {
		return nil, err
	}

	frames := len(interleaved) / max(channels, 1)
	for i := 0; i < frames; i++ {
		outIdx := int(readLo-lo) + i
		if outIdx < 0 || outIdx >= blockSize {
			continue
		}
		if channel >= 0 {
			out[outIdx] = interleaved[i*channels+channel]
			continue
		}
		var sum float32
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		out[outIdx] = sum / float32(channels)
	}
	return out, nil
}

func maxFrame(a, b event.Frame) event.Frame {
	if a > b {
		return a
	}
	return b
}

func minFrame(a, b event.Frame) event.Frame {
	if a < b {
		return a
	}
	return b
}
