// Package audioreader implements the Coded Audio Reader (spec.md §4.C):
// a streaming accumulate → resample → normalise/clip → cache pipeline
// that turns a codec-specific decode loop into a random-access
// annotation.PCMSource, grounded on the teacher's myaudio decode/encode
// pair and sibling-pack resampler/ringbuffer/kv wrappers.
package audioreader

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/smallnest/ringbuffer"

	"github.com/sonicvg/svcore/internal/apperrors"
	"github.com/sonicvg/svcore/internal/logging"
	"github.com/sonicvg/svcore/internal/metrics"
)

// CacheMode selects where decoded, resampled frames are accumulated.
type CacheMode int

const (
	CacheMemory CacheMode = iota
	CacheTempFile
)

func (m CacheMode) String() string {
	if m == CacheTempFile {
		return "tempfile"
	}
	return "memory"
}

type state int

const (
	stateUninitialised state = iota
	stateInitialised
	stateFinished
)

// Config parameterises one decode run.
type Config struct {
	SourceSampleRate int
	TargetSampleRate int
	Channels         int
	Mode             CacheMode
	TempDir          string
	Normalise        bool
	AccumulateFrames int
	ResamplerQuality string
	InstanceID       string
	Metrics          *metrics.ReaderMetrics

	// ExpectedSourceFrames is the decoder's best estimate of total
	// source-rate frame count (from a container header, where one is
	// available). 0 means unknown; Completion then reports 0 while
	// decoding and jumps straight to 100 at FinishDecodeCache.
	ExpectedSourceFrames int
}

// AudioReader accumulates interleaved float32 samples pushed by a
// codec-specific decode loop, resamples them to TargetSampleRate, and
// makes the result available as a growing random-access PCM buffer.
// It satisfies annotation.PCMSource.
type AudioReader struct {
	cfg Config

	mu    sync.Mutex
	state state

	accum     *ringbuffer.RingBuffer
	accumSize int // bytes: AccumulateFrames * Channels * 4
	chunkPool *bufferPool

	resampler *resamplerStage
	sink      sink

	runningMax       float64
	sourceFramesSeen int
	completion       atomic.Int32
	finished         atomic.Bool

	log *slog.Logger
}

// New constructs an AudioReader ready to accept AddSamples calls. If a
// tempfile sink cannot be created (out of disk space at creation time,
// permission error, missing temp dir), it downgrades to memory caching,
// records the downgrade in metrics, and continues — only a failure
// partway through an already-open tempfile write is treated as fatal
// (spec.md §6 "cache sink failure modes").
func New(cfg Config) (*AudioReader, error) {
	if cfg.Channels <= 0 {
		return nil, apperrors.Newf("audioreader: channels must be positive, got %d", cfg.Channels).
			Component("audioreader").Category(apperrors.CategoryValidation).Build()
	}
	if cfg.AccumulateFrames <= 0 {
		cfg.AccumulateFrames = 16384
	}

	r := &AudioReader{cfg: cfg, log: logging.ForService("audioreader")}

	r.accumSize = cfg.AccumulateFrames * cfg.Channels * 4
	r.accum = ringbuffer.New(r.accumSize * 2)
	chunkPool, err := newBufferPool(r.accumSize)
	if err != nil {
		return nil, err
	}
	r.chunkPool = chunkPool

	rs, err := newResamplerStage(cfg.SourceSampleRate, cfg.TargetSampleRate, cfg.Channels, cfg.ResamplerQuality)
	if err != nil {
		return nil, err
	}
	r.resampler = rs

	instanceID := cfg.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
		r.cfg.InstanceID = instanceID
	}

	mode := cfg.Mode
	if mode == CacheTempFile {
		s, err := newTempFileSink(cfg.TempDir, instanceID, cfg.TargetSampleRate, cfg.Channels)
		if err != nil {
			r.log.Warn("tempfile cache sink unavailable, downgrading to memory", "error", err, "temp_dir", cfg.TempDir)
			cfg.Metrics.RecordCacheDowngrade()
			mode = CacheMemory
		} else {
			r.sink = s
		}
	}
	if r.sink == nil {
		r.sink = newMemorySink(cfg.Channels)
		mode = CacheMemory
	}
	r.cfg.Mode = mode

	cfg.Metrics.RecordCacheMode(instanceID, mode.String())
	cfg.Metrics.SetResampleRatio(instanceID, float64(cfg.TargetSampleRate)/float64(cfg.SourceSampleRate))

	r.state = stateInitialised
	return r, nil
}

// AddSamples pushes a chunk of interleaved float32 source-rate samples
// into the accumulate stage. Once AccumulateFrames worth of samples
// have built up, they are drained, resampled, and pushed to the cache
// sink; any leftover samples remain buffered for the next call.
func (r *AudioReader) AddSamples(interleaved []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == stateFinished {
		return apperrors.Newf("audioreader: AddSamples called after FinishDecodeCache").
			Component("audioreader").Category(apperrors.CategoryState).Build()
	}

	raw := float32SliceToBytes(interleaved)
	if n, err := r.accum.Write(raw); err != nil {
		// A full ring buffer accepts only the first n bytes; grow it and
		// write the rest.
		rest := raw[n:]
		if err := r.growAccum(len(rest)); err != nil {
			return err
		}
		if _, err := r.accum.Write(rest); err != nil {
			return apperrors.Wrap(err).Component("audioreader").Category(apperrors.CategoryResource).Build()
		}
	}

	r.cfg.Metrics.AddBytesDecoded(r.cfg.InstanceID, len(raw))

	for r.accum.Length() >= r.accumSize {
		chunk := r.chunkPool.Get()
		if _, err := r.accum.Read(chunk); err != nil {
			r.chunkPool.Put(chunk)
			return apperrors.Wrap(err).Component("audioreader").Category(apperrors.CategoryAudio).Build()
		}
		err := r.pushChunk(bytesToFloat32Slice(chunk))
		r.chunkPool.Put(chunk)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *AudioReader) growAccum(extra int) error {
	remaining := make([]byte, r.accum.Length())
	if _, err := r.accum.Read(remaining); err != nil {
		return apperrors.Wrap(err).Component("audioreader").Category(apperrors.CategoryAudio).Build()
	}
	r.accum = ringbuffer.New(2 * (len(remaining) + extra + r.accumSize))
	if _, err := r.accum.Write(remaining); err != nil {
		return apperrors.Wrap(err).Component("audioreader").Category(apperrors.CategoryAudio).Build()
	}
	return nil
}

// FinishDecodeCache flushes any remaining partial chunk through the
// rate-conversion tail-padding algorithm (spec.md §4.C "rate
// conversion tail"), trims the memory sink down to
// round(sourceFrameCount * targetRate/sourceRate) output frames, then
// marks the reader Finished. The tempfile sink is not trimmed: it keeps
// the trailing pad frames (see truncateSink).
func (r *AudioReader) FinishDecodeCache() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == stateFinished {
		return nil
	}

	remaining := make([]byte, r.accum.Length())
	if len(remaining) > 0 {
		if _, err := r.accum.Read(remaining); err != nil {
			return apperrors.Wrap(err).Component("audioreader").Category(apperrors.CategoryAudio).Build()
		}
	}
	tail := bytesToFloat32Slice(remaining)

	ratio := float64(r.cfg.TargetSampleRate) / float64(r.cfg.SourceSampleRate)
	tailFrameCount := len(tail) / r.cfg.Channels
	totalSourceFrames := r.sourceFramesSeen + tailFrameCount
	outFrameCount := r.sink.FrameCount()

	pad := totalSourceFrames - int(math.Ceil(float64(outFrameCount)/ratio)) + 1
	if pad < 1 {
		pad = 1
	}
	tail = append(tail, make([]float32, pad*r.cfg.Channels)...)

	if err := r.pushChunk(tail); err != nil {
		return err
	}

	targetTotal := int(math.Round(float64(totalSourceFrames) * ratio))
	if r.sink.FrameCount() > targetTotal {
		r.truncateSink(targetTotal)
	}

	r.state = stateFinished
	r.completion.Store(100)
	r.finished.Store(true)
	return nil
}

// truncateSink is a best-effort trim applied only to the memory sink;
// the tempfile sink's trailing pad frames are harmless silence and are
// left in place rather than rewriting the cache file.
func (r *AudioReader) truncateSink(frames int) {
	if ms, ok := r.sink.(*memorySink); ok {
		n := frames * r.cfg.Channels
		if n < len(ms.data) {
			ms.data = ms.data[:n]
		}
	}
}

func (r *AudioReader) pushChunk(interleaved []float32) error {
	resampled, err := r.resampler.Process(interleaved)
	if err != nil {
		return err
	}
	r.postprocess(resampled)
	if err := r.sink.Write(resampled); err != nil {
		if apperrors.CategoryOf(err) == apperrors.CategoryResource {
			r.cfg.Metrics.RecordDiskFull(r.cfg.TempDir)
		}
		return err
	}

	r.sourceFramesSeen += len(interleaved) / max(r.cfg.Channels, 1)
	r.completion.Store(r.currentPercent())
	return nil
}

// currentPercent implements the transformer's own completion-mapping
// idiom (spec.md §4.E step 7) applied to the reader: a clamped
// [1,99] percentage while the expected length is known, 0 while it is
// not, and 100 only once FinishDecodeCache has run.
func (r *AudioReader) currentPercent() int32 {
	if r.cfg.ExpectedSourceFrames <= 0 {
		return 0
	}
	pct := int32(r.sourceFramesSeen * 99 / r.cfg.ExpectedSourceFrames)
	if pct < 1 {
		pct = 1
	}
	if pct > 99 {
		pct = 99
	}
	return pct
}

// postprocess applies spec.md §4.C's normalise-vs-clip rule: in
// normalise mode it only tracks the running peak observed so far; the
// 1/peak gain is applied when frames are read back through
// GetInterleavedFrames (see Gain), so earlier output is rescaled on
// later reads rather than retroactively rewritten. Otherwise amplitudes
// are hard-clipped to [-1, 1].
func (r *AudioReader) postprocess(samples []float32) {
	if !r.cfg.Normalise {
		for i, v := range samples {
			if v > 1 {
				samples[i] = 1
			} else if v < -1 {
				samples[i] = -1
			}
		}
		return
	}
	for _, v := range samples {
		av := math.Abs(float64(v))
		if av > r.runningMax {
			r.runningMax = av
		}
	}
}

// Gain returns the current normalise-mode playback gain: 1/runningMax,
// or 1 if nothing has been observed yet or normalise mode is off.
func (r *AudioReader) Gain() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.cfg.Normalise || r.runningMax == 0 {
		return 1
	}
	return 1 / r.runningMax
}

// ChannelCount implements annotation.PCMSource.
func (r *AudioReader) ChannelCount() int { return r.cfg.Channels }

// FrameCount implements annotation.PCMSource.
func (r *AudioReader) FrameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sink.FrameCount()
}

// IsFinished implements annotation.PCMSource.
func (r *AudioReader) IsFinished() bool { return r.finished.Load() }

// Completion implements annotation.PCMSource.
func (r *AudioReader) Completion() int { return int(r.completion.Load()) }

// CacheMode reports which sink this reader ended up using, after any
// creation-time downgrade.
func (r *AudioReader) CacheMode() CacheMode { return r.cfg.Mode }

// GetInterleavedFrames implements annotation.PCMSource, reading
// gain-scaled frames back from the active cache sink.
func (r *AudioReader) GetInterleavedFrames(start, count int) ([]float32, error) {
	r.mu.Lock()
	s := r.sink
	gain := 1.0
	if r.cfg.Normalise && r.runningMax > 0 {
		gain = 1 / r.runningMax
	}
	r.mu.Unlock()

	out, err := s.ReadAt(start, count)
	if err != nil {
		return nil, err
	}
	if gain != 1 {
		for i, v := range out {
			out[i] = float32(float64(v) * gain)
		}
	}
	return out, nil
}

// Close releases the cache sink (removing any tempfile) and the
// resampler engine.
func (r *AudioReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.sink.Close()
	if rerr := r.resampler.Close(); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

func float32SliceToBytes(in []float32) []byte {
	out := make([]byte, len(in)*4)
	for i, v := range in {
		bits := math.Float32bits(v)
		out[i*4] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}

func bytesToFloat32Slice(in []byte) []float32 {
	out := make([]float32, len(in)/4)
	for i := range out {
		bits := uint32(in[i*4]) | uint32(in[i*4+1])<<8 | uint32(in[i*4+2])<<16 | uint32(in[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}
