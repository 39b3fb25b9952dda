package audioreader

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"syscall"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/sonicvg/svcore/internal/apperrors"
)

// cacheBitDepth is the bit depth used for the tempfile cache sink.
// go-audio/wav's Encoder.Write takes an *audio.IntBuffer — the only
// buffer shape exercised anywhere in the retrieved corpus
// (tphakala-birdnet-go's encode.go and readfile_wav.go both go through
// IntBuffer, never a float buffer type) — so the cache stores samples
// as scaled 32-bit signed PCM rather than literal IEEE-float WAV, and
// rescales on the way back out.
const cacheBitDepth = 32

const cacheScale = float64(1<<31 - 1)

// sink is the append-only destination the accumulate/resample stage
// writes finished float32 frames into, and the random-access source
// GetInterleavedFrames reads them back from.
type sink interface {
	Write(interleaved []float32) error
	ReadAt(startFrame, count int) ([]float32, error)
	FrameCount() int
	Close() error
}

// memorySink is the default cache mode: a growing in-process slice.
type memorySink struct {
	channels int
	data     []float32
}

func newMemorySink(channels int) *memorySink {
	return &memorySink{channels: channels}
}

func (s *memorySink) Write(interleaved []float32) error {
	s.data = append(s.data, interleaved...)
	return nil
}

func (s *memorySink) ReadAt(startFrame, count int) ([]float32, error) {
	lo := startFrame * s.channels
	hi := lo + count*s.channels
	if lo < 0 {
		lo = 0
	}
	if hi > len(s.data) {
		hi = len(s.data)
	}
	if lo >= hi {
		return nil, nil
	}
	return append([]float32(nil), s.data[lo:hi]...), nil
}

func (s *memorySink) FrameCount() int {
	return len(s.data) / max(s.channels, 1)
}

func (s *memorySink) Close() error { return nil }

// tempFileSink caches decoded audio to a scratch WAV file on disk,
// keeping the encoder open across writes and re-opening a fresh
// read-only decoder for every read (spec.md §10's Open Question
// decision: mid-decode reads never block on or lock against the
// writer, they simply see however much has been flushed so far).
type tempFileSink struct {
	path       string
	channels   int
	sampleRate int
	file       *os.File
	enc        *wav.Encoder
	frameCount int
}

// newTempFileSink creates the cache file at
// <dir>/decoded_<instanceID>.wav, matching spec.md §6's documented
// temp-cache layout. An empty dir means os.TempDir().
func newTempFileSink(dir, instanceID string, sampleRate, channels int) (*tempFileSink, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "decoded_"+instanceID+".wav")
	f, err := os.Create(path)
	if err != nil {
		return nil, apperrors.Wrap(err).
			Component("audioreader").Category(apperrors.CategoryIO).
			Context("temp_dir", dir).Build()
	}

	enc := wav.NewEncoder(f, sampleRate, cacheBitDepth, channels, 1)
	return &tempFileSink{
		path: f.Name(), channels: channels, sampleRate: sampleRate,
		file: f, enc: enc,
	}, nil
}

func (s *tempFileSink) Write(interleaved []float32) error {
	ints := make([]int, len(interleaved))
	for i, v := range interleaved {
		ints[i] = scaleToInt(v)
	}
	buf := &audio.IntBuffer{
		Data:   ints,
		Format: &audio.Format{SampleRate: s.sampleRate, NumChannels: s.channels},
	}
	if err := s.enc.Write(buf); err != nil {
		if isDiskFull(err) {
			return apperrors.Wrap(err).
				Component("audioreader").Category(apperrors.CategoryResource).
				Context("temp_dir", filepath.Dir(s.path)).Build()
		}
		return apperrors.Wrap(err).
			Component("audioreader").Category(apperrors.CategoryIO).Build()
	}
	s.frameCount += len(interleaved) / max(s.channels, 1)
	return nil
}

func (s *tempFileSink) FrameCount() int { return s.frameCount }

// ReadAt re-opens the cache file read-only and decodes the requested
// frame range. It never touches s.enc/s.file, so it cannot race the
// writer beyond reading whatever WAV header/data the filesystem has
// actually flushed.
func (s *tempFileSink) ReadAt(startFrame, count int) ([]float32, error) {
	if count <= 0 {
		return nil, nil
	}

	rf, err := os.Open(s.path)
	if err != nil {
		return nil, apperrors.Wrap(err).
			Component("audioreader").Category(apperrors.CategoryIO).Build()
	}
	defer rf.Close()

	dec := wav.NewDecoder(rf)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		// The header hasn't been flushed with valid extent data yet;
		// treat as "nothing readable yet" rather than an error.
		return nil, nil
	}

	skip := startFrame * s.channels
	buf := &audio.IntBuffer{
		Data:   make([]int, skip+count*s.channels),
		Format: &audio.Format{SampleRate: s.sampleRate, NumChannels: s.channels},
	}
	n, err := dec.PCMBuffer(buf)
	if err != nil {
		return nil, apperrors.Wrap(err).
			Component("audioreader").Category(apperrors.CategoryIO).Build()
	}
	if n <= skip {
		return nil, nil
	}

	out := make([]float32, n-skip)
	for i, v := range buf.Data[skip:n] {
		out[i] = float32(v) / float32(cacheScale)
	}
	return out, nil
}

func (s *tempFileSink) Close() error {
	err := s.enc.Close()
	cerr := s.file.Close()
	os.Remove(s.path)
	if err != nil {
		return err
	}
	return cerr
}

func scaleToInt(v float32) int {
	f := float64(v) * cacheScale
	if f > cacheScale {
		f = cacheScale
	}
	if f < -cacheScale-1 {
		f = -cacheScale - 1
	}
	return int(math.Round(f))
}

func isDiskFull(err error) bool {
	return errors.Is(err, syscall.ENOSPC)
}
