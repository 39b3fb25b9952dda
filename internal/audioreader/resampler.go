package audioreader

import (
	"io"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/sonicvg/svcore/internal/apperrors"
)

// resamplerStage wraps github.com/tphakala/go-audio-resampling,
// configured at the "fastest tolerable" quality preset spec.md §4.C
// describes, grounded on the teacher's sibling pack usage in
// haivivi-giztoy's pkg/audio/resampler.Soxr: a resampling.Config built
// from input/output rate and channel count, resampling.New to
// construct the engine, and Process to push interleaved float samples
// through it.
type resamplerStage struct {
	engine   resampling.Resampler
	channels int
	ratio    float64
}

func newResamplerStage(sourceRate, targetRate, channels int, quality string) (*resamplerStage, error) {
	preset := resampling.QualityQuick
	if quality == "high" {
		preset = resampling.QualityHigh
	}

	cfg := &resampling.Config{
		InputRate:  float64(sourceRate),
		OutputRate: float64(targetRate),
		Channels:   channels,
		Quality:    resampling.QualitySpec{Preset: preset},
	}
	engine, err := resampling.New(cfg)
	if err != nil {
		return nil, apperrors.Wrap(err).
			Component("audioreader").Category(apperrors.CategoryAudio).
			Context("source_rate", sourceRate).Context("target_rate", targetRate).
			Build()
	}

	return &resamplerStage{
		engine:   engine,
		channels: channels,
		ratio:    float64(targetRate) / float64(sourceRate),
	}, nil
}

// Process resamples an interleaved float32 chunk and returns the
// resampled interleaved output.
func (s *resamplerStage) Process(interleaved []float32) ([]float32, error) {
	input := make([]float64, len(interleaved))
	for i, v := range interleaved {
		input[i] = float64(v)
	}

	output, err := s.engine.Process(input)
	if err != nil {
		return nil, apperrors.Wrap(err).
			Component("audioreader").Category(apperrors.CategoryAudio).Build()
	}

	out := make([]float32, len(output))
	for i, v := range output {
		out[i] = float32(v)
	}
	return out, nil
}

func (s *resamplerStage) Close() error {
	if c, ok := s.engine.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
