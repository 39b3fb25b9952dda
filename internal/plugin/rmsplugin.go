package plugin

import "math"

// RMSLevelPlugin is a minimal built-in time-domain plugin computing the
// RMS level of each block on channel 0. It exists to give cmd/sonicvg's
// analyze command something to drive end-to-end: plugin discovery RPC
// itself is out of scope, so there is no external plugin host to load
// a real feature extractor from.
type RMSLevelPlugin struct {
	stepSize, blockSize int
}

func NewRMSLevelPlugin() *RMSLevelPlugin { return &RMSLevelPlugin{} }

func (p *RMSLevelPlugin) ID() string { return "sonicvg:rms-level" }

func (p *RMSLevelPlugin) InputDomain() Domain { return TimeDomain }

func (p *RMSLevelPlugin) Outputs() []OutputDescriptor {
	return []OutputDescriptor{
		{Index: 0, Name: "rms", BinCount: 1, HasDuration: false, Unit: "", SampleType: OneSamplePerStep},
	}
}

func (p *RMSLevelPlugin) MinChannels() int { return 1 }

func (p *RMSLevelPlugin) PreferredStepAndBlockSize() (int, int) { return 1024, 1024 }

func (p *RMSLevelPlugin) Initialise(channels, stepSize, blockSize int) error {
	p.stepSize, p.blockSize = stepSize, blockSize
	return nil
}

func (p *RMSLevelPlugin) Process(buffers [][]float32, timestampSeconds float64) ([]FeatureSet, error) {
	if len(buffers) == 0 {
		return nil, nil
	}
	var sum float64
	for _, v := range buffers[0] {
		sum += float64(v) * float64(v)
	}
	rms := math.Sqrt(sum / float64(len(buffers[0])))
	return []FeatureSet{{
		OutputIndex: 0,
		Features:    []Feature{{Values: []float64{rms}}},
	}}, nil
}

func (p *RMSLevelPlugin) RemainingFeatures() ([]FeatureSet, error) { return nil, nil }
