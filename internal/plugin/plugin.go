// Package plugin defines the external feature-extraction plugin
// boundary spec.md §6 describes: the Transformer calls only
// Initialise, Process, RemainingFeatures and the descriptor queries
// below. Grounded in the teacher's internal/birdnet.BirdNET.Predict /
// TFLite-interpreter calling convention — a lock around a stateful
// invoke, a fixed-size input tensor, a synchronous output — generalised
// here to the richer descriptor surface spec.md §4.E's "Output-model
// selection" table needs.
package plugin

// Domain distinguishes time-domain plugins (fed raw PCM blocks) from
// frequency-domain plugins (fed an FFT of each block).
type Domain int

const (
	TimeDomain Domain = iota
	FrequencyDomain
)

// SampleType tags how a plugin output's features are spaced in time,
// driving both the Transformer's resolution mapping and its
// feature-to-frame mapping (spec.md §4.E).
type SampleType int

const (
	OneSamplePerStep SampleType = iota
	FixedSampleRate
	VariableSampleRate
)

// OutputDescriptor describes one plugin output, queried by the
// Transformer to pick a concrete annotation model (spec.md §4.E
// "Output-model selection").
type OutputDescriptor struct {
	Index       int
	Name        string
	BinCount    int // 0 = no bins (point/interval only)
	HasDuration bool
	Unit        string // e.g. "Hz", "MIDI pitch", ""
	SampleType  SampleType
	SampleRate  float64 // the plugin's own output rate; meaning depends on SampleType
}

// Feature is one emission from a plugin: an optional timestamp, an
// optional duration (both in seconds), a values vector, and a label.
type Feature struct {
	HasTimestamp bool
	Timestamp    float64 // seconds

	HasDuration bool
	Duration    float64 // seconds

	Values []float64
	Label  string
}

// FeatureSet is the set of features a single Process (or
// RemainingFeatures) call emitted for one output.
type FeatureSet struct {
	OutputIndex int
	Features    []Feature
}

// Plugin is the feature-extraction plugin contract. Implementations
// must be safe for the single Transformer goroutine that owns them;
// the boundary makes no concurrency guarantee beyond that.
type Plugin interface {
	// ID identifies the plugin for logging, metrics and Transform
	// agreement validation.
	ID() string

	// InputDomain reports whether Process expects raw PCM blocks or
	// FFT-packed blocks.
	InputDomain() Domain

	// Outputs describes every output the plugin can produce.
	Outputs() []OutputDescriptor

	// MinChannels is the minimum channel count the plugin requires.
	MinChannels() int

	// PreferredStepAndBlockSize is consulted when Initialise rejects
	// the Transformer's requested step/block size, per spec.md §4.E
	// "reconciles step/block size by asking the plugin for
	// preferences if the request is rejected".
	PreferredStepAndBlockSize() (step, block int)

	// Initialise prepares the plugin to process the given channel
	// count at the given step and block size. Returning an error
	// rejects the configuration.
	Initialise(channels, stepSize, blockSize int) error

	// Process feeds one block: one buffer per channel, each of length
	// blockSize (time domain) or the packed (real,imag) FFT layout
	// spec.md §6 describes (frequency domain). timestampSeconds is the
	// block's start time on the input's timeline.
	Process(buffers [][]float32, timestampSeconds float64) ([]FeatureSet, error)

	// RemainingFeatures flushes any features the plugin buffered
	// internally and had not yet emitted from Process.
	RemainingFeatures() ([]FeatureSet, error)
}
