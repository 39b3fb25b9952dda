// Package metrics is a thin Prometheus registry wrapper for the Coded
// Audio Reader and Feature-Extraction Transformer, grounded on the
// teacher's internal/observability/metrics naming convention (one
// struct of collectors per subsystem, registered against a shared
// *prometheus.Registry).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReaderMetrics instruments the Coded Audio Reader pipeline.
type ReaderMetrics struct {
	cacheMode       *prometheus.GaugeVec
	bytesDecoded    *prometheus.CounterVec
	resampleRatio   *prometheus.GaugeVec
	diskFullEvents  *prometheus.CounterVec
	decodeErrors    *prometheus.CounterVec
	cacheDowngrades prometheus.Counter
}

// NewReaderMetrics registers reader collectors against reg. reg may be
// nil, in which case metrics are collected in-process but never
// exported (useful for tests).
func NewReaderMetrics(reg *prometheus.Registry) *ReaderMetrics {
	m := &ReaderMetrics{
		cacheMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sonicvg",
			Subsystem: "audioreader",
			Name:      "cache_mode",
			Help:      "1 if the reader instance is using the named cache mode, 0 otherwise.",
		}, []string{"instance", "mode"}),
		bytesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sonicvg",
			Subsystem: "audioreader",
			Name:      "bytes_decoded_total",
			Help:      "Total bytes of decoded PCM pushed into the cache pipeline.",
		}, []string{"instance"}),
		resampleRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sonicvg",
			Subsystem: "audioreader",
			Name:      "resample_ratio",
			Help:      "target_rate / source_rate for the active decode.",
		}, []string{"instance"}),
		diskFullEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sonicvg",
			Subsystem: "audioreader",
			Name:      "disk_full_events_total",
			Help:      "Number of decode failures caused by a full temp directory.",
		}, []string{"temp_dir"}),
		decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sonicvg",
			Subsystem: "audioreader",
			Name:      "decode_errors_total",
			Help:      "Transient decoder errors, logged and continued past.",
		}, []string{"codec"}),
		cacheDowngrades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sonicvg",
			Subsystem: "audioreader",
			Name:      "cache_downgrades_total",
			Help:      "Number of times a reader fell back from tempfile to memory caching.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.cacheMode, m.bytesDecoded, m.resampleRatio, m.diskFullEvents, m.decodeErrors, m.cacheDowngrades)
	}
	return m
}

func (m *ReaderMetrics) RecordCacheMode(instance, mode string) {
	if m == nil {
		return
	}
	m.cacheMode.WithLabelValues(instance, mode).Set(1)
}

func (m *ReaderMetrics) AddBytesDecoded(instance string, n int) {
	if m == nil {
		return
	}
	m.bytesDecoded.WithLabelValues(instance).Add(float64(n))
}

func (m *ReaderMetrics) SetResampleRatio(instance string, ratio float64) {
	if m == nil {
		return
	}
	m.resampleRatio.WithLabelValues(instance).Set(ratio)
}

func (m *ReaderMetrics) RecordDiskFull(tempDir string) {
	if m == nil {
		return
	}
	m.diskFullEvents.WithLabelValues(tempDir).Inc()
}

func (m *ReaderMetrics) RecordDecodeError(codec string) {
	if m == nil {
		return
	}
	m.decodeErrors.WithLabelValues(codec).Inc()
}

func (m *ReaderMetrics) RecordCacheDowngrade() {
	if m == nil {
		return
	}
	m.cacheDowngrades.Inc()
}

// TransformerMetrics instruments the Feature-Extraction Transformer.
type TransformerMetrics struct {
	blocksProcessed *prometheus.CounterVec
	completion      *prometheus.GaugeVec
	abandoned       *prometheus.CounterVec
	featuresDropped *prometheus.CounterVec
}

// NewTransformerMetrics registers transformer collectors against reg.
func NewTransformerMetrics(reg *prometheus.Registry) *TransformerMetrics {
	m := &TransformerMetrics{
		blocksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sonicvg",
			Subsystem: "transform",
			Name:      "blocks_processed_total",
			Help:      "Number of plugin process() invocations.",
		}, []string{"plugin"}),
		completion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sonicvg",
			Subsystem: "transform",
			Name:      "completion_percent",
			Help:      "Current completion percentage of a running transform.",
		}, []string{"plugin", "output"}),
		abandoned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sonicvg",
			Subsystem: "transform",
			Name:      "abandoned_total",
			Help:      "Number of runs that observed the abandon flag before completion.",
		}, []string{"plugin"}),
		featuresDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sonicvg",
			Subsystem: "transform",
			Name:      "features_dropped_total",
			Help:      "Features dropped for missing a mandatory timestamp.",
		}, []string{"plugin", "output"}),
	}
	if reg != nil {
		reg.MustRegister(m.blocksProcessed, m.completion, m.abandoned, m.featuresDropped)
	}
	return m
}

func (m *TransformerMetrics) RecordBlock(plugin string) {
	if m == nil {
		return
	}
	m.blocksProcessed.WithLabelValues(plugin).Inc()
}

func (m *TransformerMetrics) SetCompletion(plugin, output string, pct int) {
	if m == nil {
		return
	}
	m.completion.WithLabelValues(plugin, output).Set(float64(pct))
}

func (m *TransformerMetrics) RecordAbandoned(plugin string) {
	if m == nil {
		return
	}
	m.abandoned.WithLabelValues(plugin).Inc()
}

func (m *TransformerMetrics) RecordFeatureDropped(plugin, output string) {
	if m == nil {
		return
	}
	m.featuresDropped.WithLabelValues(plugin, output).Inc()
}
