package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilReaderMetricsMethodsDoNotPanic(t *testing.T) {
	var m *ReaderMetrics
	assert.NotPanics(t, func() {
		m.RecordCacheMode("i", "memory")
		m.AddBytesDecoded("i", 10)
		m.SetResampleRatio("i", 1.0)
		m.RecordDiskFull("/tmp")
		m.RecordDecodeError("mp3")
		m.RecordCacheDowngrade()
	})
}

func TestNilTransformerMetricsMethodsDoNotPanic(t *testing.T) {
	var m *TransformerMetrics
	assert.NotPanics(t, func() {
		m.RecordBlock("plugin")
		m.SetCompletion("plugin", "out", 50)
		m.RecordAbandoned("plugin")
		m.RecordFeatureDropped("plugin", "out")
	})
}

func TestReaderMetricsRegistersAndRecordsValues(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReaderMetrics(reg)

	m.RecordCacheMode("instance-1", "tempfile")
	m.AddBytesDecoded("instance-1", 1024)
	m.SetResampleRatio("instance-1", 0.5)

	assert.Equal(t, float64(1024), testutil.ToFloat64(m.bytesDecoded.WithLabelValues("instance-1")))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.resampleRatio.WithLabelValues("instance-1")))
}

func TestTransformerMetricsTracksCompletion(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTransformerMetrics(reg)

	m.SetCompletion("rms", "0", 42)

	assert.Equal(t, float64(42), testutil.ToFloat64(m.completion.WithLabelValues("rms", "0")))
}
