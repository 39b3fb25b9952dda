package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRMSLevelPluginDescriptorRoutesToSparseTimeValue(t *testing.T) {
	p := NewRMSLevelPlugin()
	outputs := p.Outputs()
	require.Len(t, outputs, 1)
	assert.Equal(t, 1, outputs[0].BinCount, "BinCount==1 is what routes this output to SparseTimeValue rather than SparseOneDimensional")
	assert.False(t, outputs[0].HasDuration)
}

func TestRMSLevelPluginProcessComputesRMS(t *testing.T) {
	p := NewRMSLevelPlugin()
	require.NoError(t, p.Initialise(1, 4, 4))

	sets, err := p.Process([][]float32{{1, -1, 1, -1}}, 0)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	require.Len(t, sets[0].Features, 1)
	assert.InDelta(t, 1.0, sets[0].Features[0].Values[0], 1e-9)

	remaining, err := p.RemainingFeatures()
	require.NoError(t, err)
	assert.Nil(t, remaining)
}

func TestRMSLevelPluginProcessWithNoBuffers(t *testing.T) {
	p := NewRMSLevelPlugin()
	sets, err := p.Process(nil, 0)
	require.NoError(t, err)
	assert.Nil(t, sets)
}
