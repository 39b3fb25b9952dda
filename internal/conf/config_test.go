package conf

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPopulatesEmbeddedDefaults(t *testing.T) {
	s, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 48000, s.Audio.TargetSampleRate)
	assert.Equal(t, "memory", s.Audio.CacheMode)
	assert.Equal(t, "fastest", s.Audio.ResamplerQuality)
	assert.Equal(t, 16384, s.Audio.AccumulateFrames)
	assert.Equal(t, 500, s.Plugin.PollIntervalMs)
	assert.Equal(t, 48, s.CachedFile.StaleAfterHours)
	assert.Equal(t, "info", s.Log.Level)
}

func TestLoadMergesOverridesOverDefaults(t *testing.T) {
	v := viper.New()
	v.Set("audio.cachemode", "tempfile")
	v.Set("plugin.pollintervalms", 250)

	s, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "tempfile", s.Audio.CacheMode, "an explicitly set value overrides the embedded default")
	assert.Equal(t, 250, s.Plugin.PollIntervalMs)
	assert.Equal(t, 48000, s.Audio.TargetSampleRate, "unset fields still fall back to the embedded default")
}

func TestPollIntervalDefaultsWhenUnset(t *testing.T) {
	s := &Settings{}
	assert.Equal(t, 500*time.Millisecond, s.PollInterval())

	s.Plugin.PollIntervalMs = 50
	assert.Equal(t, 50*time.Millisecond, s.PollInterval())
}

func TestStaleAfterDefaultsWhenUnset(t *testing.T) {
	s := &Settings{}
	assert.Equal(t, 48*time.Hour, s.StaleAfter())

	s.CachedFile.StaleAfterHours = 6
	assert.Equal(t, 6*time.Hour, s.StaleAfter())
}

func TestDefaultIsMemoisedAndUsable(t *testing.T) {
	s1 := Default()
	s2 := Default()
	assert.Same(t, s1, s2)
	assert.Equal(t, 48000, s1.Audio.TargetSampleRate)
}
