// Package conf holds sonicvg's process-wide settings, loaded from an
// embedded default config.yaml and overridable via viper.
package conf

import (
	"bytes"
	"embed"
	"sync"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var defaultConfig embed.FS

// AudioSettings controls the Coded Audio Reader pipeline.
type AudioSettings struct {
	TargetSampleRate int    // model-native sample rate all decoded audio is converted to
	CacheMode        string // "memory" or "tempfile"
	TempDir          string
	ResamplerQuality string // "fastest" or "high"
	AccumulateFrames int    // size of the interleaved write buffer, in frames
}

// PluginSettings controls feature-extraction plugin discovery and the
// Transformer's readiness-polling cadence.
type PluginSettings struct {
	SearchPaths    []string
	PollIntervalMs int

	// ResourceDir, LibraryDir and HelpersDir feed internal/helperlookup's
	// search order when resolving bundled plugin-host helper binaries.
	ResourceDir string
	LibraryDir  string
	HelpersDir  string
}

// CachedFileSettings controls the badger-backed Cached file collaborator.
type CachedFileSettings struct {
	DataDir         string
	StaleAfterHours int
}

// LogSettings controls file-based log output.
type LogSettings struct {
	Path  string
	Level string
}

// Settings is the root configuration object.
type Settings struct {
	Audio      AudioSettings
	Plugin     PluginSettings
	CachedFile CachedFileSettings
	Log        LogSettings
}

// PollInterval returns the plugin readiness-polling interval as a
// time.Duration, defaulting to 500ms per spec.md §4.E step 1.
func (s *Settings) PollInterval() time.Duration {
	if s.Plugin.PollIntervalMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(s.Plugin.PollIntervalMs) * time.Millisecond
}

// StaleAfter returns the Cached file staleness window, defaulting to the
// 2-day window documented in spec.md §6.
func (s *Settings) StaleAfter() time.Duration {
	if s.CachedFile.StaleAfterHours <= 0 {
		return 48 * time.Hour
	}
	return time.Duration(s.CachedFile.StaleAfterHours) * time.Hour
}

var (
	once     sync.Once
	settings *Settings
)

// Load reads the embedded default configuration merged with any values
// already present in v (typically populated from flags or an on-disk
// config file by the caller before calling Load).
func Load(v *viper.Viper) (*Settings, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetConfigType("yaml")

	data, err := defaultConfig.ReadFile("config.yaml")
	if err != nil {
		return nil, err
	}
	// The embedded config only supplies defaults, so values already in v
	// (a config file read by the caller, or explicit Set calls) win.
	defaults := viper.New()
	defaults.SetConfigType("yaml")
	if err := defaults.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	for _, key := range defaults.AllKeys() {
		v.SetDefault(key, defaults.Get(key))
	}

	s := &Settings{
		Audio: AudioSettings{
			TargetSampleRate: v.GetInt("audio.targetsamplerate"),
			CacheMode:        v.GetString("audio.cachemode"),
			TempDir:          v.GetString("audio.tempdir"),
			ResamplerQuality: v.GetString("audio.resamplerquality"),
			AccumulateFrames: v.GetInt("audio.accumulateframes"),
		},
		Plugin: PluginSettings{
			SearchPaths:    v.GetStringSlice("plugin.searchpaths"),
			PollIntervalMs: v.GetInt("plugin.pollintervalms"),
			ResourceDir:    v.GetString("plugin.resourcedir"),
			LibraryDir:     v.GetString("plugin.librarydir"),
			HelpersDir:     v.GetString("plugin.helpersdir"),
		},
		CachedFile: CachedFileSettings{
			DataDir:         v.GetString("cachedfile.datadir"),
			StaleAfterHours: v.GetInt("cachedfile.staleafterhours"),
		},
		Log: LogSettings{
			Path:  v.GetString("log.path"),
			Level: v.GetString("log.level"),
		},
	}
	return s, nil
}

// Default returns the process-wide Settings, loading them from the
// embedded default config on first use.
func Default() *Settings {
	once.Do(func() {
		s, err := Load(nil)
		if err != nil {
			// The embedded config is a build-time asset; failure here is
			// a packaging bug, not a runtime condition callers can recover
			// from sensibly.
			panic(err)
		}
		settings = s
	})
	return settings
}
