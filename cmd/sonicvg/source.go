package sonicvg

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/sonicvg/svcore/internal/cachedfile"
	"github.com/sonicvg/svcore/internal/conf"
)

// resolveSource turns a command-line input argument into a local file
// path the Coded Audio Reader can open. Plain paths pass through
// unchanged; http(s) URLs are resolved through the Cached file
// collaborator so repeated analyze/inspect runs against the same
// remote reference recording reuse the on-disk copy instead of
// re-downloading it every time.
func resolveSource(settings *conf.Settings, input string) (string, error) {
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return input, nil
	}

	dataDir := settings.CachedFile.DataDir
	if dataDir == "" {
		tempDir := settings.Audio.TempDir
		if tempDir == "" {
			tempDir = os.TempDir()
		}
		dataDir = filepath.Join(tempDir, "sonicvg-cache")
	}

	store, err := cachedfile.Open(dataDir, settings.StaleAfter())
	if err != nil {
		return "", err
	}
	defer store.Close()
	return store.Resolve(context.Background(), input)
}
