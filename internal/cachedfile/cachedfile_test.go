package cachedfile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDownloadsOnFirstCall(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "cache"), time.Hour)
	require.NoError(t, err)
	defer store.Close()

	path, err := store.Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.FileExists(t, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, 1, hits)
}

func TestResolveServesFromCacheWithinStaleWindow(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "cache"), time.Hour)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	_, err = store.Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "a second Resolve within the staleness window must not re-download")
}

func TestResolveKeepsExistingFileWhenRefreshFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("original"))
	}))

	dir := t.TempDir()
	// staleAfter of effectively zero forces every Resolve to attempt a
	// refresh, exercising the "keep the existing file on failure" path.
	store, err := Open(filepath.Join(dir, "cache"), time.Nanosecond)
	require.NoError(t, err)
	defer store.Close()

	path, err := store.Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	srv.Close() // subsequent refresh attempts now fail

	time.Sleep(2 * time.Millisecond)
	path2, err := store.Resolve(context.Background(), srv.URL)
	require.NoError(t, err, "a failed refresh of a file that already exists is not propagated as an error")
	assert.Equal(t, path, path2)

	data, err := os.ReadFile(path2)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data), "the stale-but-present file is left untouched by the failed refresh")
}

func TestResolvePropagatesErrorWhenNoFileExistsYet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "cache"), time.Hour)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Resolve(context.Background(), srv.URL)
	assert.Error(t, err, "a failed first download has no existing file to fall back to")
}

func TestCacheKeyIsStableAndURLSpecific(t *testing.T) {
	a := cacheKey("https://example.com/a.wav")
	b := cacheKey("https://example.com/b.wav")
	a2 := cacheKey("https://example.com/a.wav")
	assert.Equal(t, a, a2)
	assert.NotEqual(t, a, b)
}
