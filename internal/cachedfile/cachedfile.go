// Package cachedfile implements the URL → local path collaborator
// (spec.md §6 "Cached file"): a badger-backed retrieval-timestamp
// store that decides whether a previously-downloaded file is still
// fresh, and keeps the existing copy on a failed refresh rather than
// losing it. Grounded on haivivi-giztoy's pkg/kv Badger wrapper.
package cachedfile

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/sonicvg/svcore/internal/apperrors"
	"github.com/sonicvg/svcore/internal/logging"
)

// Store resolves remote URLs to locally-cached files, refreshing them
// at most once per staleness window.
type Store struct {
	db      *badger.DB
	dataDir string
	stale   time.Duration
	client  *http.Client
	log     interface {
		Warn(msg string, args ...any)
		Debug(msg string, args ...any)
	}
}

// Open creates or opens the badger metadata database rooted at dataDir.
// staleAfter is the freshness window spec.md §6 documents (2 days by
// default — see internal/conf.Settings.StaleAfter).
func Open(dataDir string, staleAfter time.Duration) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, apperrors.Wrap(err).
			Component("cachedfile").Category(apperrors.CategoryIO).Build()
	}

	opts := badger.DefaultOptions(filepath.Join(dataDir, "meta")).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, apperrors.Wrap(err).
			Component("cachedfile").Category(apperrors.CategoryIO).Build()
	}

	return &Store{
		db: db, dataDir: dataDir, stale: staleAfter,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    logging.ForService("cachedfile"),
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Resolve returns the local path for url, downloading or re-downloading
// it only if no cached copy exists yet or the cached copy is older than
// the staleness window. A failed refresh of an existing file returns
// that file's path unchanged and leaves its retrieval timestamp
// untouched, rather than propagating the network error to the caller
// (spec.md §6 "failure keeps the existing file").
func (s *Store) Resolve(ctx context.Context, url string) (string, error) {
	key := cacheKey(url)
	path := filepath.Join(s.dataDir, key)

	lastFetch, hadEntry, err := s.lastFetch(key)
	if err != nil {
		return "", err
	}

	_, statErr := os.Stat(path)
	haveFile := statErr == nil

	if haveFile && hadEntry && time.Since(lastFetch) < s.stale {
		return path, nil
	}

	if err := s.download(ctx, url, path); err != nil {
		if haveFile {
			s.log.Warn("refresh failed, keeping existing cached file", "url", url, "error", err)
			return path, nil
		}
		return "", err
	}

	if err := s.setLastFetch(key); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Store) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperrors.Wrap(err).Component("cachedfile").Category(apperrors.CategoryIO).Build()
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return apperrors.Wrap(err).Component("cachedfile").Category(apperrors.CategoryIO).
			Context("url", url).Build()
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperrors.Newf("cachedfile: GET %s returned status %d", url, resp.StatusCode).
			Component("cachedfile").Category(apperrors.CategoryIO).Build()
	}

	tmp := path + ".download"
	f, err := os.Create(tmp)
	if err != nil {
		return apperrors.Wrap(err).Component("cachedfile").Category(apperrors.CategoryIO).Build()
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return apperrors.Wrap(err).Component("cachedfile").Category(apperrors.CategoryIO).Build()
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return apperrors.Wrap(err).Component("cachedfile").Category(apperrors.CategoryIO).Build()
	}
	return os.Rename(tmp, path)
}

func (s *Store) lastFetch(key string) (time.Time, bool, error) {
	var t time.Time
	found := true
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return t.UnmarshalBinary(val)
		})
	})
	if err != nil {
		return time.Time{}, false, apperrors.Wrap(err).
			Component("cachedfile").Category(apperrors.CategoryIO).Build()
	}
	return t, found, nil
}

func (s *Store) setLastFetch(key string) error {
	data, err := time.Now().MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err).Component("cachedfile").Category(apperrors.CategoryIO).Build()
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return apperrors.Wrap(err).Component("cachedfile").Category(apperrors.CategoryIO).Build()
	}
	return nil
}

func cacheKey(url string) string {
	sum := sha1.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}
