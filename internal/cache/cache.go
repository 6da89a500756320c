// Package cache persists pull request snapshots between runs so that
// unchanged PRs are not re-fetched from the API.
package cache

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/triage-tools/github-triage/internal/domain"
)

// Entry pairs a snapshot with the updated timestamp it was fetched at.
// A snapshot is reusable only while the live timestamp still equals
// LastUpdated.
type Entry struct {
	LastUpdated time.Time           `json:"last_updated"`
	PullRequest *domain.PullRequest `json:"pull_request"`
}

// Store is a file-backed snapshot cache. It is safe for concurrent use.
// Load failures are not fatal: a missing or unreadable file just means
// starting from an empty cache.
type Store struct {
	path   string
	logger *log.Logger

	mu      sync.Mutex
	entries map[string]Entry
	dirty   bool
}

// NewStore returns a Store backed by the file at path. A path ending in
// ".gz" is read and written gzip-compressed. Call Load before first use.
func NewStore(path string, logger *log.Logger) *Store {
	return &Store{
		path:    path,
		logger:  logger,
		entries: make(map[string]Entry),
	}
}

func key(project string, number int) string {
	return fmt.Sprintf("%s#%d", project, number)
}

// Load reads the cache file. A missing file or undecodable content is
// logged and treated as an empty cache, never as an error.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Printf("cache: ignoring unreadable file %s: %v", s.path, err)
		}
		return nil
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(s.path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			s.logger.Printf("cache: ignoring corrupt file %s: %v", s.path, err)
			return nil
		}
		defer gz.Close()
		r = gz
	}

	entries := make(map[string]Entry)
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		s.logger.Printf("cache: ignoring corrupt file %s: %v", s.path, err)
		return nil
	}

	s.entries = entries
	s.dirty = false
	s.logger.Printf("cache: loaded %d entries from %s", len(entries), s.path)
	return nil
}

// Fresh returns the cached snapshot for project#number if one exists and
// its stored timestamp equals updatedAt. An entry without a snapshot (a
// hand-edited or partially written file can hold a JSON null) is a miss,
// so the pull request gets refetched and the entry overwritten.
func (s *Store) Fresh(project string, number int, updatedAt time.Time) (*domain.PullRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key(project, number)]
	if !ok || e.PullRequest == nil || !e.LastUpdated.Equal(updatedAt) {
		return nil, false
	}
	return e.PullRequest, true
}

// Put records a freshly fetched snapshot under its updated timestamp.
func (s *Store) Put(project string, number int, updatedAt time.Time, pr *domain.PullRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key(project, number)] = Entry{LastUpdated: updatedAt, PullRequest: pr}
	s.dirty = true
}

// EvictClosedBefore drops closed PRs whose updated timestamp is older than
// cutoff and reports how many were removed. Open PRs are never evicted.
func (s *Store) EvictClosedBefore(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.entries {
		if e.PullRequest != nil && e.PullRequest.Closed && e.LastUpdated.Before(cutoff) {
			delete(s.entries, k)
			removed++
		}
	}
	if removed > 0 {
		s.dirty = true
	}
	return removed
}

// Len reports the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Save writes the cache back to disk if anything changed since Load. The
// file is replaced atomically so a crash mid-write cannot corrupt it.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if err := writeAll(tmp, s.path, data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	s.dirty = false
	s.logger.Printf("cache: saved %d entries to %s", len(s.entries), s.path)
	return nil
}

func writeAll(w io.Writer, path string, data []byte) error {
	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(w)
		if _, err := gz.Write(data); err != nil {
			return err
		}
		return gz.Close()
	}
	_, err := w.Write(data)
	return err
}
