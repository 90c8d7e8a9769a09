package docstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RowStore holds the flat row set for one index and persists it as a
// pretty-printed JSON array. Row order follows indexing order; uniqueness per
// path is the indexer's responsibility, not a structural constraint.
//
// Safe for concurrent use: the HTTP surface reads rows while an upload-driven
// sync rewrites them.
type RowStore struct {
	path string

	mu   sync.RWMutex
	rows []IndexRow
}

// NewRowStore creates an empty row store backed by the given file.
func NewRowStore(path string) *RowStore {
	return &RowStore{path: path}
}

// LoadRowStore reads an existing row file.
func LoadRowStore(path string) (*RowStore, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read row file: %w", err)
	}

	var rows []IndexRow
	if err := json.Unmarshal(buf, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse row file %s: %w", path, err)
	}

	return &RowStore{path: path, rows: rows}, nil
}

// Rows returns a copy of the current row set in order.
func (s *RowStore) Rows() []IndexRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]IndexRow(nil), s.rows...)
}

// Len returns the number of rows.
func (s *RowStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// SetAll replaces the whole row set.
func (s *RowStore) SetAll(rows []IndexRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
}

// RemovePath drops every row belonging to path.
func (s *RowStore) RemovePath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removePath(path)
}

func (s *RowStore) removePath(path string) {
	kept := s.rows[:0]
	for _, r := range s.rows {
		if r.Path != path {
			kept = append(kept, r)
		}
	}
	s.rows = kept
}

// ReplacePath swaps any existing generation of rows for path with a fresh one.
func (s *RowStore) ReplacePath(path string, rows []IndexRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removePath(path)
	s.rows = append(s.rows, rows...)
}

// Fingerprints maps each indexed path to the fingerprint captured at indexing
// time. Only chunk 0 carries the authoritative fingerprint for its path.
func (s *RowStore) Fingerprints() map[string]Fingerprint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fps := make(map[string]Fingerprint)
	for _, r := range s.rows {
		if r.ChunkID == 0 {
			fps[r.Path] = r.Fingerprint()
		}
	}
	return fps
}

// PathSet reports the set of paths present in the row set.
func (s *RowStore) PathSet() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[string]struct{})
	for _, r := range s.rows {
		set[r.Path] = struct{}{}
	}
	return set
}

// Save writes the row set to disk, creating the parent directory if needed.
func (s *RowStore) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create row store directory: %w", err)
	}

	s.mu.RLock()
	rows := append([]IndexRow(nil), s.rows...)
	s.mu.RUnlock()
	if rows == nil {
		rows = []IndexRow{} // an empty index is still a JSON array
	}

	buf, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}

	if err := os.WriteFile(s.path, buf, 0o644); err != nil {
		return fmt.Errorf("failed to write row file: %w", err)
	}

	return nil
}
