package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Embedder turns texts into vectors. Implementations must be deterministic for
// identical input and return one vector per text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

const localStoreFile = "store.json"

// LocalStore is a file-backed similarity index: rows and their embedding
// vectors kept side by side, searched by brute-force cosine similarity.
// Unlike server-backed stores it supports targeted removal, so deleting a path
// never requires re-embedding the remainder of the corpus.
//
// Safe for concurrent use: the watcher mutates the index while the MCP and
// HTTP surfaces query it.
type LocalStore struct {
	dir      string
	embedder Embedder

	mu      sync.RWMutex
	rows    []IndexRow
	vectors [][]float32
}

type localSnapshot struct {
	Rows    []IndexRow  `json:"rows"`
	Vectors [][]float32 `json:"vectors"`
}

// NewLocalStore creates an empty store persisted under dir.
func NewLocalStore(dir string, embedder Embedder) *LocalStore {
	return &LocalStore{dir: dir, embedder: embedder}
}

// OpenLocalStore loads the persisted index from dir. When loading fails for
// any reason the store is rebuilt in memory from rows instead; whatever was
// on disk is discarded, and the next Persist overwrites it.
func OpenLocalStore(ctx context.Context, dir string, embedder Embedder, rows []IndexRow) (*LocalStore, error) {
	s := NewLocalStore(dir, embedder)
	if err := s.load(); err == nil {
		return s, nil
	}

	if err := s.Build(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to rebuild vector store from rows: %w", err)
	}

	return s, nil
}

func (s *LocalStore) load() error {
	buf, err := os.ReadFile(filepath.Join(s.dir, localStoreFile))
	if err != nil {
		return err
	}

	var snap localSnapshot
	if err := json.Unmarshal(buf, &snap); err != nil {
		return err
	}
	if len(snap.Rows) != len(snap.Vectors) {
		return fmt.Errorf("vector store corrupt: %d rows vs %d vectors", len(snap.Rows), len(snap.Vectors))
	}

	s.mu.Lock()
	s.rows = snap.Rows
	s.vectors = snap.Vectors
	s.mu.Unlock()
	return nil
}

// embed turns the rows' content into vectors. Runs outside the lock: model
// calls are slow and must not block concurrent searches.
func (s *LocalStore) embed(ctx context.Context, rows []IndexRow) ([][]float32, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	texts := make([]string, 0, len(rows))
	for _, r := range rows {
		texts = append(texts, r.Content)
	}

	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d rows: %w", len(rows), err)
	}
	if len(vecs) != len(rows) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d rows", len(vecs), len(rows))
	}

	return vecs, nil
}

// Build replaces the whole index with rows, re-embedding everything.
func (s *LocalStore) Build(ctx context.Context, rows []IndexRow) error {
	vecs, err := s.embed(ctx, rows)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append([]IndexRow(nil), rows...)
	s.vectors = vecs
	return nil
}

// Add embeds the rows' content and appends them to the index.
func (s *LocalStore) Add(ctx context.Context, rows []IndexRow) error {
	if len(rows) == 0 {
		return nil
	}

	vecs, err := s.embed(ctx, rows)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	s.vectors = append(s.vectors, vecs...)
	return nil
}

// Remove drops every entry whose path matches. No re-embedding happens.
func (s *LocalStore) Remove(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.rows[:0]
	vecs := s.vectors[:0]
	for i, r := range s.rows {
		if r.Path == path {
			continue
		}
		rows = append(rows, r)
		vecs = append(vecs, s.vectors[i])
	}

	s.rows = rows
	s.vectors = vecs
	return nil
}

// Search embeds the query and returns the k most similar entries.
func (s *LocalStore) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}

	qvecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(qvecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(qvecs))
	}
	qv := qvecs[0]

	s.mu.RLock()
	results := make([]SearchResult, 0, len(s.rows))
	for i, r := range s.rows {
		results = append(results, SearchResult{
			Row:   r,
			Score: cosine(qv, s.vectors[i]),
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Paths reports the set of source paths currently indexed.
func (s *LocalStore) Paths(_ context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[string]struct{})
	for _, r := range s.rows {
		set[r.Path] = struct{}{}
	}
	return set, nil
}

// Len returns the number of indexed entries.
func (s *LocalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Persist writes the index to its directory.
func (s *LocalStore) Persist() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create vector store directory: %w", err)
	}

	s.mu.RLock()
	snap := localSnapshot{Rows: s.rows, Vectors: s.vectors}
	s.mu.RUnlock()
	if snap.Rows == nil {
		snap.Rows = []IndexRow{}
		snap.Vectors = [][]float32{}
	}

	buf, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode vector store: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.dir, localStoreFile), buf, 0o644); err != nil {
		return fmt.Errorf("failed to write vector store: %w", err)
	}

	return nil
}

func cosine(a, b []float32) float32 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}

	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
