package docstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedder maps texts to deterministic vectors derived from byte counts.
// Identical texts get identical vectors, so an exact-content query ranks its
// own row first.
type hashEmbedder struct {
	calls int
}

func (e *hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	vecs := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v := make([]float32, 16)
		for i := 0; i < len(t); i++ {
			v[int(t[i])%16]++
		}
		v[15]++ // never the zero vector
		vecs = append(vecs, v)
	}
	return vecs, nil
}

func testRows() []IndexRow {
	return []IndexRow{
		{Path: "a.txt", Type: "txt", ChunkID: 0, Content: "alpha alpha alpha"},
		{Path: "a.txt", Type: "txt", ChunkID: 1, Content: "beta beta beta"},
		{Path: "b.png", Type: "png", ChunkID: 0, Content: "a photo of a dog"},
	}
}

func Test_LocalStore_SearchRanksExactMatchFirst(t *testing.T) {
	s := NewLocalStore(t.TempDir(), &hashEmbedder{})
	require.NoError(t, s.Build(context.Background(), testRows()))

	res, err := s.Search(context.Background(), "a photo of a dog", 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "b.png", res[0].Row.Path)
	assert.InDelta(t, 1.0, res[0].Score, 1e-6)
	assert.GreaterOrEqual(t, res[0].Score, res[1].Score)
}

func Test_LocalStore_RemoveKeepsRowsAndVectorsAligned(t *testing.T) {
	s := NewLocalStore(t.TempDir(), &hashEmbedder{})
	require.NoError(t, s.Build(context.Background(), testRows()))

	require.NoError(t, s.Remove(context.Background(), "a.txt"))

	paths, err := s.Paths(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"b.png": {}}, paths)
	assert.Equal(t, 1, s.Len())

	res, err := s.Search(context.Background(), "a photo of a dog", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "b.png", res[0].Row.Path)
}

func Test_LocalStore_AddIsIncremental(t *testing.T) {
	emb := &hashEmbedder{}
	s := NewLocalStore(t.TempDir(), emb)
	require.NoError(t, s.Build(context.Background(), testRows()))

	embedsAfterBuild := emb.calls
	require.NoError(t, s.Add(context.Background(), []IndexRow{
		{Path: "c.txt", Type: "txt", ChunkID: 0, Content: "gamma"},
	}))

	// One extra embedder call for the new rows, not a rebuild.
	assert.Equal(t, embedsAfterBuild+1, emb.calls)
	assert.Equal(t, 4, s.Len())
}

func Test_LocalStore_PersistOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s := NewLocalStore(dir, &hashEmbedder{})
	require.NoError(t, s.Build(context.Background(), testRows()))
	require.NoError(t, s.Persist())

	emb := &hashEmbedder{}
	loaded, err := OpenLocalStore(context.Background(), dir, emb, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Len())
	// Loading must not trigger re-embedding.
	assert.Equal(t, 0, emb.calls)
}

func Test_OpenLocalStore_CorruptFileRebuildsFromRows(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, localStoreFile), []byte("{not json"), 0o644))

	s, err := OpenLocalStore(context.Background(), dir, &hashEmbedder{}, testRows())
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
}

func Test_OpenLocalStore_MissingDirStartsEmpty(t *testing.T) {
	s, err := OpenLocalStore(context.Background(), filepath.Join(t.TempDir(), "absent"), &hashEmbedder{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

// quietEmbedder is a stateless hashEmbedder for concurrent callers.
type quietEmbedder struct{}

func (quietEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v := make([]float32, 16)
		for i := 0; i < len(t); i++ {
			v[int(t[i])%16]++
		}
		v[15]++
		vecs = append(vecs, v)
	}
	return vecs, nil
}

// The watcher mutates the store while the MCP and HTTP surfaces query it, so
// mutations and searches must be safe to interleave. Run with -race.
func Test_LocalStore_ConcurrentMutateAndSearch(t *testing.T) {
	s := NewLocalStore(t.TempDir(), quietEmbedder{})
	require.NoError(t, s.Build(context.Background(), testRows()))

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if err := s.Add(ctx, []IndexRow{{Path: "c.txt", ChunkID: 0, Content: "gamma delta"}}); err != nil {
				t.Error(err)
				return
			}
			if err := s.Remove(ctx, "c.txt"); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if _, err := s.Search(ctx, "alpha alpha alpha", 5); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	wg.Wait()

	paths, err := s.Paths(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a.txt": {}, "b.png": {}}, paths)
	assert.Equal(t, 3, s.Len())
}
