package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamma-omg/localrag/docstore"
	"github.com/gamma-omg/localrag/readers"
)

type memStore struct {
	rows     []docstore.IndexRow
	builds   int
	adds     int
	removes  int
	persists int
}

func (s *memStore) Build(ctx context.Context, rows []docstore.IndexRow) error {
	s.builds++
	s.rows = append([]docstore.IndexRow(nil), rows...)
	return nil
}

func (s *memStore) Add(ctx context.Context, rows []docstore.IndexRow) error {
	s.adds++
	s.rows = append(s.rows, rows...)
	return nil
}

func (s *memStore) Remove(ctx context.Context, path string) error {
	s.removes++
	kept := s.rows[:0]
	for _, r := range s.rows {
		if r.Path != path {
			kept = append(kept, r)
		}
	}
	s.rows = kept
	return nil
}

func (s *memStore) Search(ctx context.Context, query string, k int) ([]docstore.SearchResult, error) {
	return nil, nil
}

func (s *memStore) Paths(ctx context.Context) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	for _, r := range s.rows {
		set[r.Path] = struct{}{}
	}
	return set, nil
}

func (s *memStore) Persist() error {
	s.persists++
	return nil
}

type echoSummarizer struct{}

func (echoSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if len(text) > 40 {
		return text[:40], nil
	}
	return text, nil
}

type fixedCaptioner struct {
	caption string
	err     error
}

func (c *fixedCaptioner) Caption(ctx context.Context, paths []string) ([]string, error) {
	if c.err != nil {
		return nil, c.err
	}
	caps := make([]string, len(paths))
	for i := range caps {
		caps[i] = c.caption
	}
	return caps, nil
}

type indexerFixture struct {
	dir     string
	rows    *docstore.RowStore
	store   *memStore
	indexer *Indexer
}

func newIndexerFixture(t *testing.T, captioner *fixedCaptioner) *indexerFixture {
	t.Helper()

	dir := t.TempDir()
	rows := docstore.NewRowStore(filepath.Join(t.TempDir(), "rows.json"))
	store := &memStore{}

	ix := NewIndexer(slog.New(slog.NewTextHandler(io.Discard, nil)), IndexerConfig{
		Root:       dir,
		Rows:       rows,
		Store:      store,
		Extractor:  readers.NewExtractor(),
		Chunkifier: &WordChunkifier{chunkWords: 512, chunkOverlap: 64},
		Tagger:     &Tagger{max: 5},
		Summarizer: echoSummarizer{},
		Captioner:  captioner,
	})

	return &indexerFixture{dir: dir, rows: rows, store: store, indexer: ix}
}

func (f *indexerFixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func manyWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = "word"
	}
	return strings.Join(words, " ")
}

func Test_BuildIndex_SmallFile(t *testing.T) {
	f := newIndexerFixture(t, nil)
	path := f.write(t, "note.txt", "three word note")

	require.NoError(t, f.indexer.BuildIndex(context.Background()))

	require.Equal(t, 1, f.rows.Len())
	row := f.rows.Rows()[0]
	assert.Equal(t, path, row.Path)
	assert.Equal(t, "txt", row.Type)
	assert.Equal(t, 0, row.ChunkID)
	assert.Equal(t, "three word note", row.Content)
	assert.Equal(t, []string{"three", "word", "note"}, row.Tags)
	assert.NotZero(t, row.Size)
	assert.NotZero(t, row.Mtime)
	assert.Equal(t, f.rows.Rows(), f.store.rows)
}

func Test_BuildIndex_EmptyFolder(t *testing.T) {
	f := newIndexerFixture(t, nil)
	assert.Error(t, f.indexer.BuildIndex(context.Background()))
}

func Test_BuildIndex_MissingFolder(t *testing.T) {
	f := newIndexerFixture(t, nil)
	f.indexer.root = filepath.Join(f.dir, "does-not-exist")
	assert.Error(t, f.indexer.BuildIndex(context.Background()))
}

func Test_BuildIndex_CaptionsImages(t *testing.T) {
	f := newIndexerFixture(t, &fixedCaptioner{caption: "a red bicycle against a wall"})
	f.write(t, "bike.png", "not really a png")

	require.NoError(t, f.indexer.BuildIndex(context.Background()))

	require.Equal(t, 1, f.rows.Len())
	row := f.rows.Rows()[0]
	assert.Equal(t, "png", row.Type)
	assert.Equal(t, "a red bicycle against a wall", row.Content)
	assert.Equal(t, row.Content, row.Summary)
	assert.Contains(t, row.Tags, "bicycle")
}

func Test_BuildIndex_CaptionFailureDegrades(t *testing.T) {
	f := newIndexerFixture(t, &fixedCaptioner{err: errors.New("vision model down")})
	f.write(t, "vacation photos.png", "bytes")

	require.NoError(t, f.indexer.BuildIndex(context.Background()))

	require.Equal(t, 1, f.rows.Len())
	row := f.rows.Rows()[0]
	assert.Empty(t, row.Content)
	assert.Equal(t, []string{"vacation", "photos"}, row.Tags)
}

func Test_SyncDelta_ModifiedFileRechunked(t *testing.T) {
	f := newIndexerFixture(t, nil)
	path := f.write(t, "doc.txt", "short original text")
	require.NoError(t, f.indexer.BuildIndex(context.Background()))
	require.Equal(t, 1, f.rows.Len())

	f.write(t, "doc.txt", manyWords(2000))
	require.NoError(t, f.indexer.SyncDelta(context.Background()))

	rows := f.rows.Rows()
	require.Equal(t, 5, len(rows)) // 2000 words at 512-word chunks, 64 overlap
	for i, r := range rows {
		assert.Equal(t, path, r.Path)
		assert.Equal(t, i, r.ChunkID)
	}
	assert.Equal(t, rows, f.store.rows)
}

func Test_SyncDelta_DeletedFileRemoved(t *testing.T) {
	f := newIndexerFixture(t, nil)
	path := f.write(t, "doc.txt", "some indexed text")
	f.write(t, "keep.txt", "this one stays")
	require.NoError(t, f.indexer.BuildIndex(context.Background()))
	require.Equal(t, 2, f.rows.Len())

	require.NoError(t, os.Remove(path))
	require.NoError(t, f.indexer.SyncDelta(context.Background()))

	require.Equal(t, 1, f.rows.Len())
	assert.NotContains(t, f.rows.PathSet(), path)
	paths, err := f.store.Paths(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, paths, path)
}

func Test_SyncDelta_AddedFileIndexed(t *testing.T) {
	f := newIndexerFixture(t, nil)
	f.write(t, "first.txt", "the first document")
	require.NoError(t, f.indexer.BuildIndex(context.Background()))

	path := f.write(t, "second.txt", "the second document")
	require.NoError(t, f.indexer.SyncDelta(context.Background()))

	assert.Contains(t, f.rows.PathSet(), path)
	assert.Equal(t, 2, f.rows.Len())
}

func Test_SyncDelta_FixedPoint(t *testing.T) {
	f := newIndexerFixture(t, nil)
	f.write(t, "doc.txt", "stable content")
	require.NoError(t, f.indexer.BuildIndex(context.Background()))
	require.NoError(t, f.indexer.SyncDelta(context.Background()))

	adds, removes := f.store.adds, f.store.removes
	require.NoError(t, f.indexer.SyncDelta(context.Background()))

	assert.Equal(t, adds, f.store.adds)
	assert.Equal(t, removes, f.store.removes)
}

func Test_ClassifyDelta(t *testing.T) {
	current := map[string]docstore.Fingerprint{
		"/d/new.txt":     {Size: 1, Mtime: 1},
		"/d/same.txt":    {Size: 2, Mtime: 2},
		"/d/changed.txt": {Size: 9, Mtime: 9},
	}
	indexed := map[string]docstore.Fingerprint{
		"/d/same.txt":    {Size: 2, Mtime: 2},
		"/d/changed.txt": {Size: 3, Mtime: 3},
		"/d/gone.txt":    {Size: 4, Mtime: 4},
	}

	d := classifyDelta(current, indexed)
	assert.Equal(t, []string{"/d/new.txt"}, d.add)
	assert.Equal(t, []string{"/d/gone.txt"}, d.remove)
	assert.Equal(t, []string{"/d/changed.txt"}, d.modify)
	assert.False(t, d.empty())
	assert.True(t, classifyDelta(nil, nil).empty())
}
