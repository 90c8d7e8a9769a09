package docstore

import (
	"context"
	"fmt"
	"strings"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
)

// Metadata attribute names used for index rows in the Chroma collection.
const (
	MetaPath    = "path"
	MetaType    = "type"
	MetaChunkID = "chunk_id"
	MetaSummary = "summary"
	MetaTags    = "tags"
	MetaSize    = "size"
	MetaMtime   = "mtime"
)

// ChromaStore keeps index rows in a Chroma collection. Embedding happens
// server-side through the configured embedding function, and persistence is
// owned by the server, so Persist is a no-op.
type ChromaStore struct {
	client      chroma.Client
	col         chroma.Collection
	name        string
	ef          embeddings.EmbeddingFunction
	requestSize int
}

type ChromaStoreConfig struct {
	BaseURL       string
	Collection    string
	EmbeddingFunc embeddings.EmbeddingFunction
	RequestSize   int
	Reset         bool
}

// NewChromaStore connects to a Chroma server and opens (or creates) the
// collection for one index.
func NewChromaStore(ctx context.Context, cfg ChromaStoreConfig) (*ChromaStore, error) {
	client, err := chroma.NewHTTPClient(chroma.WithBaseURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	if cfg.Reset {
		// Ignored when the collection does not exist yet.
		_ = client.DeleteCollection(ctx, cfg.Collection)
	}

	col, err := client.GetOrCreateCollection(ctx, cfg.Collection,
		chroma.WithEmbeddingFunctionCreate(cfg.EmbeddingFunc))
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", cfg.Collection, err)
	}

	requestSize := cfg.RequestSize
	if requestSize <= 0 {
		requestSize = 64
	}

	return &ChromaStore{
		client:      client,
		col:         col,
		name:        cfg.Collection,
		ef:          cfg.EmbeddingFunc,
		requestSize: requestSize,
	}, nil
}

// Build drops the collection and re-adds all rows.
func (ds *ChromaStore) Build(ctx context.Context, rows []IndexRow) error {
	if err := ds.client.DeleteCollection(ctx, ds.name); err != nil {
		return fmt.Errorf("failed to reset collection %s: %w", ds.name, err)
	}

	col, err := ds.client.GetOrCreateCollection(ctx, ds.name,
		chroma.WithEmbeddingFunctionCreate(ds.ef))
	if err != nil {
		return fmt.Errorf("failed to recreate collection %s: %w", ds.name, err)
	}
	ds.col = col

	return ds.Add(ctx, rows)
}

// Add inserts rows in request-sized buckets.
func (ds *ChromaStore) Add(ctx context.Context, rows []IndexRow) error {
	for start := 0; start < len(rows); start += ds.requestSize {
		end := min(start+ds.requestSize, len(rows))
		bucket := rows[start:end]

		texts := make([]string, 0, len(bucket))
		metadatas := make([]chroma.DocumentMetadata, 0, len(bucket))
		for _, r := range bucket {
			texts = append(texts, r.Content)
			metadatas = append(metadatas, rowMetadata(r))
		}

		err := ds.col.Add(ctx,
			chroma.WithTexts(texts...),
			chroma.WithIDGenerator(chroma.NewULIDGenerator()),
			chroma.WithMetadatas(metadatas...),
		)
		if err != nil {
			return fmt.Errorf("failed to add rows to collection: %w", err)
		}
	}

	return nil
}

// Remove deletes every entry for path via a metadata filter.
func (ds *ChromaStore) Remove(ctx context.Context, path string) error {
	err := ds.col.Delete(ctx, chroma.WithWhereDelete(chroma.EqString(MetaPath, path)))
	if err != nil {
		return fmt.Errorf("failed to remove %s from collection: %w", path, err)
	}

	return nil
}

// Search queries the collection. Chroma reports distances (lower = closer);
// they are converted to similarities so callers can keep one score convention.
func (ds *ChromaStore) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	r, err := ds.col.Query(ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(k),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	docs := r.GetDocumentsGroups()[0]
	metadatas := r.GetMetadatasGroups()[0]
	distances := r.GetDistancesGroups()[0]

	res := make([]SearchResult, 0, len(docs))
	for i := range docs {
		row := rowFromMetadata(metadatas[i])
		row.Content = docs[i].ContentString()
		res = append(res, SearchResult{
			Row:   row,
			Score: 1 - float32(distances[i]),
		})
	}

	return res, nil
}

// Paths reports the set of source paths present in the collection.
func (ds *ChromaStore) Paths(ctx context.Context) (map[string]struct{}, error) {
	res, err := ds.col.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection entries: %w", err)
	}

	set := make(map[string]struct{})
	for _, meta := range res.GetMetadatas() {
		if path, ok := meta.GetString(MetaPath); ok {
			set[path] = struct{}{}
		}
	}

	return set, nil
}

// Persist is a no-op: the Chroma server owns persistence.
func (ds *ChromaStore) Persist() error {
	return nil
}

func rowMetadata(r IndexRow) chroma.DocumentMetadata {
	return chroma.NewDocumentMetadata(
		chroma.NewStringAttribute(MetaPath, r.Path),
		chroma.NewStringAttribute(MetaType, r.Type),
		chroma.NewIntAttribute(MetaChunkID, int64(r.ChunkID)),
		chroma.NewStringAttribute(MetaSummary, r.Summary),
		chroma.NewStringAttribute(MetaTags, strings.Join(r.Tags, ",")),
		chroma.NewIntAttribute(MetaSize, r.Size),
		chroma.NewIntAttribute(MetaMtime, r.Mtime),
	)
}

func rowFromMetadata(meta chroma.DocumentMetadata) IndexRow {
	var row IndexRow
	row.Path, _ = meta.GetString(MetaPath)
	row.Type, _ = meta.GetString(MetaType)
	row.Summary, _ = meta.GetString(MetaSummary)

	if tags, ok := meta.GetString(MetaTags); ok && tags != "" {
		row.Tags = strings.Split(tags, ",")
	}
	if chunkID, ok := meta.GetInt(MetaChunkID); ok {
		row.ChunkID = int(chunkID)
	}
	if size, ok := meta.GetInt(MetaSize); ok {
		row.Size = size
	}
	if mtime, ok := meta.GetInt(MetaMtime); ok {
		row.Mtime = mtime
	}

	return row
}
