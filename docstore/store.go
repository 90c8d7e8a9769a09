package docstore

import "context"

// Store indexes rows by their embedded content and answers similarity queries.
//
// After every mutation completes the store's entries and the companion row
// store must be in 1:1 correspondence; the indexer relies on that to keep both
// sides converging during delta runs.
//
// Scores returned by Search are similarities (higher = more relevant).
// Backends whose native metric is a distance convert before returning.
type Store interface {
	// Build replaces the whole index with the given rows.
	Build(ctx context.Context, rows []IndexRow) error

	// Add inserts rows incrementally, leaving existing entries untouched.
	Add(ctx context.Context, rows []IndexRow) error

	// Remove drops every entry whose path matches.
	Remove(ctx context.Context, path string) error

	// Search returns up to k results ranked by descending similarity.
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)

	// Paths reports the set of source paths currently indexed.
	Paths(ctx context.Context) (map[string]struct{}, error)

	// Persist flushes the index to its backing location. Backends persisted
	// server-side treat this as a no-op.
	Persist() error
}
