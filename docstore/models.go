package docstore

// IndexRow is one retrievable unit: a single text chunk or a captioned image.
// Rows for the same path form a contiguous chunk sequence starting at 0 and
// share the fingerprint captured when the file was indexed.
type IndexRow struct {
	Path    string   `json:"path"`
	Type    string   `json:"type"`
	ChunkID int      `json:"chunk_id"`
	Content string   `json:"content"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
	Size    int64    `json:"size"`
	Mtime   int64    `json:"mtime"`
}

// Fingerprint identifies a file generation. A stat failure degrades to the
// zero value, which never matches a live file and forces re-indexing.
type Fingerprint struct {
	Size  int64
	Mtime int64
}

// Fingerprint returns the row's change fingerprint.
func (r IndexRow) Fingerprint() Fingerprint {
	return Fingerprint{Size: r.Size, Mtime: r.Mtime}
}

// SearchResult is a row matched by a similarity query. Score is a similarity:
// higher means more relevant, regardless of the backend's native metric.
type SearchResult struct {
	Row   IndexRow
	Score float32
}
