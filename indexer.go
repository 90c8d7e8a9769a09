package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/gamma-omg/localrag/docstore"
	"github.com/gamma-omg/localrag/llm"
	"github.com/gamma-omg/localrag/readers"
)

type textExtractor interface {
	Extract(path string) string
}

// Indexer builds and incrementally maintains the index of one folder. The row
// store and the vector store change together: every mutation persists both
// before the next path is touched, so a crash leaves at most one file behind.
type Indexer struct {
	log        *slog.Logger
	root       string
	rows       *docstore.RowStore
	store      docstore.Store
	extractor  textExtractor
	chunkifier Chunkifier
	tagger     *Tagger
	summarizer llm.Summarizer
	captioner  llm.Captioner
}

type IndexerConfig struct {
	Root       string
	Rows       *docstore.RowStore
	Store      docstore.Store
	Extractor  textExtractor
	Chunkifier Chunkifier
	Tagger     *Tagger
	Summarizer llm.Summarizer
	Captioner  llm.Captioner
}

func NewIndexer(log *slog.Logger, cfg IndexerConfig) *Indexer {
	return &Indexer{
		log:        log,
		root:       cfg.Root,
		rows:       cfg.Rows,
		store:      cfg.Store,
		extractor:  cfg.Extractor,
		chunkifier: cfg.Chunkifier,
		tagger:     cfg.Tagger,
		summarizer: cfg.Summarizer,
		captioner:  cfg.Captioner,
	}
}

// BuildIndex scans the folder from scratch and replaces both stores with the
// result. Images are captioned in batches after the text pass.
func (ix *Indexer) BuildIndex(ctx context.Context) error {
	if _, err := os.Stat(ix.root); err != nil {
		return fmt.Errorf("cannot index %s: %w", ix.root, err)
	}

	var rows []docstore.IndexRow
	var images []string

	err := filepath.WalkDir(ix.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		switch readers.Classify(path) {
		case readers.KindText:
			rows = append(rows, ix.textRows(ctx, path)...)
		case readers.KindImage:
			images = append(images, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", ix.root, err)
	}

	rows = append(rows, ix.imageRows(ctx, images)...)
	if len(rows) == 0 {
		return fmt.Errorf("no indexable documents in %s", ix.root)
	}

	if err := ix.store.Build(ctx, rows); err != nil {
		return fmt.Errorf("failed to build vector store: %w", err)
	}
	ix.rows.SetAll(rows)

	ix.log.Info("index built", "root", ix.root, "rows", len(rows), "images", len(images))
	return ix.persist()
}

// SyncDelta reconciles the index with the folder's current state. Removals go
// first so a modified path never carries two generations of rows at once.
func (ix *Indexer) SyncDelta(ctx context.Context) error {
	current, err := ix.collectFingerprints()
	if err != nil {
		return err
	}

	d := classifyDelta(current, ix.rows.Fingerprints())
	if d.empty() {
		ix.log.Info("index up to date", "root", ix.root)
		return nil
	}
	ix.log.Info("synchronizing index",
		"add", len(d.add), "remove", len(d.remove), "modify", len(d.modify))

	for _, p := range d.remove {
		if err := ix.removePath(ctx, p); err != nil {
			return err
		}
	}
	for _, p := range d.modify {
		if err := ix.removePath(ctx, p); err != nil {
			return err
		}
		if err := ix.indexPath(ctx, p); err != nil {
			return err
		}
	}
	for _, p := range d.add {
		if err := ix.indexPath(ctx, p); err != nil {
			return err
		}
	}

	return nil
}

type delta struct {
	add    []string
	remove []string
	modify []string
}

func (d delta) empty() bool {
	return len(d.add) == 0 && len(d.remove) == 0 && len(d.modify) == 0
}

// classifyDelta compares on-disk fingerprints against the indexed ones. Paths
// are sorted so sync order is stable across runs.
func classifyDelta(current, indexed map[string]docstore.Fingerprint) delta {
	var d delta
	for p, fp := range current {
		old, ok := indexed[p]
		switch {
		case !ok:
			d.add = append(d.add, p)
		case old != fp:
			d.modify = append(d.modify, p)
		}
	}
	for p := range indexed {
		if _, ok := current[p]; !ok {
			d.remove = append(d.remove, p)
		}
	}

	sort.Strings(d.add)
	sort.Strings(d.remove)
	sort.Strings(d.modify)
	return d
}

func (ix *Indexer) collectFingerprints() (map[string]docstore.Fingerprint, error) {
	fps := make(map[string]docstore.Fingerprint)

	err := filepath.WalkDir(ix.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || readers.Classify(path) == readers.KindIgnored {
			return nil
		}
		fps[path] = readers.Fingerprint(path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", ix.root, err)
	}

	return fps, nil
}

func (ix *Indexer) removePath(ctx context.Context, path string) error {
	if err := ix.store.Remove(ctx, path); err != nil {
		return fmt.Errorf("failed to remove %s from vector store: %w", path, err)
	}
	ix.rows.RemovePath(path)
	return ix.persist()
}

func (ix *Indexer) indexPath(ctx context.Context, path string) error {
	var rows []docstore.IndexRow
	switch readers.Classify(path) {
	case readers.KindText:
		rows = ix.textRows(ctx, path)
	case readers.KindImage:
		rows = ix.imageRows(ctx, []string{path})
	}
	if len(rows) == 0 {
		ix.log.Warn("nothing indexable in changed file", "path", path)
		return nil
	}

	if err := ix.store.Add(ctx, rows); err != nil {
		return fmt.Errorf("failed to add %s to vector store: %w", path, err)
	}
	ix.rows.ReplacePath(path, rows)
	return ix.persist()
}

// textRows extracts, chunks, tags and summarizes one text document. The
// fingerprint is captured before extraction so a write racing the read shows
// up as a modification on the next sync.
func (ix *Indexer) textRows(ctx context.Context, path string) []docstore.IndexRow {
	fp := readers.Fingerprint(path)

	text := ix.extractor.Extract(path)
	if text == "" {
		ix.log.Warn("no text extracted, skipping", "path", path)
		return nil
	}

	chunks := ix.chunkifier.Chunkify(text)
	rows := make([]docstore.IndexRow, 0, len(chunks))
	for i, chunk := range chunks {
		rows = append(rows, docstore.IndexRow{
			Path:    path,
			Type:    readers.TypeOf(path),
			ChunkID: i,
			Content: chunk,
			Summary: ix.summarize(ctx, path, chunk),
			Tags:    ix.tagger.TagsWithFallback(chunk, path),
			Size:    fp.Size,
			Mtime:   fp.Mtime,
		})
	}

	return rows
}

func (ix *Indexer) summarize(ctx context.Context, path, chunk string) string {
	if ix.summarizer == nil {
		return llm.Truncate(chunk, 400)
	}

	summary, err := ix.summarizer.Summarize(ctx, chunk)
	if err != nil {
		ix.log.Warn("summary failed, using excerpt", "path", path, "error", err)
		return llm.Truncate(chunk, 400)
	}
	return summary
}

// imageRows captions the given images and turns each into a single row. A
// captioning failure degrades to filename-only rows rather than dropping the
// images from the index.
func (ix *Indexer) imageRows(ctx context.Context, paths []string) []docstore.IndexRow {
	if len(paths) == 0 {
		return nil
	}

	var caps []string
	if ix.captioner != nil {
		var err error
		caps, err = ix.captioner.Caption(ctx, paths)
		if err != nil {
			ix.log.Warn("image captioning failed, indexing by filename only", "error", err)
			caps = nil
		}
	}
	if caps == nil {
		caps = make([]string, len(paths))
	}

	rows := make([]docstore.IndexRow, 0, len(paths))
	for i, p := range paths {
		fp := readers.Fingerprint(p)
		rows = append(rows, docstore.IndexRow{
			Path:    p,
			Type:    readers.TypeOf(p),
			ChunkID: 0,
			Content: caps[i],
			Summary: caps[i],
			Tags:    ix.tagger.TagsWithFallback(caps[i], p),
			Size:    fp.Size,
			Mtime:   fp.Mtime,
		})
	}

	return rows
}

func (ix *Indexer) persist() error {
	if err := ix.rows.Save(); err != nil {
		return err
	}
	if err := ix.store.Persist(); err != nil {
		return fmt.Errorf("failed to persist vector store: %w", err)
	}
	return nil
}
