package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gamma-omg/localrag/docstore"
	"github.com/gamma-omg/localrag/rag"
)

// WebAPI is a minimal HTTP front over one index: upload documents, list what
// is indexed, ask questions. It serves a single-page form at the root for
// manual poking.
type WebAPI struct {
	log      *slog.Logger
	folder   string
	rows     *docstore.RowStore
	indexer  *Indexer
	answerer *rag.Answerer
}

func NewWebAPI(log *slog.Logger, folder string, rows *docstore.RowStore, indexer *Indexer, answerer *rag.Answerer) *WebAPI {
	return &WebAPI{log: log, folder: folder, rows: rows, indexer: indexer, answerer: answerer}
}

func (w *WebAPI) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", w.handleIndex)
	mux.HandleFunc("GET /status", w.handleStatus)
	mux.HandleFunc("GET /documents", w.handleDocuments)
	mux.HandleFunc("POST /upload", w.handleUpload)
	mux.HandleFunc("POST /ask", w.handleAsk)
	return mux
}

func (w *WebAPI) Serve(addr string) error {
	w.log.Info("web api listening", "addr", addr)
	return http.ListenAndServe(addr, w.Handler())
}

const indexPage = `<!DOCTYPE html>
<html>
<head><title>localrag</title></head>
<body>
<h1>localrag</h1>
<form action="/upload" method="post" enctype="multipart/form-data">
  <input type="file" name="file"><button>Upload</button>
</form>
<p>POST a JSON body {"question": "..."} to /ask, or GET /documents.</p>
</body>
</html>`

func (w *WebAPI) handleIndex(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(rw, indexPage)
}

func (w *WebAPI) handleStatus(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]any{
		"folder":    w.folder,
		"documents": len(w.rows.PathSet()),
		"rows":      w.rows.Len(),
	})
}

func (w *WebAPI) handleDocuments(rw http.ResponseWriter, r *http.Request) {
	type doc struct {
		Path    string `json:"path"`
		Type    string `json:"type"`
		Summary string `json:"summary"`
	}

	docs := make([]doc, 0)
	for _, row := range w.rows.Rows() {
		if row.ChunkID != 0 {
			continue
		}
		docs = append(docs, doc{Path: row.Path, Type: row.Type, Summary: row.Summary})
	}

	writeJSON(rw, http.StatusOK, docs)
}

func (w *WebAPI) handleUpload(rw http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(rw, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// FileName is client supplied; keep only its base name
	dst := filepath.Join(w.folder, filepath.Base(header.Filename))
	out, err := os.Create(dst)
	if err != nil {
		w.log.Error("failed to create uploaded file", "path", dst, "error", err)
		http.Error(rw, "failed to store upload", http.StatusInternalServerError)
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		w.log.Error("failed to write uploaded file", "path", dst, "error", err)
		http.Error(rw, "failed to store upload", http.StatusInternalServerError)
		return
	}

	if err := w.indexer.SyncDelta(r.Context()); err != nil {
		w.log.Error("failed to index upload", "path", dst, "error", err)
		http.Error(rw, "stored but failed to index", http.StatusInternalServerError)
		return
	}

	writeJSON(rw, http.StatusOK, map[string]string{"stored": dst})
}

func (w *WebAPI) handleAsk(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		http.Error(rw, "expected JSON body with a question field", http.StatusBadRequest)
		return
	}

	answer, err := w.answerer.Ask(r.Context(), req.Question)
	if err != nil {
		w.log.Error("failed to answer question", "error", err)
		http.Error(rw, "failed to answer question", http.StatusInternalServerError)
		return
	}

	type source struct {
		Path  string  `json:"path"`
		Score float32 `json:"score"`
	}
	sources := make([]source, 0, len(answer.Hits))
	for _, h := range answer.Hits {
		sources = append(sources, source{Path: h.Row.Path, Score: h.Score})
	}

	writeJSON(rw, http.StatusOK, map[string]any{
		"answer":   answer.Text,
		"degraded": answer.Degraded,
		"sources":  sources,
	})
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
