// Package rag turns similarity hits into natural-language answers, falling
// back to a deterministic ranked listing whenever the chat model is missing,
// unreachable, or produces garbage.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/gamma-omg/localrag/docstore"
	"github.com/gamma-omg/localrag/llm"
)

// Answer is the outcome of one question. Degraded marks answers rendered
// from raw hits instead of the chat model.
type Answer struct {
	Text     string
	Hits     []docstore.SearchResult
	Degraded bool
}

// NoRelevantDocs is the terminal response for queries nothing matches.
const NoRelevantDocs = "No relevant documents found."

const promptHits = 5

var summaryKeywords = []string{"summary", "explain", "describe", "details", "what is", "who", "why", "how"}
var imageKeywords = []string{"image", "photo", "picture", "show", "display"}

var imageTypes = map[string]struct{}{"jpg": {}, "jpeg": {}, "png": {}}

var docTypes = map[string]struct{}{"pdf": {}, "docx": {}, "txt": {}, "pptx": {}, "csv": {}}

var openCmdRE = regexp.MustCompile(`(?i)^open\s+(?:the\s+file\s+)?(?:which\s+has|that\s+contains)?\s*(.+)$`)

// Answerer runs similarity search and answer generation for one index.
type Answerer struct {
	log       *slog.Logger
	store     docstore.Store
	completer llm.Completer
	threshold float32
	searchK   int
	openK     int
}

type AnswererConfig struct {
	Store     docstore.Store
	Completer llm.Completer // nil degrades every answer to a ranked list
	Threshold float32
	SearchK   int
	OpenK     int
}

func NewAnswerer(log *slog.Logger, cfg AnswererConfig) *Answerer {
	return &Answerer{
		log:       log,
		store:     cfg.Store,
		completer: cfg.Completer,
		threshold: cfg.Threshold,
		searchK:   cfg.SearchK,
		openK:     cfg.OpenK,
	}
}

// ParseOpenCommand recognizes the "open the file that contains ..." command
// and returns the description to search for.
func ParseOpenCommand(query string) (string, bool) {
	m := openCmdRE.FindStringSubmatch(query)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// Ask answers a free-text question over the index.
func (a *Answerer) Ask(ctx context.Context, question string) (Answer, error) {
	hits, err := a.search(ctx, question, a.searchK)
	if err != nil {
		return Answer{}, err
	}
	if len(hits) == 0 {
		return Answer{Text: NoRelevantDocs}, nil
	}

	top := hits
	if len(top) > promptHits {
		top = top[:promptHits]
	}

	if text, ok := imageAnswer(question, top); ok {
		return Answer{Text: text, Hits: top}, nil
	}

	if a.completer == nil {
		return Answer{Text: renderRanked(top), Hits: top, Degraded: true}, nil
	}

	text, err := a.completer.Complete(ctx, buildPrompt(question, top))
	if err != nil {
		a.log.Warn("chat model unavailable, falling back to ranked answer", "error", err)
		return Answer{Text: renderRanked(top), Hits: top, Degraded: true}, nil
	}

	text = strings.TrimSpace(text)
	if LooksLikeGibberish(text) {
		a.log.Warn("chat model produced low quality output, falling back to ranked answer")
		return Answer{Text: renderRanked(top), Hits: top, Degraded: true}, nil
	}

	return Answer{Text: text, Hits: top}, nil
}

// FindFile resolves a natural-language description to the best matching path.
// An empty path means nothing passed the acceptance threshold.
func (a *Answerer) FindFile(ctx context.Context, description string) (string, error) {
	hits, err := a.search(ctx, description, a.openK)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "", nil
	}

	return hits[0].Row.Path, nil
}

func (a *Answerer) search(ctx context.Context, query string, k int) ([]docstore.SearchResult, error) {
	hits, err := a.store.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	accepted := hits[:0]
	for _, h := range hits {
		if h.Score >= a.threshold {
			accepted = append(accepted, h)
		}
	}

	return accepted, nil
}

// imageAnswer renders image hits directly when the user asked for images or
// every hit is an image; the chat model adds nothing to a caption list.
func imageAnswer(question string, hits []docstore.SearchResult) (string, bool) {
	q := strings.ToLower(question)
	wantsImage := containsAny(q, imageKeywords)

	allImages := true
	for _, h := range hits {
		if _, ok := imageTypes[h.Row.Type]; !ok {
			allImages = false
			break
		}
	}

	if !wantsImage && !allImages {
		return "", false
	}

	var lines []string
	for _, h := range hits {
		if len(lines) == 3 {
			break
		}
		if _, ok := imageTypes[h.Row.Type]; !ok {
			continue
		}

		desc := "An image file."
		if h.Row.Summary != "" {
			desc = capitalize(h.Row.Summary)
		}
		lines = append(lines, fmt.Sprintf("%s: %s", filepath.Base(h.Row.Path), desc))
	}

	if len(lines) == 0 {
		return "", false
	}
	return strings.Join(lines, "\n"), true
}

func buildPrompt(question string, hits []docstore.SearchResult) string {
	var blocks []string
	for _, h := range hits {
		name := filepath.Base(h.Row.Path)
		summary := llm.Truncate(h.Row.Summary, 400)
		excerpt := llm.Truncate(strings.TrimSpace(h.Row.Content), 500)

		if _, ok := docTypes[h.Row.Type]; ok {
			blocks = append(blocks, fmt.Sprintf(
				"File: %s (%s)\nSummary: %s\nExcerpt: %s\n---", name, h.Row.Type, summary, excerpt))
		} else {
			blocks = append(blocks, fmt.Sprintf("File: %s\nInfo: %s\n---", name, summary))
		}
	}

	var role string
	if containsAny(strings.ToLower(question), summaryKeywords) {
		role = "You are a concise assistant. The user is asking for a summary or explanation.\n" +
			"Use the provided file context to summarize key details naturally.\n" +
			"Do not include raw file data. Be clear and short (3-5 sentences).\n" +
			"Finish with 'Sources:' and include file paths.\n\n"
	} else {
		role = "You are a helpful assistant that answers questions based on the user's local files.\n" +
			"Respond naturally and briefly. Mention relevant file types or names if useful.\n" +
			"Avoid robotic formatting. End with 'Sources:' listing the files you referenced.\n\n"
	}

	return fmt.Sprintf("%sCONTEXT:\n%s\n\nQUESTION: %s\n\nAnswer naturally:",
		role, strings.Join(blocks, "\n\n"), question)
}

func renderRanked(hits []docstore.SearchResult) string {
	lines := make([]string, 0, len(hits)+1)
	lines = append(lines, "Here are the most relevant files:")
	for _, h := range hits {
		desc := h.Row.Summary
		if desc == "" {
			desc = llm.Truncate(h.Row.Content, 120)
		}
		lines = append(lines, fmt.Sprintf("- %s (score %.2f) %s", h.Row.Path, h.Score, desc))
	}
	return strings.Join(lines, "\n")
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
