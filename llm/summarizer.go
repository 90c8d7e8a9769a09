package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Summarizer produces a short synopsis of one chunk of text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

const (
	// Text under this many words is its own summary; no model call is made.
	shortSummaryWords = 60
	shortSummaryChars = 400

	summaryMaxTokens = 160
)

// GeminiSummarizer delegates to a Gemini model, bounded to a short output.
type GeminiSummarizer struct {
	client *genai.Client
	model  string
}

func NewGeminiSummarizer(ctx context.Context, apiKey, model string) (*GeminiSummarizer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	if model == "" {
		model = "gemini-2.0-flash"
	}

	return &GeminiSummarizer{client: client, model: model}, nil
}

func (s *GeminiSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if summary, ok := shortSummary(text); ok {
		return summary, nil
	}

	prompt := "Summarize the following text in a few sentences (at least 40 words). " +
		"Return only the summary.\n\n" + text

	resp, err := s.client.Models.GenerateContent(ctx, s.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{MaxOutputTokens: summaryMaxTokens},
	)
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}

	summary := strings.TrimSpace(candidateText(resp))
	if summary == "" {
		return "", fmt.Errorf("no summary generated")
	}

	return summary, nil
}

// shortSummary handles the no-model cases: empty text and text short enough
// to be its own summary.
func shortSummary(text string) (string, bool) {
	if text == "" {
		return "", true
	}
	if len(strings.Fields(text)) < shortSummaryWords {
		return Truncate(text, shortSummaryChars), true
	}
	return "", false
}

// Truncate caps s at n bytes. Chunk boundaries are word-aligned upstream, so
// byte truncation is good enough here.
func Truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
