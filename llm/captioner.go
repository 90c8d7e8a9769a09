package llm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/genai"
)

// Captioner produces one short descriptive caption per image, in input order.
type Captioner interface {
	Caption(ctx context.Context, paths []string) ([]string, error)
}

// DefaultCaptionBatch is how many images go into a single model request.
const DefaultCaptionBatch = 6

// GeminiCaptioner captions images in batches through a Gemini vision model.
// Each batch asks for exactly one caption line per image; a count mismatch is
// an error rather than a silent misalignment of captions and rows.
type GeminiCaptioner struct {
	client *genai.Client
	model  string
	batch  int
}

func NewGeminiCaptioner(ctx context.Context, apiKey, model string, batch int) (*GeminiCaptioner, error) {
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
	if batch <= 0 {
		batch = DefaultCaptionBatch
	}

	return &GeminiCaptioner{client: client, model: model, batch: batch}, nil
}

func (c *GeminiCaptioner) Caption(ctx context.Context, paths []string) ([]string, error) {
	caps := make([]string, 0, len(paths))

	for start := 0; start < len(paths); start += c.batch {
		end := min(start+c.batch, len(paths))
		batchCaps, err := c.captionBatch(ctx, paths[start:end])
		if err != nil {
			return nil, err
		}
		caps = append(caps, batchCaps...)
	}

	return caps, nil
}

func (c *GeminiCaptioner) captionBatch(ctx context.Context, paths []string) ([]string, error) {
	parts := make([]*genai.Part, 0, len(paths)+1)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read image %s: %w", p, err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, imageMIME(p)))
	}

	parts = append(parts, genai.NewPartFromText(fmt.Sprintf(
		"Write one short descriptive caption per image, in order. "+
			"Return exactly %d lines, one caption per line, nothing else.", len(paths))))

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("caption generation failed: %w", err)
	}

	return parseCaptions(candidateText(resp), len(paths))
}

// parseCaptions splits model output into n lowercase captions, pairing
// captions to images by line position.
func parseCaptions(output string, n int) ([]string, error) {
	var caps []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		caps = append(caps, strings.ToLower(line))
	}

	if len(caps) != n {
		return nil, fmt.Errorf("expected %d captions, got %d", n, len(caps))
	}

	return caps, nil
}

func imageMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}
