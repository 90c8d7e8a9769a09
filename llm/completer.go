package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/genai"
)

// Completer produces a free-form completion for a prompt. A nil Completer
// means no chat model is reachable; callers degrade to ranked-list answers.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ClaudeCompleter answers through the Anthropic API.
type ClaudeCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewClaudeCompleter(apiKey, model string) *ClaudeCompleter {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	return &ClaudeCompleter{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: 1024,
	}
}

func (c *ClaudeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("no response generated from Claude API")
	}

	return out.String(), nil
}

// GeminiCompleter answers through the Gemini API.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
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

	return &GeminiCompleter{client: client, model: model}, nil
}

func (c *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("chat generation failed: %w", err)
	}

	text := candidateText(resp)
	if text == "" {
		return "", fmt.Errorf("no response generated from chat model")
	}

	return text, nil
}

// candidateText extracts the first candidate carrying non-empty text.
func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var out strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				out.WriteString(part.Text)
			}
		}
		if out.Len() > 0 {
			break
		}
	}

	return out.String()
}
