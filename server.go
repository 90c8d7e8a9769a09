package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gamma-omg/localrag/docstore"
)

type docSearcher interface {
	Search(ctx context.Context, query string, k int) ([]docstore.SearchResult, error)
}

// NewRagServer exposes the index to MCP clients as a single search tool.
// Results come back as one JSON object per line so clients can stream them
// into their own context windows.
func NewRagServer(searcher docSearcher, searchK int, threshold float32) *server.MCPServer {
	tool := mcp.NewTool("search_documents",
		mcp.WithDescription("Searches the user's indexed local documents and returns the most relevant excerpts"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		))

	srv := server.NewMCPServer("localrag", "0.1.0", server.WithToolCapabilities(false))
	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		hits, err := searcher.Search(ctx, q, searchK)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var response string
		for _, h := range hits {
			if h.Score < threshold {
				continue
			}

			raw, err := json.Marshal(struct {
				Score   float32 `json:"score"`
				File    string  `json:"file"`
				Summary string  `json:"summary"`
				Text    string  `json:"text"`
			}{
				Score:   h.Score,
				File:    h.Row.Path,
				Summary: h.Row.Summary,
				Text:    h.Row.Content,
			})
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			response += fmt.Sprintf("%s\n", string(raw))
		}

		return mcp.NewToolResultText(response), nil
	})

	return srv
}
