package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gamma-omg/localrag/rag"
)

// staleAfter is how old the vector store may get before the chat warns that
// the index likely no longer matches the folder.
const staleAfter = 12 * time.Hour

type questionAnswerer interface {
	Ask(ctx context.Context, question string) (rag.Answer, error)
	FindFile(ctx context.Context, description string) (string, error)
}

// ChatSession runs the interactive question loop on a pair of streams. The
// opener is injected so tests never launch a file manager.
type ChatSession struct {
	log      *slog.Logger
	answerer questionAnswerer
	vecDir   string
	in       io.Reader
	out      io.Writer
	opener   func(path string) error
}

func NewChatSession(log *slog.Logger, answerer questionAnswerer, vecDir string) *ChatSession {
	return &ChatSession{
		log:      log,
		answerer: answerer,
		vecDir:   vecDir,
		in:       os.Stdin,
		out:      os.Stdout,
		opener:   openPath,
	}
}

func (c *ChatSession) Run(ctx context.Context) error {
	if age, ok := indexAge(c.vecDir); ok && age > staleAfter {
		fmt.Fprintf(c.out, "Note: the index was last updated %s ago and may be out of date.\n"+
			"Run the update option to sync it with the folder.\n\n", age.Round(time.Hour))
	}

	fmt.Fprintln(c.out, "Ask a question about your documents, or type 'exit' to quit.")

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		query := strings.TrimSpace(scanner.Text())
		switch {
		case query == "":
			continue
		case query == "exit" || query == "quit":
			return nil
		}

		if term, ok := rag.ParseOpenCommand(query); ok {
			c.openFile(ctx, term)
			continue
		}

		answer, err := c.answerer.Ask(ctx, query)
		if err != nil {
			c.log.Error("failed to answer question", "query", query, "error", err)
			fmt.Fprintln(c.out, "Something went wrong answering that, please try again.")
			continue
		}

		fmt.Fprintln(c.out, answer.Text)
		if answer.Degraded || len(answer.Hits) == 0 {
			fmt.Fprintln(c.out)
			continue
		}

		fmt.Fprintln(c.out, "\nMatched files:")
		for _, h := range answer.Hits {
			fmt.Fprintf(c.out, "  %s (score %.2f)\n", h.Row.Path, h.Score)
		}
		fmt.Fprintln(c.out)
	}
}

func (c *ChatSession) openFile(ctx context.Context, term string) {
	path, err := c.answerer.FindFile(ctx, term)
	if err != nil {
		c.log.Error("failed to locate file", "term", term, "error", err)
		fmt.Fprintln(c.out, "Something went wrong locating that file.")
		return
	}
	if path == "" {
		fmt.Fprintln(c.out, rag.NoRelevantDocs)
		return
	}

	fmt.Fprintf(c.out, "Opening %s\n", path)
	if err := c.opener(path); err != nil {
		c.log.Error("failed to open file", "path", path, "error", err)
		fmt.Fprintf(c.out, "Could not open %s: %s\n", path, err)
	}
}

// indexAge reports how long ago the vector store directory was modified.
func indexAge(vecDir string) (time.Duration, bool) {
	info, err := os.Stat(vecDir)
	if err != nil {
		return 0, false
	}
	return time.Since(info.ModTime()), true
}
