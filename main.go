package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	gemini "github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
	openai "github.com/amikos-tech/chroma-go/pkg/embeddings/openai"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gamma-omg/localrag/docstore"
	"github.com/gamma-omg/localrag/llm"
	"github.com/gamma-omg/localrag/rag"
	"github.com/gamma-omg/localrag/readers"
	"github.com/gamma-omg/localrag/tui"
)

type app struct {
	cfg    *Config
	log    *slog.Logger
	folder string
	name   string

	rowPath string
	vecDir  string

	rows  *docstore.RowStore
	store docstore.Store
}

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "cfg/config.yaml", "Configuration file")
	serve := flag.Bool("serve", false, "Run the MCP server over SSE")
	api := flag.Bool("api", false, "Run the HTTP API")
	watch := flag.Bool("watch", false, "Keep the index synchronized with the folder")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: %s [flags] <folder>", os.Args[0])
	}

	cfg, err := readConfig(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		log.Fatalf("failed to open log file: %s", err)
	}
	defer logFile.Close()

	logger := slog.New(slog.NewJSONHandler(logFile, nil))

	folder, err := filepath.Abs(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	name := filepath.Base(folder)
	a := &app{
		cfg:     cfg,
		log:     logger,
		folder:  folder,
		name:    name,
		rowPath: filepath.Join(cfg.IndexDir, name+".json"),
		vecDir:  filepath.Join(cfg.VectorDir, name+"_bge_db"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	switch {
	case *serve:
		err = a.runServe(ctx)
	case *api:
		err = a.runAPI(ctx)
	case *watch:
		err = a.runWatch(ctx)
	default:
		err = a.runMenu(ctx)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func (a *app) runMenu(ctx context.Context) error {
	fmt.Printf("Folder: %s\n", a.folder)
	fmt.Println("1) Build (or rebuild) the index")
	fmt.Println("2) Chat about your documents")
	fmt.Println("3) Update the index")
	fmt.Println("4) Update, then chat in the full-screen UI")
	fmt.Println("q) Quit")
	fmt.Print("> ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return scanner.Err()
	}

	switch strings.TrimSpace(scanner.Text()) {
	case "1":
		return a.buildIndex(ctx)
	case "2":
		if err := a.openIndex(ctx); err != nil {
			return err
		}
		chat := NewChatSession(a.log, a.answerer(), a.vecDir)
		return chat.Run(ctx)
	case "3":
		if err := a.openIndex(ctx); err != nil {
			return err
		}
		return a.indexer().SyncDelta(ctx)
	case "4":
		if err := a.openIndex(ctx); err != nil {
			return err
		}
		if err := a.indexer().SyncDelta(ctx); err != nil {
			return err
		}
		return tui.Run(ctx, a.answerer(), revealPath)
	case "q", "Q":
		return nil
	default:
		fmt.Fprintln(os.Stderr, "invalid choice")
		os.Exit(1)
		return nil
	}
}

// runServe exposes the index to MCP clients, keeping it synchronized in the
// background while the server runs.
func (a *app) runServe(ctx context.Context) error {
	if err := a.openIndex(ctx); err != nil {
		return err
	}

	go func() {
		if err := a.indexer().SyncDelta(ctx); err != nil {
			a.log.Error("initial sync failed", "error", err)
			return
		}
		if err := a.indexer().Watch(ctx, a.mergeEventsDelay()); err != nil {
			a.log.Error("failed to start file watcher", "error", err)
		}
	}()

	srv := NewRagServer(a.store, a.cfg.SearchK, a.cfg.ScoreThreshold)
	sse := server.NewSSEServer(srv, server.WithBaseURL(fmt.Sprintf("http://%s", a.cfg.ServerAddr)))
	log.Println(sse.Start(a.cfg.ServerAddr))
	return nil
}

func (a *app) runAPI(ctx context.Context) error {
	if err := a.openIndex(ctx); err != nil {
		return err
	}

	webAPI := NewWebAPI(a.log, a.folder, a.rows, a.indexer(), a.answerer())
	return webAPI.Serve(a.cfg.APIAddr)
}

// runWatch syncs once and then follows filesystem changes until interrupted.
func (a *app) runWatch(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if err := a.openIndex(ctx); err != nil {
		return err
	}

	if err := a.indexer().SyncDelta(ctx); err != nil {
		return err
	}
	if err := a.indexer().Watch(ctx, a.mergeEventsDelay()); err != nil {
		return err
	}

	fmt.Printf("Watching %s, press Ctrl+C to stop.\n", a.folder)
	<-ctx.Done()
	return nil
}

// buildIndex indexes the folder from scratch, replacing whatever artifacts
// exist for it.
func (a *app) buildIndex(ctx context.Context) error {
	a.rows = docstore.NewRowStore(a.rowPath)

	store, err := a.createStore(ctx, true)
	if err != nil {
		return err
	}
	a.store = store

	if err := a.indexer().BuildIndex(ctx); err != nil {
		return err
	}

	fmt.Printf("Indexed %d rows from %s\n", a.rows.Len(), a.folder)
	return nil
}

// openIndex loads the existing artifacts for the folder. Both the row file
// and the vector store must have been built already.
func (a *app) openIndex(ctx context.Context) error {
	rows, err := docstore.LoadRowStore(a.rowPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no index found for %s, build it first", a.folder)
		}
		return err
	}
	a.rows = rows

	store, err := a.createStore(ctx, false)
	if err != nil {
		return err
	}
	a.store = store

	return nil
}

func (a *app) createStore(ctx context.Context, rebuild bool) (docstore.Store, error) {
	if a.cfg.Store.Backend == "chroma" {
		ef, err := createEmbeddingFunction(a.cfg)
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		return docstore.NewChromaStore(ctx, docstore.ChromaStoreConfig{
			BaseURL:       a.cfg.Store.ChromaAddr,
			Collection:    a.name,
			EmbeddingFunc: ef,
			RequestSize:   a.cfg.Store.RequestSize,
			Reset:         rebuild,
		})
	}

	embedder, err := createEmbedder(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	if rebuild {
		return docstore.NewLocalStore(a.vecDir, embedder), nil
	}

	var rows []docstore.IndexRow
	if a.rows != nil {
		rows = a.rows.Rows()
	}
	return docstore.OpenLocalStore(ctx, a.vecDir, embedder, rows)
}

func (a *app) indexer() *Indexer {
	return NewIndexer(a.log, IndexerConfig{
		Root:      a.folder,
		Rows:      a.rows,
		Store:     a.store,
		Extractor: readers.NewExtractor(),
		Chunkifier: &WordChunkifier{
			chunkWords:   a.cfg.ChunkWords,
			chunkOverlap: a.cfg.ChunkOverlap,
		},
		Tagger:     &Tagger{max: a.cfg.TagMax},
		Summarizer: a.createSummarizer(),
		Captioner:  a.createCaptioner(),
	})
}

func (a *app) answerer() *rag.Answerer {
	return rag.NewAnswerer(a.log, rag.AnswererConfig{
		Store:     a.store,
		Completer: a.createCompleter(),
		Threshold: a.cfg.ScoreThreshold,
		SearchK:   a.cfg.SearchK,
		OpenK:     a.cfg.OpenK,
	})
}

func (a *app) mergeEventsDelay() time.Duration {
	return time.Duration(a.cfg.MergeEventsMs) * time.Millisecond
}

// createSummarizer returns nil when no Gemini key is configured; the indexer
// then falls back to excerpt summaries.
func (a *app) createSummarizer() llm.Summarizer {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		a.log.Warn("GEMINI_API_KEY not set, using excerpt summaries")
		return nil
	}

	s, err := llm.NewGeminiSummarizer(context.Background(), key, a.cfg.Summary.Model)
	if err != nil {
		a.log.Warn("failed to create summarizer, using excerpt summaries", "error", err)
		return nil
	}
	return s
}

func (a *app) createCaptioner() llm.Captioner {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		a.log.Warn("GEMINI_API_KEY not set, indexing images by filename only")
		return nil
	}

	c, err := llm.NewGeminiCaptioner(context.Background(), key, a.cfg.Caption.Model, a.cfg.CaptionBatch)
	if err != nil {
		a.log.Warn("failed to create captioner, indexing images by filename only", "error", err)
		return nil
	}
	return c
}

// createCompleter returns nil when no chat model is reachable; answers then
// degrade to ranked file lists.
func (a *app) createCompleter() llm.Completer {
	switch a.cfg.Chat.Provider {
	case "none":
		return nil

	case "gemini":
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			a.log.Warn("GEMINI_API_KEY not set, chat answers degrade to ranked lists")
			return nil
		}
		c, err := llm.NewGeminiCompleter(context.Background(), key, a.cfg.Chat.Model)
		if err != nil {
			a.log.Warn("failed to create chat model, answers degrade to ranked lists", "error", err)
			return nil
		}
		return c

	default:
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			a.log.Warn("ANTHROPIC_API_KEY not set, chat answers degrade to ranked lists")
			return nil
		}
		return llm.NewClaudeCompleter(key, a.cfg.Chat.Model)
	}
}

func createEmbedder(ctx context.Context, cfg *Config) (docstore.Embedder, error) {
	if cfg.Embedder.Provider == "openai" {
		return llm.NewOpenAIEmbedder(llm.OpenAIEmbedderConfig{
			BaseURL: cfg.Embedder.BaseURL,
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   cfg.Embedder.Model,
		}), nil
	}

	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		return nil, errors.New("GEMINI_API_KEY is required for the gemini embedding provider")
	}

	return llm.NewGeminiEmbedder(ctx, key, cfg.Embedder.Model)
}

// createEmbeddingFunction builds the server-side embedding function for the
// Chroma backend.
func createEmbeddingFunction(cfg *Config) (embeddings.EmbeddingFunction, error) {
	if cfg.Embedder.Provider == "openai" {
		ef, err := openai.NewOpenAIEmbeddingFunction(
			os.Getenv("OPENAI_API_KEY"),
			openai.WithModel(openai.EmbeddingModel(cfg.Embedder.Model)))
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI embedding function: %w", err)
		}
		return ef, nil
	}

	ef, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithAPIKey(os.Getenv("GEMINI_API_KEY")),
		gemini.WithDefaultModel(embeddings.EmbeddingModel(cfg.Embedder.Model)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}
	return ef, nil
}
