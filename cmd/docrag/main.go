package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"docrag/internal/answer"
	answeroai "docrag/internal/answer/openai"
	"docrag/internal/chunker"
	"docrag/internal/config"
	"docrag/internal/embedding"
	"docrag/internal/embedding/hash"
	embedoai "docrag/internal/embedding/openai"
	"docrag/internal/loader"
	"docrag/internal/service"
	"docrag/internal/summarizer"
	"docrag/internal/tui"
	"docrag/internal/vectorstore"
	"docrag/internal/vectorstore/memory"
	"docrag/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, query, ask string
	var topK int
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docrag/config.yaml if not provided)")
	flag.StringVar(&query, "query", "", "Run a single retrieval and print the results instead of starting the TUI")
	flag.StringVar(&ask, "ask", "", "Ask a single question and print the answer instead of starting the TUI")
	flag.IntVar(&topK, "k", 0, "Number of results to retrieve (overrides config)")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Println("Usage: docrag [--config=config.yaml] [--query=... | --ask=...] file1.txt [file2.md ...]")
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if topK > 0 {
		cfg.Retrieval.TopK = topK
	}

	// Assemble components
	var emb embedding.Embedder
	switch cfg.Embedder.Type {
	case "hash", "":
		emb, err = hash.NewEmbedder(cfg.Embedder.Dimension)
		if err != nil {
			log.Fatalf("hash embedder init failed: %v", err)
		}
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			log.Fatalf("openai embedder config missing")
		}
		client, err := embedoai.NewClient(embedoai.Config{
			BaseURL:    cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv:  cfg.Embedder.OpenAI.APIKeyEnv,
			Model:      cfg.Embedder.OpenAI.Model,
			Timeout:    time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Embedder.OpenAI.MaxRetries,
		})
		if err != nil {
			log.Fatalf("openai embedder init failed: %v", err)
		}
		emb = client
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder.Type)
	}

	metric, err := vectorstore.ParseMetric(cfg.VectorStore.Metric)
	if err != nil {
		log.Fatalf("invalid metric: %v", err)
	}

	var st vectorstore.Storage
	var memStore *memory.Storage
	switch cfg.VectorStore.Type {
	case "memory", "":
		memStore = memory.NewStorage(metric)
		st = memStore
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			log.Fatalf("qdrant config missing")
		}
		st = qdrant.NewStorage(qdrant.Config{
			URL:        cfg.VectorStore.Qdrant.URL,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Metric:     metric,
			Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		log.Fatalf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	var ans answer.Answerer
	switch cfg.Answerer.Type {
	case "none", "":
	case "openai":
		if cfg.Answerer.OpenAI == nil {
			log.Fatalf("openai answerer config missing")
		}
		client, err := answeroai.NewClient(answeroai.Config{
			BaseURL:   cfg.Answerer.OpenAI.BaseURL,
			APIKeyEnv: cfg.Answerer.OpenAI.APIKeyEnv,
			Model:     cfg.Answerer.OpenAI.Model,
			Timeout:   time.Duration(cfg.Answerer.OpenAI.TimeoutSecs) * time.Second,
			MaxTokens: cfg.Answerer.OpenAI.MaxTokens,
		})
		if err != nil {
			log.Fatalf("openai answerer init failed: %v", err)
		}
		ans = client
	default:
		log.Fatalf("unknown answerer: %s", cfg.Answerer.Type)
	}

	ch, err := chunker.New(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	if err != nil {
		log.Fatalf("invalid chunker config: %v", err)
	}

	svc, err := service.NewRAGService(ch, emb, st, summarizer.NewFrequencySummarizer(), ans, service.Options{
		TopK:                cfg.Retrieval.TopK,
		Concurrency:         cfg.Indexing.Concurrency,
		BatchSize:           cfg.Indexing.BatchSize,
		RateLimit:           cfg.Indexing.RateLimitRPS,
		SummaryMaxSentences: cfg.Summarizer.MaxSentences,
	})
	if err != nil {
		log.Fatalf("service init failed: %v", err)
	}

	ctx := context.Background()
	summary, err := buildOrRestore(ctx, svc, memStore, cfg.VectorStore.Snapshot, inputs)
	if err != nil {
		log.Fatalf("indexing failed: %v", err)
	}

	switch {
	case query != "":
		results, err := svc.Retrieve(ctx, query, cfg.Retrieval.TopK)
		if err != nil {
			log.Fatalf("retrieval failed: %v", err)
		}
		for i, r := range results {
			fmt.Printf("%d. page=%d seq=%d score=%.4f\n%s\n\n", i+1, r.Chunk.Page, r.Chunk.Seq, r.Score, r.Chunk.Text)
		}
	case ask != "":
		answer, results, err := svc.Ask(ctx, ask)
		if err != nil {
			log.Fatalf("ask failed: %v", err)
		}
		fmt.Println(answer)
		fmt.Println()
		for i, r := range results {
			fmt.Printf("[%d] page=%d seq=%d score=%.4f\n", i+1, r.Chunk.Page, r.Chunk.Seq, r.Score)
		}
	default:
		m := tui.New(svc, summary)
		if _, err := tea.NewProgram(m).Run(); err != nil {
			log.Fatal(err)
		}
	}
}

// buildOrRestore indexes the input files, restoring a memory store from
// its snapshot first when one exists and writing one back after a fresh
// build.
func buildOrRestore(ctx context.Context, svc *service.RAGService, memStore *memory.Storage, snapshot string, inputs []string) (string, error) {
	if memStore != nil && snapshot != "" {
		if err := memStore.LoadFile(snapshot); err == nil {
			return fmt.Sprintf("Restored %d chunks from %s", memStore.Len(), snapshot), nil
		}
	}
	doc, err := loader.Load(inputs)
	if err != nil {
		return "", err
	}
	summary, n, err := svc.BuildIndex(ctx, doc)
	if err != nil {
		return "", err
	}
	if memStore != nil && snapshot != "" {
		if err := memStore.SaveFile(snapshot); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("Indexed %d chunks. %s", n, summary), nil
}
