package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"ragchatbot/internal/config"
	milvusdb "ragchatbot/internal/database/milvus"
	redisdb "ragchatbot/internal/database/redis"
	"ragchatbot/internal/rag/embeddings"
	"ragchatbot/internal/rag/interfaces"
	"ragchatbot/internal/rag/loaders"
	"ragchatbot/internal/rag/pipeline"
	"ragchatbot/internal/rag/splitters"
	"ragchatbot/internal/rag/storages/vectorstore"
	"ragchatbot/pkg/logger"
)

// Exit codes: 0 all documents indexed, 1 some documents failed, 2 nothing to
// ingest (no PDF files in the directory).
const (
	exitOK      = 0
	exitFailed  = 1
	exitNoInput = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	configPath := flag.String("config", "config/config.yaml", "path to the YAML configuration file")
	dataDir := flag.String("data-dir", "data/pdfs", "directory containing the PDF corpus")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.Init(level)
	appLogger := logger.New("Ingest", "", "")

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable is not set")
	}

	ctx := context.Background()

	splitter, err := splitters.NewCharSplitter(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		log.Fatalf("Invalid chunking configuration: %v", err)
	}

	timeout := time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second
	var embedder interfaces.EmbeddingModel = embeddings.NewOpenAIModel(apiKey, cfg.OpenAI.EmbeddingModel, timeout)
	if cfg.Databases.Redis.Enabled {
		rdb, err := redisdb.GetClient(&cfg.Databases.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		embedder = embeddings.NewCachedModel(embedder, rdb, cfg.OpenAI.EmbeddingModel, logger.New("EmbeddingCache", "", ""))
	}

	var index interfaces.VectorIndex
	if cfg.Databases.Milvus.Enabled {
		milvusClient, err := milvusdb.GetClient(ctx, &cfg.Databases.Milvus)
		if err != nil {
			log.Fatalf("Failed to connect to Milvus: %v", err)
		}
		index, err = vectorstore.NewMilvusIndex(ctx, milvusClient, cfg.Databases.Milvus.Collection, cfg.Databases.Milvus.Dim, logger.New("MilvusIndex", "", ""))
		if err != nil {
			log.Fatalf("Failed to initialize Milvus index: %v", err)
		}
	} else {
		memIndex, err := vectorstore.NewMemoryIndex(cfg.RAG.IndexSnapshot, logger.New("MemoryIndex", "", ""))
		if err != nil {
			log.Fatalf("Failed to load index snapshot: %v", err)
		}
		index = memIndex
	}

	ingest := pipeline.NewIndexingPipeline(
		loaders.NewPdfExtractor(),
		splitter,
		embedder,
		index,
		cfg.RAG.BatchSize,
		appLogger,
	)

	report, err := ingest.Ingest(ctx, *dataDir)
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	fmt.Printf("Documents processed: %d\n", report.DocumentsProcessed)
	fmt.Printf("Documents unchanged: %d\n", report.DocumentsUnchanged)
	fmt.Printf("Entries skipped:     %d\n", report.DocumentsSkipped)
	fmt.Printf("Chunks created:      %d\n", report.ChunksCreated)
	if len(report.Errors) > 0 {
		fmt.Printf("Errors (%d):\n", len(report.Errors))
		for _, e := range report.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	if report.DocumentsProcessed == 0 && report.DocumentsUnchanged == 0 && len(report.Errors) == 0 {
		fmt.Println("No PDF documents found.")
		return exitNoInput
	}
	if report.Failed() {
		return exitFailed
	}
	return exitOK
}
