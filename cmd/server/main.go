package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"ragchatbot/internal/chatstore"
	"ragchatbot/internal/config"
	milvusdb "ragchatbot/internal/database/milvus"
	mongodb "ragchatbot/internal/database/mongo"
	mysqldb "ragchatbot/internal/database/mysql"
	redisdb "ragchatbot/internal/database/redis"
	"ragchatbot/internal/rag/embeddings"
	"ragchatbot/internal/rag/interfaces"
	"ragchatbot/internal/rag/llms"
	"ragchatbot/internal/rag/pipeline"
	"ragchatbot/internal/rag/storages/vectorstore"
	"ragchatbot/internal/server"
	"ragchatbot/internal/userstore"
	"ragchatbot/pkg/logger"
)

func main() {
	// .env is optional, real deployments set the environment directly.
	_ = godotenv.Load()

	configPath := flag.String("config", "config/config.yaml", "path to the YAML configuration file")
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
	appLogger := logger.New("ChatbotServer", "", "")
	appLogger.Info("Starting chatbot server...")

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable is not set")
	}
	if cfg.Auth.JwtSecret == "" {
		log.Fatal("JWT secret is not configured (set auth.jwtSecret or JWT_SECRET)")
	}

	ctx := context.Background()

	// Backing stores.
	mongoClient, err := mongodb.GetClient(&cfg.Databases.Mongo)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	chats := chatstore.NewMongoChatStore(mongoClient.Database(cfg.Databases.Mongo.Database))

	db, err := mysqldb.GetDB(&cfg.Databases.MySQL)
	if err != nil {
		log.Fatalf("Failed to connect to MySQL: %v", err)
	}
	users, err := userstore.NewStore(db)
	if err != nil {
		log.Fatalf("Failed to migrate user store: %v", err)
	}

	// Model clients.
	timeout := time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second
	var embedder interfaces.EmbeddingModel = embeddings.NewOpenAIModel(apiKey, cfg.OpenAI.EmbeddingModel, timeout)
	if cfg.Databases.Redis.Enabled {
		rdb, err := redisdb.GetClient(&cfg.Databases.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		embedder = embeddings.NewCachedModel(embedder, rdb, cfg.OpenAI.EmbeddingModel, logger.New("EmbeddingCache", "", ""))
	}
	llm := llms.NewOpenAILLM(apiKey, cfg.OpenAI.ChatModel, timeout)

	// Vector index backend.
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

	retriever := pipeline.NewRetriever(embedder, index, cfg.RAG.TopK, cfg.RAG.MinScore, logger.New("Retriever", "", ""))
	synth := pipeline.NewAnswerSynthesizer(llm, cfg.RAG.HistoryTurns, pipeline.SourcesMode(cfg.RAG.SourcesMode), logger.New("Synthesizer", "", ""))

	auth := server.NewAuthService(users, cfg.Auth.JwtSecret, time.Duration(cfg.Auth.TokenTTL)*time.Second)
	handler := server.NewHandler(auth, chats, retriever, synth, logger.New("API", "", ""))

	gin.SetMode(gin.ReleaseMode)
	router := server.SetupRouter(handler, cfg.Auth.JwtSecret)
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		appLogger.Info("HTTP server listening at " + cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP shutdown error: " + err.Error())
	}
	if err := mongodb.Close(shutdownCtx); err != nil {
		appLogger.Error("MongoDB close error: " + err.Error())
	}
	if err := mysqldb.Close(); err != nil {
		appLogger.Error("MySQL close error: " + err.Error())
	}
	if cfg.Databases.Redis.Enabled {
		if err := redisdb.Close(); err != nil {
			appLogger.Error("Redis close error: " + err.Error())
		}
	}
	if cfg.Databases.Milvus.Enabled {
		if err := milvusdb.Close(); err != nil {
			appLogger.Error("Milvus close error: " + err.Error())
		}
	}
	appLogger.Info("Server gracefully stopped")
}
