package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"` // Listen address, e.g. ":8080"
}

// AuthConfig holds JWT authentication settings.
type AuthConfig struct {
	JwtSecret string `yaml:"jwtSecret"` // HMAC signing secret; overridable via JWT_SECRET
	TokenTTL  int    `yaml:"tokenTTL"`  // Token lifetime in seconds
}

// MongoConfig holds the MongoDB connection settings for the chat store.
type MongoConfig struct {
	Address  string `yaml:"address"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// MySQLConfig holds the MySQL connection settings for the user store.
type MySQLConfig struct {
	Address  string `yaml:"address"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RedisConfig holds the Redis connection settings for the embedding cache.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MilvusConfig holds the Milvus connection settings. When disabled, the
// server falls back to the local snapshot index.
type MilvusConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Address    string `yaml:"address"`
	Collection string `yaml:"collection"`
	Dim        int    `yaml:"dim"` // Vector dimension of the collection schema
}

// DatabaseConfigs groups all backing store settings.
type DatabaseConfigs struct {
	Mongo  MongoConfig  `yaml:"mongo"`
	MySQL  MySQLConfig  `yaml:"mysql"`
	Redis  RedisConfig  `yaml:"redis"`
	Milvus MilvusConfig `yaml:"milvus"`
}

// OpenAIConfig holds the model provider settings. The API key is taken from
// the OPENAI_API_KEY environment variable, never from the YAML file.
type OpenAIConfig struct {
	ChatModel      string `yaml:"chatModel"`      // e.g. "gpt-4.1-mini"
	EmbeddingModel string `yaml:"embeddingModel"` // e.g. "text-embedding-3-small"
	TimeoutSeconds int    `yaml:"timeoutSeconds"` // Per-call timeout for request-time model calls
}

// RAGConfig holds the retrieval pipeline tuning knobs.
type RAGConfig struct {
	ChunkSize      int     `yaml:"chunkSize"`      // Max chunk length in runes
	ChunkOverlap   int     `yaml:"chunkOverlap"`   // Overlap between consecutive chunks, in runes
	TopK           int     `yaml:"topK"`           // Number of passages to retrieve
	MinScore       float64 `yaml:"minScore"`       // Cosine similarity floor for a passage to qualify
	BatchSize      int     `yaml:"batchSize"`      // Embedding batch size during ingestion
	HistoryTurns   int     `yaml:"historyTurns"`   // Conversation turns passed to the model
	SourcesMode    string  `yaml:"sourcesMode"`    // "context" or "cited"
	IndexSnapshot  string  `yaml:"indexSnapshot"`  // Snapshot path for the local index backend
}

// LoggerConfig controls log verbosity.
type LoggerConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// AppConfig is the root configuration for all services.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	RAG       RAGConfig       `yaml:"rag"`
	Logger    LoggerConfig    `yaml:"logger"`
	Databases DatabaseConfigs `yaml:"databases"`
}

// LoadConfig reads and parses the YAML configuration file at path, then
// applies environment overrides for secrets.
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 3600
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4.1-mini"
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if c.OpenAI.TimeoutSeconds == 0 {
		c.OpenAI.TimeoutSeconds = 30
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = 1000
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = 150
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = 4
	}
	if c.RAG.MinScore == 0 {
		c.RAG.MinScore = 0.25
	}
	if c.RAG.BatchSize == 0 {
		c.RAG.BatchSize = 64
	}
	if c.RAG.HistoryTurns == 0 {
		c.RAG.HistoryTurns = 10
	}
	if c.RAG.SourcesMode == "" {
		c.RAG.SourcesMode = "context"
	}
	if c.RAG.IndexSnapshot == "" {
		c.RAG.IndexSnapshot = "data/index.json"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
}

// applyEnvOverrides pulls secrets from the environment so they never need to
// live in the YAML file.
func (c *AppConfig) applyEnvOverrides() {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JwtSecret = v
	}
	if v := os.Getenv("MONGO_PASSWORD"); v != "" {
		c.Databases.Mongo.Password = v
	}
	if v := os.Getenv("MYSQL_PASSWORD"); v != "" {
		c.Databases.MySQL.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Databases.Redis.Password = v
	}
}
