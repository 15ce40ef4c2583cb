package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "server:\n  address: \":9090\"\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Address != ":9090" {
		t.Errorf("server address = %q", cfg.Server.Address)
	}
	if cfg.RAG.ChunkSize != 1000 || cfg.RAG.ChunkOverlap != 150 {
		t.Errorf("chunking defaults = %d/%d, want 1000/150", cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	}
	if cfg.RAG.TopK != 4 {
		t.Errorf("topK default = %d, want 4", cfg.RAG.TopK)
	}
	if cfg.OpenAI.ChatModel == "" || cfg.OpenAI.EmbeddingModel == "" {
		t.Error("model defaults not applied")
	}
	if cfg.RAG.SourcesMode != "context" {
		t.Errorf("sourcesMode default = %q, want context", cfg.RAG.SourcesMode)
	}
}

func TestLoadConfig_EnvOverridesSecret(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwtSecret: \"from-yaml\"\n")
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Auth.JwtSecret != "from-env" {
		t.Errorf("jwtSecret = %q, want env value", cfg.Auth.JwtSecret)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
