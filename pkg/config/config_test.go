package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.Provider != "ollama" {
		t.Errorf("expected default provider ollama, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "llama3.2:3b" {
		t.Errorf("expected default model llama3.2:3b, got %s", cfg.LLM.Model)
	}
	if cfg.Vector.Collection != "banking_knowledge" {
		t.Errorf("expected default collection banking_knowledge, got %s", cfg.Vector.Collection)
	}
	if cfg.Retrieval.TopK != 5 || cfg.Retrieval.FetchK != 10 {
		t.Errorf("expected retrieval defaults 5/10, got %d/%d", cfg.Retrieval.TopK, cfg.Retrieval.FetchK)
	}
	if cfg.Retrieval.ChunkSize != 1000 || cfg.Retrieval.ChunkOverlap != 200 {
		t.Errorf("expected chunk defaults 1000/200, got %d/%d", cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	}
}

func TestLoadEnv(t *testing.T) {
	os.Setenv("BANKCREW_LLM_MODEL", "llama3.1:8b")
	defer os.Unsetenv("BANKCREW_LLM_MODEL")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.Model != "llama3.1:8b" {
		t.Errorf("expected model llama3.1:8b from env, got %s", cfg.LLM.Model)
	}
}

func TestLoadEnvUnderscoreKeys(t *testing.T) {
	os.Setenv("BANKCREW_LLM_BASE_URL", "http://ollama:11434")
	os.Setenv("BANKCREW_VECTOR_QDRANT_ADDR", "qdrant:6334")
	os.Setenv("BANKCREW_RETRIEVAL_TOP_K", "3")
	defer os.Unsetenv("BANKCREW_LLM_BASE_URL")
	defer os.Unsetenv("BANKCREW_VECTOR_QDRANT_ADDR")
	defer os.Unsetenv("BANKCREW_RETRIEVAL_TOP_K")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.BaseURL != "http://ollama:11434" {
		t.Errorf("expected base URL from env, got %s", cfg.LLM.BaseURL)
	}
	if cfg.Vector.QdrantAddr != "qdrant:6334" {
		t.Errorf("expected qdrant addr from env, got %s", cfg.Vector.QdrantAddr)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("expected top_k from env, got %d", cfg.Retrieval.TopK)
	}
}

func TestLoadFile(t *testing.T) {
	tmpDir := t.TempDir()

	fileConfig := `
llm:
  model: "llama3.2:1b"
knowledge:
  dir: "kb"
vector:
  collection: "branch_knowledge"
log:
  level: "debug"
`
	path := filepath.Join(tmpDir, "bankcrew.yaml")
	if err := os.WriteFile(path, []byte(fileConfig), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.Model != "llama3.2:1b" {
		t.Errorf("expected model from file, got %s", cfg.LLM.Model)
	}
	if cfg.Knowledge.Dir != "kb" {
		t.Errorf("expected knowledge dir kb, got %s", cfg.Knowledge.Dir)
	}
	if cfg.Vector.Collection != "branch_knowledge" {
		t.Errorf("expected collection override, got %s", cfg.Vector.Collection)
	}
	// untouched keys keep defaults
	if cfg.Vector.QdrantAddr != "localhost:6334" {
		t.Errorf("expected default qdrant addr, got %s", cfg.Vector.QdrantAddr)
	}
}

func TestLoadWithCLI(t *testing.T) {
	tmpDir := t.TempDir()

	fileConfig := `
log:
  level: "info"
`
	path := filepath.Join(tmpDir, "bankcrew.yaml")
	if err := os.WriteFile(path, []byte(fileConfig), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadWithCLI([]string{
		"--config", path,
		"--set", "log.level=debug",
		"--set=crew.max_iterations=3",
	})
	if err != nil {
		t.Fatalf("LoadWithCLI failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("expected --set to win over file, got %s", cfg.Log.Level)
	}
	if cfg.Crew.MaxIter != 3 {
		t.Errorf("expected max_iterations 3, got %d", cfg.Crew.MaxIter)
	}
}

func TestLoadWithCLIRejectsUnknownArg(t *testing.T) {
	if _, err := LoadWithCLI([]string{"--bogus"}); err == nil {
		t.Fatal("expected error for unknown argument")
	}
}

func TestLoadWithCLIRejectsMalformedSet(t *testing.T) {
	if _, err := LoadWithCLI([]string{"--set", "no-equals"}); err == nil {
		t.Fatal("expected error for malformed --set")
	}
}
