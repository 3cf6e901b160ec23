// Package config loads pipeline configuration from YAML files, environment
// variables, and CLI overrides, in that order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Log       LogConfig       `koanf:"log"`
	LLM       LLMConfig       `koanf:"llm"`
	Knowledge KnowledgeConfig `koanf:"knowledge"`
	Vector    VectorConfig    `koanf:"vector"`
	Retrieval RetrievalConfig `koanf:"retrieval"`
	Crew      CrewConfig      `koanf:"crew"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type LLMConfig struct {
	Provider    string  `koanf:"provider"` // ollama
	Model       string  `koanf:"model"`
	BaseURL     string  `koanf:"base_url"`
	Temperature float64 `koanf:"temperature"`
}

type KnowledgeConfig struct {
	Dir string `koanf:"dir"`
}

type VectorConfig struct {
	QdrantAddr    string `koanf:"qdrant_addr"`
	Collection    string `koanf:"collection"`
	DBPath        string `koanf:"db_path"` // marker/backup directory for the index
	EmbedderModel string `koanf:"embedder_model"`
	EmbedderURL   string `koanf:"embedder_url"`
}

type RetrievalConfig struct {
	TopK           int     `koanf:"top_k"`
	FetchK         int     `koanf:"fetch_k"`
	LambdaMult     float64 `koanf:"lambda_mult"`
	ScoreThreshold float64 `koanf:"score_threshold"`
	ChunkSize      int     `koanf:"chunk_size"`
	ChunkOverlap   int     `koanf:"chunk_overlap"`
}

type CrewConfig struct {
	TasksFile  string `koanf:"tasks_file"`
	AgentsFile string `koanf:"agents_file"`
	StorePath  string `koanf:"store_path"` // SQLite run store
	MaxIter    int    `koanf:"max_iterations"`
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

func defaults(k *koanf.Koanf) {
	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("llm.provider", "ollama")
	k.Set("llm.model", "llama3.2:3b")
	k.Set("llm.base_url", "http://127.0.0.1:11434")
	k.Set("llm.temperature", 0.0)

	k.Set("knowledge.dir", "knowledge")

	k.Set("vector.qdrant_addr", "localhost:6334")
	k.Set("vector.collection", "banking_knowledge")
	k.Set("vector.db_path", "vector_db")
	k.Set("vector.embedder_model", "nomic-embed-text")
	k.Set("vector.embedder_url", "http://127.0.0.1:11434")

	// Retrieval defaults tuned for the banking corpus.
	k.Set("retrieval.top_k", 5)
	k.Set("retrieval.fetch_k", 10)
	k.Set("retrieval.lambda_mult", 0.5)
	k.Set("retrieval.score_threshold", 0.3)
	k.Set("retrieval.chunk_size", 1000)
	k.Set("retrieval.chunk_overlap", 200)

	k.Set("crew.tasks_file", "config/tasks.yaml")
	k.Set("crew.agents_file", "config/agents.yaml")
	k.Set("crew.store_path", "bankcrew.db")
	k.Set("crew.max_iterations", 5)

	k.Set("telemetry.exporter", "stdout")
	k.Set("telemetry.otlp_insecure", true)
}

// Load reads configuration from an optional YAML file and the environment.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

// LoadWithCLI reads configuration like Load and then applies CLI arguments of
// the form "--config path" and "--set key=value" (also accepted with '=').
func LoadWithCLI(args []string) (*Config, error) {
	path := ""
	var sets []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --config")
			}
			path = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			path = strings.TrimPrefix(arg, "--config=")
		case arg == "--set":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --set")
			}
			sets = append(sets, args[i+1])
			i++
		case strings.HasPrefix(arg, "--set="):
			sets = append(sets, strings.TrimPrefix(arg, "--set="))
		default:
			return nil, fmt.Errorf("unknown config argument %q", arg)
		}
	}
	return load(path, sets)
}

func load(path string, sets []string) (*Config, error) {
	k := koanf.New(".")
	defaults(k)

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (BANKCREW_LLM_BASE_URL -> llm.base_url). Sections are
	// single words, so only the first underscore separates section from key.
	if err := k.Load(env.Provider("BANKCREW_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "BANKCREW_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, err
	}

	// 3. Apply CLI --set overrides, highest precedence.
	for _, set := range sets {
		key, value, ok := strings.Cut(set, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set %q, want key=value", set)
		}
		k.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
