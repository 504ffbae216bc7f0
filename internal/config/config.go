package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type        string `yaml:"type"` // "openai" or "tfidf"
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	BaseURL     string `yaml:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// GeneratorConfig configures the chat completion model used to answer.
type GeneratorConfig struct {
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	BaseURL     string  `yaml:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	Temperature float32 `yaml:"temperature"`
}

// RerankerConfig configures the Cohere reranker. An empty credential
// disables reranking rather than failing startup.
type RerankerConfig struct {
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	BaseURL     string `yaml:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// NaiveConfig tunes the fixed-size chunking strategy.
type NaiveConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	TopK         int    `yaml:"top_k"`
	Collection   string `yaml:"collection"`
	SystemPrompt string `yaml:"system_prompt"`
}

// AdvancedConfig tunes the sentence-window strategy.
type AdvancedConfig struct {
	WindowSize     int    `yaml:"window_size"`
	MinSentenceLen int    `yaml:"min_sentence_len"`
	TopK           int    `yaml:"top_k"`
	RerankTopN     int    `yaml:"rerank_top_n"`
	Collection     string `yaml:"collection"`
	SystemPrompt   string `yaml:"system_prompt"`
}

// QdrantConfig contains connection details for a Qdrant vector index.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorIndexConfig selects and configures the vector index backend.
type VectorIndexConfig struct {
	Type   string        `yaml:"type"` // "memory" or "qdrant"
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// SummarizerConfig configures the corpus summary shown in the UI.
type SummarizerConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	DataDir     string            `yaml:"data_dir"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Reranker    RerankerConfig    `yaml:"reranker"`
	Naive       NaiveConfig       `yaml:"naive"`
	Advanced    AdvancedConfig    `yaml:"advanced"`
	VectorIndex VectorIndexConfig `yaml:"vector_index"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/ragcompare/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the parts of the config that cannot be defaulted.
// A missing reranker credential is not an error: reranking degrades to
// vector order at query time instead.
func (cfg *AppConfig) Validate() error {
	switch cfg.Embedder.Type {
	case "tfidf":
	case "openai":
		if os.Getenv(cfg.Embedder.APIKeyEnv) == "" {
			return fmt.Errorf("embedder: environment variable %s is not set", cfg.Embedder.APIKeyEnv)
		}
	default:
		return fmt.Errorf("embedder: unknown type %q", cfg.Embedder.Type)
	}

	if os.Getenv(cfg.Generator.APIKeyEnv) == "" {
		return fmt.Errorf("generator: environment variable %s is not set", cfg.Generator.APIKeyEnv)
	}

	switch cfg.VectorIndex.Type {
	case "memory":
	case "qdrant":
		if cfg.VectorIndex.Qdrant == nil || cfg.VectorIndex.Qdrant.URL == "" {
			return fmt.Errorf("vector_index: qdrant backend requires a url")
		}
	default:
		return fmt.Errorf("vector_index: unknown type %q", cfg.VectorIndex.Type)
	}

	if cfg.Naive.Collection == cfg.Advanced.Collection {
		return fmt.Errorf("naive and advanced strategies must use distinct collections")
	}
	return nil
}

// RerankerEnabled reports whether a reranker credential is available.
func (cfg *AppConfig) RerankerEnabled() bool {
	return os.Getenv(cfg.Reranker.APIKeyEnv) != ""
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragcompare", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "text-embedding-3-small"
	}
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 30
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 64
	}

	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "gpt-4o-mini"
	}
	if cfg.Generator.APIKeyEnv == "" {
		cfg.Generator.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = 60
	}

	if cfg.Reranker.Model == "" {
		cfg.Reranker.Model = "rerank-english-v3.0"
	}
	if cfg.Reranker.APIKeyEnv == "" {
		cfg.Reranker.APIKeyEnv = "COHERE_API_KEY"
	}
	if cfg.Reranker.TimeoutSecs == 0 {
		cfg.Reranker.TimeoutSecs = 30
	}

	if cfg.Naive.ChunkSize == 0 {
		cfg.Naive.ChunkSize = 1000
	}
	if cfg.Naive.ChunkOverlap == 0 {
		cfg.Naive.ChunkOverlap = 200
	}
	if cfg.Naive.TopK == 0 {
		cfg.Naive.TopK = 3
	}
	if cfg.Naive.Collection == "" {
		cfg.Naive.Collection = "naive_chunks"
	}

	if cfg.Advanced.WindowSize == 0 {
		cfg.Advanced.WindowSize = 3
	}
	if cfg.Advanced.MinSentenceLen == 0 {
		cfg.Advanced.MinSentenceLen = 20
	}
	if cfg.Advanced.TopK == 0 {
		cfg.Advanced.TopK = 10
	}
	if cfg.Advanced.RerankTopN == 0 {
		cfg.Advanced.RerankTopN = 3
	}
	if cfg.Advanced.Collection == "" {
		cfg.Advanced.Collection = "sentence_windows"
	}

	if cfg.VectorIndex.Type == "" {
		cfg.VectorIndex.Type = "memory"
	}

	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}
}
