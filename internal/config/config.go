package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FetcherConfig configures how web pages are downloaded.
type FetcherConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs"`
	UserAgent   string `yaml:"user_agent"`
	Concurrency int    `yaml:"concurrency"`
	MaxBodyMB   int    `yaml:"max_body_mb"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type      string `yaml:"type"`
	Size      int    `yaml:"size"`
	Overlap   int    `yaml:"overlap"`
	Separator string `yaml:"separator"`
}

// EmbedderConfig configures the OpenAI-compatible embedder.
type EmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
	CacheSize   int    `yaml:"cache_size"`
}

// LLMConfig configures the answer-synthesis model.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	API         string  `yaml:"api"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// MilvusConfig contains connection details for Zilliz Cloud / Milvus.
type MilvusConfig struct {
	CollectionPrefix string `yaml:"collection_prefix"`
	Metric           string `yaml:"metric"`
	AllowInsecure    bool   `yaml:"allow_insecure"`
	InsertBatchSize  int    `yaml:"insert_batch_size"`
	TimeoutSecs      int    `yaml:"timeout_secs"`
}

// MemoryConfig configures the in-process vector store.
type MemoryConfig struct {
	Metric string `yaml:"metric"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Milvus *MilvusConfig `yaml:"milvus,omitempty"`
	Memory *MemoryConfig `yaml:"memory,omitempty"`
}

// QAConfig configures the retrieval-answering pipeline.
type QAConfig struct {
	TopK            int  `yaml:"top_k"`
	MapConcurrency  int  `yaml:"map_concurrency"`
	MaxCombineChars int  `yaml:"max_combine_chars"`
	TimeoutSecs     int  `yaml:"timeout_secs"`
	ShowSources     bool `yaml:"show_sources"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Fetcher     FetcherConfig     `yaml:"fetcher"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	LLM         LLMConfig         `yaml:"llm"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	QA          QAConfig          `yaml:"qa"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./webqa.yaml first, then ~/.config/webqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/webqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "webqa.yaml"
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
	cfg := Default()
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

// Validate rejects settings no component can work with.
func (c *AppConfig) Validate() error {
	switch c.Chunker.Type {
	case "character", "sentence":
	default:
		return fmt.Errorf("unknown chunker: %s", c.Chunker.Type)
	}
	if c.Chunker.Size <= 0 {
		return fmt.Errorf("chunker.size must be positive, got %d", c.Chunker.Size)
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size {
		return fmt.Errorf("chunker.overlap must be in [0, %d), got %d", c.Chunker.Size, c.Chunker.Overlap)
	}
	switch c.LLM.API {
	case "completions", "chat":
	default:
		return fmt.Errorf("unknown llm api: %s", c.LLM.API)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be in [0, 2], got %v", c.LLM.Temperature)
	}
	switch c.VectorStore.Type {
	case "milvus", "memory":
	default:
		return fmt.Errorf("unknown vector store: %s", c.VectorStore.Type)
	}
	if c.QA.TopK <= 0 {
		return fmt.Errorf("qa.top_k must be positive, got %d", c.QA.TopK)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "webqa", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Fetcher.TimeoutSecs == 0 {
		cfg.Fetcher.TimeoutSecs = 30
	}
	if cfg.Fetcher.UserAgent == "" {
		cfg.Fetcher.UserAgent = "webqa/1.0 (+https://github.com/webqa)"
	}
	if cfg.Fetcher.Concurrency == 0 {
		cfg.Fetcher.Concurrency = 4
	}
	if cfg.Fetcher.MaxBodyMB == 0 {
		cfg.Fetcher.MaxBodyMB = 10
	}

	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "character"
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = 1024
	}
	if cfg.Chunker.Separator == "" {
		cfg.Chunker.Separator = "\n\n"
	}

	if cfg.Embedder.BaseURL == "" {
		cfg.Embedder.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "text-embedding-ada-002"
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 60
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 64
	}
	if cfg.Embedder.CacheSize == 0 {
		cfg.Embedder.CacheSize = 256
	}

	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.API == "" {
		cfg.LLM.API = "completions"
	}
	if cfg.LLM.Model == "" {
		if cfg.LLM.API == "chat" {
			cfg.LLM.Model = "gpt-4o-mini"
		} else {
			cfg.LLM.Model = "gpt-3.5-turbo-instruct"
		}
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 256
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 60
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "milvus"
	}
	if cfg.VectorStore.Type == "milvus" {
		if cfg.VectorStore.Milvus == nil {
			cfg.VectorStore.Milvus = &MilvusConfig{}
		}
		m := cfg.VectorStore.Milvus
		if m.CollectionPrefix == "" {
			m.CollectionPrefix = "webqa"
		}
		if m.Metric == "" {
			m.Metric = "L2"
		}
		if m.InsertBatchSize == 0 {
			m.InsertBatchSize = 500
		}
		if m.TimeoutSecs == 0 {
			m.TimeoutSecs = 60
		}
	}
	if cfg.VectorStore.Type == "memory" {
		if cfg.VectorStore.Memory == nil {
			cfg.VectorStore.Memory = &MemoryConfig{}
		}
		if cfg.VectorStore.Memory.Metric == "" {
			cfg.VectorStore.Memory.Metric = "L2"
		}
	}

	if cfg.QA.TopK == 0 {
		cfg.QA.TopK = 4
	}
	if cfg.QA.MapConcurrency == 0 {
		cfg.QA.MapConcurrency = 4
	}
	if cfg.QA.MaxCombineChars == 0 {
		cfg.QA.MaxCombineChars = 12000
	}
	if cfg.QA.TimeoutSecs == 0 {
		cfg.QA.TimeoutSecs = 120
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "0.0.0.0:7860"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxFiles == 0 {
		cfg.Log.MaxFiles = 5
	}
}
