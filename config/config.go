package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"docrag/internal/domain"
)

// Config holds all configuration for the RAG service.
type Config struct {
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ChunkingConfig holds text splitting configuration.
type ChunkingConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	Separators   []string `yaml:"separators,omitempty"`
}

// RetrieveConfig holds retrieval and context packing configuration.
type RetrieveConfig struct {
	TopK             int `yaml:"top_k"`
	MaxContextChars  int `yaml:"max_context_chars"`
	MaxContextTokens int `yaml:"max_context_tokens"` // 0 = no token budget
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider     string `yaml:"provider"` // "openai", "ollama", "hash"
	Model        string `yaml:"model"`
	BaseURL      string `yaml:"base_url"`
	APIKeyEnv    string `yaml:"api_key_env"` // Environment variable for API key
	Dimension    int    `yaml:"dimension"`
	BatchSize    int    `yaml:"batch_size"`
	Stemming     bool   `yaml:"stemming"` // hash provider only
	TimeoutSecs  int    `yaml:"timeout_secs"`
	CacheSize    int    `yaml:"cache_size"` // 0 disables the cache
	CacheTTLSecs int    `yaml:"cache_ttl_secs"`
}

// GenerationConfig holds answer generation configuration.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"` // "openai", "ollama", "extractive"
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// IngestConfig holds file discovery configuration.
type IngestConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			ChunkSize:    domain.DefaultChunkSize,
			ChunkOverlap: domain.DefaultChunkOverlap,
		},
		Retrieve: RetrieveConfig{
			TopK:            5,
			MaxContextChars: 8000,
		},
		Embedding: EmbeddingConfig{
			Provider:     "hash",
			Model:        "text-embedding-3-small",
			APIKeyEnv:    "OPENAI_API_KEY",
			Dimension:    256,
			BatchSize:    64,
			Stemming:     true,
			TimeoutSecs:  30,
			CacheSize:    1024,
			CacheTTLSecs: 600,
		},
		Generation: GenerationConfig{
			Provider:    "extractive",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.2,
			MaxTokens:   1024,
			TimeoutSecs: 120,
		},
		Ingest: IngestConfig{
			Includes: []string{"**/*.txt", "**/*.md", "**/*.markdown", "**/*.rst"},
			Excludes: []string{"**/.git/**", "**/node_modules/**", "**/vendor/**", "**/.rag/**"},
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for rag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "rag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".rag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports values no component can run with.
func (c *Config) Validate() error {
	if err := c.ChunkerConfig().Validate(); err != nil {
		return err
	}
	if c.Retrieve.TopK < 0 {
		return fmt.Errorf("%w: retrieve.top_k must not be negative", domain.ErrInvalidConfig)
	}
	if c.Retrieve.MaxContextChars < 0 || c.Retrieve.MaxContextTokens < 0 {
		return fmt.Errorf("%w: context budgets must not be negative", domain.ErrInvalidConfig)
	}
	if c.Embedding.CacheSize < 0 {
		return fmt.Errorf("%w: embedding.cache_size must not be negative", domain.ErrInvalidConfig)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", domain.ErrInvalidConfig, c.Server.Port)
	}
	return nil
}

// ChunkerConfig converts the chunking section to the chunker's config.
// Separators left empty fall back to the defaults.
func (c *Config) ChunkerConfig() domain.ChunkingConfig {
	cc := domain.DefaultChunkingConfig()
	cc.ChunkSize = c.Chunking.ChunkSize
	cc.ChunkOverlap = c.Chunking.ChunkOverlap
	if len(c.Chunking.Separators) > 0 {
		cc.Separators = c.Chunking.Separators
	}
	return cc
}

// APIKey reads the key from the environment variable named by APIKeyEnv.
func (e EmbeddingConfig) APIKey() string {
	return lookupEnv(e.APIKeyEnv)
}

// Timeout returns the per-call embedding timeout.
func (e EmbeddingConfig) Timeout() time.Duration {
	return seconds(e.TimeoutSecs)
}

// CacheTTL returns how long cached vectors stay valid.
func (e EmbeddingConfig) CacheTTL() time.Duration {
	return seconds(e.CacheTTLSecs)
}

// APIKey reads the key from the environment variable named by APIKeyEnv.
func (g GenerationConfig) APIKey() string {
	return lookupEnv(g.APIKeyEnv)
}

// Timeout returns the bound on a whole generation stream.
func (g GenerationConfig) Timeout() time.Duration {
	return seconds(g.TimeoutSecs)
}

func lookupEnv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

// EnsureRAGDir ensures the .rag directory exists.
func EnsureRAGDir(dir string) error {
	ragDir := filepath.Join(dir, ".rag")
	return os.MkdirAll(ragDir, 0755)
}
