package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"pdf-rag/internal/models"
)

const (
	DefaultPath = "./configs/config.yaml"

	ProviderLangChain = "langchain"
	ProviderOllama    = "ollama"
	ProviderOpenAISDK = "openai-sdk"

	StorePostgres = "postgres"
	StoreChromem  = "chromem"

	DriverPgdriver = "pgdriver"
	DriverPq       = "postgres"
)

type Config struct {
	Log         LogConfig         `yaml:"log" toml:"log"`
	Server      ServerConfig      `yaml:"server" toml:"server"`
	RAG         RAGConfig         `yaml:"rag" toml:"rag"`
	EmbedLLM    LLMConfig         `yaml:"embed_llm" toml:"embed_llm"`
	ChatLLM     LLMConfig         `yaml:"chat_llm" toml:"chat_llm"`
	Database    DatabaseConfig    `yaml:"database" toml:"database"`
	VectorStore VectorStoreConfig `yaml:"vector_store" toml:"vector_store"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // console or json
}

type ServerConfig struct {
	Addr                  string `yaml:"addr" toml:"addr"`
	ReadHeaderTimeoutSecs int    `yaml:"read_header_timeout_secs" toml:"read_header_timeout_secs"`
	WriteTimeoutSecs      int    `yaml:"write_timeout_secs" toml:"write_timeout_secs"`
	MaxUploadMB           int    `yaml:"max_upload_mb" toml:"max_upload_mb"`
}

// RAGConfig holds the chunking and retrieval knobs
type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size" toml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" toml:"chunk_overlap"`
	SearchTopK   int `yaml:"search_top_k" toml:"search_top_k"`
}

// LLMConfig configures either the embedding or the chat model
type LLMConfig struct {
	Provider          string  `yaml:"provider" toml:"provider"`
	BaseURL           string  `yaml:"base_url" toml:"base_url"`
	Key               string  `yaml:"key" toml:"key"`
	Model             string  `yaml:"model" toml:"model"`
	BatchSize         int     `yaml:"batch_size" toml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second" toml:"requests_per_second"`
	Temperature       float64 `yaml:"temperature" toml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens" toml:"max_tokens"`
}

type DatabaseConfig struct {
	Driver     string `yaml:"driver" toml:"driver"`
	DSN        string `yaml:"dsn" toml:"dsn"`
	Password   string `yaml:"password" toml:"password"`
	VectorSize int    `yaml:"vector_size" toml:"vector_size"`
	BatchSize  int    `yaml:"batch_size" toml:"batch_size"`
	Debug      bool   `yaml:"debug" toml:"debug"`
}

type VectorStoreConfig struct {
	Type    string        `yaml:"type" toml:"type"`
	Chromem ChromemConfig `yaml:"chromem" toml:"chromem"`
}

type ChromemConfig struct {
	Path          string `yaml:"path" toml:"path"`
	Collection    string `yaml:"collection" toml:"collection"`
	InMemory      bool   `yaml:"in_memory" toml:"in_memory"`
	EncryptionKey string `yaml:"encryption_key" toml:"encryption_key"`
}

// EmbeddingModel returns the model used to embed chunks and questions.
func (c *Config) EmbeddingModel() string { return c.EmbedLLM.Model }

// ChatModel returns the model used for answer synthesis.
func (c *Config) ChatModel() string { return c.ChatLLM.Model }

// LoadConfig reads the file at path (YAML or TOML by extension), applies defaults
// and environment overrides, then validates. A missing file yields defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	applyDefaults(cfg)
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, cfg)
	default:
		return yaml.Unmarshal(data, cfg)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.ReadHeaderTimeoutSecs == 0 {
		cfg.Server.ReadHeaderTimeoutSecs = 10
	}
	if cfg.Server.WriteTimeoutSecs == 0 {
		cfg.Server.WriteTimeoutSecs = 120
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 50
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 1000
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = 150
	}
	if cfg.RAG.SearchTopK == 0 {
		cfg.RAG.SearchTopK = 5
	}

	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = ProviderLangChain
	}
	if cfg.EmbedLLM.Model == "" {
		cfg.EmbedLLM.Model = "text-embedding-ada-002"
	}
	if cfg.EmbedLLM.BatchSize == 0 {
		cfg.EmbedLLM.BatchSize = 100
	}

	if cfg.ChatLLM.Provider == "" {
		cfg.ChatLLM.Provider = ProviderLangChain
	}
	if cfg.ChatLLM.Model == "" {
		cfg.ChatLLM.Model = "gpt-4o-mini"
	}
	if cfg.ChatLLM.Temperature == 0 {
		cfg.ChatLLM.Temperature = 0.2
	}
	if cfg.ChatLLM.MaxTokens == 0 {
		cfg.ChatLLM.MaxTokens = 1500
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPgdriver
	}
	if cfg.Database.VectorSize == 0 {
		cfg.Database.VectorSize = 1536
	}
	if cfg.Database.BatchSize == 0 {
		cfg.Database.BatchSize = 50
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = StorePostgres
	}
	if cfg.VectorStore.Chromem.Path == "" {
		cfg.VectorStore.Chromem.Path = "./chromemdb"
	}
	if cfg.VectorStore.Chromem.Collection == "" {
		cfg.VectorStore.Chromem.Collection = "documents"
	}
}

// applyEnv overrides file values with the variables the service has always read.
func applyEnv(cfg *Config) error {
	setString := func(key string, dst ...*string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			for _, d := range dst {
				*d = v
			}
		}
	}
	setInt := func(key string, dst *int) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", models.ErrConfigInvalid, key, v)
		}
		*dst = n
		return nil
	}

	setString("OPENAI_API_KEY", &cfg.EmbedLLM.Key, &cfg.ChatLLM.Key)
	setString("LLM_BASE_URL", &cfg.EmbedLLM.BaseURL, &cfg.ChatLLM.BaseURL)
	setString("EMBEDDING_MODEL", &cfg.EmbedLLM.Model)
	setString("CHAT_MODEL", &cfg.ChatLLM.Model)
	setString("DATABASE_URL", &cfg.Database.DSN)
	setString("DATABASE_PASSWORD", &cfg.Database.Password)
	setString("VECTOR_STORE", &cfg.VectorStore.Type)
	setString("LOG_LEVEL", &cfg.Log.Level)
	setString("SERVER_ADDR", &cfg.Server.Addr)

	for key, dst := range map[string]*int{
		"CHUNK_SIZE":    &cfg.RAG.ChunkSize,
		"CHUNK_OVERLAP": &cfg.RAG.ChunkOverlap,
		"SEARCH_TOP_K":  &cfg.RAG.SearchTopK,
	} {
		if err := setInt(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate fails fast on values that would make chunking or retrieval degenerate.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", models.ErrConfigInvalid, fmt.Sprintf(format, args...))
	}

	if c.RAG.ChunkSize <= 0 {
		return invalid("chunk_size must be > 0, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return invalid("chunk_overlap must be >= 0 and < chunk_size (%d), got %d", c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	}
	if c.RAG.SearchTopK <= 0 {
		return invalid("search_top_k must be > 0, got %d", c.RAG.SearchTopK)
	}
	if c.EmbedLLM.BatchSize <= 0 {
		return invalid("embed_llm.batch_size must be > 0, got %d", c.EmbedLLM.BatchSize)
	}
	if c.Database.BatchSize <= 0 {
		return invalid("database.batch_size must be > 0, got %d", c.Database.BatchSize)
	}
	for name, p := range map[string]string{"embed_llm": c.EmbedLLM.Provider, "chat_llm": c.ChatLLM.Provider} {
		switch p {
		case ProviderLangChain, ProviderOllama, ProviderOpenAISDK:
		default:
			return invalid("unknown %s.provider %q", name, p)
		}
	}
	switch c.VectorStore.Type {
	case StorePostgres, StoreChromem:
	default:
		return invalid("unknown vector_store.type %q", c.VectorStore.Type)
	}
	switch c.Database.Driver {
	case DriverPgdriver, DriverPq:
	default:
		return invalid("unknown database.driver %q", c.Database.Driver)
	}
	if k := c.VectorStore.Chromem.EncryptionKey; k != "" && len(k) != 32 {
		return invalid("vector_store.chromem.encryption_key must be 32 bytes, got %d", len(k))
	}
	return nil
}
