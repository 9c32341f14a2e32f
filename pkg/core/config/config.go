// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the main configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	LLM         LLMConfig         `yaml:"llm"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	QAStore     QAStoreConfig     `yaml:"qa_store"`
	Documents   DocumentsConfig   `yaml:"documents"`
	RAG         RAGConfig         `yaml:"rag"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig selects log level and format
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// LLMConfig selects the chat model provider
type LLMConfig struct {
	Provider  string `yaml:"provider"` // "openai", "gemini" or "mock"
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"` // OpenAI-compatible endpoint
	MaxTokens int    `yaml:"max_tokens"`
}

// EmbeddingConfig contains embedding service configuration
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`   // "openai", "gemini" or "mock"
	Endpoint   string `yaml:"endpoint"`   // e.g. "https://api.openai.com/v1"
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`      // e.g. "text-embedding-3-small"
	Dimensions int    `yaml:"dimensions"` // default 384
}

// VectorStoreConfig contains vector store backend configuration
type VectorStoreConfig struct {
	Type          string `yaml:"type"`           // "memory" (default), "milvus" or "pgvector"
	MilvusAddress string `yaml:"milvus_address"` // e.g. "localhost:19530"
	Collection    string `yaml:"collection"`
	PgvectorDSN   string `yaml:"pgvector_dsn"`
	Table         string `yaml:"table"`
}

// ObjectStoreConfig contains upload storage configuration
type ObjectStoreConfig struct {
	Type     string `yaml:"type"` // "memory" (default), "filesystem" or "s3"
	BaseDir  string `yaml:"base_dir"`
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"` // S3-compatible endpoint, e.g. MinIO
	Prefix   string `yaml:"prefix"`
}

// QAStoreConfig points at the Q&A application's database
type QAStoreConfig struct {
	Type    string `yaml:"type"` // "sqlite" (default), "postgres" or "memory"
	DSN     string `yaml:"dsn"`
	Migrate bool   `yaml:"migrate"`
}

// DocumentsConfig tunes upload validation and chunking
type DocumentsConfig struct {
	MaxFileSizeMB int `yaml:"max_file_size_mb"`
	ChunkSize     int `yaml:"chunk_size"`
	ChunkOverlap  int `yaml:"chunk_overlap"`
}

// RAGConfig tunes retrieval and generation
type RAGConfig struct {
	TopK             int     `yaml:"top_k"`
	Temperature      float64 `yaml:"temperature"`
	UseSystemMessage bool    `yaml:"use_system_message"`
	AcceptedMarker   string  `yaml:"accepted_marker"`
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := base()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns default configuration with environment overrides applied
func Default() *Config {
	cfg := base()
	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg
}

// base holds the defaults a zero value cannot express.
func base() *Config {
	return &Config{
		RAG:       RAGConfig{Temperature: 0.7},
		Documents: DocumentsConfig{ChunkOverlap: 200},
	}
}

// applyEnv overrides file settings with environment variables.
func applyEnv(cfg *Config) {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	setInt := func(dst *int, key string) {
		if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
			*dst = v
		}
	}

	setString(&cfg.Logging.Level, "LOG_LEVEL")

	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	switch cfg.LLM.Provider {
	case "gemini":
		setString(&cfg.LLM.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
		setString(&cfg.LLM.Model, "GEMINI_MODEL")
	default:
		setString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
		setString(&cfg.LLM.Model, "OPENAI_MODEL")
		setString(&cfg.LLM.BaseURL, "OPENAI_API_ENDPOINT")
	}
	if v, err := strconv.ParseFloat(os.Getenv("LLM_TEMPERATURE"), 64); err == nil {
		cfg.RAG.Temperature = v
	}

	// Embedding env overrides
	setString(&cfg.Embedding.Provider, "EMBEDDING_PROVIDER")
	setString(&cfg.Embedding.Endpoint, "EMBEDDING_ENDPOINT")
	setString(&cfg.Embedding.APIKey, "EMBEDDING_API_KEY")
	setString(&cfg.Embedding.Model, "EMBEDDING_MODEL")
	setInt(&cfg.Embedding.Dimensions, "EMBEDDING_DIMENSIONS")

	// Vector store env overrides
	if v := os.Getenv("MILVUS_ADDRESS"); v != "" {
		cfg.VectorStore.MilvusAddress = v
		cfg.VectorStore.Type = "milvus"
	}
	if v := os.Getenv("PGVECTOR_DSN"); v != "" {
		cfg.VectorStore.PgvectorDSN = v
		cfg.VectorStore.Type = "pgvector"
	}

	if v := os.Getenv("S3_BUCKET_NAME"); v != "" {
		cfg.ObjectStore.Bucket = v
		cfg.ObjectStore.Type = "s3"
	}
	setString(&cfg.ObjectStore.Region, "AWS_REGION")
	setString(&cfg.ObjectStore.Prefix, "S3_PREFIX")
	setString(&cfg.ObjectStore.Endpoint, "S3_ENDPOINT")

	if v := os.Getenv("QA_DATABASE_URL"); v != "" {
		cfg.QAStore.DSN = v
		cfg.QAStore.Type = "postgres"
	}

	setInt(&cfg.Documents.ChunkSize, "CHUNK_SIZE")
	setInt(&cfg.Documents.ChunkOverlap, "CHUNK_OVERLAP")
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyLoggingDefaults(&cfg.Logging)
	applyLLMDefaults(&cfg.LLM)
	applyEmbeddingDefaults(&cfg.Embedding, cfg.LLM)
	applyVectorStoreDefaults(&cfg.VectorStore)
	applyObjectStoreDefaults(&cfg.ObjectStore)
	applyQAStoreDefaults(&cfg.QAStore)
	applyDocumentsDefaults(&cfg.Documents)
	applyRAGDefaults(&cfg.RAG)
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "json"
	}
}

func applyLLMDefaults(cfg *LLMConfig) {
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
}

// applyEmbeddingDefaults inherits provider and credentials from the LLM
// section when the embedding section leaves them unset.
func applyEmbeddingDefaults(cfg *EmbeddingConfig, llm LLMConfig) {
	if cfg.Provider == "" {
		cfg.Provider = llm.Provider
	}
	if cfg.Provider == llm.Provider {
		if cfg.APIKey == "" {
			cfg.APIKey = llm.APIKey
		}
		if cfg.Endpoint == "" {
			cfg.Endpoint = llm.BaseURL
		}
	}
	if cfg.Model == "" && cfg.Provider == "openai" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 384
	}
}

func applyVectorStoreDefaults(cfg *VectorStoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.Collection == "" {
		cfg.Collection = "rag_documents"
	}
	if cfg.Table == "" {
		cfg.Table = "rag_documents"
	}
}

func applyObjectStoreDefaults(cfg *ObjectStoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "documents/"
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = "data/uploads"
	}
}

func applyQAStoreDefaults(cfg *QAStoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "sqlite"
	}
	if cfg.DSN == "" && cfg.Type == "sqlite" {
		cfg.DSN = "file:qa.db?_pragma=busy_timeout(5000)"
	}
}

func applyDocumentsDefaults(cfg *DocumentsConfig) {
	if cfg.MaxFileSizeMB == 0 {
		cfg.MaxFileSizeMB = 10
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 1000
	}
}

func applyRAGDefaults(cfg *RAGConfig) {
	if cfg.TopK == 0 {
		cfg.TopK = 3
	}
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Params returns the registry parameters for the chat provider.
func (c LLMConfig) Params() map[string]string {
	return map[string]string{
		"api_key":  c.APIKey,
		"base_url": c.BaseURL,
		"model":    c.Model,
	}
}

// Params returns the registry parameters for the embedding provider.
func (c EmbeddingConfig) Params() map[string]string {
	return map[string]string{
		"api_key":    c.APIKey,
		"base_url":   c.Endpoint,
		"model":      c.Model,
		"dimensions": strconv.Itoa(c.Dimensions),
	}
}

// Params returns the registry parameters for the vector store backend.
func (c VectorStoreConfig) Params() map[string]string {
	return map[string]string{
		"address":    c.MilvusAddress,
		"collection": c.Collection,
		"dsn":        c.PgvectorDSN,
		"table":      c.Table,
	}
}

// Params returns the registry parameters for the object store backend.
func (c ObjectStoreConfig) Params() map[string]string {
	return map[string]string{
		"base_dir": c.BaseDir,
		"bucket":   c.Bucket,
		"region":   c.Region,
		"endpoint": c.Endpoint,
	}
}

// Params returns the registry parameters for the Q&A store backend.
func (c QAStoreConfig) Params() map[string]string {
	return map[string]string{
		"dsn":     c.DSN,
		"migrate": strconv.FormatBool(c.Migrate),
	}
}
