package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/askbook/askbook/internal/pkg/logutil"
)

type Config struct {
	Port          int            `json:"port"`
	LogConfig     logutil.Config `json:"log_config"`
	Database      DatabaseConfig `json:"database"`
	AI            AIConfig       `json:"ai"`
	RAG           RAGConfig      `json:"rag"`
	CORSAllowlist []string       `json:"cors_allowlist"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type ProviderConfig struct {
	Model     string                 `json:"model"`
	TimeoutMs int                    `json:"timeout_ms"`
	Data      map[string]interface{} `json:"data"`
}

type EmbeddingConfig struct {
	Provider  string                 `json:"provider"`
	Model     string                 `json:"model"`
	Dimension int                    `json:"dimension"`
	Data      map[string]interface{} `json:"data"`
}

type AIConfig struct {
	ProviderOrder []string                  `json:"provider_order"`
	Providers     map[string]ProviderConfig `json:"providers"`
	Embedding     EmbeddingConfig           `json:"embedding"`
}

type RAGConfig struct {
	RelevanceThreshold float64  `json:"relevance_threshold"`
	TopK               int      `json:"top_k"`
	MaxContextChars    int      `json:"max_context_chars"`
	TriggerPhrases     []string `json:"trigger_phrases"`
	CacheTTLHours      int      `json:"cache_ttl_hours"`
	CacheMaxEntries    int      `json:"cache_max_entries"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if len(cfg.AI.ProviderOrder) == 0 {
		cfg.AI.ProviderOrder = []string{"gemini", "openai", "local"}
	}
	for _, name := range cfg.AI.ProviderOrder {
		if _, ok := cfg.AI.Providers[name]; !ok {
			return fmt.Errorf("ai.providers is missing entry for %q", name)
		}
	}
	for name, provider := range cfg.AI.Providers {
		if provider.TimeoutMs <= 0 {
			provider.TimeoutMs = 30000
		}
		cfg.AI.Providers[name] = provider
	}
	if cfg.AI.Embedding.Provider == "" {
		return fmt.Errorf("ai.embedding.provider is required")
	}
	if cfg.RAG.RelevanceThreshold == 0 {
		cfg.RAG.RelevanceThreshold = 0.40
	}
	if cfg.RAG.RelevanceThreshold < 0 || cfg.RAG.RelevanceThreshold > 1 {
		return fmt.Errorf("rag.relevance_threshold must be within [0,1]")
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = 5
	}
	if cfg.RAG.MaxContextChars <= 0 {
		cfg.RAG.MaxContextChars = 6000
	}
	if cfg.RAG.CacheTTLHours <= 0 {
		cfg.RAG.CacheTTLHours = 240
	}
	if cfg.RAG.CacheMaxEntries <= 0 {
		cfg.RAG.CacheMaxEntries = 10000
	}
	return nil
}
