package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"database": {"host": "localhost", "port": 5432, "user": "askbook", "db_name": "askbook"},
		"ai": {
			"providers": {
				"gemini": {"model": "gemini-2.0-flash", "data": {"api_key": "k"}},
				"openai": {"model": "gpt-4o-mini", "data": {"api_key": "k"}},
				"local": {"model": "llama3", "data": {}}
			},
			"embedding": {"provider": "gemini", "model": "text-embedding-004", "data": {"api_key": "k"}}
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, []string{"gemini", "openai", "local"}, cfg.AI.ProviderOrder)
	require.Equal(t, 30000, cfg.AI.Providers["gemini"].TimeoutMs)
	require.Equal(t, 0.40, cfg.RAG.RelevanceThreshold)
	require.Equal(t, 5, cfg.RAG.TopK)
	require.Equal(t, 6000, cfg.RAG.MaxContextChars)
	require.Equal(t, 240, cfg.RAG.CacheTTLHours)
	require.Equal(t, 10000, cfg.RAG.CacheMaxEntries)
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `{
		"port": 9000,
		"database": {"dsn": "postgres://localhost/askbook"},
		"ai": {
			"provider_order": ["openai"],
			"providers": {"openai": {"model": "gpt-4o", "timeout_ms": 5000, "data": {"api_key": "k"}}},
			"embedding": {"provider": "openai", "model": "text-embedding-3-small", "data": {"api_key": "k"}}
		},
		"rag": {"relevance_threshold": 0.55, "top_k": 3}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"openai"}, cfg.AI.ProviderOrder)
	require.Equal(t, 5000, cfg.AI.Providers["openai"].TimeoutMs)
	require.Equal(t, 0.55, cfg.RAG.RelevanceThreshold)
	require.Equal(t, 3, cfg.RAG.TopK)
}

func TestLoadRejectsMissingPort(t *testing.T) {
	path := writeConfig(t, `{
		"database": {"dsn": "postgres://localhost/askbook"},
		"ai": {
			"providers": {"gemini": {"model": "m", "data": {}}},
			"embedding": {"provider": "gemini", "model": "m"}
		}
	}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMissingDatabase(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"ai": {
			"providers": {"gemini": {"model": "m", "data": {}}},
			"embedding": {"provider": "gemini", "model": "m"}
		}
	}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsUnconfiguredOrderEntry(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"database": {"dsn": "postgres://localhost/askbook"},
		"ai": {
			"provider_order": ["gemini", "openai"],
			"providers": {"gemini": {"model": "m", "data": {}}},
			"embedding": {"provider": "gemini", "model": "m"}
		}
	}`)
	_, err := Load(path)
	require.ErrorContains(t, err, "openai")
}

func TestLoadRejectsThresholdOutOfRange(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"database": {"dsn": "postgres://localhost/askbook"},
		"ai": {
			"providers": {"gemini": {"model": "m", "data": {}}},
			"embedding": {"provider": "gemini", "model": "m"}
		},
		"rag": {"relevance_threshold": 1.2}
	}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMissingEmbeddingProvider(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"database": {"dsn": "postgres://localhost/askbook"},
		"ai": {
			"providers": {"gemini": {"model": "m", "data": {}}}
		}
	}`)
	_, err := Load(path)
	require.ErrorContains(t, err, "embedding")
}
