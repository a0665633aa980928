package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"address": ":9000"},
		"llm": {"provider": "anthropic", "api_key": "k", "timeout": "30s"},
		"sources": {"web_search": {"enabled": true, "provider": "brave", "brave_api_key": "b"}},
		"research": {"topic_caps": {"video": 3}, "max_concurrency": 8},
		"storage": {"redis": {"enabled": true, "host": "cache", "port": "6380", "ttl": "1h"}}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", cfg.LLM.Model)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.True(t, cfg.LLM.Configured())
	assert.Equal(t, "b", cfg.Sources.WebSearch.APIKey())
	assert.Equal(t, 3, cfg.Research.TopicCaps.Video)
	assert.Equal(t, 2, cfg.Research.TopicCaps.Course, "unset caps keep their defaults")
	assert.Equal(t, 8, cfg.Research.MaxConcurrency)
	assert.Equal(t, "cache:6380", cfg.Storage.Redis.Addr())
	assert.Equal(t, time.Hour, cfg.Storage.Redis.TTL)
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, env := range legacyEnv {
		t.Setenv(env, "")
	}

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Address)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.False(t, cfg.LLM.Configured())
	assert.False(t, cfg.Sources.WebSearch.Enabled)
	assert.Equal(t, KindCaps{Video: 2, Course: 2, Documentation: 1, Book: 1}, cfg.Research.TopicCaps)
	assert.Equal(t, KindCaps{Video: 1, Course: 1}, cfg.Research.SubtopicCaps)
	assert.Equal(t, "careergraph", cfg.Telemetry.ServiceName)
}

func TestLoadConfigLegacyEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("SEARCH_ENABLED", "true")
	t.Setenv("SERPER_API_KEY", "serper-key")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.True(t, cfg.Sources.WebSearch.Enabled)
	assert.Equal(t, "serper", cfg.Sources.WebSearch.Provider)
	assert.Equal(t, "serper-key", cfg.Sources.WebSearch.APIKey())
}

func TestLoadConfigPrefixedEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CAREERGRAPH_LLM_API_KEY", "prefixed")
	t.Setenv("CAREERGRAPH_SERVER_ADDRESS", ":7000")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.LLM.APIKey)
	assert.Equal(t, ":7000", cfg.Server.Address)
}

func TestLoadConfigRejectsInvalidSections(t *testing.T) {
	cases := map[string]string{
		"unknown provider":      `{"llm": {"provider": "gemini"}}`,
		"search without key":    `{"sources": {"web_search": {"enabled": true}}}`,
		"negative caps":         `{"research": {"subtopic_caps": {"book": -1}}}`,
		"redis without a host":  `{"storage": {"redis": {"enabled": true, "host": " "}}}`,
		"temperature too large": `{"llm": {"temperature": 3}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
