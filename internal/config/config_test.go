package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"PORT", "LOG_LEVEL", "LLM_PROVIDER",
	"ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "ARK_MODEL", "Model", "ARK_BASE_URL", "ARK_REGION",
	"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "GEMINI_API_KEY", "GEMINI_MODEL",
	"LLM_TEMPERATURE", "LLM_TOP_P", "LLM_MAX_TOKENS", "LLM_PRESENCE_PENALTY", "LLM_FREQUENCY_PENALTY",
	"CHAT_HISTORY_LIMIT", "CHAT_FALLBACK_TO_CANNED", "CHAT_REPLAY_DELAY_MIN_MS", "CHAT_REPLAY_DELAY_MAX_MS",
	"STORE_DRIVER", "STORE_DSN", "PERSONAS_FILE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "", cfg.AI.Provider)
	assert.Equal(t, 0.7, cfg.AI.Temperature)
	assert.Nil(t, cfg.AI.TopP)
	assert.Equal(t, 300, cfg.AI.MaxTokens)
	assert.Equal(t, 0.1, cfg.AI.PresencePenalty)
	assert.Equal(t, 0.1, cfg.AI.FrequencyPenalty)
	assert.Equal(t, "gpt-3.5-turbo", cfg.AI.OpenAI.Model)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Gemini.Model)
	assert.Equal(t, 5, cfg.Chat.HistoryLimit)
	assert.True(t, cfg.Chat.FallbackToCanned)
	assert.Equal(t, 50*time.Millisecond, cfg.Chat.ReplayDelayMin)
	assert.Equal(t, 100*time.Millisecond, cfg.Chat.ReplayDelayMax)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Empty(t, cfg.Personas.File)
}

func TestLoadServerAddr(t *testing.T) {
	clearEnv(t)

	t.Setenv("PORT", "127.0.0.1:9000")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)

	t.Setenv("PORT", "80 80")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	cases := map[string]string{
		"LOG_LEVEL":                "verbose",
		"LLM_PROVIDER":             "claude",
		"LLM_TEMPERATURE":          "warm",
		"LLM_MAX_TOKENS":           "many",
		"CHAT_FALLBACK_TO_CANNED":  "sometimes",
		"CHAT_REPLAY_DELAY_MIN_MS": "200",
		"STORE_DRIVER":             "redis",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoadHistoryLimitFloor(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAT_HISTORY_LIMIT", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Chat.HistoryLimit)
}

func TestLoadStoreDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, defaultSQLitePath, cfg.Store.DSN)

	t.Setenv("STORE_DRIVER", "postgres")
	_, err = Load()
	require.Error(t, err, "postgres needs a DSN")

	t.Setenv("STORE_DSN", "postgres://localhost/panel")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, StorePostgres, cfg.Store.Driver)
}

func TestArkModelFallsBackToLegacyKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("Model", "doubao-pro")
	t.Setenv("ARK_API_KEY", "k")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "doubao-pro", cfg.AI.Ark.Model)
	assert.True(t, cfg.AI.Ark.Enabled())
}

func TestResolveProvider(t *testing.T) {
	configured := AIConfig{
		OpenAI: OpenAIConfig{APIKey: "o", Model: "gpt-3.5-turbo"},
		Gemini: GeminiConfig{APIKey: "g", Model: "gemini-2.5-flash"},
	}

	provider, err := configured.ResolveProvider()
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, provider, "auto picks the first configured provider")

	configured.Provider = ProviderGemini
	provider, err = configured.ResolveProvider()
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, provider)

	configured.Provider = ProviderArk
	_, err = configured.ResolveProvider()
	require.Error(t, err, "explicit provider must be configured")

	provider, err = AIConfig{}.ResolveProvider()
	require.NoError(t, err)
	assert.Empty(t, provider)
}

func TestSamplingPointers(t *testing.T) {
	topP := 0.9
	cfg := AIConfig{Temperature: 0.5, TopP: &topP, MaxTokens: 0}

	require.NotNil(t, cfg.Temperature32())
	assert.InDelta(t, 0.5, *cfg.Temperature32(), 1e-6)
	require.NotNil(t, cfg.TopP32())
	assert.InDelta(t, 0.9, *cfg.TopP32(), 1e-6)
	assert.Nil(t, cfg.MaxTokensPtr())

	cfg.MaxTokens = 300
	require.NotNil(t, cfg.MaxTokensPtr())
	assert.Equal(t, 300, *cfg.MaxTokensPtr())
}
