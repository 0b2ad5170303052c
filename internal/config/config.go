package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/m-mizutani/goerr/v2"
)

// Provider names accepted by LLM_PROVIDER.
const (
	ProviderArk    = "ark"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

const defaultSQLitePath = "expert-panel.db"

// Config aggregates every section of the service configuration.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	AI       AIConfig
	Chat     ChatConfig
	Store    StoreConfig
	Personas PersonaConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Log:      logCfg,
		AI:       ai,
		Chat:     chat,
		Store:    store,
		Personas: PersonaConfig{File: strings.TrimSpace(os.Getenv("PERSONAS_FILE"))},
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// ":8080" and "127.0.0.1:8080" are used as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, goerr.New("invalid PORT value", goerr.V("value", port))
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string
}

func loadLogConfig() (LogConfig, error) {
	level := strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info"))
	switch level {
	case "debug", "info", "warn", "error":
		return LogConfig{Level: level}, nil
	default:
		return LogConfig{}, goerr.New("invalid LOG_LEVEL value", goerr.V("value", level))
	}
}

// ArkConfig holds Volcengine Ark credentials.
type ArkConfig struct {
	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string
}

// Enabled reports whether a model and a credential pair are present.
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// OpenAIConfig holds credentials for an OpenAI compatible endpoint.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// GeminiConfig holds Gemini API credentials.
type GeminiConfig struct {
	APIKey string
	Model  string
}

func (c GeminiConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// AIConfig describes the completion provider and sampling parameters.
type AIConfig struct {
	Provider string

	Ark    ArkConfig
	OpenAI OpenAIConfig
	Gemini GeminiConfig

	Temperature      float64
	TopP             *float64
	MaxTokens        int
	PresencePenalty  float64
	FrequencyPenalty float64
}

// ResolveProvider returns the provider to use. An explicit LLM_PROVIDER must be
// configured; otherwise the first configured provider wins. An empty result
// means no provider is available.
func (c AIConfig) ResolveProvider() (string, error) {
	switch c.Provider {
	case ProviderArk:
		if !c.Ark.Enabled() {
			return "", goerr.New("ark provider selected but ARK_API_KEY (or AK/SK) and ARK_MODEL are missing")
		}
		return ProviderArk, nil
	case ProviderOpenAI:
		if !c.OpenAI.Enabled() {
			return "", goerr.New("openai provider selected but OPENAI_API_KEY is missing")
		}
		return ProviderOpenAI, nil
	case ProviderGemini:
		if !c.Gemini.Enabled() {
			return "", goerr.New("gemini provider selected but GEMINI_API_KEY is missing")
		}
		return ProviderGemini, nil
	case "":
	default:
		return "", goerr.New("unknown LLM_PROVIDER", goerr.V("provider", c.Provider))
	}

	switch {
	case c.Ark.Enabled():
		return ProviderArk, nil
	case c.OpenAI.Enabled():
		return ProviderOpenAI, nil
	case c.Gemini.Enabled():
		return ProviderGemini, nil
	}
	return "", nil
}

// Temperature32 and friends convert sampling settings to the float32 pointers
// the model SDKs expect.
func (c AIConfig) Temperature32() *float32 {
	return float32Ptr(c.Temperature)
}

func (c AIConfig) TopP32() *float32 {
	if c.TopP == nil {
		return nil
	}
	return float32Ptr(*c.TopP)
}

func (c AIConfig) MaxTokensPtr() *int {
	if c.MaxTokens <= 0 {
		return nil
	}
	val := c.MaxTokens
	return &val
}

// NewChatModel builds the eino chat model for an Ark or OpenAI provider.
func (c AIConfig) NewChatModel(ctx context.Context, provider string) (model.BaseChatModel, error) {
	switch provider {
	case ProviderArk:
		if !c.Ark.Enabled() {
			return nil, goerr.New("ark credentials or model missing, provide ARK_API_KEY + ARK_MODEL or an AK/SK pair")
		}
		cm, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     c.Ark.BaseURL,
			Region:      c.Ark.Region,
			APIKey:      c.Ark.APIKey,
			AccessKey:   c.Ark.AccessKey,
			SecretKey:   c.Ark.SecretKey,
			Model:       c.Ark.Model,
			MaxTokens:   c.MaxTokensPtr(),
			Temperature: c.Temperature32(),
			TopP:        c.TopP32(),
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create ark chat model")
		}
		return cm, nil

	case ProviderOpenAI:
		if !c.OpenAI.Enabled() {
			return nil, goerr.New("openai credentials missing, provide OPENAI_API_KEY")
		}
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:          c.OpenAI.BaseURL,
			APIKey:           c.OpenAI.APIKey,
			Model:            c.OpenAI.Model,
			MaxTokens:        c.MaxTokensPtr(),
			Temperature:      c.Temperature32(),
			TopP:             c.TopP32(),
			PresencePenalty:  float32Ptr(c.PresencePenalty),
			FrequencyPenalty: float32Ptr(c.FrequencyPenalty),
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create openai chat model")
		}
		return cm, nil
	}

	return nil, goerr.New("provider has no eino chat model", goerr.V("provider", provider))
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER")))
	switch provider {
	case "", "auto":
		provider = ""
	case ProviderArk, ProviderOpenAI, ProviderGemini:
	default:
		return AIConfig{}, goerr.New("invalid LLM_PROVIDER value", goerr.V("value", provider))
	}

	temperature, err := parseFloatEnv("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("LLM_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseIntEnv("LLM_MAX_TOKENS", 300)
	if err != nil {
		return AIConfig{}, err
	}

	presence, err := parseFloatEnv("LLM_PRESENCE_PENALTY", 0.1)
	if err != nil {
		return AIConfig{}, err
	}

	frequency, err := parseFloatEnv("LLM_FREQUENCY_PENALTY", 0.1)
	if err != nil {
		return AIConfig{}, err
	}

	arkModel := strings.TrimSpace(os.Getenv("ARK_MODEL"))
	if arkModel == "" {
		arkModel = strings.TrimSpace(os.Getenv("Model"))
	}

	return AIConfig{
		Provider: provider,
		Ark: ArkConfig{
			APIKey:    strings.TrimSpace(os.Getenv("ARK_API_KEY")),
			AccessKey: strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
			SecretKey: strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
			Model:     arkModel,
			BaseURL:   getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			Region:    getEnvOrDefault("ARK_REGION", "cn-beijing"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			Model:   getEnvOrDefault("OPENAI_MODEL", "gpt-3.5-turbo"),
			BaseURL: strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		},
		Gemini: GeminiConfig{
			APIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			Model:  getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Temperature:      temperature,
		TopP:             topP,
		MaxTokens:        maxTokens,
		PresencePenalty:  presence,
		FrequencyPenalty: frequency,
	}, nil
}

// ChatConfig tunes the conversation orchestrator and completion gateway.
type ChatConfig struct {
	HistoryLimit     int
	FallbackToCanned bool
	ReplayDelayMin   time.Duration
	ReplayDelayMax   time.Duration
}

func loadChatConfig() (ChatConfig, error) {
	history, err := parseIntEnv("CHAT_HISTORY_LIMIT", 5)
	if err != nil {
		return ChatConfig{}, err
	}
	if history < 1 {
		history = 1
	}

	canned, err := parseBoolEnv("CHAT_FALLBACK_TO_CANNED", true)
	if err != nil {
		return ChatConfig{}, err
	}

	minMS, err := parseIntEnv("CHAT_REPLAY_DELAY_MIN_MS", 50)
	if err != nil {
		return ChatConfig{}, err
	}
	maxMS, err := parseIntEnv("CHAT_REPLAY_DELAY_MAX_MS", 100)
	if err != nil {
		return ChatConfig{}, err
	}
	if minMS < 0 || maxMS < minMS {
		return ChatConfig{}, goerr.New("invalid replay delay range",
			goerr.V("min_ms", minMS), goerr.V("max_ms", maxMS))
	}

	return ChatConfig{
		HistoryLimit:     history,
		FallbackToCanned: canned,
		ReplayDelayMin:   time.Duration(minMS) * time.Millisecond,
		ReplayDelayMax:   time.Duration(maxMS) * time.Millisecond,
	}, nil
}

// StoreConfig selects the session store.
type StoreConfig struct {
	Driver string
	DSN    string
}

func loadStoreConfig() (StoreConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("STORE_DRIVER", StoreMemory))
	dsn := strings.TrimSpace(os.Getenv("STORE_DSN"))

	switch driver {
	case StoreMemory:
	case StoreSQLite:
		if dsn == "" {
			dsn = defaultSQLitePath
		}
	case StorePostgres:
		if dsn == "" {
			return StoreConfig{}, goerr.New("STORE_DSN is required for the postgres store")
		}
	default:
		return StoreConfig{}, goerr.New("invalid STORE_DRIVER value", goerr.V("value", driver))
	}

	return StoreConfig{Driver: driver, DSN: dsn}, nil
}

// PersonaConfig points at an optional registry override.
type PersonaConfig struct {
	File string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, goerr.Wrap(err, "invalid boolean env value", goerr.V("key", key), goerr.V("value", raw))
	}
	return val, nil
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	val, err := parseOptionalFloatEnv(key)
	if err != nil || val == nil {
		return defaultValue, err
	}
	return *val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid float env value", goerr.V("key", key), goerr.V("value", value))
	}
	return &val, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil || val == nil {
		return defaultValue, err
	}
	return *val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid integer env value", goerr.V("key", key), goerr.V("value", value))
	}
	return &val, nil
}

func float32Ptr(v float64) *float32 {
	val := float32(v)
	return &val
}
