package embedding

import (
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Provider names accepted by EMBEDDING_PROVIDER.
const (
	ProviderOllama = providerOllama
	ProviderGemini = providerGemini
	ProviderOpenAI = providerOpenAI
)

// SupportedProviders lists the accepted provider names in display order.
var SupportedProviders = []string{ProviderOllama, ProviderGemini, ProviderOpenAI}

// Environment variables read by SettingsFromEnv.
const (
	EnvProvider = "EMBEDDING_PROVIDER"

	EnvOllamaHost        = "OLLAMA_HOST"
	EnvOllamaModel       = "DEFAULT_EMBEDDING_MODEL"
	EnvOllamaTimeout     = "OLLAMA_TIMEOUT"
	EnvOllamaConcurrency = "OLLAMA_CONCURRENCY"

	EnvGeminiAPIKey   = "GEMINI_API_KEY"
	EnvGeminiModel    = "GEMINI_EMBEDDING_MODEL"
	EnvGeminiTaskType = "GEMINI_EMBEDDING_TASK_TYPE"
	EnvGeminiDim      = "GEMINI_EMBEDDING_DIM"
	EnvGeminiTimeout  = "GEMINI_TIMEOUT"
	EnvGeminiBaseURL  = "GEMINI_BASE_URL"

	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOpenAIModel   = "OPENAI_EMBEDDING_MODEL"
	EnvOpenAIDim     = "OPENAI_EMBEDDING_DIM"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvOpenAITimeout = "OPENAI_TIMEOUT"
)

// Settings is the raw, unvalidated provider configuration. Values are kept
// as literals so New can report exactly which one is malformed.
type Settings struct {
	Provider string         `json:"provider"`
	Ollama   OllamaSettings `json:"ollama"`
	Gemini   GeminiSettings `json:"gemini"`
	OpenAI   OpenAISettings `json:"openai"`
}

type OllamaSettings struct {
	Host        string `json:"host"`
	Model       string `json:"model"`
	Timeout     string `json:"timeout"`
	Concurrency string `json:"concurrency"`
}

type GeminiSettings struct {
	APIKey    string `json:"api_key"`
	Model     string `json:"model"`
	TaskType  string `json:"task_type"`
	Dimension string `json:"dimension"`
	Timeout   string `json:"timeout"`
	BaseURL   string `json:"base_url"`
}

type OpenAISettings struct {
	APIKey    string `json:"api_key"`
	Model     string `json:"model"`
	Dimension string `json:"dimension"`
	BaseURL   string `json:"base_url"`
	Timeout   string `json:"timeout"`
}

// SettingsFromEnv reads Settings through lookup, usually os.LookupEnv.
func SettingsFromEnv(lookup func(string) (string, bool)) Settings {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	return Settings{
		Provider: get(EnvProvider),
		Ollama: OllamaSettings{
			Host:        get(EnvOllamaHost),
			Model:       get(EnvOllamaModel),
			Timeout:     get(EnvOllamaTimeout),
			Concurrency: get(EnvOllamaConcurrency),
		},
		Gemini: GeminiSettings{
			APIKey:    get(EnvGeminiAPIKey),
			Model:     get(EnvGeminiModel),
			TaskType:  get(EnvGeminiTaskType),
			Dimension: get(EnvGeminiDim),
			Timeout:   get(EnvGeminiTimeout),
			BaseURL:   get(EnvGeminiBaseURL),
		},
		OpenAI: OpenAISettings{
			APIKey:    get(EnvOpenAIAPIKey),
			Model:     get(EnvOpenAIModel),
			Dimension: get(EnvOpenAIDim),
			BaseURL:   get(EnvOpenAIBaseURL),
			Timeout:   get(EnvOpenAITimeout),
		},
	}
}

// NewFromEnv builds a Client from the process environment.
func NewFromEnv(logger *zap.Logger) (Client, error) {
	return New(SettingsFromEnv(os.LookupEnv), logger)
}

// New validates s and constructs the selected provider. An empty provider
// name selects ollama.
func New(s Settings, logger *zap.Logger) (Client, error) {
	logger = nopIfNil(logger)

	provider := strings.ToLower(strings.TrimSpace(s.Provider))
	if provider == "" {
		provider = ProviderOllama
	}
	logger.Info("initializing embedding provider", zap.String("provider", provider))

	// Each branch returns a typed nil on failure, so errors are checked
	// before the value is converted to Client.
	switch provider {
	case ProviderOllama:
		c, err := newOllamaFromSettings(s.Ollama, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderGemini:
		c, err := newGeminiFromSettings(s.Gemini, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderOpenAI:
		c, err := newOpenAIFromSettings(s.OpenAI, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, invalidConfig("unknown %s: %q; supported values: %s",
			EnvProvider, provider, strings.Join(SupportedProviders, ", "))
	}
}

func newOllamaFromSettings(s OllamaSettings, logger *zap.Logger) (*OllamaClient, error) {
	if strings.TrimSpace(s.Host) == "" {
		return nil, invalidConfig("%s is required when %s=%s", EnvOllamaHost, EnvProvider, ProviderOllama)
	}
	if strings.TrimSpace(s.Model) == "" {
		return nil, invalidConfig("%s is required when %s=%s", EnvOllamaModel, EnvProvider, ProviderOllama)
	}
	timeout, err := parseTimeout(EnvOllamaTimeout, s.Timeout, 0)
	if err != nil {
		return nil, err
	}
	concurrency, err := parseInt(EnvOllamaConcurrency, s.Concurrency, 1)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		return nil, invalidConfig("%s must be at least 1, got: %d", EnvOllamaConcurrency, concurrency)
	}
	return NewOllamaClient(OllamaConfig{
		Host:        s.Host,
		Model:       s.Model,
		Timeout:     timeout,
		Concurrency: concurrency,
	}, logger)
}

func newGeminiFromSettings(s GeminiSettings, logger *zap.Logger) (*GeminiClient, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, invalidConfig("%s is required when %s=%s; set it to your Gemini API key",
			EnvGeminiAPIKey, EnvProvider, ProviderGemini)
	}
	dim, err := parseInt(EnvGeminiDim, s.Dimension, DefaultGeminiDimension)
	if err != nil {
		return nil, err
	}
	timeout, err := parseTimeout(EnvGeminiTimeout, s.Timeout, DefaultGeminiTimeout)
	if err != nil {
		return nil, err
	}
	return NewGeminiClient(GeminiConfig{
		APIKey:               s.APIKey,
		Model:                orDefault(s.Model, DefaultGeminiModel),
		TaskType:             orDefault(s.TaskType, DefaultGeminiTaskType),
		OutputDimensionality: dim,
		Timeout:              timeout,
		BaseURL:              s.BaseURL,
	}, logger)
}

func newOpenAIFromSettings(s OpenAISettings, logger *zap.Logger) (*OpenAIClient, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, invalidConfig("%s is required when %s=%s; set it to your OpenAI API key",
			EnvOpenAIAPIKey, EnvProvider, ProviderOpenAI)
	}
	dim, err := parseInt(EnvOpenAIDim, s.Dimension, 0)
	if err != nil {
		return nil, err
	}
	timeout, err := parseTimeout(EnvOpenAITimeout, s.Timeout, DefaultOpenAITimeout)
	if err != nil {
		return nil, err
	}
	return NewOpenAIClient(OpenAIConfig{
		APIKey:     s.APIKey,
		Model:      orDefault(s.Model, DefaultOpenAIModel),
		BaseURL:    s.BaseURL,
		Dimensions: dim,
		Timeout:    timeout,
	}, logger)
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v == "" {
		return fallback
	}
	return v
}

func parseInt(name, literal string, fallback int) (int, error) {
	literal = strings.TrimSpace(literal)
	if literal == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(literal)
	if err != nil {
		return 0, invalidConfig("%s must be an integer, got: %s", name, literal)
	}
	return n, nil
}

// parseTimeout accepts whole seconds ("10") or a Go duration ("1500ms").
func parseTimeout(name, literal string, fallback time.Duration) (time.Duration, error) {
	literal = strings.TrimSpace(literal)
	if literal == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(literal); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(literal)
	if err != nil || d < 0 {
		return 0, invalidConfig("%s must be a number of seconds or a duration, got: %s", name, literal)
	}
	return d, nil
}
