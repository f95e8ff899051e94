package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const providerOpenAI = "openai"

const (
	DefaultOpenAIModel   = string(openai.SmallEmbedding3)
	DefaultOpenAITimeout = 30 * time.Second
)

// OpenAIConfig configures an OpenAIClient. BaseURL may point at any
// OpenAI-compatible embeddings server.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Dimensions int // zero keeps the model default
	Timeout    time.Duration
}

// OpenAIClient implements Client using the OpenAI embeddings API.
type OpenAIClient struct {
	client *openai.Client
	apiKey string
	model  openai.EmbeddingModel
	dim    int
	logger *zap.Logger
}

// NewOpenAIClient creates an OpenAIClient from cfg.
func NewOpenAIClient(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, invalidConfig("openai api key cannot be empty")
	}
	if cfg.Dimensions < 0 {
		return nil, invalidConfig("openai dimensions must not be negative, got %d", cfg.Dimensions)
	}
	logger = nopIfNil(logger)

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultOpenAITimeout
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	logger.Info("initialized openai embedding client",
		zap.String("model", model),
		zap.String("base_url", oc.BaseURL),
		zap.Int("dimensions", cfg.Dimensions),
		zap.Duration("timeout", timeout))

	return &OpenAIClient{
		client: openai.NewClientWithConfig(oc),
		apiKey: cfg.APIKey,
		model:  openai.EmbeddingModel(model),
		dim:    cfg.Dimensions,
		logger: logger,
	}, nil
}

// Embed sends all texts in one CreateEmbeddings call and restores input
// order from the response indexes.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}
	embeddings, err := c.create(ctx, texts)
	if err != nil {
		return nil, c.fail(err)
	}
	c.logger.Debug("generated embeddings via openai", zap.Int("count", len(embeddings)))
	return embeddings, nil
}

// EmbedOne sends a one-element batch; the API has no separate single-item call.
func (c *OpenAIClient) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}
	embeddings, err := c.create(ctx, []string{text})
	if err != nil {
		return nil, c.fail(err)
	}
	return embeddings[0], nil
}

func (c *OpenAIClient) create(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      c.model,
		Dimensions: c.dim,
	})
	if err != nil {
		return nil, c.providerError(err)
	}

	if len(resp.Data) != len(texts) {
		return nil, &ProviderError{
			Provider:   providerOpenAI,
			StatusCode: http.StatusOK,
			Message:    fmt.Sprintf("openai returned %d embeddings for %d texts", len(resp.Data), len(texts)),
		}
	}
	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || embeddings[d.Index] != nil {
			return nil, &ProviderError{
				Provider:   providerOpenAI,
				StatusCode: http.StatusOK,
				Message:    fmt.Sprintf("openai returned unexpected embedding index %d", d.Index),
			}
		}
		if len(d.Embedding) == 0 {
			return nil, &ProviderError{Provider: providerOpenAI, StatusCode: http.StatusOK, Message: "openai returned empty embedding"}
		}
		embeddings[d.Index] = d.Embedding
	}
	return embeddings, nil
}

func (c *OpenAIClient) providerError(err error) *ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Provider:   providerOpenAI,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    fmt.Sprintf("openai API returned %d: %s", apiErr.HTTPStatusCode, c.redact(apiErr.Message)),
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := unknownError
		if reqErr.Err != nil {
			msg = c.redact(reqErr.Err.Error())
		}
		return &ProviderError{
			Provider:   providerOpenAI,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    fmt.Sprintf("openai API returned %d: %s", reqErr.HTTPStatusCode, msg),
		}
	}
	return transportError(providerOpenAI, err)
}

// redact strips the API key from provider-supplied text.
func (c *OpenAIClient) redact(s string) string {
	return strings.ReplaceAll(s, c.apiKey, "[redacted]")
}

func (c *OpenAIClient) fail(err error) error {
	c.logger.Error("openai embedding error", zap.String("model", string(c.model)), zap.Error(err))
	return err
}

// Name returns a descriptive name for the client.
func (c *OpenAIClient) Name() string {
	return fmt.Sprintf("openai (%s)", c.model)
}
