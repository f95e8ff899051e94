package embedding

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

const providerGemini = "gemini"

const (
	DefaultGeminiBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel     = "gemini-embedding-001"
	DefaultGeminiTaskType  = "RETRIEVAL_QUERY"
	DefaultGeminiDimension = 768
	DefaultGeminiTimeout   = 5 * time.Second
)

// RecommendedGeminiDimensions are the output sizes the Gemini embedding
// models are tuned for. Other values work but are logged as a warning.
var RecommendedGeminiDimensions = []int{128, 256, 512, 768, 1536, 2048, 3072}

// GeminiConfig configures a GeminiClient.
type GeminiConfig struct {
	APIKey   string
	Model    string
	TaskType string // omitted from requests when empty
	// OutputDimensionality is omitted from requests when zero.
	OutputDimensionality int
	Timeout              time.Duration
	BaseURL              string
}

// GeminiClient implements Client against the Gemini embeddings REST API.
// Embed uses batchEmbedContents, EmbedOne uses embedContent.
type GeminiClient struct {
	apiKey   string
	model    string
	taskType string
	dim      int
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
}

// NewGeminiClient creates a GeminiClient. Empty Model, Timeout and BaseURL
// fall back to the package defaults.
func NewGeminiClient(cfg GeminiConfig, logger *zap.Logger) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, invalidConfig("gemini api key cannot be empty")
	}
	if cfg.OutputDimensionality < 0 {
		return nil, invalidConfig("gemini output dimensionality must not be negative, got %d", cfg.OutputDimensionality)
	}
	logger = nopIfNil(logger)

	if cfg.OutputDimensionality != 0 && !slices.Contains(RecommendedGeminiDimensions, cfg.OutputDimensionality) {
		logger.Warn("gemini output dimensionality is not a recommended value",
			zap.Int("output_dim", cfg.OutputDimensionality),
			zap.Ints("recommended", RecommendedGeminiDimensions))
	}

	c := &GeminiClient{
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		taskType: cfg.TaskType,
		dim:      cfg.OutputDimensionality,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		logger:   logger,
	}
	if c.model == "" {
		c.model = DefaultGeminiModel
	}
	if c.baseURL == "" {
		c.baseURL = DefaultGeminiBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultGeminiTimeout
	}
	c.http = &http.Client{Timeout: timeout}

	logger.Info("initialized gemini embedding client",
		zap.String("model", c.model),
		zap.String("task_type", c.taskType),
		zap.Int("output_dim", c.dim),
		zap.Duration("timeout", timeout))
	return c, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiEmbedRequest struct {
	Model                string        `json:"model,omitempty"`
	Content              geminiContent `json:"content"`
	TaskType             string        `json:"task_type,omitempty"`
	OutputDimensionality int           `json:"output_dimensionality,omitempty"`
}

type geminiBatchRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiValues struct {
	Values []float32 `json:"values"`
}

type geminiEmbedResponse struct {
	Embedding *geminiValues `json:"embedding"`
}

type geminiBatchResponse struct {
	Embeddings []geminiValues `json:"embeddings"`
}

func (c *GeminiClient) request(text string) geminiEmbedRequest {
	return geminiEmbedRequest{
		Content:              geminiContent{Parts: []geminiPart{{Text: text}}},
		TaskType:             c.taskType,
		OutputDimensionality: c.dim,
	}
}

func (c *GeminiClient) header() http.Header {
	h := make(http.Header)
	h.Set("x-goog-api-key", c.apiKey)
	return h
}

// Embed sends all texts in one batchEmbedContents call.
func (c *GeminiClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}

	payload := geminiBatchRequest{Requests: make([]geminiEmbedRequest, len(texts))}
	for i, text := range texts {
		req := c.request(text)
		req.Model = "models/" + c.model
		payload.Requests[i] = req
	}

	var resp geminiBatchResponse
	url := fmt.Sprintf("%s/models/%s:batchEmbedContents", c.baseURL, c.model)
	if err := postJSON(ctx, c.http, providerGemini, url, c.header(), payload, &resp); err != nil {
		return nil, c.fail(err)
	}

	embeddings := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		if len(e.Values) == 0 {
			return nil, c.fail(&ProviderError{Provider: providerGemini, StatusCode: http.StatusOK, Message: "gemini returned empty embedding"})
		}
		embeddings = append(embeddings, e.Values)
	}
	// The batch endpoint could drop items; positions only line up if the counts match.
	if len(embeddings) != len(texts) {
		return nil, c.fail(&ProviderError{
			Provider:   providerGemini,
			StatusCode: http.StatusOK,
			Message:    fmt.Sprintf("gemini returned %d embeddings for %d texts", len(embeddings), len(texts)),
		})
	}

	c.logger.Debug("generated embeddings via gemini", zap.Int("count", len(embeddings)))
	return embeddings, nil
}

// EmbedOne sends a single embedContent call.
func (c *GeminiClient) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	var resp geminiEmbedResponse
	url := fmt.Sprintf("%s/models/%s:embedContent", c.baseURL, c.model)
	if err := postJSON(ctx, c.http, providerGemini, url, c.header(), c.request(text), &resp); err != nil {
		return nil, c.fail(err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, c.fail(&ProviderError{Provider: providerGemini, StatusCode: http.StatusOK, Message: "gemini returned empty embedding"})
	}

	c.logger.Debug("generated single embedding via gemini", zap.Int("dim", len(resp.Embedding.Values)))
	return resp.Embedding.Values, nil
}

func (c *GeminiClient) fail(err error) error {
	c.logger.Error("gemini embedding error", zap.String("model", c.model), zap.Error(err))
	return err
}

// Name returns a descriptive name for the client.
func (c *GeminiClient) Name() string {
	return fmt.Sprintf("gemini (%s)", c.model)
}

// Dimension returns the configured output dimensionality, or zero when the
// model default is used.
func (c *GeminiClient) Dimension() int {
	return c.dim
}
