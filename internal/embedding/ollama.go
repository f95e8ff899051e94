package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const providerOllama = "ollama"

// OllamaConfig configures an OllamaClient.
type OllamaConfig struct {
	Host  string
	Model string
	// Timeout bounds each request. Zero leaves the transport default in place.
	Timeout time.Duration
	// Concurrency is the number of per-text requests Embed may have in
	// flight. Values below 2 keep requests strictly sequential.
	Concurrency int
}

// OllamaClient implements Client against an Ollama server's
// /api/embeddings endpoint. The server embeds one prompt per request, so
// Embed issues one request per text.
type OllamaClient struct {
	host        string
	model       string
	concurrency int
	http        *http.Client
	logger      *zap.Logger
}

// NewOllamaClient creates an OllamaClient from cfg.
func NewOllamaClient(cfg OllamaConfig, logger *zap.Logger) (*OllamaClient, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, invalidConfig("ollama host cannot be empty")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, invalidConfig("ollama model cannot be empty")
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	logger = nopIfNil(logger)
	c := &OllamaClient{
		host:        strings.TrimRight(host, "/"),
		model:       model,
		concurrency: concurrency,
		http:        &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
	logger.Info("initialized ollama embedding client",
		zap.String("host", c.host),
		zap.String("model", c.model),
		zap.Int("concurrency", c.concurrency),
		zap.Duration("timeout", cfg.Timeout))
	return c, nil
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed validates every text, then embeds them one request at a time.
// The first failure aborts the call and no vectors are returned.
func (c *OllamaClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(texts))
	if c.concurrency == 1 || len(texts) == 1 {
		for i, text := range texts {
			vec, err := c.embedSingle(ctx, text)
			if err != nil {
				return nil, c.fail(err)
			}
			embeddings[i] = vec
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.concurrency)
		for i, text := range texts {
			i, text := i, text
			g.Go(func() error {
				vec, err := c.embedSingle(gctx, text)
				if err != nil {
					return err
				}
				embeddings[i] = vec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, c.fail(err)
		}
	}

	c.logger.Debug("generated embeddings via ollama", zap.Int("count", len(embeddings)))
	return embeddings, nil
}

// EmbedOne issues exactly one request.
func (c *OllamaClient) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}
	vec, err := c.embedSingle(ctx, text)
	if err != nil {
		return nil, c.fail(err)
	}
	c.logger.Debug("generated single embedding via ollama", zap.Int("dim", len(vec)))
	return vec, nil
}

func (c *OllamaClient) embedSingle(ctx context.Context, text string) ([]float32, error) {
	var result ollamaResponse
	err := postJSON(ctx, c.http, providerOllama, c.host+"/api/embeddings", nil, ollamaRequest{
		Model:  c.model,
		Prompt: text,
	}, &result)
	if err != nil {
		return nil, err
	}
	if len(result.Embedding) == 0 {
		return nil, &ProviderError{Provider: providerOllama, StatusCode: http.StatusOK, Message: "ollama returned empty embedding"}
	}
	return result.Embedding, nil
}

func (c *OllamaClient) fail(err error) error {
	c.logger.Error("ollama embedding error", zap.String("model", c.model), zap.Error(err))
	return err
}

// Name returns a descriptive name for the client.
func (c *OllamaClient) Name() string {
	return fmt.Sprintf("ollama (%s)", c.model)
}
