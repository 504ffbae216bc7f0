package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"ragcompare/internal/domain"
)

// OpenAIClient embeds texts with the OpenAI embeddings endpoint. Requests
// are batched: one corpus rebuild costs ceil(n/batchSize) calls, never one
// call per unit.
type OpenAIClient struct {
	client    *openai.Client
	model     string
	timeout   time.Duration
	batchSize int
	logger    *zap.Logger
}

// OpenAIConfig configures the embeddings client. APIKey is required.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	BatchSize int
}

func NewOpenAIClient(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embedder: missing API key")
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		timeout:   cfg.Timeout,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *OpenAIClient) Name() string { return "openai" }

// Embed returns one vector per input text, order-preserving.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(c.model),
			Input: batch,
		})
		cancel()
		if err != nil {
			return nil, &domain.ProviderError{Provider: "openai", Op: "embeddings", Err: err}
		}
		if len(resp.Data) != len(batch) {
			return nil, &domain.ProviderError{
				Provider: "openai",
				Op:       "embeddings",
				Err:      fmt.Errorf("expected %d vectors, got %d", len(batch), len(resp.Data)),
			}
		}
		for _, item := range resp.Data {
			out = append(out, toFloat64(item.Embedding))
		}
	}

	c.logger.Debug("texts embedded",
		zap.String("model", c.model),
		zap.Int("texts", len(texts)))

	return out, nil
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
