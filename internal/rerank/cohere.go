package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"ragcompare/internal/domain"
)

const (
	defaultBaseURL = "https://api.cohere.ai"
	defaultModel   = "rerank-english-v3.0"
	defaultTimeout = 30 * time.Second
)

// CohereClient scores documents against a query using the Cohere
// v2 rerank endpoint.
type CohereClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func NewCohereClient(cfg Config, logger *zap.Logger) (*CohereClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cohere reranker: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &CohereClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}, nil
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank returns at most topN results ordered by descending relevance.
// Returned indexes refer to positions in documents.
func (c *CohereClient) Rerank(ctx context.Context, query string, documents []string, topN int) ([]domain.RerankResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}
	if topN <= 0 {
		return nil, &domain.ProviderError{Provider: "cohere", Op: "rerank",
			Err: fmt.Errorf("topN must be positive, got %d", topN)}
	}
	if topN > len(documents) {
		topN = len(documents)
	}

	body, err := json.Marshal(rerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: documents,
		TopN:      topN,
	})
	if err != nil {
		return nil, &domain.ProviderError{Provider: "cohere", Op: "rerank", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, &domain.ProviderError{Provider: "cohere", Op: "rerank", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.ProviderError{Provider: "cohere", Op: "rerank", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &domain.ProviderError{Provider: "cohere", Op: "rerank",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, data)}
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &domain.ProviderError{Provider: "cohere", Op: "rerank", Err: err}
	}
	if len(parsed.Results) > topN {
		return nil, &domain.ProviderError{Provider: "cohere", Op: "rerank",
			Err: fmt.Errorf("%d results exceed top_n %d", len(parsed.Results), topN)}
	}

	results := make([]domain.RerankResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, &domain.ProviderError{Provider: "cohere", Op: "rerank",
				Err: fmt.Errorf("result index %d out of range for %d documents", r.Index, len(documents))}
		}
		results = append(results, domain.RerankResult{
			Index:          r.Index,
			RelevanceScore: r.RelevanceScore,
		})
	}

	c.logger.Debug("rerank completed",
		zap.String("model", c.model),
		zap.Int("documents", len(documents)),
		zap.Int("returned", len(results)))
	return results, nil
}
