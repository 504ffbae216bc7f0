package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"ragcompare/internal/domain"
)

// Index is a minimal REST client to a Qdrant collection. It assumes
// cosine distance and creates the collection lazily on the first Add,
// sizing it from the first vector.
type Index struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
	logger     *zap.Logger

	mu      sync.Mutex
	created bool
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewIndex(cfg Config, logger *zap.Logger) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Index{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Add upserts points by id. Qdrant upsert semantics keep the uniqueness
// invariant: re-adding an id overwrites the stored point.
func (s *Index) Add(ctx context.Context, ids []string, vectors [][]float64, payloads []domain.Payload) error {
	if len(ids) != len(vectors) || len(ids) != len(payloads) {
		return fmt.Errorf("qdrant index: ids, vectors and payloads length mismatch")
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	points := make([]map[string]any, len(ids))
	for i := range ids {
		points[i] = map[string]any{
			"id":     ids[i],
			"vector": vectors[i],
			"payload": map[string]any{
				"source_id": payloads[i].SourceID,
				"position":  payloads[i].Position,
				"total":     payloads[i].Total,
				"text":      payloads[i].Text,
				"window":    payloads[i].Window,
			},
		}
	}
	body := map[string]any{"points": points}
	if err := s.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body, nil); err != nil {
		return err
	}

	s.logger.Info("entries added to qdrant collection",
		zap.String("collection", s.collection),
		zap.Int("added", len(ids)))
	return nil
}

// Query returns at most topK candidates ordered by descending similarity.
func (s *Index) Query(ctx context.Context, vector []float64, topK int) ([]domain.Candidate, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("qdrant index: topK must be positive")
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Candidate, 0, len(resp.Result))
	for _, r := range resp.Result {
		c := domain.Candidate{Score: r.Score}
		if id, ok := r.ID.(string); ok {
			c.ID = id
		}
		if v, ok := r.Payload["source_id"].(string); ok {
			c.Payload.SourceID = v
		}
		if v, ok := r.Payload["position"].(float64); ok {
			c.Payload.Position = int(v)
		}
		if v, ok := r.Payload["total"].(float64); ok {
			c.Payload.Total = int(v)
		}
		if v, ok := r.Payload["text"].(string); ok {
			c.Payload.Text = v
		}
		if v, ok := r.Payload["window"].(string); ok {
			c.Payload.Window = v
		}
		out = append(out, c)
	}
	return out, nil
}

// Count reports the exact point count; a missing collection counts as 0.
func (s *Index) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/count", s.url, s.collection), map[string]any{"exact": true}, &resp)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return 0, nil
		}
		return 0, err
	}
	return resp.Result.Count, nil
}

// Delete drops the collection. A 404 means the collection was already
// absent, which is success.
func (s *Index) Delete(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", s.url, s.collection), nil)
	if err != nil {
		return err
	}
	s.auth(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant DELETE collection: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return &statusError{method: http.MethodDelete, url: req.URL.String(), code: resp.StatusCode}
	}

	s.mu.Lock()
	s.created = false
	s.mu.Unlock()
	return nil
}

func (s *Index) ensureCollection(ctx context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.created {
		return nil
	}
	if dimension <= 0 {
		return fmt.Errorf("qdrant index: invalid dimension %d", dimension)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body, nil); err != nil {
		return err
	}
	s.created = true
	return nil
}

type statusError struct {
	method string
	url    string
	code   int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: status %d", e.method, e.url, e.code)
}

func (s *Index) auth(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
}

func (s *Index) putJSON(ctx context.Context, url string, body, out any) error {
	return s.doJSON(ctx, http.MethodPut, url, body, out)
}

func (s *Index) postJSON(ctx context.Context, url string, body, out any) error {
	return s.doJSON(ctx, http.MethodPost, url, body, out)
}

func (s *Index) doJSON(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	s.auth(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &statusError{method: method, url: url, code: resp.StatusCode}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
