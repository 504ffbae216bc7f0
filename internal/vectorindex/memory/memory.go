package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"ragcompare/internal/domain"
)

// Index is a brute-force cosine-similarity store. Entries are kept in
// insertion order, which makes tie-breaking deterministic given
// deterministic ids. Builds are single-writer; concurrent read-only
// queries against a built collection are safe.
type Index struct {
	mu       sync.RWMutex
	ids      []string
	byID     map[string]int
	vectors  [][]float64
	payloads []domain.Payload
	logger   *zap.Logger
}

func NewIndex(logger *zap.Logger) *Index {
	return &Index{
		byID:   make(map[string]int),
		logger: logger,
	}
}

// Add upserts entries by id: a repeated id replaces the stored vector and
// payload but keeps the original insertion position.
func (s *Index) Add(ctx context.Context, ids []string, vectors [][]float64, payloads []domain.Payload) error {
	if len(ids) != len(vectors) || len(ids) != len(payloads) {
		return errors.New("memory index: ids, vectors and payloads length mismatch")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range ids {
		if pos, ok := s.byID[id]; ok {
			s.vectors[pos] = vectors[i]
			s.payloads[pos] = payloads[i]
			continue
		}
		s.byID[id] = len(s.ids)
		s.ids = append(s.ids, id)
		s.vectors = append(s.vectors, vectors[i])
		s.payloads = append(s.payloads, payloads[i])
	}

	s.logger.Info("entries added to memory index",
		zap.Int("added", len(ids)),
		zap.Int("total", len(s.ids)))

	return nil
}

// Query returns at most topK candidates by descending cosine similarity.
// Ties keep insertion order.
func (s *Index) Query(ctx context.Context, vector []float64, topK int) ([]domain.Candidate, error) {
	if topK <= 0 {
		return nil, errors.New("memory index: topK must be positive")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	order := make([]int, len(s.vectors))
	scores := make([]float64, len(s.vectors))
	for i := range s.vectors {
		order[i] = i
		scores[i] = cosineSimilarity(vector, s.vectors[i])
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if topK > len(order) {
		topK = len(order)
	}
	out := make([]domain.Candidate, 0, topK)
	for _, idx := range order[:topK] {
		out = append(out, domain.Candidate{
			ID:      s.ids[idx],
			Score:   scores[idx],
			Payload: s.payloads[idx],
		})
	}
	return out, nil
}

// Count reports the number of stored entries.
func (s *Index) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids), nil
}

// Delete drops the collection. Deleting an empty collection is success.
func (s *Index) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
	s.byID = make(map[string]int)
	s.vectors = nil
	s.payloads = nil
	return nil
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
