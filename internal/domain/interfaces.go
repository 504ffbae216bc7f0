package domain

import "context"

// Embedder converts a batch of texts into fixed-dimension vectors. The
// returned slice has the same length and order as the input.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// CorpusPreparer is an optional interface for embedders that need a pass
// over the whole corpus before Embed can be called. The pipeline build
// step checks support with a type assertion:
//
//	if p, ok := embedder.(CorpusPreparer); ok { p.Prepare(texts) }
type CorpusPreparer interface {
	Prepare(corpus []string) error
}

// UnitSplitter turns a document into the retrieval units of one strategy.
type UnitSplitter interface {
	Units(doc Document) []IndexUnit
}

// VectorIndex stores (id, vector, payload) entries for a single strategy
// and answers nearest-neighbour queries. A collection, once built, is
// read-only until an explicit rebuild.
type VectorIndex interface {
	// Add upserts entries by id. The three slices must have equal length.
	Add(ctx context.Context, ids []string, vectors [][]float64, payloads []Payload) error

	// Query returns at most topK candidates ordered by descending
	// similarity. Ties are broken by insertion order.
	Query(ctx context.Context, vector []float64, topK int) ([]Candidate, error)

	// Count reports the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Delete drops the collection. An already absent collection is
	// success, not an error.
	Delete(ctx context.Context) error
}

// Reranker rescores candidate documents against a query. Index in each
// result refers back into the input documents slice.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]RerankResult, error)
}

// Generator produces the final answer from an assembled context prompt.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
