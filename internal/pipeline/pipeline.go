package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"ragcompare/internal/domain"
)

// Options control one retrieval strategy.
type Options struct {
	// Name labels the strategy in logs and stage events.
	Name string
	// TopK is the number of candidates fetched from the vector index.
	TopK int
	// RerankTopN caps the candidates kept after the rerank stage.
	// Zero disables reranking entirely: all TopK candidates are kept
	// in vector-similarity order.
	RerankTopN int
	// Temperature is passed through to the generator.
	Temperature float32
	// SystemPrompt overrides DefaultSystemPrompt when non-empty.
	SystemPrompt string
}

// Deps are the pluggable stages of a pipeline. Reranker may be nil;
// every other field is required.
type Deps struct {
	Splitter  domain.UnitSplitter
	Embedder  domain.Embedder
	Index     domain.VectorIndex
	Reranker  domain.Reranker
	Generator domain.Generator
	Observer  Observer
	Logger    *zap.Logger
}

// Pipeline runs one retrieval strategy end to end: index documents,
// retrieve candidates for a question, optionally rerank them, and
// generate an answer over the assembled context.
type Pipeline struct {
	opts Options
	deps Deps

	buildMu sync.Mutex
}

func New(opts Options, deps Deps) (*Pipeline, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("pipeline: name is required")
	}
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("pipeline %s: topK must be positive", opts.Name)
	}
	if opts.RerankTopN < 0 {
		return nil, fmt.Errorf("pipeline %s: rerank topN must not be negative", opts.Name)
	}
	if deps.Splitter == nil || deps.Embedder == nil || deps.Index == nil || deps.Generator == nil {
		return nil, fmt.Errorf("pipeline %s: splitter, embedder, index and generator are required", opts.Name)
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if deps.Observer == nil {
		deps.Observer = NopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Pipeline{opts: opts, deps: deps}, nil
}

func (p *Pipeline) Name() string { return p.opts.Name }

// Build indexes the documents. An already-populated index is left
// untouched unless force is set, in which case it is dropped and
// rebuilt from scratch.
func (p *Pipeline) Build(ctx context.Context, docs []domain.Document, force bool) error {
	p.buildMu.Lock()
	defer p.buildMu.Unlock()

	if force {
		if err := p.deps.Index.Delete(ctx); err != nil {
			return fmt.Errorf("%s: drop index: %w", p.opts.Name, err)
		}
	}

	var units []domain.IndexUnit
	for _, doc := range docs {
		units = append(units, p.deps.Splitter.Units(doc)...)
	}
	if len(units) == 0 {
		p.deps.Logger.Warn("no index units produced from documents",
			zap.String("strategy", p.opts.Name),
			zap.Int("documents", len(docs)))
		return nil
	}

	texts := make([]string, len(units))
	for i, u := range units {
		texts[i] = u.EmbedText
	}

	// Prepare must run even when indexing is skipped: a persistent
	// backend can survive a restart, but corpus-fitted embedder state
	// never does, and queries embed through the same embedder.
	if prep, ok := p.deps.Embedder.(domain.CorpusPreparer); ok {
		if err := prep.Prepare(texts); err != nil {
			return fmt.Errorf("%s: prepare embedder: %w", p.opts.Name, err)
		}
	}

	count, err := p.deps.Index.Count(ctx)
	if err != nil {
		return fmt.Errorf("%s: count index: %w", p.opts.Name, err)
	}
	if count > 0 {
		p.deps.Logger.Info("index already populated, skipping build",
			zap.String("strategy", p.opts.Name),
			zap.Int("entries", count))
		return nil
	}

	vectors, err := p.deps.Embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("%s: embed units: %w", p.opts.Name, err)
	}
	if len(vectors) != len(units) {
		return fmt.Errorf("%s: embedder returned %d vectors for %d units", p.opts.Name, len(vectors), len(units))
	}

	ids := make([]string, len(units))
	payloads := make([]domain.Payload, len(units))
	for i, u := range units {
		ids[i] = u.ID
		payloads[i] = u.Payload
	}
	if err := p.deps.Index.Add(ctx, ids, vectors, payloads); err != nil {
		return fmt.Errorf("%s: add to index: %w", p.opts.Name, err)
	}

	p.deps.Logger.Info("index built",
		zap.String("strategy", p.opts.Name),
		zap.Int("documents", len(docs)),
		zap.Int("entries", len(units)))
	p.deps.Observer.OnStage(p.opts.Name, "index", map[string]any{
		"documents": len(docs),
		"entries":   len(units),
	})
	return nil
}

// Query answers a question over the indexed corpus. It fails with
// domain.ErrNotIndexed before touching any provider when the index is
// empty.
func (p *Pipeline) Query(ctx context.Context, question string) (domain.QueryResult, error) {
	var res domain.QueryResult

	count, err := p.deps.Index.Count(ctx)
	if err != nil {
		return res, fmt.Errorf("%s: count index: %w", p.opts.Name, err)
	}
	if count == 0 {
		return res, fmt.Errorf("%s: %w", p.opts.Name, domain.ErrNotIndexed)
	}

	vectors, err := p.deps.Embedder.Embed(ctx, []string{question})
	if err != nil {
		return res, fmt.Errorf("%s: embed query: %w", p.opts.Name, err)
	}
	if len(vectors) != 1 {
		return res, fmt.Errorf("%s: embedder returned %d vectors for one query", p.opts.Name, len(vectors))
	}

	candidates, err := p.deps.Index.Query(ctx, vectors[0], p.opts.TopK)
	if err != nil {
		return res, fmt.Errorf("%s: query index: %w", p.opts.Name, err)
	}
	p.deps.Observer.OnStage(p.opts.Name, "retrieve", map[string]any{
		"candidates": len(candidates),
	})

	ranked := p.rerank(ctx, question, candidates)
	res.Candidates = ranked

	contextText := Assemble(ranked)
	answer, err := p.deps.Generator.Generate(ctx, p.opts.SystemPrompt, buildUserPrompt(contextText, question), p.opts.Temperature)
	if err != nil {
		return res, fmt.Errorf("%s: generate answer: %w", p.opts.Name, err)
	}
	res.Answer = answer
	p.deps.Observer.OnStage(p.opts.Name, "generate", map[string]any{
		"answer_len": len(answer),
	})
	return res, nil
}

// rerank applies the rerank stage. With RerankTopN == 0 the stage is a
// pass-through. Otherwise a missing or failing reranker degrades to the
// first topN candidates in vector-similarity order, without relevance
// scores.
func (p *Pipeline) rerank(ctx context.Context, question string, candidates []domain.Candidate) []domain.RankedCandidate {
	if p.opts.RerankTopN == 0 {
		return asRanked(candidates)
	}

	topN := p.opts.RerankTopN
	if topN > len(candidates) {
		topN = len(candidates)
	}

	if p.deps.Reranker == nil {
		p.deps.Logger.Debug("keeping vector order",
			zap.String("strategy", p.opts.Name),
			zap.Error(domain.ErrRerankUnavailable))
		return asRanked(candidates[:topN])
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Payload.ContextText()
	}

	results, err := p.deps.Reranker.Rerank(ctx, question, docs, topN)
	if err != nil {
		p.deps.Logger.Warn("reranker failed, falling back to vector order",
			zap.String("strategy", p.opts.Name),
			zap.Error(fmt.Errorf("%w: %v", domain.ErrRerankUnavailable, err)))
		p.deps.Observer.OnStage(p.opts.Name, "rerank", map[string]any{"fallback": true})
		return asRanked(candidates[:topN])
	}

	// the reranker contract caps results at topN; enforce it here too so
	// a misbehaving implementation cannot widen the candidate set
	if len(results) > topN {
		results = results[:topN]
	}

	ranked := make([]domain.RankedCandidate, 0, len(results))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(candidates) {
			p.deps.Logger.Warn("reranker returned out-of-range index, falling back to vector order",
				zap.String("strategy", p.opts.Name),
				zap.Int("index", r.Index))
			p.deps.Observer.OnStage(p.opts.Name, "rerank", map[string]any{"fallback": true})
			return asRanked(candidates[:topN])
		}
		score := r.RelevanceScore
		ranked = append(ranked, domain.RankedCandidate{
			Candidate:      candidates[r.Index],
			RelevanceScore: &score,
		})
	}

	p.deps.Observer.OnStage(p.opts.Name, "rerank", map[string]any{
		"kept": len(ranked),
	})
	return ranked
}

func asRanked(candidates []domain.Candidate) []domain.RankedCandidate {
	ranked := make([]domain.RankedCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = domain.RankedCandidate{Candidate: c}
	}
	return ranked
}
