package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ragcompare/internal/domain"
	"ragcompare/internal/splitter"
	"ragcompare/internal/vectorindex/memory"
)

// hashEmbedder maps each distinct text to a fixed axis-aligned vector,
// so identical texts are identical vectors. It counts Embed calls.
type hashEmbedder struct {
	calls int
	axes  map[string]int
}

func newHashEmbedder() *hashEmbedder {
	return &hashEmbedder{axes: make(map[string]int)}
}

func (e *hashEmbedder) Name() string { return "hash" }

func (e *hashEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	e.calls++
	const dim = 16
	out := make([][]float64, len(texts))
	for i, t := range texts {
		axis, ok := e.axes[t]
		if !ok {
			axis = len(e.axes) % dim
			e.axes[t] = axis
		}
		v := make([]float64, dim)
		v[axis] = 1
		out[i] = v
	}
	return out, nil
}

// preparableEmbedder embeds like hashEmbedder but only after Prepare,
// mimicking corpus-fitted embedders.
type preparableEmbedder struct {
	hashEmbedder
	prepared bool
}

func newPreparableEmbedder() *preparableEmbedder {
	return &preparableEmbedder{hashEmbedder: *newHashEmbedder()}
}

func (e *preparableEmbedder) Prepare([]string) error {
	e.prepared = true
	return nil
}

func (e *preparableEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if !e.prepared {
		return nil, errors.New("embedder not prepared")
	}
	return e.hashEmbedder.Embed(ctx, texts)
}

type failingEmbedder struct{ calls int }

func (e *failingEmbedder) Name() string { return "failing" }

func (e *failingEmbedder) Embed(context.Context, []string) ([][]float64, error) {
	e.calls++
	return nil, errors.New("provider down")
}

type stubReranker struct {
	results []domain.RerankResult
	err     error
	calls   int
}

func (r *stubReranker) Rerank(context.Context, string, []string, int) ([]domain.RerankResult, error) {
	r.calls++
	return r.results, r.err
}

type stubGenerator struct {
	answer     string
	err        error
	lastSystem string
	lastUser   string
}

func (g *stubGenerator) Generate(_ context.Context, systemPrompt, userPrompt string, _ float32) (string, error) {
	g.lastSystem = systemPrompt
	g.lastUser = userPrompt
	return g.answer, g.err
}

func testDocs() []domain.Document {
	return []domain.Document{
		{SourceID: "alpha.txt", Text: "First paragraph about cats.\n\nSecond paragraph about dogs.\n\nThird paragraph about birds."},
		{SourceID: "beta.txt", Text: "A paragraph about fish.\n\nAnother paragraph about whales."},
	}
}

func newTestPipeline(t *testing.T, opts Options, deps Deps) *Pipeline {
	t.Helper()
	if deps.Splitter == nil {
		deps.Splitter = splitter.NewChunkSplitter(40, 0)
	}
	if deps.Index == nil {
		deps.Index = memory.NewIndex(zap.NewNop())
	}
	if deps.Generator == nil {
		deps.Generator = &stubGenerator{answer: "an answer"}
	}
	if opts.Name == "" {
		opts.Name = "naive"
	}
	if opts.TopK == 0 {
		opts.TopK = 3
	}
	p, err := New(opts, deps)
	require.NoError(t, err)
	return p
}

func TestNewValidation(t *testing.T) {
	t.Parallel()
	deps := Deps{
		Splitter:  splitter.NewChunkSplitter(40, 0),
		Embedder:  newHashEmbedder(),
		Index:     memory.NewIndex(zap.NewNop()),
		Generator: &stubGenerator{},
	}

	_, err := New(Options{TopK: 3}, deps)
	require.Error(t, err, "missing name")

	_, err = New(Options{Name: "x", TopK: 0}, deps)
	require.Error(t, err, "non-positive topK")

	_, err = New(Options{Name: "x", TopK: 3, RerankTopN: -1}, deps)
	require.Error(t, err, "negative rerank topN")

	_, err = New(Options{Name: "x", TopK: 3}, Deps{Embedder: deps.Embedder})
	require.Error(t, err, "missing stages")
}

func TestQueryOnEmptyIndexFailsBeforeProviders(t *testing.T) {
	t.Parallel()
	emb := newHashEmbedder()
	p := newTestPipeline(t, Options{}, Deps{Embedder: emb})

	_, err := p.Query(context.Background(), "anything")
	require.ErrorIs(t, err, domain.ErrNotIndexed)
	assert.Zero(t, emb.calls, "no provider call may happen before the index check")
}

func TestBuildSkipsPopulatedIndex(t *testing.T) {
	t.Parallel()
	emb := newHashEmbedder()
	p := newTestPipeline(t, Options{}, Deps{Embedder: emb})
	ctx := context.Background()

	require.NoError(t, p.Build(ctx, testDocs(), false))
	require.Equal(t, 1, emb.calls)

	require.NoError(t, p.Build(ctx, testDocs(), false))
	assert.Equal(t, 1, emb.calls, "second build without force must not re-embed")
}

func TestBuildSkipStillPreparesEmbedder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	idx := memory.NewIndex(zap.NewNop())

	first := newTestPipeline(t, Options{}, Deps{Embedder: newPreparableEmbedder(), Index: idx})
	require.NoError(t, first.Build(ctx, testDocs(), false))

	// a fresh process sees the surviving index but starts with unfitted
	// embedder state
	emb := newPreparableEmbedder()
	second := newTestPipeline(t, Options{TopK: 2}, Deps{Embedder: emb, Index: idx})
	require.NoError(t, second.Build(ctx, testDocs(), false))

	assert.True(t, emb.prepared, "skipped build must still fit the embedder")
	assert.Zero(t, emb.calls, "skipped build must not re-embed the corpus")

	res, err := second.Query(ctx, "cats")
	require.NoError(t, err, "query after a skipped build must embed successfully")
	assert.NotEmpty(t, res.Candidates)
}

func TestBuildForceRebuilds(t *testing.T) {
	t.Parallel()
	emb := newHashEmbedder()
	idx := memory.NewIndex(zap.NewNop())
	p := newTestPipeline(t, Options{}, Deps{Embedder: emb, Index: idx})
	ctx := context.Background()

	require.NoError(t, p.Build(ctx, testDocs(), false))
	before, err := idx.Count(ctx)
	require.NoError(t, err)

	require.NoError(t, p.Build(ctx, testDocs(), true))
	after, err := idx.Count(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, emb.calls)
	assert.Equal(t, before, after, "rebuild over the same corpus keeps the entry count")
}

func TestBuildEmbedderFailurePropagates(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(t, Options{}, Deps{Embedder: &failingEmbedder{}})
	err := p.Build(context.Background(), testDocs(), false)
	require.Error(t, err)
}

func TestQueryReturnsAnswerAndCandidates(t *testing.T) {
	t.Parallel()
	gen := &stubGenerator{answer: "cats are covered in alpha.txt"}
	p := newTestPipeline(t, Options{TopK: 2}, Deps{Embedder: newHashEmbedder(), Generator: gen})
	ctx := context.Background()
	require.NoError(t, p.Build(ctx, testDocs(), false))

	res, err := p.Query(ctx, "First paragraph about cats.")
	require.NoError(t, err)
	assert.Equal(t, "cats are covered in alpha.txt", res.Answer)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "alpha.txt", res.Candidates[0].Payload.SourceID)

	assert.Contains(t, gen.lastUser, "User Question: First paragraph about cats.")
	assert.Contains(t, gen.lastUser, "Source: alpha.txt")
	assert.Equal(t, DefaultSystemPrompt, gen.lastSystem)
}

func TestQueryRerankDisabledKeepsAllCandidates(t *testing.T) {
	t.Parallel()
	rr := &stubReranker{}
	p := newTestPipeline(t, Options{TopK: 5, RerankTopN: 0}, Deps{
		Embedder: newHashEmbedder(),
		Reranker: rr,
	})
	ctx := context.Background()
	require.NoError(t, p.Build(ctx, testDocs(), false))

	res, err := p.Query(ctx, "whales")
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 5)
	assert.Zero(t, rr.calls, "rerank stage is disabled at topN zero")
	for _, c := range res.Candidates {
		assert.Nil(t, c.RelevanceScore)
	}
}

func TestQueryRerankReordersAndScores(t *testing.T) {
	t.Parallel()
	rr := &stubReranker{results: []domain.RerankResult{
		{Index: 2, RelevanceScore: 0.91},
		{Index: 0, RelevanceScore: 0.42},
	}}
	p := newTestPipeline(t, Options{TopK: 4, RerankTopN: 2}, Deps{
		Embedder: newHashEmbedder(),
		Reranker: rr,
	})
	ctx := context.Background()
	require.NoError(t, p.Build(ctx, testDocs(), false))

	res, err := p.Query(ctx, "dogs")
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	require.NotNil(t, res.Candidates[0].RelevanceScore)
	assert.InDelta(t, 0.91, *res.Candidates[0].RelevanceScore, 1e-9)
	assert.InDelta(t, 0.42, *res.Candidates[1].RelevanceScore, 1e-9)
}

func TestQueryRerankFailureFallsBack(t *testing.T) {
	t.Parallel()
	rr := &stubReranker{err: errors.New("cohere unavailable")}
	p := newTestPipeline(t, Options{TopK: 4, RerankTopN: 2}, Deps{
		Embedder: newHashEmbedder(),
		Reranker: rr,
	})
	ctx := context.Background()
	require.NoError(t, p.Build(ctx, testDocs(), false))

	res, err := p.Query(ctx, "birds")
	require.NoError(t, err, "reranker failure must not fail the query")
	require.Len(t, res.Candidates, 2)
	for _, c := range res.Candidates {
		assert.Nil(t, c.RelevanceScore, "fallback keeps vector order without relevance scores")
	}
	assert.Equal(t, 1, rr.calls)
}

func TestQueryRerankNilRerankerTruncates(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(t, Options{TopK: 4, RerankTopN: 2}, Deps{Embedder: newHashEmbedder()})
	ctx := context.Background()
	require.NoError(t, p.Build(ctx, testDocs(), false))

	res, err := p.Query(ctx, "fish")
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 2)
}

func TestQueryRerankClampsOversizedResultSet(t *testing.T) {
	t.Parallel()
	rr := &stubReranker{results: []domain.RerankResult{
		{Index: 0, RelevanceScore: 0.9},
		{Index: 1, RelevanceScore: 0.8},
		{Index: 2, RelevanceScore: 0.7},
	}}
	p := newTestPipeline(t, Options{TopK: 4, RerankTopN: 2}, Deps{
		Embedder: newHashEmbedder(),
		Reranker: rr,
	})
	ctx := context.Background()
	require.NoError(t, p.Build(ctx, testDocs(), false))

	res, err := p.Query(ctx, "cats")
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 2, "rerank stage never returns more than topN candidates")
}

func TestQueryRerankOutOfRangeIndexFallsBack(t *testing.T) {
	t.Parallel()
	rr := &stubReranker{results: []domain.RerankResult{{Index: 99, RelevanceScore: 0.5}}}
	p := newTestPipeline(t, Options{TopK: 3, RerankTopN: 2}, Deps{
		Embedder: newHashEmbedder(),
		Reranker: rr,
	})
	ctx := context.Background()
	require.NoError(t, p.Build(ctx, testDocs(), false))

	res, err := p.Query(ctx, "cats")
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 2)
	for _, c := range res.Candidates {
		assert.Nil(t, c.RelevanceScore)
	}
}

func TestQueryGeneratorFailurePropagates(t *testing.T) {
	t.Parallel()
	gen := &stubGenerator{err: errors.New("completion failed")}
	p := newTestPipeline(t, Options{}, Deps{Embedder: newHashEmbedder(), Generator: gen})
	ctx := context.Background()
	require.NoError(t, p.Build(ctx, testDocs(), false))

	_, err := p.Query(ctx, "cats")
	require.Error(t, err)
}

func TestRegistryBuildsBothStrategies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	naiveIdx := memory.NewIndex(zap.NewNop())
	advIdx := memory.NewIndex(zap.NewNop())

	naive := newTestPipeline(t, Options{Name: "naive"}, Deps{Embedder: newHashEmbedder(), Index: naiveIdx})
	advanced := newTestPipeline(t, Options{Name: "advanced", TopK: 10, RerankTopN: 3}, Deps{
		Embedder: newHashEmbedder(),
		Index:    advIdx,
		Splitter: splitter.NewSentenceWindower(splitter.NewPunctSegmenter(5), 1),
	})

	reg, err := NewRegistry(naive, advanced, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, reg.BuildAll(ctx, testDocs(), false))

	n, err := naiveIdx.Count(ctx)
	require.NoError(t, err)
	assert.Positive(t, n)
	a, err := advIdx.Count(ctx)
	require.NoError(t, err)
	assert.Positive(t, a)

	// Close keeps the collections so a later run can skip rebuilding
	reg.Close()
	n, err = naiveIdx.Count(ctx)
	require.NoError(t, err)
	assert.Positive(t, n)

	// Drop is the explicit removal path
	require.NoError(t, reg.Drop(ctx))
	n, err = naiveIdx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	a, err = advIdx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, a)
}

func TestAssembleFormatsBlocks(t *testing.T) {
	t.Parallel()
	score := 0.875
	got := Assemble([]domain.RankedCandidate{
		{
			Candidate: domain.Candidate{Payload: domain.Payload{
				SourceID: "a.txt", Text: "sentence one", Window: "window one",
			}},
			RelevanceScore: &score,
		},
		{
			Candidate: domain.Candidate{Payload: domain.Payload{
				SourceID: "b.txt", Text: "plain chunk",
			}},
		},
	})

	blocks := strings.Split(got, "\n\n---\n\n")
	require.Len(t, blocks, 2)
	assert.Equal(t, "Source: a.txt\nRelevance Score: 0.875\n\nwindow one", blocks[0])
	assert.Equal(t, "Source: b.txt\n\nplain chunk", blocks[1])
}

func TestAssembleEmpty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", Assemble(nil))
}

func TestAssemblePrefersWindowOverText(t *testing.T) {
	t.Parallel()
	got := Assemble([]domain.RankedCandidate{{
		Candidate: domain.Candidate{Payload: domain.Payload{
			SourceID: "s.txt", Text: "just the sentence", Window: "full window",
		}},
	}})
	assert.Contains(t, got, "full window")
	assert.NotContains(t, got, "just the sentence")
}

func TestBuildUserPromptLayout(t *testing.T) {
	t.Parallel()
	got := buildUserPrompt("CTX", "why?")
	assert.True(t, strings.HasPrefix(got, "Context:\nCTX\n"), got)
	assert.Contains(t, got, "User Question: why?")
	assert.True(t, strings.HasSuffix(got, "Answer:"), got)
}

func ExampleAssemble() {
	out := Assemble([]domain.RankedCandidate{{
		Candidate: domain.Candidate{Payload: domain.Payload{SourceID: "doc.txt", Text: "hello"}},
	}})
	fmt.Println(out)
	// Output:
	// Source: doc.txt
	//
	// hello
}
