package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ragcompare/internal/domain"
)

func TestIndex_ImplementsVectorIndex(t *testing.T) {
	var _ domain.VectorIndex = (*Index)(nil)
}

func addEntries(t *testing.T, idx *Index, ids []string, vectors [][]float64) {
	t.Helper()
	payloads := make([]domain.Payload, len(ids))
	for i, id := range ids {
		payloads[i] = domain.Payload{SourceID: id, Text: id}
	}
	require.NoError(t, idx.Add(context.Background(), ids, vectors, payloads))
}

func TestIndex_AddRejectsLengthMismatch(t *testing.T) {
	t.Parallel()
	idx := NewIndex(zap.NewNop())

	err := idx.Add(context.Background(), []string{"a", "b"}, [][]float64{{1}}, []domain.Payload{{}, {}})
	assert.Error(t, err)
}

func TestIndex_QueryOrdersBySimilarity(t *testing.T) {
	t.Parallel()
	idx := NewIndex(zap.NewNop())
	addEntries(t, idx,
		[]string{"x", "y", "z"},
		[][]float64{{0, 1}, {1, 0}, {0.9, 0.1}},
	)

	got, err := idx.Query(context.Background(), []float64{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "y", got[0].ID)
	assert.Equal(t, "z", got[1].ID)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestIndex_QueryTiesKeepInsertionOrder(t *testing.T) {
	t.Parallel()
	idx := NewIndex(zap.NewNop())
	// identical vectors score identically
	addEntries(t, idx,
		[]string{"first", "second", "third"},
		[][]float64{{1, 0}, {1, 0}, {1, 0}},
	)

	got, err := idx.Query(context.Background(), []float64{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{got[0].ID, got[1].ID, got[2].ID})
}

func TestIndex_QueryClampsTopK(t *testing.T) {
	t.Parallel()
	idx := NewIndex(zap.NewNop())
	addEntries(t, idx, []string{"a"}, [][]float64{{1, 0}})

	got, err := idx.Query(context.Background(), []float64{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestIndex_UpsertKeepsPositionAndCount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	idx := NewIndex(zap.NewNop())
	addEntries(t, idx, []string{"a", "b"}, [][]float64{{1, 0}, {0, 1}})

	// re-adding the same ids must not grow the collection
	addEntries(t, idx, []string{"a", "b"}, [][]float64{{1, 0}, {0, 1}})

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := idx.Query(ctx, []float64{1, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, "a", got[0].ID)
}

func TestIndex_DeleteIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	idx := NewIndex(zap.NewNop())

	require.NoError(t, idx.Delete(ctx)) // empty collection: still success

	addEntries(t, idx, []string{"a"}, [][]float64{{1}})
	require.NoError(t, idx.Delete(ctx))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
