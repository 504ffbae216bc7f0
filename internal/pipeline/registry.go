package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ragcompare/internal/domain"
)

// Registry holds the two strategies under comparison.
type Registry struct {
	Naive    *Pipeline
	Advanced *Pipeline
	logger   *zap.Logger
}

func NewRegistry(naive, advanced *Pipeline, logger *zap.Logger) (*Registry, error) {
	if naive == nil || advanced == nil {
		return nil, fmt.Errorf("registry: both pipelines are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{Naive: naive, Advanced: advanced, logger: logger}, nil
}

// BuildAll indexes the same documents into both pipelines.
func (r *Registry) BuildAll(ctx context.Context, docs []domain.Document, force bool) error {
	for _, p := range []*Pipeline{r.Naive, r.Advanced} {
		if err := p.Build(ctx, docs, force); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the registry without touching the built collections,
// so a persistent backend keeps them across restarts and the next build
// can skip re-indexing. Use Drop to remove the collections.
func (r *Registry) Close() {
	r.logger.Info("registry closed",
		zap.String("naive", r.Naive.Name()),
		zap.String("advanced", r.Advanced.Name()))
}

// Drop deletes both collections. The first error is returned after
// every collection has been attempted.
func (r *Registry) Drop(ctx context.Context) error {
	var firstErr error
	for _, p := range []*Pipeline{r.Naive, r.Advanced} {
		if err := p.deps.Index.Delete(ctx); err != nil {
			r.logger.Warn("failed to drop index",
				zap.String("strategy", p.opts.Name),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
