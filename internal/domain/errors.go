package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotIndexed is returned when a query is issued against a
	// collection that has not been built yet.
	ErrNotIndexed = errors.New("collection not indexed")

	// ErrDataDirMissing is returned when the corpus directory does not
	// exist at load time.
	ErrDataDirMissing = errors.New("data directory not found")

	// ErrRerankUnavailable marks an absent or failed rerank capability.
	// It is the single non-fatal error in the system: pipelines fall back
	// to the original similarity order instead of failing the query.
	ErrRerankUnavailable = errors.New("rerank unavailable")
)

// ProviderError wraps a failed embedding or generation call. It is
// propagated unmodified to the caller; the core performs no retries.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
