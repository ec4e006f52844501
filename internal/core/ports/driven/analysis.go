package driven

import (
	"context"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
)

// AnalysisEngine performs generative reasoning over a bounded set of
// candidate documents. Inference runs entirely on-device; no network
// call leaves the machine during Analyze.
//
// This is an optional service - when nil, complex queries degrade to
// the semantic-only result.
type AnalysisEngine interface {
	// Ready reports whether the engine can serve Analyze calls
	// (model artifact installed and runtime reachable).
	Ready(ctx context.Context) bool

	// Analyze answers the query over the candidate documents. It
	// returns either a synthesized structured filter (Analysis.Filter
	// non-nil) or a free-text analysis with a confidence score.
	// It runs with a bounded timeout; on timeout or when the engine
	// is not ready it fails with domain.ErrAnalysisUnavailable.
	Analyze(ctx context.Context, query string, candidates []domain.Document) (*domain.Analysis, error)

	// ModelName returns the name of the generative model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
