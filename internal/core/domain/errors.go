package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAnalysisUnavailable indicates the generative analysis engine
	// is not ready or timed out. The router treats this as a signal
	// to fall back to the semantic-only result.
	ErrAnalysisUnavailable = errors.New("analysis unavailable")

	// ErrIndexUnavailable indicates the embedding index is not ready.
	// The semantic path degrades to structured-only execution.
	ErrIndexUnavailable = errors.New("embedding index unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Semantic search is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrReprocessingInProgress indicates a reprocessing sweep is
	// already running.
	ErrReprocessingInProgress = errors.New("reprocessing in progress")

	// ErrChainIntegrity indicates an audit entry failed checksum or
	// chain verification. The trail from that entry forward must be
	// treated as untrusted.
	ErrChainIntegrity = errors.New("audit chain integrity violation")
)

// SecurityViolation is returned when the input guard rejects a query.
// The query was never executed.
type SecurityViolation struct {
	// Reason describes why the query was rejected.
	Reason string
}

// Error implements the error interface.
func (e *SecurityViolation) Error() string {
	return fmt.Sprintf("rejected for security reasons: %s", e.Reason)
}

// QuotaExceeded is returned when the rate limiter rejects a query
// before execution. It includes retry guidance.
type QuotaExceeded struct {
	RemainingMinute int
	RemainingHour   int

	// RetryAfter is how long the caller should wait before retrying.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *QuotaExceeded) Error() string {
	return fmt.Sprintf("rate limit reached, retry after %s", e.RetryAfter.Round(time.Second))
}
