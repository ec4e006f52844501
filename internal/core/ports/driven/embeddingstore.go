package driven

import (
	"context"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
)

// EmbeddingStore persists embedding records. At most one record exists
// per document; Save replaces the whole record atomically so a
// concurrent search never observes a half-written vector.
type EmbeddingStore interface {
	// Save stores or replaces the embedding record for a document.
	Save(ctx context.Context, rec domain.EmbeddingRecord) error

	// Get retrieves the embedding record for a document.
	Get(ctx context.Context, documentID string) (*domain.EmbeddingRecord, error)

	// List returns all embedding records.
	List(ctx context.Context) ([]domain.EmbeddingRecord, error)

	// Delete removes the embedding record for a document.
	Delete(ctx context.Context, documentID string) error
}
