package driven

import (
	"context"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
)

// DocumentStore persists documents and their derived entity fields.
// Backed by SQLite for metadata storage. The core reads documents and
// writes back only the entity fields.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetDocumentText retrieves only the extracted text of a document.
	GetDocumentText(ctx context.Context, id string) (string, error)

	// QueryDocuments returns documents matching the filter. All filter
	// values are bound as query parameters; results are ordered by
	// transaction date descending, then creation time descending.
	QueryDocuments(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)

	// ListDocuments returns all documents in creation order.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// UpdateDocumentEntities writes the derived entity fields for a
	// document and stamps EntitiesExtractedAt.
	UpdateDocumentEntities(ctx context.Context, id string, update domain.EntityUpdate) error

	// DeleteDocument removes a document.
	DeleteDocument(ctx context.Context, id string) error
}
