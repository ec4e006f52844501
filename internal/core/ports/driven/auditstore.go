package driven

import (
	"context"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
)

// AuditStore persists audit entries. The trail is append-only: no
// update or delete operation exists.
type AuditStore interface {
	// Append stores a new entry.
	Append(ctx context.Context, entry domain.AuditEntry) error

	// Get retrieves an entry by ID.
	Get(ctx context.Context, id string) (*domain.AuditEntry, error)

	// Last returns the most recently appended entry, or
	// domain.ErrNotFound when the trail is empty.
	Last(ctx context.Context) (*domain.AuditEntry, error)

	// Recent returns up to limit entries, most recent first.
	// A non-positive limit returns the whole trail.
	Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}
