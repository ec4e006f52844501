package driving

import (
	"context"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
)

// SearchService is the query entry point exposed to UI layers. Every
// call is sanitised, rate limited, routed, and audit logged exactly
// once.
type SearchService interface {
	// Search executes a raw natural-language query for an actor. It
	// fails with *domain.SecurityViolation or *domain.QuotaExceeded
	// before any execution; execution-path failures degrade to a
	// cheaper strategy instead of surfacing an error.
	Search(ctx context.Context, actorID, rawQuery string) (*domain.RouterResult, error)

	// RateLimitStats reports the actor's remaining quota without
	// consuming any of it.
	RateLimitStats(actorID string) domain.RateLimitStats
}

// AuditReader exposes the audit trail to UI layers.
type AuditReader interface {
	// RecentEntries returns up to limit audit entries, most recent
	// first.
	RecentEntries(ctx context.Context, limit int) ([]domain.AuditEntry, error)

	// Verify walks the stored trail from oldest to newest and returns
	// the first entry that fails checksum or chain verification,
	// wrapped in domain.ErrChainIntegrity. Everything from that entry
	// forward is untrusted.
	Verify(ctx context.Context) error
}
