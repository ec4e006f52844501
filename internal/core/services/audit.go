package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driven"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driving"
	"github.com/docvault-labs/docvault-core/internal/logger"
)

// Ensure AuditTrail implements the interface.
var _ driving.AuditReader = (*AuditTrail)(nil)

// AppendOptions carries the optional metadata of an audit entry.
type AppendOptions struct {
	Level        domain.AuditLevel
	Details      string
	Location     string
	Device       string
	ErrorMessage string
}

// AuditTrail maintains the append-only, hash-chained record of every
// guarded action. Appends are serialised under a single mutex so the
// chain always links to the entry that most recently completed its
// append, even when concurrent operations finish out of order.
type AuditTrail struct {
	store driven.AuditStore

	mu   sync.Mutex
	last *domain.AuditEntry
}

// NewAuditTrail creates an audit trail over the given store. The chain
// resumes from the store's most recent entry if one exists.
func NewAuditTrail(ctx context.Context, store driven.AuditStore) (*AuditTrail, error) {
	t := &AuditTrail{store: store}

	last, err := store.Last(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("loading chain tail: %w", err)
	}
	t.last = last

	return t, nil
}

// Append creates, checksums and stores a new entry linked to the
// current chain tail. Entries are immutable once stored; append is the
// chain's only valid operation.
func (t *AuditTrail) Append(
	ctx context.Context,
	action, resourceType, resourceID, actor string,
	success bool,
	opts AppendOptions,
) (*domain.AuditEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	level := opts.Level
	if level == "" {
		level = domain.AuditLevelInfo
		if !success {
			level = domain.AuditLevelWarning
		}
	}

	entry := domain.AuditEntry{
		ID:           uuid.NewString(),
		Level:        level,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Actor:        actor,
		Timestamp:    time.Now().UTC(),
		Details:      opts.Details,
		Location:     opts.Location,
		Device:       opts.Device,
		Success:      success,
		ErrorMessage: opts.ErrorMessage,
	}

	if t.last != nil {
		entry.PreviousEntryID = t.last.ID
		entry.PreviousChecksum = t.last.Checksum
	}
	entry.Checksum = entry.ComputeChecksum()

	if err := t.store.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("appending audit entry: %w", err)
	}

	t.last = &entry
	logger.Debug("Audit: %s %s/%s success=%t", action, resourceType, resourceID, success)

	return &entry, nil
}

// RecentEntries returns up to limit entries, most recent first.
func (t *AuditTrail) RecentEntries(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return t.store.Recent(ctx, limit)
}

// Verify walks the stored trail from oldest to newest and returns the
// first entry that fails checksum or chain verification. Consumers
// must treat everything from a failing entry forward as untrusted.
func (t *AuditTrail) Verify(ctx context.Context) error {
	entries, err := t.store.Recent(ctx, 0)
	if err != nil {
		return fmt.Errorf("loading audit trail: %w", err)
	}

	// Recent returns newest first; walk oldest to newest.
	byID := make(map[string]domain.AuditEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if !domain.VerifyChecksum(e) {
			return fmt.Errorf("%w: entry %s fails checksum", domain.ErrChainIntegrity, e.ID)
		}
		if e.PreviousEntryID == "" {
			continue
		}
		prev, ok := byID[e.PreviousEntryID]
		if !ok {
			return fmt.Errorf("%w: entry %s links to missing entry %s",
				domain.ErrChainIntegrity, e.ID, e.PreviousEntryID)
		}
		if !domain.VerifyChain(e, prev.Checksum) {
			return fmt.Errorf("%w: entry %s breaks the chain", domain.ErrChainIntegrity, e.ID)
		}
	}

	return nil
}
