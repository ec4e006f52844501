// Package memory provides in-memory store implementations for testing.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driven"
)

// Ensure DocStore implements the interface.
var _ driven.DocumentStore = (*DocStore)(nil)

// DocStore is an in-memory implementation of driven.DocumentStore.
type DocStore struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

// NewDocStore creates an empty in-memory document store.
func NewDocStore() *DocStore {
	return &DocStore{docs: make(map[string]domain.Document)}
}

// SaveDocument stores or updates a document.
func (s *DocStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	s.docs[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetDocumentText retrieves only the extracted text of a document.
func (s *DocStore) GetDocumentText(ctx context.Context, id string) (string, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	return doc.Text, nil
}

// QueryDocuments returns documents matching the filter, ordered by
// transaction date descending then creation time descending.
func (s *DocStore) QueryDocuments(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.Document
	for _, doc := range s.docs {
		if matches(doc, filter) {
			results = append(results, doc)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		di, dj := results[i].TxnDate, results[j].TxnDate
		switch {
		case di != nil && dj != nil && !di.Equal(*dj):
			return di.After(*dj)
		case di != nil && dj == nil:
			return true
		case di == nil && dj != nil:
			return false
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

// ListDocuments returns all documents in creation order.
func (s *DocStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// UpdateDocumentEntities writes the derived entity fields.
func (s *DocStore) UpdateDocumentEntities(_ context.Context, id string, update domain.EntityUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return domain.ErrNotFound
	}

	now := time.Now().UTC()
	doc.Vendor = update.Vendor
	doc.Amount = update.Amount
	doc.TxnDate = update.TxnDate
	doc.Category = update.Category
	doc.EntityConfidence = update.Confidence
	doc.EntitiesExtractedAt = &now
	doc.UpdatedAt = now
	s.docs[id] = doc
	return nil
}

// DeleteDocument removes a document.
func (s *DocStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

// matches applies the filter to one document.
func matches(doc domain.Document, filter domain.DocumentFilter) bool {
	if filter.Vendor != "" && !strings.EqualFold(doc.Vendor, filter.Vendor) {
		return false
	}
	if filter.Category != "" && doc.Category != filter.Category {
		return false
	}
	if filter.MinAmount != nil && (doc.Amount == nil || *doc.Amount < *filter.MinAmount) {
		return false
	}
	if filter.MaxAmount != nil && (doc.Amount == nil || *doc.Amount > *filter.MaxAmount) {
		return false
	}
	if filter.DateFrom != nil && (doc.TxnDate == nil || doc.TxnDate.Before(*filter.DateFrom)) {
		return false
	}
	if filter.DateTo != nil && (doc.TxnDate == nil || doc.TxnDate.After(*filter.DateTo)) {
		return false
	}
	return true
}
