package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driven"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driving"
	"github.com/docvault-labs/docvault-core/internal/logger"
)

// Ensure Importer implements the interface.
var _ driving.Importing = (*Importer)(nil)

// maxImportBytes caps the size of a single imported file.
const maxImportBytes = 10 << 20

// Importer brings local files into the document store: normalise to
// plain text, run the entity heuristics, persist, vectorize. Whole
// pipeline stays on the device.
type Importer struct {
	docStore   driven.DocumentStore
	normaliser driven.Normaliser
	extractor  *Extractor
	vectorizer *Vectorizer
	audit      *AuditTrail
}

// NewImporter creates an import pipeline. The vectorizer may be nil;
// imported documents are then picked up by the next vectorize sweep.
func NewImporter(
	docStore driven.DocumentStore,
	normaliser driven.Normaliser,
	extractor *Extractor,
	vectorizer *Vectorizer,
	audit *AuditTrail,
) *Importer {
	return &Importer{
		docStore:   docStore,
		normaliser: normaliser,
		extractor:  extractor,
		vectorizer: vectorizer,
		audit:      audit,
	}
}

// Import stores the file's extracted text as a new document. Entity
// extraction runs inline; when the heuristics find nothing the
// extraction timestamp stays unset so a later reprocessing sweep can
// take an engine-backed pass.
func (i *Importer) Import(ctx context.Context, filename string, data []byte) (*domain.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrInvalidInput)
	}
	if len(data) > maxImportBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrInvalidInput, maxImportBytes)
	}

	extracted, err := i.normaliser.Normalise(ctx, filename, data)
	if err != nil {
		i.logImport(filename, "", false, err.Error())
		return nil, fmt.Errorf("normalising %s: %w", filename, err)
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		Title:     extracted.Title,
		Text:      extracted.Text,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if doc.Text != "" {
		update, confidence := i.extractor.ExtractEntities(doc.Text)
		if confidence > 0 {
			doc.Vendor = update.Vendor
			doc.Amount = update.Amount
			doc.TxnDate = update.TxnDate
			doc.Category = update.Category
			doc.EntityConfidence = confidence
			doc.EntitiesExtractedAt = &now
		}
	}

	if err := i.docStore.SaveDocument(ctx, doc); err != nil {
		i.logImport(filename, doc.ID, false, err.Error())
		return nil, fmt.Errorf("storing document: %w", err)
	}

	if i.vectorizer != nil && doc.Text != "" {
		// Indexing failure is not fatal: the document is stored and
		// the next vectorize sweep retries it.
		if _, err := i.vectorizer.Vectorize(ctx, doc.ID, doc.Text); err != nil {
			logger.Warn("Vectorizing imported document %s failed: %v", doc.ID, err)
		}
	}

	logger.Info("Imported %s as document %s", filename, doc.ID)
	i.logImport(filename, doc.ID, true, "")
	return doc, nil
}

// logImport records the import outcome in the audit trail.
func (i *Importer) logImport(filename, documentID string, success bool, errMsg string) {
	if i.audit == nil {
		return
	}
	_, err := i.audit.Append(context.Background(),
		"document.import", "document", documentID, "system", success,
		AppendOptions{Details: fmt.Sprintf("file=%s", filename), ErrorMessage: errMsg})
	if err != nil {
		logger.Warn("Audit append for import failed: %v", err)
	}
}
