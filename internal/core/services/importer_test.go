package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvault-labs/docvault-core/internal/adapters/driven/storage/memory"
	"github.com/docvault-labs/docvault-core/internal/core/domain"
)

// mockNormaliser returns canned text, or fails on demand.
type mockNormaliser struct {
	title        string
	text         string
	normaliseErr error
}

func (m *mockNormaliser) Supports(string) bool { return true }

func (m *mockNormaliser) Normalise(_ context.Context, filename string, data []byte) (*domain.ExtractedFile, error) {
	if m.normaliseErr != nil {
		return nil, m.normaliseErr
	}
	title := m.title
	if title == "" {
		title = strings.TrimSuffix(filename, ".txt")
	}
	text := m.text
	if text == "" {
		text = string(data)
	}
	return &domain.ExtractedFile{Title: title, Text: text}, nil
}

func newTestImporter(normaliser *mockNormaliser) (*Importer, *memory.DocStore, *AuditTrail) {
	docStore := memory.NewDocStore()
	auditStore := memory.NewAuditStore()
	audit, _ := NewAuditTrail(context.Background(), auditStore)
	extractor := NewExtractor(nil)

	return NewImporter(docStore, normaliser, extractor, nil, audit), docStore, audit
}

func TestImporter_Import_StoresDocumentWithEntities(t *testing.T) {
	importer, docStore, _ := newTestImporter(&mockNormaliser{})
	ctx := context.Background()

	doc, err := importer.Import(ctx, "receipt.txt",
		[]byte("Kroger receipt total $15.00 March 10 2024"))
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "receipt", doc.Title)
	assert.Equal(t, "Kroger", doc.Vendor)
	require.NotNil(t, doc.Amount)
	assert.Equal(t, 15.00, *doc.Amount)
	require.NotNil(t, doc.TxnDate)
	assert.NotNil(t, doc.EntitiesExtractedAt)
	assert.Greater(t, doc.EntityConfidence, 0.0)

	stored, err := docStore.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kroger", stored.Vendor)
}

func TestImporter_Import_NoEntitiesLeavesTimestampUnset(t *testing.T) {
	importer, docStore, _ := newTestImporter(&mockNormaliser{
		text: "meeting notes without any transaction details whatsoever",
	})
	ctx := context.Background()

	doc, err := importer.Import(ctx, "notes.txt", []byte("ignored"))
	require.NoError(t, err)

	// The heuristics found nothing, so the document stays eligible for
	// an engine-backed reprocessing sweep.
	assert.Nil(t, doc.EntitiesExtractedAt)
	assert.Zero(t, doc.EntityConfidence)

	stored, err := docStore.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.EntitiesExtractedAt)
}

func TestImporter_Import_IndexesWhenVectorizerPresent(t *testing.T) {
	docStore := memory.NewDocStore()
	embStore := memory.NewEmbeddingStore()
	embedder := &mockEmbedder{}
	vectorizer := NewVectorizer(docStore, embStore, embedder)
	extractor := NewExtractor(nil)

	importer := NewImporter(docStore, &mockNormaliser{}, extractor, vectorizer, nil)

	doc, err := importer.Import(context.Background(), "receipt.txt",
		[]byte("Kroger receipt total $15.00"))
	require.NoError(t, err)

	record, err := embStore.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, record.DocumentID)
}

func TestImporter_Import_EmptyFile(t *testing.T) {
	importer, _, _ := newTestImporter(&mockNormaliser{})

	_, err := importer.Import(context.Background(), "empty.txt", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestImporter_Import_OversizedFile(t *testing.T) {
	importer, _, _ := newTestImporter(&mockNormaliser{})

	_, err := importer.Import(context.Background(), "huge.txt",
		make([]byte, maxImportBytes+1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestImporter_Import_NormaliseFailure(t *testing.T) {
	importer, docStore, _ := newTestImporter(&mockNormaliser{
		normaliseErr: domain.ErrInvalidInput,
	})
	ctx := context.Background()

	_, err := importer.Import(ctx, "broken.docx", []byte("not a docx"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	docs, err := docStore.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestImporter_Import_AuditsOutcome(t *testing.T) {
	importer, _, audit := newTestImporter(&mockNormaliser{})
	ctx := context.Background()

	doc, err := importer.Import(ctx, "receipt.txt",
		[]byte("Kroger receipt total $15.00"))
	require.NoError(t, err)

	entries, err := audit.RecentEntries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "document.import", entries[0].Action)
	assert.Equal(t, doc.ID, entries[0].ResourceID)
	assert.True(t, entries[0].Success)
	assert.Contains(t, entries[0].Details, "file=receipt.txt")
}

func TestImporter_Import_AuditsFailure(t *testing.T) {
	importer, _, audit := newTestImporter(&mockNormaliser{
		normaliseErr: errors.New("parse failed"),
	})
	ctx := context.Background()

	_, err := importer.Import(ctx, "broken.eml", []byte("garbage"))
	require.Error(t, err)

	entries, err := audit.RecentEntries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Equal(t, "parse failed", entries[0].ErrorMessage)
}
