package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvault-labs/docvault-core/internal/adapters/driven/storage/memory"
	"github.com/docvault-labs/docvault-core/internal/core/domain"
)

// mockEngine implements driven.AnalysisEngine for testing.
type mockEngine struct {
	ready      bool
	analysis   *domain.Analysis
	analyzeErr error
	calls      int
}

func (m *mockEngine) Ready(_ context.Context) bool { return m.ready }

func (m *mockEngine) Analyze(_ context.Context, _ string, _ []domain.Document) (*domain.Analysis, error) {
	m.calls++
	if m.analyzeErr != nil {
		return nil, m.analyzeErr
	}
	return m.analysis, nil
}

func (m *mockEngine) ModelName() string { return "mock-engine" }

func (m *mockEngine) Close() error { return nil }

func seedCorpus(t *testing.T, store *memory.DocStore) {
	t.Helper()
	ctx := context.Background()
	extracted := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	docs := []domain.Document{
		{ID: "doc-1", Text: "Kroger grocery receipt total 15.00"},
		{ID: "doc-2", Text: "Walmart receipt total 30.00", EntitiesExtractedAt: &extracted},
		{ID: "doc-3", Text: "Shell gas 40.00"},
		{ID: "doc-4", Text: "CVS pharmacy 12.75", EntitiesExtractedAt: &extracted},
		{ID: "doc-5", Text: "Target purchase 22.00"},
	}
	for i := range docs {
		docs[i].CreatedAt = time.Now()
		require.NoError(t, store.SaveDocument(ctx, &docs[i]))
	}
}

func TestReprocessor_ReprocessAll_SkipsAlreadyExtracted(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	seedCorpus(t, store)
	r := NewReprocessor(store, NewExtractor(nil), nil, nil)

	summary, err := r.ReprocessAll(ctx, nil, false)

	require.NoError(t, err)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 0, summary.Errored)
}

func TestReprocessor_ReprocessAll_ForceRevisitsEverything(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	seedCorpus(t, store)
	r := NewReprocessor(store, NewExtractor(nil), nil, nil)

	summary, err := r.ReprocessAll(ctx, nil, true)

	require.NoError(t, err)
	assert.Equal(t, 5, summary.Processed)
	assert.Equal(t, 0, summary.Skipped)
}

func TestReprocessor_ReprocessAll_SkipsEmptyText(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "doc-1"}))
	r := NewReprocessor(store, NewExtractor(nil), nil, nil)

	summary, err := r.ReprocessAll(ctx, nil, true)

	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
}

func TestReprocessor_ReprocessAll_PersistsEntities(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID:   "doc-1",
		Text: "KROGER grocery receipt Total 15.00 Date 2024-03-10",
	}))
	r := NewReprocessor(store, NewExtractor(nil), nil, nil)

	_, err := r.ReprocessAll(ctx, nil, false)
	require.NoError(t, err)

	doc, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Kroger", doc.Vendor)
	require.NotNil(t, doc.Amount)
	assert.Equal(t, 15.00, *doc.Amount)
	assert.Equal(t, "groceries", doc.Category)
	require.NotNil(t, doc.EntitiesExtractedAt)
}

func TestReprocessor_ReprocessAll_EngineFallbackWhenHeuristicsFindNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID:   "doc-1",
		Text: "handwritten note with no recognisable fields",
	}))
	amount := 9.95
	engine := &mockEngine{
		ready: true,
		analysis: &domain.Analysis{
			Confidence: 0.6,
			Filter:     &domain.DocumentFilter{Vendor: "Corner Deli", MinAmount: &amount},
		},
	}
	r := NewReprocessor(store, NewExtractor(nil), engine, nil)

	_, err := r.ReprocessAll(ctx, nil, false)
	require.NoError(t, err)

	doc, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Corner Deli", doc.Vendor)
	require.NotNil(t, doc.Amount)
	assert.Equal(t, 9.95, *doc.Amount)
	assert.Equal(t, 1, engine.calls)
}

func TestReprocessor_ReprocessAll_EngineNotCalledWhenHeuristicsSucceed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID:   "doc-1",
		Text: "Kroger receipt total 15.00",
	}))
	engine := &mockEngine{ready: true}
	r := NewReprocessor(store, NewExtractor(nil), engine, nil)

	_, err := r.ReprocessAll(ctx, nil, false)

	require.NoError(t, err)
	assert.Zero(t, engine.calls)
}

func TestReprocessor_ReprocessAll_SecondSweepRejectedWhileRunning(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	seedCorpus(t, store)
	r := NewReprocessor(store, NewExtractor(nil), nil, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	done := make(chan error, 1)
	go func() {
		_, err := r.ReprocessAll(ctx, func(_, _ int) {
			once.Do(func() {
				close(started)
				<-release
			})
		}, true)
		done <- err
	}()
	<-started

	_, err := r.ReprocessAll(ctx, nil, true)
	close(release)

	assert.ErrorIs(t, err, domain.ErrReprocessingInProgress)
	require.NoError(t, <-done)
}

func TestReprocessor_Cancel_StopsAtDocumentBoundary(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	seedCorpus(t, store)
	r := NewReprocessor(store, NewExtractor(nil), nil, nil)

	summary, err := r.ReprocessAll(ctx, func(current, _ int) {
		if current == 2 {
			r.Cancel()
		}
	}, true)

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Less(t, summary.Processed, 5)
}

func TestReprocessor_ReprocessOne(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID:   "doc-1",
		Text: "Kroger receipt total 15.00",
	}))
	r := NewReprocessor(store, NewExtractor(nil), nil, nil)

	changed, err := r.ReprocessOne(ctx, "doc-1")

	require.NoError(t, err)
	assert.True(t, changed)

	doc, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Kroger", doc.Vendor)
}

func TestReprocessor_ReprocessOne_MissingDocument(t *testing.T) {
	r := NewReprocessor(memory.NewDocStore(), NewExtractor(nil), nil, nil)

	_, err := r.ReprocessOne(context.Background(), "absent")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReprocessor_ReprocessAll_WritesAuditEntry(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocStore()
	seedCorpus(t, store)
	trail, err := NewAuditTrail(ctx, memory.NewAuditStore())
	require.NoError(t, err)
	r := NewReprocessor(store, NewExtractor(nil), nil, trail)

	_, err = r.ReprocessAll(ctx, nil, false)
	require.NoError(t, err)

	entries, err := trail.RecentEntries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "document.reprocess", entries[0].Action)
	assert.Contains(t, entries[0].Details, "processed=3")
	assert.True(t, entries[0].Success)
}
