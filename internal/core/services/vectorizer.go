package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driven"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driving"
	"github.com/docvault-labs/docvault-core/internal/logger"
)

// Ensure Vectorizer implements the interface.
var _ driving.VectorMaintenance = (*Vectorizer)(nil)

// Vectorizer maintains per-document embeddings and answers
// nearest-neighbour queries over them. Staleness is detected by
// comparing the stored source-text hash against the document's current
// text; search trusts only fresh records.
type Vectorizer struct {
	docStore driven.DocumentStore
	embStore driven.EmbeddingStore
	embedder driven.Embedder
}

// NewVectorizer creates a vectorizer. The embedder may be nil, in
// which case Vectorize and Search fail with
// domain.ErrEmbeddingUnavailable / domain.ErrIndexUnavailable.
func NewVectorizer(
	docStore driven.DocumentStore,
	embStore driven.EmbeddingStore,
	embedder driven.Embedder,
) *Vectorizer {
	return &Vectorizer{
		docStore: docStore,
		embStore: embStore,
		embedder: embedder,
	}
}

// TextHash returns the SHA-256 hex digest used for staleness checks.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Vectorize computes and stores the embedding for a document. When the
// stored record already matches the text hash the stored record is
// returned unchanged, so re-vectorizing an unmodified document yields
// a bit-identical vector.
func (v *Vectorizer) Vectorize(ctx context.Context, documentID, text string) (*domain.EmbeddingRecord, error) {
	if v.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	hash := TextHash(text)

	existing, err := v.embStore.Get(ctx, documentID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("loading embedding record: %w", err)
	}
	if existing != nil && existing.TextHash == hash {
		logger.Debug("Vectorize %s: unchanged, keeping stored vector", documentID)
		return existing, nil
	}

	vec, err := v.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding document %s: %w", documentID, err)
	}

	rec := domain.EmbeddingRecord{
		DocumentID:   documentID,
		Vector:       vec,
		TextHash:     hash,
		VectorizedAt: time.Now().UTC(),
	}
	if err := v.embStore.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving embedding record: %w", err)
	}

	return &rec, nil
}

// Search returns the k nearest documents to the query vector by cosine
// similarity, most similar first. Stale records are excluded; ties are
// broken by more recent document creation time.
func (v *Vectorizer) Search(ctx context.Context, query []float32, k int) ([]domain.VectorHit, error) {
	if v.embedder == nil {
		return nil, domain.ErrIndexUnavailable
	}
	if k <= 0 {
		return nil, nil
	}

	records, err := v.embStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}

	type scored struct {
		hit     domain.VectorHit
		created time.Time
	}

	var candidates []scored
	for _, rec := range records {
		doc, err := v.docStore.GetDocument(ctx, rec.DocumentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue // document deleted, embedding is an orphan
			}
			return nil, fmt.Errorf("loading document %s: %w", rec.DocumentID, err)
		}
		if rec.TextHash != TextHash(doc.Text) {
			logger.Debug("Search: skipping stale embedding for %s", rec.DocumentID)
			continue
		}

		sim, err := cosineSimilarity(query, rec.Vector)
		if err != nil {
			logger.Warn("Search: %v", err)
			continue
		}
		candidates = append(candidates, scored{
			hit:     domain.VectorHit{DocumentID: rec.DocumentID, Similarity: sim},
			created: doc.CreatedAt,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].hit.Similarity != candidates[j].hit.Similarity {
			return candidates[i].hit.Similarity > candidates[j].hit.Similarity
		}
		return candidates[i].created.After(candidates[j].created)
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	hits := make([]domain.VectorHit, len(candidates))
	for i, c := range candidates {
		hits[i] = c.hit
	}
	return hits, nil
}

// VectorizeAll processes pending and stale documents in creation
// order, reporting (current, total) after each document. Cancellation
// is cooperative and checked between documents, never mid-document.
func (v *Vectorizer) VectorizeAll(ctx context.Context, onProgress domain.ProgressFunc) (*domain.VectorizationSummary, error) {
	if v.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	start := time.Now()
	logger.Section("Vectorization Sweep")

	docs, err := v.docStore.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	summary := &domain.VectorizationSummary{Total: len(docs)}

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			logger.Info("Vectorization cancelled after %d/%d documents", i, len(docs))
			return summary, err
		}

		pending, err := v.isPending(ctx, doc)
		if err != nil {
			summary.Errored++
		} else if !pending {
			summary.Skipped++
		} else if _, err := v.Vectorize(ctx, doc.ID, doc.Text); err != nil {
			logger.Warn("Vectorize %s failed: %v", doc.ID, err)
			summary.Errored++
		} else {
			summary.Vectorized++
		}

		if onProgress != nil {
			onProgress(i+1, len(docs))
		}
	}

	summary.Duration = time.Since(start)
	logger.Info("Vectorization complete: %d vectorized, %d skipped, %d errors",
		summary.Vectorized, summary.Skipped, summary.Errored)
	return summary, nil
}

// Stats reports index coverage of the corpus.
func (v *Vectorizer) Stats(ctx context.Context) (*domain.VectorizationStats, error) {
	docs, err := v.docStore.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	stats := &domain.VectorizationStats{Total: len(docs)}
	for _, doc := range docs {
		pending, err := v.isPending(ctx, doc)
		if err != nil {
			return nil, err
		}
		if pending {
			stats.Pending++
		} else {
			stats.Vectorized++
		}
	}
	return stats, nil
}

// Delete removes a document's embedding record.
func (v *Vectorizer) Delete(ctx context.Context, documentID string) error {
	return v.embStore.Delete(ctx, documentID)
}

// isPending reports whether a document has no embedding or a stale one.
func (v *Vectorizer) isPending(ctx context.Context, doc domain.Document) (bool, error) {
	rec, err := v.embStore.Get(ctx, doc.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("loading embedding record: %w", err)
	}
	return rec.TextHash != TextHash(doc.Text), nil
}

// cosineSimilarity computes the cosine similarity between two vectors.
// It fails on dimension mismatch or zero-magnitude input.
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("cosine similarity dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, errors.New("cosine similarity on empty vectors")
	}

	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, errors.New("cosine similarity with zero-magnitude vector")
	}
	return dot / (math.Sqrt(na2) * math.Sqrt(nb2)), nil
}
