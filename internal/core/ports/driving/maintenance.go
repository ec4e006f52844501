package driving

import (
	"context"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
)

// VectorMaintenance runs background embedding maintenance over the
// document corpus.
type VectorMaintenance interface {
	// VectorizeAll computes embeddings for every pending or stale
	// document in creation order, reporting progress after each
	// document. Cancellation is cooperative and checked between
	// documents.
	VectorizeAll(ctx context.Context, onProgress domain.ProgressFunc) (*domain.VectorizationSummary, error)

	// Stats reports index coverage of the corpus.
	Stats(ctx context.Context) (*domain.VectorizationStats, error)
}

// Importing brings local files into the document store.
type Importing interface {
	// Import normalises a raw file to plain text, extracts entities,
	// stores the resulting document and indexes it. Returns the stored
	// document.
	Import(ctx context.Context, filename string, data []byte) (*domain.Document, error)
}

// Reprocessing runs batch entity re-extraction over the corpus.
type Reprocessing interface {
	// ReprocessAll re-extracts entities for documents. By default only
	// documents without an extraction timestamp are processed; with
	// forceAll every document is. Per-document failures are recorded
	// and the sweep continues.
	ReprocessAll(ctx context.Context, onProgress domain.ProgressFunc, forceAll bool) (*domain.ReprocessingSummary, error)

	// ReprocessOne re-extracts entities for a single document and
	// reports whether anything was extracted.
	ReprocessOne(ctx context.Context, documentID string) (bool, error)

	// Cancel requests cooperative cancellation of a running sweep.
	Cancel()
}
