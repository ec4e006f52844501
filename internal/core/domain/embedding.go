package domain

import "time"

// EmbeddingRecord is the stored vector representation of a document.
// At most one record exists per document; re-vectorization replaces
// the record in full.
type EmbeddingRecord struct {
	// DocumentID links to the owning document.
	DocumentID string

	// Vector is the fixed-length embedding.
	Vector []float32

	// TextHash is the SHA-256 hex digest of the source text at
	// vectorization time. A mismatch against the document's current
	// text marks the record stale.
	TextHash string

	// VectorizedAt is when the vector was computed.
	VectorizedAt time.Time
}

// VectorHit is a similarity search result.
type VectorHit struct {
	// DocumentID is the matched document.
	DocumentID string

	// Similarity is the cosine similarity score (-1 to 1).
	Similarity float64
}

// VectorizationStats summarises index coverage of the corpus.
type VectorizationStats struct {
	// Total is the number of documents in the corpus.
	Total int

	// Vectorized is the number of documents with a fresh embedding.
	Vectorized int

	// Pending is the number of documents with no embedding or a
	// stale one.
	Pending int
}

// VectorizationSummary reports the outcome of a vectorization sweep.
type VectorizationSummary struct {
	Total      int
	Vectorized int
	Skipped    int
	Errored    int
	Duration   time.Duration
}

// ProgressFunc reports sweep progress after each document as
// (current, total). It must be cheap; sweeps call it synchronously.
type ProgressFunc func(current, total int)
