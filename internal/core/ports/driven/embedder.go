package driven

import "context"

// Embedder generates vector embeddings from text. The same embedder is
// shared by document vectorization and query-time embedding so that
// query and document vectors live in the same space.
//
// This is an optional service - when nil, semantic search is disabled.
type Embedder interface {
	// Embed generates a vector embedding for the given text. The
	// result is deterministic: the same text always yields the same
	// vector, bit for bit.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}
