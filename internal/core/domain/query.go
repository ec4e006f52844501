package domain

import "time"

// QueryClassification identifies which execution path answers a query.
type QueryClassification string

const (
	// QueryStructured is answerable by exact field filters.
	QueryStructured QueryClassification = "structured"

	// QuerySemantic is answerable by nearest-neighbour ranking over
	// the embedding index.
	QuerySemantic QueryClassification = "semantic"

	// QueryComplex requires generative reasoning beyond filters and
	// ranking.
	QueryComplex QueryClassification = "complex"
)

// SafeQuery is a query string that passed input sanitisation.
type SafeQuery struct {
	// Query is the normalised text: trimmed, whitespace collapsed,
	// length bounded.
	Query string

	// AllowGenerative reports whether free-text generative analysis
	// is permitted for this input.
	AllowGenerative bool
}

// AggregationResult is a numeric summary computed over the documents
// a structured or complex query returned. It is derived, never stored.
type AggregationResult struct {
	DocumentCount int
	TotalAmount   float64
	AverageAmount float64
	EarliestDate  *time.Time
	LatestDate    *time.Time

	// Vendor is the dominant vendor across the document set.
	Vendor string
}

// Analysis is the generative engine's answer for a complex query.
type Analysis struct {
	// Text is the free-text analysis.
	Text string

	// Confidence is the engine's self-reported confidence (0-1).
	Confidence float64

	// Filter, when non-nil, is a synthesized structured filter that
	// the router loops back into structured execution.
	Filter *DocumentFilter
}

// RouterResult is the normalised result shape for every routed query.
type RouterResult struct {
	// Documents are the matched documents, ranked by the execution
	// path that produced them.
	Documents []Document

	// QueryType is the classification the router chose.
	QueryType QueryClassification

	// Aggregation is set when the query implied a numeric summary.
	Aggregation *AggregationResult

	// Analysis and Confidence are set when the generative engine
	// produced a free-text answer.
	Analysis   string
	Confidence float64

	// Degraded notes any fallback the router took, e.g. the
	// generative engine being unavailable. Empty on a clean run.
	Degraded string

	// ExecutionTime is how long routing and execution took.
	ExecutionTime time.Duration
}
