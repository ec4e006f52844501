package services

import (
	"context"
	"fmt"
	"time"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driven"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driving"
	"github.com/docvault-labs/docvault-core/internal/logger"
)

// Ensure Router implements the interface.
var _ driving.SearchService = (*Router)(nil)

// Router defaults.
const (
	DefaultTopK            = 10
	DefaultSimilarityFloor = 0.15
	DefaultAnalysisTimeout = 30 * time.Second
)

// RouterConfig tunes the execution paths.
type RouterConfig struct {
	// TopK is how many documents semantic search retrieves.
	TopK int

	// SimilarityFloor drops semantic results below this cosine
	// similarity.
	SimilarityFloor float64

	// AnalysisTimeout bounds a single generative analysis call.
	AnalysisTimeout time.Duration
}

// withDefaults fills unset fields.
func (c RouterConfig) withDefaults() RouterConfig {
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.SimilarityFloor <= 0 {
		c.SimilarityFloor = DefaultSimilarityFloor
	}
	if c.AnalysisTimeout <= 0 {
		c.AnalysisTimeout = DefaultAnalysisTimeout
	}
	return c
}

// Router classifies sanitised queries and dispatches them to the
// cheapest execution path that can answer them: structured field
// filters, semantic nearest-neighbour ranking, or generative analysis.
// Execution-path failures degrade to the next cheaper path; guard and
// quota rejections are terminal. Every invocation appends exactly one
// audit entry.
type Router struct {
	guard      *Guard
	limiter    *RateLimiter
	extractor  *Extractor
	docStore   driven.DocumentStore
	vectorizer *Vectorizer
	embedder   driven.Embedder
	engine     driven.AnalysisEngine
	audit      *AuditTrail
	cfg        RouterConfig
}

// NewRouter creates a query router. The embedder and engine are
// optional; the corresponding paths degrade when they are nil.
func NewRouter(
	guard *Guard,
	limiter *RateLimiter,
	extractor *Extractor,
	docStore driven.DocumentStore,
	vectorizer *Vectorizer,
	embedder driven.Embedder,
	engine driven.AnalysisEngine,
	audit *AuditTrail,
	cfg RouterConfig,
) *Router {
	return &Router{
		guard:      guard,
		limiter:    limiter,
		extractor:  extractor,
		docStore:   docStore,
		vectorizer: vectorizer,
		embedder:   embedder,
		engine:     engine,
		audit:      audit,
		cfg:        cfg.withDefaults(),
	}
}

// Search validates, admits, classifies and executes a raw query.
func (r *Router) Search(ctx context.Context, actorID, rawQuery string) (*domain.RouterResult, error) {
	start := time.Now()
	logger.Section("Query Routing")

	safe, err := r.guard.Sanitize(rawQuery)
	if err != nil {
		// The rejection itself is the caller's error; a failed append
		// here is logged, not substituted for it.
		if logErr := r.logQuery(ctx, actorID, "", nil, err); logErr != nil {
			logger.Warn("Audit append for rejected query failed: %v", logErr)
		}
		return nil, err
	}
	logger.Debug("Sanitised query: %q (generative=%t)", safe.Query, safe.AllowGenerative)

	if err := r.limiter.Admit(actorID); err != nil {
		if logErr := r.logQuery(ctx, actorID, safe.Query, nil, err); logErr != nil {
			logger.Warn("Audit append for rejected query failed: %v", logErr)
		}
		return nil, err
	}

	cues := r.extractor.ExtractCues(safe.Query)
	classification := classify(cues)
	logger.Info("Classification: %s", classification)

	var result *domain.RouterResult
	switch classification {
	case domain.QueryStructured:
		result = r.executeStructured(ctx, safe, cues)
	case domain.QuerySemantic:
		result = r.executeSemantic(ctx, safe, cues)
	case domain.QueryComplex:
		result = r.executeComplex(ctx, safe, cues)
	}

	result.ExecutionTime = time.Since(start)

	// A query must not complete without its audit entry.
	if err := r.logQuery(ctx, actorID, safe.Query, result, nil); err != nil {
		return nil, err
	}

	logger.Info("Result: type=%s docs=%d in %s",
		result.QueryType, len(result.Documents), result.ExecutionTime)
	return result, nil
}

// RateLimitStats reports remaining quota without consuming any.
func (r *Router) RateLimitStats(actorID string) domain.RateLimitStats {
	return r.limiter.Stats(actorID)
}

// classify assigns the execution path for a cue set. Open-ended
// analytical language wins over structured cues; strong structured
// cues win over semantic ranking; everything else is a descriptive
// phrase answered semantically.
func classify(cues QueryCues) domain.QueryClassification {
	if cues.Analytical {
		return domain.QueryComplex
	}
	if cues.Strong() {
		return domain.QueryStructured
	}
	return domain.QuerySemantic
}

// executeStructured answers a query with a parameterized filter built
// from the recognised cues. Zero results escalate to the complex path
// when the engine can take the query.
func (r *Router) executeStructured(ctx context.Context, safe domain.SafeQuery, cues QueryCues) *domain.RouterResult {
	result := r.runFilter(ctx, filterFromCues(cues), cues)
	result.QueryType = domain.QueryStructured

	if len(result.Documents) == 0 && r.engineReady(ctx) && safe.AllowGenerative {
		logger.Debug("Structured path found nothing, escalating to complex")
		escalated := r.executeComplex(ctx, safe, cues)
		escalated.QueryType = domain.QueryComplex
		return escalated
	}
	return result
}

// runFilter executes a filter against the document store and computes
// the aggregation when the cues imply one. It never escalates.
func (r *Router) runFilter(ctx context.Context, filter domain.DocumentFilter, cues QueryCues) *domain.RouterResult {
	result := &domain.RouterResult{}

	docs, err := r.docStore.QueryDocuments(ctx, filter)
	if err != nil {
		logger.Warn("Structured query failed: %v", err)
		result.Degraded = fmt.Sprintf("structured execution failed: %v", err)
		return result
	}
	result.Documents = docs

	if cues.WantsAggregation && len(docs) > 0 {
		result.Aggregation = aggregate(docs)
	}
	return result
}

// runCueFilter executes the structured-cue filter, or returns an empty
// result when the cues constrain nothing. An unconstrained filter
// would return the entire corpus, and a corpus dump must not pass for
// a match list on a degraded path.
func (r *Router) runCueFilter(ctx context.Context, cues QueryCues) *domain.RouterResult {
	filter := filterFromCues(cues)
	if filter.Empty() {
		return &domain.RouterResult{}
	}
	return r.runFilter(ctx, filter, cues)
}

// executeSemantic ranks documents by cosine similarity to the query
// embedding, dropping results below the similarity floor. Index or
// embedder failures degrade to structured-only execution; zero results
// escalate to the complex path when possible.
func (r *Router) executeSemantic(ctx context.Context, safe domain.SafeQuery, cues QueryCues) *domain.RouterResult {
	result := &domain.RouterResult{QueryType: domain.QuerySemantic}

	docs, note := r.semanticDocuments(ctx, safe.Query)
	if note != "" {
		// Semantic ranking is unavailable; fall back to whatever the
		// structured cues can filter.
		fallback := r.runCueFilter(ctx, cues)
		fallback.QueryType = domain.QuerySemantic
		fallback.Degraded = note
		return fallback
	}
	result.Documents = docs

	if len(docs) == 0 && r.engineReady(ctx) && safe.AllowGenerative {
		logger.Debug("Semantic path found nothing, escalating to complex")
		escalated := r.executeComplex(ctx, safe, cues)
		escalated.QueryType = domain.QueryComplex
		return escalated
	}
	return result
}

// semanticDocuments embeds the query and retrieves documents above the
// similarity floor. A non-empty note means the path was unavailable.
func (r *Router) semanticDocuments(ctx context.Context, query string) ([]domain.Document, string) {
	if r.embedder == nil || r.vectorizer == nil {
		return nil, "semantic search unavailable: no embedding service"
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warn("Query embedding failed: %v", err)
		return nil, fmt.Sprintf("semantic search degraded: %v", err)
	}

	hits, err := r.vectorizer.Search(ctx, vec, r.cfg.TopK)
	if err != nil {
		logger.Warn("Vector search failed: %v", err)
		return nil, fmt.Sprintf("semantic search degraded: %v", err)
	}

	docs := make([]domain.Document, 0, len(hits))
	for _, hit := range hits {
		if hit.Similarity < r.cfg.SimilarityFloor {
			continue
		}
		doc, err := r.docStore.GetDocument(ctx, hit.DocumentID)
		if err != nil {
			logger.Warn("Hydrating %s failed: %v", hit.DocumentID, err)
			continue
		}
		docs = append(docs, *doc)
	}
	return docs, ""
}

// executeComplex hands the query and a bounded semantic pre-filter to
// the generative engine. A synthesized filter loops back into
// structured execution; otherwise the free-text analysis is returned.
// Engine failures degrade to the semantic result, then to structured.
func (r *Router) executeComplex(ctx context.Context, safe domain.SafeQuery, cues QueryCues) *domain.RouterResult {
	result := &domain.RouterResult{QueryType: domain.QueryComplex}

	if !safe.AllowGenerative {
		return r.degradeFromComplex(ctx, safe, cues, "generative analysis not permitted for this input")
	}
	if !r.engineReady(ctx) {
		return r.degradeFromComplex(ctx, safe, cues, "analysis engine unavailable")
	}

	candidates, _ := r.semanticDocuments(ctx, safe.Query)
	if len(candidates) == 0 {
		// Bound the candidate set from the structured cues instead.
		fallback := r.runFilter(ctx, filterFromCues(cues), cues)
		candidates = fallback.Documents
	}
	if len(candidates) > r.cfg.TopK {
		candidates = candidates[:r.cfg.TopK]
	}

	analysisCtx, cancel := context.WithTimeout(ctx, r.cfg.AnalysisTimeout)
	defer cancel()

	analysis, err := r.engine.Analyze(analysisCtx, safe.Query, candidates)
	if err != nil {
		logger.Warn("Generative analysis failed: %v", err)
		return r.degradeFromComplex(ctx, safe, cues, fmt.Sprintf("analysis failed: %v", err))
	}

	if analysis.Filter != nil {
		logger.Debug("Engine synthesized a structured filter")
		synth := r.runFilter(ctx, *analysis.Filter, cues)
		synth.QueryType = domain.QueryComplex
		synth.Confidence = analysis.Confidence
		return synth
	}

	result.Documents = candidates
	result.Analysis = analysis.Text
	result.Confidence = analysis.Confidence
	return result
}

// degradeFromComplex falls back to the semantic result, or to
// structured-only execution when semantic search is unavailable too.
// The degradation is recorded on the result and ends up in the audit
// entry's details.
func (r *Router) degradeFromComplex(ctx context.Context, safe domain.SafeQuery, cues QueryCues, note string) *domain.RouterResult {
	docs, semNote := r.semanticDocuments(ctx, safe.Query)
	if semNote != "" {
		fallback := r.runCueFilter(ctx, cues)
		fallback.QueryType = domain.QueryComplex
		fallback.Degraded = note + "; " + semNote
		return fallback
	}

	return &domain.RouterResult{
		QueryType: domain.QueryComplex,
		Documents: docs,
		Degraded:  note,
	}
}

// engineReady reports whether the generative engine can be used.
func (r *Router) engineReady(ctx context.Context) bool {
	return r.engine != nil && r.engine.Ready(ctx)
}

// filterFromCues builds a parameterized document filter from the
// recognised structured cues. User text never enters a query template;
// only typed values do.
func filterFromCues(cues QueryCues) domain.DocumentFilter {
	filter := domain.DocumentFilter{
		Vendor:   cues.Vendor,
		Category: cues.Category,
		DateFrom: cues.DateFrom,
		DateTo:   cues.DateTo,
	}
	if len(cues.Amounts) == 1 {
		// A single amount is a point query with a small tolerance.
		lo := cues.Amounts[0] - 0.005
		hi := cues.Amounts[0] + 0.005
		filter.MinAmount = &lo
		filter.MaxAmount = &hi
	} else if len(cues.Amounts) >= 2 {
		lo, hi := cues.Amounts[0], cues.Amounts[1]
		if lo > hi {
			lo, hi = hi, lo
		}
		filter.MinAmount = &lo
		filter.MaxAmount = &hi
	}
	return filter
}

// aggregate computes the numeric summary over a result set.
func aggregate(docs []domain.Document) *domain.AggregationResult {
	agg := &domain.AggregationResult{DocumentCount: len(docs)}

	vendorCounts := make(map[string]int)
	amounts := 0
	for i := range docs {
		doc := &docs[i]
		if doc.Amount != nil {
			agg.TotalAmount += *doc.Amount
			amounts++
		}
		if doc.TxnDate != nil {
			if agg.EarliestDate == nil || doc.TxnDate.Before(*agg.EarliestDate) {
				agg.EarliestDate = doc.TxnDate
			}
			if agg.LatestDate == nil || doc.TxnDate.After(*agg.LatestDate) {
				agg.LatestDate = doc.TxnDate
			}
		}
		if doc.Vendor != "" {
			vendorCounts[doc.Vendor]++
		}
	}

	if amounts > 0 {
		agg.AverageAmount = agg.TotalAmount / float64(amounts)
	}

	best := 0
	for vendor, count := range vendorCounts {
		if count > best || (count == best && vendor < agg.Vendor) {
			best = count
			agg.Vendor = vendor
		}
	}
	return agg
}

// logQuery appends the single audit entry for a query invocation:
// success, degraded success, or rejection. The append error is
// returned so the search path can refuse to complete a query that
// left no record.
func (r *Router) logQuery(ctx context.Context, actorID, query string, result *domain.RouterResult, failure error) error {
	if r.audit == nil {
		return nil
	}

	opts := AppendOptions{}
	success := failure == nil

	if result != nil {
		opts.Details = fmt.Sprintf("queryType=%s docs=%d", result.QueryType, len(result.Documents))
		if result.Degraded != "" {
			// Partial success: the result came from a cheaper path.
			opts.Details += " degraded=" + result.Degraded
			opts.Level = domain.AuditLevelWarning
		}
	}
	if failure != nil {
		opts.ErrorMessage = failure.Error()
		opts.Level = domain.AuditLevelWarning
	}

	if _, err := r.audit.Append(ctx, "document.search", "query", "", actorID, success, opts); err != nil {
		return fmt.Errorf("recording audit entry: %w", err)
	}
	return nil
}
