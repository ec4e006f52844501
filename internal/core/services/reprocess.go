package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driven"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driving"
	"github.com/docvault-labs/docvault-core/internal/logger"
)

// Ensure Reprocessor implements the interface.
var _ driving.Reprocessing = (*Reprocessor)(nil)

// Reprocessor recomputes derived per-document entities in batch using
// the same extraction heuristics the router uses for structured
// queries, with the generative analysis engine as a fallback.
type Reprocessor struct {
	docStore  driven.DocumentStore
	extractor *Extractor
	engine    driven.AnalysisEngine
	audit     *AuditTrail
	throttle  *rate.Limiter

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewReprocessor creates a reprocessing pipeline. The analysis engine
// may be nil; extraction then relies on heuristics alone.
func NewReprocessor(
	docStore driven.DocumentStore,
	extractor *Extractor,
	engine driven.AnalysisEngine,
	audit *AuditTrail,
) *Reprocessor {
	return &Reprocessor{
		docStore:  docStore,
		extractor: extractor,
		engine:    engine,
		audit:     audit,
		// Burst lets a handful of documents run back to back, then the
		// sweep pauses so foreground queries are not starved.
		throttle: rate.NewLimiter(rate.Every(50*time.Millisecond), 5),
	}
}

// ReprocessAll re-extracts entities across the corpus. The default
// mode processes only documents whose extraction timestamp is unset;
// forceAll reprocesses everything. Per-document failures are recorded
// and the loop continues; cancellation is checked between documents.
func (r *Reprocessor) ReprocessAll(
	ctx context.Context, onProgress domain.ProgressFunc, forceAll bool,
) (*domain.ReprocessingSummary, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, domain.ErrReprocessingInProgress
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.cancel = nil
		r.mu.Unlock()
	}()

	start := time.Now()
	logger.Section("Entity Reprocessing")

	docs, err := r.docStore.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	summary := &domain.ReprocessingSummary{Total: len(docs)}

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			logger.Info("Reprocessing cancelled after %d/%d documents", i, len(docs))
			r.logSweep(summary, false, "cancelled")
			return summary, err
		}

		switch {
		case !forceAll && doc.EntitiesExtractedAt != nil:
			summary.Skipped++
		case doc.Text == "":
			summary.Skipped++
		default:
			if err := r.reprocess(ctx, &doc); err != nil {
				// Degrade and continue: one bad document must not
				// abort the sweep.
				logger.Warn("Reprocess %s failed: %v", doc.ID, err)
				summary.Errored++
			} else {
				summary.Processed++
			}
		}

		if onProgress != nil {
			onProgress(i+1, len(docs))
		}

		// Yield between documents so foreground work keeps running.
		if err := r.throttle.Wait(ctx); err != nil {
			summary.Duration = time.Since(start)
			r.logSweep(summary, false, "cancelled")
			return summary, err
		}
	}

	summary.Duration = time.Since(start)
	logger.Info("Reprocessing complete: %d processed, %d skipped, %d errors",
		summary.Processed, summary.Skipped, summary.Errored)
	r.logSweep(summary, true, "")
	return summary, nil
}

// ReprocessOne re-extracts entities for a single document. It reports
// whether anything was extracted and persisted.
func (r *Reprocessor) ReprocessOne(ctx context.Context, documentID string) (bool, error) {
	doc, err := r.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return false, fmt.Errorf("loading document: %w", err)
	}
	if doc.Text == "" {
		return false, nil
	}
	if err := r.reprocess(ctx, doc); err != nil {
		return false, err
	}
	return true, nil
}

// Cancel requests cooperative cancellation of a running sweep. The
// current document always finishes; the loop stops at the next
// document boundary.
func (r *Reprocessor) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// reprocess extracts and persists entities for one document.
// Heuristics run first; when they find nothing and the analysis engine
// is ready, the engine takes a pass.
func (r *Reprocessor) reprocess(ctx context.Context, doc *domain.Document) error {
	update, confidence := r.extractor.ExtractEntities(doc.Text)

	if confidence == 0 && r.engine != nil && r.engine.Ready(ctx) {
		if engineUpdate, ok := r.analyzeEntities(ctx, doc); ok {
			update = engineUpdate
		}
	}

	if err := r.docStore.UpdateDocumentEntities(ctx, doc.ID, update); err != nil {
		return fmt.Errorf("persisting entities: %w", err)
	}
	return nil
}

// analyzeEntities asks the generative engine to derive entities when
// the heuristics came up empty. Failures are non-fatal.
func (r *Reprocessor) analyzeEntities(ctx context.Context, doc *domain.Document) (domain.EntityUpdate, bool) {
	analysis, err := r.engine.Analyze(ctx,
		"Extract the vendor, total amount, transaction date and spending category from this document.",
		[]domain.Document{*doc})
	if err != nil {
		logger.Debug("Engine entity extraction for %s failed: %v", doc.ID, err)
		return domain.EntityUpdate{}, false
	}
	if analysis.Filter == nil {
		return domain.EntityUpdate{}, false
	}

	update := domain.EntityUpdate{
		Vendor:     analysis.Filter.Vendor,
		Category:   analysis.Filter.Category,
		Confidence: analysis.Confidence,
	}
	if analysis.Filter.MinAmount != nil {
		update.Amount = analysis.Filter.MinAmount
	}
	if analysis.Filter.DateFrom != nil {
		update.TxnDate = analysis.Filter.DateFrom
	}
	return update, true
}

// logSweep records the sweep outcome in the audit trail.
func (r *Reprocessor) logSweep(summary *domain.ReprocessingSummary, success bool, errMsg string) {
	if r.audit == nil {
		return
	}
	details := fmt.Sprintf("total=%d processed=%d skipped=%d errored=%d",
		summary.Total, summary.Processed, summary.Skipped, summary.Errored)
	_, err := r.audit.Append(context.Background(),
		"document.reprocess", "corpus", "", "system", success,
		AppendOptions{Details: details, ErrorMessage: errMsg})
	if err != nil {
		logger.Warn("Audit append for reprocessing sweep failed: %v", err)
	}
}
