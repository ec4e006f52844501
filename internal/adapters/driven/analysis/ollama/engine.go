// Package ollama provides a generative analysis engine backed by a
// local Ollama-compatible inference server. Inference stays on the
// device: the endpoint is loopback and the model weights come from the
// local model store.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
	"github.com/docvault-labs/docvault-core/internal/core/ports/driven"
	"github.com/docvault-labs/docvault-core/internal/logger"
)

// Ensure Engine implements the interface.
var _ driven.AnalysisEngine = (*Engine)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 30 * time.Second
)

// maxExcerpt bounds how much of each candidate document enters the
// prompt.
const maxExcerpt = 600

// Config holds configuration for the analysis engine.
type Config struct {
	// BaseURL is the local inference API base URL.
	BaseURL string

	// Model is the generative model to use.
	Model string

	// Timeout is the request timeout.
	Timeout time.Duration
}

// Engine answers complex queries over a bounded candidate set. It
// either synthesizes a structured filter the router can execute, or
// produces free-text analysis with a confidence score.
type Engine struct {
	client     *http.Client
	baseURL    string
	model      string
	modelStore driven.ModelStore
}

// generateRequest is the /api/generate request format.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

// generateResponse is the /api/generate response format.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// analysisPayload is the JSON shape the model is instructed to return.
type analysisPayload struct {
	Analysis   string         `json:"analysis"`
	Confidence float64        `json:"confidence"`
	Filter     *filterPayload `json:"filter"`
}

// filterPayload is the synthesized structured filter, with dates as
// "2006-01-02" strings.
type filterPayload struct {
	Vendor    string   `json:"vendor"`
	Category  string   `json:"category"`
	MinAmount *float64 `json:"min_amount"`
	MaxAmount *float64 `json:"max_amount"`
	DateFrom  string   `json:"date_from"`
	DateTo    string   `json:"date_to"`
}

// NewEngine creates an analysis engine. The model store gates
// readiness: without an installed artifact the engine reports not
// ready and Analyze fails fast.
func NewEngine(cfg Config, modelStore driven.ModelStore) *Engine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Engine{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		modelStore: modelStore,
	}
}

// Ready reports whether a model artifact is installed.
func (e *Engine) Ready(_ context.Context) bool {
	return e.modelStore != nil && e.modelStore.Ready()
}

// Analyze answers the query over the candidate documents.
func (e *Engine) Analyze(ctx context.Context, query string, candidates []domain.Document) (*domain.Analysis, error) {
	if !e.Ready(ctx) {
		return nil, domain.ErrAnalysisUnavailable
	}

	reqBody := generateRequest{
		Model:  e.model,
		Prompt: buildPrompt(query, candidates),
		Stream: false,
		Format: "json",
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		// Timeouts and an unreachable runtime both mean the router
		// should fall back to the semantic result.
		logger.Debug("Analysis request failed: %v", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrAnalysisUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: inference returned %d: %s",
			domain.ErrAnalysisUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrAnalysisUnavailable, err)
	}

	return parseAnalysis(genResp.Response)
}

// ModelName returns the name of the generative model being used.
func (e *Engine) ModelName() string {
	return e.model
}

// Close releases resources.
func (e *Engine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// buildPrompt frames the task for the model. Candidate text is
// excerpted so the prompt stays bounded regardless of corpus size.
func buildPrompt(query string, candidates []domain.Document) string {
	var b strings.Builder
	b.WriteString("You are a document analysis assistant for a personal document vault.\n")
	b.WriteString("Answer using ONLY the documents below. Respond with a single JSON object:\n")
	b.WriteString(`{"analysis": string, "confidence": number between 0 and 1, "filter": object or null}` + "\n")
	b.WriteString("Set \"filter\" (vendor, category, min_amount, max_amount, date_from, date_to as YYYY-MM-DD)\n")
	b.WriteString("only when the question is answerable by exact field filtering; otherwise set it to null\n")
	b.WriteString("and write the analysis yourself.\n\nDocuments:\n")

	for i, doc := range candidates {
		text := doc.Text
		if len(text) > maxExcerpt {
			text = text[:maxExcerpt] + "..."
		}
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, doc.Title, text)
	}

	fmt.Fprintf(&b, "Question: %s\n", query)
	return b.String()
}

// parseAnalysis decodes the model's JSON answer into the domain shape.
func parseAnalysis(raw string) (*domain.Analysis, error) {
	var payload analysisPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("%w: model returned malformed JSON: %v", domain.ErrAnalysisUnavailable, err)
	}

	analysis := &domain.Analysis{
		Text:       payload.Analysis,
		Confidence: clamp01(payload.Confidence),
	}

	if f := payload.Filter; f != nil {
		filter := &domain.DocumentFilter{
			Vendor:    f.Vendor,
			Category:  f.Category,
			MinAmount: f.MinAmount,
			MaxAmount: f.MaxAmount,
		}
		if t, err := time.Parse("2006-01-02", f.DateFrom); err == nil {
			filter.DateFrom = &t
		}
		if t, err := time.Parse("2006-01-02", f.DateTo); err == nil {
			filter.DateTo = &t
		}
		if !filter.Empty() {
			analysis.Filter = filter
		}
	}

	return analysis, nil
}

// clamp01 bounds a confidence score to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
