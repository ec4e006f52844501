package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvault-labs/docvault-core/internal/core/domain"
)

// mockModelStore gates engine readiness in tests.
type mockModelStore struct {
	ready bool
}

func (m *mockModelStore) Ready() bool { return m.ready }

func (m *mockModelStore) Path() (string, error) {
	if !m.ready {
		return "", domain.ErrNotFound
	}
	return "/models/test.gguf", nil
}

func (m *mockModelStore) Install(_ context.Context, _ string, _ func(done, total int64)) error {
	return nil
}

func (m *mockModelStore) Close() error { return nil }

func testCandidates() []domain.Document {
	return []domain.Document{
		{ID: "doc-1", Title: "Kroger receipt", Text: "Kroger receipt total $15.00"},
		{ID: "doc-2", Title: "Hardware invoice", Text: "Home Depot invoice for lumber"},
	}
}

// newTestEngine serves canned inference responses from an httptest
// server and points the engine at it.
func newTestEngine(t *testing.T, handler http.HandlerFunc) *Engine {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	engine := NewEngine(Config{
		BaseURL: server.URL,
		Model:   "test-model",
		Timeout: 2 * time.Second,
	}, &mockModelStore{ready: true})
	t.Cleanup(func() { engine.Close() })
	return engine
}

func respondWith(t *testing.T, w http.ResponseWriter, payload analysisPayload) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, json.NewEncoder(w).Encode(generateResponse{
		Response: string(raw),
		Done:     true,
	}))
}

func TestNewEngine_Defaults(t *testing.T) {
	engine := NewEngine(Config{}, &mockModelStore{ready: true})
	defer engine.Close()

	assert.Equal(t, DefaultBaseURL, engine.baseURL)
	assert.Equal(t, DefaultModel, engine.ModelName())
	assert.Equal(t, DefaultTimeout, engine.client.Timeout)
}

func TestEngine_Ready(t *testing.T) {
	ctx := context.Background()

	assert.True(t, NewEngine(Config{}, &mockModelStore{ready: true}).Ready(ctx))
	assert.False(t, NewEngine(Config{}, &mockModelStore{ready: false}).Ready(ctx))
	assert.False(t, NewEngine(Config{}, nil).Ready(ctx))
}

func TestEngine_Analyze_FreeTextAnswer(t *testing.T) {
	var gotReq generateRequest
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		respondWith(t, w, analysisPayload{
			Analysis:   "You spent the most on groceries.",
			Confidence: 0.85,
		})
	})

	analysis, err := engine.Analyze(context.Background(), "where do I spend the most?", testCandidates())
	require.NoError(t, err)

	assert.Equal(t, "You spent the most on groceries.", analysis.Text)
	assert.InDelta(t, 0.85, analysis.Confidence, 0.001)
	assert.Nil(t, analysis.Filter)

	assert.Equal(t, "test-model", gotReq.Model)
	assert.False(t, gotReq.Stream)
	assert.Equal(t, "json", gotReq.Format)
	assert.Contains(t, gotReq.Prompt, "where do I spend the most?")
	assert.Contains(t, gotReq.Prompt, "Kroger receipt")
	assert.Contains(t, gotReq.Prompt, "Hardware invoice")
}

func TestEngine_Analyze_SynthesizedFilter(t *testing.T) {
	minAmount := 10.0
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		respondWith(t, w, analysisPayload{
			Analysis:   "Filtering Kroger purchases over $10 since March.",
			Confidence: 0.9,
			Filter: &filterPayload{
				Vendor:    "Kroger",
				MinAmount: &minAmount,
				DateFrom:  "2024-03-01",
			},
		})
	})

	analysis, err := engine.Analyze(context.Background(), "Kroger purchases over $10 since March", testCandidates())
	require.NoError(t, err)

	require.NotNil(t, analysis.Filter)
	assert.Equal(t, "Kroger", analysis.Filter.Vendor)
	require.NotNil(t, analysis.Filter.MinAmount)
	assert.Equal(t, 10.0, *analysis.Filter.MinAmount)
	require.NotNil(t, analysis.Filter.DateFrom)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *analysis.Filter.DateFrom)
	assert.Nil(t, analysis.Filter.DateTo)
}

func TestEngine_Analyze_EmptyFilterDropped(t *testing.T) {
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		respondWith(t, w, analysisPayload{
			Analysis:   "Nothing to filter on.",
			Confidence: 0.4,
			Filter:     &filterPayload{},
		})
	})

	analysis, err := engine.Analyze(context.Background(), "anything interesting?", testCandidates())
	require.NoError(t, err)
	assert.Nil(t, analysis.Filter)
}

func TestEngine_Analyze_NotReady(t *testing.T) {
	engine := NewEngine(Config{}, &mockModelStore{ready: false})
	defer engine.Close()

	_, err := engine.Analyze(context.Background(), "query", testCandidates())
	assert.ErrorIs(t, err, domain.ErrAnalysisUnavailable)
}

func TestEngine_Analyze_ServerError(t *testing.T) {
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	})

	_, err := engine.Analyze(context.Background(), "query", testCandidates())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAnalysisUnavailable)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestEngine_Analyze_UnreachableServer(t *testing.T) {
	engine := NewEngine(Config{
		BaseURL: "http://127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
	}, &mockModelStore{ready: true})
	defer engine.Close()

	_, err := engine.Analyze(context.Background(), "query", testCandidates())
	assert.ErrorIs(t, err, domain.ErrAnalysisUnavailable)
}

func TestEngine_Analyze_MalformedModelOutput(t *testing.T) {
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(generateResponse{
			Response: "sure, here is your answer:",
			Done:     true,
		}))
	})

	_, err := engine.Analyze(context.Background(), "query", testCandidates())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAnalysisUnavailable)
	assert.Contains(t, err.Error(), "malformed JSON")
}

func TestEngine_Analyze_ConfidenceClamped(t *testing.T) {
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		respondWith(t, w, analysisPayload{Analysis: "overconfident", Confidence: 3.5})
	})

	analysis, err := engine.Analyze(context.Background(), "query", testCandidates())
	require.NoError(t, err)
	assert.Equal(t, 1.0, analysis.Confidence)
}

func TestEngine_Analyze_CancelledContext(t *testing.T) {
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		respondWith(t, w, analysisPayload{Analysis: "late", Confidence: 0.5})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Analyze(ctx, "query", testCandidates())
	assert.ErrorIs(t, err, domain.ErrAnalysisUnavailable)
}

func TestBuildPrompt_ExcerptsLongDocuments(t *testing.T) {
	long := make([]byte, maxExcerpt+200)
	for i := range long {
		long[i] = 'x'
	}

	prompt := buildPrompt("query", []domain.Document{
		{ID: "doc-1", Title: "Long document", Text: string(long)},
	})

	assert.Contains(t, prompt, "...")
	assert.Less(t, len(prompt), maxExcerpt+600)
}

func TestParseAnalysis_IgnoresUnparseableDates(t *testing.T) {
	raw, err := json.Marshal(analysisPayload{
		Analysis:   "bad dates",
		Confidence: 0.7,
		Filter: &filterPayload{
			Vendor:   "Kroger",
			DateFrom: "March 1st",
			DateTo:   "someday",
		},
	})
	require.NoError(t, err)

	analysis, err := parseAnalysis(string(raw))
	require.NoError(t, err)
	require.NotNil(t, analysis.Filter)
	assert.Equal(t, "Kroger", analysis.Filter.Vendor)
	assert.Nil(t, analysis.Filter.DateFrom)
	assert.Nil(t, analysis.Filter.DateTo)
}
