package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnalyzerServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "claude-3-haiku-20240307", req.Model)
		require.Equal(t, 1024, req.MaxTokens)
		require.Len(t, req.Messages, 1)

		_ = json.NewEncoder(w).Encode(anthropicResponse{
			ID: "msg_1",
			Content: []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			}{{Type: "text", Text: reply}},
		})
	}))
}

func TestAnalyzeParsesJSONReply(t *testing.T) {
	srv := newAnalyzerServer(t, `{"question":"What does the scheduler steal?","answer":"work from peer run queues"}`)
	defer srv.Close()

	analyzer := NewAnalyzer("test-key", WithBaseURL(srv.URL))
	analysis, err := analyzer.Analyze(context.Background(), "https://example.com", "Schedulers", "content")
	require.NoError(t, err)

	assert.Equal(t, "What does the scheduler steal?", analysis.Question)
	assert.Equal(t, "work from peer run queues", analysis.Answer)
}

func TestAnalyzeRegexFallback(t *testing.T) {
	srv := newAnalyzerServer(t, `Here is my analysis: "question": "What is preemption?", "answer": "interrupting a goroutine" as requested.`)
	defer srv.Close()

	analyzer := NewAnalyzer("test-key", WithBaseURL(srv.URL))
	analysis, err := analyzer.Analyze(context.Background(), "https://example.com", "Schedulers", "content")
	require.NoError(t, err)

	assert.Equal(t, "What is preemption?", analysis.Question)
	assert.Equal(t, "interrupting a goroutine", analysis.Answer)
}

func TestAnalyzeUnparseableReply(t *testing.T) {
	srv := newAnalyzerServer(t, "I cannot help with that.")
	defer srv.Close()

	analyzer := NewAnalyzer("test-key", WithBaseURL(srv.URL))
	_, err := analyzer.Analyze(context.Background(), "https://example.com", "Schedulers", "content")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestAnalyzeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error"}}`))
	}))
	defer srv.Close()

	analyzer := NewAnalyzer("test-key", WithBaseURL(srv.URL))
	_, err := analyzer.Analyze(context.Background(), "https://example.com", "Schedulers", "content")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic api error")
}

func TestAnalyzeMissingAPIKey(t *testing.T) {
	analyzer := NewAnalyzer("")
	_, err := analyzer.Analyze(context.Background(), "https://example.com", "T", "c")
	assert.ErrorIs(t, err, ErrAPIKeyMissing)
}
