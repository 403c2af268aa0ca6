package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"read-check/internal/metrics"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	defaultModel            = "claude-3-haiku-20240307"
)

// ErrAPIKeyMissing is returned when the analyzer is used without a key.
var ErrAPIKeyMissing = errors.New("anthropic api key is not configured")

// Analysis is the question/answer pair generated for an article.
type Analysis struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Analyzer generates a comprehension question for article content via the
// Anthropic messages API.
type Analyzer struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// AnalyzerOption customizes an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(baseURL string) AnalyzerOption {
	return func(a *Analyzer) {
		if baseURL != "" {
			a.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithModel overrides the default model.
func WithModel(model string) AnalyzerOption {
	return func(a *Analyzer) {
		if model != "" {
			a.model = model
		}
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) AnalyzerOption {
	return func(a *Analyzer) {
		if client != nil {
			a.client = client
		}
	}
}

func NewAnalyzer(apiKey string, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		apiKey:  apiKey,
		baseURL: defaultAnthropicBaseURL,
		model:   defaultModel,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

const systemPrompt = "You are an assistant that helps users understand articles they want to read. " +
	"Your task is to analyze the content and generate one insightful question that would verify " +
	"if someone has read and understood the core message of the article. " +
	"Also provide the correct answer to that question. " +
	"Format your response as JSON with 'question' and 'answer' fields."

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Analyze asks the model for one comprehension question and its answer.
func (a *Analyzer) Analyze(ctx context.Context, url, title, content string) (*Analysis, error) {
	if a.apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	userPrompt := fmt.Sprintf("Please analyze this article: %q from %s\n\n", title, url) +
		fmt.Sprintf("Here's the content:\n%s\n\n", content) +
		"Generate one insightful question that would verify if someone has read and understood " +
		"the core message of the article. Also provide the correct answer to that question. " +
		"Format your response as JSON with 'question' and 'answer' fields."

	reqBody, err := json.Marshal(anthropicRequest{
		Model:  a.model,
		System: systemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   1024,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	start := time.Now()
	resp, err := a.client.Do(req)
	metrics.ObserveSummarizeDuration(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("call anthropic: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read anthropic response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anthropic api error: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var decoded anthropicResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode anthropic response: %w", err)
	}
	if len(decoded.Content) == 0 {
		return nil, errors.New("anthropic response has no content")
	}

	return parseAnalysis(decoded.Content[0].Text)
}

var (
	questionRe = regexp.MustCompile(`["']?question["']?\s*:\s*["'](.+?)["']`)
	answerRe   = regexp.MustCompile(`["']?answer["']?\s*:\s*["'](.+?)["']`)
)

// parseAnalysis expects JSON but tolerates models that wrap the JSON in
// prose, falling back to a regex scan for the two fields.
func parseAnalysis(text string) (*Analysis, error) {
	var analysis Analysis
	if err := json.Unmarshal([]byte(text), &analysis); err == nil &&
		analysis.Question != "" && analysis.Answer != "" {
		return &analysis, nil
	}

	questionMatch := questionRe.FindStringSubmatch(text)
	answerMatch := answerRe.FindStringSubmatch(text)
	if questionMatch != nil && answerMatch != nil {
		return &Analysis{
			Question: questionMatch[1],
			Answer:   answerMatch[1],
		}, nil
	}

	return nil, errors.New("failed to parse anthropic response")
}
