/*
Package genai talks to the Gemini generative backend and builds the prompts
the planning engine sends to it. The model is treated as an unreliable
collaborator: every call carries a hard timeout, transport failures are
retried with exponential backoff, and truncated output is surfaced as a flag
rather than an error so the caller can decide what to do with it.
*/
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL         = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultModel           = "gemini-2.5-flash"
	defaultTimeout         = 30 * time.Second
	defaultMaxOutputTokens = 2048
	maxAttempts            = 3
	initialBackoff         = 1 * time.Second
)

// ErrTimeout means no attempt completed within the configured deadline.
var ErrTimeout = errors.New("generation timed out")

// ErrUnavailable means the backend could not be reached after all retries.
var ErrUnavailable = errors.New("generation backend unavailable")

// Request is one generation invocation. PlanType is carried through so errors
// and logs can name what was being generated.
type Request struct {
	PlanType        string
	System          string
	Prompt          string
	Temperature     float64
	MaxOutputTokens int
}

// Result is the raw model output. Truncated is set when the model hit the
// output length cap; the caller decides whether that invalidates the text.
type Result struct {
	Text      string
	Truncated bool
	Latency   time.Duration
}

// Generator is the seam the planning engine depends on. Tests substitute a
// scripted fake.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// Client calls the Gemini generateContent REST endpoint.
type Client struct {
	apiKey    string
	model     string
	baseURL   string
	timeout   time.Duration
	maxTokens int
	http      *http.Client
}

// NewClientFromEnv builds a Client from GEMINI_* environment variables.
// GEMINI_API_KEY is required.
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultModel
	}

	baseURL := os.Getenv("GEMINI_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := defaultTimeout
	if s := os.Getenv("GEMINI_TIMEOUT_SECONDS"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}

	maxTokens := defaultMaxOutputTokens
	if s := os.Getenv("GEMINI_MAX_OUTPUT_TOKENS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			maxTokens = n
		}
	}

	return &Client{
		apiKey:    apiKey,
		model:     model,
		baseURL:   baseURL,
		timeout:   timeout,
		maxTokens: maxTokens,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

// NewClient builds a Client against an explicit endpoint. Used by tests to
// point at an httptest server.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:    apiKey,
		model:     model,
		baseURL:   baseURL,
		timeout:   timeout,
		maxTokens: defaultMaxOutputTokens,
		http:      &http.Client{Timeout: timeout},
	}
}

// --- Gemini wire types ---

type geminiPayload struct {
	Contents          []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// Generate sends the prompt and returns the raw text. Attempts are bounded
// and backed off; the parent context cancels everything promptly.
func (c *Client) Generate(ctx context.Context, req Request) (Result, error) {
	maxTokens := req.MaxOutputTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}
	if maxTokens == 0 {
		maxTokens = defaultMaxOutputTokens
	}

	payload := geminiPayload{
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: req.System}},
		},
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: req.Prompt}}},
		},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			Temperature:      req.Temperature,
			MaxOutputTokens:  maxTokens,
		},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := initialBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		res, err := c.attempt(ctx, url, payloadBytes, req.PlanType, attempt)
		if err == nil {
			res.Latency = time.Since(start)
			return res, nil
		}
		if ctx.Err() != nil {
			// The caller gave up; don't keep burning backend compute.
			return Result{}, ctx.Err()
		}
		lastErr = err
		log.Warn().Err(err).Str("plan_type", req.PlanType).Msgf("Gemini attempt %d failed", attempt+1)
	}

	if errors.Is(lastErr, context.DeadlineExceeded) {
		return Result{}, fmt.Errorf("%w after %d attempts: %v", ErrTimeout, maxAttempts, lastErr)
	}
	return Result{}, fmt.Errorf("%w after %d attempts: %v", ErrUnavailable, maxAttempts, lastErr)
}

// attempt performs one HTTP round trip under the per-call timeout.
func (c *Client) attempt(ctx context.Context, url string, payload []byte, planType string, n int) (Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	log.Info().Str("plan_type", planType).Msgf("Attempt %d: calling Gemini API", n+1)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, fmt.Errorf("API returned non-200 status: %s, body: %s", resp.Status, string(body))
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return Result{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return Result{}, errors.New("no content found in Gemini response")
	}

	cand := geminiResp.Candidates[0]
	return Result{
		Text:      cand.Content.Parts[0].Text,
		Truncated: cand.FinishReason == "MAX_TOKENS",
	}, nil
}
