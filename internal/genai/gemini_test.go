package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func candidateJSON(text, finishReason string) string {
	raw, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{
				"content":      map[string]any{"parts": []map[string]string{{"text": text}}},
				"finishReason": finishReason,
			},
		},
	})
	return string(raw)
}

func TestGenerateReturnsTextAndEchoesPrompt(t *testing.T) {
	var captured geminiPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, candidateJSON(`{"meals": []}`, "STOP"))
	}))
	defer srv.Close()

	c := NewClient("test-key", "test-model", srv.URL, 5*time.Second)
	res, err := c.Generate(context.Background(), Request{
		PlanType:    PlanTypeMeal,
		System:      "You are a nutrition coach.",
		Prompt:      "Build a meal plan.",
		Temperature: 0.7,
	})
	require.NoError(t, err)
	require.Equal(t, `{"meals": []}`, res.Text)
	require.False(t, res.Truncated)
	require.Greater(t, res.Latency, time.Duration(0))

	require.Equal(t, "You are a nutrition coach.", captured.SystemInstruction.Parts[0].Text)
	require.Equal(t, "Build a meal plan.", captured.Contents[0].Parts[0].Text)
	require.Equal(t, "application/json", captured.GenerationConfig.ResponseMimeType)
	require.Equal(t, defaultMaxOutputTokens, captured.GenerationConfig.MaxOutputTokens)
}

func TestGenerateFlagsTruncation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candidateJSON(`{"meals": [{"na`, "MAX_TOKENS"))
	}))
	defer srv.Close()

	c := NewClient("test-key", "test-model", srv.URL, 5*time.Second)
	res, err := c.Generate(context.Background(), Request{PlanType: PlanTypeMeal, Prompt: "go"})
	require.NoError(t, err)
	require.True(t, res.Truncated)
}

func TestGenerateRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, candidateJSON("ok", "STOP"))
	}))
	defer srv.Close()

	c := NewClient("test-key", "test-model", srv.URL, 5*time.Second)
	res, err := c.Generate(context.Background(), Request{PlanType: PlanTypeWorkout, Prompt: "go"})
	require.NoError(t, err)
	require.Equal(t, "ok", res.Text)
	require.EqualValues(t, 2, calls.Load())
}

func TestGenerateUnavailableAfterAllRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient("test-key", "test-model", srv.URL, 5*time.Second)
	_, err := c.Generate(context.Background(), Request{PlanType: PlanTypeMeal, Prompt: "go"})
	require.ErrorIs(t, err, ErrUnavailable)
	require.EqualValues(t, maxAttempts, calls.Load())
}

func TestGenerateStopsWhenCallerCancels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	c := NewClient("test-key", "test-model", srv.URL, 5*time.Second)
	start := time.Now()
	_, err := c.Generate(ctx, Request{PlanType: PlanTypeMeal, Prompt: "go"})
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), 2*time.Second, "cancellation must cut the backoff short")
}

func TestGenerateRejectsEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates": []}`)
	}))
	defer srv.Close()

	c := NewClient("test-key", "test-model", srv.URL, 5*time.Second)
	_, err := c.Generate(context.Background(), Request{PlanType: PlanTypeMeal, Prompt: "go"})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestNewClientFromEnvRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := NewClientFromEnv()
	require.Error(t, err)

	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("GEMINI_BASE_URL", "")
	t.Setenv("GEMINI_TIMEOUT_SECONDS", "")
	t.Setenv("GEMINI_MAX_OUTPUT_TOKENS", "4096")
	c, err := NewClientFromEnv()
	require.NoError(t, err)
	require.Equal(t, defaultModel, c.model)
	require.Equal(t, defaultTimeout, c.timeout)
	require.Equal(t, 4096, c.maxTokens)
}
