package generate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decodeRequest(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	return payload
}

func TestCompleteBuildsMessagesAndExtractsText(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		captured = decodeRequest(t, r)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output":[{"content":[{"type":"output_text","text":"bonjour"}]}]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, srv.Client())
	result, err := client.Complete(context.Background(), "gpt-4o-mini", Prompt{System: "sys", User: "hello"}, 128)
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}

	if !result.OK || result.Status != http.StatusOK {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.OutputText != "bonjour" {
		t.Fatalf("expected extracted text, got %q", result.OutputText)
	}

	input, ok := captured["input"].([]any)
	if !ok || len(input) != 2 {
		t.Fatalf("expected system+user messages, got %v", captured["input"])
	}
	if captured["max_output_tokens"].(float64) != 128 {
		t.Fatalf("unexpected token budget: %v", captured["max_output_tokens"])
	}
	if _, present := captured["reasoning"]; present {
		t.Fatal("non low-latency model must not force reasoning options")
	}
}

func TestCompleteForcesLowLatencyOptions(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = decodeRequest(t, r)
		w.Write([]byte(`{"output_text":"ok"}`))
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	if _, err := client.Complete(context.Background(), "gpt-5-nano", Prompt{User: "hi"}, 0); err != nil {
		t.Fatalf("Complete err: %v", err)
	}

	reasoning, ok := captured["reasoning"].(map[string]any)
	if !ok || reasoning["effort"] != "minimal" {
		t.Fatalf("expected minimal reasoning effort, got %v", captured["reasoning"])
	}
	text, ok := captured["text"].(map[string]any)
	if !ok || text["verbosity"] != "low" {
		t.Fatalf("expected low verbosity, got %v", captured["text"])
	}
	if captured["max_output_tokens"].(float64) != float64(defaultMaxOutputTokens) {
		t.Fatalf("expected default token budget, got %v", captured["max_output_tokens"])
	}
}

func TestCompleteNonSuccessCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	result, err := client.Complete(context.Background(), "gpt-5-nano", Prompt{User: "hi"}, 64)
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}

	if result.OK {
		t.Fatal("expected failed result")
	}
	if result.Status != http.StatusTooManyRequests {
		t.Fatalf("unexpected status %d", result.Status)
	}
	if result.ErrorMessage() != "rate limited" {
		t.Fatalf("unexpected error message %q", result.ErrorMessage())
	}
	if result.FailureStatus() != http.StatusTooManyRequests {
		t.Fatalf("unexpected failure status %d", result.FailureStatus())
	}
}

func TestFailureStatusForDegenerateSuccess(t *testing.T) {
	result := Result{OK: true, Status: http.StatusOK}
	if got := result.FailureStatus(); got != http.StatusBadGateway {
		t.Fatalf("empty-but-2xx should map to 502, got %d", got)
	}
}
