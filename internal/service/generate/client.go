package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

// Prompt is an optional system/user instruction pair.
type Prompt struct {
	System string
	User   string
}

// Result is the outcome of one generation call. A success with empty
// OutputText is not an error at this layer; orchestrators decide whether to
// retry.
type Result struct {
	OK     bool
	Status int
	Model  string
	// Body is the raw response body, kept for diagnostics.
	Body string
	// OutputText is the extracted plain text, "" when none was found.
	OutputText string
	// ProviderError is the provider's structured error message, if any.
	ProviderError string
}

// ErrorMessage summarizes why the call failed, preferring the provider's
// structured error message over the raw body.
func (r Result) ErrorMessage() string {
	if r.ProviderError != "" {
		return r.ProviderError
	}
	if r.Body != "" {
		return r.Body
	}
	return fmt.Sprintf("generation with %s failed with status %d", r.Model, r.Status)
}

// FailureStatus maps a failed or degenerate result onto an HTTP status the
// relay should answer with: the upstream status when it was an error, 502
// when upstream claimed success but produced no usable text.
func (r Result) FailureStatus() int {
	if !r.OK {
		if r.Status == 0 {
			return http.StatusInternalServerError
		}
		return r.Status
	}
	return http.StatusBadGateway
}

// Config selects the endpoint for the generation client.
type Config struct {
	APIKey  string
	BaseURL string
}

// Client is a thin wrapper around the provider's responses endpoint.
type Client struct {
	cfg Config
	hc  *http.Client
}

// NewClient builds a generation client on the supplied HTTP client.
func NewClient(cfg Config, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{cfg: cfg, hc: hc}
}

const defaultMaxOutputTokens = 256

// lowLatencyFamily marks models whose reasoning effort and verbosity are
// forced down so they emit short, literal text instead of long reasoning.
func lowLatencyFamily(model string) bool {
	return strings.HasPrefix(model, "gpt-5")
}

// Complete sends one generation request. The returned error covers transport
// and encoding problems only; HTTP-level failures come back inside Result.
func (c *Client) Complete(ctx context.Context, model string, p Prompt, maxOutputTokens int) (Result, error) {
	if maxOutputTokens <= 0 {
		maxOutputTokens = defaultMaxOutputTokens
	}

	payload := requestPayload{
		Model:           model,
		Input:           buildMessages(p),
		MaxOutputTokens: maxOutputTokens,
	}
	if lowLatencyFamily(model) {
		payload.Reasoning = &reasoningOptions{Effort: "minimal"}
		payload.Text = &textOptions{Verbosity: "low"}
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("encode generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/responses", bytes.NewReader(buf))
	if err != nil {
		return Result{}, fmt.Errorf("build generation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("call generation endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read generation response: %w", err)
	}

	result := Result{
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status: resp.StatusCode,
		Model:  model,
		Body:   string(raw),
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err == nil {
		result.OutputText = extractOutputText(&parsed)
		if parsed.Error != nil {
			result.ProviderError = parsed.Error.Message
		}
		if result.OK && parsed.Usage != nil {
			log.Printf("[generate] model=%s status=%d outTokens=%d reasoningTokens=%d",
				model, resp.StatusCode, parsed.Usage.OutputTokens, parsed.Usage.OutputTokensDetails.ReasoningTokens)
		}
	}

	if !result.OK {
		log.Printf("[generate] model=%s status=%d bodySnippet=%q", model, resp.StatusCode, truncate(result.Body, 500))
	}

	return result, nil
}

func buildMessages(p Prompt) []message {
	var messages []message
	if p.System != "" {
		messages = append(messages, message{
			Role:    "system",
			Content: []inputText{{Type: "input_text", Text: p.System}},
		})
	}
	if p.User != "" {
		messages = append(messages, message{
			Role:    "user",
			Content: []inputText{{Type: "input_text", Text: p.User}},
		})
	}
	return messages
}

type requestPayload struct {
	Model           string            `json:"model"`
	Input           []message         `json:"input"`
	MaxOutputTokens int               `json:"max_output_tokens"`
	Reasoning       *reasoningOptions `json:"reasoning,omitempty"`
	Text            *textOptions      `json:"text,omitempty"`
}

type message struct {
	Role    string      `json:"role"`
	Content []inputText `json:"content"`
}

type inputText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type reasoningOptions struct {
	Effort string `json:"effort"`
}

type textOptions struct {
	Verbosity string `json:"verbosity"`
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
