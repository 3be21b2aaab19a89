package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/voicerelay/backend/internal/service/audio"
)

// Error reports a failed transcription attempt, including which model the
// final attempt used and whether the fallback model was tried.
type Error struct {
	Status        int
	Model         string
	FallbackTried bool
	Body          string
	Message       string
}

func (e *Error) Error() string {
	return e.Message
}

// HTTPStatus is the status the relay should answer with.
func (e *Error) HTTPStatus() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// UpstreamBody is the raw provider response body, for diagnostics.
func (e *Error) UpstreamBody() string {
	return e.Body
}

// Config selects models and endpoint for the transcription client.
type Config struct {
	APIKey        string
	BaseURL       string
	PrimaryModel  string
	FallbackModel string
}

// Client submits audio chunks to the provider's transcription endpoint with
// a primary model and a single fallback attempt.
type Client struct {
	cfg Config
	hc  *http.Client
}

// NewClient builds a transcription client on the supplied HTTP client.
func NewClient(cfg Config, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{cfg: cfg, hc: hc}
}

// Output is a successful transcription.
type Output struct {
	Text          string
	Model         string
	FallbackTried bool
}

type attemptResult struct {
	ok     bool
	status int
	text   string
	body   string
}

func (r attemptResult) errorMessage(model string) string {
	if msg := decodeErrorMessage(r.body); msg != "" {
		return msg
	}
	if r.body != "" {
		return r.body
	}
	return fmt.Sprintf("transcription with %s failed with status %d", model, r.status)
}

// Transcribe decodes the payload once, runs the primary model and, iff the
// primary attempt returned a non-success status and a distinct fallback model
// is configured, retries exactly once with the fallback.
func (c *Client) Transcribe(ctx context.Context, audioBase64, mimeType, languageHint string) (Output, error) {
	payload, err := audio.Decode(audioBase64, mimeType)
	if err != nil {
		return Output{}, err
	}

	usedModel := c.cfg.PrimaryModel
	result, err := c.transcribeOnce(ctx, usedModel, payload, languageHint)
	if err != nil {
		return Output{}, err
	}

	fallbackTried := false
	if !result.ok && c.cfg.FallbackModel != "" && c.cfg.FallbackModel != c.cfg.PrimaryModel {
		log.Printf("[transcribe] primary model %s failed status=%d bodySnippet=%q",
			usedModel, result.status, snippet(result.body, 300))
		fallbackTried = true
		usedModel = c.cfg.FallbackModel
		result, err = c.transcribeOnce(ctx, usedModel, payload, languageHint)
		if err != nil {
			return Output{}, err
		}
	}

	if !result.ok {
		return Output{}, &Error{
			Status:        result.status,
			Model:         usedModel,
			FallbackTried: fallbackTried,
			Body:          result.body,
			Message:       result.errorMessage(usedModel),
		}
	}

	return Output{Text: result.text, Model: usedModel, FallbackTried: fallbackTried}, nil
}

func (c *Client) transcribeOnce(ctx context.Context, model string, payload audio.Payload, languageHint string) (attemptResult, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	part, err := mw.CreatePart(fileHeader(payload.MIMEType))
	if err != nil {
		return attemptResult{}, fmt.Errorf("build multipart payload: %w", err)
	}
	if _, err := part.Write(payload.Bytes); err != nil {
		return attemptResult{}, fmt.Errorf("write audio part: %w", err)
	}
	if err := mw.WriteField("model", model); err != nil {
		return attemptResult{}, fmt.Errorf("write model field: %w", err)
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return attemptResult{}, fmt.Errorf("write response_format field: %w", err)
	}
	if languageHint != "" && languageHint != "auto" {
		if err := mw.WriteField("language", languageHint); err != nil {
			return attemptResult{}, fmt.Errorf("write language field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return attemptResult{}, fmt.Errorf("finish multipart payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/audio/transcriptions", body)
	if err != nil {
		return attemptResult{}, fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	log.Printf("[transcribe] calling model=%s mime=%s bytes=%d", model, payload.MIMEType, len(payload.Bytes))

	resp, err := c.hc.Do(req)
	if err != nil {
		return attemptResult{}, fmt.Errorf("call transcription endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return attemptResult{}, fmt.Errorf("read transcription response: %w", err)
	}

	result := attemptResult{
		ok:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		status: resp.StatusCode,
		body:   string(raw),
	}
	if result.ok {
		var parsed struct {
			Text string `json:"text"`
		}
		// A success body that is not JSON still counts as success with
		// empty text, matching the provider's json response_format.
		_ = json.Unmarshal(raw, &parsed)
		result.text = parsed.Text
	} else {
		log.Printf("[transcribe] model=%s status=%d bodySnippet=%q", model, resp.StatusCode, snippet(result.body, 500))
	}

	return result, nil
}

// fileHeader names the upload by MIME family so the provider can sniff the
// container format.
func fileHeader(mimeType string) textproto.MIMEHeader {
	filename := "chunk.webm"
	if strings.Contains(mimeType, "wav") {
		filename = "chunk.wav"
	}

	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if mimeType != "" {
		h.Set("Content-Type", mimeType)
	}
	return h
}

func decodeErrorMessage(body string) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return ""
	}
	return parsed.Error.Message
}

func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
