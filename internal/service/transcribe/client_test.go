package transcribe

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voicerelay/backend/internal/service/audio"
)

func wavBase64(t *testing.T) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString([]byte("RIFFxxxxWAVE"))
}

type recordedAttempt struct {
	model    string
	filename string
	language string
}

// newUpstream fakes the transcription endpoint; respond decides each
// attempt's outcome by model name.
func newUpstream(t *testing.T, attempts *[]recordedAttempt, respond func(model string) (int, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		attempt := recordedAttempt{
			model:    r.FormValue("model"),
			language: r.FormValue("language"),
		}
		if _, header, err := r.FormFile("file"); err == nil {
			attempt.filename = header.Filename
		}
		*attempts = append(*attempts, attempt)

		status, body := respond(attempt.model)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestTranscribePrimarySucceeds(t *testing.T) {
	var attempts []recordedAttempt
	srv := newUpstream(t, &attempts, func(string) (int, string) {
		return http.StatusOK, `{"text":"hello world"}`
	})
	defer srv.Close()

	client := NewClient(Config{
		APIKey:        "k",
		BaseURL:       srv.URL,
		PrimaryModel:  "primary-model",
		FallbackModel: "fallback-model",
	}, srv.Client())

	out, err := client.Transcribe(context.Background(), wavBase64(t), "audio/wav", "en")
	if err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}
	if out.Text != "hello world" || out.Model != "primary-model" || out.FallbackTried {
		t.Fatalf("unexpected output: %+v", out)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	if attempts[0].filename != "chunk.wav" {
		t.Fatalf("wav payloads should upload as chunk.wav, got %s", attempts[0].filename)
	}
	if attempts[0].language != "en" {
		t.Fatalf("expected language field, got %q", attempts[0].language)
	}
}

func TestTranscribeAutoLanguageOmitsField(t *testing.T) {
	var attempts []recordedAttempt
	srv := newUpstream(t, &attempts, func(string) (int, string) {
		return http.StatusOK, `{"text":"ok"}`
	})
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, PrimaryModel: "m"}, srv.Client())
	if _, err := client.Transcribe(context.Background(), wavBase64(t), "audio/wav", "auto"); err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}
	if attempts[0].language != "" {
		t.Fatalf("auto language must not be forwarded, got %q", attempts[0].language)
	}
}

func TestTranscribeWebmFilename(t *testing.T) {
	var attempts []recordedAttempt
	srv := newUpstream(t, &attempts, func(string) (int, string) {
		return http.StatusOK, `{"text":"ok"}`
	})
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, PrimaryModel: "m"}, srv.Client())
	if _, err := client.Transcribe(context.Background(), wavBase64(t), "audio/webm", ""); err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}
	if attempts[0].filename != "chunk.webm" {
		t.Fatalf("non-wav payloads should upload as chunk.webm, got %s", attempts[0].filename)
	}
}

func TestTranscribeFallbackOnPrimaryFailure(t *testing.T) {
	var attempts []recordedAttempt
	srv := newUpstream(t, &attempts, func(model string) (int, string) {
		if model == "primary-model" {
			return http.StatusInternalServerError, `{"error":{"message":"primary down"}}`
		}
		return http.StatusOK, `{"text":"rescued"}`
	})
	defer srv.Close()

	client := NewClient(Config{
		APIKey:        "k",
		BaseURL:       srv.URL,
		PrimaryModel:  "primary-model",
		FallbackModel: "fallback-model",
	}, srv.Client())

	out, err := client.Transcribe(context.Background(), wavBase64(t), "audio/wav", "")
	if err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}
	if out.Text != "rescued" || out.Model != "fallback-model" || !out.FallbackTried {
		t.Fatalf("unexpected output: %+v", out)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", len(attempts))
	}
}

func TestTranscribeBothModelsFail(t *testing.T) {
	var attempts []recordedAttempt
	srv := newUpstream(t, &attempts, func(string) (int, string) {
		return http.StatusBadGateway, `{"error":{"message":"asr offline"}}`
	})
	defer srv.Close()

	client := NewClient(Config{
		APIKey:        "k",
		BaseURL:       srv.URL,
		PrimaryModel:  "primary-model",
		FallbackModel: "fallback-model",
	}, srv.Client())

	_, err := client.Transcribe(context.Background(), wavBase64(t), "audio/wav", "")
	var te *Error
	if !errors.As(err, &te) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if te.Status != http.StatusBadGateway || te.Model != "fallback-model" || !te.FallbackTried {
		t.Fatalf("unexpected error: %+v", te)
	}
	if te.Message != "asr offline" {
		t.Fatalf("expected provider message, got %q", te.Message)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", len(attempts))
	}
}

func TestTranscribeNoFallbackWhenModelsIdentical(t *testing.T) {
	var attempts []recordedAttempt
	srv := newUpstream(t, &attempts, func(string) (int, string) {
		return http.StatusInternalServerError, `{}`
	})
	defer srv.Close()

	client := NewClient(Config{
		APIKey:        "k",
		BaseURL:       srv.URL,
		PrimaryModel:  "same-model",
		FallbackModel: "same-model",
	}, srv.Client())

	_, err := client.Transcribe(context.Background(), wavBase64(t), "audio/wav", "")
	var te *Error
	if !errors.As(err, &te) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if te.FallbackTried {
		t.Fatal("identical fallback model must not be retried")
	}
	if len(attempts) != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", len(attempts))
	}
}

func TestTranscribeDecodeErrorSkipsUpstream(t *testing.T) {
	var attempts []recordedAttempt
	srv := newUpstream(t, &attempts, func(string) (int, string) {
		return http.StatusOK, `{"text":"never"}`
	})
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, PrimaryModel: "m"}, srv.Client())

	_, err := client.Transcribe(context.Background(), "data:audio/wav;base64", "", "")
	var de *audio.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if len(attempts) != 0 {
		t.Fatal("malformed payloads must not reach the provider")
	}
}
