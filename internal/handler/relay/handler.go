package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/voicerelay/backend/internal/config"
	"github.com/voicerelay/backend/internal/language"
	sessionmodel "github.com/voicerelay/backend/internal/model/session"
	"github.com/voicerelay/backend/internal/service/audio"
	"github.com/voicerelay/backend/internal/service/recap"
	sessionsvc "github.com/voicerelay/backend/internal/service/session"
	"github.com/voicerelay/backend/internal/service/transcribe"
	"github.com/voicerelay/backend/internal/version"
	"github.com/voicerelay/backend/pkg/utils"
)

// Transcriber turns one audio chunk into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioBase64, mimeType, languageHint string) (transcribe.Output, error)
}

// Translator rewrites a transcript into the target language.
type Translator interface {
	Translate(ctx context.Context, sourceText string, domainHints []string, target language.Descriptor) (string, error)
}

// Recapper summarizes accumulated session segments.
type Recapper interface {
	Build(ctx context.Context, segments []sessionmodel.Segment, domainHints []string, target language.Descriptor) (recap.Output, error)
}

// upstreamError is implemented by service errors that carry a provider
// status and response body.
type upstreamError interface {
	error
	HTTPStatus() int
	UpstreamBody() string
}

const bodySnippetLimit = 500

// Handler binds the chunk pipeline, recap and session bootstrap to HTTP.
type Handler struct {
	store       *sessionsvc.Store
	transcriber Transcriber
	translator  Translator
	recapper    Recapper
	cfg         *config.Config
}

// New creates the relay handler.
func New(store *sessionsvc.Store, transcriber Transcriber, translator Translator, recapper Recapper, cfg *config.Config) *Handler {
	return &Handler{
		store:       store,
		transcriber: transcriber,
		translator:  translator,
		recapper:    recapper,
		cfg:         cfg,
	}
}

// RegisterRoutes mounts the relay operations.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session", h.handleBootstrap)
	r.Post("/transcribe-chunk", h.handleChunk)
	r.Post("/recap", h.handleRecap)
	r.Get("/health", h.handleHealth)
}

// handleBootstrap mints a fresh session and reports the effective model
// configuration so the frontend can label its UI.
func (h *Handler) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	session := h.store.GetOrCreate("")
	defaultLang := language.Resolve("", h.cfg.Translate.DefaultOutputLang)

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"sessionId": session.ID,
		"transcription": map[string]any{
			"model":          h.cfg.Transcribe.PrimaryModel,
			"fallback_model": h.cfg.Transcribe.FallbackModel,
			"language":       h.cfg.Transcribe.Language,
		},
		"translation": map[string]any{
			"model":               h.cfg.Translate.Model,
			"default_output_lang": defaultLang.Code,
		},
		"recap": map[string]any{
			"model":          h.cfg.Recap.Model,
			"fallback_model": h.cfg.Recap.FallbackModel,
			"max_chars":      h.cfg.Recap.MaxChars,
		},
		"realtime": map[string]any{
			"model": h.cfg.Realtime.Model,
			"voice": h.cfg.Realtime.Voice,
		},
		"server": version.Meta(),
	})
}

type chunkPayload struct {
	SessionID    string   `json:"sessionId"`
	ChunkID      int      `json:"chunkId"`
	AudioBase64  string   `json:"audioBase64"`
	MimeType     string   `json:"mimeType"`
	IsLast       bool     `json:"isLast"`
	LanguageHint string   `json:"languageHint"`
	DomainHints  []string `json:"domainHints"`
	TargetLang   string   `json:"targetLang"`
}

// handleChunk runs the full pipeline for one audio chunk: decode →
// transcribe (with model fallback) → translate (with one retry) → append.
// There is no partial success: any stage failure fails the whole request.
func (h *Handler) handleChunk(w http.ResponseWriter, r *http.Request) {
	var payload chunkPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	languageHint := payload.LanguageHint
	if languageHint == "" {
		languageHint = h.cfg.Transcribe.Language
	}
	target := language.Resolve(payload.TargetLang, h.cfg.Translate.DefaultOutputLang)
	session := h.store.GetOrCreate(payload.SessionID)

	log.Printf("[transcribe-chunk] session=%s chunkId=%d asrLang=%s outLang=%s audioLen=%d mime=%s",
		session.ID, payload.ChunkID, languageHint, target.Code, len(payload.AudioBase64), payload.MimeType)

	if payload.AudioBase64 == "" {
		h.respondChunkFailure(w, errors.New("audioBase64 is required"), payload)
		return
	}

	startedAt := time.Now()

	transcribed, err := h.transcriber.Transcribe(r.Context(), payload.AudioBase64, payload.MimeType, languageHint)
	if err != nil {
		log.Printf("[transcribe-chunk] transcription failed: %v", err)
		h.respondChunkFailure(w, err, payload)
		return
	}
	transcribedAt := time.Now()

	translatedText, err := h.translator.Translate(r.Context(), transcribed.Text, payload.DomainHints, target)
	if err != nil {
		log.Printf("[transcribe-chunk] translation failed: %v", err)
		h.respondChunkFailure(w, err, payload)
		return
	}

	seg := sessionmodel.NewSegment(payload.ChunkID, transcribed.Text, translatedText, target.Code)
	if err := h.store.AppendSegment(session.ID, seg); err != nil {
		h.respondChunkFailure(w, err, payload)
		return
	}

	log.Printf("[transcribe-chunk] done session=%s chunkId=%d model=%s transcribeMs=%d translateMs=%d outLen=%d",
		session.ID, payload.ChunkID, transcribed.Model,
		transcribedAt.Sub(startedAt).Milliseconds(), time.Since(transcribedAt).Milliseconds(), len(seg.TranslatedText))

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"sessionId": session.ID,
		"segment":   seg,
		"meta": map[string]any{
			"isLast":         payload.IsLast,
			"asrModel":       transcribed.Model,
			"asrLanguage":    languageHint,
			"targetLang":     target.Code,
			"targetLangName": target.Name,
		},
	})
}

type recapPayload struct {
	SessionID   string   `json:"sessionId"`
	DomainHints []string `json:"domainHints"`
	TargetLang  string   `json:"targetLang"`
}

// handleRecap summarizes every segment stored for the session and records
// the result as the session's latest recap.
func (h *Handler) handleRecap(w http.ResponseWriter, r *http.Request) {
	var payload recapPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target := language.Resolve(payload.TargetLang, h.cfg.Translate.DefaultOutputLang)
	session := h.store.GetOrCreate(payload.SessionID)

	built, err := h.recapper.Build(r.Context(), session.Segments, payload.DomainHints, target)
	if err != nil {
		log.Printf("[recap] failed session=%s: %v", session.ID, err)
		h.respondRecapFailure(w, err)
		return
	}

	model := built.Model
	if model == "" {
		model = h.cfg.Recap.Model
	}
	recapObj := sessionmodel.Recap{
		Text:       built.Text,
		Model:      model,
		OutputLang: target.Code,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.store.SetRecap(session.ID, recapObj); err != nil {
		h.respondRecapFailure(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"sessionId": session.ID,
		"recap":     recapObj,
	})
}

// handleHealth reports liveness plus build metadata.
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"server": version.Meta(),
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) respondChunkFailure(w http.ResponseWriter, err error, payload chunkPayload) {
	status, upstream := classifyFailure(err)

	resp := map[string]any{
		"ok":       false,
		"error":    err.Error(),
		"detail":   "processing /transcribe-chunk failed",
		"status":   status,
		"upstream": upstream,
		"requestInfo": map[string]any{
			"chunkId":           payload.ChunkID,
			"targetLang":        orNil(payload.TargetLang),
			"mimeType":          orNil(payload.MimeType),
			"hasAudioBase64":    payload.AudioBase64 != "",
			"audioBase64Prefix": prefix(payload.AudioBase64, 32),
		},
	}

	var te *transcribe.Error
	if errors.As(err, &te) {
		resp["model"] = te.Model
		resp["fallbackTried"] = te.FallbackTried
	}

	utils.RespondJSON(w, status, resp)
}

func (h *Handler) respondRecapFailure(w http.ResponseWriter, err error) {
	status, upstream := classifyFailure(err)
	utils.RespondJSON(w, status, map[string]any{
		"ok":       false,
		"error":    err.Error(),
		"detail":   "processing /recap failed",
		"status":   status,
		"upstream": upstream,
	})
}

// classifyFailure maps pipeline errors onto a response status and the
// upstream diagnostic block. Decode problems are the client's fault; typed
// upstream errors propagate their status with a bounded body snippet;
// anything else is an internal error.
func classifyFailure(err error) (int, map[string]any) {
	upstream := map[string]any{"status": nil, "bodySnippet": nil}

	var de *audio.DecodeError
	if errors.As(err, &de) {
		return http.StatusBadRequest, upstream
	}

	var ue upstreamError
	if errors.As(err, &ue) {
		upstream["status"] = ue.HTTPStatus()
		if body := ue.UpstreamBody(); body != "" {
			upstream["bodySnippet"] = prefix(body, bodySnippetLimit)
		}
		return ue.HTTPStatus(), upstream
	}

	return http.StatusInternalServerError, upstream
}

func prefix(s string, max int) any {
	if s == "" {
		return nil
	}
	if len(s) > max {
		return s[:max]
	}
	return s
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
