package recap

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/voicerelay/backend/internal/language"
	sessionmodel "github.com/voicerelay/backend/internal/model/session"
	"github.com/voicerelay/backend/internal/service/generate"
)

// Error reports recap failure after the fallback-model retry is spent.
type Error struct {
	Status  int
	Body    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// HTTPStatus is the status the relay should answer with.
func (e *Error) HTTPStatus() int {
	return e.Status
}

// UpstreamBody is the raw provider response body, for diagnostics.
func (e *Error) UpstreamBody() string {
	return e.Body
}

const maxOutputTokens = 768

// Service produces a structured running summary over a session's source
// transcript.
type Service struct {
	client        generate.Completer
	model         string
	fallbackModel string
	maxChars      int
}

// NewService builds the recap orchestrator. fallbackModel may equal model;
// maxChars bounds how much trailing transcript feeds each recap.
func NewService(client generate.Completer, model, fallbackModel string, maxChars int) *Service {
	if fallbackModel == "" {
		fallbackModel = model
	}
	return &Service{client: client, model: model, fallbackModel: fallbackModel, maxChars: maxChars}
}

// Output is a produced recap and the model that actually generated it.
type Output struct {
	Text  string
	Model string
}

// Build summarizes the segments' source text. Zero segments return an empty
// Output without a remote call. A failed or empty generation is retried once
// with the fallback model before failing.
func (s *Service) Build(ctx context.Context, segments []sessionmodel.Segment, domainHints []string, target language.Descriptor) (Output, error) {
	if len(segments) == 0 {
		return Output{}, nil
	}

	prompt := generate.Prompt{
		System: buildSystemPrompt(domainHints, target),
		User:   s.buildSourceText(segments),
	}

	text, result, err := generate.CompleteWithFallback(ctx, s.client, prompt, maxOutputTokens, s.model, s.fallbackModel)
	if err != nil {
		return Output{}, fmt.Errorf("recap: %w", err)
	}
	if text == "" {
		return Output{}, &Error{
			Status:  result.FailureStatus(),
			Body:    result.Body,
			Message: result.ErrorMessage(),
		}
	}

	log.Printf("[recap] model=%s segments=%d outLen=%d lang=%s", result.Model, len(segments), len(text), target.Code)
	return Output{Text: text, Model: result.Model}, nil
}

// buildSourceText joins segment source texts and keeps the trailing maxChars
// characters, dropping the oldest context first. Counted in runes so CJK
// history is not cut mid-character.
func (s *Service) buildSourceText(segments []sessionmodel.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.SourceText)
	}

	text := strings.Join(parts, "\n")
	if s.maxChars > 0 {
		if runes := []rune(text); len(runes) > s.maxChars {
			text = string(runes[len(runes)-s.maxChars:])
		}
	}
	return text
}

func buildSystemPrompt(domainHints []string, target language.Descriptor) string {
	base := fmt.Sprintf(`You are an expert meeting note taker.

Write the recap entirely in %s (language code %s).

Always follow this exact structure:

1. Overall summary
   - 1 paragraph ONLY.
   - If language is English: about 50-60 words.
   - If language is Japanese: about 100-120 characters.
   - No bullet points here.

2. Agenda list
   - Title line: "Agenda:"
   - Then 3-7 agenda items as a bullet list.
   - Each agenda item must be ONE short line.

3. Key points by agenda
   - Title line: "Key points by agenda:"
   - For each agenda item, create a sub-bullet with the same agenda title,
     and under it up to 3 bullet points with key decisions, questions,
     and action items.
   - Each bullet point must be one short sentence.

Global rules:
- The whole recap must fit roughly in one screen at 16px font, so keep all text concise.
- Do NOT add extra sections, explanations, or headings beyond the three sections above.
- Do NOT include analysis of language, translations, or meta commentary.
- Do NOT repeat the raw transcript.`, target.Name, target.Code)

	if len(domainHints) > 0 {
		base += fmt.Sprintf("\nThe discussion domain is: %s.\nUse appropriate specialist terminology for this domain.",
			strings.Join(domainHints, ", "))
	}

	return base
}
