package translate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/voicerelay/backend/internal/language"
	"github.com/voicerelay/backend/internal/service/generate"
)

// Error reports translation failure after the retry budget is spent.
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

const maxOutputTokens = 256

// Service translates chunk transcripts into the target language.
type Service struct {
	client generate.Completer
	model  string
}

// NewService builds the translation orchestrator on the given model.
func NewService(client generate.Completer, model string) *Service {
	return &Service{client: client, model: model}
}

// Translate rewrites sourceText into the target language. Blank input
// returns "" without a remote call. A failed or empty generation is retried
// exactly once with identical parameters before failing.
func (s *Service) Translate(ctx context.Context, sourceText string, domainHints []string, target language.Descriptor) (string, error) {
	if strings.TrimSpace(sourceText) == "" {
		return "", nil
	}

	prompt := generate.Prompt{
		System: buildSystemPrompt(domainHints, target),
		User:   sourceText,
	}

	// Same model listed twice: the retry is same-model, no backoff.
	text, result, err := generate.CompleteWithFallback(ctx, s.client, prompt, maxOutputTokens, s.model, s.model)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	if text == "" {
		return "", &Error{
			Status:  result.FailureStatus(),
			Body:    result.Body,
			Message: result.ErrorMessage(),
		}
	}

	log.Printf("[translate] model=%s inLen=%d outLen=%d lang=%s", s.model, len(sourceText), len(text), target.Code)
	return text, nil
}

func buildSystemPrompt(domainHints []string, target language.Descriptor) string {
	var b strings.Builder
	b.WriteString("You are a professional multilingual translator. ")
	b.WriteString("Your only task is to rewrite or translate the input into natural, fluent ")
	b.WriteString(target.Name)
	b.WriteString(" (language code ")
	b.WriteString(target.Code)
	b.WriteString("). ")
	b.WriteString("The source text may contain multiple languages. ")
	b.WriteString("You must output only the final translated text, without any explanations, analysis, alternatives, romanization, or repetition of the source text. ")
	b.WriteString("Do not write meta commentary such as 'Let us parse', 'Likely', or 'This seems'. ")
	b.WriteString("Keep the length roughly similar to the source and do not add extra sentences beyond what is needed to express the same meaning.")

	if len(domainHints) > 0 {
		b.WriteString(" The conversation domain is: ")
		b.WriteString(strings.Join(domainHints, ", "))
		b.WriteString(". Use accurate domain-specific terminology where appropriate.")
	}

	return b.String()
}
