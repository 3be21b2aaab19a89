package generate

import "context"

// Completer abstracts the generation client for orchestrators and tests.
type Completer interface {
	Complete(ctx context.Context, model string, p Prompt, maxOutputTokens int) (Result, error)
}

// CompleteWithFallback runs Complete once per model in order, stopping at the
// first attempt that both succeeds at the HTTP level and yields non-empty
// extracted text. Passing the same model twice is the one-retry policy;
// passing a distinct second model is the fallback policy. The last Result is
// always returned so callers can surface the final status and body. Transport
// errors abort immediately without further attempts.
func CompleteWithFallback(ctx context.Context, c Completer, p Prompt, maxOutputTokens int, models ...string) (string, Result, error) {
	var last Result
	for _, model := range models {
		result, err := c.Complete(ctx, model, p, maxOutputTokens)
		if err != nil {
			return "", result, err
		}
		last = result
		if result.OK && result.OutputText != "" {
			return result.OutputText, result, nil
		}
	}
	return "", last, nil
}
