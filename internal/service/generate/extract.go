package generate

import "strings"

// apiResponse mirrors the subset of the responses payload this relay reads.
// The provider has emitted output text under several shapes over time, so
// every known location is modelled and probed in a fixed order.
type apiResponse struct {
	OutputText string       `json:"output_text"`
	Output     []outputItem `json:"output"`
	Error      *apiError    `json:"error"`
	Usage      *usage       `json:"usage"`
}

type outputItem struct {
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type       string       `json:"type"`
	Text       string       `json:"text"`
	OutputText string       `json:"output_text"`
	Data       *contentData `json:"data"`
}

type contentData struct {
	Text string `json:"text"`
}

type apiError struct {
	Message string `json:"message"`
}

type usage struct {
	OutputTokens        int `json:"output_tokens"`
	OutputTokensDetails struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"output_tokens_details"`
}

// partExtractors probe one content part for text. Ordered; the first
// non-empty match wins for that part.
var partExtractors = []func(contentPart) (string, bool){
	func(p contentPart) (string, bool) {
		t := strings.TrimSpace(p.Text)
		return t, t != ""
	},
	func(p contentPart) (string, bool) {
		t := strings.TrimSpace(p.OutputText)
		return t, t != ""
	},
	func(p contentPart) (string, bool) {
		if p.Type != "output_text" || p.Data == nil {
			return "", false
		}
		t := strings.TrimSpace(p.Data.Text)
		return t, t != ""
	},
}

// extractOutputText collects plain text from a responses payload: the
// aggregated top-level field first, then every located text per content
// part, joined with single spaces. Returns "" when nothing is found.
func extractOutputText(resp *apiResponse) string {
	if resp == nil {
		return ""
	}

	var parts []string
	if t := strings.TrimSpace(resp.OutputText); t != "" {
		parts = append(parts, t)
	}

	for _, item := range resp.Output {
		for _, c := range item.Content {
			for _, extract := range partExtractors {
				if t, ok := extract(c); ok {
					parts = append(parts, t)
					break
				}
			}
		}
	}

	return strings.TrimSpace(strings.Join(parts, " "))
}
