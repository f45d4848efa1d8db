package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrMalformedResponse indicates a completion that is not valid JSON after
// fence stripping, or that lacks keys the stage demanded.
var ErrMalformedResponse = eris.New("pipeline: malformed completion response")

// cleanJSON extracts a JSON object from completion text that may be wrapped
// in markdown code fences or surrounding prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// decodeJSON normalizes raw completion text through cleanJSON and decodes
// it into v. Every stage that demands structured output decodes through
// this path; none may unmarshal raw completion text directly.
func decodeJSON(raw string, v any) error {
	if err := json.Unmarshal([]byte(cleanJSON(raw)), v); err != nil {
		return eris.Wrap(ErrMalformedResponse, err.Error())
	}
	return nil
}
