package analysis

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON recovers a JSON object from raw model output. Strategies in
// order: fenced code block, the span between the first '{' and the last '}',
// then the full text as-is. Returns false when none of them parse.
func ExtractJSON(raw string) (map[string]json.RawMessage, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}

	if m := fencedBlockRe.FindStringSubmatch(raw); len(m) == 2 {
		if obj, ok := tryParse(m[1]); ok {
			return obj, true
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if obj, ok := tryParse(raw[start : end+1]); ok {
			return obj, true
		}
	}

	return tryParse(raw)
}

func tryParse(candidate string) (map[string]json.RawMessage, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// rawStep mirrors one element of the model's steps array.
type rawStep struct {
	Type             string   `json:"type"`
	Action           string   `json:"action"`
	Description      string   `json:"description"`
	Confidence       float64  `json:"confidence"`
	TimestampSeconds *float64 `json:"timestampSeconds"`
}

// ParseSteps validates that the response object carries an array-valued
// "steps" field and decodes it.
func ParseSteps(raw string) ([]rawStep, error) {
	obj, ok := ExtractJSON(raw)
	if !ok {
		return nil, &ResponseFormatError{Reason: "response is not a JSON object"}
	}

	stepsRaw, ok := obj["steps"]
	if !ok {
		return nil, &ResponseFormatError{Reason: "missing steps field"}
	}

	var steps []rawStep
	if err := json.Unmarshal(stepsRaw, &steps); err != nil {
		return nil, &ResponseFormatError{Reason: "steps is not an array"}
	}
	return steps, nil
}

func clampConfidence(v float64) int {
	// Some models answer with a 0-1 score instead of 0-100.
	if v > 0 && v <= 1 {
		v *= 100
	}
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return int(v + 0.5)
}
