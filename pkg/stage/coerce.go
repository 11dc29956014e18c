package stage

import (
	"encoding/json"
	"strings"
)

// fallbackConfidence is assigned when a reply carries no usable confidence
// field: low enough to flag the record for review, high enough not to sink a
// whole workflow on its own.
const fallbackConfidence = 0.5

// coerce turns a free-text provider reply into a structured record. It looks
// for the outermost JSON object in the text (models routinely wrap JSON in
// prose or code fences); when none parses, the raw text is kept under a
// single key so partial progress stays visible.
func coerce(text string) (map[string]any, float64, bool) {
	if data, ok := extractJSON(text); ok {
		confidence := extractConfidence(data)
		return data, confidence, true
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, 0, false
	}
	return map[string]any{"raw": trimmed}, fallbackConfidence * 0.5, true
}

func extractJSON(text string) (map[string]any, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &data); err != nil {
		return nil, false
	}
	return data, true
}

// extractConfidence pulls a [0,1] confidence out of the structured reply,
// clamping out-of-range values and falling back when absent.
func extractConfidence(data map[string]any) float64 {
	raw, ok := data["confidence"]
	if !ok {
		return fallbackConfidence
	}

	var confidence float64
	switch v := raw.(type) {
	case float64:
		confidence = v
	case json.Number:
		confidence, _ = v.Float64()
	default:
		return fallbackConfidence
	}

	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// chunkSource keeps the head of an oversized source for partial processing.
func chunkSource(source string, maxLines int) string {
	lines := strings.Split(source, "\n")
	if len(lines) <= maxLines {
		return source
	}
	return strings.Join(lines[:maxLines], "\n")
}
