package memory

import (
	"encoding/json"
	"strings"
)

// textKeys are checked in priority order when extracting embeddable text from
// a JSON object payload. Only string-valued fields qualify.
var textKeys = [...]string{"text", "fact", "observation", "content"}

var emptyObject = json.RawMessage("{}")

// deriveMemoryText computes, once at write time, the content to persist and
// the plain text to embed from a raw payload and an optional title.
//
// When raw is valid JSON it is stored verbatim; if it is an object, the first
// string field among textKeys becomes the embeddable text, otherwise the full
// raw string is used. When raw is not valid JSON the content degrades to an
// empty JSON object and the raw string is embedded as-is.
//
// A non-empty title is prepended to the embeddable text but never alters the
// stored content.
func deriveMemoryText(raw, title string) (json.RawMessage, string) {
	content, text := extractText(raw)
	if strings.TrimSpace(title) != "" {
		text = title + " " + text
	}
	return content, text
}

func extractText(raw string) (json.RawMessage, string) {
	if !json.Valid([]byte(raw)) {
		return emptyObject, raw
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		for _, key := range textKeys {
			if s, ok := obj[key].(string); ok {
				return json.RawMessage(raw), s
			}
		}
	}
	return json.RawMessage(raw), raw
}
