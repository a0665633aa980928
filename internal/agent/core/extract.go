package core

import (
	"regexp"
	"strings"
)

var fencedObject = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON narrows an LLM reply down to the text most likely to be a single
// JSON object. A fenced block wins, then the span from the first '{' to the
// last '}', then the input itself. It never validates what it returns.
func ExtractJSON(text string) string {
	if m := fencedObject.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
