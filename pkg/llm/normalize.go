package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencedJSONBlock = regexp.MustCompile("(?s)```(?i:json)\\s*(\\{.*?\\})\\s*```")
	sentencesObject = regexp.MustCompile(`(\{[^{}]*"english_sentences"[^{}]*\})`)
)

// ExtractJSON pulls the JSON object carrying "english_sentences" out of free-form
// model output. Strategies run in order and the first valid candidate wins:
//
//  1. fenced code blocks labelled json
//  2. a brace-delimited object containing the literal key english_sentences
//
// When neither yields valid JSON the trimmed input is returned unchanged and the
// caller applies its own fallback.
func ExtractJSON(text string) string {
	for _, m := range fencedJSONBlock.FindAllStringSubmatch(text, -1) {
		if json.Valid([]byte(m[1])) {
			return m[1]
		}
	}
	for _, m := range sentencesObject.FindAllStringSubmatch(text, -1) {
		if json.Valid([]byte(m[1])) {
			return m[1]
		}
	}
	return strings.TrimSpace(text)
}
