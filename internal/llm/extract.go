package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedOutput means no JSON object could be recovered from model text.
var ErrMalformedOutput = errors.New("malformed model output")

var jsonFenceRegex = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ExtractJSON recovers the JSON object embedded in raw model output and
// decodes it into v.
//
// If the text has a ```json fence, the fence interior is searched first.
// The candidate is always the span from the first '{' to the last '}'.
// When the fenced candidate does not parse, the whole text is scanned the
// same way. Text without braces never parses.
func ExtractJSON(raw string, v any) error {
	var candidates []string
	if m := jsonFenceRegex.FindStringSubmatch(raw); m != nil {
		if c, ok := braceSpan(m[1]); ok {
			candidates = append(candidates, c)
		}
	}
	if c, ok := braceSpan(raw); ok && (len(candidates) == 0 || candidates[0] != c) {
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("%w: no JSON object found", ErrMalformedOutput)
	}

	var lastErr error
	for _, c := range candidates {
		if err := decodeObject(c, v); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: %v", ErrMalformedOutput, lastErr)
}

func braceSpan(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// decodeObject rejects candidates that are not JSON objects before decoding
// into v.
func decodeObject(c string, v any) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(c), &obj); err != nil {
		return err
	}
	return json.Unmarshal([]byte(c), v)
}
