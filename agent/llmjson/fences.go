// Package llmjson cleans up the JSON answers chat models return: code
// fences around the payload and amounts written as arithmetic.
package llmjson

import "strings"

// StripFences removes a surrounding markdown code fence, with or without a
// language tag, that models sometimes put around JSON answers.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
