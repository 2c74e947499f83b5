// internal/llmutil/parser.go
package llmutil

import (
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// Backticks are written as \x60 since raw strings cannot hold them.

	// jsonObjectRegex extracts a JSON object wrapped in a markdown fence.
	jsonObjectRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")
	// jsonArrayRegex extracts a JSON array wrapped in a markdown fence.
	jsonArrayRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*(\\[.*\\])\\s*\x60\x60\x60")

	// codeBlockRegex extracts fenced content under any language tag (python, js, html, ...).
	codeBlockRegex = regexp.MustCompile("(?s)\x60\x60\x60[a-zA-Z0-9_+-]*[^\\S\\n]*\\n?(.*?)\\s*\x60\x60\x60")
)

// ParseJSONResponse decodes a model response or document body into T, tolerating
// markdown fences and conversational text around the JSON payload.
func ParseJSONResponse[T any](response string) (*T, error) {
	response = strings.TrimSpace(response)
	payload := response

	isObject := strings.Contains(response, "{")
	isArray := strings.Contains(response, "[")

	switch {
	case strings.HasPrefix(response, "```"):
		var matches []string
		if isObject {
			matches = jsonObjectRegex.FindStringSubmatch(response)
		}
		if len(matches) <= 1 && isArray {
			matches = jsonArrayRegex.FindStringSubmatch(response)
		}
		if len(matches) > 1 {
			payload = matches[1]
		}
	case (isObject || isArray) && !strings.HasPrefix(response, "{") && !strings.HasPrefix(response, "["):
		if start, end, ok := span(response, "{", "}"); ok && isObject {
			payload = response[start:end]
		} else if start, end, ok := span(response, "[", "]"); ok && isArray {
			payload = response[start:end]
		}
	}

	var result T
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON payload: %w. Extracted JSON (truncated): %s", err, Truncate(payload, 500))
	}
	return &result, nil
}

// span returns the outermost open/close delimiters in s.
func span(s, open, close string) (int, int, bool) {
	fb := strings.Index(s, open)
	lb := strings.LastIndex(s, close)
	if fb == -1 || lb == -1 || lb <= fb {
		return 0, 0, false
	}
	return fb, lb + 1, true
}

// CleanCodeOutput strips a surrounding markdown fence from generated file content.
// Content without a leading fence is returned trimmed and otherwise untouched.
func CleanCodeOutput(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	if matches := codeBlockRegex.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	// Unterminated fence: drop the opening line.
	if nl := strings.IndexByte(content, '\n'); nl != -1 {
		return strings.TrimSpace(content[nl+1:])
	}
	return ""
}

// Truncate shortens s to maxLen bytes, appending "..." when anything was cut.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
