// Package json provides JSON extraction utilities for parsing LLM responses.
//
// Models often wrap JSON in markdown fences or surround it with commentary.
// This package recovers the JSON value from such responses.
package json

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON finds and returns the JSON portion of a response string.
// It handles common LLM response patterns:
// 1. Pure JSON response - returns the full response
// 2. JSON wrapped in markdown code blocks (```json ... ```), anywhere in the text
// 3. JSON object or array embedded in text - outermost '{...}' or '[...]'
//
// Brace matching is positional (first opener, last closer), so unbalanced
// braces inside surrounding prose can defeat it.
func extractJSON(response string) (string, error) {
	response = stripMarkdownCodeBlocks(response)

	if json.Valid([]byte(response)) {
		return response, nil
	}

	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(response, pair[0])
		end := strings.LastIndex(response, pair[1])
		if start == -1 || end <= start {
			continue
		}
		candidate := response[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	preview := response
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("failed to extract valid JSON from response: %q", preview)
}

// stripMarkdownCodeBlocks returns the body of the first fenced code block,
// or the trimmed response when there is none.
func stripMarkdownCodeBlocks(response string) string {
	trimmed := strings.TrimSpace(response)

	open := strings.Index(trimmed, "```")
	if open == -1 {
		return trimmed
	}
	body := trimmed[open+3:]
	// Drop the info string (e.g. "json") up to the first newline.
	if nl := strings.IndexByte(body, '\n'); nl != -1 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	} else {
		body = strings.TrimPrefix(body, "json")
	}
	if end := strings.Index(body, "```"); end != -1 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// ExtractJSONFromResponse extracts and parses JSON from an LLM response.
// Returns the parsed value or an error if extraction fails.
func ExtractJSONFromResponse[T any](response string) (T, error) {
	var result T
	jsonStr, err := extractJSON(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

// ExtractJSON extracts the JSON portion from a response string.
// Returns the raw JSON string suitable for further processing.
func ExtractJSON(response string) (string, error) {
	return extractJSON(response)
}
