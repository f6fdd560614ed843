// Package ai provides response cleaning utilities for handling malformed LLM responses.
package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ResponseCleaner handles cleaning and sanitizing LLM responses.
//
// Repairs are deliberately conservative: they only touch constructs that
// cannot appear in valid JSON (fences, trailing commas, raw control
// characters, doubled quotes). Chinese prose inside string values regularly
// contains apostrophes and asterisks, so blanket character substitution is
// off the table.
type ResponseCleaner struct{}

// NewResponseCleaner creates a new response cleaner.
func NewResponseCleaner() *ResponseCleaner {
	return &ResponseCleaner{}
}

// CleanJSONResponse cleans and sanitizes a JSON response from LLM models.
func (rc *ResponseCleaner) CleanJSONResponse(response string) (string, error) {
	response = rc.removeMarkdownBlocks(response)
	response = rc.extractJSON(response)
	response = rc.validateAndFixJSON(response)
	return response, nil
}

// removeMarkdownBlocks removes markdown code fences from the response.
func (rc *ResponseCleaner) removeMarkdownBlocks(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

// extractJSON extracts the first top-level JSON object from mixed content.
// Braces inside string literals are skipped so prose like "{加分项}" in a
// value does not break the match.
func (rc *ResponseCleaner) extractJSON(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return response
	}

	braceCount := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				braceCount++
			}
		case '}':
			if !inString {
				braceCount--
				if braceCount == 0 {
					return response[start : i+1]
				}
			}
		}
	}
	return response[start:]
}

// validateAndFixJSON returns the input untouched when it already parses,
// otherwise applies the conservative repairs.
func (rc *ResponseCleaner) validateAndFixJSON(response string) string {
	var temp interface{}
	if err := json.Unmarshal([]byte(response), &temp); err == nil {
		return response
	}
	return rc.fixCommonJSONIssues(response)
}

var (
	trailingCommaRe  = regexp.MustCompile(`,(\s*[}\]])`)
	doubledQuotesRe  = regexp.MustCompile(`""([^"\n]*)""`)
	controlCharsRe   = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f]")
	bareNewlineInStr = strings.NewReplacer("\r\n", "\\n", "\r", "\\n")
)

// fixCommonJSONIssues repairs the malformations the provider models actually
// emit. Each fix is safe on already-valid JSON.
func (rc *ResponseCleaner) fixCommonJSONIssues(response string) string {
	// Trailing commas before } or ]
	response = trailingCommaRe.ReplaceAllString(response, "$1")

	// Doubled quotes around a run of non-quote characters, e.g. ""标准""
	response = doubledQuotesRe.ReplaceAllString(response, `"$1"`)

	// Raw control characters (models sometimes leak them into strings)
	response = controlCharsRe.ReplaceAllString(response, "")
	response = bareNewlineInStr.Replace(response)

	return response
}

// IsValidJSON checks if a string is valid JSON.
func (rc *ResponseCleaner) IsValidJSON(response string) bool {
	var temp interface{}
	return json.Unmarshal([]byte(response), &temp) == nil
}

// CleanAndValidateJSON cleans and validates a JSON response.
func (rc *ResponseCleaner) CleanAndValidateJSON(response string) (string, error) {
	cleaned, err := rc.CleanJSONResponse(response)
	if err != nil {
		return "", err
	}

	if !rc.IsValidJSON(cleaned) {
		return "", &JSONValidationError{
			Original: response,
			Cleaned:  cleaned,
			Message:  "cleaned response is still not valid JSON",
		}
	}

	return cleaned, nil
}

// JSONValidationError represents a JSON validation error.
type JSONValidationError struct {
	Original string
	Cleaned  string
	Message  string
}

func (e *JSONValidationError) Error() string {
	return e.Message
}
