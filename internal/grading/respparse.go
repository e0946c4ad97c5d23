package grading

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/takeda-juku/tensaku/internal/common"
)

// ExtractJSON recovers the JSON object from a reply that may be wrapped
// in a fenced code block or surrounded by prose: strip a json-labeled
// fence if present, else any fence, then slice from the first '{' to the
// last '}'.
func ExtractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	} else if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+len("```"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	s = strings.TrimSpace(s)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return "", fmt.Errorf("%w: no JSON object in reply", common.ErrMalformedResponse)
	}
	return s[start : end+1], nil
}

// ParseResult extracts, schema-validates, and unmarshals a grading
// reply. Any recovery failure is a MalformedResponse so the retry loop
// treats it as retryable.
func ParseResult(raw string) (*Result, error) {
	body, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := validateResultJSON([]byte(body)); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}
	var res Result
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}
	return &res, nil
}
