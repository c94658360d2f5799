package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// MalformedOutputError reports an agent reply that could not be parsed as a
// JSON object. It is fatal: the pipeline aborts instead of retrying.
type MalformedOutputError struct {
	Reason string
	Raw    string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("llm: malformed agent output: %s", e.Reason)
}

// fencePattern matches a triple-backtick block with an optional language tag.
var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// StripCodeFence removes a surrounding markdown code fence if present and
// trims whitespace. Content without a fence passes through unchanged apart
// from trimming, so fence-wrap then strip is identity on the inner content.
func StripCodeFence(raw string) string {
	if match := fencePattern.FindStringSubmatch(raw); match != nil {
		return strings.TrimSpace(match[1])
	}
	return strings.TrimSpace(raw)
}

// DecodeObject strips an optional code fence and unmarshals the reply into
// out, which must be a pointer to a struct or map. Empty replies, replies
// that do not open with an object delimiter, and invalid JSON all yield a
// MalformedOutputError.
func DecodeObject(raw string, out any) error {
	cleaned := StripCodeFence(raw)
	if cleaned == "" {
		return &MalformedOutputError{Reason: "reply is empty", Raw: raw}
	}
	if !strings.HasPrefix(cleaned, "{") {
		return &MalformedOutputError{Reason: "reply does not start with an object delimiter", Raw: raw}
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return &MalformedOutputError{Reason: fmt.Sprintf("invalid JSON: %v", err), Raw: raw}
	}
	return nil
}

// StringOrDefault returns value unless it is blank, in which case fallback is
// used. Agent reply schemas fill missing keys with placeholders instead of
// trusting presence.
func StringOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
