package llm

import (
	"encoding/json"
	"strings"

	"github.com/scoutgraph/scout/errors"
)

// StripCodeFences removes markdown code fence markers from model output.
// Models routinely wrap JSON answers in ```json fences even when asked
// not to, so every structured response goes through this before decoding.
func StripCodeFences(raw string) string {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// DecodeJSON strips code fences from raw model output and unmarshals the
// remainder into v. Malformed output is reported as ErrBadModelOutput so
// callers can map it to a consistent failure mode.
func DecodeJSON(raw string, v any) error {
	cleaned := StripCodeFences(raw)
	if cleaned == "" {
		return errors.Wrap(errors.ErrBadModelOutput, "empty model output")
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return errors.Wrapf(errors.ErrBadModelOutput, "decode model output: %v", err)
	}
	return nil
}
