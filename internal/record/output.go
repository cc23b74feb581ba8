package record

import (
	"bytes"
	"encoding/json"
	"strings"
)

// OutputText stringifies the content of a tool_result item.
//
// A sequence of fragments is joined with newlines, using each fragment's text
// or its compact JSON when it has none. A string is returned verbatim. Any
// other value is pretty-printed JSON. Absent content yields "".
func (c ContentItem) OutputText() string {
	if len(c.Content) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(c.Content, &asString); err == nil && !isNull(c.Content) {
		return asString
	}

	var fragments []json.RawMessage
	if err := json.Unmarshal(c.Content, &fragments); err == nil && fragments != nil {
		parts := make([]string, 0, len(fragments))
		for _, fragment := range fragments {
			parts = append(parts, fragmentText(fragment))
		}
		return strings.Join(parts, "\n")
	}

	return Pretty(c.Content)
}

func fragmentText(raw json.RawMessage) string {
	if fields, ok := objectFields(raw); ok {
		if text := stringField(fields, "text"); text != "" {
			return text
		}
	}
	return Compact(raw)
}

// Pretty indents raw JSON with two spaces, preserving key order. Input that is
// not valid JSON is returned unchanged.
func Pretty(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(raw), "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// Compact returns the single-line JSON form of raw, preserving key order.
func Compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
