package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// Parse decodes a JSON array of records.
//
// Invalid JSON yields a *ParseError and a non-array top-level value yields a
// *ShapeError. Individual elements never fail: whatever shape they have is
// kept in Raw and decoded as far as it goes.
func Parse(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, &ShapeError{Got: "null"}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &ShapeError{Got: typeErr.Value}
		}
		parseErr := &ParseError{Err: err}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			parseErr.Offset = syntaxErr.Offset
		}
		return nil, parseErr
	}

	return FromRaw(items), nil
}

// FromRaw decodes already-split record values, such as lines of a JSONL file.
func FromRaw(items []json.RawMessage) []Record {
	records := make([]Record, 0, len(items))
	for _, item := range items {
		records = append(records, Decode(item))
	}
	return records
}

// Decode converts one raw value into a Record. It never fails; a value that is
// not a JSON object yields a Record with only Raw set.
func Decode(raw json.RawMessage) Record {
	rec := Record{Raw: append(json.RawMessage(nil), raw...)}

	fields, ok := objectFields(raw)
	if !ok {
		return rec
	}

	rec.Type = Kind(stringField(fields, "type"))
	rec.Subtype = stringField(fields, "subtype")
	rec.UUID = stringField(fields, "uuid")
	rec.SessionID = stringField(fields, "sessionId")
	if rec.SessionID == "" {
		rec.SessionID = stringField(fields, "session_id")
	}
	rec.CWD = stringField(fields, "cwd")
	if ts := stringField(fields, "timestamp"); ts != "" {
		if parsed, err := parseTimestamp(ts); err == nil {
			rec.Timestamp = parsed
		}
	}

	if msg, ok := fields["message"]; ok {
		rec.Message = decodeMessage(msg)
	}

	switch {
	case rec.IsInit():
		rec.Init = decodeInit(fields)
	case rec.IsResult():
		rec.Result = decodeResult(fields)
	}

	return rec
}

func decodeMessage(raw json.RawMessage) *Message {
	fields, ok := objectFields(raw)
	if !ok {
		return nil
	}
	return &Message{
		ID:      stringField(fields, "id"),
		Role:    stringField(fields, "role"),
		Model:   stringField(fields, "model"),
		Content: decodeContent(fields["content"]),
	}
}

func decodeContent(raw json.RawMessage) []ContentItem {
	if len(raw) == 0 || isNull(raw) {
		return nil
	}

	// Plain prompts are stored as a bare string.
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return []ContentItem{{Type: ItemText, Text: asString, Raw: raw}}
	}

	var array []json.RawMessage
	if err := json.Unmarshal(raw, &array); err != nil {
		return nil
	}

	items := make([]ContentItem, 0, len(array))
	for _, elem := range array {
		items = append(items, decodeItem(elem))
	}
	return items
}

func decodeItem(raw json.RawMessage) ContentItem {
	item := ContentItem{Raw: raw}
	fields, ok := objectFields(raw)
	if !ok {
		return item
	}

	item.Type = ItemType(stringField(fields, "type"))
	switch item.Type {
	case ItemThinking:
		item.Text = stringField(fields, "thinking")
		if item.Text == "" {
			item.Text = stringField(fields, "text")
		}
	default:
		item.Text = stringField(fields, "text")
	}
	item.ID = stringField(fields, "id")
	item.Name = stringField(fields, "name")
	item.Input = fields["input"]
	item.ToolUseID = stringField(fields, "tool_use_id")
	item.Content = fields["content"]
	item.IsError = isTrue(fields["is_error"])
	if errValue, ok := fields["error"]; ok && !isNull(errValue) {
		item.ErrorValue = errValue
	}
	return item
}

func decodeInit(fields map[string]json.RawMessage) *SessionInit {
	meta := &SessionInit{
		CWD:            stringField(fields, "cwd"),
		Model:          stringField(fields, "model"),
		PermissionMode: stringField(fields, "permissionMode"),
	}
	if meta.PermissionMode == "" {
		meta.PermissionMode = stringField(fields, "permission_mode")
	}

	var tools []json.RawMessage
	if err := json.Unmarshal(fields["tools"], &tools); err == nil {
		for _, t := range tools {
			var name string
			if err := json.Unmarshal(t, &name); err == nil {
				meta.Tools = append(meta.Tools, name)
			}
		}
	}

	var servers []json.RawMessage
	if err := json.Unmarshal(fields["mcp_servers"], &servers); err == nil {
		for _, s := range servers {
			serverFields, ok := objectFields(s)
			if !ok {
				continue
			}
			meta.MCPServers = append(meta.MCPServers, MCPServer{
				Name:   stringField(serverFields, "name"),
				Status: stringField(serverFields, "status"),
			})
		}
	}

	return meta
}

func decodeResult(fields map[string]json.RawMessage) *SessionResult {
	result := &SessionResult{
		DurationMS: numberField(fields, "duration_ms"),
		CostUSD:    numberField(fields, "total_cost_usd"),
		NumTurns:   int(numberField(fields, "num_turns")),
		Text:       stringField(fields, "result"),
		IsError:    isTrue(fields["is_error"]),
	}
	if result.CostUSD == 0 {
		result.CostUSD = numberField(fields, "cost_usd")
	}

	if usage, ok := objectFields(fields["usage"]); ok {
		result.InputTokens = intPointer(usage, "input_tokens")
		result.OutputTokens = intPointer(usage, "output_tokens")
	}
	return result
}

func objectFields(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return value
}

func numberField(fields map[string]json.RawMessage, key string) float64 {
	raw, ok := fields[key]
	if !ok {
		return 0
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0
	}
	return value
}

func intPointer(fields map[string]json.RawMessage, key string) *int {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil
	}
	n := int(value)
	return &n
}

func isTrue(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("true"))
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func parseTimestamp(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}
