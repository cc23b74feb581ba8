// Package record provides the typed schema for Claude Code session log records.
//
// Records are decoded once at the boundary. Every optional field is defaulted,
// so packages downstream never re-check presence on raw JSON.
package record

import (
	"encoding/json"
	"time"
)

// Kind represents the declared top-level "type" field of a record.
type Kind string

const (
	KindSystem    Kind = "system"
	KindAssistant Kind = "assistant"
	KindUser      Kind = "user"
	KindTool      Kind = "tool"
	KindResult    Kind = "result"
)

// ItemType represents the "type" field of a message content item.
type ItemType string

const (
	ItemText       ItemType = "text"
	ItemToolUse    ItemType = "tool_use"
	ItemToolResult ItemType = "tool_result"
	ItemThinking   ItemType = "thinking"
)

// SubtypeInit marks the system record emitted when a session starts.
const SubtypeInit = "init"

// Record is one entry of a session log.
type Record struct {
	Type    Kind
	Subtype string

	// Common metadata, empty when absent.
	UUID      string
	SessionID string
	CWD       string
	Timestamp time.Time

	Message *Message       // nil when the record carries no message object
	Init    *SessionInit   // system/init records only
	Result  *SessionResult // result records only

	Raw json.RawMessage // original bytes
}

// Message is the nested "message" object of user and assistant records.
type Message struct {
	ID      string
	Role    string
	Model   string
	Content []ContentItem
}

// ContentItem is one element of a message content sequence.
// Which fields are meaningful depends on Type.
type ContentItem struct {
	Type ItemType

	// text and thinking
	Text string

	// tool_use
	ID    string
	Name  string
	Input json.RawMessage

	// tool_result
	ToolUseID  string
	Content    json.RawMessage // nil when absent
	IsError    bool            // true only for a literal JSON true
	ErrorValue json.RawMessage // nil when absent or null

	Raw json.RawMessage
}

// HasError reports whether a tool result carries a non-null "error" value.
func (c ContentItem) HasError() bool {
	return len(c.ErrorValue) > 0
}

// SessionInit holds the metadata carried by a system/init record.
type SessionInit struct {
	CWD            string
	Model          string
	PermissionMode string
	Tools          []string
	MCPServers     []MCPServer
}

// MCPServer is a configured MCP server and its connection status.
type MCPServer struct {
	Name   string
	Status string
}

// SessionResult holds the summary carried by a result record.
type SessionResult struct {
	DurationMS   float64
	CostUSD      float64
	NumTurns     int
	InputTokens  *int
	OutputTokens *int
	Text         string
	IsError      bool
}

// IsInit reports whether the record is the session init record.
func (r Record) IsInit() bool {
	return r.Type == KindSystem && r.Subtype == SubtypeInit
}

// IsResult reports whether the record is a session result record.
func (r Record) IsResult() bool {
	return r.Type == KindResult || (r.Type == KindSystem && r.Subtype == string(KindResult))
}

// Items returns the message content sequence, or nil when there is no message.
func (r Record) Items() []ContentItem {
	if r.Message == nil {
		return nil
	}
	return r.Message.Content
}

// ToolResults returns the tool_result items of the record in order.
func (r Record) ToolResults() []ContentItem {
	var out []ContentItem
	for _, item := range r.Items() {
		if item.Type == ItemToolResult {
			out = append(out, item)
		}
	}
	return out
}

// HasToolResult reports whether any content item is a tool_result.
func (r Record) HasToolResult() bool {
	for _, item := range r.Items() {
		if item.Type == ItemToolResult {
			return true
		}
	}
	return false
}
