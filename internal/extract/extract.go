// Package extract turns session records into renderer-agnostic content descriptions.
package extract

import (
	"fmt"
	"strings"

	"sessionview/internal/classify"
	"sessionview/internal/record"
)

// PreviewLines is the number of tool output lines always shown.
const PreviewLines = 2

// Resolver finds the tool_use item a tool result refers to.
// Both *correlate.Index and correlate.Scan satisfy it.
type Resolver interface {
	Lookup(toolUseID string) (record.ContentItem, bool)
}

// Kind identifies which part of Content is populated.
type Kind string

const (
	KindInit       Kind = "init"
	KindResult     Kind = "result"
	KindMessage    Kind = "message"
	KindToolOutput Kind = "tool_output"
	KindRaw        Kind = "raw"
)

// Content describes what to show for one record.
type Content struct {
	Category classify.Category `json:"category"`
	Kind     Kind              `json:"kind"`

	Init    *InitSummary   `json:"init,omitempty"`
	Result  *ResultSummary `json:"result,omitempty"`
	Blocks  []Block        `json:"blocks,omitempty"`
	Outputs []ToolOutput   `json:"outputs,omitempty"`

	// Raw fallback
	JSON            string `json:"json,omitempty"`
	HighlightedJSON string `json:"highlighted_json,omitempty"`
}

// InitSummary is the session metadata from a system/init record.
type InitSummary struct {
	CWD            string             `json:"cwd"`
	Model          string             `json:"model"`
	PermissionMode string             `json:"permission_mode"`
	Tools          []string           `json:"tools"`
	MCPServers     []record.MCPServer `json:"mcp_servers"`
}

// ResultSummary is the end-of-session summary from a result record.
type ResultSummary struct {
	Duration     string `json:"duration"` // seconds, one decimal
	Cost         string `json:"cost"`     // four decimals
	Turns        int    `json:"turns"`
	InputTokens  *int   `json:"input_tokens,omitempty"`
	OutputTokens *int   `json:"output_tokens,omitempty"`
	Text         string `json:"text"`
	HTML         string `json:"html"`
	IsError      bool   `json:"is_error"`
}

// BlockKind identifies a message block.
type BlockKind string

const (
	BlockText     BlockKind = "text"
	BlockToolUse  BlockKind = "tool_use"
	BlockThinking BlockKind = "thinking"
)

// Block is one rendered item of an assistant or user message.
type Block struct {
	Kind BlockKind `json:"kind"`

	// text and thinking
	Text      string `json:"text,omitempty"`
	HTML      string `json:"html,omitempty"`
	Label     string `json:"label,omitempty"`
	Collapsed bool   `json:"collapsed,omitempty"`

	// tool_use
	ToolID   string `json:"tool_id,omitempty"`
	ToolName string `json:"tool_name,omitempty"`
	Input    string `json:"input,omitempty"`
}

// ToolCall is the invocation a tool result answers.
type ToolCall struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Input string `json:"input"`
}

// ToolOutput is one tool result split into preview and hidden lines.
type ToolOutput struct {
	ToolUseID    string    `json:"tool_use_id,omitempty"`
	Output       string    `json:"output"`
	IsError      bool      `json:"is_error"`
	Preview      []string  `json:"preview"`
	Hidden       []string  `json:"hidden,omitempty"`
	ToggleLabel  string    `json:"toggle_label,omitempty"`
	OriginalCall *ToolCall `json:"original_call,omitempty"`
}

// HiddenCount returns the number of lines behind the expand toggle.
func (o ToolOutput) HiddenCount() int {
	return len(o.Hidden)
}

// Lines returns every output line, preview first.
func (o ToolOutput) Lines() []string {
	lines := make([]string, 0, len(o.Preview)+len(o.Hidden))
	lines = append(lines, o.Preview...)
	return append(lines, o.Hidden...)
}

// Extract builds the content description for rec. It never fails; records
// that do not fit their category are described as raw JSON.
func Extract(rec record.Record, resolver Resolver) Content {
	category := classify.Categorize(rec)

	switch category {
	case classify.System:
		switch {
		case rec.Init != nil:
			return Content{Category: category, Kind: KindInit, Init: initSummary(rec.Init)}
		case rec.Result != nil:
			return Content{Category: category, Kind: KindResult, Result: resultSummary(rec.Result)}
		}
	case classify.Assistant:
		if rec.Message != nil {
			return Content{Category: category, Kind: KindMessage, Blocks: assistantBlocks(rec.Items())}
		}
	case classify.Tool, classify.FailedTool:
		if results := rec.ToolResults(); len(results) > 0 {
			outputs := make([]ToolOutput, 0, len(results))
			for _, item := range results {
				outputs = append(outputs, toolOutput(item, resolver))
			}
			return Content{Category: category, Kind: KindToolOutput, Outputs: outputs}
		}
	case classify.User:
		if rec.Message != nil {
			return Content{Category: category, Kind: KindMessage, Blocks: textBlocks(rec.Items())}
		}
	}

	return rawContent(category, rec)
}

func initSummary(meta *record.SessionInit) *InitSummary {
	return &InitSummary{
		CWD:            meta.CWD,
		Model:          meta.Model,
		PermissionMode: meta.PermissionMode,
		Tools:          meta.Tools,
		MCPServers:     meta.MCPServers,
	}
}

func resultSummary(result *record.SessionResult) *ResultSummary {
	return &ResultSummary{
		Duration:     fmt.Sprintf("%.1f", result.DurationMS/1000),
		Cost:         fmt.Sprintf("%.4f", result.CostUSD),
		Turns:        result.NumTurns,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		Text:         result.Text,
		HTML:         FormatText(result.Text),
		IsError:      result.IsError,
	}
}

func assistantBlocks(items []record.ContentItem) []Block {
	blocks := make([]Block, 0, len(items))
	for _, item := range items {
		switch item.Type {
		case record.ItemText:
			blocks = append(blocks, textBlock(item.Text))
		case record.ItemToolUse:
			blocks = append(blocks, Block{
				Kind:     BlockToolUse,
				ToolID:   item.ID,
				ToolName: item.Name,
				Input:    prettyInput(item),
			})
		case record.ItemThinking:
			blocks = append(blocks, Block{
				Kind:      BlockThinking,
				Text:      item.Text,
				HTML:      FormatText(item.Text),
				Label:     "Thinking",
				Collapsed: true,
			})
		}
	}
	return blocks
}

func textBlocks(items []record.ContentItem) []Block {
	blocks := make([]Block, 0, len(items))
	for _, item := range items {
		if item.Type == record.ItemText {
			blocks = append(blocks, textBlock(item.Text))
		}
	}
	return blocks
}

func textBlock(text string) Block {
	return Block{Kind: BlockText, Text: text, HTML: FormatText(text)}
}

func toolOutput(item record.ContentItem, resolver Resolver) ToolOutput {
	output := item.OutputText()
	out := ToolOutput{
		ToolUseID: item.ToolUseID,
		Output:    output,
		IsError:   classify.IsFailedResult(item),
	}

	lines := strings.Split(output, "\n")
	if len(lines) > PreviewLines {
		out.Preview = lines[:PreviewLines]
		out.Hidden = lines[PreviewLines:]
		out.ToggleLabel = toggleLabel(len(out.Hidden))
	} else {
		out.Preview = lines
	}

	if out.IsError && item.ToolUseID != "" && resolver != nil {
		if call, ok := resolver.Lookup(item.ToolUseID); ok {
			out.OriginalCall = &ToolCall{
				ID:    call.ID,
				Name:  call.Name,
				Input: prettyInput(call),
			}
		}
	}
	return out
}

func toggleLabel(hidden int) string {
	if hidden == 1 {
		return "Show 1 more line"
	}
	return fmt.Sprintf("Show %d more lines", hidden)
}

func prettyInput(item record.ContentItem) string {
	if len(item.Input) == 0 {
		return "{}"
	}
	return record.Pretty(item.Input)
}

func rawContent(category classify.Category, rec record.Record) Content {
	pretty := record.Pretty(rec.Raw)
	return Content{
		Category:        category,
		Kind:            KindRaw,
		JSON:            pretty,
		HighlightedJSON: HighlightJSON(pretty),
	}
}
