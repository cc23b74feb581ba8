package format

import (
	"fmt"
	"strings"
	"time"

	"sessionview/internal/extract"
	"sessionview/internal/record"
)

// RenderOptions controls plain-text rendering of record content.
type RenderOptions struct {
	Wrap   int  // wrap prose at this width; 0 disables wrapping
	Expand bool // show hidden tool output lines and thinking text
}

// Header returns the one-line label printed above a record.
func Header(rec record.Record, content extract.Content) string {
	ts := "-"
	if !rec.Timestamp.IsZero() {
		ts = rec.Timestamp.Format(time.RFC3339)
	}
	return fmt.Sprintf("[%s][%s]", ts, content.Category)
}

// RenderContentLines returns the formatted body lines for one record.
func RenderContentLines(content extract.Content, opts RenderOptions) []string {
	switch content.Kind {
	case extract.KindInit:
		return initLines(content.Init)
	case extract.KindResult:
		return resultLines(content.Result, opts)
	case extract.KindMessage:
		return blockLines(content.Blocks, opts)
	case extract.KindToolOutput:
		var lines []string
		for _, out := range content.Outputs {
			lines = append(lines, toolOutputLines(out, opts)...)
		}
		return lines
	default:
		return splitLines(content.JSON)
	}
}

func initLines(meta *extract.InitSummary) []string {
	lines := []string{"Session started"}
	if meta.CWD != "" {
		lines = append(lines, "cwd: "+meta.CWD)
	}
	if meta.Model != "" {
		lines = append(lines, "model: "+meta.Model)
	}
	if meta.PermissionMode != "" {
		lines = append(lines, "permission mode: "+meta.PermissionMode)
	}
	if len(meta.Tools) > 0 {
		lines = append(lines, "tools: "+strings.Join(meta.Tools, ", "))
	}
	if len(meta.MCPServers) > 0 {
		servers := make([]string, 0, len(meta.MCPServers))
		for _, srv := range meta.MCPServers {
			servers = append(servers, fmt.Sprintf("%s (%s)", srv.Name, srv.Status))
		}
		lines = append(lines, "mcp servers: "+strings.Join(servers, ", "))
	}
	return lines
}

func resultLines(result *extract.ResultSummary, opts RenderOptions) []string {
	title := "Session finished"
	if result.IsError {
		title = "Session failed"
	}
	lines := []string{
		title,
		fmt.Sprintf("duration: %ss", result.Duration),
		fmt.Sprintf("cost: $%s", result.Cost),
		fmt.Sprintf("turns: %d", result.Turns),
	}
	if result.InputTokens != nil || result.OutputTokens != nil {
		lines = append(lines, fmt.Sprintf("tokens: in %s / out %s", optionalInt(result.InputTokens), optionalInt(result.OutputTokens)))
	}
	if text := strings.TrimSpace(result.Text); text != "" {
		lines = append(lines, splitLines(wrapBody(text, opts.Wrap))...)
	}
	return lines
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func blockLines(blocks []extract.Block, opts RenderOptions) []string {
	var lines []string
	for _, block := range blocks {
		switch block.Kind {
		case extract.BlockText:
			lines = append(lines, splitLines(wrapBody(strings.TrimSpace(block.Text), opts.Wrap))...)
		case extract.BlockToolUse:
			lines = append(lines, fmt.Sprintf("Tool: %s (ID: %s)", block.ToolName, block.ToolID))
			lines = append(lines, "Input:")
			lines = append(lines, indent(splitLines(block.Input))...)
		case extract.BlockThinking:
			if block.Collapsed && !opts.Expand {
				lines = append(lines, fmt.Sprintf("[%s] (collapsed)", block.Label))
				continue
			}
			lines = append(lines, fmt.Sprintf("[%s]", block.Label))
			lines = append(lines, indent(splitLines(wrapBody(strings.TrimSpace(block.Text), opts.Wrap)))...)
		}
	}
	return lines
}

func toolOutputLines(out extract.ToolOutput, opts RenderOptions) []string {
	title := "Tool Result"
	if out.ToolUseID != "" {
		title = fmt.Sprintf("Tool Result (ID: %s)", out.ToolUseID)
	}
	if out.IsError {
		title += " [error]"
	}

	lines := []string{title}
	lines = append(lines, indent(out.Preview)...)
	if out.HiddenCount() > 0 {
		if opts.Expand {
			lines = append(lines, indent(out.Hidden)...)
		} else {
			lines = append(lines, "  … "+out.ToggleLabel)
		}
	}

	if call := out.OriginalCall; call != nil {
		lines = append(lines, fmt.Sprintf("Original call: %s (ID: %s)", call.Name, call.ID))
		lines = append(lines, indent(splitLines(call.Input))...)
	}
	return lines
}

func indent(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = "  " + line
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func wrapBody(text string, width int) string {
	if width <= 0 {
		return text
	}

	paragraphs := strings.Split(text, "\n")
	for i, p := range paragraphs {
		paragraphs[i] = wrapParagraph(p, width)
	}
	return strings.Join(paragraphs, "\n")
}

func wrapParagraph(text string, width int) string {
	if len(text) <= width {
		return text
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
		} else {
			current += " " + word
		}
	}
	lines = append(lines, current)

	return strings.Join(lines, "\n")
}
