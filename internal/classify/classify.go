// Package classify derives the semantic category of a session record.
package classify

import (
	"fmt"
	"strings"

	"sessionview/internal/record"
)

// Category is the derived classification of a record used for filtering and grouping.
type Category string

const (
	System     Category = "system"
	Assistant  Category = "assistant"
	Tool       Category = "tool"
	FailedTool Category = "failed-tool"
	User       Category = "user"
)

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{System, Assistant, Tool, FailedTool, User}
}

// ParseCategory converts a user-supplied name into a Category.
func ParseCategory(name string) (Category, error) {
	token := strings.ToLower(strings.TrimSpace(name))
	for _, c := range Categories() {
		if string(c) == token {
			return c, nil
		}
	}
	switch token {
	case "failed", "failed_tool", "error":
		return FailedTool, nil
	}
	return "", fmt.Errorf("unknown category %q", name)
}

// Categorize maps a record to exactly one category.
//
// The declared kind is not enough on its own: tool results arrive as "user"
// records and are told apart by their content.
func Categorize(rec record.Record) Category {
	switch rec.Type {
	case record.KindSystem:
		return System
	case record.KindAssistant:
		return Assistant
	case record.KindTool:
		return Tool
	case record.KindUser:
		results := rec.ToolResults()
		if len(results) == 0 {
			return User
		}
		for _, item := range results {
			if IsFailedResult(item) {
				return FailedTool
			}
		}
		return Tool
	default:
		return System
	}
}

const errorPrefix = "error:"

// IsFailedResult reports whether a tool_result item represents a failure:
// an explicit is_error flag, a non-null error value, or output starting with
// "error:" in any case.
func IsFailedResult(item record.ContentItem) bool {
	if item.IsError || item.HasError() {
		return true
	}
	return hasErrorPrefix(item.OutputText())
}

func hasErrorPrefix(output string) bool {
	if len(output) < len(errorPrefix) {
		return false
	}
	return strings.EqualFold(output[:len(errorPrefix)], errorPrefix)
}
