// Package correlate matches tool results back to the tool invocations that produced them.
package correlate

import "sessionview/internal/record"

// FindOriginatingToolUse scans records from newest to oldest and returns the
// first tool_use item inside an assistant record whose id equals toolUseID.
// The boolean is false when no invocation matches.
func FindOriginatingToolUse(toolUseID string, records []record.Record) (record.ContentItem, bool) {
	if toolUseID == "" {
		return record.ContentItem{}, false
	}
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if rec.Type != record.KindAssistant {
			continue
		}
		items := rec.Items()
		for j := len(items) - 1; j >= 0; j-- {
			if items[j].Type == record.ItemToolUse && items[j].ID == toolUseID {
				return items[j], true
			}
		}
	}
	return record.ContentItem{}, false
}

// Index maps tool_use ids to their invocation. It is built once per load and
// answers the same question as FindOriginatingToolUse in constant time.
type Index struct {
	byID map[string]record.ContentItem
}

// NewIndex builds an index over records. When an id is reused, the most
// recent invocation wins.
func NewIndex(records []record.Record) *Index {
	idx := &Index{byID: make(map[string]record.ContentItem)}
	for _, rec := range records {
		if rec.Type != record.KindAssistant {
			continue
		}
		for _, item := range rec.Items() {
			if item.Type == record.ItemToolUse && item.ID != "" {
				idx.byID[item.ID] = item
			}
		}
	}
	return idx
}

// Lookup returns the invocation for toolUseID, if any.
func (idx *Index) Lookup(toolUseID string) (record.ContentItem, bool) {
	if idx == nil || toolUseID == "" {
		return record.ContentItem{}, false
	}
	item, ok := idx.byID[toolUseID]
	return item, ok
}

// Len returns the number of indexed invocations.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.byID)
}

// Scan answers lookups with a reverse linear scan over the records it holds.
type Scan []record.Record

// Lookup implements the same contract as (*Index).Lookup.
func (s Scan) Lookup(toolUseID string) (record.ContentItem, bool) {
	return FindOriginatingToolUse(toolUseID, s)
}
