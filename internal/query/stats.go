package query

import (
	"sessionview/internal/classify"
	"sessionview/internal/record"
)

// Stats counts records by their declared "type" field.
//
// Tool results are declared as "user" records, so they are counted under
// User here even though Categorize puts them under tool or failed-tool.
// CountCategories gives the counts that line up with the category filter.
type Stats struct {
	Total     int `json:"total"`
	Assistant int `json:"assistant"`
	System    int `json:"system"`
	Tool      int `json:"tool"`
	User      int `json:"user"`
}

// ComputeStats counts records by declared kind. Unrecognised kinds only count
// towards Total.
func ComputeStats(records []record.Record) Stats {
	stats := Stats{Total: len(records)}
	for _, rec := range records {
		switch rec.Type {
		case record.KindAssistant:
			stats.Assistant++
		case record.KindSystem:
			stats.System++
		case record.KindTool:
			stats.Tool++
		case record.KindUser:
			stats.User++
		}
	}
	return stats
}

// CategoryCounts maps each category to its number of records.
type CategoryCounts map[classify.Category]int

// CountCategories counts records by derived category. Every category is
// present in the result, with zero when no record falls in it.
func CountCategories(records []record.Record) CategoryCounts {
	counts := make(CategoryCounts, len(classify.Categories()))
	for _, c := range classify.Categories() {
		counts[c] = 0
	}
	for _, rec := range records {
		counts[classify.Categorize(rec)]++
	}
	return counts
}
