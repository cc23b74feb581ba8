package query

import (
	"strings"

	"sessionview/internal/classify"
	"sessionview/internal/correlate"
	"sessionview/internal/extract"
	"sessionview/internal/record"
)

// Session holds one loaded record set and the current query state.
//
// Loading replaces the whole set. Everything else is derived: the filtered
// view, the stats and the correlation index are rebuilt from the records and
// the State. A Session is not safe for concurrent use.
type Session struct {
	records []record.Record
	search  []string // SearchText per record
	index   *correlate.Index
	stats   Stats
	counts  CategoryCounts

	state State
	view  []record.Record
}

// NewSession returns an empty session.
func NewSession() *Session {
	s := &Session{}
	s.Load(nil)
	return s
}

// Load replaces the record set and keeps the current State.
func (s *Session) Load(records []record.Record) {
	s.records = records
	s.search = make([]string, len(records))
	for i, rec := range records {
		s.search[i] = SearchText(rec)
	}
	s.index = correlate.NewIndex(records)
	s.stats = ComputeStats(records)
	s.counts = CountCategories(records)
	s.refresh()
}

// LoadText parses a JSON array and replaces the record set. On error the
// previously loaded set is left untouched.
func (s *Session) LoadText(data []byte) error {
	records, err := record.Parse(data)
	if err != nil {
		return err
	}
	s.Load(records)
	return nil
}

// State returns the current query state.
func (s *Session) State() State {
	return s.state
}

// SetState replaces the query state.
func (s *Session) SetState(state State) {
	s.state = state
	s.refresh()
}

// SetCategoryFilter selects a category by name, or every record for "all".
func (s *Session) SetCategoryFilter(name string) error {
	if strings.EqualFold(strings.TrimSpace(name), All) || strings.TrimSpace(name) == "" {
		s.SetState(s.state.WithFilter(All))
		return nil
	}
	category, err := classify.ParseCategory(name)
	if err != nil {
		return err
	}
	s.SetState(s.state.WithFilter(category))
	return nil
}

// SetSearchTerm sets the free-text search term.
func (s *Session) SetSearchTerm(term string) {
	s.SetState(s.state.WithSearch(term))
}

// FilteredRecords returns the records matching the current state in order.
func (s *Session) FilteredRecords() []record.Record {
	return s.view
}

// Records returns the full record set.
func (s *Session) Records() []record.Record {
	return s.records
}

// Stats returns declared-kind counts over the full record set.
func (s *Session) Stats() Stats {
	return s.stats
}

// CategoryCounts returns derived-category counts over the full record set.
func (s *Session) CategoryCounts() CategoryCounts {
	return s.counts
}

// Index returns the tool_use index for the loaded set.
func (s *Session) Index() *correlate.Index {
	return s.index
}

// Extract describes rec, correlating tool results against the full set.
func (s *Session) Extract(rec record.Record) extract.Content {
	return extract.Extract(rec, s.index)
}

func (s *Session) refresh() {
	term := strings.ToLower(s.state.search)
	view := make([]record.Record, 0, len(s.records))
	for i, rec := range s.records {
		if s.state.filter != "" && classify.Categorize(rec) != s.state.filter {
			continue
		}
		if term != "" && !strings.Contains(s.search[i], term) {
			continue
		}
		view = append(view, rec)
	}
	s.view = view
}
