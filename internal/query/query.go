// Package query filters session records by category and free-text search and
// computes aggregate counts.
package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"sessionview/internal/classify"
	"sessionview/internal/record"
)

// All is the category filter that matches every record.
const All = "all"

// State is an immutable filter and search selection. The zero value matches
// every record.
type State struct {
	filter classify.Category // empty means All
	search string
}

// NewState returns a State that matches every record.
func NewState() State {
	return State{}
}

// WithFilter returns a copy of s restricted to category. Passing All clears the filter.
func (s State) WithFilter(category classify.Category) State {
	if category == All {
		category = ""
	}
	s.filter = category
	return s
}

// WithSearch returns a copy of s with the given search term.
func (s State) WithSearch(term string) State {
	s.search = term
	return s
}

// Filter returns the active category, or All.
func (s State) Filter() classify.Category {
	if s.filter == "" {
		return All
	}
	return s.filter
}

// Search returns the active search term.
func (s State) Search() string {
	return s.search
}

// Matches reports whether rec passes both the category filter and the search term.
func Matches(rec record.Record, s State) bool {
	if s.filter != "" && classify.Categorize(rec) != s.filter {
		return false
	}
	if s.search == "" {
		return true
	}
	return strings.Contains(SearchText(rec), strings.ToLower(s.search))
}

// Apply returns the records that match s, in their original order.
func Apply(records []record.Record, s State) []record.Record {
	out := make([]record.Record, 0, len(records))
	for _, rec := range records {
		if Matches(rec, s) {
			out = append(out, rec)
		}
	}
	return out
}

// SearchText returns the lowercased single-line JSON form of the record that
// search terms are matched against. The record is re-serialized from its
// decoded tokens, so string escapes such as \u00e9 or \/ are resolved while
// key order is kept.
func SearchText(rec record.Record) string {
	text, err := serialize(rec.Raw)
	if err != nil {
		return strings.ToLower(string(rec.Raw))
	}
	return strings.ToLower(text)
}

// frame tracks one open object or array while re-emitting tokens.
type frame struct {
	object bool
	n      int // tokens written inside the container
}

func serialize(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var buf bytes.Buffer
	var strBuf bytes.Buffer
	enc := json.NewEncoder(&strBuf)
	enc.SetEscapeHTML(false)

	var stack []frame
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		if d, ok := tok.(json.Delim); ok && (d == '}' || d == ']') {
			stack = stack[:len(stack)-1]
			buf.WriteRune(rune(d))
			continue
		}

		if len(stack) > 0 {
			top := &stack[len(stack)-1]
			switch {
			case top.object && top.n%2 == 1:
				buf.WriteByte(':')
			case top.n > 0:
				buf.WriteByte(',')
			}
			top.n++
		}

		switch v := tok.(type) {
		case json.Delim:
			buf.WriteRune(rune(v))
			stack = append(stack, frame{object: v == '{'})
		case string:
			strBuf.Reset()
			if err := enc.Encode(v); err != nil {
				return "", err
			}
			buf.Write(bytes.TrimSuffix(strBuf.Bytes(), []byte("\n")))
		case json.Number:
			buf.WriteString(v.String())
		case bool:
			if v {
				buf.WriteString("true")
			} else {
				buf.WriteString("false")
			}
		case nil:
			buf.WriteString("null")
		}
	}
	return buf.String(), nil
}
