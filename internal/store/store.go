// Package store enumerates session transcripts on disk.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sessionview/internal/classify"
	"sessionview/internal/record"
	"sessionview/internal/source"
)

var (
	// ErrSessionNotFound is returned by FindSessionPath when no file matches.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoSessionMeta is returned when a transcript has no id and no timestamps.
	ErrNoSessionMeta = errors.New("no session metadata found")

	errStop = errors.New("stop iteration")
)

const sessionExt = ".jsonl"

// SessionSummary describes one transcript file.
type SessionSummary struct {
	ID              string    `json:"id"`
	Path            string    `json:"path"`
	CWD             string    `json:"cwd"`
	StartedAt       time.Time `json:"started_at"`
	Summary         string    `json:"summary"`
	MessageCount    int       `json:"message_count"`
	DurationSeconds int       `json:"duration_seconds"`
}

// ListOptions controls how sessions are enumerated.
type ListOptions struct {
	Root       string
	CWD        string
	ExactCWD   bool
	After      *time.Time
	Before     *time.Time
	Limit      int
	MaxSummary int
}

// ListResult contains session summaries and non-fatal warnings.
type ListResult struct {
	Summaries []SessionSummary
	Warnings  []error
}

// ListSessions enumerates sessions under Root, newest first.
func ListSessions(opts ListOptions) (ListResult, error) {
	root := opts.Root
	if root == "" {
		return ListResult{}, errors.New("root directory is required")
	}

	var result ListResult

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			result.Warnings = append(result.Warnings, fmt.Errorf("walk %s: %w", path, walkErr))
			return nil
		}

		if d.IsDir() || !strings.HasSuffix(d.Name(), sessionExt) {
			return nil
		}

		summary, err := Summarize(path)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Errorf("summarize %s: %w", path, err))
			return nil
		}

		if opts.CWD != "" {
			if opts.ExactCWD {
				if summary.CWD != opts.CWD {
					return nil
				}
			} else if !strings.HasPrefix(summary.CWD, opts.CWD) {
				return nil
			}
		}
		if opts.After != nil && summary.StartedAt.Before(*opts.After) {
			return nil
		}
		if opts.Before != nil && summary.StartedAt.After(*opts.Before) {
			return nil
		}

		if opts.MaxSummary > 0 {
			summary.Summary = truncate(summary.Summary, opts.MaxSummary)
		}

		result.Summaries = append(result.Summaries, summary)
		return nil
	})
	if err != nil {
		return result, err
	}

	sort.SliceStable(result.Summaries, func(i, j int) bool {
		return result.Summaries[i].StartedAt.After(result.Summaries[j].StartedAt)
	})

	if opts.Limit > 0 && len(result.Summaries) > opts.Limit {
		result.Summaries = result.Summaries[:opts.Limit]
	}

	return result, nil
}

// Summarize loads the transcript at path and derives its summary. Files that
// carry neither a session id nor a timestamp yield ErrNoSessionMeta.
func Summarize(path string) (SessionSummary, error) {
	res, err := source.Load(path)
	if err != nil {
		return SessionSummary{}, err
	}

	summary, ok := SummarizeRecords(res.Records, path)
	if !ok {
		return SessionSummary{}, ErrNoSessionMeta
	}
	return summary, nil
}

// SummarizeRecords derives a summary from already loaded records. When the
// records carry no session id, the file stem of path is used, or "stdin".
// The boolean reports whether any session id or timestamp was found.
func SummarizeRecords(records []record.Record, path string) (SessionSummary, bool) {
	summary := SessionSummary{Path: path}
	var last time.Time
	var fallback string

	for _, rec := range records {
		if summary.ID == "" {
			summary.ID = rec.SessionID
		}
		if summary.CWD == "" {
			summary.CWD = rec.CWD
			if summary.CWD == "" && rec.Init != nil {
				summary.CWD = rec.Init.CWD
			}
		}
		if !rec.Timestamp.IsZero() {
			if summary.StartedAt.IsZero() || rec.Timestamp.Before(summary.StartedAt) {
				summary.StartedAt = rec.Timestamp
			}
			if rec.Timestamp.After(last) {
				last = rec.Timestamp
			}
		}

		switch classify.Categorize(rec) {
		case classify.User:
			summary.MessageCount++
			if summary.Summary == "" {
				summary.Summary = messageText(rec)
			}
		case classify.Assistant:
			summary.MessageCount++
		case classify.System:
			if fallback == "" {
				fallback = summaryEntryText(rec)
			}
		}
	}

	hasMeta := summary.ID != "" || !summary.StartedAt.IsZero()
	if summary.ID == "" {
		summary.ID = fileStem(path)
	}
	if summary.Summary == "" {
		summary.Summary = fallback
	}
	summary.DurationSeconds = durationSeconds(summary.StartedAt, last)

	return summary, hasMeta
}

func fileStem(path string) string {
	if path == source.Stdin {
		return "stdin"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// messageText concatenates the text items of a user message.
func messageText(rec record.Record) string {
	var builder strings.Builder
	for _, item := range rec.Items() {
		if item.Type != record.ItemText || item.Text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteRune(' ')
		}
		builder.WriteString(strings.TrimSpace(item.Text))
		if builder.Len() >= 160 {
			break
		}
	}
	return builder.String()
}

// summaryEntryText returns the text of a {"type":"summary"} entry.
func summaryEntryText(rec record.Record) string {
	if rec.Type != "summary" {
		return ""
	}
	var entry struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(rec.Raw, &entry); err != nil {
		return ""
	}
	return entry.Summary
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}

// FindSessionPath searches root for a transcript whose session id or file
// name matches id.
func FindSessionPath(root, id string) (string, error) {
	if root == "" {
		return "", errors.New("root directory is required")
	}
	if id == "" {
		return "", errors.New("session id is required")
	}

	var matched string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), sessionExt) {
			return nil
		}
		if strings.TrimSuffix(d.Name(), sessionExt) == id {
			matched = path
			return errStop
		}
		summary, err := Summarize(path)
		if err != nil {
			return nil
		}
		if summary.ID == id {
			matched = path
			return errStop
		}
		return nil
	})

	if matched != "" {
		return matched, nil
	}
	if err != nil && !errors.Is(err, errStop) {
		return "", err
	}
	return "", fmt.Errorf("%w: %s under %s", ErrSessionNotFound, id, root)
}

func durationSeconds(start, end time.Time) int {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Seconds())
}
