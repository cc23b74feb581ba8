// Package view renders a single session transcript to a terminal, a pager or a file.
package view

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"sessionview/internal/classify"
	"sessionview/internal/extract"
	"sessionview/internal/format"
	"sessionview/internal/query"
	"sessionview/internal/record"
	"sessionview/internal/source"
)

// Options defines the configurable parameters for rendering a view.
type Options struct {
	Path         string
	Format       string // text | chat | raw | json | html
	Category     string // category name or "all"
	Search       string
	Wrap         int
	MaxEvents    int // keep only the last N matching records; 0 keeps all
	Expand       bool
	ForceColor   bool
	ForceNoColor bool
	RawFile      bool
	Out          io.Writer
	OutFile      *os.File
	ErrOut       io.Writer // load warnings; discarded when nil
}

// entry is one matching record with its extracted content.
type entry struct {
	index   int // 1-based position among matching records
	rec     record.Record
	content extract.Content
}

// Run renders a session log according to the provided options.
func Run(opts Options) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	if opts.RawFile {
		return copyFile(opts.Out, opts.Path)
	}

	formatMode := strings.ToLower(opts.Format)
	if formatMode == "" {
		formatMode = "text"
	}
	switch formatMode {
	case "text", "chat", "raw", "json", "html":
	default:
		return fmt.Errorf("%w: %s", format.ErrUnsupportedFormat, opts.Format)
	}

	session, err := loadSession(opts)
	if err != nil {
		return err
	}
	entries := collect(session, opts.MaxEvents)

	switch formatMode {
	case "text":
		useColor := resolveColorChoice(opts)
		for idx, e := range entries {
			if idx > 0 {
				fmt.Fprintln(opts.Out)
			}
			printEntry(opts.Out, e, opts, useColor)
		}
		return nil

	case "raw":
		for _, e := range entries {
			if _, err := fmt.Fprintln(opts.Out, record.Compact(e.rec.Raw)); err != nil {
				return err
			}
		}
		return nil

	case "json":
		return writeJSON(opts.Out, entries)

	case "html":
		page := format.HTMLPage{Title: pageTitle(opts.Path), Expand: opts.Expand}
		for _, e := range entries {
			page.Entries = append(page.Entries, format.NewHTMLEntry(e.rec, e.content))
		}
		return format.WriteHTML(opts.Out, page)

	default: // chat
		if len(entries) == 0 {
			return nil
		}
		colorEnabled := resolveColorChoice(opts)
		width := determineWidth(opts.OutFile, opts.Wrap)

		lines := renderChatTranscript(entries, width, colorEnabled, opts.Expand)
		if len(lines) == 0 {
			return nil
		}
		if opts.OutFile != nil && isatty.IsTerminal(opts.OutFile.Fd()) {
			return pipeThroughPager(lines, colorEnabled)
		}
		return writeLines(opts.Out, lines)
	}
}

func loadSession(opts Options) (*query.Session, error) {
	res, err := source.Load(opts.Path)
	if err != nil {
		return nil, err
	}
	if opts.ErrOut != nil {
		for _, w := range res.Warnings {
			fmt.Fprintf(opts.ErrOut, "warning: %v\n", w)
		}
	}

	session := query.NewSession()
	session.Load(res.Records)
	if err := session.SetCategoryFilter(opts.Category); err != nil {
		return nil, err
	}
	session.SetSearchTerm(opts.Search)
	return session, nil
}

func collect(session *query.Session, maxEvents int) []entry {
	matched := session.FilteredRecords()
	start := 0
	if maxEvents > 0 {
		ring := newRecordRing(maxEvents)
		for _, rec := range matched {
			ring.push(rec)
		}
		start = len(matched) - ring.length
		matched = ring.slice()
	}

	entries := make([]entry, 0, len(matched))
	for i, rec := range matched {
		entries = append(entries, entry{index: start + i + 1, rec: rec, content: session.Extract(rec)})
	}
	return entries
}

type jsonEntry struct {
	Index     int             `json:"index"`
	Timestamp string          `json:"timestamp,omitempty"`
	Content   extract.Content `json:"content"`
}

func writeJSON(out io.Writer, entries []entry) error {
	items := make([]jsonEntry, 0, len(entries))
	for _, e := range entries {
		item := jsonEntry{Index: e.index, Content: e.content}
		if !e.rec.Timestamp.IsZero() {
			item.Timestamp = e.rec.Timestamp.Format(time.RFC3339)
		}
		items = append(items, item)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

func pageTitle(path string) string {
	if path == source.Stdin {
		return "session"
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

type recordRing struct {
	data   []record.Record
	start  int
	length int
}

func newRecordRing(capacity int) *recordRing {
	if capacity <= 0 {
		return &recordRing{}
	}
	return &recordRing{data: make([]record.Record, capacity)}
}

func (r *recordRing) push(rec record.Record) {
	if len(r.data) == 0 {
		return
	}
	idx := (r.start + r.length) % len(r.data)
	r.data[idx] = rec
	if r.length < len(r.data) {
		r.length++
		return
	}
	r.start = (r.start + 1) % len(r.data)
}

func (r *recordRing) slice() []record.Record {
	if r.length == 0 {
		return nil
	}
	result := make([]record.Record, r.length)
	for i := 0; i < r.length; i++ {
		result[i] = r.data[(r.start+i)%len(r.data)]
	}
	return result
}

func determineWidth(out *os.File, wrap int) int {
	if wrap > 0 {
		return wrap
	}
	if out != nil {
		if w, _, err := term.GetSize(int(out.Fd())); err == nil && w > 0 {
			return w
		}
	}
	if colsStr := os.Getenv("COLUMNS"); colsStr != "" {
		if v, err := strconv.Atoi(colsStr); err == nil && v > 0 {
			return v
		}
	}
	return 80
}

func pipeThroughPager(lines []string, colorEnabled bool) error {
	text := strings.Join(lines, "\n")
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	pagerCmd := os.Getenv("PAGER")
	var cmd *exec.Cmd
	if pagerCmd == "" {
		args := []string{"less"}
		if colorEnabled {
			args = append(args, "-R")
		}
		cmd = exec.Command(args[0], args[1:]...) // #nosec G204
	} else {
		cmd = exec.Command("sh", "-c", pagerCmd) // #nosec G204
	}

	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create pager pipe: %w", err)
	}
	go func() {
		defer stdin.Close()
		io.WriteString(stdin, text) //nolint:errcheck
	}()

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run pager: %w", err)
	}

	return nil
}

func writeLines(out io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func printEntry(out io.Writer, e entry, opts Options, useColor bool) {
	category := string(e.content.Category)

	ts := "-"
	if !e.rec.Timestamp.IsZero() {
		ts = e.rec.Timestamp.Format(time.RFC3339)
	}
	headerPlain := fmt.Sprintf("[#%03d] %s | %s", e.index, category, ts)

	indexText := fmt.Sprintf("#%03d", e.index)
	roleText := category
	tsText := ts
	separator := "|"

	if useColor {
		indexText = colorize(true, ansiBoldWhite, indexText)
		roleText = colorize(true, categoryColor(e.content.Category), roleText)
		tsText = colorize(true, ansiTimestamp, tsText)
		separator = colorize(true, ansiSeparator, "|")
	}

	header := fmt.Sprintf("[%s] %s %s %s", indexText, roleText, separator, tsText)
	fmt.Fprintln(out, header)
	fmt.Fprintln(out, strings.Repeat("-", len(headerPlain)))

	lines := format.RenderContentLines(e.content, format.RenderOptions{Wrap: opts.Wrap, Expand: opts.Expand})
	if len(lines) == 0 {
		prefix := "|"
		if useColor {
			prefix = colorize(true, ansiSeparator, "|")
		}
		fmt.Fprintf(out, "%s %s\n", prefix, "(no content)")
		return
	}
	linePrefix := "| "
	emptyPrefix := "|"
	if useColor {
		separatorColor := colorize(true, ansiSeparator, "|")
		linePrefix = separatorColor + " "
		emptyPrefix = separatorColor
	}
	for _, line := range lines {
		if line == "" {
			fmt.Fprintln(out, emptyPrefix)
			continue
		}
		fmt.Fprintf(out, "%s%s\n", linePrefix, line)
	}
}

const (
	ansiReset     = "\x1b[0m"
	ansiBoldWhite = "\x1b[1;97m"
	ansiTimestamp = "\x1b[38;5;245m"
	ansiSeparator = "\x1b[38;5;240m"
	ansiAssistant = "\x1b[38;5;44m"
	ansiUser      = "\x1b[38;5;220m"
	ansiTool      = "\x1b[38;5;207m"
	ansiError     = "\x1b[38;5;196m"
)

func colorize(enabled bool, code string, text string) string {
	if !enabled {
		return text
	}
	return code + text + ansiReset
}

func categoryColor(c classify.Category) string {
	switch c {
	case classify.Assistant:
		return ansiAssistant
	case classify.User:
		return ansiUser
	case classify.Tool:
		return ansiTool
	case classify.FailedTool:
		return ansiError
	default:
		return ansiSeparator
	}
}

func resolveColorChoice(opts Options) bool {
	if opts.ForceColor {
		return true
	}
	if opts.ForceNoColor {
		return false
	}
	return shouldUseColorAuto(opts.Out)
}

func shouldUseColorAuto(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func copyFile(dst io.Writer, path string) error {
	if path == source.Stdin {
		_, err := io.Copy(dst, os.Stdin)
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return &source.LoadError{Path: path, Err: err}
	}
	defer f.Close()

	_, err = io.Copy(dst, f)
	return err
}
