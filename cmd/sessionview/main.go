// Package main provides the sessionview CLI for browsing AI coding-assistant session logs.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"sessionview/internal/browse"
	"sessionview/internal/config"
	"sessionview/internal/format"
	"sessionview/internal/query"
	"sessionview/internal/source"
	"sessionview/internal/store"
	"sessionview/internal/view"
)

var version = "dev"

var sessionsDirFlag string

var rootCmd = &cobra.Command{
	Use:           "sessionview",
	Short:         "Browse, filter, and search AI coding-assistant session logs",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sessionsDirFlag, "sessions-dir", "",
		"override the sessions directory (env: "+config.EnvSessionsDir+", default: ~/.claude/projects)")

	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newViewCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newBrowseCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sessionview: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig returns the user configuration with the --sessions-dir flag applied.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if sessionsDirFlag != "" {
		cfg.SessionsDir = sessionsDirFlag
	}
	return cfg, nil
}

func newListCmd() *cobra.Command {
	var (
		cwd          string
		cwdPrefix    bool
		all          bool
		afterStr     string
		beforeStr    string
		limit        int
		formatFlag   string
		noHeader     bool
		summaryWidth int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions in reverse chronological order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all && cwd != "" {
				return errors.New("--cwd cannot be used with --all")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var after, before *time.Time
			if afterStr != "" {
				t, err := time.Parse(time.RFC3339, afterStr)
				if err != nil {
					return fmt.Errorf("invalid --after value: %w", err)
				}
				after = &t
			}
			if beforeStr != "" {
				t, err := time.Parse(time.RFC3339, beforeStr)
				if err != nil {
					return fmt.Errorf("invalid --before value: %w", err)
				}
				before = &t
			}

			opts := store.ListOptions{
				Root:       cfg.SessionsDir,
				After:      after,
				Before:     before,
				Limit:      limit,
				MaxSummary: summaryWidth,
			}

			if !all {
				if cwd != "" {
					opts.CWD = cwd
				} else {
					wd, err := os.Getwd()
					if err != nil {
						return fmt.Errorf("determine current directory: %w", err)
					}
					opts.CWD = wd
				}
				opts.ExactCWD = !cwdPrefix
			}

			result, err := store.ListSessions(opts)
			if err != nil {
				return err
			}

			printWarnings(cmd.ErrOrStderr(), result.Warnings)

			return format.WriteSummaries(cmd.OutOrStdout(), result.Summaries, !noHeader, formatFlag)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cwd, "cwd", "", "filter sessions whose cwd equals the provided path")
	flags.BoolVar(&cwdPrefix, "cwd-prefix", false, "match sessions whose cwd starts with the --cwd path")
	flags.BoolVar(&all, "all", false, "include sessions from all directories")
	flags.StringVar(&afterStr, "after", "", "include sessions starting on/after the given RFC3339 timestamp")
	flags.StringVar(&beforeStr, "before", "", "include sessions starting on/before the given RFC3339 timestamp")
	flags.IntVar(&limit, "limit", 0, "limit number of sessions returned (0 means no limit)")
	flags.StringVar(&formatFlag, "format", "table", "output format: table, plain, json, or jsonl")
	flags.BoolVar(&noHeader, "no-header", false, "omit header row for table and plain output")
	flags.IntVar(&summaryWidth, "summary-width", 160, "maximum characters included in the summary column")

	return cmd
}

func newViewCmd() *cobra.Command {
	var (
		category     string
		search       string
		expand       bool
		raw          bool
		wrap         int
		maxEvents    int
		formatFlag   string
		forceColor   bool
		forceNoColor bool
	)

	cmd := &cobra.Command{
		Use:   "view <session-id-or-path>",
		Short: "Render a session transcript (use - to read stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if forceColor && forceNoColor {
				return errors.New("--color and --no-color cannot be used together")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			path, err := resolveSessionPath(args[0], cfg.SessionsDir)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if !flags.Changed("format") {
				formatFlag = cfg.Format
			}
			if !flags.Changed("wrap") {
				wrap = cfg.Wrap
			}
			if !flags.Changed("color") && !flags.Changed("no-color") {
				forceColor = cfg.Color == config.ColorAlways
				forceNoColor = cfg.Color == config.ColorNever
			}

			out := cmd.OutOrStdout()
			outFile, _ := out.(*os.File)
			return view.Run(view.Options{
				Path:         path,
				Format:       formatFlag,
				Category:     category,
				Search:       search,
				Wrap:         wrap,
				MaxEvents:    maxEvents,
				Expand:       expand,
				ForceColor:   forceColor,
				ForceNoColor: forceNoColor,
				RawFile:      raw,
				Out:          out,
				OutFile:      outFile,
				ErrOut:       cmd.ErrOrStderr(),
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&category, "category", "c", query.All, "show one category: all, system, assistant, tool, failed-tool, or user")
	flags.StringVarP(&search, "search", "s", "", "show records whose JSON contains the given text (case-insensitive)")
	flags.BoolVarP(&expand, "expand", "e", false, "show full tool output and thinking blocks")
	flags.BoolVar(&raw, "raw", false, "copy the file verbatim without parsing")
	flags.IntVar(&wrap, "wrap", 0, "wrap message body at the given column width")
	flags.IntVar(&maxEvents, "max", 0, "show only the most recent N matching records (0 means no limit)")
	flags.StringVar(&formatFlag, "format", "text", "output format: text, chat, raw, json, or html")
	flags.BoolVar(&forceColor, "color", false, "force-enable ANSI colors even when stdout is not a TTY")
	flags.BoolVar(&forceNoColor, "no-color", false, "disable ANSI colors regardless of terminal detection")

	return cmd
}

func newStatsCmd() *cobra.Command {
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "stats <session-id-or-path>",
		Short: "Count records by declared kind and by category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, _, err := openSession(cmd, args[0])
			if err != nil {
				return err
			}
			return format.WriteStats(cmd.OutOrStdout(), format.NewStatsReport(session), formatFlag)
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", "table", "output format: table, plain, or json")
	return cmd
}

type infoPayload struct {
	SessionID       string      `json:"session_id"`
	Path            string      `json:"path"`
	StartedAt       string      `json:"started_at"`
	CWD             string      `json:"cwd"`
	MessageCount    int         `json:"message_count"`
	DurationSeconds int         `json:"duration_seconds"`
	DurationDisplay string      `json:"duration_display"`
	Summary         string      `json:"summary"`
	ToolCalls       int         `json:"tool_calls"`
	Stats           query.Stats `json:"stats"`
}

func newInfoCmd() *cobra.Command {
	var (
		formatFlag  string
		summaryMode string
	)

	cmd := &cobra.Command{
		Use:   "info <session-id-or-path>",
		Short: "Show session metadata and file details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summaryMode = strings.ToLower(summaryMode)
			switch summaryMode {
			case "", "clip", "full":
			default:
				return fmt.Errorf("invalid --summary value: %s", summaryMode)
			}

			session, path, err := openSession(cmd, args[0])
			if err != nil {
				return err
			}
			meta, _ := store.SummarizeRecords(session.Records(), path)

			summarySnippet := collapseWhitespace(meta.Summary)
			if summaryMode != "full" {
				summarySnippet = clipSummary(summarySnippet, 160)
			}

			payload := infoPayload{
				SessionID:       meta.ID,
				Path:            path,
				CWD:             meta.CWD,
				MessageCount:    meta.MessageCount,
				DurationSeconds: meta.DurationSeconds,
				DurationDisplay: formatDuration(meta.DurationSeconds),
				Summary:         meta.Summary,
				ToolCalls:       session.Index().Len(),
				Stats:           session.Stats(),
			}
			if !meta.StartedAt.IsZero() {
				payload.StartedAt = meta.StartedAt.Format(time.RFC3339)
			}

			switch strings.ToLower(formatFlag) {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(payload)
			case "text":
				renderInfoText(cmd.OutOrStdout(), payload, summarySnippet)
				return nil
			default:
				return fmt.Errorf("%w: %s", format.ErrUnsupportedFormat, formatFlag)
			}
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&formatFlag, "format", "text", "output format: text or json")
	flags.StringVar(&summaryMode, "summary", "clip", "summary display: clip or full")

	return cmd
}

func newBrowseCmd() *cobra.Command {
	var (
		category string
		search   string
		watch    bool
	)

	cmd := &cobra.Command{
		Use:   "browse <session-id-or-path>",
		Short: "Explore a session interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(os.Stdin.Fd()) || !term.IsTerminal(os.Stdout.Fd()) {
				return errors.New("browse requires an interactive terminal; use 'view' instead")
			}

			session, path, err := openSession(cmd, args[0])
			if err != nil {
				return err
			}
			if err := session.SetCategoryFilter(category); err != nil {
				return err
			}
			session.SetSearchTerm(search)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return browse.Run(ctx, session, browse.Options{Path: path, Watch: watch})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&category, "category", "c", query.All, "initial category tab")
	flags.StringVarP(&search, "search", "s", "", "initial search term")
	flags.BoolVarP(&watch, "watch", "w", false, "reload when the session file changes")

	return cmd
}

// openSession resolves arg and loads it into a query session. A JSON array is
// loaded through the session's raw-text parser; JSON Lines go through
// source.Read, whose warnings are printed to the command's error stream.
func openSession(cmd *cobra.Command, arg string) (*query.Session, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	path, err := resolveSessionPath(arg, cfg.SessionsDir)
	if err != nil {
		return nil, "", err
	}

	name := path
	var data []byte
	if path == source.Stdin {
		name = "stdin"
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, "", &source.LoadError{Path: name, Err: err}
	}

	session := query.NewSession()
	if source.Sniff(data) {
		if err := session.LoadText(data); err != nil {
			return nil, "", &source.LoadError{Path: name, Err: err}
		}
		return session, path, nil
	}

	res, err := source.Read(bytes.NewReader(data), name)
	if err != nil {
		return nil, "", err
	}
	printWarnings(cmd.ErrOrStderr(), res.Warnings)
	session.Load(res.Records)
	return session, path, nil
}

func resolveSessionPath(arg, root string) (string, error) {
	if arg == "" {
		return "", errors.New("session identifier is empty")
	}
	if arg == source.Stdin {
		return arg, nil
	}

	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return arg, nil
	}

	if root == "" {
		return "", fmt.Errorf("%w: %s", store.ErrSessionNotFound, arg)
	}

	candidate := filepath.Join(root, arg)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, nil
	}

	return store.FindSessionPath(root, arg)
}

func printWarnings(w io.Writer, warnings []error) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "warning: %v\n", warn) //nolint:errcheck
	}
}

func formatDuration(seconds int) string {
	if seconds <= 0 {
		return "00:00:00"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func renderInfoText(out io.Writer, payload infoPayload, summarySnippet string) {
	const labelWidth = 14
	writeKV(out, labelWidth, "Session ID", payload.SessionID)
	writeKV(out, labelWidth, "Started At", payload.StartedAt)
	writeKV(out, labelWidth, "Duration", payload.DurationDisplay)
	writeKV(out, labelWidth, "CWD", payload.CWD)
	writeKV(out, labelWidth, "Message Count", fmt.Sprintf("%d", payload.MessageCount))
	writeKV(out, labelWidth, "Records", fmt.Sprintf("%d", payload.Stats.Total))
	writeKV(out, labelWidth, "Tool Calls", fmt.Sprintf("%d", payload.ToolCalls))
	writeKV(out, labelWidth, "Path", payload.Path)
	writeKV(out, labelWidth, "Summary", summarySnippet)
}

func writeKV(out io.Writer, width int, label string, value string) {
	fmt.Fprintf(out, "%-*s: %s\n", width, label, value) //nolint:errcheck
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(text)), " ")
}

func clipSummary(text string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen == 1 {
		return "…"
	}
	return string(runes[:maxLen-1]) + "…"
}

