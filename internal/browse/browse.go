// Package browse provides an interactive terminal browser for one session.
package browse

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sessionview/internal/classify"
	"sessionview/internal/format"
	"sessionview/internal/query"
	"sessionview/internal/record"
	"sessionview/internal/source"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	timeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	categoryStyles = map[classify.Category]lipgloss.Style{
		classify.System:     lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Bold(true),
		classify.Assistant:  lipgloss.NewStyle().Foreground(lipgloss.Color("44")).Bold(true),
		classify.Tool:       lipgloss.NewStyle().Foreground(lipgloss.Color("207")).Bold(true),
		classify.FailedTool: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		classify.User:       lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true),
	}
)

// tabs lists the filter tabs in display order; the first selects every record.
func tabs() []classify.Category {
	return append([]classify.Category{query.All}, classify.Categories()...)
}

// ── Messages ────────────

// fileChangedMsg is sent by the watcher when the transcript is rewritten.
type fileChangedMsg struct{}

// watchFailedMsg reports that the file watcher stopped or could not start.
type watchFailedMsg struct{ err error }

// reloadedMsg carries the result of re-reading the transcript.
type reloadedMsg struct {
	records  []record.Record
	warnings int
	err      error
}

// ── Model ────────────

// Model is the root Bubble Tea model for the browser.
type Model struct {
	session   *query.Session
	path      string
	activeTab int
	search    textinput.Model
	searching bool
	expand    bool
	viewport  viewport.Model
	width     int
	height    int
	ready     bool
	status    string
}

// New creates a browser over session. path is used for the title and reloads.
func New(session *query.Session, path string) Model {
	input := textinput.New()
	input.Prompt = "/"
	input.Placeholder = "search"
	input.SetValue(session.State().Search())

	m := Model{session: session, path: path, search: input}
	for i, c := range tabs() {
		if c == session.State().Filter() {
			m.activeTab = i
		}
	}
	return m
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.selectTab((m.activeTab + 1) % len(tabs()))
			return m, nil
		case "shift+tab", "h", "left":
			m.selectTab((m.activeTab - 1 + len(tabs())) % len(tabs()))
			return m, nil
		case "0", "1", "2", "3", "4", "5":
			m.selectTab(int(msg.String()[0] - '0'))
			return m, nil
		case "/":
			m.searching = true
			m.search.SetValue(m.session.State().Search())
			m.search.CursorEnd()
			return m, m.search.Focus()
		case "c":
			m.session.SetSearchTerm("")
			m.search.SetValue("")
			m.refresh(true)
			return m, nil
		case "e":
			m.expand = !m.expand
			m.refresh(false)
			return m, nil
		case "r":
			return m, reload(m.path)
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewport()
		return m, nil

	case fileChangedMsg:
		return m, reload(m.path)

	case watchFailedMsg:
		m.status = "watch failed: " + msg.err.Error()
		return m, nil

	case reloadedMsg:
		if msg.err != nil {
			m.status = "reload failed: " + msg.err.Error()
			return m, nil
		}
		m.session.Load(msg.records)
		m.status = fmt.Sprintf("reloaded %d records", len(msg.records))
		if msg.warnings > 0 {
			m.status += fmt.Sprintf(" (%d skipped)", msg.warnings)
		}
		m.refresh(false)
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		m.session.SetSearchTerm(m.search.Value())
		m.refresh(true)
		return m, nil
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue(m.session.State().Search())
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  sessionview  " + filepath.Base(m.path))

	counts := m.session.CategoryCounts()
	var tabParts []string
	for i, c := range tabs() {
		n := m.session.Stats().Total
		if c != query.All {
			n = counts[c]
		}
		label := fmt.Sprintf(" %d %s (%d) ", i, c, n)
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < len(tabs())-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, m.viewport.View(), m.statusLine())
}

func (m Model) statusLine() string {
	if m.searching {
		return statusBarStyle.Width(m.width).Render(m.search.View() + dimStyle.Render("  enter apply  esc cancel"))
	}

	s := m.session.Stats()
	left := fmt.Sprintf("%d/%d shown · assistant %d · system %d · tool %d · user %d",
		len(m.session.FilteredRecords()), s.Total, s.Assistant, s.System, s.Tool, s.User)
	if term := m.session.State().Search(); term != "" {
		left += fmt.Sprintf(" · search %q", term)
	}
	if m.status != "" {
		left += " · " + m.status
	}
	hint := "←/→ tab  / search  c clear  e expand  r reload  q quit"

	pct := fmt.Sprintf("%3.0f%%", m.viewport.ScrollPercent()*100)
	pad := m.width - lipgloss.Width(left) - lipgloss.Width(hint) - len(pct) - 6
	if pad < 1 {
		pad = 1
	}
	return statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", pad) + hint + "  " + pct)
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewport() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport = viewport.New(m.width, vpHeight)
	m.viewport.SetContent(m.renderRecords())
}

func (m *Model) selectTab(i int) {
	if i < 0 || i >= len(tabs()) {
		return
	}
	m.activeTab = i
	// Tab names are valid category names, so this cannot fail.
	_ = m.session.SetCategoryFilter(string(tabs()[i]))
	m.refresh(true)
}

func (m *Model) refresh(top bool) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderRecords())
	if top {
		m.viewport.GotoTop()
	}
}

func (m *Model) renderRecords() string {
	records := m.session.FilteredRecords()
	if len(records) == 0 {
		return "\n" + dimStyle.Render("  (no matching records)") + "\n"
	}

	wrap := m.width - 6
	if wrap < 20 {
		wrap = 0
	}
	opts := format.RenderOptions{Wrap: wrap, Expand: m.expand}

	var sb strings.Builder
	for i, rec := range records {
		content := m.session.Extract(rec)
		style, ok := categoryStyles[content.Category]
		if !ok {
			style = dimStyle
		}
		header := "  " + style.Render(string(content.Category))
		if !rec.Timestamp.IsZero() {
			header += "  " + timeStyle.Render(rec.Timestamp.Format("15:04:05"))
		}
		if content.Category == classify.FailedTool {
			header += "  " + warnStyle.Render("✗")
		}
		sb.WriteString("\n" + dimStyle.Render(fmt.Sprintf("  %4d", i+1)) + header + "\n")
		for _, line := range format.RenderContentLines(content, opts) {
			sb.WriteString("      " + line + "\n")
		}
	}
	return sb.String()
}

// ── Commands ───────────────────────────────────────────────────────────────────

func reload(path string) tea.Cmd {
	return func() tea.Msg {
		res, err := source.Load(path)
		if err != nil {
			return reloadedMsg{err: err}
		}
		return reloadedMsg{records: res.Records, warnings: len(res.Warnings)}
	}
}

// Options configures Run.
type Options struct {
	Path  string
	Watch bool // reload when the file changes on disk
}

// Run starts the browser over an already loaded session.
func Run(ctx context.Context, session *query.Session, opts Options) error {
	p := tea.NewProgram(New(session, opts.Path), tea.WithAltScreen(), tea.WithContext(ctx))

	if opts.Watch && opts.Path != source.Stdin {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			err := source.Watch(watchCtx, opts.Path, func() { p.Send(fileChangedMsg{}) })
			if err != nil && watchCtx.Err() == nil {
				p.Send(watchFailedMsg{err: err})
			}
		}()
	}

	_, err := p.Run()
	return err
}
