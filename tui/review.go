// Package tui is the interactive review surface: a list of pending
// proposals and uncommitted files on the left, the decorated diff for
// the selection on the right, and the git summary in the status bar. It
// stands in for the webview chrome, which is out of scope here.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/change"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/events"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/gitpanel"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/reconcile"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/textdiff"
	"github.com/ZaguanLabs/ZaguanBlade-sub000/internal/uncommitted"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	listStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#04B575"))

	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F25D94"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#874BFD")).Bold(true)
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB454"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

type section int

const (
	sectionPending section = iota
	sectionUncommitted
)

type (
	pendingMsg     []change.Change
	trackerMsg     []uncommitted.Change
	gitMsg         *gitpanel.Summary
	noticeMsg      string
	errorMsg       struct{ err error }
	busClosedMsg   struct{}
	operationDone  struct{ notice string }
)

// Model is the bubbletea model for the review panel.
type Model struct {
	controller *reconcile.Controller
	workspace  string

	pending     []change.Change
	uncommitted []uncommitted.Change
	git         *gitpanel.Summary

	section  section
	cursor   int
	hunkIdx  int // -1 means whole-change granularity
	viewport viewport.Model
	ready    bool
	notice   string

	busCh chan tea.Msg
	subs  []*events.Subscription
}

// New builds the review model and hooks it to the event bus.
func New(controller *reconcile.Controller, bus *events.Bus, workspace string) *Model {
	m := &Model{
		controller: controller,
		workspace:  workspace,
		hunkIdx:    -1,
		busCh:      make(chan tea.Msg, 32),
	}
	m.subs = append(m.subs,
		bus.Subscribe(events.PendingUpdated, func(ev events.Event) {
			if list, ok := ev.Data.([]change.Change); ok {
				m.busCh <- pendingMsg(list)
			}
		}),
		bus.Subscribe(events.SystemError, func(ev events.Event) {
			if data, ok := ev.Data.(map[string]string); ok {
				m.busCh <- noticeMsg("error: " + data["error"])
			}
		}),
		bus.Subscribe(events.FileReloaded, func(ev events.Event) {
			if path, ok := ev.Data.(string); ok {
				m.busCh <- noticeMsg("reloaded " + path)
			}
		}),
		bus.Subscribe(events.PreviewOpenRequest, func(ev events.Event) {
			if path, ok := ev.Data.(string); ok {
				m.busCh <- noticeMsg("preview: " + path)
			}
		}),
	)
	return m
}

// Release cancels the model's bus subscriptions.
func (m *Model) Release() {
	for _, s := range m.subs {
		s.Cancel()
	}
	m.subs = nil
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitBus(), m.refreshTracker(), m.loadGit())
}

func (m *Model) waitBus() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.busCh
		if !ok {
			return busClosedMsg{}
		}
		return msg
	}
}

func (m *Model) refreshTracker() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.controller.Tracker().Refresh(ctx); err != nil {
			return errorMsg{err}
		}
		return trackerMsg(m.controller.Tracker().All())
	}
}

func (m *Model) loadGit() tea.Cmd {
	return func() tea.Msg {
		summary, err := gitpanel.Load(m.workspace)
		if err != nil {
			return errorMsg{err}
		}
		return gitMsg(summary)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width := msg.Width - 36
		if width < 20 {
			width = 20
		}
		height := msg.Height - 6
		if height < 5 {
			height = 5
		}
		if !m.ready {
			m.viewport = viewport.New(width, height)
			m.ready = true
		} else {
			m.viewport.Width = width
			m.viewport.Height = height
		}
		m.viewport.SetContent(m.renderDiff())
		return m, nil

	case pendingMsg:
		m.pending = msg
		m.clampCursor()
		m.viewport.SetContent(m.renderDiff())
		return m, m.waitBus()

	case trackerMsg:
		m.uncommitted = msg
		m.clampCursor()
		m.viewport.SetContent(m.renderDiff())
		return m, nil

	case gitMsg:
		m.git = msg
		return m, nil

	case noticeMsg:
		m.notice = string(msg)
		return m, tea.Batch(m.waitBus(), m.refreshTracker())

	case errorMsg:
		m.notice = "error: " + msg.err.Error()
		return m, nil

	case operationDone:
		m.notice = msg.notice
		return m, m.refreshTracker()

	case busClosedMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.Release()
		return m, tea.Quit

	case "tab":
		if m.section == sectionPending {
			m.section = sectionUncommitted
		} else {
			m.section = sectionPending
		}
		m.cursor = 0
		m.hunkIdx = -1
		m.viewport.SetContent(m.renderDiff())
		return m, nil

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.hunkIdx = -1
			m.viewport.SetContent(m.renderDiff())
		}
		return m, nil

	case "down", "j":
		if m.cursor < m.sectionLen()-1 {
			m.cursor++
			m.hunkIdx = -1
			m.viewport.SetContent(m.renderDiff())
		}
		return m, nil

	case "]":
		if ch := m.selectedPending(); ch != nil && ch.Kind == change.KindMultiPatch {
			m.hunkIdx++
			if m.hunkIdx >= len(ch.Hunks) {
				m.hunkIdx = -1
			}
			m.viewport.SetContent(m.renderDiff())
		}
		return m, nil

	case "[":
		if ch := m.selectedPending(); ch != nil && ch.Kind == change.KindMultiPatch {
			m.hunkIdx--
			if m.hunkIdx < -1 {
				m.hunkIdx = len(ch.Hunks) - 1
			}
			m.viewport.SetContent(m.renderDiff())
		}
		return m, nil

	case "a":
		return m, m.acceptSelected()

	case "r":
		return m, m.rejectSelected()

	case "A":
		return m, m.acceptAll()

	case "R":
		return m, m.rejectAll()

	case "y":
		if err := clipboard.WriteAll(m.plainDiff()); err != nil {
			m.notice = "clipboard unavailable"
		} else {
			m.notice = "diff copied"
		}
		return m, nil

	case "g":
		return m, m.loadGit()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) acceptSelected() tea.Cmd {
	if m.section == sectionPending {
		ch := m.selectedPending()
		if ch == nil {
			return nil
		}
		id, hunk := ch.ID, m.hunkIdx
		return m.runOp(func(ctx context.Context) error {
			if hunk >= 0 {
				return m.controller.AcceptHunk(ctx, id, hunk)
			}
			return m.controller.AcceptChange(ctx, id)
		}, "accepted "+ch.Path)
	}
	uc := m.selectedUncommitted()
	if uc == nil {
		return nil
	}
	path := uc.FilePath
	return m.runOp(func(ctx context.Context) error {
		return m.controller.Tracker().AcceptFile(ctx, path)
	}, "kept "+path)
}

func (m *Model) rejectSelected() tea.Cmd {
	if m.section == sectionPending {
		ch := m.selectedPending()
		if ch == nil {
			return nil
		}
		id, hunk := ch.ID, m.hunkIdx
		return m.runOp(func(ctx context.Context) error {
			if hunk >= 0 {
				return m.controller.RejectHunk(ctx, id, hunk)
			}
			return m.controller.RejectChange(ctx, id)
		}, "rejected "+ch.Path)
	}
	uc := m.selectedUncommitted()
	if uc == nil {
		return nil
	}
	path := uc.FilePath
	return m.runOp(func(ctx context.Context) error {
		return m.controller.Tracker().RejectFile(ctx, path)
	}, "reverted "+path)
}

func (m *Model) acceptAll() tea.Cmd {
	if m.section == sectionPending {
		return m.runOp(m.controller.AcceptAll, "accepted all pending changes")
	}
	return m.runOp(m.controller.Tracker().AcceptAll, "kept all uncommitted changes")
}

func (m *Model) rejectAll() tea.Cmd {
	if m.section == sectionPending {
		return m.runOp(m.controller.RejectAll, "rejected all pending changes")
	}
	return m.runOp(m.controller.Tracker().RejectAll, "reverted all uncommitted changes")
}

// runOp runs one user action off the UI loop and reports once: success
// notice or a single aggregated error, never per-item spam.
func (m *Model) runOp(op func(context.Context) error, notice string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := op(ctx); err != nil {
			return errorMsg{err}
		}
		return operationDone{notice: notice}
	}
}

func (m *Model) sectionLen() int {
	if m.section == sectionPending {
		return len(m.pending)
	}
	return len(m.uncommitted)
}

func (m *Model) clampCursor() {
	if n := m.sectionLen(); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) selectedPending() *change.Change {
	if m.section != sectionPending || m.cursor >= len(m.pending) {
		return nil
	}
	return &m.pending[m.cursor]
}

func (m *Model) selectedUncommitted() *uncommitted.Change {
	if m.section != sectionUncommitted || m.cursor >= len(m.uncommitted) {
		return nil
	}
	return &m.uncommitted[m.cursor]
}

func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var list strings.Builder
	list.WriteString(titleStyle.Render("Changes") + "\n")
	list.WriteString(m.renderSection("Pending", sectionPending))
	list.WriteString(m.renderSection("Uncommitted", sectionUncommitted))

	left := listStyle.Width(32).Render(list.String())
	right := m.viewport.View()
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	status := m.renderStatus()
	help := statusStyle.Render("j/k move · tab section · [/] hunk · a accept · r reject · A/R all · y copy · q quit")
	notice := ""
	if m.notice != "" {
		notice = noticeStyle.Render(m.notice)
	}
	return strings.Join([]string{body, status, notice, help}, "\n")
}

func (m *Model) renderSection(name string, sec section) string {
	var sb strings.Builder
	sb.WriteString(name + "\n")
	if sec == sectionPending {
		if len(m.pending) == 0 {
			sb.WriteString("  (none)\n")
		}
		for i, ch := range m.pending {
			line := fmt.Sprintf("  %s %s", kindLabel(ch.Kind), ch.Path)
			if m.section == sec && i == m.cursor {
				line = selectedStyle.Render("> " + strings.TrimPrefix(line, "  "))
			}
			sb.WriteString(line + "\n")
		}
	} else {
		if len(m.uncommitted) == 0 {
			sb.WriteString("  (none)\n")
		}
		for i, uc := range m.uncommitted {
			line := fmt.Sprintf("  %s +%d -%d", uc.FilePath, uc.AddedLines, uc.RemovedLines)
			if m.section == sec && i == m.cursor {
				line = selectedStyle.Render("> " + strings.TrimPrefix(line, "  "))
			}
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}

func (m *Model) renderStatus() string {
	if m.git == nil || !m.git.IsGitRepo {
		return statusStyle.Render("no git repository")
	}
	return statusStyle.Render(fmt.Sprintf("git: %s · %d staged · %d modified · %d untracked",
		m.git.CurrentBranch, m.git.StagedCount, m.git.ModifiedCount, m.git.UntrackedCount))
}

// renderDiff produces the styled diff body for the current selection.
func (m *Model) renderDiff() string {
	ch := m.selectedPending()
	if ch == nil {
		if uc := m.selectedUncommitted(); uc != nil {
			return fmt.Sprintf("%s\n\n+%d added lines, -%d removed lines\n\nAlready on disk; accept keeps it, reject reverts it.",
				uc.FilePath, uc.AddedLines, uc.RemovedLines)
		}
		return "nothing selected"
	}
	return styleDiff(m.plainDiff(), ch, m.hunkIdx)
}

// plainDiff is the unstyled diff text for the selection, also what the
// clipboard gets.
func (m *Model) plainDiff() string {
	ch := m.selectedPending()
	if ch == nil {
		return ""
	}
	switch ch.Kind {
	case change.KindPatch:
		return textdiff.Unified(ch.OldContent, ch.NewContent, ch.Path)
	case change.KindNewFile:
		return textdiff.Unified("", ch.Content, ch.Path)
	case change.KindDeleteFile:
		return fmt.Sprintf("deleted file: %s", ch.Path)
	case change.KindMultiPatch:
		var sb strings.Builder
		for i, h := range ch.Hunks {
			sb.WriteString(fmt.Sprintf("@@ hunk %d/%d @@\n", i+1, len(ch.Hunks)))
			sb.WriteString(textdiff.Unified(h.OldText, h.NewText, ch.Path))
			sb.WriteString("\n")
		}
		return sb.String()
	}
	return ""
}

func styleDiff(diff string, ch *change.Change, hunkIdx int) string {
	var sb strings.Builder
	hunk := -1
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			hunk++
			if ch.Kind == change.KindMultiPatch && hunk == hunkIdx {
				line += "  <- selected"
			}
			sb.WriteString(hunkStyle.Render(line))
		case strings.HasPrefix(line, "+"):
			sb.WriteString(addedStyle.Render(line))
		case strings.HasPrefix(line, "-"):
			sb.WriteString(removedStyle.Render(line))
		default:
			sb.WriteString(line)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func kindLabel(k change.Kind) string {
	switch k {
	case change.KindPatch:
		return "[patch]"
	case change.KindMultiPatch:
		return "[multi]"
	case change.KindNewFile:
		return "[new]  "
	case change.KindDeleteFile:
		return "[del]  "
	}
	return "[?]    "
}
