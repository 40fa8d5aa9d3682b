package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hearthd/hearth/internal/model"
	"github.com/hearthd/hearth/internal/queue"
	"github.com/hearthd/hearth/internal/recurrence"
	"github.com/hearthd/hearth/internal/store"
)

// screen represents which view the TUI is showing.
type screen int

const (
	screenQueue  screen = iota // ranked queue (main)
	screenDetail               // single-task detail panel
	screenAdd                  // quick capture into the inbox
)

// SnapshotFunc builds the context snapshot the queue is evaluated against.
// The CLI injects it so the TUI stays ignorant of settings storage.
type SnapshotFunc func() model.ContextSnapshot

// Model is the top-level bubbletea model.
type Model struct {
	store   *store.Store
	builder *queue.Builder
	snapFn  SnapshotFunc

	width  int
	height int

	currentScreen screen

	// Queue state.
	snap    model.ContextSnapshot
	entries []queue.Entry
	diags   []queue.Diagnostic
	cursor  int

	// Detail state for the selected entry.
	selected   *queue.Entry
	blocked    bool
	reasons    []string
	evaluation recurrence.Evaluation
	hasEval    bool

	// Quick-add input.
	titleInput textinput.Model

	statusMsg string
	quitting  bool
}

// New creates a TUI model wired to an open store and queue builder.
func New(s *store.Store, b *queue.Builder, snapFn SnapshotFunc) Model {
	ti := textinput.New()
	ti.Placeholder = "Task title..."
	ti.CharLimit = 120
	ti.Width = 50

	return Model{
		store:         s,
		builder:       b,
		snapFn:        snapFn,
		currentScreen: screenQueue,
		titleInput:    ti,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.refreshQueue()
}

type queueRefreshedMsg struct {
	snap    model.ContextSnapshot
	entries []queue.Entry
	diags   []queue.Diagnostic
	err     error
}

type detailLoadedMsg struct {
	blocked bool
	reasons []string
	eval    recurrence.Evaluation
	hasEval bool
}

type statusMsgMsg string

func (m Model) refreshQueue() tea.Cmd {
	return func() tea.Msg {
		snap := m.snapFn()
		entries, diags, err := m.builder.Build(snap)
		return queueRefreshedMsg{snap: snap, entries: entries, diags: diags, err: err}
	}
}

func (m Model) loadDetail(taskID string) tea.Cmd {
	return func() tea.Msg {
		msg := detailLoadedMsg{}
		blocked, reasons, err := m.builder.Blocked(taskID)
		if err == nil {
			msg.blocked = blocked
			msg.reasons = reasons
		}
		if ev, err := m.builder.EvaluateRecurrence(taskID, time.Now()); err == nil {
			msg.eval = ev
			msg.hasEval = true
		}
		return msg
	}
}

func (m Model) completeTask(taskID string) tea.Cmd {
	return func() tea.Msg {
		next, err := m.builder.Complete(taskID, "", time.Now())
		if err != nil {
			return statusMsgMsg("Error: " + err.Error())
		}
		if err := m.store.UpdateItem(next); err != nil {
			return statusMsgMsg("Error: " + err.Error())
		}
		return statusMsgMsg("Completed: " + next.Title)
	}
}

func (m Model) addTask(title string) tea.Cmd {
	return func() tea.Msg {
		lists, err := m.store.Lists()
		if err != nil {
			return statusMsgMsg("Error: " + err.Error())
		}
		var inbox *model.List
		for _, l := range lists {
			if l.IsInbox {
				inbox = l
				break
			}
		}
		if inbox == nil {
			return statusMsgMsg("No inbox list found")
		}
		t := model.NewTask(title, "")
		t.ListID = inbox.ID
		if err := m.store.CreateItem(t); err != nil {
			return statusMsgMsg("Error: " + err.Error())
		}
		return statusMsgMsg("Added: " + t.Title)
	}
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.entries) {
		m.cursor = len(m.entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) entryUnderCursor() *queue.Entry {
	if m.cursor < len(m.entries) {
		e := m.entries[m.cursor]
		return &e
	}
	return nil
}
