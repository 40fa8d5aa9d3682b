package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentScreen == screenAdd {
			return m.handleAddKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case queueRefreshedMsg:
		if msg.err != nil {
			m.statusMsg = "Queue error: " + msg.err.Error()
			return m, nil
		}
		m.snap = msg.snap
		m.entries = msg.entries
		m.diags = msg.diags
		m.clampCursor()
		// Keep the detail pane in sync with the refreshed entry.
		if m.currentScreen == screenDetail && m.selected != nil {
			found := false
			for i := range m.entries {
				if m.entries[i].Task.ID == m.selected.Task.ID {
					m.selected = &m.entries[i]
					found = true
					break
				}
			}
			if !found {
				m.currentScreen = screenQueue
				m.selected = nil
			}
		}
		return m, nil

	case detailLoadedMsg:
		m.blocked = msg.blocked
		m.reasons = msg.reasons
		m.evaluation = msg.eval
		m.hasEval = msg.hasEval
		return m, nil

	case statusMsgMsg:
		m.statusMsg = string(msg)
		return m, m.refreshQueue()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.currentScreen == screenDetail {
			m.currentScreen = screenQueue
			m.selected = nil
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case "esc":
		if m.currentScreen == screenDetail {
			m.currentScreen = screenQueue
			m.selected = nil
		}
		return m, nil

	case "j", "down":
		m.cursor++
		m.clampCursor()
		return m, nil

	case "k", "up":
		m.cursor--
		m.clampCursor()
		return m, nil

	case "g", "home":
		m.cursor = 0
		return m, nil

	case "G", "end":
		m.cursor = len(m.entries) - 1
		m.clampCursor()
		return m, nil

	case "enter":
		if e := m.entryUnderCursor(); e != nil {
			m.selected = e
			m.currentScreen = screenDetail
			return m, m.loadDetail(e.Task.ID)
		}
		return m, nil

	case "d":
		var id string
		if m.currentScreen == screenDetail && m.selected != nil {
			id = m.selected.Task.ID
		} else if e := m.entryUnderCursor(); e != nil {
			id = e.Task.ID
		}
		if id != "" {
			return m, m.completeTask(id)
		}
		return m, nil

	case "a":
		if m.currentScreen == screenQueue {
			m.currentScreen = screenAdd
			m.titleInput.SetValue("")
			m.titleInput.Focus()
			return m, nil
		}
		return m, nil

	case "r":
		m.statusMsg = ""
		return m, m.refreshQueue()
	}

	return m, nil
}

func (m Model) handleAddKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.currentScreen = screenQueue
		m.titleInput.Blur()
		return m, nil

	case "enter":
		title := m.titleInput.Value()
		m.currentScreen = screenQueue
		m.titleInput.Blur()
		if title == "" {
			return m, nil
		}
		return m, m.addTask(title)
	}

	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(msg)
	return m, cmd
}
