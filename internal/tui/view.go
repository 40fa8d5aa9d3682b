package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hearthd/hearth/internal/model"
)

// --- Color palette ---
var (
	clrSubtle    = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#666666"}
	clrHighlight = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	clrGreen     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	clrYellow    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	clrRed       = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	clrDim       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}
)

// --- Styles ---
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	dimStyle    = lipgloss.NewStyle().Foreground(clrDim)
	subtleStyle = lipgloss.NewStyle().Foreground(clrSubtle)

	scoreStyle    = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight).Width(4).Align(lipgloss.Right)
	selectedStyle = lipgloss.NewStyle().Bold(true)

	atRiskStyle  = lipgloss.NewStyle().Foreground(clrYellow)
	blockedStyle = lipgloss.NewStyle().Foreground(clrRed)
	doneStyle    = lipgloss.NewStyle().Foreground(clrGreen)

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrSubtle).
			Padding(1, 2).
			Width(64)

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(clrHighlight).
			Padding(1, 2).
			Width(60)

	statusStyle = lipgloss.NewStyle().Foreground(clrGreen).Bold(true)

	footerKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	footerDescStyle = lipgloss.NewStyle().Foreground(clrSubtle)
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.currentScreen {
	case screenQueue:
		content = m.viewQueue()
	case screenDetail:
		content = m.viewDetail()
	case screenAdd:
		content = m.viewQueue() + "\n" + m.viewAddPopup()
	}
	return content
}

func (m Model) viewQueue() string {
	var b strings.Builder

	header := titleStyle.Render("hearth queue")
	header += dimStyle.Render(fmt.Sprintf(" · %s", m.snap.TimeWindow))
	if m.snap.Location != "" {
		header += dimStyle.Render(" at " + m.snap.Location)
	}
	if len(m.snap.People) > 0 {
		header += dimStyle.Render(" with " + strings.Join(m.snap.People, ", "))
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		b.WriteString(dimStyle.Render("  Nothing to do right now."))
		b.WriteString("\n")
	}

	for i, e := range m.entries {
		cursor := "  "
		line := fmt.Sprintf("%s %s", scoreStyle.Render(fmt.Sprintf("%d", e.Score)), e.Task.Title)
		if e.Task.Due != nil {
			line += dimStyle.Render("  due " + e.Task.Due.Format("Jan 2"))
		}
		if e.Task.Priority != "" {
			line += subtleStyle.Render("  [" + string(e.Task.Priority) + "]")
		}
		if i == m.cursor {
			cursor = titleStyle.Render("> ")
			line = selectedStyle.Render(line)
		}
		b.WriteString(cursor + line + "\n")
	}

	if len(m.diags) > 0 {
		b.WriteString("\n")
		b.WriteString(atRiskStyle.Render(fmt.Sprintf("  %d task(s) skipped with errors", len(m.diags))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.statusMsg != "" {
		b.WriteString(statusStyle.Render(m.statusMsg))
		b.WriteString("\n")
	}
	b.WriteString(m.footer([][2]string{
		{"j/k", "move"}, {"enter", "detail"}, {"d", "done"}, {"a", "add"}, {"r", "refresh"}, {"q", "quit"},
	}))
	return b.String()
}

func (m Model) viewDetail() string {
	if m.selected == nil {
		return m.viewQueue()
	}
	t := m.selected.Task

	var b strings.Builder
	b.WriteString(titleStyle.Render(t.Title))
	b.WriteString("\n\n")

	if t.Description != "" {
		b.WriteString(t.Description)
		b.WriteString("\n\n")
	}

	b.WriteString(subtleStyle.Render("Status   ") + string(t.Status) + "\n")
	if t.Priority != "" {
		b.WriteString(subtleStyle.Render("Priority ") + string(t.Priority) + "\n")
	}
	if t.Due != nil {
		b.WriteString(subtleStyle.Render("Due      ") + t.Due.Format("2006-01-02 15:04") + "\n")
	}
	if t.TimeEstimate > 0 {
		b.WriteString(subtleStyle.Render("Estimate ") + fmt.Sprintf("%dm", t.TimeEstimate) + "\n")
	}
	if len(t.Tags) > 0 {
		b.WriteString(subtleStyle.Render("Tags     ") + strings.Join(t.Tags, ", ") + "\n")
	}

	b.WriteString("\n")
	b.WriteString(subtleStyle.Render("Score    ") + fmt.Sprintf("%d", m.selected.Score) + "\n")
	for _, part := range m.selected.Breakdown.Parts() {
		b.WriteString(dimStyle.Render("         " + part))
		b.WriteString("\n")
	}

	if m.hasEval && t.Recurrence != nil {
		b.WriteString("\n")
		streak := fmt.Sprintf("%d", m.evaluation.Streak)
		if m.evaluation.StreakAtRisk {
			streak += atRiskStyle.Render(" (at risk)")
		}
		b.WriteString(subtleStyle.Render("Streak   ") + streak + "\n")
		if m.evaluation.NextDue != nil {
			b.WriteString(subtleStyle.Render("Next due ") + m.evaluation.NextDue.Format("2006-01-02") + "\n")
		}
		if f := m.evaluation.Frequency; f != nil {
			goal := fmt.Sprintf("%d/%d, %d days left", f.Count, f.Target, f.DaysRemaining)
			if f.Satisfied {
				goal = doneStyle.Render(goal + " ✓")
			}
			b.WriteString(subtleStyle.Render("Goal     ") + goal + "\n")
		}
	}

	if m.blocked {
		b.WriteString("\n")
		b.WriteString(blockedStyle.Render("Blocked:"))
		b.WriteString("\n")
		for _, r := range m.reasons {
			b.WriteString(blockedStyle.Render("  - " + r))
			b.WriteString("\n")
		}
	}

	if t.HasTrait(model.TraitHabit) && t.CurrentStreak > 0 {
		b.WriteString("\n")
		b.WriteString(doneStyle.Render(fmt.Sprintf("Habit streak: %d", t.CurrentStreak)))
		b.WriteString("\n")
	}

	content := detailStyle.Render(b.String())
	footer := m.footer([][2]string{{"d", "done"}, {"esc", "back"}, {"q", "back"}})
	return content + "\n" + footer
}

func (m Model) viewAddPopup() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("New task"))
	b.WriteString("\n\n")
	b.WriteString(m.titleInput.View())
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("enter save · esc cancel"))
	return popupStyle.Render(b.String())
}

func (m Model) footer(keys [][2]string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, footerKeyStyle.Render(k[0])+footerDescStyle.Render(" "+k[1]))
	}
	return strings.Join(parts, footerDescStyle.Render("  ·  "))
}
