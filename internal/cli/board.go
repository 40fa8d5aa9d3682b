package cli

import (
	"fmt"
	"strings"

	"github.com/hearthd/hearth/internal/model"
	"github.com/spf13/cobra"
)

// ANSI color codes.
const (
	colorReset   = "\033[0m"
	colorBold    = "\033[1m"
	colorDim     = "\033[2m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorWhite   = "\033[37m"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show tasks as a status board",
	RunE:  runBoard,
}

func runBoard(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	tasks, err := s.AllItems()
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Printf("%sBoard is empty.%s Add a task: %shearth task add \"title\"%s\n",
			colorDim, colorReset, colorCyan, colorReset)
		return nil
	}

	cfg := loadConfig()
	b := newBuilder(s, cfg)

	// Pending tasks whose blockers currently hold move to their own column.
	const columnBlocked = "blocked"
	columns := map[string][]*model.Task{}
	for _, t := range tasks {
		key := string(t.Status)
		if t.Status == model.StatusPending && t.Blockers != nil {
			if blocked, _, err := b.Blocked(t.ID); err == nil && blocked {
				key = columnBlocked
			}
		}
		columns[key] = append(columns[key], t)
	}

	type col struct {
		key   string
		label string
		color string
	}
	order := []col{
		{string(model.StatusPending), "PENDING", colorWhite},
		{string(model.StatusInProgress), "IN PROGRESS", colorBlue},
		{columnBlocked, "BLOCKED", colorRed},
		{string(model.StatusMissed), "MISSED", colorYellow},
		{string(model.StatusCompleted), "COMPLETED", colorGreen},
	}

	// Print header.
	colWidth := 24
	headerLine := ""
	sepLine := ""
	for _, c := range order {
		count := len(columns[c.key])
		header := fmt.Sprintf(" %s%s%s (%d)", c.color+colorBold, c.label, colorReset, count)
		// padRight needs visible length, not byte length (ANSI codes add bytes).
		visibleLen := len(fmt.Sprintf(" %s (%d)", c.label, count))
		padding := colWidth - visibleLen
		if padding < 0 {
			padding = 0
		}
		headerLine += header + strings.Repeat(" ", padding)
		sepLine += strings.Repeat("─", colWidth)
	}
	fmt.Println(headerLine)
	fmt.Println(colorDim + sepLine + colorReset)

	maxRows := 0
	for _, c := range order {
		if len(columns[c.key]) > maxRows {
			maxRows = len(columns[c.key])
		}
	}

	for i := 0; i < maxRows; i++ {
		line := ""
		for _, c := range order {
			cards := columns[c.key]
			if i < len(cards) {
				t := cards[i]
				priColor := priorityColor(t.Priority)
				idStr := shortID(t.ID)
				titleStr := truncate(t.Title, colWidth-len(idStr)-3)
				card := fmt.Sprintf(" %s%s%s %s", priColor, idStr, colorReset, titleStr)
				visibleLen := len(fmt.Sprintf(" %s %s", idStr, titleStr))
				padding := colWidth - visibleLen
				if padding < 0 {
					padding = 0
				}
				line += card + strings.Repeat(" ", padding)
			} else {
				line += strings.Repeat(" ", colWidth)
			}
		}
		fmt.Println(line)

		detailLine := ""
		for _, c := range order {
			cards := columns[c.key]
			if i < len(cards) {
				t := cards[i]
				detail := ""
				visibleDetail := ""
				if t.Due != nil {
					due := t.Due.Format("Jan 2")
					detail = fmt.Sprintf("    %sdue %s%s", colorDim, due, colorReset)
					visibleDetail = fmt.Sprintf("    due %s", due)
				}
				if t.NeedsDetail {
					detail = fmt.Sprintf("    %s? needs detail%s", colorYellow, colorReset)
					visibleDetail = "    ? needs detail"
				}
				padding := colWidth - len(visibleDetail)
				if padding < 0 {
					padding = 0
				}
				detailLine += detail + strings.Repeat(" ", padding)
			} else {
				detailLine += strings.Repeat(" ", colWidth)
			}
		}
		fmt.Println(detailLine)
	}
	return nil
}

func priorityColor(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return colorRed
	case model.PriorityMedium:
		return colorYellow
	case model.PriorityLow:
		return colorGreen
	default:
		return colorWhite
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
