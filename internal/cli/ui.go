package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hearthd/hearth/internal/model"
	"github.com/hearthd/hearth/internal/tui"
	"github.com/spf13/cobra"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive queue dashboard",
	Long:  "Opens an interactive dashboard showing the prioritized queue for the current context, with task detail, completion, and quick capture.",
	RunE:  runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := loadConfig()
	b := newBuilder(s, cfg)

	m := tui.New(s, b, func() model.ContextSnapshot {
		return buildSnapshot(s, cfg, nil)
	})
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	saveMemory(s, b)
	return nil
}
