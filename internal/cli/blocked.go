package cli

import (
	"fmt"

	"github.com/hearthd/hearth/internal/model"
	"github.com/spf13/cobra"
)

var blockedCmd = &cobra.Command{
	Use:   "blocked [id]",
	Short: "Show blocked tasks, or why one task is blocked",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBlocked,
}

func runBlocked(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := loadConfig()
	b := newBuilder(s, cfg)

	if len(args) == 1 {
		t, err := resolveTask(s, args[0])
		if err != nil {
			return err
		}
		blocked, reasons, err := b.Blocked(t.ID)
		if err != nil {
			return err
		}
		if !blocked {
			fmt.Printf("%s is not blocked.\n", t.Title)
			return nil
		}
		fmt.Printf("%s is blocked:\n", t.Title)
		for _, r := range reasons {
			fmt.Printf("  - %s\n", r)
		}
		return nil
	}

	tasks, err := s.AllItems()
	if err != nil {
		return err
	}
	n := 0
	for _, t := range tasks {
		if t.Status == model.StatusCompleted || t.Blockers == nil {
			continue
		}
		blocked, reasons, err := b.Blocked(t.ID)
		if err != nil || !blocked {
			continue
		}
		n++
		fmt.Printf("%s  %s\n", shortID(t.ID), t.Title)
		for _, r := range reasons {
			fmt.Printf("    - %s\n", r)
		}
	}
	if n == 0 {
		fmt.Println("No blocked tasks.")
	}
	return nil
}
