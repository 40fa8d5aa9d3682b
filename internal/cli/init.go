package cli

import (
	"fmt"
	"os"

	"github.com/hearthd/hearth/internal/config"
	"github.com/hearthd/hearth/internal/model"
	"github.com/hearthd/hearth/internal/store"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize hearth in the current directory",
	Long:  "Creates a .hearth/ directory with default config, database, and an inbox list.",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	// Check if already initialized.
	if _, err := os.Stat(hearthDirName); err == nil {
		return fmt.Errorf("hearth already initialized in this directory (.hearth/ exists)")
	}

	if err := os.MkdirAll(hearthDirName, 0755); err != nil {
		return fmt.Errorf("create .hearth: %w", err)
	}

	// Write default config.
	cfg := config.DefaultConfig()
	if err := config.Save(hearthPath("config.yaml"), cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	// Create database by opening store (migration runs automatically).
	s, err := store.New(hearthPath("hearth.db"))
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	defer s.Close()

	// Every project starts with an inbox.
	inbox := model.NewList("Inbox", "")
	inbox.IsInbox = true
	if err := s.CreateList(inbox); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}

	fmt.Println("Initialized hearth in .hearth/")
	fmt.Println("")
	fmt.Println("Next steps:")
	fmt.Println("  1. Add a task:  hearth task add \"take out the bins\"")
	fmt.Println("  2. See the queue:  hearth queue")
	fmt.Println("  3. Tune policy in .hearth/config.yaml")
	return nil
}
