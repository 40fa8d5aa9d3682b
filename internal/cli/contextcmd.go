package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	ctxLocation string
	ctxPeople   []string
	ctxTags     []string
	ctxClear    bool
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Show or override the ambient context used by the queue",
	RunE:  runContextShow,
}

var contextSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Persist context overrides (location, people, tags)",
	RunE:  runContextSet,
}

func init() {
	contextSetCmd.Flags().StringVar(&ctxLocation, "location", "", "Current location")
	contextSetCmd.Flags().StringSliceVar(&ctxPeople, "people", nil, "People currently present")
	contextSetCmd.Flags().StringSliceVar(&ctxTags, "tags", nil, "Active context tags")
	contextSetCmd.Flags().BoolVar(&ctxClear, "clear", false, "Drop all overrides")
	contextCmd.AddCommand(contextSetCmd)
}

func runContextSet(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if ctxClear {
		for _, key := range []string{settingLocation, settingPeople, settingContextTags} {
			if err := s.SetSetting(key, ""); err != nil {
				return err
			}
		}
		fmt.Println("Context overrides cleared.")
		return nil
	}

	if cmd.Flags().Changed("location") {
		if err := s.SetSetting(settingLocation, ctxLocation); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("people") {
		data, err := json.Marshal(ctxPeople)
		if err != nil {
			return err
		}
		if err := s.SetSetting(settingPeople, string(data)); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("tags") {
		data, err := json.Marshal(ctxTags)
		if err != nil {
			return err
		}
		if err := s.SetSetting(settingContextTags, string(data)); err != nil {
			return err
		}
	}
	fmt.Println("Context updated.")
	return nil
}

func runContextShow(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := loadConfig()
	snap := buildSnapshot(s, cfg, nil)

	fmt.Printf("Time window: %s (%s)\n", snap.TimeWindow, time.Now().Format("Mon 15:04"))
	fmt.Printf("Location:    %s\n", snap.Location)
	if len(snap.People) > 0 {
		fmt.Printf("People:      %s\n", strings.Join(snap.People, ", "))
	} else {
		fmt.Println("People:      (nobody home)")
	}
	if len(snap.ContextTags) > 0 {
		fmt.Printf("Tags:        %s\n", strings.Join(snap.ContextTags, ", "))
	}
	return nil
}
