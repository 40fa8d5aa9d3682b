package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	queueTime    int
	queueVerbose bool
	queueLimit   int
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the prioritized task queue for the current context",
	RunE:  runQueue,
}

func init() {
	queueCmd.Flags().IntVarP(&queueTime, "time", "t", 0, "Available time in minutes (filters by estimate)")
	queueCmd.Flags().BoolVarP(&queueVerbose, "verbose", "v", false, "Show score breakdowns")
	queueCmd.Flags().IntVarP(&queueLimit, "limit", "n", 0, "Show at most n entries")
}

func runQueue(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := loadConfig()
	lg := openLogger()
	defer lg.Close()

	b := newBuilder(s, cfg)

	var avail *int
	if cmd.Flags().Changed("time") {
		avail = &queueTime
	}
	snap := buildSnapshot(s, cfg, avail)

	entries, diags, err := b.Build(snap)
	if err != nil {
		return err
	}
	saveMemory(s, b)
	logDiagnostics(lg, diags)

	fmt.Printf("Context: %s", snap.TimeWindow)
	if snap.Location != "" {
		fmt.Printf(" at %s", snap.Location)
	}
	if len(snap.People) > 0 {
		fmt.Printf(" with %s", strings.Join(snap.People, ", "))
	}
	if snap.AvailableTime != nil {
		fmt.Printf(" (%dm free)", *snap.AvailableTime)
	}
	fmt.Println()

	if len(entries) == 0 {
		fmt.Println("Nothing to do right now.")
		return nil
	}

	for i, e := range entries {
		if queueLimit > 0 && i >= queueLimit {
			fmt.Printf("... and %d more\n", len(entries)-i)
			break
		}
		due := ""
		if e.Task.Due != nil {
			due = " due " + e.Task.Due.Format("2006-01-02")
		}
		fmt.Printf("%3d  %s  %s%s\n", e.Score, shortID(e.Task.ID), e.Task.Title, due)
		if queueVerbose {
			parts := e.Breakdown.Parts()
			if len(parts) == 0 {
				parts = []string{"no score contributions"}
			}
			fmt.Printf("       %s\n", strings.Join(parts, ", "))
		}
	}
	if len(diags) > 0 {
		fmt.Printf("(%d task(s) skipped with errors, see logs)\n", len(diags))
	}
	return nil
}
