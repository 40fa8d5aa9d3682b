package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hearthd/hearth/internal/model"
	"github.com/hearthd/hearth/internal/store"
	"github.com/spf13/cobra"
)

var (
	taskDescription  string
	taskListName     string
	taskDue          string
	taskEstimate     int
	taskBufferBefore int
	taskBufferAfter  int
	taskPriority     string
	taskTraits       []string
	taskTags         []string
	taskActor        string

	blockMode    string
	blockItems   []string
	blockSensors []string
	itemMode     string
	sensorMode   string

	reqMode     string
	reqLocation []string
	reqPeople   []string
	reqTime     []string
	reqContext  []string
	reqSensors  []string

	recurKind       string
	recurPattern    string
	recurInterval   int
	recurUnit       string
	recurTarget     int
	recurPeriod     int
	recurPeriodUnit string
	recurThresholds []string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create or manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a new task",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list [status]",
	Short: "List tasks, optionally filtered by status",
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show task details, recurrence state included",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskDoneCmd = &cobra.Command{
	Use:   "done [id]",
	Short: "Complete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDone,
}

var taskStartCmd = &cobra.Command{
	Use:   "start [id]",
	Short: "Mark a task in progress",
	Args:  cobra.ExactArgs(1),
	RunE:  statusSetter(model.StatusInProgress),
}

var taskMissCmd = &cobra.Command{
	Use:   "miss [id]",
	Short: "Mark a task missed",
	Args:  cobra.ExactArgs(1),
	RunE:  statusSetter(model.StatusMissed),
}

var taskReopenCmd = &cobra.Command{
	Use:   "reopen [id]",
	Short: "Set a task back to pending",
	Args:  cobra.ExactArgs(1),
	RunE:  statusSetter(model.StatusPending),
}

var taskRmCmd = &cobra.Command{
	Use:   "rm [id]",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskRm,
}

var taskTraitsCmd = &cobra.Command{
	Use:   "traits [id] [trait...]",
	Short: "Replace a task's trait set",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTaskTraits,
}

var taskTagCmd = &cobra.Command{
	Use:   "tag [id] [tag...]",
	Short: "Add tags to a task",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTaskTag,
}

var taskUntagCmd = &cobra.Command{
	Use:   "untag [id] [tag...]",
	Short: "Remove tags from a task",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTaskUntag,
}

var taskFlagCmd = &cobra.Command{
	Use:   "flag [id]",
	Short: "Toggle the needs-detail flag",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskFlag,
}

var taskDueCmd = &cobra.Command{
	Use:   "due [id] [timestamp|clear]",
	Short: "Set or clear a task's due timestamp",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskDue,
}

var taskEstimateCmd = &cobra.Command{
	Use:   "estimate [id] [minutes]",
	Short: "Set a task's time estimate",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskEstimate,
}

var taskPriorityCmd = &cobra.Command{
	Use:   "priority [id] [high|medium|low|none]",
	Short: "Set or clear a task's priority",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskPriority,
}

var taskBlockersCmd = &cobra.Command{
	Use:   "blockers [id]",
	Short: "Set a task's blockers (empty flags clear them)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskBlockers,
}

var taskRequireCmd = &cobra.Command{
	Use:   "require [id]",
	Short: "Set a task's contextual requirements (empty flags clear them)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskRequire,
}

var taskRecurCmd = &cobra.Command{
	Use:   "recur [id]",
	Short: "Set a task's recurrence rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskRecur,
}

func init() {
	taskAddCmd.Flags().StringVarP(&taskDescription, "desc", "d", "", "Task description")
	taskAddCmd.Flags().StringVarP(&taskListName, "list", "l", "", "Target list (default: inbox)")
	taskAddCmd.Flags().StringVar(&taskDue, "due", "", "Due timestamp (2006-01-02 or RFC3339)")
	taskAddCmd.Flags().IntVar(&taskEstimate, "estimate", 0, "Time estimate in minutes")
	taskAddCmd.Flags().IntVar(&taskBufferBefore, "buffer-before", 0, "Prep buffer in minutes, counted against the time budget")
	taskAddCmd.Flags().IntVar(&taskBufferAfter, "buffer-after", 0, "Cleanup buffer in minutes, counted against the time budget")
	taskAddCmd.Flags().StringVarP(&taskPriority, "priority", "p", "", "Priority: high, medium, low")
	taskAddCmd.Flags().StringSliceVar(&taskTraits, "traits", nil, "Traits (default: actionable)")
	taskAddCmd.Flags().StringSliceVar(&taskTags, "tags", nil, "Tags")
	taskAddCmd.Flags().StringVar(&taskActor, "by", "", "Creator identifier")

	taskDoneCmd.Flags().StringVar(&taskActor, "by", "", "Actor completing the task")

	taskEstimateCmd.Flags().IntVar(&taskBufferBefore, "buffer-before", 0, "Prep buffer in minutes")
	taskEstimateCmd.Flags().IntVar(&taskBufferAfter, "buffer-after", 0, "Cleanup buffer in minutes")

	taskBlockersCmd.Flags().StringVar(&blockMode, "mode", "", "Top-level mode: ANY or ALL (default ALL)")
	taskBlockersCmd.Flags().StringVar(&itemMode, "item-mode", "", "Item mode: ANY or ALL (default ANY)")
	taskBlockersCmd.Flags().StringVar(&sensorMode, "sensor-mode", "", "Sensor mode: ANY or ALL (default ANY)")
	taskBlockersCmd.Flags().StringSliceVar(&blockItems, "items", nil, "Blocking task IDs")
	taskBlockersCmd.Flags().StringSliceVar(&blockSensors, "sensors", nil, "Blocking sensor names")

	taskRequireCmd.Flags().StringVar(&reqMode, "mode", "", "Mode: ANY or ALL (default ALL)")
	taskRequireCmd.Flags().StringSliceVar(&reqLocation, "location", nil, "Allowed locations")
	taskRequireCmd.Flags().StringSliceVar(&reqPeople, "people", nil, "Required people")
	taskRequireCmd.Flags().StringSliceVar(&reqTime, "time", nil, "Allowed time windows")
	taskRequireCmd.Flags().StringSliceVar(&reqContext, "context", nil, "Required context tags")
	taskRequireCmd.Flags().StringSliceVar(&reqSensors, "sensors", nil, "Required sensors (on)")

	taskRecurCmd.Flags().StringVar(&recurKind, "kind", "", "Kind: calendar, elapsed, frequency")
	taskRecurCmd.Flags().StringVar(&recurPattern, "pattern", "", "Calendar pattern: daily, weekly, monthly, yearly")
	taskRecurCmd.Flags().IntVar(&recurInterval, "interval", 0, "Elapsed interval count")
	taskRecurCmd.Flags().StringVar(&recurUnit, "unit", "", "Elapsed unit: days, weeks, months, years")
	taskRecurCmd.Flags().IntVar(&recurTarget, "target", 0, "Frequency target count")
	taskRecurCmd.Flags().IntVar(&recurPeriod, "period", 0, "Frequency period length")
	taskRecurCmd.Flags().StringVar(&recurPeriodUnit, "period-unit", "", "Frequency period unit")
	taskRecurCmd.Flags().StringSliceVar(&recurThresholds, "threshold", nil, "Threshold as days:priority, e.g. 5:high")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskStartCmd)
	taskCmd.AddCommand(taskMissCmd)
	taskCmd.AddCommand(taskReopenCmd)
	taskCmd.AddCommand(taskRmCmd)
	taskCmd.AddCommand(taskTraitsCmd)
	taskCmd.AddCommand(taskTagCmd)
	taskCmd.AddCommand(taskUntagCmd)
	taskCmd.AddCommand(taskFlagCmd)
	taskCmd.AddCommand(taskDueCmd)
	taskCmd.AddCommand(taskEstimateCmd)
	taskCmd.AddCommand(taskPriorityCmd)
	taskCmd.AddCommand(taskBlockersCmd)
	taskCmd.AddCommand(taskRequireCmd)
	taskCmd.AddCommand(taskRecurCmd)
}

// resolveTask finds a task by full ID or unique prefix.
func resolveTask(s *store.Store, idOrPrefix string) (*model.Task, error) {
	if t, err := s.GetItem(idOrPrefix); err == nil {
		return t, nil
	}
	all, err := s.AllItems()
	if err != nil {
		return nil, err
	}
	var match *model.Task
	for _, t := range all {
		if strings.HasPrefix(t.ID, idOrPrefix) {
			if match != nil {
				return nil, fmt.Errorf("task ID prefix %q is ambiguous", idOrPrefix)
			}
			match = t
		}
	}
	if match == nil {
		return nil, fmt.Errorf("task %q not found", idOrPrefix)
	}
	return match, nil
}

// resolveList finds a list by ID, name, or falls back to the inbox.
func resolveList(s *store.Store, nameOrID string) (*model.List, error) {
	lists, err := s.Lists()
	if err != nil {
		return nil, err
	}
	if nameOrID == "" {
		for _, l := range lists {
			if l.IsInbox {
				return l, nil
			}
		}
		return nil, fmt.Errorf("no inbox list; create one with: hearth list create")
	}
	for _, l := range lists {
		if l.ID == nameOrID || strings.EqualFold(l.Name, nameOrID) {
			return l, nil
		}
	}
	return nil, fmt.Errorf("list %q not found", nameOrID)
}

func parseDue(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if ts, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("invalid due %q (want 2006-01-02 or RFC3339)", v)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := resolveList(s, taskListName)
	if err != nil {
		return err
	}

	t := model.NewTask(strings.Join(args, " "), taskActor)
	t.ListID = list.ID
	t.Description = taskDescription
	t.TimeEstimate = taskEstimate
	if !cmd.Flags().Changed("estimate") {
		t.TimeEstimate = loadConfig().DefaultTimeEstimate
	}
	if taskBufferBefore < 0 || taskBufferAfter < 0 {
		return fmt.Errorf("buffers must not be negative")
	}
	t.BufferBefore = taskBufferBefore
	t.BufferAfter = taskBufferAfter

	if taskDue != "" {
		due, err := parseDue(taskDue)
		if err != nil {
			return err
		}
		t.Due = due
	}
	if taskPriority != "" {
		switch p := model.Priority(taskPriority); p {
		case model.PriorityLow, model.PriorityMedium, model.PriorityHigh:
			t.Priority = p
		default:
			return fmt.Errorf("invalid priority %q", taskPriority)
		}
	}
	if len(taskTraits) > 0 {
		traits := make([]model.Trait, len(taskTraits))
		for i, tr := range taskTraits {
			traits[i] = model.Trait(tr)
		}
		if err := t.SetTraits(traits); err != nil {
			return err
		}
	}
	t.AddTags(taskTags...)

	if err := s.CreateItem(t); err != nil {
		return err
	}
	fmt.Printf("Added %s to %s: %s\n", shortID(t.ID), list.Name, t.Title)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	tasks, err := s.AllItems()
	if err != nil {
		return err
	}

	var filter model.Status
	if len(args) > 0 {
		filter = model.Status(args[0])
		if !model.ValidStatus(filter) {
			return fmt.Errorf("invalid status %q", args[0])
		}
	}

	n := 0
	for _, t := range tasks {
		if filter != "" && t.Status != filter {
			continue
		}
		n++
		due := ""
		if t.Due != nil {
			due = " due " + t.Due.Format("2006-01-02")
		}
		tags := ""
		if len(t.Tags) > 0 {
			tags = " #" + strings.Join(t.Tags, " #")
		}
		fmt.Printf("%s  %-12s %s%s%s\n", shortID(t.ID), t.Status, t.Title, due, tags)
	}
	if n == 0 {
		fmt.Println("No tasks found.")
	}
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := resolveTask(s, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Task %s\n", t.ID)
	fmt.Printf("  Title:    %s\n", t.Title)
	fmt.Printf("  Status:   %s\n", t.Status)
	if t.Description != "" {
		fmt.Printf("  Desc:     %s\n", t.Description)
	}
	traits := make([]string, len(t.Traits))
	for i, tr := range t.Traits {
		traits[i] = string(tr)
	}
	fmt.Printf("  Traits:   %s\n", strings.Join(traits, ", "))
	if len(t.Tags) > 0 {
		fmt.Printf("  Tags:     %s\n", strings.Join(t.Tags, ", "))
	}
	if t.Priority != "" {
		fmt.Printf("  Priority: %s\n", t.Priority)
	}
	if t.Due != nil {
		fmt.Printf("  Due:      %s\n", t.Due.Format("2006-01-02 15:04"))
	}
	if t.TimeEstimate > 0 {
		fmt.Printf("  Estimate: %dm (+%dm/+%dm buffers)\n", t.TimeEstimate, t.BufferBefore, t.BufferAfter)
	}
	if t.NeedsDetail {
		fmt.Printf("  Flagged:  needs detail\n")
	}
	fmt.Printf("  Created:  %s\n", t.CreatedAt.Format("2006-01-02 15:04"))

	cfg := loadConfig()
	b := newBuilder(s, cfg)
	if t.Recurrence != nil {
		ev, err := b.EvaluateRecurrence(t.ID, time.Now())
		if err != nil {
			fmt.Printf("  Recurrence: invalid (%v)\n", err)
		} else {
			fmt.Printf("  Streak:   %d", ev.Streak)
			if ev.StreakAtRisk {
				fmt.Printf(" (at risk)")
			}
			fmt.Println()
			if ev.NextDue != nil {
				fmt.Printf("  Next due: %s\n", ev.NextDue.Format("2006-01-02 15:04"))
			}
			if f := ev.Frequency; f != nil {
				fmt.Printf("  Goal:     %d/%d, %d days left", f.Count, f.Target, f.DaysRemaining)
				if f.Priority != "" {
					fmt.Printf(" [%s]", f.Priority)
				}
				fmt.Println()
			}
		}
	}

	blocked, reasons, err := b.Blocked(t.ID)
	if err == nil && blocked {
		fmt.Println("  Blocked:")
		for _, r := range reasons {
			fmt.Printf("    - %s\n", r)
		}
	}

	if len(t.CompletionHistory) > 0 {
		last := t.CompletionHistory[len(t.CompletionHistory)-1]
		fmt.Printf("  Completions: %d (last %s)\n", len(t.CompletionHistory), last.Timestamp.Format("2006-01-02"))
	}
	return nil
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := resolveTask(s, args[0])
	if err != nil {
		return err
	}

	cfg := loadConfig()
	b := newBuilder(s, cfg)
	next, err := b.Complete(t.ID, taskActor, time.Now())
	if err != nil {
		return err
	}
	if err := s.UpdateItem(next); err != nil {
		return fmt.Errorf("persist completion: %w", err)
	}

	msg := fmt.Sprintf("Completed: %s", next.Title)
	if next.CurrentStreak > 1 {
		msg += fmt.Sprintf(" (streak %d)", next.CurrentStreak)
	}
	fmt.Println(msg)
	return nil
}

func statusSetter(status model.Status) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := mustStore()
		if err != nil {
			return err
		}
		defer s.Close()

		t, err := resolveTask(s, args[0])
		if err != nil {
			return err
		}
		if err := s.SetStatus(t.ID, status); err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", status, t.Title)
		return nil
	}
}

func runTaskRm(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := resolveTask(s, args[0])
	if err != nil {
		return err
	}
	if err := s.DeleteItem(t.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted: %s\n", t.Title)
	return nil
}

func runTaskTraits(cmd *cobra.Command, args []string) error {
	return mutateTask(args[0], func(t *model.Task) error {
		traits := make([]model.Trait, 0, len(args)-1)
		for _, tr := range args[1:] {
			traits = append(traits, model.Trait(tr))
		}
		return t.SetTraits(traits)
	})
}

func runTaskTag(cmd *cobra.Command, args []string) error {
	return mutateTask(args[0], func(t *model.Task) error {
		t.AddTags(args[1:]...)
		return nil
	})
}

func runTaskUntag(cmd *cobra.Command, args []string) error {
	return mutateTask(args[0], func(t *model.Task) error {
		t.RemoveTags(args[1:]...)
		return nil
	})
}

func runTaskFlag(cmd *cobra.Command, args []string) error {
	return mutateTask(args[0], func(t *model.Task) error {
		t.NeedsDetail = !t.NeedsDetail
		return nil
	})
}

func runTaskDue(cmd *cobra.Command, args []string) error {
	return mutateTask(args[0], func(t *model.Task) error {
		if args[1] == "clear" {
			t.Due = nil
			return nil
		}
		due, err := parseDue(args[1])
		if err != nil {
			return err
		}
		t.Due = due
		return nil
	})
}

func runTaskEstimate(cmd *cobra.Command, args []string) error {
	return mutateTask(args[0], func(t *model.Task) error {
		mins, err := strconv.Atoi(args[1])
		if err != nil || mins < 0 {
			return fmt.Errorf("invalid estimate %q (want minutes)", args[1])
		}
		if taskBufferBefore < 0 || taskBufferAfter < 0 {
			return fmt.Errorf("buffers must not be negative")
		}
		t.TimeEstimate = mins
		if cmd.Flags().Changed("buffer-before") {
			t.BufferBefore = taskBufferBefore
		}
		if cmd.Flags().Changed("buffer-after") {
			t.BufferAfter = taskBufferAfter
		}
		return nil
	})
}

func runTaskPriority(cmd *cobra.Command, args []string) error {
	return mutateTask(args[0], func(t *model.Task) error {
		if args[1] == "none" {
			t.Priority = ""
			return nil
		}
		switch p := model.Priority(args[1]); p {
		case model.PriorityLow, model.PriorityMedium, model.PriorityHigh:
			t.Priority = p
			return nil
		default:
			return fmt.Errorf("invalid priority %q", args[1])
		}
	})
}

func runTaskBlockers(cmd *cobra.Command, args []string) error {
	return mutateTask(args[0], func(t *model.Task) error {
		if len(blockItems) == 0 && len(blockSensors) == 0 {
			t.Blockers = nil
			return nil
		}
		spec := &model.BlockerSpec{
			Mode:       model.Mode(strings.ToUpper(blockMode)),
			ItemMode:   model.Mode(strings.ToUpper(itemMode)),
			SensorMode: model.Mode(strings.ToUpper(sensorMode)),
			Items:      blockItems,
			Sensors:    blockSensors,
		}
		if err := spec.Validate(); err != nil {
			return err
		}
		t.Blockers = spec
		return nil
	})
}

func runTaskRequire(cmd *cobra.Command, args []string) error {
	return mutateTask(args[0], func(t *model.Task) error {
		spec := &model.RequirementSpec{
			Mode:            model.Mode(strings.ToUpper(reqMode)),
			Location:        reqLocation,
			People:          reqPeople,
			TimeConstraints: reqTime,
			Context:         reqContext,
			Sensors:         reqSensors,
		}
		if spec.Empty() {
			t.Requirements = nil
			return nil
		}
		if err := spec.Validate(); err != nil {
			return err
		}
		t.Requirements = spec
		return nil
	})
}

func runTaskRecur(cmd *cobra.Command, args []string) error {
	return mutateTask(args[0], func(t *model.Task) error {
		if recurKind == "" {
			t.Recurrence = nil
			return nil
		}
		rule := &model.RecurrenceRule{
			Kind:       model.RecurrenceKind(recurKind),
			Pattern:    model.CalendarPattern(recurPattern),
			Interval:   recurInterval,
			Unit:       model.Unit(recurUnit),
			Target:     recurTarget,
			Period:     recurPeriod,
			PeriodUnit: model.Unit(recurPeriodUnit),
		}
		for _, spec := range recurThresholds {
			th, err := parseThreshold(spec)
			if err != nil {
				return err
			}
			rule.Thresholds = append(rule.Thresholds, th)
		}
		if err := rule.Validate(); err != nil {
			return err
		}
		t.Recurrence = rule
		if !t.HasTrait(model.TraitRecurring) {
			t.Traits = append(t.Traits, model.TraitRecurring)
		}
		return nil
	})
}

func parseThreshold(spec string) (model.Threshold, error) {
	days, priority, ok := strings.Cut(spec, ":")
	if !ok {
		return model.Threshold{}, fmt.Errorf("invalid threshold %q (want days:priority)", spec)
	}
	n, err := strconv.Atoi(days)
	if err != nil {
		return model.Threshold{}, fmt.Errorf("invalid threshold days %q", days)
	}
	return model.Threshold{AtDaysRemaining: n, Priority: model.Priority(priority)}, nil
}

// mutateTask loads a task, applies fn, and persists the result.
func mutateTask(idOrPrefix string, fn func(*model.Task) error) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := resolveTask(s, idOrPrefix)
	if err != nil {
		return err
	}
	if err := fn(t); err != nil {
		return err
	}
	if err := s.UpdateItem(t); err != nil {
		return err
	}
	fmt.Printf("Updated: %s\n", t.Title)
	return nil
}
