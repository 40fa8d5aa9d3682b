package queue

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hearthd/hearth/internal/model"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeSource serves a fixed task slice.
type fakeSource struct {
	tasks []*model.Task
	err   error
}

func (f *fakeSource) Tasks() ([]*model.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tasks, nil
}

func (f *fakeSource) FindTask(id string) (*model.Task, bool) {
	for _, t := range f.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

type fakeSensors map[string]bool

func (f fakeSensors) SensorState(ref string) (on bool, known bool) {
	on, known = f[ref]
	return on, known
}

// newTask builds an actionable pending task with a stable creation time.
func newTask(id string) *model.Task {
	return &model.Task{
		ID:        id,
		Title:     id,
		Traits:    []model.Trait{model.TraitActionable},
		Status:    model.StatusPending,
		CreatedAt: testNow.Add(-time.Hour),
	}
}

func testBuilder(tasks ...*model.Task) (*Builder, *fakeSource) {
	src := &fakeSource{tasks: tasks}
	return NewBuilder(src, fakeSensors{}, DefaultPolicy()), src
}

func snap() model.ContextSnapshot {
	return model.ContextSnapshot{
		Location:   "home",
		TimeWindow: "business_hours",
		Now:        testNow,
	}
}

func due(daysFromNow float64) *time.Time {
	d := testNow.Add(time.Duration(daysFromNow * 24 * float64(time.Hour)))
	return &d
}

// --- Caller misuse ---

func TestBuild_ZeroClockAborts(t *testing.T) {
	b, _ := testBuilder(newTask("a"))
	s := snap()
	s.Now = time.Time{}

	if _, _, err := b.Build(s); err == nil {
		t.Error("zero Now must abort the build")
	}
}

func TestBuild_NonPositiveTimeAborts(t *testing.T) {
	b, _ := testBuilder(newTask("a"))
	s := snap()
	zero := 0
	s.AvailableTime = &zero

	if _, _, err := b.Build(s); err == nil {
		t.Error("non-positive available time must abort the build")
	}
}

func TestBuild_SourceErrorAborts(t *testing.T) {
	src := &fakeSource{err: errors.New("db closed")}
	b := NewBuilder(src, fakeSensors{}, DefaultPolicy())

	if _, _, err := b.Build(snap()); err == nil {
		t.Error("source failure must abort the build")
	}
}

// --- Eligibility gates ---

func TestBuild_ExcludesCompletedAndMissed(t *testing.T) {
	done := newTask("done")
	done.Status = model.StatusCompleted
	missed := newTask("missed")
	missed.Status = model.StatusMissed
	open := newTask("open")

	b, _ := testBuilder(done, missed, open)
	entries, _, err := b.Build(snap())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(entries) != 1 || entries[0].Task.ID != "open" {
		t.Errorf("expected only the open task, got %v", ids(entries))
	}
}

func TestBuild_ExcludesNonActionable(t *testing.T) {
	note := newTask("note")
	note.Traits = []model.Trait{model.TraitNote}

	b, _ := testBuilder(note, newTask("open"))
	entries, _, _ := b.Build(snap())
	if len(entries) != 1 || entries[0].Task.ID != "open" {
		t.Errorf("expected only the actionable task, got %v", ids(entries))
	}
}

func TestBuild_InProgressStillAppears(t *testing.T) {
	started := newTask("started")
	started.Status = model.StatusInProgress

	b, _ := testBuilder(started)
	entries, _, _ := b.Build(snap())
	if len(entries) != 1 {
		t.Errorf("in-progress tasks belong in the queue, got %v", ids(entries))
	}
}

func TestBuild_BlockedExcluded(t *testing.T) {
	dep := newTask("dep")
	blocked := newTask("blocked")
	blocked.Blockers = &model.BlockerSpec{Mode: model.ModeAny, Items: []string{"dep"}}

	b, _ := testBuilder(dep, blocked)
	entries, _, _ := b.Build(snap())
	if containsID(entries, "blocked") {
		t.Error("blocked task must not appear in the queue")
	}
}

func TestBuild_RequirementsUnmetExcluded(t *testing.T) {
	task := newTask("needs-office")
	task.Requirements = &model.RequirementSpec{Location: []string{"office"}}

	b, _ := testBuilder(task)
	entries, _, _ := b.Build(snap())
	if len(entries) != 0 {
		t.Errorf("unmet requirements must exclude the task, got %v", ids(entries))
	}
}

func TestBuild_TimeBudget(t *testing.T) {
	fits := newTask("fits")
	fits.TimeEstimate = 20
	tooBig := newTask("too-big")
	tooBig.TimeEstimate = 25
	tooBig.BufferBefore = 5
	tooBig.BufferAfter = 5
	noEstimate := newTask("no-estimate")

	b, _ := testBuilder(fits, tooBig, noEstimate)
	s := snap()
	budget := 30
	s.AvailableTime = &budget

	entries, _, _ := b.Build(s)
	if !containsID(entries, "fits") {
		t.Error("task within budget should appear")
	}
	if containsID(entries, "too-big") {
		t.Error("estimate plus buffers over budget should be dropped")
	}
	if !containsID(entries, "no-estimate") {
		t.Error("tasks without an estimate are never dropped by the budget")
	}
}

// --- Partial failure isolation ---

func TestBuild_MalformedTaskIsolated(t *testing.T) {
	bad := newTask("bad")
	bad.Recurrence = &model.RecurrenceRule{Kind: "lunar"}
	good := newTask("good")

	b, _ := testBuilder(bad, good)
	entries, diags, err := b.Build(snap())
	if err != nil {
		t.Fatalf("one malformed task must not abort the build: %v", err)
	}
	if containsID(entries, "bad") {
		t.Error("malformed task must be excluded")
	}
	if !containsID(entries, "good") {
		t.Error("healthy tasks must survive a sibling's failure")
	}
	if len(diags) != 1 || diags[0].TaskID != "bad" || diags[0].Stage != "validate" {
		t.Errorf("expected one validate diagnostic for bad, got %+v", diags)
	}
}

func TestBuild_MissingBlockerReferenceDiagnosed(t *testing.T) {
	task := newTask("task")
	task.Blockers = &model.BlockerSpec{Mode: model.ModeAny, Items: []string{"ghost"}}

	b, _ := testBuilder(task)
	entries, diags, _ := b.Build(snap())
	if !containsID(entries, "task") {
		t.Error("unresolvable blocker reference must not block")
	}
	if len(diags) != 1 || diags[0].Stage != "blockers" {
		t.Errorf("expected a blockers diagnostic, got %+v", diags)
	}
}

// --- Scoring ---

func buildOne(t *testing.T, task *model.Task, s model.ContextSnapshot) Entry {
	t.Helper()
	b, _ := testBuilder(task)
	entries, _, err := b.Build(s)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %v", ids(entries))
	}
	return entries[0]
}

func TestScore_DueBracketsAreExclusive(t *testing.T) {
	cases := []struct {
		name string
		due  *time.Time
		want int
	}{
		{"overdue", due(-0.5), ScoreOverdue},
		{"due today", due(0.5), ScoreDueToday},
		{"due this week", due(5), ScoreDueThisWeek},
		{"due later", due(10), 0},
		{"no due", nil, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			task := newTask("t")
			task.Due = c.due
			e := buildOne(t, task, snap())
			if e.Score != c.want {
				t.Errorf("score = %d, want %d", e.Score, c.want)
			}
		})
	}
}

func TestScore_ExplicitPriority(t *testing.T) {
	cases := map[model.Priority]int{
		model.PriorityLow:    ScorePriorityLow,
		model.PriorityMedium: ScorePriorityMedium,
		model.PriorityHigh:   ScorePriorityHigh,
		"":                   0,
	}
	for p, want := range cases {
		task := newTask("t")
		task.Priority = p
		e := buildOne(t, task, snap())
		if e.Breakdown.ExplicitPriority != want {
			t.Errorf("priority %q: score = %d, want %d", p, e.Breakdown.ExplicitPriority, want)
		}
	}
}

func TestScore_FrequencyThresholds(t *testing.T) {
	// Target 3 per 30 days, one completion 26 days ago: 4 days remaining.
	mk := func(priority model.Priority) *model.Task {
		task := newTask("t")
		task.Recurrence = &model.RecurrenceRule{
			Kind: model.RecurFrequency, Target: 3, Period: 30, PeriodUnit: model.UnitDays,
			Thresholds: []model.Threshold{{AtDaysRemaining: 5, Priority: priority}},
		}
		task.CompletionHistory = []model.CompletionRecord{
			{Timestamp: testNow.Add(-26 * 24 * time.Hour)},
		}
		return task
	}

	cases := map[model.Priority]int{
		model.PriorityMedium:   ScoreFreqMedium,
		model.PriorityHigh:     ScoreFreqHigh,
		model.PriorityCritical: ScoreFreqCritical,
	}
	for p, want := range cases {
		e := buildOne(t, mk(p), snap())
		if e.Breakdown.FrequencyThreshold != want {
			t.Errorf("threshold %q: score = %d, want %d", p, e.Breakdown.FrequencyThreshold, want)
		}
	}
}

func TestScore_HabitAtRiskNeedsHabitTrait(t *testing.T) {
	mk := func(traits ...model.Trait) *model.Task {
		task := newTask("t")
		task.Traits = append([]model.Trait{model.TraitActionable}, traits...)
		task.Recurrence = &model.RecurrenceRule{Kind: model.RecurElapsed, Interval: 10, Unit: model.UnitDays}
		// Due in 12 hours: streak at risk.
		task.CompletionHistory = []model.CompletionRecord{
			{Timestamp: testNow.Add(-time.Duration(9.5 * 24 * float64(time.Hour)))},
		}
		return task
	}

	e := buildOne(t, mk(model.TraitHabit), snap())
	if e.Breakdown.HabitAtRisk != ScoreHabitAtRisk {
		t.Errorf("habit at risk = %d, want %d", e.Breakdown.HabitAtRisk, ScoreHabitAtRisk)
	}

	e = buildOne(t, mk(model.TraitChore), snap())
	if e.Breakdown.HabitAtRisk != 0 {
		t.Error("at-risk bonus requires the habit trait")
	}
}

func TestScore_ContextMatchForAllModeRequirements(t *testing.T) {
	task := newTask("t")
	task.Requirements = &model.RequirementSpec{
		Mode:     model.ModeAll,
		Location: []string{"home"},
	}
	e := buildOne(t, task, snap())
	if e.Breakdown.ContextMatch != ScoreContextMatch {
		t.Errorf("context match = %d, want %d", e.Breakdown.ContextMatch, ScoreContextMatch)
	}

	// ANY-mode match earns no bonus.
	task = newTask("t")
	task.Requirements = &model.RequirementSpec{
		Mode:     model.ModeAny,
		Location: []string{"home"},
	}
	e = buildOne(t, task, snap())
	if e.Breakdown.ContextMatch != 0 {
		t.Error("ANY-mode requirements earn no context bonus")
	}
}

func TestScore_RecentlyUnblocked(t *testing.T) {
	dep := newTask("dep")
	task := newTask("task")
	task.Blockers = &model.BlockerSpec{Mode: model.ModeAny, Items: []string{"dep"}}

	b, _ := testBuilder(dep, task)

	// First build: task is blocked, memory records it.
	entries, _, _ := b.Build(snap())
	if containsID(entries, "task") {
		t.Fatal("task should start blocked")
	}

	// Dependency completes; next build sees the transition.
	dep.Status = model.StatusCompleted
	s := snap()
	s.Now = testNow.Add(time.Hour)
	entries, _, _ = b.Build(s)
	e := findEntry(entries, "task")
	if e == nil {
		t.Fatal("task should be unblocked now")
	}
	if e.Breakdown.RecentlyUnblocked != ScoreRecentlyUnblocked {
		t.Errorf("recently unblocked = %d, want %d", e.Breakdown.RecentlyUnblocked, ScoreRecentlyUnblocked)
	}

	// More than 24h later the bonus lapses.
	s.Now = testNow.Add(26 * time.Hour)
	entries, _, _ = b.Build(s)
	e = findEntry(entries, "task")
	if e == nil {
		t.Fatal("task should still be unblocked")
	}
	if e.Breakdown.RecentlyUnblocked != 0 {
		t.Error("unblocked bonus must lapse after the window")
	}
}

func TestMemory_ExportRestoreRoundTrip(t *testing.T) {
	dep := newTask("dep")
	task := newTask("task")
	task.Blockers = &model.BlockerSpec{Mode: model.ModeAny, Items: []string{"dep"}}

	b, src := testBuilder(dep, task)
	b.Build(snap())

	// A fresh builder with restored memory sees the same transition.
	dep.Status = model.StatusCompleted
	b2 := NewBuilder(src, fakeSensors{}, DefaultPolicy())
	b2.RestoreMemory(b.ExportMemory())

	s := snap()
	s.Now = testNow.Add(time.Hour)
	entries, _, _ := b2.Build(s)
	e := findEntry(entries, "task")
	if e == nil {
		t.Fatal("task should be unblocked")
	}
	if e.Breakdown.RecentlyUnblocked != ScoreRecentlyUnblocked {
		t.Error("restored memory should carry the blocked state across builders")
	}
}

// --- Ordering ---

func TestBuild_OverdueOutranksDueToday(t *testing.T) {
	overdue := newTask("overdue")
	overdue.Due = due(-1)
	today := newTask("today")
	today.Due = due(0.5)

	b, _ := testBuilder(today, overdue)
	entries, _, _ := b.Build(snap())
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %v", ids(entries))
	}
	if entries[0].Task.ID != "overdue" || entries[0].Score != ScoreOverdue {
		t.Errorf("expected overdue first at %d, got %s at %d", ScoreOverdue, entries[0].Task.ID, entries[0].Score)
	}
	if entries[1].Score != ScoreDueToday {
		t.Errorf("expected due-today at %d, got %d", ScoreDueToday, entries[1].Score)
	}
}

func TestSort_TiebreakDueThenCreated(t *testing.T) {
	early := newTask("early-due")
	early.Due = due(2)
	late := newTask("late-due")
	late.Due = due(4)
	older := newTask("older")
	older.CreatedAt = testNow.Add(-48 * time.Hour)
	newer := newTask("newer")

	// All four score the same (+20 due-this-week for the dated pair, 0 for
	// the rest), so compare within each equal-score group.
	b, _ := testBuilder(newer, older, late, early)
	entries, _, _ := b.Build(snap())
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %v", ids(entries))
	}

	got := ids(entries)
	// Dated pair outranks the undated pair on score, earliest due first.
	want := []string{"early-due", "late-due", "older", "newer"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestSort_NilDueSortsLast(t *testing.T) {
	dated := newTask("dated")
	dated.Due = due(20) // far out: no score
	undated := newTask("undated")

	b, _ := testBuilder(undated, dated)
	entries, _, _ := b.Build(snap())
	if entries[0].Task.ID != "dated" {
		t.Errorf("equal scores: dated task should sort before undated, got %v", ids(entries))
	}
}

// --- Single-task operations ---

func TestBlocked_ReportsReasons(t *testing.T) {
	dep := newTask("dep")
	task := newTask("task")
	task.Blockers = &model.BlockerSpec{Mode: model.ModeAny, Items: []string{"dep"}}

	b, _ := testBuilder(dep, task)
	blocked, reasons, err := b.Blocked("task")
	if err != nil {
		t.Fatalf("Blocked: %v", err)
	}
	if !blocked || len(reasons) != 1 || !strings.Contains(reasons[0], "dep") {
		t.Errorf("blocked=%v reasons=%v", blocked, reasons)
	}

	if _, _, err := b.Blocked("ghost"); err == nil {
		t.Error("unknown task should error")
	}
}

func TestComplete_ReturnsCopyWithHistory(t *testing.T) {
	task := newTask("task")
	task.Recurrence = &model.RecurrenceRule{Kind: model.RecurCalendar, Pattern: model.PatternDaily}

	b, _ := testBuilder(task)
	next, err := b.Complete("task", "alex", testNow)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if next.Status != model.StatusCompleted {
		t.Errorf("status = %s, want completed", next.Status)
	}
	if len(next.CompletionHistory) != 1 || next.CompletionHistory[0].Actor != "alex" {
		t.Errorf("history = %+v", next.CompletionHistory)
	}
	if next.CurrentStreak != 1 {
		t.Errorf("streak = %d, want 1", next.CurrentStreak)
	}

	// The source task is untouched until the host persists the copy.
	if task.Status != model.StatusPending || len(task.CompletionHistory) != 0 {
		t.Error("Complete must not mutate the stored task")
	}
}

func TestEvaluateRecurrence_UnknownTask(t *testing.T) {
	b, _ := testBuilder()
	if _, err := b.EvaluateRecurrence("ghost", testNow); err == nil {
		t.Error("unknown task should error")
	}
}

// --- helpers ---

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Task.ID
	}
	return out
}

func containsID(entries []Entry, id string) bool {
	return findEntry(entries, id) != nil
}

func findEntry(entries []Entry, id string) *Entry {
	for i := range entries {
		if entries[i].Task.ID == id {
			return &entries[i]
		}
	}
	return nil
}
