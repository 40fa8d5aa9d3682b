// Package queue composes the blocker, requirement, and recurrence evaluators
// into a ranked "what should I do right now" list. One Build call runs the
// whole filter, score, sort pipeline against a single context snapshot and a
// consistent read of the task set.
package queue

import (
	"fmt"
	"sort"
	"time"

	"github.com/hearthd/hearth/internal/blockers"
	"github.com/hearthd/hearth/internal/model"
	"github.com/hearthd/hearth/internal/recurrence"
	"github.com/hearthd/hearth/internal/requirements"
)

// Scoring weights. Overdue, due-today, and due-this-week are mutually
// exclusive brackets: only the highest applicable one is awarded.
const (
	ScoreOverdue     = 100
	ScoreDueToday    = 50
	ScoreDueThisWeek = 20

	ScoreFreqMedium   = 30
	ScoreFreqHigh     = 60
	ScoreFreqCritical = 90

	ScoreHabitAtRisk = 40

	ScorePriorityLow    = 10
	ScorePriorityMedium = 25
	ScorePriorityHigh   = 50

	ScoreRecentlyUnblocked = 15
	ScoreContextMatch      = 10
)

// unblockedWindow is how long the recently-unblocked bonus lasts.
const unblockedWindow = 24 * time.Hour

// TaskSource enumerates every task visible to the current actor, across
// all lists, and resolves individual IDs for blocker references.
type TaskSource interface {
	Tasks() ([]*model.Task, error)
	FindTask(id string) (*model.Task, bool)
}

// SensorStates resolves the current boolean state of a named sensor.
type SensorStates interface {
	SensorState(ref string) (on bool, known bool)
}

// Policy carries the tunable evaluation knobs.
type Policy struct {
	HistoryCap  int
	PeopleMatch requirements.PeoplePolicy
	Recurrence  recurrence.Options
}

// DefaultPolicy returns the stock policy: 365-record history, intersect
// people matching, default recurrence tolerances.
func DefaultPolicy() Policy {
	return Policy{
		HistoryCap:  model.HistoryCap,
		PeopleMatch: requirements.PeopleIntersect,
		Recurrence:  recurrence.DefaultOptions(),
	}
}

// Breakdown records each additive score term separately so a queue entry
// can explain itself.
type Breakdown struct {
	Overdue            int `json:"overdue,omitempty"`
	DueToday           int `json:"due_today,omitempty"`
	DueThisWeek        int `json:"due_this_week,omitempty"`
	FrequencyThreshold int `json:"frequency_threshold,omitempty"`
	HabitAtRisk        int `json:"habit_at_risk,omitempty"`
	ExplicitPriority   int `json:"explicit_priority,omitempty"`
	RecentlyUnblocked  int `json:"recently_unblocked,omitempty"`
	ContextMatch       int `json:"context_match,omitempty"`
}

// Total sums every term.
func (b Breakdown) Total() int {
	return b.Overdue + b.DueToday + b.DueThisWeek + b.FrequencyThreshold +
		b.HabitAtRisk + b.ExplicitPriority + b.RecentlyUnblocked + b.ContextMatch
}

// Parts renders the non-zero terms as "label +n" strings for display.
func (b Breakdown) Parts() []string {
	var parts []string
	add := func(label string, n int) {
		if n != 0 {
			parts = append(parts, fmt.Sprintf("%s +%d", label, n))
		}
	}
	add("overdue", b.Overdue)
	add("due today", b.DueToday)
	add("due this week", b.DueThisWeek)
	add("frequency", b.FrequencyThreshold)
	add("habit at risk", b.HabitAtRisk)
	add("priority", b.ExplicitPriority)
	add("recently unblocked", b.RecentlyUnblocked)
	add("context match", b.ContextMatch)
	return parts
}

// Entry is one ranked task in the queue output.
type Entry struct {
	Task      *model.Task
	Score     int
	Breakdown Breakdown
}

// Diagnostic records why a task was excluded or degraded without aborting
// the rest of the queue.
type Diagnostic struct {
	TaskID string
	Stage  string // "blockers", "requirements", "recurrence"
	Detail string
}

// Builder owns queue generation and the only cross-call state in the core:
// the per-task eligibility memory behind the recently-unblocked bonus.
type Builder struct {
	source  TaskSource
	sensors SensorStates
	policy  Policy

	lastBlocked map[string]bool
	unblockedAt map[string]time.Time
}

// NewBuilder creates a builder with empty eligibility memory.
func NewBuilder(source TaskSource, sensors SensorStates, policy Policy) *Builder {
	if policy.HistoryCap <= 0 {
		policy.HistoryCap = model.HistoryCap
	}
	return &Builder{
		source:      source,
		sensors:     sensors,
		policy:      policy,
		lastBlocked: make(map[string]bool),
		unblockedAt: make(map[string]time.Time),
	}
}

// Memory is the builder's cross-call eligibility state, exposed so a host
// that outlives the process (or doesn't) can choose to persist it.
type Memory struct {
	Blocked     map[string]bool
	UnblockedAt map[string]time.Time
}

// ExportMemory returns a copy of the eligibility memory.
func (b *Builder) ExportMemory() Memory {
	m := Memory{
		Blocked:     make(map[string]bool, len(b.lastBlocked)),
		UnblockedAt: make(map[string]time.Time, len(b.unblockedAt)),
	}
	for k, v := range b.lastBlocked {
		m.Blocked[k] = v
	}
	for k, v := range b.unblockedAt {
		m.UnblockedAt[k] = v
	}
	return m
}

// RestoreMemory replaces the eligibility memory, e.g. from host persistence.
func (b *Builder) RestoreMemory(m Memory) {
	b.lastBlocked = make(map[string]bool, len(m.Blocked))
	b.unblockedAt = make(map[string]time.Time, len(m.UnblockedAt))
	for k, v := range m.Blocked {
		b.lastBlocked[k] = v
	}
	for k, v := range m.UnblockedAt {
		b.unblockedAt[k] = v
	}
}

// Build runs the filter, score, sort pipeline and returns the ranked queue.
// One malformed task is excluded with a diagnostic; it never blanks the
// queue for everything else. Only caller misuse (a bad snapshot) aborts.
func (b *Builder) Build(snap model.ContextSnapshot) ([]Entry, []Diagnostic, error) {
	if err := snap.Validate(); err != nil {
		return nil, nil, err
	}

	tasks, err := b.source.Tasks()
	if err != nil {
		return nil, nil, fmt.Errorf("enumerate tasks: %w", err)
	}

	var entries []Entry
	var diags []Diagnostic

	for _, t := range tasks {
		entry, d, ok := b.evaluate(t, snap)
		diags = append(diags, d...)
		if ok {
			entries = append(entries, entry)
		}
	}

	sortEntries(entries)
	return entries, diags, nil
}

// evaluate runs one task through the pipeline. The eligibility memory is
// updated for every task whose blockers were evaluated, even when a later
// stage drops it.
func (b *Builder) evaluate(t *model.Task, snap model.ContextSnapshot) (Entry, []Diagnostic, bool) {
	var diags []Diagnostic

	// Stage 1: trait and status gate.
	if !t.HasTrait(model.TraitActionable) {
		return Entry{}, nil, false
	}
	if t.Status == model.StatusCompleted || t.Status == model.StatusMissed {
		return Entry{}, nil, false
	}

	// Malformed sub-objects exclude just this task.
	if err := validateSpecs(t); err != nil {
		return Entry{}, []Diagnostic{{TaskID: t.ID, Stage: "validate", Detail: err.Error()}}, false
	}

	// Stage 2: blockers.
	bres := blockers.Evaluate(t.Blockers, b.source, b.sensors)
	for _, d := range bres.Diagnostics {
		diags = append(diags, Diagnostic{TaskID: t.ID, Stage: "blockers", Detail: d})
	}
	b.recordBlocked(t.ID, bres.Blocked, snap.Now)
	if bres.Blocked {
		return Entry{}, diags, false
	}

	// Stage 3: requirements.
	rres := requirements.Evaluate(t.Requirements, snap, b.sensors, b.policy.PeopleMatch)
	for _, d := range rres.Diagnostics {
		diags = append(diags, Diagnostic{TaskID: t.ID, Stage: "requirements", Detail: d})
	}
	if !rres.Met {
		return Entry{}, diags, false
	}

	// Stage 4: time budget. Tasks with no estimate are never dropped here.
	if snap.AvailableTime != nil && t.TimeEstimate > 0 {
		needed := t.TimeEstimate + t.BufferBefore + t.BufferAfter
		if needed > *snap.AvailableTime {
			return Entry{}, diags, false
		}
	}

	ev := recurrence.Evaluate(t.Recurrence, t.CompletionHistory, snap.Now, b.policy.Recurrence)
	bd := b.score(t, snap, ev)
	return Entry{Task: t, Score: bd.Total(), Breakdown: bd}, diags, true
}

// recordBlocked updates the cross-call eligibility memory. A transition
// from blocked to unblocked stamps the unblocked-at time.
func (b *Builder) recordBlocked(id string, blocked bool, now time.Time) {
	if b.lastBlocked[id] && !blocked {
		b.unblockedAt[id] = now
	}
	b.lastBlocked[id] = blocked
}

func (b *Builder) score(t *model.Task, snap model.ContextSnapshot, ev recurrence.Evaluation) Breakdown {
	var bd Breakdown
	now := snap.Now

	if t.Due != nil {
		until := t.Due.Sub(now)
		switch {
		case until < 0:
			bd.Overdue = ScoreOverdue
		case until < 24*time.Hour:
			bd.DueToday = ScoreDueToday
		case until < 7*24*time.Hour:
			bd.DueThisWeek = ScoreDueThisWeek
		}
	}

	if ev.Frequency != nil {
		switch ev.Frequency.Priority {
		case model.PriorityCritical:
			bd.FrequencyThreshold = ScoreFreqCritical
		case model.PriorityHigh:
			bd.FrequencyThreshold = ScoreFreqHigh
		case model.PriorityMedium:
			bd.FrequencyThreshold = ScoreFreqMedium
		}
	}

	if ev.StreakAtRisk && t.HasTrait(model.TraitHabit) {
		bd.HabitAtRisk = ScoreHabitAtRisk
	}

	switch t.Priority {
	case model.PriorityHigh:
		bd.ExplicitPriority = ScorePriorityHigh
	case model.PriorityMedium:
		bd.ExplicitPriority = ScorePriorityMedium
	case model.PriorityLow:
		bd.ExplicitPriority = ScorePriorityLow
	}

	if at, ok := b.unblockedAt[t.ID]; ok && now.Sub(at) >= 0 && now.Sub(at) < unblockedWindow {
		bd.RecentlyUnblocked = ScoreRecentlyUnblocked
	}

	// Full-context bonus: an ALL-mode spec that passed matched every
	// configured category, a stronger signal than a minimal ANY match.
	if t.Requirements != nil && !t.Requirements.Empty() &&
		t.Requirements.EffectiveMode() == model.ModeAll {
		bd.ContextMatch = ScoreContextMatch
	}

	return bd
}

// sortEntries orders by score descending, then due ascending with unset
// due last, then creation time ascending.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		ad, bd := a.Task.Due, b.Task.Due
		switch {
		case ad != nil && bd != nil && !ad.Equal(*bd):
			return ad.Before(*bd)
		case ad != nil && bd == nil:
			return true
		case ad == nil && bd != nil:
			return false
		}
		return a.Task.CreatedAt.Before(b.Task.CreatedAt)
	})
}

func validateSpecs(t *model.Task) error {
	if t.Recurrence != nil {
		if err := t.Recurrence.Validate(); err != nil {
			return err
		}
	}
	if t.Blockers != nil {
		if err := t.Blockers.Validate(); err != nil {
			return err
		}
	}
	if t.Requirements != nil {
		if err := t.Requirements.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Blocked answers the single-task blocked check used by UIs for badges:
// the verdict plus the blocker conditions currently true.
func (b *Builder) Blocked(taskID string) (bool, []string, error) {
	t, ok := b.source.FindTask(taskID)
	if !ok {
		return false, nil, fmt.Errorf("task %s not found", taskID)
	}
	if t.Blockers != nil {
		if err := t.Blockers.Validate(); err != nil {
			return false, nil, err
		}
	}
	res := blockers.Evaluate(t.Blockers, b.source, b.sensors)
	return res.Blocked, res.Reasons, nil
}

// EvaluateRecurrence returns the recurrence read for a single task, for
// display of next-due and streak independent of the queue.
func (b *Builder) EvaluateRecurrence(taskID string, now time.Time) (recurrence.Evaluation, error) {
	t, ok := b.source.FindTask(taskID)
	if !ok {
		return recurrence.Evaluation{}, fmt.Errorf("task %s not found", taskID)
	}
	if t.Recurrence != nil {
		if err := t.Recurrence.Validate(); err != nil {
			return recurrence.Evaluation{}, err
		}
	}
	return recurrence.Evaluate(t.Recurrence, t.CompletionHistory, now, b.policy.Recurrence), nil
}

// Complete computes a task's post-completion state: status completed, a
// history record appended under the cap, streak recomputed. The returned
// value is a copy; storing it is the host's job, and nothing is considered
// to have happened until the host persists it.
func (b *Builder) Complete(taskID, actor string, now time.Time) (*model.Task, error) {
	t, ok := b.source.FindTask(taskID)
	if !ok {
		return nil, fmt.Errorf("task %s not found", taskID)
	}

	next := t.Clone()
	next.Status = model.StatusCompleted
	next.AppendCompletion(model.CompletionRecord{Actor: actor, Timestamp: now}, b.policy.HistoryCap)

	ev := recurrence.Evaluate(next.Recurrence, next.CompletionHistory, now, b.policy.Recurrence)
	next.CurrentStreak = ev.Streak
	return next, nil
}
