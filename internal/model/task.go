package model

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Status is the single authoritative lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusMissed     Status = "missed"
)

// AllStatuses lists every valid status value.
var AllStatuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusMissed}

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	return slices.Contains(AllStatuses, s)
}

// Trait is a composable category flag on a task. A task can carry several
// traits at once; "actionable" gates whether it can appear in the queue.
type Trait string

const (
	TraitActionable Trait = "actionable"
	TraitRecurring  Trait = "recurring"
	TraitHabit      Trait = "habit"
	TraitChore      Trait = "chore"
	TraitReminder   Trait = "reminder"
	TraitNote       Trait = "note"
)

// AllTraits lists every valid trait value.
var AllTraits = []Trait{TraitActionable, TraitRecurring, TraitHabit, TraitChore, TraitReminder, TraitNote}

// ValidTrait reports whether t is a known trait.
func ValidTrait(t Trait) bool {
	return slices.Contains(AllTraits, t)
}

// Priority is an explicit manual priority override on a task.
// Critical is only used by frequency thresholds, never set directly on tasks.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// HistoryCap bounds the completion history kept per task. Oldest records
// are evicted first.
const HistoryCap = 365

// DefaultTimeEstimate is the suggested estimate (minutes) for new tasks
// that want one. A zero estimate means "no estimate".
const DefaultTimeEstimate = 30

// CompletionRecord is an immutable record of one completion.
type CompletionRecord struct {
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}

// Task is a unit of work on a list.
type Task struct {
	ID     string `json:"id"`
	ListID string `json:"list_id,omitempty"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	Traits []Trait  `json:"traits"`
	Tags   []string `json:"tags,omitempty"`

	Status      Status `json:"status"`
	NeedsDetail bool   `json:"needs_detail,omitempty"`

	Due          *time.Time `json:"due,omitempty"`
	TimeEstimate int        `json:"time_estimate,omitempty"` // minutes, 0 = no estimate
	BufferBefore int        `json:"buffer_before,omitempty"` // minutes
	BufferAfter  int        `json:"buffer_after,omitempty"`  // minutes

	Priority Priority `json:"priority,omitempty"` // explicit override, empty = none

	Recurrence   *RecurrenceRule  `json:"recurrence,omitempty"`
	Blockers     *BlockerSpec     `json:"blockers,omitempty"`
	Requirements *RequirementSpec `json:"requirements,omitempty"`

	CompletionHistory []CompletionRecord `json:"completion_history,omitempty"`
	CurrentStreak     int                `json:"current_streak"`

	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by,omitempty"`
}

// NewTask creates a task with a generated ID and defaults: actionable,
// pending, empty history.
func NewTask(title, createdBy string) *Task {
	return &Task{
		ID:        uuid.NewString(),
		Title:     title,
		Traits:    []Trait{TraitActionable},
		Status:    StatusPending,
		CreatedAt: time.Now(),
		CreatedBy: createdBy,
	}
}

// HasTrait reports whether the task carries the given trait.
func (t *Task) HasTrait(tr Trait) bool {
	return slices.Contains(t.Traits, tr)
}

// SetTraits replaces the trait set. Unknown traits are rejected.
func (t *Task) SetTraits(traits []Trait) error {
	for _, tr := range traits {
		if !ValidTrait(tr) {
			return fmt.Errorf("unknown trait %q", tr)
		}
	}
	t.Traits = slices.Clone(traits)
	return nil
}

// HasTag reports whether the task carries the given tag.
func (t *Task) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}

// AddTags appends tags, skipping empties and duplicates.
func (t *Task) AddTags(tags ...string) {
	for _, tag := range tags {
		if tag == "" || t.HasTag(tag) {
			continue
		}
		t.Tags = append(t.Tags, tag)
	}
}

// RemoveTags drops the given tags if present.
func (t *Task) RemoveTags(tags ...string) {
	t.Tags = slices.DeleteFunc(t.Tags, func(have string) bool {
		return slices.Contains(tags, have)
	})
}

// AppendCompletion records a completion and enforces the history cap,
// evicting the oldest records.
func (t *Task) AppendCompletion(rec CompletionRecord, cap int) {
	if cap <= 0 {
		cap = HistoryCap
	}
	t.CompletionHistory = append(t.CompletionHistory, rec)
	if n := len(t.CompletionHistory); n > cap {
		t.CompletionHistory = slices.Clone(t.CompletionHistory[n-cap:])
	}
}

// Clone returns a deep copy of the task. Mutating the copy never touches
// the original's slices or sub-specs.
func (t *Task) Clone() *Task {
	c := *t
	c.Traits = slices.Clone(t.Traits)
	c.Tags = slices.Clone(t.Tags)
	c.CompletionHistory = slices.Clone(t.CompletionHistory)
	if t.Due != nil {
		due := *t.Due
		c.Due = &due
	}
	if t.Recurrence != nil {
		r := *t.Recurrence
		r.Thresholds = slices.Clone(t.Recurrence.Thresholds)
		c.Recurrence = &r
	}
	if t.Blockers != nil {
		b := *t.Blockers
		b.Items = slices.Clone(t.Blockers.Items)
		b.Sensors = slices.Clone(t.Blockers.Sensors)
		c.Blockers = &b
	}
	if t.Requirements != nil {
		r := *t.Requirements
		r.Location = slices.Clone(t.Requirements.Location)
		r.People = slices.Clone(t.Requirements.People)
		r.TimeConstraints = slices.Clone(t.Requirements.TimeConstraints)
		r.Context = slices.Clone(t.Requirements.Context)
		r.Sensors = slices.Clone(t.Requirements.Sensors)
		c.Requirements = &r
	}
	return &c
}

// List is a named collection of tasks.
type List struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Owner      string   `json:"owner,omitempty"`
	Visibility string   `json:"visibility"` // private or shared
	SharedWith []string `json:"shared_with,omitempty"`
	IsInbox    bool     `json:"is_inbox,omitempty"`
	Items      []*Task  `json:"items,omitempty"`
}

// NewList creates a private list with a generated ID.
func NewList(name, owner string) *List {
	return &List{
		ID:         uuid.NewString(),
		Name:       name,
		Owner:      owner,
		Visibility: "private",
	}
}

// GetItem returns the task with the given ID, or nil.
func (l *List) GetItem(id string) *Task {
	for _, it := range l.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// AddItem appends a task to the list and stamps its list ID.
func (l *List) AddItem(t *Task) {
	t.ListID = l.ID
	l.Items = append(l.Items, t)
}

// RemoveItem deletes a task by ID, reporting whether it was found.
func (l *List) RemoveItem(id string) bool {
	for i, it := range l.Items {
		if it.ID == id {
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			return true
		}
	}
	return false
}
