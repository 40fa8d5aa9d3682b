package model

import (
	"fmt"
	"time"
)

// Mode selects how a set of boolean results is combined.
type Mode string

const (
	ModeAny Mode = "ANY"
	ModeAll Mode = "ALL"
)

// ValidMode reports whether m is ANY, ALL, or unset.
func ValidMode(m Mode) bool {
	return m == "" || m == ModeAny || m == ModeAll
}

// Combine folds a list of booleans under the mode. An empty list is false
// for both modes: no conditions means nothing is asserted.
func (m Mode) Combine(vals []bool) bool {
	if len(vals) == 0 {
		return false
	}
	switch m {
	case ModeAll:
		for _, v := range vals {
			if !v {
				return false
			}
		}
		return true
	default: // ANY
		for _, v := range vals {
			if v {
				return true
			}
		}
		return false
	}
}

// RecurrenceKind is the tagged-union discriminator for RecurrenceRule.
type RecurrenceKind string

const (
	RecurCalendar  RecurrenceKind = "calendar"
	RecurElapsed   RecurrenceKind = "elapsed"
	RecurFrequency RecurrenceKind = "frequency"
)

// CalendarPattern is a fixed schedule keyword for calendar recurrence.
type CalendarPattern string

const (
	PatternDaily   CalendarPattern = "daily"
	PatternWeekly  CalendarPattern = "weekly"
	PatternMonthly CalendarPattern = "monthly"
	PatternYearly  CalendarPattern = "yearly"
)

// PeriodDays returns the pattern's period length in days.
// Monthly and yearly use the conventional 30/365 approximations.
func (p CalendarPattern) PeriodDays() int {
	switch p {
	case PatternDaily:
		return 1
	case PatternWeekly:
		return 7
	case PatternMonthly:
		return 30
	case PatternYearly:
		return 365
	default:
		return 0
	}
}

// Unit is a recurrence interval unit.
type Unit string

const (
	UnitDays   Unit = "days"
	UnitWeeks  Unit = "weeks"
	UnitMonths Unit = "months"
	UnitYears  Unit = "years"
)

// Days returns the unit length in days (months and years approximated).
func (u Unit) Days() int {
	switch u {
	case UnitDays:
		return 1
	case UnitWeeks:
		return 7
	case UnitMonths:
		return 30
	case UnitYears:
		return 365
	default:
		return 0
	}
}

// Threshold escalates a frequency goal's priority as its period deadline
// approaches: once days remaining drops to or below AtDaysRemaining, the
// goal carries Priority.
type Threshold struct {
	AtDaysRemaining int      `json:"at_days_remaining"`
	Priority        Priority `json:"priority"`
}

// RecurrenceRule describes how a task recurs. Exactly one variant's fields
// apply, selected by Kind.
type RecurrenceRule struct {
	Kind RecurrenceKind `json:"kind"`

	// calendar
	Pattern CalendarPattern `json:"pattern,omitempty"`

	// elapsed
	Interval int  `json:"interval,omitempty"`
	Unit     Unit `json:"unit,omitempty"`

	// frequency
	Target     int         `json:"target,omitempty"`
	Period     int         `json:"period,omitempty"`
	PeriodUnit Unit        `json:"period_unit,omitempty"`
	Thresholds []Threshold `json:"thresholds,omitempty"`
}

// Validate rejects malformed rules at construction time so evaluation
// never has to.
func (r *RecurrenceRule) Validate() error {
	switch r.Kind {
	case RecurCalendar:
		if r.Pattern.PeriodDays() == 0 {
			return fmt.Errorf("calendar recurrence: unknown pattern %q", r.Pattern)
		}
	case RecurElapsed:
		if r.Interval <= 0 {
			return fmt.Errorf("elapsed recurrence: interval must be positive, got %d", r.Interval)
		}
		if r.Unit.Days() == 0 {
			return fmt.Errorf("elapsed recurrence: unknown unit %q", r.Unit)
		}
	case RecurFrequency:
		if r.Target <= 0 {
			return fmt.Errorf("frequency recurrence: target must be positive, got %d", r.Target)
		}
		if r.Period <= 0 {
			return fmt.Errorf("frequency recurrence: period must be positive, got %d", r.Period)
		}
		if r.PeriodUnit.Days() == 0 {
			return fmt.Errorf("frequency recurrence: unknown period unit %q", r.PeriodUnit)
		}
		prev := -1
		for _, th := range r.Thresholds {
			if th.AtDaysRemaining < 0 {
				return fmt.Errorf("frequency recurrence: negative threshold trigger %d", th.AtDaysRemaining)
			}
			if th.AtDaysRemaining <= prev {
				return fmt.Errorf("frequency recurrence: thresholds must be strictly ascending")
			}
			switch th.Priority {
			case PriorityMedium, PriorityHigh, PriorityCritical:
			default:
				return fmt.Errorf("frequency recurrence: invalid threshold priority %q", th.Priority)
			}
			prev = th.AtDaysRemaining
		}
	default:
		return fmt.Errorf("recurrence: unknown kind %q", r.Kind)
	}
	return nil
}

// PeriodDays returns the frequency period length in days.
// Only meaningful for frequency rules.
func (r *RecurrenceRule) PeriodDays() int {
	return r.Period * r.PeriodUnit.Days()
}

// IntervalDays returns the elapsed interval length in days.
// Only meaningful for elapsed rules.
func (r *RecurrenceRule) IntervalDays() int {
	return r.Interval * r.Unit.Days()
}

// BlockerSpec declares what keeps a task out of the queue: other tasks
// that must complete first, and sensors that block while on. Each category
// combines under its own mode, and the two categories combine under Mode.
type BlockerSpec struct {
	Mode       Mode     `json:"mode,omitempty"`        // default ALL
	ItemMode   Mode     `json:"item_mode,omitempty"`   // default ANY
	SensorMode Mode     `json:"sensor_mode,omitempty"` // default ANY
	Items      []string `json:"items,omitempty"`
	Sensors    []string `json:"sensors,omitempty"`
}

// Validate rejects unknown mode values.
func (b *BlockerSpec) Validate() error {
	if !ValidMode(b.Mode) {
		return fmt.Errorf("blockers: invalid mode %q", b.Mode)
	}
	if !ValidMode(b.ItemMode) {
		return fmt.Errorf("blockers: invalid item_mode %q", b.ItemMode)
	}
	if !ValidMode(b.SensorMode) {
		return fmt.Errorf("blockers: invalid sensor_mode %q", b.SensorMode)
	}
	return nil
}

// EffectiveMode returns Mode with the ALL default applied.
// Unset nested modes default to ANY, which preserves the older flat
// behavior of items-ANY and sensors-ANY joined by ALL.
func (b *BlockerSpec) EffectiveMode() Mode {
	if b.Mode == "" {
		return ModeAll
	}
	return b.Mode
}

// EffectiveItemMode returns ItemMode with the ANY default applied.
func (b *BlockerSpec) EffectiveItemMode() Mode {
	if b.ItemMode == "" {
		return ModeAny
	}
	return b.ItemMode
}

// EffectiveSensorMode returns SensorMode with the ANY default applied.
func (b *BlockerSpec) EffectiveSensorMode() Mode {
	if b.SensorMode == "" {
		return ModeAny
	}
	return b.SensorMode
}

// RequirementSpec declares the context a task needs before it is worth
// surfacing: where you are, who is around, what time window it is, which
// context tags are active, and which sensors are on.
type RequirementSpec struct {
	Mode            Mode     `json:"mode,omitempty"` // default ALL
	Location        []string `json:"location,omitempty"`
	People          []string `json:"people,omitempty"`
	TimeConstraints []string `json:"time_constraints,omitempty"`
	Context         []string `json:"context,omitempty"`
	Sensors         []string `json:"sensors,omitempty"`
}

// Validate rejects unknown mode values.
func (r *RequirementSpec) Validate() error {
	if !ValidMode(r.Mode) {
		return fmt.Errorf("requirements: invalid mode %q", r.Mode)
	}
	return nil
}

// Empty reports whether no category is configured. An empty spec is
// vacuously satisfied regardless of mode.
func (r *RequirementSpec) Empty() bool {
	return len(r.Location) == 0 && len(r.People) == 0 &&
		len(r.TimeConstraints) == 0 && len(r.Context) == 0 && len(r.Sensors) == 0
}

// EffectiveMode returns Mode with the ALL default applied.
func (r *RequirementSpec) EffectiveMode() Mode {
	if r.Mode == "" {
		return ModeAll
	}
	return r.Mode
}

// ContextSnapshot is the evaluator's immutable view of "now". One snapshot
// serves one whole queue build; it is never stored on a task.
type ContextSnapshot struct {
	Location      string
	People        []string
	ContextTags   []string
	TimeWindow    string // named window: weekend, morning, business_hours, evening, night
	Now           time.Time
	AvailableTime *int // minutes, nil = no budget
}

// Validate rejects snapshots the queue cannot evaluate against.
func (c ContextSnapshot) Validate() error {
	if c.Now.IsZero() {
		return fmt.Errorf("context snapshot: missing clock value")
	}
	if c.AvailableTime != nil && *c.AvailableTime <= 0 {
		return fmt.Errorf("context snapshot: available time must be positive, got %d", *c.AvailableTime)
	}
	return nil
}
