// Package recurrence computes next-due dates, streaks, and frequency-goal
// progress from a recurrence rule and a completion history. Everything here
// is a pure function of (rule, history, now); absence of history is a valid
// input, never an error.
package recurrence

import (
	"slices"
	"time"

	"github.com/hearthd/hearth/internal/model"
)

// frequencyStreakLimit caps the walk back through satisfied periods.
const frequencyStreakLimit = 1000

// Options tune streak tolerance. Zero values take the defaults.
type Options struct {
	// GraceFraction is the share of the interval a completion may be
	// early or late and still preserve an elapsed streak.
	GraceFraction float64
	// AtRiskMargin is how close to a deadline a streak must be before
	// it is reported as at risk.
	AtRiskMargin time.Duration
}

// DefaultOptions returns the stock tolerances: 20% grace, one day margin.
func DefaultOptions() Options {
	return Options{GraceFraction: 0.2, AtRiskMargin: 24 * time.Hour}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.GraceFraction <= 0 {
		o.GraceFraction = d.GraceFraction
	}
	if o.AtRiskMargin <= 0 {
		o.AtRiskMargin = d.AtRiskMargin
	}
	return o
}

// FrequencyProgress reports standing toward an "N times per period" goal.
type FrequencyProgress struct {
	Count         int            // completions inside the current period
	Target        int            // goal
	PeriodEnd     time.Time      // when the current period lapses
	DaysRemaining int            // whole days from now to PeriodEnd, never negative
	Priority      model.Priority // active threshold priority, empty if none reached
	Satisfied     bool           // Count >= Target
	PeriodStreak  int            // consecutive satisfied periods ending now
}

// Evaluation is the full recurrence read for one task.
type Evaluation struct {
	NextDue      *time.Time // nil means no scheduled due point (or immediately due for elapsed)
	Streak       int
	StreakAtRisk bool
	Frequency    *FrequencyProgress // nil unless the rule is a frequency goal
}

// Evaluate computes the recurrence state for a well-formed rule.
// Passing a nil rule yields a zero evaluation.
func Evaluate(rule *model.RecurrenceRule, history []model.CompletionRecord, now time.Time, opts Options) Evaluation {
	if rule == nil {
		return Evaluation{}
	}
	opts = opts.withDefaults()
	sorted := sortedDesc(history)

	switch rule.Kind {
	case model.RecurCalendar:
		return evalCalendar(rule, sorted, now, opts)
	case model.RecurElapsed:
		return evalElapsed(rule, sorted, now, opts)
	case model.RecurFrequency:
		return evalFrequency(rule, sorted, now, opts)
	default:
		return Evaluation{}
	}
}

// sortedDesc returns the history newest-first without mutating the input.
func sortedDesc(history []model.CompletionRecord) []model.CompletionRecord {
	out := slices.Clone(history)
	slices.SortFunc(out, func(a, b model.CompletionRecord) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

func evalCalendar(rule *model.RecurrenceRule, history []model.CompletionRecord, now time.Time, opts Options) Evaluation {
	period := time.Duration(rule.Pattern.PeriodDays()) * 24 * time.Hour

	// The schedule is independent of completions: the next occurrence is
	// one period from now.
	next := now.Add(period)
	ev := Evaluation{NextDue: &next}

	// Streak: walk back one period at a time from now; each window must
	// contain a completion.
	end := now
	for _, rec := range history {
		start := end.Add(-period)
		if rec.Timestamp.After(end) {
			continue // future or duplicate inside an already-counted window
		}
		if rec.Timestamp.Before(start) {
			break // gap, streak broken
		}
		ev.Streak++
		end = start
	}

	if ev.Streak > 0 && len(history) > 0 {
		due := history[0].Timestamp.Add(period)
		ev.StreakAtRisk = dueWithinMargin(due, now, opts.AtRiskMargin)
	}
	return ev
}

func evalElapsed(rule *model.RecurrenceRule, history []model.CompletionRecord, now time.Time, opts Options) Evaluation {
	if len(history) == 0 {
		// Never completed: immediately due, no streak to protect.
		return Evaluation{}
	}

	interval := time.Duration(rule.IntervalDays()) * 24 * time.Hour
	grace := time.Duration(float64(interval) * opts.GraceFraction)

	next := history[0].Timestamp.Add(interval)
	ev := Evaluation{NextDue: &next}

	// Walk newest to oldest. A gap inside [interval-grace, interval+grace]
	// continues the streak; a shorter gap is a duplicate completion within
	// the same period and is skipped; a longer gap breaks the chain.
	ev.Streak = 1
	anchor := history[0].Timestamp
	for _, rec := range history[1:] {
		gap := anchor.Sub(rec.Timestamp)
		if gap < interval-grace {
			continue // duplicate completion within the same period
		}
		if gap > interval+grace {
			break // gap too large, chain broken
		}
		ev.Streak++
		anchor = rec.Timestamp
	}
	return finishElapsed(ev, now, grace, opts)
}

func finishElapsed(ev Evaluation, now time.Time, grace time.Duration, opts Options) Evaluation {
	if ev.NextDue == nil {
		return ev
	}
	// Past the grace window with no new completion: the chain is already
	// broken, nothing left to protect.
	if now.After(ev.NextDue.Add(grace)) {
		ev.Streak = 0
		return ev
	}
	ev.StreakAtRisk = ev.Streak > 0 && dueWithinMargin(*ev.NextDue, now, opts.AtRiskMargin)
	return ev
}

func evalFrequency(rule *model.RecurrenceRule, history []model.CompletionRecord, now time.Time, opts Options) Evaluation {
	periodDays := rule.PeriodDays()
	period := time.Duration(periodDays) * 24 * time.Hour
	windowStart := now.Add(-period)

	// Completions inside the rolling window ending now. The oldest of them
	// anchors the current period, so the deadline stays fixed while the
	// clock advances and days remaining shrinks monotonically.
	count := 0
	var oldest time.Time
	for _, rec := range history {
		if rec.Timestamp.After(now) || !rec.Timestamp.After(windowStart) {
			continue
		}
		count++
		if oldest.IsZero() || rec.Timestamp.Before(oldest) {
			oldest = rec.Timestamp
		}
	}

	periodEnd := now.Add(period)
	if !oldest.IsZero() {
		periodEnd = oldest.Add(period)
	}
	daysRemaining := int(periodEnd.Sub(now).Hours() / 24)
	if daysRemaining < 0 {
		daysRemaining = 0
	}
	if daysRemaining > periodDays {
		daysRemaining = periodDays
	}

	satisfied := count >= rule.Target

	// Streak of satisfied periods before the current window. The current
	// window joins the streak only once its own goal is met.
	prior := frequencyStreak(rule, history, windowStart)
	periodStreak := prior
	if satisfied {
		periodStreak++
	}

	prog := &FrequencyProgress{
		Count:         count,
		Target:        rule.Target,
		PeriodEnd:     periodEnd,
		DaysRemaining: daysRemaining,
		Priority:      activeThreshold(rule.Thresholds, daysRemaining),
		Satisfied:     satisfied,
		PeriodStreak:  periodStreak,
	}

	ev := Evaluation{Frequency: prog, Streak: periodStreak}
	ev.StreakAtRisk = prior > 0 && !satisfied &&
		periodEnd.Sub(now) <= opts.AtRiskMargin
	return ev
}

// activeThreshold picks the smallest trigger that has been reached:
// the tightest escalation wins when several apply.
func activeThreshold(thresholds []model.Threshold, daysRemaining int) model.Priority {
	best := model.Priority("")
	bestTrigger := -1
	for _, th := range thresholds {
		if daysRemaining > th.AtDaysRemaining {
			continue
		}
		if bestTrigger == -1 || th.AtDaysRemaining < bestTrigger {
			bestTrigger = th.AtDaysRemaining
			best = th.Priority
		}
	}
	return best
}

// frequencyStreak counts consecutive periods, walking back from until, in
// which the goal was met.
func frequencyStreak(rule *model.RecurrenceRule, history []model.CompletionRecord, until time.Time) int {
	period := time.Duration(rule.PeriodDays()) * 24 * time.Hour

	streak := 0
	end := until
	for streak < frequencyStreakLimit {
		start := end.Add(-period)
		n := 0
		for _, rec := range history {
			if rec.Timestamp.After(start) && !rec.Timestamp.After(end) {
				n++
			}
		}
		if n < rule.Target {
			break
		}
		streak++
		end = start
	}
	return streak
}

// dueWithinMargin reports whether due is close enough ahead of now to be at
// risk: not already lapsed beyond recovery, and inside the margin.
func dueWithinMargin(due, now time.Time, margin time.Duration) bool {
	remaining := due.Sub(now)
	return remaining <= margin
}
