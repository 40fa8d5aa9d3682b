// Package snapshot builds the immutable ContextSnapshot a queue evaluation
// runs against. Host-derived signals (presence, sensors, the clock) and
// explicit manual overrides both feed in; the evaluators never care which
// source populated a field.
package snapshot

import (
	"slices"
	"time"

	"github.com/hearthd/hearth/internal/model"
)

// Named time windows produced by Classify.
const (
	WindowWeekend       = "weekend"
	WindowMorning       = "morning"
	WindowBusinessHours = "business_hours"
	WindowEvening       = "evening"
	WindowNight         = "night"
)

// Classify maps a timestamp to its named time window. Weekends take
// precedence over the hour-of-day buckets.
func Classify(t time.Time) string {
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return WindowWeekend
	}
	switch h := t.Hour(); {
	case h >= 6 && h < 9:
		return WindowMorning
	case h >= 9 && h < 17:
		return WindowBusinessHours
	case h >= 17 && h < 21:
		return WindowEvening
	default:
		return WindowNight
	}
}

// Overrides are manual values that win over host-derived signals.
// Zero fields leave the derived value in place.
type Overrides struct {
	Location      string
	People        []string
	ContextTags   []string
	AvailableTime *int // minutes
}

// Build assembles a snapshot for one queue generation. defaultLocation is
// used while someone is present; with nobody home the location degrades to
// "away" unless overridden.
func Build(now time.Time, present []string, activeTags []string, defaultLocation string, ov Overrides) model.ContextSnapshot {
	snap := model.ContextSnapshot{
		Location:      defaultLocation,
		People:        slices.Clone(present),
		ContextTags:   slices.Clone(activeTags),
		TimeWindow:    Classify(now),
		Now:           now,
		AvailableTime: ov.AvailableTime,
	}
	if len(snap.People) == 0 {
		snap.Location = "away"
	}
	if ov.Location != "" {
		snap.Location = ov.Location
	}
	if len(ov.People) != 0 {
		snap.People = slices.Clone(ov.People)
	}
	if len(ov.ContextTags) != 0 {
		snap.ContextTags = slices.Clone(ov.ContextTags)
	}
	return snap
}
