// Package requirements decides whether a task's contextual requirements
// (location, people, time window, context tags, sensors) are satisfied by
// the current context snapshot.
package requirements

import (
	"fmt"
	"slices"

	"github.com/hearthd/hearth/internal/model"
)

// SensorStates resolves the current boolean state of a named sensor.
type SensorStates interface {
	SensorState(ref string) (on bool, known bool)
}

// PeoplePolicy selects how the people category matches.
type PeoplePolicy string

const (
	// PeopleIntersect is satisfied when at least one configured person is
	// present. The default.
	PeopleIntersect PeoplePolicy = "intersect"
	// PeopleSubset is satisfied only when every configured person is present.
	PeopleSubset PeoplePolicy = "subset"
)

// Result is the outcome of a requirements evaluation.
type Result struct {
	Met bool
	// Unmet lists configured categories that did not match, for display.
	Unmet []string
	// Diagnostics records unknown sensor references.
	Diagnostics []string
}

// Evaluate computes whether the spec's requirements hold under the snapshot.
// A nil or fully empty spec is vacuously satisfied regardless of mode.
func Evaluate(spec *model.RequirementSpec, snap model.ContextSnapshot, sensors SensorStates, policy PeoplePolicy) Result {
	if spec == nil || spec.Empty() {
		return Result{Met: true}
	}

	var res Result

	// Per-category results. A category with nothing configured is
	// vacuously met and never drags ALL down; under ANY only configured
	// categories can satisfy the spec.
	type category struct {
		configured bool
		met        bool
		label      string
	}

	cats := []category{
		{
			configured: len(spec.Location) != 0,
			met:        slices.Contains(spec.Location, snap.Location),
			label:      fmt.Sprintf("location %q not in %v", snap.Location, spec.Location),
		},
		{
			configured: len(spec.People) != 0,
			met:        peopleMet(spec.People, snap.People, policy),
			label:      fmt.Sprintf("required people not present: %v", spec.People),
		},
		{
			configured: len(spec.TimeConstraints) != 0,
			met:        slices.Contains(spec.TimeConstraints, snap.TimeWindow),
			label:      fmt.Sprintf("time window %q not in %v", snap.TimeWindow, spec.TimeConstraints),
		},
		{
			configured: len(spec.Context) != 0,
			met:        intersects(spec.Context, snap.ContextTags),
			label:      fmt.Sprintf("required context not active: %v", spec.Context),
		},
	}

	if len(spec.Sensors) != 0 {
		vals := make([]bool, 0, len(spec.Sensors))
		for _, ref := range spec.Sensors {
			on, known := sensors.SensorState(ref)
			if !known {
				res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("requirement sensor %s unknown", ref))
			}
			vals = append(vals, on && known)
		}
		cats = append(cats, category{
			configured: true,
			met:        spec.EffectiveMode().Combine(vals),
			label:      fmt.Sprintf("required sensors not on: %v", spec.Sensors),
		})
	}

	switch spec.EffectiveMode() {
	case model.ModeAny:
		for _, c := range cats {
			if c.configured && c.met {
				res.Met = true
				break
			}
		}
	default: // ALL
		res.Met = true
		for _, c := range cats {
			if c.configured && !c.met {
				res.Met = false
				break
			}
		}
	}

	if !res.Met {
		for _, c := range cats {
			if c.configured && !c.met {
				res.Unmet = append(res.Unmet, c.label)
			}
		}
	}
	return res
}

func peopleMet(required, present []string, policy PeoplePolicy) bool {
	if policy == PeopleSubset {
		for _, p := range required {
			if !slices.Contains(present, p) {
				return false
			}
		}
		return true
	}
	return intersects(required, present)
}

func intersects(a, b []string) bool {
	for _, v := range a {
		if slices.Contains(b, v) {
			return true
		}
	}
	return false
}
