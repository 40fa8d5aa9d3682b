// Package blockers decides whether a task is blocked by other tasks or by
// sensors. Items and sensors each combine under their own ANY/ALL mode, and
// the two category results combine under the spec's top-level mode.
//
// Missing references fail soft: an unresolvable task ID or unknown sensor is
// treated as not blocking and reported as a diagnostic, never an error.
package blockers

import (
	"fmt"

	"github.com/hearthd/hearth/internal/model"
)

// TaskLookup resolves task IDs across every list visible to the actor.
type TaskLookup interface {
	FindTask(id string) (*model.Task, bool)
}

// SensorStates resolves the current boolean state of a named sensor.
// known is false when the sensor is absent or unreadable.
type SensorStates interface {
	SensorState(ref string) (on bool, known bool)
}

// Result is the outcome of a blocker evaluation.
type Result struct {
	Blocked bool
	// Reasons lists the blocker conditions that are currently true,
	// phrased for display (item titles, sensor names).
	Reasons []string
	// Diagnostics records soft-missing references encountered on the way.
	Diagnostics []string
}

// Evaluate computes whether spec blocks a task right now. A nil spec never
// blocks.
func Evaluate(spec *model.BlockerSpec, tasks TaskLookup, sensors SensorStates) Result {
	if spec == nil {
		return Result{}
	}

	var res Result

	itemVals := make([]bool, 0, len(spec.Items))
	for _, id := range spec.Items {
		blocker, ok := tasks.FindTask(id)
		if !ok {
			// Unresolvable reference: not blocking.
			itemVals = append(itemVals, false)
			res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("blocker item %s not found", id))
			continue
		}
		blocking := blocker.Status != model.StatusCompleted
		itemVals = append(itemVals, blocking)
		if blocking {
			res.Reasons = append(res.Reasons, fmt.Sprintf("Item %q not completed", blocker.Title))
		}
	}
	itemsBlocking := spec.EffectiveItemMode().Combine(itemVals)

	sensorVals := make([]bool, 0, len(spec.Sensors))
	for _, ref := range spec.Sensors {
		on, known := sensors.SensorState(ref)
		if !known {
			// Unknown sensor reads as not-on.
			sensorVals = append(sensorVals, false)
			res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("blocker sensor %s unknown", ref))
			continue
		}
		sensorVals = append(sensorVals, on)
		if on {
			res.Reasons = append(res.Reasons, fmt.Sprintf("Sensor %s is on", ref))
		}
	}
	sensorsBlocking := spec.EffectiveSensorMode().Combine(sensorVals)

	// Top-level composition. With ALL, an empty category is always false,
	// so the whole result is false no matter what the other category says.
	// That is the truth table, not a special case.
	switch spec.EffectiveMode() {
	case model.ModeAny:
		res.Blocked = itemsBlocking || sensorsBlocking
	default: // ALL
		res.Blocked = itemsBlocking && sensorsBlocking
	}
	return res
}
