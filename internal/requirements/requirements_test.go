package requirements

import (
	"testing"
	"time"

	"github.com/hearthd/hearth/internal/model"
)

type fakeSensors map[string]bool

func (f fakeSensors) SensorState(ref string) (on bool, known bool) {
	on, known = f[ref]
	return on, known
}

func snap(location string, people []string, window string) model.ContextSnapshot {
	return model.ContextSnapshot{
		Location:   location,
		People:     people,
		TimeWindow: window,
		Now:        time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestEvaluate_NilSpecVacuouslyMet(t *testing.T) {
	res := Evaluate(nil, snap("home", nil, "evening"), fakeSensors{}, PeopleIntersect)
	if !res.Met {
		t.Error("nil spec should be met")
	}
}

func TestEvaluate_EmptySpecVacuouslyMet(t *testing.T) {
	spec := &model.RequirementSpec{Mode: model.ModeAll}
	res := Evaluate(spec, snap("away", nil, "night"), fakeSensors{}, PeopleIntersect)
	if !res.Met {
		t.Error("empty spec should be met regardless of mode")
	}

	spec.Mode = model.ModeAny
	res = Evaluate(spec, snap("away", nil, "night"), fakeSensors{}, PeopleIntersect)
	if !res.Met {
		t.Error("empty ANY spec should be met")
	}
}

func TestEvaluate_LocationCategory(t *testing.T) {
	spec := &model.RequirementSpec{Location: []string{"home", "office"}}

	if !Evaluate(spec, snap("home", nil, ""), fakeSensors{}, PeopleIntersect).Met {
		t.Error("matching location should satisfy")
	}
	res := Evaluate(spec, snap("away", nil, ""), fakeSensors{}, PeopleIntersect)
	if res.Met {
		t.Error("non-matching location should fail")
	}
	if len(res.Unmet) != 1 {
		t.Errorf("expected one unmet label, got %v", res.Unmet)
	}
}

func TestEvaluate_TimeWindowCategory(t *testing.T) {
	spec := &model.RequirementSpec{TimeConstraints: []string{"evening", "weekend"}}

	if !Evaluate(spec, snap("", nil, "weekend"), fakeSensors{}, PeopleIntersect).Met {
		t.Error("matching window should satisfy")
	}
	if Evaluate(spec, snap("", nil, "morning"), fakeSensors{}, PeopleIntersect).Met {
		t.Error("non-matching window should fail")
	}
}

func TestEvaluate_PeopleIntersect(t *testing.T) {
	spec := &model.RequirementSpec{People: []string{"alex", "sam"}}

	if !Evaluate(spec, snap("", []string{"sam"}, ""), fakeSensors{}, PeopleIntersect).Met {
		t.Error("one required person present should satisfy intersect")
	}
	if Evaluate(spec, snap("", []string{"riley"}, ""), fakeSensors{}, PeopleIntersect).Met {
		t.Error("no required person present should fail")
	}
}

func TestEvaluate_PeopleSubset(t *testing.T) {
	spec := &model.RequirementSpec{People: []string{"alex", "sam"}}

	if Evaluate(spec, snap("", []string{"sam"}, ""), fakeSensors{}, PeopleSubset).Met {
		t.Error("subset policy needs every required person present")
	}
	if !Evaluate(spec, snap("", []string{"sam", "alex", "riley"}, ""), fakeSensors{}, PeopleSubset).Met {
		t.Error("all required people present should satisfy subset")
	}
}

func TestEvaluate_ContextTags(t *testing.T) {
	spec := &model.RequirementSpec{Context: []string{"focus"}}
	s := snap("", nil, "")
	s.ContextTags = []string{"focus", "quiet"}

	if !Evaluate(spec, s, fakeSensors{}, PeopleIntersect).Met {
		t.Error("active context tag should satisfy")
	}

	s.ContextTags = []string{"quiet"}
	if Evaluate(spec, s, fakeSensors{}, PeopleIntersect).Met {
		t.Error("inactive context tag should fail")
	}
}

func TestEvaluate_Sensors(t *testing.T) {
	spec := &model.RequirementSpec{Sensors: []string{"daylight"}}

	if !Evaluate(spec, snap("", nil, ""), fakeSensors{"daylight": true}, PeopleIntersect).Met {
		t.Error("sensor on should satisfy")
	}
	if Evaluate(spec, snap("", nil, ""), fakeSensors{"daylight": false}, PeopleIntersect).Met {
		t.Error("sensor off should fail")
	}

	res := Evaluate(spec, snap("", nil, ""), fakeSensors{}, PeopleIntersect)
	if res.Met {
		t.Error("unknown sensor reads as off")
	}
	if len(res.Diagnostics) != 1 {
		t.Errorf("expected diagnostic for unknown sensor, got %v", res.Diagnostics)
	}
}

// Mode ALL: location away fails the whole spec no matter the sensor state.
func TestEvaluate_AllModeLocationGates(t *testing.T) {
	spec := &model.RequirementSpec{
		Mode:     model.ModeAll,
		Location: []string{"home"},
		Sensors:  []string{"daylight"},
	}

	res := Evaluate(spec, snap("away", nil, ""), fakeSensors{"daylight": true}, PeopleIntersect)
	if res.Met {
		t.Error("ALL spec with wrong location must fail regardless of sensors")
	}

	res = Evaluate(spec, snap("home", nil, ""), fakeSensors{"daylight": true}, PeopleIntersect)
	if !res.Met {
		t.Error("ALL spec with every category met should pass")
	}
}

func TestEvaluate_AnyModeOneCategorySuffices(t *testing.T) {
	spec := &model.RequirementSpec{
		Mode:     model.ModeAny,
		Location: []string{"home"},
		People:   []string{"alex"},
	}

	if !Evaluate(spec, snap("home", nil, ""), fakeSensors{}, PeopleIntersect).Met {
		t.Error("ANY spec with location met should pass")
	}
	if !Evaluate(spec, snap("away", []string{"alex"}, ""), fakeSensors{}, PeopleIntersect).Met {
		t.Error("ANY spec with people met should pass")
	}
	if Evaluate(spec, snap("away", nil, ""), fakeSensors{}, PeopleIntersect).Met {
		t.Error("ANY spec with nothing met should fail")
	}
}

// Unconfigured categories stay neutral: they never satisfy ANY and never
// fail ALL.
func TestEvaluate_UnconfiguredCategoriesAreNeutral(t *testing.T) {
	spec := &model.RequirementSpec{Mode: model.ModeAll, Location: []string{"home"}}

	s := snap("home", nil, "night")
	s.ContextTags = nil
	if !Evaluate(spec, s, fakeSensors{}, PeopleIntersect).Met {
		t.Error("unconfigured categories must not drag ALL down")
	}
}

func TestEvaluate_UnmetListsEveryFailedCategory(t *testing.T) {
	spec := &model.RequirementSpec{
		Mode:            model.ModeAll,
		Location:        []string{"home"},
		TimeConstraints: []string{"evening"},
	}

	res := Evaluate(spec, snap("away", nil, "morning"), fakeSensors{}, PeopleIntersect)
	if res.Met {
		t.Fatal("expected failure")
	}
	if len(res.Unmet) != 2 {
		t.Errorf("expected 2 unmet labels, got %v", res.Unmet)
	}
}
