package snapshot

import (
	"testing"
	"time"
)

func mustTime(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestClassify(t *testing.T) {
	cases := []struct {
		when string
		want string
	}{
		{"2026-03-07 10:00", WindowWeekend}, // Saturday
		{"2026-03-08 23:00", WindowWeekend}, // Sunday night stays weekend
		{"2026-03-09 06:00", WindowMorning}, // Monday, inclusive lower bound
		{"2026-03-09 08:59", WindowMorning},
		{"2026-03-09 09:00", WindowBusinessHours},
		{"2026-03-09 16:59", WindowBusinessHours},
		{"2026-03-09 17:00", WindowEvening},
		{"2026-03-09 20:59", WindowEvening},
		{"2026-03-09 21:00", WindowNight},
		{"2026-03-09 02:00", WindowNight},
		{"2026-03-09 05:59", WindowNight},
	}
	for _, c := range cases {
		if got := Classify(mustTime(c.when)); got != c.want {
			t.Errorf("Classify(%s) = %s, want %s", c.when, got, c.want)
		}
	}
}

func TestBuild_Defaults(t *testing.T) {
	now := mustTime("2026-03-09 10:00")
	snap := Build(now, []string{"alex"}, []string{"focus"}, "home", Overrides{})

	if snap.Location != "home" {
		t.Errorf("location = %q, want home", snap.Location)
	}
	if snap.TimeWindow != WindowBusinessHours {
		t.Errorf("window = %q, want business_hours", snap.TimeWindow)
	}
	if len(snap.People) != 1 || snap.People[0] != "alex" {
		t.Errorf("people = %v", snap.People)
	}
	if len(snap.ContextTags) != 1 || snap.ContextTags[0] != "focus" {
		t.Errorf("tags = %v", snap.ContextTags)
	}
	if snap.AvailableTime != nil {
		t.Error("no override should leave available time nil")
	}
}

func TestBuild_NobodyHomeDegradesToAway(t *testing.T) {
	now := mustTime("2026-03-09 10:00")
	snap := Build(now, nil, nil, "home", Overrides{})
	if snap.Location != "away" {
		t.Errorf("location = %q, want away with nobody present", snap.Location)
	}
}

func TestBuild_OverridesWin(t *testing.T) {
	now := mustTime("2026-03-09 10:00")
	minutes := 45
	snap := Build(now, nil, []string{"derived"}, "home", Overrides{
		Location:      "cabin",
		People:        []string{"sam"},
		ContextTags:   []string{"vacation"},
		AvailableTime: &minutes,
	})

	if snap.Location != "cabin" {
		t.Errorf("location = %q, want cabin", snap.Location)
	}
	if len(snap.People) != 1 || snap.People[0] != "sam" {
		t.Errorf("people = %v", snap.People)
	}
	if len(snap.ContextTags) != 1 || snap.ContextTags[0] != "vacation" {
		t.Errorf("tags = %v", snap.ContextTags)
	}
	if snap.AvailableTime == nil || *snap.AvailableTime != 45 {
		t.Errorf("available time = %v", snap.AvailableTime)
	}
}

func TestBuild_LocationOverrideBeatsAwayDegrade(t *testing.T) {
	now := mustTime("2026-03-09 10:00")
	snap := Build(now, nil, nil, "home", Overrides{Location: "home"})
	if snap.Location != "home" {
		t.Errorf("location = %q, explicit override should beat the away degrade", snap.Location)
	}
}
