package policy

import (
	"testing"

	"tycoon.ai/internal/sim/command"
	"tycoon.ai/internal/sim/state"
)

func marketer(name string) state.Worker {
	return state.Worker{Name: name, EnergyValue: 60, Specialty: state.SpecialtyMarketing}
}

func designer(name string) state.Worker {
	return state.Worker{Name: name, EnergyValue: 60, Specialty: state.SpecialtyDesign}
}

func TestScheduler_MarketingPicksHighestTrafficContentlessSite(t *testing.T) {
	s := &state.Snapshot{
		Sites: []state.Site{
			{Domain: "small", Traffic: 10},
			{Domain: "busy-with-content", Traffic: 500, Contents: []state.Content{{ID: "c", Enabled: true}}},
			{Domain: "busy-with-draft", Traffic: 400, Contents: []state.Content{{ID: "d"}}},
			{Domain: "busy-marketed", Traffic: 300, Task: &state.Task{Zone: "marketing", Specialty: state.SpecialtyMarketing}},
			{Domain: "target", Traffic: 200},
		},
		Workers: []state.Worker{marketer("m")},
	}
	assertCommands(t, NewScheduler(false).Plan(s), command.DoWork("m", "target"))
}

func TestScheduler_MarketingSkipsOccupiedSites(t *testing.T) {
	s := &state.Snapshot{
		Sites: []state.Site{
			{Domain: "a", Traffic: 9, Task: &state.Task{Zone: "design", Specialty: state.SpecialtyDesign}},
			{Domain: "b", Traffic: 1},
		},
		Workers: []state.Worker{marketer("m")},
	}
	assertCommands(t, NewScheduler(false).Plan(s), command.DoWork("m", "b"))
}

// A pending marketing run keeps the site's only task slot: a designer must not take it
// over, and a second marketer must not be sent there once the design work is gone.
func TestScheduler_MarketedSiteStaysOccupied(t *testing.T) {
	s := &state.Snapshot{
		Sites: []state.Site{
			{Domain: "a", Traffic: 50, Work: map[state.Specialty]int{state.SpecialtyDesign: 1},
				Task: &state.Task{Worker: "mia", Site: "a", Zone: "marketing", Specialty: state.SpecialtyMarketing}},
		},
		Workers: []state.Worker{designer("dan"), marketer("max")},
	}
	for _, reserve := range []bool{false, true} {
		if got := NewScheduler(reserve).Plan(s); len(got) != 0 {
			t.Fatalf("reserve=%v: expected no assignment, got %v", reserve, got)
		}
	}
	if got := SelectSiteWithWork(s, &s.Workers[0]); got != nil {
		t.Fatalf("designer selected occupied site %s", got.Domain)
	}
}

func TestScheduler_MarketingNoCandidate(t *testing.T) {
	s := &state.Snapshot{
		Sites:   []state.Site{{Domain: "a", Contents: []state.Content{{ID: "c"}}}},
		Workers: []state.Worker{marketer("m")},
	}
	if got := NewScheduler(false).Plan(s); len(got) != 0 {
		t.Fatalf("expected no assignment, got %v", got)
	}
}

func TestScheduler_DefaultPicksFirstSiteWithMatchingWork(t *testing.T) {
	s := &state.Snapshot{
		Sites: []state.Site{
			{Domain: "code-only", Traffic: 900, Work: map[state.Specialty]int{state.SpecialtyProgramming: 3}},
			{Domain: "design-1", Traffic: 1, Work: map[state.Specialty]int{state.SpecialtyDesign: 1}},
			{Domain: "design-2", Traffic: 800, Work: map[state.Specialty]int{state.SpecialtyDesign: 5}},
		},
		Workers: []state.Worker{designer("d")},
	}
	assertCommands(t, NewScheduler(false).Plan(s), command.DoWork("d", "design-1"))

	s.Sites[1].Work = nil
	s.Sites[2].Work = nil
	if got := NewScheduler(false).Plan(s); len(got) != 0 {
		t.Fatalf("expected no assignment without matching work, got %v", got)
	}
}

func TestScheduler_SkipsNonIdleWorkers(t *testing.T) {
	s := &state.Snapshot{
		Sites: []state.Site{{Domain: "a", Work: map[state.Specialty]int{state.SpecialtyDesign: 9}}},
		Workers: []state.Worker{
			{Name: "busy", Specialty: state.SpecialtyDesign, Task: &state.Task{Zone: "design", Specialty: state.SpecialtyDesign}},
			{Name: "resting", Specialty: state.SpecialtyDesign, Task: &state.Task{Zone: state.ZoneVacation}},
			designer("free"),
		},
	}
	assertCommands(t, NewScheduler(false).Plan(s), command.DoWork("free", "a"))
}

// Without a reserved view both idle marketers see the same snapshot and are sent to the
// same site. With it, the second marketer sees the first one's pending task.
func TestScheduler_SameTickDoubleBooking(t *testing.T) {
	snap := func() *state.Snapshot {
		return &state.Snapshot{
			Sites: []state.Site{
				{Domain: "top", Traffic: 100},
				{Domain: "next", Traffic: 50},
			},
			Workers: []state.Worker{marketer("m1"), marketer("m2")},
		}
	}

	assertCommands(t, NewScheduler(false).Plan(snap()),
		command.DoWork("m1", "top"),
		command.DoWork("m2", "top"),
	)

	s := snap()
	assertCommands(t, NewScheduler(true).Plan(s),
		command.DoWork("m1", "top"),
		command.DoWork("m2", "next"),
	)
	if s.Site("top").Task != nil || !s.Workers[0].IsIdle() {
		t.Fatalf("reserved view leaked into the caller's snapshot")
	}
}

func TestScheduler_ReserveConsumesOutstandingWork(t *testing.T) {
	s := &state.Snapshot{
		Sites: []state.Site{
			{Domain: "a", Work: map[state.Specialty]int{state.SpecialtyDesign: 1}},
			{Domain: "b", Work: map[state.Specialty]int{state.SpecialtyDesign: 2}},
		},
		Workers: []state.Worker{designer("d1"), designer("d2"), designer("d3"), designer("d4")},
	}
	assertCommands(t, NewScheduler(true).Plan(s),
		command.DoWork("d1", "a"),
		command.DoWork("d2", "b"),
	)
	assertCommands(t, NewScheduler(false).Plan(s),
		command.DoWork("d1", "a"),
		command.DoWork("d2", "a"),
		command.DoWork("d3", "a"),
		command.DoWork("d4", "a"),
	)
}

func TestScheduler_SelectorMapIsExtensible(t *testing.T) {
	s := &state.Snapshot{
		Sites:   []state.Site{{Domain: "a"}, {Domain: "b"}},
		Workers: []state.Worker{{Name: "p", Specialty: state.SpecialtyProgramming}},
	}
	sc := NewScheduler(false)
	sc.Selectors[state.SpecialtyProgramming] = func(s *state.Snapshot, _ *state.Worker) *state.Site {
		return s.Site("b")
	}
	assertCommands(t, sc.Plan(s), command.DoWork("p", "b"))

	if _, ok := NewScheduler(false).Selectors[state.SpecialtyProgramming]; ok {
		t.Fatalf("NewScheduler must not share its selector map")
	}

	sc = &Scheduler{}
	if got := sc.Plan(s); len(got) != 0 {
		t.Fatalf("empty scheduler should assign nothing, got %v", got)
	}
}
