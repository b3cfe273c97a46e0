package policy

import (
	"reflect"
	"testing"

	"tycoon.ai/internal/sim/command"
	"tycoon.ai/internal/sim/state"
	"tycoon.ai/internal/sim/tuning"
)

func strip(cmds []command.Command) []command.Command {
	out := make([]command.Command, 0, len(cmds))
	for _, c := range cmds {
		c.Policy, c.Reason = "", ""
		out = append(out, c)
	}
	return out
}

func assertCommands(t *testing.T, got []command.Command, want ...command.Command) {
	t.Helper()
	if len(want) == 0 && len(got) == 0 {
		return
	}
	if !reflect.DeepEqual(strip(got), want) {
		t.Fatalf("commands mismatch:\n got=%v\nwant=%v", strip(got), want)
	}
}

func TestStandard_Order(t *testing.T) {
	ps := Standard(tuning.Defaults())
	var names []string
	for _, p := range ps {
		names = append(names, p.Name())
	}
	want := []string{NameHosting, NameEnergy, NameCompletion, NameAssignment, NameProgression, NameContent, NameAds}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("order=%v want %v", names, want)
	}
	if len(ByName(ps)) != len(want) {
		t.Fatalf("ByName lost policies")
	}
}

func TestHosting(t *testing.T) {
	p := Hosting{MinTier: 4, Price: 400000}
	s := &state.Snapshot{
		Person: state.Person{Balance: 500000},
		Sites: []state.Site{
			{Domain: "low", HostingID: 2, CanPayForHosting: true},
			{Domain: "exact", HostingID: 4, CanPayForHosting: true},
			{Domain: "above", HostingID: 5, CanPayForHosting: true},
			{Domain: "not-due", HostingID: 4},
			{Domain: "odd", HostingID: 4, CanNormalize: true},
		},
	}
	got := p.Plan(s)
	assertCommands(t, got,
		command.ChangeHosting("low", 4),
		command.PayForHosting("exact", 400000),
		command.NormalizeSite("odd"),
	)
	for _, c := range got {
		if c.Policy != NameHosting || c.Reason == "" {
			t.Fatalf("missing annotation on %v", c)
		}
	}
}

func TestHosting_PaymentNeedsBalanceAbovePrice(t *testing.T) {
	p := Hosting{MinTier: 4, Price: 400000}
	for _, balance := range []int64{0, 399999, 400000} {
		s := &state.Snapshot{
			Person: state.Person{Balance: balance},
			Sites:  []state.Site{{Domain: "a", HostingID: 4, CanPayForHosting: true}},
		}
		if got := p.Plan(s); len(got) != 0 {
			t.Fatalf("balance=%d: unexpected commands %v", balance, got)
		}
	}
}

func TestHosting_UpgradeOncePerUnderTierSite(t *testing.T) {
	p := Hosting{MinTier: 4, Price: 400000}
	s := &state.Snapshot{Sites: []state.Site{{Domain: "a", HostingID: 0}, {Domain: "b", HostingID: 3}, {Domain: "c", HostingID: 4}}}
	count := map[string]int{}
	for _, c := range p.Plan(s) {
		if c.Kind == command.KindChangeHosting {
			if c.HostingID != 4 {
				t.Fatalf("upgrade to tier %d, want 4", c.HostingID)
			}
			count[c.Site]++
		}
	}
	if count["a"] != 1 || count["b"] != 1 || count["c"] != 0 {
		t.Fatalf("upgrade counts=%v", count)
	}
}

func TestEnergy(t *testing.T) {
	p := Energy{RestAt: 5, WakeAt: 95}
	vac := func() *state.Task { return &state.Task{Zone: state.ZoneVacation} }
	s := &state.Snapshot{Workers: []state.Worker{
		{Name: "tired", EnergyValue: 5, Specialty: state.SpecialtyDesign},
		{Name: "empty", EnergyValue: 0, Specialty: state.SpecialtyDesign, Task: vac()},
		{Name: "mid", EnergyValue: 50, Specialty: state.SpecialtyDesign},
		{Name: "mid-vac", EnergyValue: 94, Specialty: state.SpecialtyDesign, Task: vac()},
		{Name: "rested", EnergyValue: 95, Specialty: state.SpecialtyDesign, Task: vac()},
		{Name: "fresh-idle", EnergyValue: 100, Specialty: state.SpecialtyDesign},
		{Name: "edge", EnergyValue: 6, Specialty: state.SpecialtyDesign},
	}}
	assertCommands(t, p.Plan(s),
		command.SendVacation("tired"),
		command.SendVacation("empty"),
		command.CancelVacation("rested"),
	)
}

func TestCompletion(t *testing.T) {
	s := &state.Snapshot{Workers: []state.Worker{
		{Name: "idle", Specialty: state.SpecialtyDesign},
		{Name: "busy", Specialty: state.SpecialtyDesign, Task: &state.Task{ID: "t1", Zone: "design", Specialty: state.SpecialtyDesign}},
		{Name: "done", Specialty: state.SpecialtyDesign, Task: &state.Task{ID: "t2", Zone: "design", Specialty: state.SpecialtyDesign, Done: true}},
		{Name: "resting", Specialty: state.SpecialtyDesign, Task: &state.Task{ID: "t3", Zone: state.ZoneVacation, Done: true}},
	}}
	assertCommands(t, Completion{}.Plan(s), command.CompleteWork("done"))

	idleOnly := &state.Snapshot{Workers: s.Workers[:1]}
	if got := (Completion{}).Plan(idleOnly); len(got) != 0 {
		t.Fatalf("idle worker produced %v", got)
	}
}

func TestProgression(t *testing.T) {
	s := &state.Snapshot{Sites: []state.Site{
		{Domain: "a", Level: 1, CanLevelUp: true},
		{Domain: "b", Level: 9},
		{Domain: "c", Level: 2, CanLevelUp: true},
	}}
	assertCommands(t, Progression{}.Plan(s), command.LevelUp("a"), command.LevelUp("c"))
}

func TestContent_AtMostOneFirstDisabled(t *testing.T) {
	s := &state.Snapshot{Sites: []state.Site{
		{Domain: "many", Contents: []state.Content{{ID: "c1", TypeID: "article"}, {ID: "c2", TypeID: "video"}}},
		{Domain: "live", Contents: []state.Content{{ID: "c3", Enabled: true}, {ID: "c4"}}},
		{Domain: "none"},
		{Domain: "mixed", Contents: []state.Content{{ID: "c5", Enabled: true}}},
		{Domain: "later", Contents: []state.Content{{ID: "c6", Enabled: false}}},
	}}
	assertCommands(t, Content{}.Plan(s),
		command.EnableContent("many", "c1"),
		command.EnableContent("later", "c6"),
	)
}

func TestAds_ExactCount(t *testing.T) {
	ads := func(total, disabled int) []state.Ad {
		out := make([]state.Ad, 0, total)
		for i := 0; i < total; i++ {
			out = append(out, state.Ad{ID: string(rune('a' + i)), Enabled: i >= disabled})
		}
		return out
	}
	s := &state.Snapshot{Sites: []state.Site{
		{Domain: "two", Ads: ads(2, 2)},
		{Domain: "three", Ads: ads(3, 2)},
		{Domain: "four", Ads: ads(4, 4)},
		{Domain: "three-live", Ads: ads(3, 0)},
	}}
	assertCommands(t, Ads{EnableAtCount: 3}.Plan(s),
		command.EnableAd("three", "a"),
		command.EnableAd("three", "b"),
	)
}

func TestPolicies_DoNotMutateSnapshot(t *testing.T) {
	s := &state.Snapshot{
		Person: state.Person{Balance: 900000},
		Sites: []state.Site{
			{Domain: "a", HostingID: 1, Traffic: 5, CanPayForHosting: true, CanLevelUp: true, Ads: []state.Ad{{ID: "x"}, {ID: "y"}, {ID: "z"}}},
			{Domain: "b", HostingID: 4, Traffic: 9, Contents: []state.Content{{ID: "c"}}, Work: map[state.Specialty]int{state.SpecialtyDesign: 1}},
		},
		Workers: []state.Worker{
			{Name: "m", EnergyValue: 50, Specialty: state.SpecialtyMarketing},
			{Name: "d", EnergyValue: 3, Specialty: state.SpecialtyDesign},
		},
	}
	before := s.Digest()
	cfg := tuning.Defaults()
	cfg.Assignment.Reserve = true
	for _, p := range Standard(cfg) {
		p.Plan(s)
	}
	if s.Digest() != before {
		t.Fatalf("a policy mutated its input snapshot")
	}
}
