// Package policy contains the tick rules. Each policy is a pure function of a snapshot:
// it inspects the state and returns the commands to issue, in issue order. Executing
// them is the orchestrator's job.
package policy

import (
	"tycoon.ai/internal/sim/command"
	"tycoon.ai/internal/sim/state"
	"tycoon.ai/internal/sim/tuning"
)

// Policy names, also used as the Policy field of issued commands.
const (
	NameHosting     = "hosting"
	NameEnergy      = "energy"
	NameCompletion  = "completion"
	NameAssignment  = "assignment"
	NameProgression = "progression"
	NameContent     = "content"
	NameAds         = "ads"
)

type Policy interface {
	Name() string
	Plan(s *state.Snapshot) []command.Command
}

// Standard returns the policies of one tick in their fixed execution order.
func Standard(t tuning.Tuning) []Policy {
	return []Policy{
		Hosting{MinTier: t.Hosting.MinTier, Price: t.Hosting.Price},
		Energy{RestAt: t.Energy.RestAt, WakeAt: t.Energy.WakeAt},
		Completion{},
		NewScheduler(t.Assignment.Reserve),
		Progression{},
		Content{},
		Ads{EnableAtCount: t.Ads.EnableAtCount},
	}
}

// ByName indexes policies for replay and tooling.
func ByName(ps []Policy) map[string]Policy {
	out := make(map[string]Policy, len(ps))
	for _, p := range ps {
		out[p.Name()] = p
	}
	return out
}
