package tick

import (
	"fmt"
	"reflect"

	"tycoon.ai/internal/agent/policy"
	"tycoon.ai/internal/sim/command"
	"tycoon.ai/internal/sim/state"
)

// Verify re-plans every recorded step of entry with the standard policies built from the
// entry's tuning and reports the first divergence. Policies are pure, so a log produced by
// the same code always verifies.
func Verify(entry TickLogEntry) error {
	return VerifyWith(entry, policy.Standard(entry.Tuning))
}

func VerifyWith(entry TickLogEntry, policies []policy.Policy) error {
	if len(entry.Steps) > len(policies) {
		return fmt.Errorf("seq %d: %d steps recorded, only %d policies", entry.Seq, len(entry.Steps), len(policies))
	}
	var snap *state.Snapshot
	for i, step := range entry.Steps {
		p := policies[i]
		if step.Policy != p.Name() {
			return fmt.Errorf("seq %d step %d: policy %q recorded, %q expected", entry.Seq, i, step.Policy, p.Name())
		}
		if step.Snapshot != nil {
			snap = step.Snapshot
		}
		if snap == nil {
			return fmt.Errorf("seq %d step %s: no snapshot recorded", entry.Seq, step.Policy)
		}
		if got := snap.Digest(); got != step.Digest {
			return fmt.Errorf("seq %d step %s: snapshot digest %s, recorded %s", entry.Seq, step.Policy, got, step.Digest)
		}
		planned := p.Plan(snap)
		if !sameCommands(planned, step.Planned) {
			return fmt.Errorf("seq %d step %s: re-planned %v, recorded %v", entry.Seq, step.Policy, planned, step.Planned)
		}
		if step.Executed > len(step.Planned) {
			return fmt.Errorf("seq %d step %s: executed %d of %d planned", entry.Seq, step.Policy, step.Executed, len(step.Planned))
		}
	}
	return nil
}

func sameCommands(a, b []command.Command) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
