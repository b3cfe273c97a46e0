package policy

import (
	"fmt"

	"tycoon.ai/internal/sim/command"
	"tycoon.ai/internal/sim/state"
)

// Energy sends exhausted workers on vacation and recalls rested ones.
type Energy struct {
	RestAt int
	WakeAt int
}

func (Energy) Name() string { return NameEnergy }

func (p Energy) Plan(s *state.Snapshot) []command.Command {
	var out []command.Command
	for i := range s.Workers {
		w := &s.Workers[i]
		if w.EnergyValue <= p.RestAt {
			out = append(out, command.SendVacation(w.Name).
				Because(NameEnergy, fmt.Sprintf("energy %d <= %d", w.EnergyValue, p.RestAt)))
		}
		if w.EnergyValue >= p.WakeAt && w.Task.IsVacation() {
			out = append(out, command.CancelVacation(w.Name).
				Because(NameEnergy, fmt.Sprintf("energy %d >= %d", w.EnergyValue, p.WakeAt)))
		}
	}
	return out
}
