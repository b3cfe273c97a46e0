package policy

import (
	"tycoon.ai/internal/sim/command"
	"tycoon.ai/internal/sim/state"
)

// Completion finalizes work whose completion predicate holds.
type Completion struct{}

func (Completion) Name() string { return NameCompletion }

func (Completion) Plan(s *state.Snapshot) []command.Command {
	var out []command.Command
	for i := range s.Workers {
		w := &s.Workers[i]
		if w.IsWorking() && w.IsWorkCompleted() {
			out = append(out, command.CompleteWork(w.Name).Because(NameCompletion, "task "+w.Task.ID+" done"))
		}
	}
	return out
}
