package policy

import (
	"fmt"

	"tycoon.ai/internal/sim/command"
	"tycoon.ai/internal/sim/state"
)

type Progression struct{}

func (Progression) Name() string { return NameProgression }

func (Progression) Plan(s *state.Snapshot) []command.Command {
	var out []command.Command
	for _, site := range s.SortedSites() {
		if site.CanLevelUp {
			out = append(out, command.LevelUp(site.Domain).
				Because(NameProgression, fmt.Sprintf("level %d -> %d", site.Level, site.Level+1)))
		}
	}
	return out
}
