package policy

import (
	"tycoon.ai/internal/sim/command"
	"tycoon.ai/internal/sim/state"
)

// Content enables the first disabled content unit of a site that has nothing live.
// At most one unit per site per tick.
type Content struct{}

func (Content) Name() string { return NameContent }

func (Content) Plan(s *state.Snapshot) []command.Command {
	var out []command.Command
	for _, site := range s.SortedSites() {
		if site.HasActiveContent() || !site.HasDisabledContent() {
			continue
		}
		first := site.DisabledContents()[0]
		out = append(out, command.EnableContent(site.Domain, first.ID).
			Because(NameContent, "no active content; enabling "+first.TypeID))
	}
	return out
}
