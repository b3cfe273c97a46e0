package policy

import (
	"fmt"

	"tycoon.ai/internal/sim/command"
	"tycoon.ai/internal/sim/state"
)

// Hosting keeps every site at or above MinTier and pays the recurring hosting bill for
// sites sitting exactly at MinTier.
type Hosting struct {
	MinTier int
	Price   int64
}

func (Hosting) Name() string { return NameHosting }

func (p Hosting) Plan(s *state.Snapshot) []command.Command {
	var out []command.Command
	for _, site := range s.SortedSites() {
		if site.HostingID < p.MinTier {
			out = append(out, command.ChangeHosting(site.Domain, p.MinTier).
				Because(NameHosting, fmt.Sprintf("tier %d below floor %d", site.HostingID, p.MinTier)))
		}
		// Exact tier match: sites above the floor are not billed by this rule.
		if site.CanPayForHosting && site.HostingID == p.MinTier && s.Person.Balance > p.Price {
			out = append(out, command.PayForHosting(site.Domain, p.Price).
				Because(NameHosting, "billing due"))
		}
		if site.CanNormalize {
			out = append(out, command.NormalizeSite(site.Domain).Because(NameHosting, "normalization available"))
		}
	}
	return out
}
