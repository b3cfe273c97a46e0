package policy

import (
	"fmt"

	"tycoon.ai/internal/sim/command"
	"tycoon.ai/internal/sim/state"
)

// Ads enables every disabled ad on sites whose total ad count is exactly EnableAtCount.
type Ads struct {
	EnableAtCount int
}

func (Ads) Name() string { return NameAds }

func (p Ads) Plan(s *state.Snapshot) []command.Command {
	var out []command.Command
	for _, site := range s.SortedSites() {
		if site.AdsCount() != p.EnableAtCount {
			continue
		}
		for _, ad := range site.DisabledAds() {
			out = append(out, command.EnableAd(site.Domain, ad.ID).
				Because(NameAds, fmt.Sprintf("ad slots full (%d)", p.EnableAtCount)))
		}
	}
	return out
}
