package policy

import (
	"fmt"

	"tycoon.ai/internal/sim/command"
	"tycoon.ai/internal/sim/state"
)

// Selector picks the site an idle worker should work on, or nil when none qualifies.
// Selectors must not mutate the snapshot.
type Selector func(s *state.Snapshot, w *state.Worker) *state.Site

// Scheduler assigns idle workers to sites. The selector is chosen by the worker's
// specialty; specialties without an entry use Fallback.
//
// With Reserve unset every idle worker is matched against the same snapshot, so two
// workers may both be sent to a site whose eligibility would have changed after the first
// assignment. With Reserve set the scheduler works on a private copy and applies each
// assignment to it (the site gets a pending task of the worker's specialty and one unit of
// outstanding work is claimed) before evaluating the next worker. A site holds one active
// task, so the selectors skip occupied sites and the store rejects a second DO_WORK.
type Scheduler struct {
	Selectors map[state.Specialty]Selector
	Fallback  Selector
	Reserve   bool
}

var defaultSelectors = map[state.Specialty]Selector{
	state.SpecialtyMarketing: SelectMarketingSite,
}

func NewScheduler(reserve bool) *Scheduler {
	sel := make(map[state.Specialty]Selector, len(defaultSelectors))
	for k, v := range defaultSelectors {
		sel[k] = v
	}
	return &Scheduler{Selectors: sel, Fallback: SelectSiteWithWork, Reserve: reserve}
}

func (*Scheduler) Name() string { return NameAssignment }

func (sc *Scheduler) Plan(s *state.Snapshot) []command.Command {
	view := s
	if sc.Reserve {
		view = s.Clone()
	}
	var out []command.Command
	for i := range view.Workers {
		w := &view.Workers[i]
		if !w.IsIdle() {
			continue
		}
		site := sc.selectorFor(w.Specialty)(view, w)
		if site == nil {
			continue
		}
		out = append(out, command.DoWork(w.Name, site.Domain).
			Because(NameAssignment, fmt.Sprintf("specialty %s", w.Specialty)))
		if sc.Reserve {
			reserve(site, w)
		}
	}
	return out
}

func (sc *Scheduler) selectorFor(sp state.Specialty) Selector {
	if sel, ok := sc.Selectors[sp]; ok && sel != nil {
		return sel
	}
	if sc.Fallback != nil {
		return sc.Fallback
	}
	return selectNothing
}

// SelectMarketingSite takes the highest-traffic site that has no content at all (neither
// active nor disabled) and no active task.
func SelectMarketingSite(s *state.Snapshot, _ *state.Worker) *state.Site {
	for _, site := range s.SortedSitesByTraffic() {
		if site.HasActiveContent() || site.HasDisabledContent() {
			continue
		}
		if site.Task != nil {
			continue
		}
		return site
	}
	return nil
}

// SelectSiteWithWork takes the first unoccupied site in domain order with outstanding work
// for the worker's specialty.
func SelectSiteWithWork(s *state.Snapshot, w *state.Worker) *state.Site {
	for _, site := range s.SortedSites() {
		if site.Task == nil && site.HasUncompletedWork(w.Specialty) {
			return site
		}
	}
	return nil
}

func selectNothing(*state.Snapshot, *state.Worker) *state.Site { return nil }

func reserve(site *state.Site, w *state.Worker) {
	t := &state.Task{
		Worker:    w.Name,
		Site:      site.Domain,
		Zone:      state.WorkZone(w.Specialty),
		Specialty: w.Specialty,
	}
	site.Task = t
	if site.Work[w.Specialty] > 0 {
		site.Work[w.Specialty]--
	}
	wt := *t
	w.Task = &wt
}
