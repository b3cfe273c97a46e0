package store

import "tycoon.ai/internal/sim/state"

// Advance simulates one game turn and returns the new turn counter.
func (s *Store) Advance() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cur.Tick++
	for i := range s.cur.Workers {
		s.advanceWorker(&s.cur.Workers[i])
	}
	for i := range s.cur.Sites {
		s.advanceSite(&s.cur.Sites[i])
	}
	s.recompute()
	return s.cur.Tick
}

func (s *Store) advanceWorker(w *state.Worker) {
	switch w.Status() {
	case state.StatusWorking:
		w.EnergyValue = max(0, w.EnergyValue-s.rules.EnergyDrain)
		if w.Task.Done {
			return
		}
		left, ok := s.remaining[w.Task.ID]
		if !ok {
			left = s.rules.WorkTurns
		}
		left--
		s.remaining[w.Task.ID] = left
		if left > 0 {
			return
		}
		w.Task.Done = true
		if site := s.cur.Site(w.Task.Site); site != nil && site.Task != nil && site.Task.ID == w.Task.ID {
			site.Task.Done = true
		}
	case state.StatusVacation:
		w.EnergyValue = min(100, w.EnergyValue+s.rules.EnergyRegen)
	}
}

func (s *Store) advanceSite(site *state.Site) {
	var income int64
	for _, ad := range site.Ads {
		if ad.Enabled {
			income += int64(ad.ProfitPerHour * 100)
		}
	}
	if site.HasActiveContent() {
		income += int64(site.Traffic) * 10
	}
	s.cur.Person.Balance += income

	if site.HostingID == 0 {
		return
	}
	d := site.Domain
	if site.CanPayForHosting {
		s.overdue[d]++
		if s.overdue[d] >= s.rules.BillingEvery {
			site.CanNormalize = true
		}
		return
	}
	s.billing[d]++
	if s.billing[d] >= s.rules.BillingEvery {
		site.CanPayForHosting = true
		s.billing[d] = 0
	}
}
