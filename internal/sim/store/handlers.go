package store

import (
	"tycoon.ai/internal/protocol"
	"tycoon.ai/internal/sim/command"
	"tycoon.ai/internal/sim/state"
)

type commandHandler func(s *Store, c command.Command) error

var handlers = map[command.Kind]commandHandler{
	command.KindChangeHosting:  handleChangeHosting,
	command.KindPayForHosting:  handlePayForHosting,
	command.KindNormalizeSite:  handleNormalizeSite,
	command.KindSendVacation:   handleSendVacation,
	command.KindCancelVacation: handleCancelVacation,
	command.KindCompleteWork:   handleCompleteWork,
	command.KindDoWork:         handleDoWork,
	command.KindLevelUp:        handleLevelUp,
	command.KindEnableContent:  handleEnableContent,
	command.KindEnableAd:       handleEnableAd,
}

func handleChangeHosting(s *Store, c command.Command) error {
	site, err := s.site(c.Site)
	if err != nil {
		return err
	}
	if c.HostingID > s.rules.MaxTier {
		return protocol.Errorf(protocol.ErrBadRequest, "tier %d above max %d", c.HostingID, s.rules.MaxTier)
	}
	if c.HostingID <= site.HostingID {
		return protocol.Errorf(protocol.ErrConflict, "site %s already on tier %d", site.Domain, site.HostingID)
	}
	site.HostingID = c.HostingID
	// A new plan is billed immediately.
	site.CanPayForHosting = true
	s.billing[site.Domain] = 0
	return nil
}

func handlePayForHosting(s *Store, c command.Command) error {
	site, err := s.site(c.Site)
	if err != nil {
		return err
	}
	if !site.CanPayForHosting {
		return protocol.Errorf(protocol.ErrNotEligible, "site %s has no open invoice", site.Domain)
	}
	if s.cur.Person.Balance < c.Amount {
		return protocol.Errorf(protocol.ErrNoResource, "balance %d < %d", s.cur.Person.Balance, c.Amount)
	}
	s.cur.Person.Balance -= c.Amount
	site.CanPayForHosting = false
	delete(s.overdue, site.Domain)
	return nil
}

func handleNormalizeSite(s *Store, c command.Command) error {
	site, err := s.site(c.Site)
	if err != nil {
		return err
	}
	if !site.CanNormalize {
		return protocol.Errorf(protocol.ErrNotEligible, "site %s is not suspended", site.Domain)
	}
	site.CanNormalize = false
	return nil
}

// Sending a resting worker on vacation again is accepted as a no-op. A working worker
// abandons the task and its unit of work goes back to the site.
func handleSendVacation(s *Store, c command.Command) error {
	w, err := s.worker(c.Worker)
	if err != nil {
		return err
	}
	if w.IsOnVacation() {
		return nil
	}
	if w.IsWorking() {
		s.releaseTask(w.Task, true)
	}
	w.Task = &state.Task{ID: s.newID(), Worker: w.Name, Zone: state.ZoneVacation}
	return nil
}

func handleCancelVacation(s *Store, c command.Command) error {
	w, err := s.worker(c.Worker)
	if err != nil {
		return err
	}
	if !w.IsOnVacation() {
		return protocol.Errorf(protocol.ErrConflict, "worker %s is %s", w.Name, w.Status())
	}
	w.Task = nil
	return nil
}

func handleCompleteWork(s *Store, c command.Command) error {
	w, err := s.worker(c.Worker)
	if err != nil {
		return err
	}
	if !w.IsWorking() {
		return protocol.Errorf(protocol.ErrConflict, "worker %s is %s", w.Name, w.Status())
	}
	if !w.Task.Done {
		return protocol.Errorf(protocol.ErrNotEligible, "task %s not done", w.Task.ID)
	}
	t := w.Task
	s.releaseTask(t, false)
	w.Task = nil

	s.cur.Person.Score += s.rules.ScorePerTask
	site := s.cur.Site(t.Site)
	if site == nil {
		return nil
	}
	switch t.Specialty {
	case state.SpecialtyMarketing:
		site.Traffic += s.rules.MarketingTraffic
	case state.SpecialtyContent:
		site.Contents = append(site.Contents, state.Content{ID: s.newID(), TypeID: "article"})
	}
	return nil
}

func handleDoWork(s *Store, c command.Command) error {
	w, err := s.worker(c.Worker)
	if err != nil {
		return err
	}
	site, err := s.site(c.Site)
	if err != nil {
		return err
	}
	if !w.IsIdle() {
		return protocol.Errorf(protocol.ErrConflict, "worker %s is %s", w.Name, w.Status())
	}
	// A site holds one active task; replacing it would hide a pending marketing run.
	if site.Task != nil {
		return protocol.Errorf(protocol.ErrConflict, "site %s already has a %s task", site.Domain, site.Task.Specialty)
	}
	sp := w.Specialty
	if sp != state.SpecialtyMarketing {
		if !site.HasUncompletedWork(sp) {
			return protocol.Errorf(protocol.ErrStale, "site %s has no %s work left", site.Domain, sp)
		}
		site.Work[sp]--
	}
	t := &state.Task{ID: s.newID(), Worker: w.Name, Site: site.Domain, Zone: state.WorkZone(sp), Specialty: sp}
	w.Task = t
	st := *t
	site.Task = &st
	s.remaining[t.ID] = s.rules.WorkTurns
	return nil
}

// Levelling up opens a round of design, programming and content work and, while there
// are free slots, a new disabled ad.
func handleLevelUp(s *Store, c command.Command) error {
	site, err := s.site(c.Site)
	if err != nil {
		return err
	}
	if !site.CanLevelUp {
		return protocol.Errorf(protocol.ErrNotEligible, "site %s cannot level up", site.Domain)
	}
	site.Level++
	if site.Work == nil {
		site.Work = map[state.Specialty]int{}
	}
	site.Work[state.SpecialtyDesign]++
	site.Work[state.SpecialtyProgramming]++
	site.Work[state.SpecialtyContent]++
	if len(site.Ads) < s.rules.AdSlots {
		site.Ads = append(site.Ads, state.Ad{ID: s.newID(), ProfitPerHour: float64(site.Level) * 1.5, Importunity: 1})
	}
	s.cur.Person.Score += s.rules.ScorePerLevel
	for s.cur.Person.NextScore > 0 && s.cur.Person.Score >= s.cur.Person.NextScore {
		s.cur.Person.Level++
		s.cur.Person.NextScore *= 2
	}
	return nil
}

func handleEnableContent(s *Store, c command.Command) error {
	site, err := s.site(c.Site)
	if err != nil {
		return err
	}
	for i := range site.Contents {
		ct := &site.Contents[i]
		if ct.ID != c.Content {
			continue
		}
		if ct.Enabled {
			return protocol.Errorf(protocol.ErrConflict, "content %s already enabled", ct.ID)
		}
		ct.Enabled = true
		return nil
	}
	return protocol.Errorf(protocol.ErrInvalidTarget, "site %s has no content %q", site.Domain, c.Content)
}

func handleEnableAd(s *Store, c command.Command) error {
	site, err := s.site(c.Site)
	if err != nil {
		return err
	}
	for i := range site.Ads {
		ad := &site.Ads[i]
		if ad.ID != c.Ad {
			continue
		}
		if ad.Enabled {
			return protocol.Errorf(protocol.ErrConflict, "ad %s already enabled", ad.ID)
		}
		ad.Enabled = true
		return nil
	}
	return protocol.Errorf(protocol.ErrInvalidTarget, "site %s has no ad %q", site.Domain, c.Ad)
}

// releaseTask detaches a productive task from its site. With refund the claimed unit of
// work is returned to the site.
func (s *Store) releaseTask(t *state.Task, refund bool) {
	delete(s.remaining, t.ID)
	site := s.cur.Site(t.Site)
	if site == nil {
		return
	}
	if site.Task != nil && site.Task.ID == t.ID {
		site.Task = nil
	}
	if refund && t.Specialty != state.SpecialtyMarketing {
		if site.Work == nil {
			site.Work = map[state.Specialty]int{}
		}
		site.Work[t.Specialty]++
	}
}
