package state

// WorkerStatus is the closed state machine a worker is in at any time.
type WorkerStatus int

const (
	StatusIdle WorkerStatus = iota
	StatusWorking
	StatusVacation
)

func (s WorkerStatus) String() string {
	switch s {
	case StatusWorking:
		return "working"
	case StatusVacation:
		return "vacation"
	default:
		return "idle"
	}
}

func (w *Worker) Status() WorkerStatus {
	switch {
	case w.Task.IsVacation():
		return StatusVacation
	case w.Task.IsProductive():
		return StatusWorking
	default:
		return StatusIdle
	}
}

func (w *Worker) IsIdle() bool       { return w.Status() == StatusIdle }
func (w *Worker) IsWorking() bool    { return w.Status() == StatusWorking }
func (w *Worker) IsOnVacation() bool { return w.Status() == StatusVacation }

// IsWorkCompleted is the transient "complete" state: working and the task is done.
func (w *Worker) IsWorkCompleted() bool {
	return w.IsWorking() && w.Task.Done
}

func (s *Site) HasActiveContent() bool {
	for _, c := range s.Contents {
		if c.Enabled {
			return true
		}
	}
	return false
}

func (s *Site) HasDisabledContent() bool {
	for _, c := range s.Contents {
		if !c.Enabled {
			return true
		}
	}
	return false
}

// DisabledContents returns disabled content units in domain order.
func (s *Site) DisabledContents() []Content {
	var out []Content
	for _, c := range s.Contents {
		if !c.Enabled {
			out = append(out, c)
		}
	}
	return out
}

// AdsCount counts enabled and disabled ads alike.
func (s *Site) AdsCount() int { return len(s.Ads) }

func (s *Site) DisabledAds() []Ad {
	var out []Ad
	for _, a := range s.Ads {
		if !a.Enabled {
			out = append(out, a)
		}
	}
	return out
}

// HasSpecialtyTask reports whether the site's active task is of the given specialty.
func (s *Site) HasSpecialtyTask(sp Specialty) bool {
	return s.Task != nil && s.Task.Zone != ZoneVacation && s.Task.Specialty == sp
}

func (s *Site) HasUncompletedWork(sp Specialty) bool {
	return s.Work[sp] > 0
}
