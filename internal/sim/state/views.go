package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// SortedSites returns the sites in the domain's default order.
func (s *Snapshot) SortedSites() []*Site {
	out := make([]*Site, 0, len(s.Sites))
	for i := range s.Sites {
		out = append(out, &s.Sites[i])
	}
	return out
}

// SortedSitesByTraffic orders sites by descending traffic. Equal-traffic sites keep their
// domain order.
func (s *Snapshot) SortedSitesByTraffic() []*Site {
	out := s.SortedSites()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Traffic > out[j].Traffic })
	return out
}

func (s *Snapshot) Site(domain string) *Site {
	for i := range s.Sites {
		if s.Sites[i].Domain == domain {
			return &s.Sites[i]
		}
	}
	return nil
}

func (s *Snapshot) Worker(name string) *Worker {
	for i := range s.Workers {
		if s.Workers[i].Name == name {
			return &s.Workers[i]
		}
	}
	return nil
}

// Clone returns a deep copy that shares no memory with s. Empty collections come back
// nil.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{Tick: s.Tick, Person: s.Person}
	if len(s.Sites) > 0 {
		out.Sites = make([]Site, len(s.Sites))
		for i, site := range s.Sites {
			site.Contents = append([]Content(nil), site.Contents...)
			site.Ads = append([]Ad(nil), site.Ads...)
			site.Task = cloneTask(site.Task)
			site.Work = nil
			if src := s.Sites[i].Work; len(src) > 0 {
				site.Work = make(map[Specialty]int, len(src))
				for k, v := range src {
					site.Work[k] = v
				}
			}
			out.Sites[i] = site
		}
	}
	if len(s.Workers) > 0 {
		out.Workers = make([]Worker, len(s.Workers))
		for i, w := range s.Workers {
			w.Task = cloneTask(w.Task)
			out.Workers[i] = w
		}
	}
	return out
}

func cloneTask(t *Task) *Task {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Digest is a stable sha256 over the canonical JSON encoding. Nil and empty collections
// hash the same.
func (s *Snapshot) Digest() string {
	b, err := json.Marshal(s.Clone())
	if err != nil {
		return ""
	}
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// Validate checks structural invariants the policies rely on.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("nil snapshot")
	}
	seenSites := make(map[string]struct{}, len(s.Sites))
	for _, site := range s.Sites {
		if site.Domain == "" {
			return fmt.Errorf("site with empty domain")
		}
		if _, dup := seenSites[site.Domain]; dup {
			return fmt.Errorf("duplicate site %q", site.Domain)
		}
		seenSites[site.Domain] = struct{}{}
		if site.HostingID < 0 || site.Level < 0 {
			return fmt.Errorf("site %q: negative hosting id or level", site.Domain)
		}
		for sp, n := range site.Work {
			if !sp.Valid() {
				return fmt.Errorf("site %q: unknown work specialty %q", site.Domain, sp)
			}
			if n < 0 {
				return fmt.Errorf("site %q: negative work for %s", site.Domain, sp)
			}
		}
	}
	seenWorkers := make(map[string]struct{}, len(s.Workers))
	for _, w := range s.Workers {
		if w.Name == "" {
			return fmt.Errorf("worker with empty name")
		}
		if _, dup := seenWorkers[w.Name]; dup {
			return fmt.Errorf("duplicate worker %q", w.Name)
		}
		seenWorkers[w.Name] = struct{}{}
		if !w.Specialty.Valid() {
			return fmt.Errorf("worker %q: unknown specialty %q", w.Name, w.Specialty)
		}
		if w.EnergyValue < 0 || w.EnergyValue > 100 {
			return fmt.Errorf("worker %q: energy %d out of range", w.Name, w.EnergyValue)
		}
		if w.Task != nil && w.Task.Site != "" {
			if _, ok := seenSites[w.Task.Site]; !ok {
				return fmt.Errorf("worker %q: task on unknown site %q", w.Name, w.Task.Site)
			}
		}
	}
	return nil
}
