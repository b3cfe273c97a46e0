// Package state holds the read model of one tick: the person, their sites and their
// workers, together with the derived predicates and ordering views the policies consume.
//
// A Snapshot is a value owned by whoever read it. Policies treat it as immutable; code that
// needs a private working view must Clone it first.
package state

import "strings"

// ZoneVacation is the reserved task zone meaning the worker is resting.
const ZoneVacation = "vacation"

type Person struct {
	Balance   int64 `json:"balance"` // minor currency units
	Level     int   `json:"level"`
	Score     int64 `json:"score"`
	NextScore int64 `json:"next_score"`
}

type Content struct {
	ID      string `json:"id"`
	TypeID  string `json:"type_id"`
	Enabled bool   `json:"enabled"`
}

type Ad struct {
	ID            string  `json:"id"`
	ProfitPerHour float64 `json:"profit_per_hour"`
	Importunity   int     `json:"importunity"`
	Enabled       bool    `json:"enabled"`
}

type Task struct {
	ID        string    `json:"id"`
	Worker    string    `json:"worker,omitempty"`
	Site      string    `json:"site,omitempty"`
	Zone      string    `json:"zone"`
	Specialty Specialty `json:"specialty,omitempty"`

	// Done is the domain's completion predicate for productive tasks.
	Done bool `json:"done,omitempty"`
}

// WorkZone is the zone tag of a productive task for the given specialty.
func WorkZone(sp Specialty) string { return strings.ToLower(string(sp)) }

func (t *Task) IsVacation() bool { return t != nil && t.Zone == ZoneVacation }

// IsProductive reports whether the task produces work (as opposed to rest or an
// unrecognised zone).
func (t *Task) IsProductive() bool {
	if t == nil || t.Zone == ZoneVacation {
		return false
	}
	return t.Specialty.Valid()
}

type Site struct {
	Domain    string `json:"domain"`
	HostingID int    `json:"hosting_id"`
	Level     int    `json:"level"`
	Traffic   int    `json:"traffic"`

	Contents []Content `json:"contents"`
	Ads      []Ad      `json:"ads"`
	Task     *Task     `json:"task,omitempty"`

	// Work is the outstanding (unclaimed) work units per specialty.
	Work map[Specialty]int `json:"work,omitempty"`

	// Eligibility predicates supplied by the domain.
	CanPayForHosting bool `json:"can_pay_for_hosting"`
	CanNormalize     bool `json:"can_normalize"`
	CanLevelUp       bool `json:"can_level_up"`
}

type Worker struct {
	Name        string    `json:"name"`
	EnergyValue int       `json:"energy_value"`
	Specialty   Specialty `json:"specialty"`
	Task        *Task     `json:"task,omitempty"`
}

type Snapshot struct {
	// Tick is the domain's turn counter when known; zero otherwise.
	Tick uint64 `json:"tick"`

	Person  Person   `json:"person"`
	Sites   []Site   `json:"sites"`
	Workers []Worker `json:"workers"`
}
