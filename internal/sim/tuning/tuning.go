package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Snapshot consistency modes for a tick.
const (
	// ModeRefresh re-reads the domain before every policy step.
	ModeRefresh = "refresh"
	// ModeFrozen plans every policy step against the snapshot read at tick start.
	ModeFrozen = "frozen"
)

type Tuning struct {
	Tick       TickParams       `yaml:"tick" json:"tick"`
	Hosting    HostingParams    `yaml:"hosting" json:"hosting"`
	Energy     EnergyParams     `yaml:"energy" json:"energy"`
	Assignment AssignmentParams `yaml:"assignment" json:"assignment"`
	Ads        AdParams         `yaml:"ads" json:"ads"`
}

type TickParams struct {
	Mode        string `yaml:"mode" json:"mode"`
	IntervalMs  int    `yaml:"interval_ms" json:"interval_ms"`
	StopOnError bool   `yaml:"stop_on_error" json:"stop_on_error"`
}

type HostingParams struct {
	MinTier int   `yaml:"min_tier" json:"min_tier"`
	Price   int64 `yaml:"price" json:"price"` // minor currency units
}

type EnergyParams struct {
	RestAt int `yaml:"rest_at" json:"rest_at"` // send on vacation at or below
	WakeAt int `yaml:"wake_at" json:"wake_at"` // recall from vacation at or above
}

type AssignmentParams struct {
	// Reserve applies each assignment to the scheduler's working view before the next
	// idle worker is evaluated.
	Reserve bool `yaml:"reserve" json:"reserve"`
}

type AdParams struct {
	EnableAtCount int `yaml:"enable_at_count" json:"enable_at_count"`
}

func Defaults() Tuning {
	return Tuning{
		Tick:    TickParams{Mode: ModeRefresh, IntervalMs: 60000},
		Hosting: HostingParams{MinTier: 4, Price: 400000},
		Energy:  EnergyParams{RestAt: 5, WakeAt: 95},
		Ads:     AdParams{EnableAtCount: 3},
	}
}

// Load reads a tuning file on top of Defaults, so a partial file only overrides what it names.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch t.Tick.Mode {
	case ModeRefresh, ModeFrozen:
	default:
		return fmt.Errorf("tick.mode must be %q or %q, got %q", ModeRefresh, ModeFrozen, t.Tick.Mode)
	}
	if t.Tick.IntervalMs <= 0 {
		return fmt.Errorf("tick.interval_ms must be positive")
	}
	if t.Hosting.MinTier <= 0 {
		return fmt.Errorf("hosting.min_tier must be positive")
	}
	if t.Hosting.Price <= 0 {
		return fmt.Errorf("hosting.price must be positive")
	}
	if t.Energy.RestAt < 0 || t.Energy.WakeAt > 100 || t.Energy.RestAt >= t.Energy.WakeAt {
		return fmt.Errorf("energy thresholds must satisfy 0 <= rest_at < wake_at <= 100")
	}
	if t.Ads.EnableAtCount <= 0 {
		return fmt.Errorf("ads.enable_at_count must be positive")
	}
	return nil
}

// Digest identifies the effective tuning in tick logs.
func (t Tuning) Digest() string {
	b, _ := json.Marshal(t)
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
