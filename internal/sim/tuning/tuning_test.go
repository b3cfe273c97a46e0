package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoad_PartialOverridesDefaults(t *testing.T) {
	p := writeFile(t, `
tick:
  mode: frozen
hosting:
  price: 250000
assignment:
  reserve: true
`)
	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Tick.Mode != ModeFrozen || got.Hosting.Price != 250000 || !got.Assignment.Reserve {
		t.Fatalf("overrides not applied: %+v", got)
	}
	if got.Hosting.MinTier != 4 || got.Energy.RestAt != 5 || got.Energy.WakeAt != 95 || got.Ads.EnableAtCount != 3 {
		t.Fatalf("defaults lost: %+v", got)
	}
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad mode":      "tick:\n  mode: eventual\n",
		"bad energy":    "energy:\n  rest_at: 50\n  wake_at: 40\n",
		"bad tier":      "hosting:\n  min_tier: 0\n",
		"bad ads":       "ads:\n  enable_at_count: -1\n",
		"not yaml":      "tick: [",
		"bad interval":  "tick:\n  interval_ms: -5\n",
		"zero interval": "tick:\n  interval_ms: 0\n",
		"bad price":     "hosting:\n  price: 0\n",
		"energy bounds": "energy:\n  wake_at: 101\n",
	}
	for name, body := range cases {
		if _, err := Load(writeFile(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestDigest(t *testing.T) {
	a, b := Defaults(), Defaults()
	if a.Digest() != b.Digest() {
		t.Fatalf("digest not stable")
	}
	b.Hosting.Price++
	if a.Digest() == b.Digest() {
		t.Fatalf("digest ignores content")
	}
}

func TestLoad_ShippedConfigMatchesDefaults(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != Defaults() {
		t.Fatalf("shipped tuning drifted from defaults:\n got %+v\nwant %+v", got, Defaults())
	}
}
