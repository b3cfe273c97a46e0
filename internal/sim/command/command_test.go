package command

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	ok := []Command{
		ChangeHosting("a", 4),
		PayForHosting("a", 400000),
		NormalizeSite("a"),
		SendVacation("w"),
		CancelVacation("w"),
		CompleteWork("w"),
		DoWork("w", "a"),
		LevelUp("a"),
		EnableContent("a", "c1"),
		EnableAd("a", "ad1"),
	}
	for _, c := range ok {
		if err := c.Validate(); err != nil {
			t.Fatalf("%s: unexpected error: %v", c, err)
		}
		if !KnownKind(c.Kind) {
			t.Fatalf("%s: kind not registered", c.Kind)
		}
	}

	bad := []Command{
		{Kind: "EXPLODE"},
		ChangeHosting("a", 0),
		PayForHosting("", 1),
		PayForHosting("a", 0),
		DoWork("w", ""),
		EnableContent("a", ""),
		EnableAd("", "ad1"),
		SendVacation(""),
	}
	for _, c := range bad {
		err := c.Validate()
		if err == nil {
			t.Fatalf("%+v: expected error", c)
		}
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("%+v: error %v does not wrap ErrInvalid", c, err)
		}
	}
}

func TestBecause_DoesNotMutateReceiver(t *testing.T) {
	c := LevelUp("a")
	d := c.Because("progression", "eligible")
	if c.Policy != "" || d.Policy != "progression" || d.Reason != "eligible" {
		t.Fatalf("unexpected annotation: c=%+v d=%+v", c, d)
	}
}

func TestTarget(t *testing.T) {
	if got := DoWork("w", "a").Target(); got != "w" {
		t.Fatalf("target=%q want worker", got)
	}
	if got := LevelUp("a").Target(); got != "a" {
		t.Fatalf("target=%q want site", got)
	}
}
