package protocol

import (
	"fmt"
	"testing"
)

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrProtoVersion,
		ErrBadRequest,
		ErrNotEligible,
		ErrNoResource,
		ErrInvalidTarget,
		ErrConflict,
		ErrStale,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestCodeOf(t *testing.T) {
	base := Errorf(ErrNoResource, "balance %d < %d", 1, 2)
	if got := base.Error(); got != "E_NO_RESOURCE: balance 1 < 2" {
		t.Fatalf("Error()=%q", got)
	}
	wrapped := fmt.Errorf("pay a.com: %w", base)
	if CodeOf(wrapped) != ErrNoResource {
		t.Fatalf("CodeOf(wrapped)=%q", CodeOf(wrapped))
	}
	if CodeOf(fmt.Errorf("plain")) != "" {
		t.Fatalf("expected empty code for uncoded error")
	}
	if (&Error{Code: ErrStale}).Error() != ErrStale {
		t.Fatalf("bare code should print as itself")
	}
}

func TestAckErr(t *testing.T) {
	if err := (AckMsg{Accepted: true}).Err(); err != nil {
		t.Fatalf("accepted ack: %v", err)
	}
	err := AckMsg{Accepted: false, Code: ErrConflict, Message: "busy"}.Err()
	if CodeOf(err) != ErrConflict {
		t.Fatalf("code=%q", CodeOf(err))
	}
	if CodeOf(AckMsg{}.Err()) != ErrInternal {
		t.Fatalf("uncoded rejection should map to E_INTERNAL")
	}
}
