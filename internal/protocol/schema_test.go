package protocol

import "testing"

func TestValidateState(t *testing.T) {
	good := `{
	  "tick": 3,
	  "person": {"balance": 450000, "level": 2, "score": 10, "next_score": 50},
	  "sites": [{
	    "domain": "a.com", "hosting_id": 4, "level": 1, "traffic": 120,
	    "contents": null,
	    "ads": [{"id": "ad1", "profit_per_hour": 1.5, "importunity": 2, "enabled": false}],
	    "task": {"id": "t1", "zone": "marketing", "specialty": "MARKETING"},
	    "work": {"DESIGN": 2},
	    "can_pay_for_hosting": true, "can_normalize": false, "can_level_up": false
	  }],
	  "workers": [{"name": "ann", "energy_value": 40, "specialty": "MARKETING",
	               "task": {"id": "t1", "zone": "marketing", "specialty": "MARKETING"}}]
	}`
	if err := ValidateState([]byte(good)); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}

	bad := map[string]string{
		"missing workers":   `{"person":{"balance":0,"level":0},"sites":[]}`,
		"energy too high":   `{"person":{"balance":0,"level":0},"sites":[],"workers":[{"name":"w","energy_value":101,"specialty":"DESIGN"}]}`,
		"unknown work key":  `{"person":{"balance":0,"level":0},"sites":[{"domain":"a","hosting_id":0,"level":0,"traffic":0,"work":{"SALES":1}}],"workers":[]}`,
		"task without zone": `{"person":{"balance":0,"level":0},"sites":[],"workers":[{"name":"w","energy_value":1,"specialty":"DESIGN","task":{"id":"x"}}]}`,
		"not json":          `{`,
	}
	for name, doc := range bad {
		err := ValidateState([]byte(doc))
		if err == nil {
			t.Fatalf("%s: expected rejection", name)
		}
		if CodeOf(err) != ErrProtoBadRequest {
			t.Fatalf("%s: code=%q", name, CodeOf(err))
		}
	}
}

func TestValidateCmd(t *testing.T) {
	ok := `{"type":"CMD","protocol_version":"1.0","req_id":"r1","command":{"kind":"DO_WORK","worker":"w","site":"a"}}`
	if err := Validate(SchemaCmd, []byte(ok)); err != nil {
		t.Fatalf("valid cmd rejected: %v", err)
	}
	unknown := `{"type":"CMD","protocol_version":"1.0","req_id":"r1","command":{"kind":"SELL_SITE"}}`
	if err := Validate(SchemaCmd, []byte(unknown)); err == nil {
		t.Fatalf("expected unknown kind rejected")
	}
	if err := Validate("nope.schema.json", []byte(ok)); err == nil {
		t.Fatalf("expected unknown schema error")
	}
}

func TestValidateState_Numbers(t *testing.T) {
	// Balances beyond float64's exact integer range must still validate as integers.
	big := `{"person":{"balance":9007199254740993,"level":1},"sites":[],"workers":[]}`
	if err := ValidateState([]byte(big)); err != nil {
		t.Fatalf("large balance rejected: %v", err)
	}
	frac := `{"person":{"balance":0,"level":0},"sites":[],"workers":[{"name":"w","energy_value":40.5,"specialty":"DESIGN"}]}`
	if err := ValidateState([]byte(frac)); CodeOf(err) != ErrProtoBadRequest {
		t.Fatalf("fractional energy: expected %s, got %v", ErrProtoBadRequest, err)
	}
}
