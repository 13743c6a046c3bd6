package types

import (
	"encoding/json"
	"testing"
)

func TestFlexibleIDUnmarshal(t *testing.T) {
	cases := map[string]FlexibleID{
		`42`:      "42",
		`"M1"`:    "M1",
		`"  7  "`: "7",
		`null`:    "",
		`1e3`:     "1e3",
	}
	for raw, want := range cases {
		var got FlexibleID
		if err := json.Unmarshal([]byte(raw), &got); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if got != want {
			t.Fatalf("unmarshal %s: expected %q got %q", raw, want, got)
		}
	}
}

func TestFlexibleIDRejectsObjects(t *testing.T) {
	var got FlexibleID
	if err := json.Unmarshal([]byte(`{"id":1}`), &got); err == nil {
		t.Fatalf("expected object to be rejected")
	}
}

func TestFlexibleIDInStruct(t *testing.T) {
	var payload struct {
		ID FlexibleID `json:"id"`
	}
	if err := json.Unmarshal([]byte(`{"id": 9}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.ID.IsZero() || payload.ID.String() != "9" {
		t.Fatalf("unexpected id %q", payload.ID)
	}

	out, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"id":"9"}` {
		t.Fatalf("unexpected json %s", out)
	}
}

func TestUpstreamStatusSucceeded(t *testing.T) {
	var status UpstreamStatus
	if status.Succeeded() {
		t.Fatalf("missing flag is not success")
	}
	if err := json.Unmarshal([]byte(`{"success":true}`), &status); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !status.Succeeded() {
		t.Fatalf("expected success")
	}
}
