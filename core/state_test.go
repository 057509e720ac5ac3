package core_test

import (
	"testing"

	"github.com/becomeliminal/strata-go-sdk/core"
)

func TestPatchDistinguishesAbsentFromEmpty(t *testing.T) {
	audience := core.Audience{
		Primary:    "founders",
		PainPoints: []string{"no time", "no budget"},
	}

	// Absent field (nil pointer): untouched.
	(&core.AudiencePatch{Primary: ptr("operators")}).Apply(&audience)
	if len(audience.PainPoints) != 2 {
		t.Errorf("absent PainPoints overwrote existing list: %v", audience.PainPoints)
	}
	if audience.Primary != "operators" {
		t.Errorf("Primary = %q", audience.Primary)
	}

	// Present-but-empty: clears the list.
	empty := []string{}
	(&core.AudiencePatch{PainPoints: &empty}).Apply(&audience)
	if len(audience.PainPoints) != 0 {
		t.Errorf("explicit empty PainPoints did not clear: %v", audience.PainPoints)
	}
	if audience.Primary != "operators" {
		t.Errorf("Primary changed by unrelated patch: %q", audience.Primary)
	}
}

func TestUnmarshalPayloadRejectsUnknownType(t *testing.T) {
	if _, err := core.UnmarshalPayload("TENANT_DELETED", []byte(`{}`)); err == nil {
		t.Error("want error for event type outside the closed set")
	}
}

func TestPayloadRoundtripByType(t *testing.T) {
	in := core.SystemCheckpointPayload{
		Summary:            "S",
		KeyTakeaways:       []string{"K1"},
		CompressedEventIDs: []string{"e1", "e2"},
		CompressedCount:    2,
	}
	data, err := core.MarshalPayload(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := core.UnmarshalPayload(core.EventSystemCheckpoint, data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, ok := out.(core.SystemCheckpointPayload)
	if !ok {
		t.Fatalf("decoded as %T", out)
	}
	if got.CompressedCount != 2 || got.Summary != "S" || len(got.CompressedEventIDs) != 2 {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
}

func ptr(s string) *string { return &s }
