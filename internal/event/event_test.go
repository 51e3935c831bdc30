package event

import "testing"

func strPtr(s string) *string { return &s }

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Event{ID: "metrotix:1", Title: "Fall Art Walk", Date: "2025-10-04"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}

	if err := (Event{Date: "2025-10-04"}).Validate(); err == nil {
		t.Fatalf("expected error for missing identifier")
	}
	if err := (Event{ID: "metrotix:1"}).Validate(); err == nil {
		t.Fatalf("expected error for missing calendar date")
	}
}

func TestBuildID(t *testing.T) {
	t.Parallel()

	if got := BuildID(" metrotix ", " 42 "); got != "metrotix:42" {
		t.Fatalf("unexpected id: %q", got)
	}
}

func TestSortChronological(t *testing.T) {
	t.Parallel()

	events := []Event{
		{ID: "a", Date: "2025-10-05"},
		{ID: "b", Date: "2025-10-04"},
		{ID: "c", Date: "2025-10-04", StartTime: strPtr("19:00:00")},
		{ID: "d", Date: "2025-10-04", StartTime: strPtr("09:00:00")},
		{ID: "e", Date: "2025-10-04"},
	}

	SortChronological(events)

	// Timed events precede untimed events on the same date; untimed events
	// keep their insertion order.
	want := []string{"d", "c", "b", "e", "a"}
	for i, id := range want {
		if events[i].ID != id {
			t.Fatalf("position %d: got %s want %s (full order %v)", i, events[i].ID, id, ids(events))
		}
	}
}

func ids(events []Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}
