package display

import (
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/citycal/internal/event"
	"horse.fit/citycal/internal/match"
)

func strPtr(s string) *string { return &s }

func displayEvent(id, title, date, source string) event.Event {
	return event.Event{ID: id, Title: title, Date: date, Source: source}
}

func TestRebuildExcludesSecondaryAndAttachesAlternate(t *testing.T) {
	t.Parallel()

	primary := displayEvent("metrotix:1", "Fall Art Walk", "2025-10-04", "metrotix")
	primary.URL = strPtr("https://metrotix.example/1")
	secondary := displayEvent("cityweekly:7", "Fall Art Walk 2025", "2025-10-04", "cityweekly")
	secondary.URL = strPtr("https://cityweekly.example/7")

	edges := []match.Edge{{
		SecondaryEventID: "cityweekly:7",
		PrimaryEventID:   "metrotix:1",
		Score:            0.9,
		Confidence:       match.ConfidenceHigh,
	}}

	rows, err := Rebuild([]event.Event{primary, secondary}, edges, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one retained row, got %d", len(rows))
	}
	row := rows[0]
	if row.ID != "metrotix:1" {
		t.Fatalf("expected the primary to be retained, got %s", row.ID)
	}
	if row.AlternateURL == nil || *row.AlternateURL != "https://cityweekly.example/7" {
		t.Fatalf("expected the secondary's URL as alternate, got %v", row.AlternateURL)
	}
	if row.AlternateSource == nil || *row.AlternateSource != "cityweekly" {
		t.Fatalf("expected the secondary's source as alternate, got %v", row.AlternateSource)
	}
}

func TestRebuildIgnoresLowConfidenceEdges(t *testing.T) {
	t.Parallel()

	a := displayEvent("metrotix:1", "Fall Art Walk", "2025-10-04", "metrotix")
	b := displayEvent("cityweekly:7", "Harvest Festival", "2025-10-04", "cityweekly")

	edges := []match.Edge{{
		SecondaryEventID: "cityweekly:7",
		PrimaryEventID:   "metrotix:1",
		Score:            0.66,
		Confidence:       match.ConfidenceLow,
	}}

	rows, err := Rebuild([]event.Event{a, b}, edges, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected both events retained under a low edge, got %d", len(rows))
	}
	for _, row := range rows {
		if row.AlternateURL != nil || row.AlternateSource != nil {
			t.Fatalf("expected no alternate links from low edges, got %+v", row)
		}
	}
}

func TestRebuildToleratesDanglingEdges(t *testing.T) {
	t.Parallel()

	a := displayEvent("metrotix:1", "Fall Art Walk", "2025-10-04", "metrotix")

	edges := []match.Edge{
		{
			SecondaryEventID: "cityweekly:gone",
			PrimaryEventID:   "metrotix:1",
			Score:            0.9,
			Confidence:       match.ConfidenceHigh,
		},
		{
			SecondaryEventID: "metrotix:1",
			PrimaryEventID:   "eventhound:gone",
			Score:            0.8,
			Confidence:       match.ConfidenceMedium,
		},
	}

	rows, err := Rebuild([]event.Event{a}, edges, zerolog.Nop())
	if err != nil {
		t.Fatalf("dangling edges must not abort the rebuild: %v", err)
	}
	// The second edge still excludes metrotix:1 as its secondary member even
	// though its primary is unknown; the first contributes nothing.
	if len(rows) != 0 {
		t.Fatalf("expected the excluded event to be dropped, got %d rows", len(rows))
	}
}

func TestRebuildPrefersStrongerAlternate(t *testing.T) {
	t.Parallel()

	primary := displayEvent("metrotix:1", "Fall Art Walk", "2025-10-04", "metrotix")
	mediumDup := displayEvent("cityweekly:7", "Fall Art Walk", "2025-10-04", "cityweekly")
	mediumDup.URL = strPtr("https://cityweekly.example/7")
	highDup := displayEvent("eventhound:3", "Fall Art Walk", "2025-10-04", "eventhound")
	highDup.URL = strPtr("https://eventhound.example/3")

	edges := []match.Edge{
		{SecondaryEventID: "cityweekly:7", PrimaryEventID: "metrotix:1", Score: 0.99, Confidence: match.ConfidenceMedium},
		{SecondaryEventID: "eventhound:3", PrimaryEventID: "metrotix:1", Score: 0.87, Confidence: match.ConfidenceHigh},
	}

	rows, err := Rebuild([]event.Event{primary, mediumDup, highDup}, edges, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected only the primary retained, got %d", len(rows))
	}
	// High confidence beats a higher-scoring medium edge.
	if rows[0].AlternateSource == nil || *rows[0].AlternateSource != "eventhound" {
		t.Fatalf("expected the high-confidence duplicate as alternate, got %v", rows[0].AlternateSource)
	}
}

func TestRebuildChronologicalOrder(t *testing.T) {
	t.Parallel()

	events := []event.Event{
		displayEvent("metrotix:3", "Later Day", "2025-10-06", "metrotix"),
		displayEvent("metrotix:1", "All Day Fair", "2025-10-04", "metrotix"),
		{ID: "metrotix:2", Title: "Evening Show", Date: "2025-10-04", Source: "metrotix", StartTime: strPtr("19:00:00")},
	}

	rows, err := Rebuild(events, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := []string{rows[0].ID, rows[1].ID, rows[2].ID}
	want := []string{"metrotix:2", "metrotix:1", "metrotix:3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected display order: got %v want %v", got, want)
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	t.Parallel()

	events := []event.Event{
		displayEvent("metrotix:1", "Fall Art Walk", "2025-10-04", "metrotix"),
		displayEvent("cityweekly:7", "Fall Art Walk", "2025-10-04", "cityweekly"),
		displayEvent("eventhound:2", "Harvest Festival", "2025-10-05", "eventhound"),
	}
	edges := []match.Edge{{
		SecondaryEventID: "cityweekly:7",
		PrimaryEventID:   "metrotix:1",
		Score:            0.9,
		Confidence:       match.ConfidenceHigh,
	}}

	first, err := Rebuild(events, edges, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Rebuild(events, edges, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical output across runs")
	}
}

func TestRebuildRejectsInvalidEvents(t *testing.T) {
	t.Parallel()

	if _, err := Rebuild([]event.Event{{ID: "metrotix:1"}}, nil, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for event missing a calendar date")
	}
}
