package match

import (
	"testing"

	"horse.fit/citycal/internal/event"
)

func TestFindMatchesSameDateOnly(t *testing.T) {
	t.Parallel()

	a := testEvent("cityweekly:1", "Fall Art Walk", "2025-10-04")
	b := testEvent("metrotix:1", "Fall Art Walk", "2025-10-05")

	results, err := FindMatches([]event.Event{a}, []event.Event{b}, 0.1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no cross-date pairs, got %d", len(results))
	}
}

func TestFindMatchesThresholdInclusive(t *testing.T) {
	t.Parallel()

	a := testEvent("cityweekly:1", "Fall Art Walk", "2025-10-04")
	b := testEvent("metrotix:1", "Fall Art Walk", "2025-10-04")

	scored, err := ScoreMatch(a, b, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A pair scoring exactly the threshold is kept.
	results, err := FindMatches([]event.Event{a}, []event.Event{b}, scored.Total, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected the boundary pair to be kept, got %d results", len(results))
	}
	if results[0].AEventID != "cityweekly:1" || results[0].BEventID != "metrotix:1" {
		t.Fatalf("unexpected pair identifiers: %+v", results[0])
	}

	// Nudging the threshold above the total drops it.
	results, err = FindMatches([]event.Event{a}, []event.Event{b}, scored.Total+1e-6, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results above the pair's total, got %d", len(results))
	}
}

func TestFindMatchesSortedByTotalDescending(t *testing.T) {
	t.Parallel()

	a := testEvent("cityweekly:1", "Fall Art Walk", "2025-10-04")
	exact := testEvent("metrotix:1", "Fall Art Walk", "2025-10-04")
	partial := testEvent("metrotix:2", "Fall Harvest Festival", "2025-10-04")

	results, err := FindMatches([]event.Event{a}, []event.Event{exact, partial}, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected both pairs with a zero threshold, got %d", len(results))
	}
	if results[0].Total < results[1].Total {
		t.Fatalf("expected descending totals, got %f then %f", results[0].Total, results[1].Total)
	}
	if results[0].BEventID != "metrotix:1" {
		t.Fatalf("expected the exact title pair first, got %s", results[0].BEventID)
	}
}

func TestFindMatchesRejectsInvalidEvents(t *testing.T) {
	t.Parallel()

	valid := testEvent("cityweekly:1", "Fall Art Walk", "2025-10-04")
	missingDate := testEvent("metrotix:1", "Fall Art Walk", "")

	if _, err := FindMatches([]event.Event{valid}, []event.Event{missingDate}, 0.5, nil); err == nil {
		t.Fatalf("expected error for event missing a calendar date")
	}
	if _, err := FindMatches([]event.Event{{Title: "x", Date: "2025-10-04"}}, []event.Event{valid}, 0.5, nil); err == nil {
		t.Fatalf("expected error for event missing an identifier")
	}
}

func TestEdgeFromResult(t *testing.T) {
	t.Parallel()

	edge := EdgeFromResult(Result{
		AEventID:   "cityweekly:1",
		BEventID:   "metrotix:1",
		Total:      0.91,
		Confidence: ConfidenceHigh,
		Reasons:    []string{"title substring match"},
	})

	if edge.SecondaryEventID != "cityweekly:1" || edge.PrimaryEventID != "metrotix:1" {
		t.Fatalf("expected A side to become the secondary member, got %+v", edge)
	}
	if edge.Score != 0.91 || edge.Confidence != ConfidenceHigh {
		t.Fatalf("unexpected edge score or confidence: %+v", edge)
	}
	if edge.MatchType != MatchTypeAuto {
		t.Fatalf("expected auto match type, got %q", edge.MatchType)
	}
}
